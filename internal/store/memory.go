package store

import (
	"context"
	"sort"
	"sync"

	"gridcal/internal/model"
)

// MemoryStore is the degraded-mode backend used when the durable store
// cannot initialize: the contract keeps working, nothing survives the
// process. Records go through the same serialized shape as the Redis
// backend so both paths exercise identical encode/decode behavior.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]storedEvent
}

func NewMemory() *MemoryStore {
	return &MemoryStore{records: make(map[string]storedEvent)}
}

func (s *MemoryStore) Init(context.Context) error { return nil }

func (s *MemoryStore) Save(_ context.Context, ev model.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[ev.UID] = encodeEvent(ev)
	return nil
}

func (s *MemoryStore) SaveAll(ctx context.Context, events []model.CalendarEvent) (model.SaveResult, error) {
	var res model.SaveResult
	for _, ev := range events {
		if err := s.Save(ctx, ev); err != nil {
			res.Failed++
			continue
		}
		res.Success++
	}
	return res, nil
}

func (s *MemoryStore) GetAll(context.Context) ([]model.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uids := make([]string, 0, len(s.records))
	for uid := range s.records {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	events := make([]model.CalendarEvent, 0, len(uids))
	for _, uid := range uids {
		ev, err := decodeEvent(s.records[uid])
		if err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (s *MemoryStore) Delete(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, uid)
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]storedEvent)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

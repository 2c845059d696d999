// Package session owns the in-memory event collection for the lifetime
// of the process. The collection is authoritative for rendering; the
// store is best-effort durable. A persistence failure therefore never
// rolls back an in-memory change — events already visible stay visible
// and only a notification surfaces.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gridcal/internal/ics"
	appLog "gridcal/internal/log"
	"gridcal/internal/model"
	"gridcal/internal/store"
)

// ErrNotFound is returned when a uid is absent from the collection.
var ErrNotFound = errors.New("event not found")

// ImportResult reports one import: how many events parsed out of the
// payload and how the best-effort save went.
type ImportResult struct {
	Parsed int `json:"parsed"`
	Saved  int `json:"saved"`
	Failed int `json:"failed"`
	// FromCache is set for URL imports served from the HTTP cache.
	FromCache bool `json:"from_cache,omitempty"`
}

// Session glues parser, fetcher and store around the event collection.
//
// Known quirk kept from the source behavior: duplicate uids across two
// imports live as separate entries in the collection until a restart,
// while the store collapses them last-write-wins.
type Session struct {
	parser  *ics.Parser
	fetcher *ics.Fetcher
	store   store.Store

	mu     sync.RWMutex
	events []model.CalendarEvent

	now func() time.Time
}

// New builds a Session. fetcher may be nil when URL imports are unused.
func New(parser *ics.Parser, fetcher *ics.Fetcher, st store.Store) *Session {
	return &Session{
		parser:  parser,
		fetcher: fetcher,
		store:   st,
		now:     time.Now,
	}
}

// Load reads the stored collection once at session start.
func (s *Session) Load(ctx context.Context) error {
	events, err := s.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	s.mu.Lock()
	s.events = events
	s.mu.Unlock()

	appLog.Info("session loaded", "event_count", len(events))
	return nil
}

// Events returns a snapshot copy of the collection.
func (s *Session) Events() []model.CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.CalendarEvent, len(s.events))
	copy(out, s.events)
	return out
}

// ImportPayload parses an ICS payload, appends every parsed event to the
// collection and best-effort saves them. A parse failure yields zero
// events and the error; a save failure only lowers the saved count.
func (s *Session) ImportPayload(ctx context.Context, body []byte) (ImportResult, error) {
	parsed, err := s.parser.Parse(body)
	if err != nil {
		return ImportResult{}, err
	}
	if len(parsed) == 0 {
		return ImportResult{}, nil
	}

	s.mu.Lock()
	s.events = append(s.events, parsed...)
	s.mu.Unlock()

	res := ImportResult{Parsed: len(parsed)}
	saveRes, err := s.store.SaveAll(ctx, parsed)
	if err != nil {
		appLog.Error("import save failed", err, "event_count", len(parsed))
		res.Failed = len(parsed)
		return res, nil
	}
	res.Saved = saveRes.Success
	res.Failed = saveRes.Failed
	return res, nil
}

// ImportURL fetches an ICS subscription URL and imports its payload.
func (s *Session) ImportURL(ctx context.Context, url string) (ImportResult, error) {
	if s.fetcher == nil {
		return ImportResult{}, errors.New("url imports are disabled")
	}
	fetched, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return ImportResult{}, err
	}
	res, err := s.ImportPayload(ctx, fetched.Body)
	res.FromCache = fetched.FromCache
	return res, err
}

// Add creates an event from a manual-entry draft, appends it and
// best-effort saves it. The created event is returned even when the
// save fails; the error tells the caller to surface a notification.
func (s *Session) Add(ctx context.Context, draft model.EventDraft) (model.CalendarEvent, error) {
	cat := draft.Category
	if cat == "" {
		cat = model.CategoryPersonal
	}
	ev := model.CalendarEvent{
		UID:         model.NewUID(s.now()),
		Summary:     draft.Summary,
		Description: draft.Description,
		Location:    draft.Location,
		Start:       draft.Start,
		End:         draft.End,
		AllDay:      draft.AllDay,
		Recurring:   false,
		Category:    cat,
	}

	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()

	if err := s.store.Save(ctx, ev); err != nil {
		appLog.Error("event save failed", err, "uid", ev.UID)
		return ev, err
	}
	return ev, nil
}

// Delete removes the event with the given uid from the collection and
// the store.
func (s *Session) Delete(ctx context.Context, uid string) error {
	s.mu.Lock()
	found := false
	kept := s.events[:0]
	for _, ev := range s.events {
		if ev.UID == uid {
			found = true
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	s.mu.Unlock()

	if !found {
		return ErrNotFound
	}
	if err := s.store.Delete(ctx, uid); err != nil {
		appLog.Error("event delete failed", err, "uid", uid)
		return err
	}
	return nil
}

// Clear empties the collection and the store.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()

	if err := s.store.Clear(ctx); err != nil {
		appLog.Error("store clear failed", err)
		return err
	}
	return nil
}

// Flush re-saves the whole collection to the store. It runs on a cron
// schedule as a durability sweep, picking up events whose individual
// saves failed earlier.
func (s *Session) Flush(ctx context.Context) (model.SaveResult, error) {
	events := s.Events()
	if len(events) == 0 {
		return model.SaveResult{}, nil
	}
	res, err := s.store.SaveAll(ctx, events)
	if err != nil {
		appLog.Error("flush failed", err, "event_count", len(events))
		return res, err
	}
	if res.Failed > 0 {
		appLog.Info("flush completed with failures", "saved", res.Success, "failed", res.Failed)
	} else {
		appLog.Debug("flush completed", "saved", res.Success)
	}
	return res, nil
}

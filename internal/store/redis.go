package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"gridcal/internal/config"
	appLog "gridcal/internal/log"
	"gridcal/internal/model"
)

// eventsKey is the hash holding all event records, field = uid.
// A hash keyed by uid gives the same shape as the contract: put
// overwrites, delete removes one field, clear drops the key.
const eventsKey = "gridcal:events"

// RedisStore is the durable Store backend.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedis builds a RedisStore from config. The connection is verified
// in Init, not here.
func NewRedis(cfg config.RedisConfig) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		key: eventsKey,
	}
}

// Init verifies the connection.
func (s *RedisStore) Init(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Save upserts a single event record.
func (s *RedisStore) Save(ctx context.Context, ev model.CalendarEvent) error {
	payload, err := json.Marshal(encodeEvent(ev))
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.UID, err)
	}
	if err := s.client.HSet(ctx, s.key, ev.UID, payload).Err(); err != nil {
		return fmt.Errorf("redis hset %s: %w", ev.UID, err)
	}
	return nil
}

// SaveAll upserts each event independently and reports both counts.
// Uid collisions resolve last-write-wins within the batch.
func (s *RedisStore) SaveAll(ctx context.Context, events []model.CalendarEvent) (model.SaveResult, error) {
	var res model.SaveResult
	for _, ev := range events {
		if err := s.Save(ctx, ev); err != nil {
			appLog.Error("event save failed", err, "uid", ev.UID)
			res.Failed++
			continue
		}
		res.Success++
	}
	return res, nil
}

// GetAll loads every stored record, ordered by uid. Undecodable records
// are logged and skipped rather than failing the whole load.
func (s *RedisStore) GetAll(ctx context.Context) ([]model.CalendarEvent, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	uids := make([]string, 0, len(raw))
	for uid := range raw {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	events := make([]model.CalendarEvent, 0, len(uids))
	for _, uid := range uids {
		var rec storedEvent
		if err := json.Unmarshal([]byte(raw[uid]), &rec); err != nil {
			appLog.Error("stored event unreadable, skipping", err, "uid", uid)
			continue
		}
		ev, derr := decodeEvent(rec)
		if derr != nil {
			appLog.Error("stored event undecodable, skipping", derr, "uid", uid)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// Delete removes the record for uid. Deleting a missing uid is not an error.
func (s *RedisStore) Delete(ctx context.Context, uid string) error {
	if err := s.client.HDel(ctx, s.key, uid).Err(); err != nil {
		return fmt.Errorf("redis hdel %s: %w", uid, err)
	}
	return nil
}

// Clear drops every stored record.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

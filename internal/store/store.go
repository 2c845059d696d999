// Package store persists calendar events behind a narrow key-value
// contract: one record per event uid, last write wins. The rest of the
// application depends only on the Store interface, never on the storage
// technology.
package store

import (
	"context"
	"fmt"
	"time"

	"gridcal/internal/model"
)

// Store is the persistence collaborator contract.
//
// SaveAll is per-record: each event succeeds or fails independently and
// the result carries both counts; it never fails atomically. GetAll
// defaults a missing category to personal, keeping records written
// before the category field existed readable.
type Store interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, ev model.CalendarEvent) error
	SaveAll(ctx context.Context, events []model.CalendarEvent) (model.SaveResult, error)
	GetAll(ctx context.Context) ([]model.CalendarEvent, error)
	Delete(ctx context.Context, uid string) error
	Clear(ctx context.Context) error
	Close() error
}

// storedEvent is the serialized record shape. Dates travel as RFC 3339
// strings with their zone offset, so an all-day event's calendar day
// survives the string round trip without drift.
type storedEvent struct {
	UID         string `json:"uid"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	IsRecurring bool   `json:"isRecurring"`
	IsAllDay    bool   `json:"isAllDay"`
	Category    string `json:"category,omitempty"`
}

func encodeEvent(ev model.CalendarEvent) storedEvent {
	return storedEvent{
		UID:         ev.UID,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		StartDate:   ev.Start.Format(time.RFC3339),
		EndDate:     ev.End.Format(time.RFC3339),
		IsRecurring: ev.Recurring,
		IsAllDay:    ev.AllDay,
		Category:    string(ev.Category),
	}
}

func decodeEvent(rec storedEvent) (model.CalendarEvent, error) {
	start, err := time.Parse(time.RFC3339, rec.StartDate)
	if err != nil {
		return model.CalendarEvent{}, fmt.Errorf("record %s: bad startDate: %w", rec.UID, err)
	}
	end, err := time.Parse(time.RFC3339, rec.EndDate)
	if err != nil {
		return model.CalendarEvent{}, fmt.Errorf("record %s: bad endDate: %w", rec.UID, err)
	}

	return model.CalendarEvent{
		UID:         rec.UID,
		Summary:     rec.Summary,
		Description: rec.Description,
		Location:    rec.Location,
		Start:       start,
		End:         end,
		Recurring:   rec.IsRecurring,
		AllDay:      rec.IsAllDay,
		Category:    model.ParseCategory(rec.Category),
	}, nil
}

package grid

import (
	"sort"
	"time"

	"gridcal/internal/model"
)

// EventsOnDate returns the events visible on the given calendar day,
// ordered for display: all-day events first (input order preserved),
// then timed events by ascending start.
//
// The day window is [date 00:00, date+1d 00:00). An all-day event covers
// the day iff the day's midnight falls inside its half-open [Start, End);
// a timed event iff it overlaps the window (Start before the window's
// end and End after its start). An all-day event's End day is therefore
// never included, matching the exclusive-end invariant.
//
// The full matching sequence is returned; callers that cap the number of
// events per cell compute their own overflow from it.
func EventsOnDate(date time.Time, events []model.CalendarEvent) []model.CalendarEvent {
	dayStart := model.DayStart(date)
	dayEnd := dayStart.AddDate(0, 0, 1)

	matched := make([]model.CalendarEvent, 0)
	for _, ev := range events {
		if eventCoversDay(ev, dayStart, dayEnd) {
			matched = append(matched, ev)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.AllDay != b.AllDay {
			return a.AllDay
		}
		if a.AllDay {
			// No secondary key for all-day pairs; stable sort keeps
			// their input order.
			return false
		}
		return a.Start.Before(b.Start)
	})

	return matched
}

// HasEventsOnDate reports whether any event is visible on the given day.
// The year view uses this for its per-day markers instead of building
// full projections.
func HasEventsOnDate(date time.Time, events []model.CalendarEvent) bool {
	dayStart := model.DayStart(date)
	dayEnd := dayStart.AddDate(0, 0, 1)

	for _, ev := range events {
		if eventCoversDay(ev, dayStart, dayEnd) {
			return true
		}
	}
	return false
}

func eventCoversDay(ev model.CalendarEvent, dayStart, dayEnd time.Time) bool {
	if ev.AllDay {
		return !dayStart.Before(ev.Start) && dayStart.Before(ev.End)
	}
	return ev.Start.Before(dayEnd) && ev.End.After(dayStart)
}

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is the keyword-derived event category.
type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryHoliday  Category = "holiday"
)

// ParseCategory maps a stored category string onto a known Category.
// Unknown or empty values fall back to personal, so records written
// before the category field existed stay readable.
func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryWork, CategoryPersonal, CategoryHoliday:
		return Category(s)
	default:
		return CategoryPersonal
	}
}

// View identifies one of the four calendar view granularities.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
	ViewYear  View = "year"
)

// ParseView validates a view name from user input.
func ParseView(s string) (View, error) {
	switch View(s) {
	case ViewDay, ViewWeek, ViewMonth, ViewYear:
		return View(s), nil
	}
	return "", fmt.Errorf("unknown view %q", s)
}

// CalendarEvent is a single flat event occurrence. Recurring definitions
// are carried as one occurrence with Recurring set; they are not expanded.
type CalendarEvent struct {
	UID string

	Summary     string
	Description string
	Location    string

	// Start / End are local-time instants. For all-day events End is
	// exclusive: an event covering a single day D ends at D+1 00:00.
	Start time.Time
	End   time.Time

	AllDay    bool
	Recurring bool

	Category Category
}

// GridCell is one rendering unit of a calendar grid.
type GridCell struct {
	// Date is the cell's calendar day at local midnight.
	Date time.Time
	// CurrentMonth marks in-range days; padding days from the
	// neighboring months carry false. Only the month view cares.
	CurrentMonth bool
	Today        bool
}

// DateRange is an inclusive day-granularity range, Start <= End.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// SaveResult reports the outcome of a per-record bulk save.
type SaveResult struct {
	Success int `json:"success"`
	Failed  int `json:"error"`
}

// EventDraft is the manual-entry command for creating a new event.
type EventDraft struct {
	Summary     string
	Category    Category
	Start       time.Time
	End         time.Time
	AllDay      bool
	Location    string
	Description string
}

// NewUID synthesizes an identifier for a manually created event:
// a millisecond timestamp plus a short random suffix.
func NewUID(now time.Time) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("event-%d-%s", now.UnixMilli(), suffix)
}

// DayStart truncates t to midnight of its calendar day, keeping the location.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// Package grid synthesizes calendar grids and projects events onto
// their cells. Both sides are pure: cells never carry event data, and
// projection never truncates.
package grid

import (
	"time"

	"gridcal/internal/model"
)

// MonthCells is the fixed month-view size: six full weeks, so the layout
// height stays stable across months.
const MonthCells = 42

// Options controls grid synthesis.
type Options struct {
	// WeekStart is the weekday that opens a week row.
	WeekStart time.Weekday
	// Now is injectable for tests; nil means time.Now.
	Now func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Build returns the cell sequence for a day, week or month view anchored
// at the given date. The year view is a composite of twelve month grids;
// use BuildYear for it.
func Build(view model.View, anchor time.Time, opts Options) []model.GridCell {
	switch view {
	case model.ViewDay:
		return dayCell(anchor, opts)
	case model.ViewWeek:
		return weekCells(anchor, opts)
	default:
		return monthCells(anchor.Year(), anchor.Month(), anchor.Location(), opts)
	}
}

// BuildYear returns twelve independent month grids for the anchor's year.
func BuildYear(anchor time.Time, opts Options) [12][]model.GridCell {
	var out [12][]model.GridCell
	for i := 0; i < 12; i++ {
		out[i] = monthCells(anchor.Year(), time.Month(i+1), anchor.Location(), opts)
	}
	return out
}

func dayCell(anchor time.Time, opts Options) []model.GridCell {
	date := model.DayStart(anchor)
	return []model.GridCell{{
		Date:         date,
		CurrentMonth: true,
		Today:        model.SameDay(date, opts.now()),
	}}
}

func weekCells(anchor time.Time, opts Options) []model.GridCell {
	today := opts.now()
	start := model.DayStart(anchor).AddDate(0, 0, -weekOffset(anchor, opts.WeekStart))

	cells := make([]model.GridCell, 0, 7)
	for i := 0; i < 7; i++ {
		date := start.AddDate(0, 0, i)
		cells = append(cells, model.GridCell{
			Date:         date,
			CurrentMonth: date.Month() == anchor.Month(),
			Today:        model.SameDay(date, today),
		})
	}
	return cells
}

// monthCells emits the 42-cell grid for (year, month): the tail of the
// previous month up to the first weekday offset, the month itself, then
// leading days of the next month as padding.
func monthCells(year int, month time.Month, loc *time.Location, opts Options) []model.GridCell {
	today := opts.now()
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	offset := weekOffset(first, opts.WeekStart)
	daysIn := daysInMonth(year, month, loc)

	cells := make([]model.GridCell, 0, MonthCells)

	for i := offset; i > 0; i-- {
		cells = append(cells, model.GridCell{
			Date: first.AddDate(0, 0, -i),
		})
	}

	for d := 1; d <= daysIn; d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, loc)
		cells = append(cells, model.GridCell{
			Date:         date,
			CurrentMonth: true,
			Today:        model.SameDay(date, today),
		})
	}

	for d := 1; len(cells) < MonthCells; d++ {
		cells = append(cells, model.GridCell{
			Date: time.Date(year, month+1, d, 0, 0, 0, 0, loc),
		})
	}

	return cells
}

// weekOffset is the number of days t lies past the opening weekday of
// its week.
func weekOffset(t time.Time, weekStart time.Weekday) int {
	return (int(t.Weekday()) - int(weekStart) + 7) % 7
}

// daysInMonth relies on time.Date normalization: day 0 of the following
// month is the last day of this one.
func daysInMonth(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// ParseWeekStart maps the config value onto a weekday. Anything other
// than "monday" means Sunday.
func ParseWeekStart(s string) time.Weekday {
	if s == "monday" {
		return time.Monday
	}
	return time.Sunday
}

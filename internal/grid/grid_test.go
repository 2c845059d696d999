package grid

import (
	"testing"
	"time"

	"gridcal/internal/model"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestBuildDay(t *testing.T) {
	now := time.Date(2025, time.January, 15, 9, 30, 0, 0, time.UTC)
	cells := Build(model.ViewDay, now, Options{Now: fixedNow(now)})

	if len(cells) != 1 {
		t.Fatalf("day view: expected 1 cell, got %d", len(cells))
	}
	want := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	if !cells[0].Date.Equal(want) {
		t.Errorf("expected midnight %v, got %v", want, cells[0].Date)
	}
	if !cells[0].Today {
		t.Errorf("anchor day should be flagged as today")
	}
}

func TestBuildWeek(t *testing.T) {
	tests := []struct {
		name      string
		weekStart time.Weekday
		anchor    time.Time
		wantFirst time.Time
	}{
		{
			"sunday start, midweek anchor",
			time.Sunday,
			time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC), // a Wednesday
			time.Date(2025, time.January, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			"sunday start, anchor on sunday",
			time.Sunday,
			time.Date(2025, time.January, 12, 0, 0, 0, 0, time.UTC),
			time.Date(2025, time.January, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			"monday start, midweek anchor",
			time.Monday,
			time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC),
			time.Date(2025, time.January, 13, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := Build(model.ViewWeek, tt.anchor, Options{WeekStart: tt.weekStart, Now: fixedNow(tt.anchor)})

			if len(cells) != 7 {
				t.Fatalf("week view: expected 7 cells, got %d", len(cells))
			}
			if cells[0].Date.Weekday() != tt.weekStart {
				t.Errorf("first cell weekday = %v, want %v", cells[0].Date.Weekday(), tt.weekStart)
			}
			if !cells[0].Date.Equal(tt.wantFirst) {
				t.Errorf("first cell = %v, want %v", cells[0].Date, tt.wantFirst)
			}
			for i := 1; i < 7; i++ {
				if !cells[i].Date.Equal(cells[i-1].Date.AddDate(0, 0, 1)) {
					t.Errorf("cells not consecutive at index %d: %v after %v", i, cells[i].Date, cells[i-1].Date)
				}
			}
		})
	}
}

func TestBuildMonth(t *testing.T) {
	tests := []struct {
		name      string
		anchor    time.Time
		daysInMon int
	}{
		{"january 2025", time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC), 31},
		{"february leap year", time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), 29},
		{"february non-leap", time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), 28},
		{"december year wrap", time.Date(2025, time.December, 25, 0, 0, 0, 0, time.UTC), 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cells := Build(model.ViewMonth, tt.anchor, Options{Now: fixedNow(tt.anchor)})

			if len(cells) != MonthCells {
				t.Fatalf("month view: expected %d cells, got %d", MonthCells, len(cells))
			}

			inMonth := 0
			for _, c := range cells {
				if c.CurrentMonth {
					inMonth++
				}
			}
			if inMonth != tt.daysInMon {
				t.Errorf("in-month cells = %d, want %d", inMonth, tt.daysInMon)
			}

			for i := 1; i < len(cells); i++ {
				if !cells[i].Date.Equal(cells[i-1].Date.AddDate(0, 0, 1)) {
					t.Fatalf("cells not consecutive at index %d", i)
				}
			}
		})
	}
}

func TestBuildMonthPadding(t *testing.T) {
	// June 2025 starts on a Sunday: with a Sunday week start there is no
	// leading padding and day 1 is the first cell.
	anchor := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	cells := Build(model.ViewMonth, anchor, Options{WeekStart: time.Sunday, Now: fixedNow(anchor)})

	if !cells[0].Date.Equal(anchor) {
		t.Errorf("expected June 1 first, got %v", cells[0].Date)
	}
	if !cells[0].CurrentMonth {
		t.Errorf("June 1 should be in-month")
	}

	// August 2025 starts on a Friday: five leading padding days from July.
	anchor = time.Date(2025, time.August, 15, 0, 0, 0, 0, time.UTC)
	cells = Build(model.ViewMonth, anchor, Options{WeekStart: time.Sunday, Now: fixedNow(anchor)})

	for i := 0; i < 5; i++ {
		if cells[i].CurrentMonth {
			t.Errorf("cell %d should be previous-month padding", i)
		}
		if cells[i].Date.Month() != time.July {
			t.Errorf("cell %d month = %v, want July", i, cells[i].Date.Month())
		}
	}
	if !cells[5].Date.Equal(time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("cell 5 = %v, want August 1", cells[5].Date)
	}
	if cells[41].Date.Month() != time.September {
		t.Errorf("last cell month = %v, want September padding", cells[41].Date.Month())
	}
}

func TestBuildMonthTodayFlag(t *testing.T) {
	now := time.Date(2025, time.March, 14, 23, 59, 0, 0, time.UTC)
	cells := Build(model.ViewMonth, now, Options{Now: fixedNow(now)})

	count := 0
	for _, c := range cells {
		if c.Today {
			count++
			if c.Date.Day() != 14 || c.Date.Month() != time.March {
				t.Errorf("wrong cell flagged today: %v", c.Date)
			}
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one today cell, got %d", count)
	}

	// Anchoring a different month than today's leaves no today flag.
	other := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	for _, c := range Build(model.ViewMonth, other, Options{Now: fixedNow(now)}) {
		if c.Today {
			t.Errorf("no cell should be today in a different month, got %v", c.Date)
		}
	}
}

func TestBuildYear(t *testing.T) {
	anchor := time.Date(2025, time.May, 20, 0, 0, 0, 0, time.UTC)
	months := BuildYear(anchor, Options{Now: fixedNow(anchor)})

	for i, cells := range months {
		if len(cells) != MonthCells {
			t.Fatalf("month %d: expected %d cells, got %d", i+1, MonthCells, len(cells))
		}
		inMonth := 0
		for _, c := range cells {
			if c.CurrentMonth {
				inMonth++
			}
		}
		want := time.Date(2025, time.Month(i+2), 0, 0, 0, 0, 0, time.UTC).Day()
		if inMonth != want {
			t.Errorf("month %d: in-month cells = %d, want %d", i+1, inMonth, want)
		}
	}
}

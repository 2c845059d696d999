// Package selection turns pointer-drag gestures over grid cells into a
// committed date range.
package selection

import (
	"time"

	"gridcal/internal/model"
)

// State of the drag machine.
type State int

const (
	// Idle means no active selection.
	Idle State = iota
	// Dragging means a press happened and the range follows the pointer.
	Dragging
)

// Controller is a small state machine: Idle -> Dragging -> Idle.
//
// A press on a cell starts a drag with start == end == that day;
// entering other cells moves only the end; releasing commits the
// normalized range when it spans more than one day. Releasing on the
// press day commits nothing: a plain click is not a drag, and single-day
// creation goes through a separate double-click gesture outside this
// machine. Release must be callable from anywhere (the front end listens
// for it document-wide) so a pointer leaving the grid can never wedge
// the controller in Dragging.
//
// The zero value is a ready Idle controller. Not safe for concurrent
// use; each interactive client owns one.
type Controller struct {
	state State
	start time.Time
	end   time.Time
}

// State returns the current machine state.
func (c *Controller) State() State {
	return c.state
}

// Press starts a drag on the given cell. The year view has no
// cell-level selection; presses there are rejected.
func (c *Controller) Press(view model.View, date time.Time) bool {
	if view == model.ViewYear {
		return false
	}
	d := model.DayStart(date)
	c.state = Dragging
	c.start = d
	c.end = d
	return true
}

// Enter updates the drag end as the pointer moves over another cell.
// Ignored while idle. The drag start never moves.
func (c *Controller) Enter(date time.Time) {
	if c.state != Dragging {
		return
	}
	c.end = model.DayStart(date)
}

// Highlight returns the currently highlighted range (min..max inclusive)
// while dragging.
func (c *Controller) Highlight() (model.DateRange, bool) {
	if c.state != Dragging {
		return model.DateRange{}, false
	}
	return normalize(c.start, c.end), true
}

// Contains reports whether a cell day falls inside the active highlight.
func (c *Controller) Contains(date time.Time) bool {
	r, ok := c.Highlight()
	if !ok {
		return false
	}
	d := model.DayStart(date)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Release ends the drag. It returns the committed range and true when
// the selection spans more than one day; a same-day release returns
// false and is the de facto cancel path. In Idle it is a no-op.
func (c *Controller) Release() (model.DateRange, bool) {
	if c.state != Dragging {
		return model.DateRange{}, false
	}

	start, end := c.start, c.end
	c.state = Idle
	c.start = time.Time{}
	c.end = time.Time{}

	if start.Equal(end) {
		return model.DateRange{}, false
	}
	return normalize(start, end), true
}

func normalize(a, b time.Time) model.DateRange {
	if b.Before(a) {
		a, b = b, a
	}
	return model.DateRange{Start: a, End: b}
}

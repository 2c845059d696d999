package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"gridcal/internal/classify"
	appLog "gridcal/internal/log"
	"gridcal/internal/model"
)

// Parser decodes an iCalendar payload into CalendarEvent records. The
// underlying format decoding is delegated to the golang-ical library;
// this package only owns field extraction, all-day semantics and
// category classification.
type Parser struct {
	classifier *classify.Classifier
	loc        *time.Location
}

// NewParser builds a Parser. A nil classifier uses the default keyword
// lists; a nil location uses time.Local.
func NewParser(c *classify.Classifier, loc *time.Location) *Parser {
	if c == nil {
		c = classify.New(nil, nil)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Parser{classifier: c, loc: loc}
}

// Parse parses a single ICS payload into a list of CalendarEvent.
//
//   - All-day events are detected by inspecting the DTSTART value format
//     (VALUE=DATE parameter or a value without a time component).
//   - Date-only values become midnight in the parser's location, built
//     directly from the (year, month, day) triple so the calendar day
//     never shifts through a timezone reinterpretation.
//   - A missing DTEND is synthesized: start+1d for all-day events, the
//     start instant itself for timed ones.
//   - Recurring definitions are flagged, not expanded: one record per
//     VEVENT regardless of its RRULE.
//
// Output order matches component order and duplicates by UID are kept;
// collapsing duplicates is the store's concern.
func (p *Parser) Parse(body []byte) ([]model.CalendarEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	events := make([]model.CalendarEvent, 0)

	for _, comp := range cal.Events() {
		ev, perr := p.parseVEvent(comp)
		if perr != nil {
			// Log and skip this event, but keep parsing others.
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "event_count", len(events))
	return events, nil
}

func (p *Parser) parseVEvent(ve *ical.VEvent) (model.CalendarEvent, error) {
	var out model.CalendarEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if prop := ve.GetProperty(ical.ComponentPropertySummary); prop != nil {
		out.Summary = prop.Value
	}
	if prop := ve.GetProperty(ical.ComponentPropertyDescription); prop != nil {
		out.Description = prop.Value
	}
	if prop := ve.GetProperty(ical.ComponentPropertyLocation); prop != nil {
		out.Location = prop.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return out, errors.New("missing DTSTART")
	}
	out.AllDay = isDateOnly(dtStart)

	start, err := p.propTime(ve.GetStartAt, dtStart)
	if err != nil {
		return out, err
	}
	out.Start = start

	dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd)
	switch {
	case dtEnd != nil && dtEnd.Value != "":
		end, eerr := p.propTime(ve.GetEndAt, dtEnd)
		if eerr != nil {
			return out, eerr
		}
		out.End = end
	case out.AllDay:
		// Exclusive end: a one-day event ends at the next midnight.
		out.End = out.Start.AddDate(0, 0, 1)
	default:
		// Timed event with no end: zero duration.
		out.End = out.Start
	}

	// RRULE marks the event as recurring; the definition still yields a
	// single occurrence record. Invalid rules are ignored.
	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil && rruleProp.Value != "" {
		if _, rerr := rrule.StrToRRule(rruleProp.Value); rerr == nil {
			out.Recurring = true
		} else {
			appLog.Error("ics rrule invalid, treating event as non-recurring", rerr,
				"uid", out.UID, "rrule", rruleProp.Value)
		}
	}

	out.Category = p.classifier.Classify(out.Summary, out.Description)

	return out, nil
}

// propTime resolves a DTSTART/DTEND property into a local-time instant.
// Date-only values are constructed as midnight from the literal y/m/d;
// timed values go through the library's timezone handling and are then
// converted into the parser's location.
func (p *Parser) propTime(get func() (time.Time, error), prop *ical.IANAProperty) (time.Time, error) {
	if isDateOnly(prop) {
		return p.parseDateValue(prop.Value)
	}
	t, err := get()
	if err != nil {
		// The library helper can fail on exotic forms the raw parser
		// still understands; fall back to a direct parse.
		t, err = parseICSTime(prop.Value, p.loc)
		if err != nil {
			return time.Time{}, err
		}
	}
	return t.In(p.loc), nil
}

// isDateOnly reports whether the property carries a bare date:
// VALUE=DATE or a value without a time component.
func isDateOnly(prop *ical.IANAProperty) bool {
	if prop == nil {
		return false
	}
	if params := prop.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(prop.Value, "T")
}

// parseDateValue parses a YYYYMMDD value into midnight of that day.
func (p *Parser) parseDateValue(v string) (time.Time, error) {
	t, err := time.ParseInLocation("20060102", strings.TrimSpace(v), p.loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, p.loc), nil
}

// parseICSTime parses a basic ICS date-time string into time.Time.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		const layout = "20060102T150405Z"
		return time.Parse(layout, v)
	}

	// Floating local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		const layout = "20060102T150405"
		return time.ParseInLocation(layout, v, loc)
	}

	const layoutDate = "20060102"
	return time.ParseInLocation(layoutDate, v, loc)
}

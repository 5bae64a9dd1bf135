// Package ics converts calendars to and from the iCalendar format.
//
// Export writes a VCALENDAR with one VEVENT per entry; repeating entries
// carry an RRULE limited to FREQ and UNTIL, and tags are emitted as
// CATEGORIES. Decoding is best-effort: events missing required fields or
// carrying unsupported recurrence rules come back as plain events or are
// skipped.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

const productID = "-//team-calendar//EN"

const untilLayout = "20060102T150405Z"

// Event is the transport-neutral view of one calendar entry.
type Event struct {
	UID         string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Categories  []string

	// Frequency is empty for one-off events; otherwise one of HOURLY,
	// DAILY, WEEKLY, MONTHLY with Until bounding the repetition.
	Frequency string
	Until     time.Time
}

// Encode writes the events as a VCALENDAR document.
func Encode(w io.Writer, calendarName string, events []Event) error {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	if calendarName != "" {
		cal.Props.SetText("X-WR-CALNAME", calendarName)
	}

	for _, event := range events {
		cal.Children = append(cal.Children, buildEvent(event))
	}

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("ics: encode calendar: %w", err)
	}
	return nil
}

func buildEvent(event Event) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, event.UID)
	ve.Props.SetText(ical.PropSummary, event.Summary)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, event.Start.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, event.End.UTC())

	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	if len(event.Categories) > 0 {
		// CATEGORIES is a text list; SetText would escape the separating
		// commas, so the value is assembled by hand.
		p := ical.NewProp(ical.PropCategories)
		p.Value = joinList(event.Categories)
		ve.Props.Add(p)
	}
	if event.Frequency != "" {
		rule := "FREQ=" + event.Frequency
		if !event.Until.IsZero() {
			rule += ";UNTIL=" + event.Until.UTC().Format(untilLayout)
		}
		// RRULE values are RECUR, not TEXT; the semicolons must survive.
		p := ical.NewProp(ical.PropRecurrenceRule)
		p.Value = rule
		ve.Props.Add(p)
	}
	return ve
}

// joinList builds an iCalendar text list, escaping list separators and
// backslashes inside the items.
func joinList(items []string) string {
	escaped := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.ReplaceAll(item, `\`, `\\`)
		item = strings.ReplaceAll(item, ",", `\,`)
		escaped = append(escaped, item)
	}
	return strings.Join(escaped, ",")
}

// splitList splits an iCalendar text list on unescaped commas and
// unescapes the items.
func splitList(value string) []string {
	var items []string
	var current strings.Builder
	escaped := false
	for _, r := range value {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ',':
			items = append(items, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	items = append(items, current.String())
	return items
}

// Decode reads a VCALENDAR document and returns its events. VEVENTs
// without a start time are skipped; an unsupported RRULE downgrades the
// event to a one-off rather than failing the import.
func Decode(r io.Reader) ([]Event, error) {
	cal, err := ical.NewDecoder(r).Decode()
	if err != nil {
		return nil, fmt.Errorf("ics: decode calendar: %w", err)
	}

	var events []Event
	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		event, ok := parseEvent(comp)
		if !ok {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func parseEvent(comp *ical.Component) (Event, bool) {
	var event Event

	if prop := comp.Props.Get(ical.PropUID); prop != nil {
		event.UID = prop.Value
	}
	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		event.Summary = prop.Value
	}
	if prop := comp.Props.Get(ical.PropDescription); prop != nil {
		event.Description = prop.Value
	}

	prop := comp.Props.Get(ical.PropDateTimeStart)
	if prop == nil {
		return Event{}, false
	}
	start, err := prop.DateTime(time.UTC)
	if err != nil {
		return Event{}, false
	}
	event.Start = start

	if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
		if end, err := prop.DateTime(time.UTC); err == nil {
			event.End = end
		}
	}
	if event.End.IsZero() {
		event.End = event.Start.Add(time.Hour)
	}

	if prop := comp.Props.Get(ical.PropCategories); prop != nil && prop.Value != "" {
		for _, category := range splitList(prop.Value) {
			if trimmed := strings.TrimSpace(category); trimmed != "" {
				event.Categories = append(event.Categories, trimmed)
			}
		}
	}

	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil {
		event.Frequency, event.Until = parseRecurrenceRule(prop.Value)
	}

	return event, true
}

// parseRecurrenceRule extracts FREQ and UNTIL from an RRULE value. Any
// frequency outside the supported set is dropped.
func parseRecurrenceRule(value string) (string, time.Time) {
	var frequency string
	var until time.Time

	for _, part := range strings.Split(value, ";") {
		key, val, found := strings.Cut(part, "=")
		if !found {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "FREQ":
			frequency = strings.ToUpper(strings.TrimSpace(val))
		case "UNTIL":
			if t, err := time.Parse(untilLayout, strings.TrimSpace(val)); err == nil {
				until = t
			}
		}
	}

	switch frequency {
	case "HOURLY", "DAILY", "WEEKLY", "MONTHLY":
		return frequency, until
	}
	return "", time.Time{}
}

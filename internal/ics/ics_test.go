package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestEncodeDecode(t *testing.T) {
	start := time.Date(2025, time.April, 7, 9, 0, 0, 0, time.UTC)
	events := []Event{
		{
			UID:         "appt-1",
			Summary:     "Standup",
			Description: "daily sync",
			Start:       start,
			End:         start.Add(30 * time.Minute),
			Categories:  []string{"work", "team"},
		},
		{
			UID:       "rec-1",
			Summary:   "Planning",
			Start:     start.Add(2 * time.Hour),
			End:       start.Add(3 * time.Hour),
			Frequency: "WEEKLY",
			Until:     start.AddDate(0, 3, 0),
		},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, "Work", events); err != nil {
		t.Fatalf("encode: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"X-WR-CALNAME:Work",
		"SUMMARY:Standup",
		"CATEGORIES:work,team",
		"RRULE:FREQ=WEEKLY;UNTIL=20250707T090000Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("got %d events, want 2", len(decoded))
	}

	first := decoded[0]
	if first.UID != "appt-1" || first.Summary != "Standup" || first.Description != "daily sync" {
		t.Fatalf("first = %+v", first)
	}
	if !first.Start.Equal(start) || !first.End.Equal(start.Add(30*time.Minute)) {
		t.Fatalf("first times = [%v, %v]", first.Start, first.End)
	}
	if len(first.Categories) != 2 {
		t.Fatalf("first categories = %v", first.Categories)
	}

	second := decoded[1]
	if second.Frequency != "WEEKLY" {
		t.Fatalf("second frequency = %q", second.Frequency)
	}
	if !second.Until.Equal(start.AddDate(0, 3, 0)) {
		t.Fatalf("second until = %v", second.Until)
	}
}

func TestDecode_BestEffort(t *testing.T) {
	input := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//test//EN",
		"BEGIN:VEVENT",
		"UID:no-start",
		"SUMMARY:Missing start",
		"DTSTAMP:20250407T090000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:no-end",
		"SUMMARY:Missing end",
		"DTSTAMP:20250407T090000Z",
		"DTSTART:20250407T100000Z",
		"END:VEVENT",
		"BEGIN:VEVENT",
		"UID:weird-rule",
		"SUMMARY:Yearly",
		"DTSTAMP:20250407T090000Z",
		"DTSTART:20250407T110000Z",
		"DTEND:20250407T120000Z",
		"RRULE:FREQ=YEARLY;UNTIL=20300101T000000Z",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")

	events, err := Decode(strings.NewReader(input))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	// The event without DTSTART is skipped entirely.
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}

	// A missing DTEND defaults to an hour after the start.
	if got := events[0].End.Sub(events[0].Start); got != time.Hour {
		t.Fatalf("default duration = %v", got)
	}

	// The unsupported YEARLY rule downgrades the event to a one-off.
	if events[1].Frequency != "" || !events[1].Until.IsZero() {
		t.Fatalf("recurrence survived downgrade: %+v", events[1])
	}
}

func TestListEscaping(t *testing.T) {
	items := []string{"plain", "with,comma", `with\backslash`}

	got := splitList(joinList(items))

	if len(got) != len(items) {
		t.Fatalf("round-trip produced %v", got)
	}
	for i := range items {
		if got[i] != items[i] {
			t.Errorf("item %d = %q, want %q", i, got[i], items[i])
		}
	}
}

func TestParseRecurrenceRule(t *testing.T) {
	cases := []struct {
		value     string
		frequency string
	}{
		{"FREQ=DAILY", "DAILY"},
		{"freq=weekly", "WEEKLY"},
		{"FREQ=MONTHLY;INTERVAL=2", "MONTHLY"},
		{"FREQ=SECONDLY", ""},
		{"INTERVAL=2", ""},
		{"", ""},
	}
	for _, tc := range cases {
		frequency, _ := parseRecurrenceRule(tc.value)
		if frequency != tc.frequency {
			t.Errorf("parseRecurrenceRule(%q) frequency = %q, want %q", tc.value, frequency, tc.frequency)
		}
	}
}

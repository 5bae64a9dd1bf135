package recurrence

import (
	"errors"
	"testing"
	"time"
)

func TestEngine_Expand(t *testing.T) {
	t.Parallel()

	baseStart := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	baseEnd := baseStart.Add(time.Hour)

	t.Run("daily rule fills the range inclusively", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine()

		rule := Rule{
			RecurrentAppointmentID: "rec-1",
			Start:                  baseStart,
			End:                    baseEnd,
			Frequency:              FrequencyDaily,
			RecursionEnd:           baseStart.AddDate(0, 0, 4),
		}

		occurrences, err := engine.Expand(rule, nil, Window{})
		if err != nil {
			t.Fatalf("expand: %v", err)
		}

		if len(occurrences) != 5 {
			t.Fatalf("got %d occurrences, want 5", len(occurrences))
		}
		for i, occ := range occurrences {
			want := baseStart.AddDate(0, 0, i)
			if !occ.Start.Equal(want) {
				t.Errorf("occurrence %d start = %v, want %v", i, occ.Start, want)
			}
			if occ.End.Sub(occ.Start) != time.Hour {
				t.Errorf("occurrence %d duration = %v", i, occ.End.Sub(occ.Start))
			}
		}
	})

	t.Run("weekly rule steps seven days", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine()

		rule := Rule{
			RecurrentAppointmentID: "rec-1",
			Start:                  baseStart,
			End:                    baseEnd,
			Frequency:              FrequencyWeekly,
			RecursionEnd:           baseStart.AddDate(0, 0, 21),
		}

		occurrences, err := engine.Expand(rule, nil, Window{})
		if err != nil {
			t.Fatalf("expand: %v", err)
		}

		if len(occurrences) != 4 {
			t.Fatalf("got %d occurrences, want 4", len(occurrences))
		}
		if !occurrences[1].Start.Equal(baseStart.AddDate(0, 0, 7)) {
			t.Fatalf("second occurrence start = %v", occurrences[1].Start)
		}
	})

	t.Run("hourly rule steps one hour", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine()

		rule := Rule{
			RecurrentAppointmentID: "rec-1",
			Start:                  baseStart,
			End:                    baseStart.Add(30 * time.Minute),
			Frequency:              FrequencyHourly,
			RecursionEnd:           baseStart.Add(3 * time.Hour),
		}

		occurrences, err := engine.Expand(rule, nil, Window{})
		if err != nil {
			t.Fatalf("expand: %v", err)
		}
		if len(occurrences) != 4 {
			t.Fatalf("got %d occurrences, want 4", len(occurrences))
		}
	})

	t.Run("monthly rule keeps the wall-clock time", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine()

		rule := Rule{
			RecurrentAppointmentID: "rec-1",
			Start:                  baseStart,
			End:                    baseEnd,
			Frequency:              FrequencyMonthly,
			RecursionEnd:           baseStart.AddDate(0, 2, 0),
		}

		occurrences, err := engine.Expand(rule, nil, Window{})
		if err != nil {
			t.Fatalf("expand: %v", err)
		}
		if len(occurrences) != 3 {
			t.Fatalf("got %d occurrences, want 3", len(occurrences))
		}
		if !occurrences[2].Start.Equal(time.Date(2025, time.May, 3, 9, 0, 0, 0, time.UTC)) {
			t.Fatalf("third occurrence start = %v", occurrences[2].Start)
		}
	})

	t.Run("pause intervals suppress occurrences inclusively", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine()

		rule := Rule{
			RecurrentAppointmentID: "rec-1",
			Start:                  baseStart,
			End:                    baseEnd,
			Frequency:              FrequencyDaily,
			RecursionEnd:           baseStart.AddDate(0, 0, 6),
		}
		pauses := []PauseInterval{
			{Start: baseStart.AddDate(0, 0, 2), End: baseStart.AddDate(0, 0, 4)},
		}

		occurrences, err := engine.Expand(rule, pauses, Window{})
		if err != nil {
			t.Fatalf("expand: %v", err)
		}

		// Days 0,1,5,6 survive; 2,3,4 fall inside the pause.
		if len(occurrences) != 4 {
			t.Fatalf("got %d occurrences, want 4", len(occurrences))
		}
		if !occurrences[2].Start.Equal(baseStart.AddDate(0, 0, 5)) {
			t.Fatalf("third surviving occurrence start = %v", occurrences[2].Start)
		}
	})

	t.Run("window clips both ends", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine()

		rule := Rule{
			RecurrentAppointmentID: "rec-1",
			Start:                  baseStart,
			End:                    baseEnd,
			Frequency:              FrequencyDaily,
			RecursionEnd:           baseStart.AddDate(0, 0, 30),
		}
		window := Window{
			From: baseStart.AddDate(0, 0, 3),
			To:   baseStart.AddDate(0, 0, 5),
		}

		occurrences, err := engine.Expand(rule, nil, window)
		if err != nil {
			t.Fatalf("expand: %v", err)
		}
		if len(occurrences) != 3 {
			t.Fatalf("got %d occurrences, want 3", len(occurrences))
		}
		if !occurrences[0].Start.Equal(baseStart.AddDate(0, 0, 3)) {
			t.Fatalf("first occurrence start = %v", occurrences[0].Start)
		}
	})

	t.Run("rejects non-positive duration", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine()

		rule := Rule{
			Start:        baseStart,
			End:          baseStart,
			Frequency:    FrequencyDaily,
			RecursionEnd: baseStart.AddDate(0, 0, 1),
		}

		if _, err := engine.Expand(rule, nil, Window{}); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("expected ErrInvalidDuration, got %v", err)
		}
	})

	t.Run("rejects unknown frequency", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine()

		rule := Rule{
			Start:        baseStart,
			End:          baseEnd,
			Frequency:    Frequency("YEARLY"),
			RecursionEnd: baseStart.AddDate(0, 0, 1),
		}

		if _, err := engine.Expand(rule, nil, Window{}); !errors.Is(err, ErrInvalidFrequency) {
			t.Fatalf("expected ErrInvalidFrequency, got %v", err)
		}
	})

	t.Run("requires an end bound", func(t *testing.T) {
		t.Parallel()
		engine := NewEngine()

		rule := Rule{
			Start:     baseStart,
			End:       baseEnd,
			Frequency: FrequencyDaily,
		}

		if _, err := engine.Expand(rule, nil, Window{}); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("expected ErrInvalidWindow, got %v", err)
		}
	})
}

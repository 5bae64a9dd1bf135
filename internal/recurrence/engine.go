package recurrence

import (
	"errors"
	"time"
)

// Frequency represents supported recurrence intervals.
type Frequency string

const (
	FrequencyHourly  Frequency = "HOURLY"
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
)

// ErrInvalidFrequency indicates the recurrence frequency is not supported.
var ErrInvalidFrequency = errors.New("recurrence: invalid frequency")

// ErrInvalidDuration indicates the base appointment duration is invalid.
var ErrInvalidDuration = errors.New("recurrence: appointment duration must be positive")

// ErrInvalidWindow indicates the generation window is unbounded.
var ErrInvalidWindow = errors.New("recurrence: generation window requires an end bound")

// Rule describes one repeating appointment to expand.
type Rule struct {
	RecurrentAppointmentID string
	Start                  time.Time
	End                    time.Time
	Frequency              Frequency
	RecursionEnd           time.Time
}

// PauseInterval is a closed interval during which occurrences are
// suppressed.
type PauseInterval struct {
	Start time.Time
	End   time.Time
}

// Window optionally clips the expansion range. A zero From falls back to
// the rule's start; a zero To falls back to the rule's recursion end.
type Window struct {
	From time.Time
	To   time.Time
}

// Occurrence is one generated instance of a recurrence rule.
type Occurrence struct {
	RecurrentAppointmentID string
	Start                  time.Time
	End                    time.Time
}

// Engine expands recurrence rules into occurrences.
type Engine struct{}

// NewEngine constructs an occurrence expansion engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Expand produces the rule's occurrences in chronological order. An
// occurrence is emitted when its start lies within the window and is not
// inside any pause interval (pause bounds are inclusive). Expansion always
// stops at the rule's recursion end.
func (e *Engine) Expand(rule Rule, pauses []PauseInterval, window Window) ([]Occurrence, error) {
	if !rule.End.After(rule.Start) {
		return nil, ErrInvalidDuration
	}
	if !isSupported(rule.Frequency) {
		return nil, ErrInvalidFrequency
	}

	upper := rule.RecursionEnd
	if !window.To.IsZero() && (upper.IsZero() || window.To.Before(upper)) {
		upper = window.To
	}
	if upper.IsZero() {
		return nil, ErrInvalidWindow
	}

	lower := rule.Start
	if !window.From.IsZero() && window.From.After(lower) {
		lower = window.From
	}

	duration := rule.End.Sub(rule.Start)
	occurrences := make([]Occurrence, 0)

	for current := rule.Start; !current.After(upper); current = step(current, rule.Frequency) {
		if current.Before(lower) {
			continue
		}
		if inPause(current, pauses) {
			continue
		}
		occurrences = append(occurrences, Occurrence{
			RecurrentAppointmentID: rule.RecurrentAppointmentID,
			Start:                  current,
			End:                    current.Add(duration),
		})
	}
	return occurrences, nil
}

func isSupported(freq Frequency) bool {
	switch freq {
	case FrequencyHourly, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// step advances to the next occurrence start. Daily and longer frequencies
// use calendar arithmetic so expansion crosses DST transitions at the same
// wall-clock time.
func step(current time.Time, freq Frequency) time.Time {
	switch freq {
	case FrequencyHourly:
		return current.Add(time.Hour)
	case FrequencyDaily:
		return current.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return current.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return current.AddDate(0, 1, 0)
	}
	return current.AddDate(0, 0, 1)
}

func inPause(date time.Time, pauses []PauseInterval) bool {
	for _, pause := range pauses {
		if !date.Before(pause.Start) && !date.After(pause.End) {
			return true
		}
	}
	return false
}

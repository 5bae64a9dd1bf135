package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/team-calendar/internal/persistence"
	"github.com/example/team-calendar/internal/recurrence"
)

// PauseService is the recurrence exception engine. A pause suppresses
// occurrences of a recurrent appointment over a closed interval; stored
// pauses for a recurrence are kept disjoint by merging every overlapping
// sibling into the incoming interval on creation.
type PauseService struct {
	pauses       persistence.PauseRepository
	appointments persistence.AppointmentRepository
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewPauseService wires dependencies for pause operations.
func NewPauseService(pauses persistence.PauseRepository, appointments persistence.AppointmentRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *PauseService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &PauseService{
		pauses:       pauses,
		appointments: appointments,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *PauseService) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "PauseService", operation, attrs...)
}

// CreatePause inserts a pause interval, absorbing every stored pause it
// overlaps. Existing pauses are scanned in storage-return order and the
// candidate interval widens cumulatively, so a sibling that only overlaps
// the already-widened interval is still absorbed within the same pass. The
// delete-and-insert is handed to the repository as one replacement so it can
// run inside a single transaction.
func (s *PauseService) CreatePause(ctx context.Context, recurrentAppointmentID string, start, end time.Time) (Pause, error) {
	if s == nil {
		return Pause{}, fmt.Errorf("PauseService is nil")
	}
	if vErr := requireSafeID("recurrent_appointment_id", recurrentAppointmentID); vErr != nil {
		return Pause{}, vErr
	}
	if vErr := validatePauseBounds(start, end); vErr != nil {
		return Pause{}, vErr
	}

	logger := s.log(ctx, "CreatePause", "recurrent_appointment_id", recurrentAppointmentID)

	if _, err := s.appointments.GetRecurrentAppointment(ctx, recurrentAppointmentID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Pause{}, ErrNotFound
		}
		return Pause{}, err
	}

	existing, err := s.pauses.ListPausesByRecurrentAppointment(ctx, recurrentAppointmentID)
	if err != nil {
		return Pause{}, err
	}

	mergedStart, mergedEnd := start, end
	var absorbed []string
	for _, pause := range existing {
		if !intervalsOverlap(mergedStart, mergedEnd, pause.Start, pause.End) {
			continue
		}
		if pause.Start.Before(mergedStart) {
			mergedStart = pause.Start
		}
		if pause.End.After(mergedEnd) {
			mergedEnd = pause.End
		}
		absorbed = append(absorbed, pause.ID)
	}

	record := persistence.Pause{
		ID:                     s.idGenerator(),
		RecurrentAppointmentID: recurrentAppointmentID,
		Start:                  mergedStart,
		End:                    mergedEnd,
		CreatedAt:              s.now(),
	}

	if err := s.pauses.ReplacePauses(ctx, absorbed, record); err != nil {
		logger.ErrorContext(ctx, "pause creation failed", "error", err, "error_kind", ErrorKind(err))
		return Pause{}, ErrStorageFailed
	}

	logger.With("pause_id", record.ID, "absorbed", len(absorbed)).InfoContext(ctx, "pause created")
	return toPause(record), nil
}

// UpdatePause rewrites one or both bounds in place. The interval is not
// re-merged against sibling pauses; overlaps introduced here persist, which
// mirrors the behaviour of the original system.
func (s *PauseService) UpdatePause(ctx context.Context, pauseID string, patch PausePatch) (Pause, error) {
	if s == nil {
		return Pause{}, fmt.Errorf("PauseService is nil")
	}
	if vErr := requireSafeID("pause_id", pauseID); vErr != nil {
		return Pause{}, vErr
	}

	logger := s.log(ctx, "UpdatePause", "pause_id", pauseID)

	existing, err := s.pauses.GetPause(ctx, pauseID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Pause{}, ErrNotFound
		}
		return Pause{}, err
	}

	updated := existing
	if patch.Start != nil {
		if patch.Start.IsZero() {
			return Pause{}, invalidField("start", "start date is invalid")
		}
		updated.Start = *patch.Start
	}
	if patch.End != nil {
		if patch.End.IsZero() {
			return Pause{}, invalidField("end", "end date is invalid")
		}
		updated.End = *patch.End
	}
	if patch.Start != nil && patch.End != nil {
		if vErr := validatePauseBounds(updated.Start, updated.End); vErr != nil {
			return Pause{}, vErr
		}
	}

	if err := s.pauses.UpdatePause(ctx, updated); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Pause{}, ErrNotFound
		}
		logger.ErrorContext(ctx, "pause update failed", "error", err, "error_kind", ErrorKind(err))
		return Pause{}, ErrStorageFailed
	}

	logger.InfoContext(ctx, "pause updated")
	return toPause(updated), nil
}

// DeletePause removes a pause interval.
func (s *PauseService) DeletePause(ctx context.Context, pauseID string) error {
	if s == nil {
		return fmt.Errorf("PauseService is nil")
	}
	if vErr := requireSafeID("pause_id", pauseID); vErr != nil {
		return vErr
	}

	logger := s.log(ctx, "DeletePause", "pause_id", pauseID)

	if err := s.pauses.DeletePause(ctx, pauseID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.ErrorContext(ctx, "pause deletion failed", "error", err, "error_kind", ErrorKind(err))
		return ErrStorageFailed
	}

	logger.InfoContext(ctx, "pause deleted")
	return nil
}

// GetPausesByRecurrentAppointmentID lists the pauses for a recurrence.
func (s *PauseService) GetPausesByRecurrentAppointmentID(ctx context.Context, recurrentAppointmentID string) ([]Pause, error) {
	if s == nil {
		return nil, fmt.Errorf("PauseService is nil")
	}
	if vErr := requireSafeID("recurrent_appointment_id", recurrentAppointmentID); vErr != nil {
		return nil, vErr
	}

	records, err := s.pauses.ListPausesByRecurrentAppointment(ctx, recurrentAppointmentID)
	if err != nil {
		return nil, err
	}

	pauses := make([]Pause, 0, len(records))
	for _, record := range records {
		pauses = append(pauses, toPause(record))
	}
	return pauses, nil
}

// IsDateInPause reports whether date falls within any pause for the
// recurrence, inclusive at both bounds. Callers use it to filter generated
// occurrences before display.
func (s *PauseService) IsDateInPause(ctx context.Context, recurrentAppointmentID string, date time.Time) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("PauseService is nil")
	}
	if vErr := requireSafeID("recurrent_appointment_id", recurrentAppointmentID); vErr != nil {
		return false, vErr
	}
	if date.IsZero() {
		return false, invalidField("date", "date is invalid")
	}

	records, err := s.pauses.ListPausesByRecurrentAppointment(ctx, recurrentAppointmentID)
	if err != nil {
		return false, err
	}

	for _, pause := range records {
		if !date.Before(pause.Start) && !date.After(pause.End) {
			return true, nil
		}
	}
	return false, nil
}

// ExpandOccurrences generates the concrete occurrences of a recurrent
// appointment whose start falls inside [from, to], dropping any occurrence
// that lands in a pause. Zero window bounds fall back to the recurrence's
// own range.
func (s *PauseService) ExpandOccurrences(ctx context.Context, recurrentAppointmentID string, from, to time.Time) ([]Occurrence, error) {
	if s == nil {
		return nil, fmt.Errorf("PauseService is nil")
	}
	if vErr := requireSafeID("recurrent_appointment_id", recurrentAppointmentID); vErr != nil {
		return nil, vErr
	}

	logger := s.log(ctx, "ExpandOccurrences", "recurrent_appointment_id", recurrentAppointmentID)

	record, err := s.appointments.GetRecurrentAppointment(ctx, recurrentAppointmentID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotFound
		}
		logger.ErrorContext(ctx, "recurrent appointment lookup failed", "error", err, "error_kind", ErrorKind(err))
		return nil, ErrStorageFailed
	}

	stored, err := s.pauses.ListPausesByRecurrentAppointment(ctx, recurrentAppointmentID)
	if err != nil {
		logger.ErrorContext(ctx, "pause lookup failed", "error", err, "error_kind", ErrorKind(err))
		return nil, ErrStorageFailed
	}

	intervals := make([]recurrence.PauseInterval, 0, len(stored))
	for _, pause := range stored {
		intervals = append(intervals, recurrence.PauseInterval{Start: pause.Start, End: pause.End})
	}

	expanded, err := recurrence.NewEngine().Expand(recurrence.Rule{
		RecurrentAppointmentID: record.ID,
		Start:                  record.Start,
		End:                    record.End,
		Frequency:              recurrence.Frequency(record.RecursionRule),
		RecursionEnd:           record.RecursionEnd,
	}, intervals, recurrence.Window{From: from, To: to})
	if err != nil {
		return nil, invalidField("window", err.Error())
	}

	occurrences := make([]Occurrence, 0, len(expanded))
	for _, occ := range expanded {
		occurrences = append(occurrences, Occurrence{
			RecurrentAppointmentID: occ.RecurrentAppointmentID,
			Start:                  occ.Start,
			End:                    occ.End,
		})
	}
	logger.With("occurrences", len(occurrences)).DebugContext(ctx, "recurrence expanded")
	return occurrences, nil
}

// validatePauseBounds requires real dates with end strictly after start;
// equal bounds are rejected, unlike appointment dates which are swapped.
func validatePauseBounds(start, end time.Time) *ValidationError {
	vErr := &ValidationError{}
	if start.IsZero() {
		vErr.add("start", "start date is required")
	}
	if end.IsZero() {
		vErr.add("end", "end date is required")
	}
	if vErr.HasErrors() {
		return vErr
	}
	if !end.After(start) {
		vErr.add("end", "end date must be after start date")
		return vErr
	}
	return nil
}

// intervalsOverlap implements the three-way overlap test: either endpoint
// of the candidate lies within the existing interval, or the existing
// interval lies within the candidate.
func intervalsOverlap(candidateStart, candidateEnd, otherStart, otherEnd time.Time) bool {
	within := func(t, lo, hi time.Time) bool {
		return !t.Before(lo) && !t.After(hi)
	}
	if within(otherStart, candidateStart, candidateEnd) || within(otherEnd, candidateStart, candidateEnd) {
		return true
	}
	return within(candidateStart, otherStart, otherEnd) && within(candidateEnd, otherStart, otherEnd)
}

func toPause(record persistence.Pause) Pause {
	return Pause{
		ID:                     record.ID,
		RecurrentAppointmentID: record.RecurrentAppointmentID,
		Start:                  record.Start,
		End:                    record.End,
		CreatedAt:              record.CreatedAt,
	}
}

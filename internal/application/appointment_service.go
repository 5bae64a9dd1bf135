package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/team-calendar/internal/persistence"
	"github.com/example/team-calendar/internal/sanitize"
)

// AppointmentService orchestrates single and recurring appointment CRUD,
// date normalization and tag-set synchronization.
type AppointmentService struct {
	appointments persistence.AppointmentRepository
	calendars    persistence.CalendarRepository
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewAppointmentService wires dependencies for appointment operations.
func NewAppointmentService(appointments persistence.AppointmentRepository, calendars persistence.CalendarRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AppointmentService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AppointmentService{
		appointments: appointments,
		calendars:    calendars,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *AppointmentService) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AppointmentService", operation, attrs...)
}

// CreateAppointment validates dates and ownership, normalizes an inverted
// date pair by swapping, persists the appointment and synchronizes its tags.
func (s *AppointmentService) CreateAppointment(ctx context.Context, ownerID, calendarID, title, description string, start, end time.Time, tags []string) (Appointment, error) {
	if s == nil {
		return Appointment{}, fmt.Errorf("AppointmentService is nil")
	}
	if vErr := requireSafeID("owner_id", ownerID); vErr != nil {
		return Appointment{}, vErr
	}
	if vErr := requireSafeID("calendar_id", calendarID); vErr != nil {
		return Appointment{}, vErr
	}
	if vErr := validateDates(start, end); vErr != nil {
		return Appointment{}, vErr
	}

	logger := s.log(ctx, "CreateAppointment", "owner_id", ownerID, "calendar_id", calendarID)

	if err := s.requireOwnedCalendar(ctx, ownerID, calendarID); err != nil {
		return Appointment{}, err
	}

	start, end = orderDates(start, end)
	now := s.now()
	record := persistence.Appointment{
		ID:          s.idGenerator(),
		CalendarID:  calendarID,
		OwnerID:     ownerID,
		Title:       sanitize.Encode(title),
		Description: sanitize.Encode(description),
		Start:       start,
		End:         end,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.appointments.CreateAppointment(ctx, record); err != nil {
		if errors.Is(err, persistence.ErrForeignKeyViolation) {
			return Appointment{}, ErrNotFound
		}
		logger.ErrorContext(ctx, "appointment creation failed", "error", err, "error_kind", ErrorKind(err))
		return Appointment{}, ErrStorageFailed
	}

	if err := s.syncTags(ctx, record.ID, tags); err != nil {
		return Appointment{}, err
	}

	logger.With("appointment_id", record.ID).InfoContext(ctx, "appointment created")
	return s.decorateAppointment(ctx, record)
}

// CreateRecurrentAppointment behaves like CreateAppointment with an
// additional recursion-rule check.
func (s *AppointmentService) CreateRecurrentAppointment(ctx context.Context, ownerID, calendarID, title, description string, start, end time.Time, rule RecursionRule, recursionEnd time.Time, tags []string) (RecurrentAppointment, error) {
	if s == nil {
		return RecurrentAppointment{}, fmt.Errorf("AppointmentService is nil")
	}
	if vErr := requireSafeID("owner_id", ownerID); vErr != nil {
		return RecurrentAppointment{}, vErr
	}
	if vErr := requireSafeID("calendar_id", calendarID); vErr != nil {
		return RecurrentAppointment{}, vErr
	}
	if vErr := validateDates(start, end); vErr != nil {
		return RecurrentAppointment{}, vErr
	}
	if !rule.Valid() {
		return RecurrentAppointment{}, invalidField("recursion_rule", "recursion rule must be HOURLY, DAILY, WEEKLY or MONTHLY")
	}
	if recursionEnd.IsZero() {
		return RecurrentAppointment{}, invalidField("recursion_end", "recursion end date is required")
	}

	logger := s.log(ctx, "CreateRecurrentAppointment", "owner_id", ownerID, "calendar_id", calendarID)

	if err := s.requireOwnedCalendar(ctx, ownerID, calendarID); err != nil {
		return RecurrentAppointment{}, err
	}

	start, end = orderDates(start, end)
	now := s.now()
	record := persistence.RecurrentAppointment{
		ID:            s.idGenerator(),
		CalendarID:    calendarID,
		OwnerID:       ownerID,
		Title:         sanitize.Encode(title),
		Description:   sanitize.Encode(description),
		Start:         start,
		End:           end,
		RecursionRule: string(rule),
		RecursionEnd:  recursionEnd,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.appointments.CreateRecurrentAppointment(ctx, record); err != nil {
		if errors.Is(err, persistence.ErrForeignKeyViolation) {
			return RecurrentAppointment{}, ErrNotFound
		}
		logger.ErrorContext(ctx, "recurrent appointment creation failed", "error", err, "error_kind", ErrorKind(err))
		return RecurrentAppointment{}, ErrStorageFailed
	}

	if err := s.syncTags(ctx, record.ID, tags); err != nil {
		return RecurrentAppointment{}, err
	}

	logger.With("appointment_id", record.ID).InfoContext(ctx, "recurrent appointment created")
	return s.decorateRecurrentAppointment(ctx, record)
}

// GetAppointmentByID resolves an appointment with text decoded and the
// current tag-id list attached.
func (s *AppointmentService) GetAppointmentByID(ctx context.Context, id string) (Appointment, error) {
	if s == nil {
		return Appointment{}, fmt.Errorf("AppointmentService is nil")
	}
	if vErr := requireSafeID("id", id); vErr != nil {
		return Appointment{}, vErr
	}

	record, err := s.appointments.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Appointment{}, ErrNotFound
		}
		return Appointment{}, err
	}
	return s.decorateAppointment(ctx, record)
}

// GetAppointmentsByCalendarID lists the single appointments on a calendar.
func (s *AppointmentService) GetAppointmentsByCalendarID(ctx context.Context, calendarID string) ([]Appointment, error) {
	if s == nil {
		return nil, fmt.Errorf("AppointmentService is nil")
	}
	if vErr := requireSafeID("calendar_id", calendarID); vErr != nil {
		return nil, vErr
	}

	records, err := s.appointments.ListAppointmentsByCalendar(ctx, calendarID)
	if err != nil {
		return nil, err
	}

	appointments := make([]Appointment, 0, len(records))
	for _, record := range records {
		appointment, err := s.decorateAppointment(ctx, record)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}
	return appointments, nil
}

// GetRecurrentAppointmentsByCalendarID lists the recurring appointments on
// a calendar.
func (s *AppointmentService) GetRecurrentAppointmentsByCalendarID(ctx context.Context, calendarID string) ([]RecurrentAppointment, error) {
	if s == nil {
		return nil, fmt.Errorf("AppointmentService is nil")
	}
	if vErr := requireSafeID("calendar_id", calendarID); vErr != nil {
		return nil, vErr
	}

	records, err := s.appointments.ListRecurrentAppointmentsByCalendar(ctx, calendarID)
	if err != nil {
		return nil, err
	}

	appointments := make([]RecurrentAppointment, 0, len(records))
	for _, record := range records {
		appointment, err := s.decorateRecurrentAppointment(ctx, record)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}
	return appointments, nil
}

// GetAllAppointmentsByCalendarID aggregates both appointment kinds, for
// export and ICS use.
func (s *AppointmentService) GetAllAppointmentsByCalendarID(ctx context.Context, calendarID string) ([]Appointment, []RecurrentAppointment, error) {
	single, err := s.GetAppointmentsByCalendarID(ctx, calendarID)
	if err != nil {
		return nil, nil, err
	}
	recurring, err := s.GetRecurrentAppointmentsByCalendarID(ctx, calendarID)
	if err != nil {
		return nil, nil, err
	}
	return single, recurring, nil
}

// UpdateAppointment applies the allow-listed patch fields after the
// ownership gate. A new calendar id must reference an existing calendar;
// the target calendar's ownership is not re-verified, matching the observed
// behaviour of the original system.
func (s *AppointmentService) UpdateAppointment(ctx context.Context, ownerID, appointmentID string, patch AppointmentPatch) (Appointment, error) {
	if s == nil {
		return Appointment{}, fmt.Errorf("AppointmentService is nil")
	}
	if vErr := requireSafeID("owner_id", ownerID); vErr != nil {
		return Appointment{}, vErr
	}
	if vErr := requireSafeID("appointment_id", appointmentID); vErr != nil {
		return Appointment{}, vErr
	}

	logger := s.log(ctx, "UpdateAppointment", "owner_id", ownerID, "appointment_id", appointmentID)

	existing, err := s.appointments.GetAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Appointment{}, ErrNotFound
		}
		return Appointment{}, err
	}

	if err := checkAppointmentPatchGates(existing.OwnerID, ownerID, appointmentID, patch); err != nil {
		return Appointment{}, err
	}

	updated := existing
	if err := s.applyAppointmentPatch(ctx, &updated.CalendarID, &updated.Title, &updated.Description, &updated.Start, &updated.End, patch); err != nil {
		return Appointment{}, err
	}
	updated.UpdatedAt = s.now()

	if err := s.appointments.UpdateAppointment(ctx, updated); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Appointment{}, ErrNotFound
		}
		logger.ErrorContext(ctx, "appointment update failed", "error", err, "error_kind", ErrorKind(err))
		return Appointment{}, ErrStorageFailed
	}

	if patch.HasTags {
		if err := s.syncTags(ctx, appointmentID, patch.Tags); err != nil {
			return Appointment{}, err
		}
	}

	logger.InfoContext(ctx, "appointment updated")
	return s.decorateAppointment(ctx, updated)
}

// UpdateRecurrentAppointment mirrors UpdateAppointment for the recurring
// kind, additionally honouring recursion rule and end-date changes.
func (s *AppointmentService) UpdateRecurrentAppointment(ctx context.Context, ownerID, appointmentID string, patch RecurrentAppointmentPatch) (RecurrentAppointment, error) {
	if s == nil {
		return RecurrentAppointment{}, fmt.Errorf("AppointmentService is nil")
	}
	if vErr := requireSafeID("owner_id", ownerID); vErr != nil {
		return RecurrentAppointment{}, vErr
	}
	if vErr := requireSafeID("appointment_id", appointmentID); vErr != nil {
		return RecurrentAppointment{}, vErr
	}
	if patch.RecursionRule != nil && !patch.RecursionRule.Valid() {
		return RecurrentAppointment{}, invalidField("recursion_rule", "recursion rule must be HOURLY, DAILY, WEEKLY or MONTHLY")
	}

	logger := s.log(ctx, "UpdateRecurrentAppointment", "owner_id", ownerID, "appointment_id", appointmentID)

	existing, err := s.appointments.GetRecurrentAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return RecurrentAppointment{}, ErrNotFound
		}
		return RecurrentAppointment{}, err
	}

	if err := checkAppointmentPatchGates(existing.OwnerID, ownerID, appointmentID, patch.AppointmentPatch); err != nil {
		return RecurrentAppointment{}, err
	}

	updated := existing
	if err := s.applyAppointmentPatch(ctx, &updated.CalendarID, &updated.Title, &updated.Description, &updated.Start, &updated.End, patch.AppointmentPatch); err != nil {
		return RecurrentAppointment{}, err
	}
	if patch.RecursionRule != nil {
		updated.RecursionRule = string(*patch.RecursionRule)
	}
	if patch.RecursionEnd != nil {
		if patch.RecursionEnd.IsZero() {
			return RecurrentAppointment{}, invalidField("recursion_end", "recursion end date is invalid")
		}
		updated.RecursionEnd = *patch.RecursionEnd
	}
	updated.UpdatedAt = s.now()

	if err := s.appointments.UpdateRecurrentAppointment(ctx, updated); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return RecurrentAppointment{}, ErrNotFound
		}
		logger.ErrorContext(ctx, "recurrent appointment update failed", "error", err, "error_kind", ErrorKind(err))
		return RecurrentAppointment{}, ErrStorageFailed
	}

	if patch.HasTags {
		if err := s.syncTags(ctx, appointmentID, patch.Tags); err != nil {
			return RecurrentAppointment{}, err
		}
	}

	logger.InfoContext(ctx, "recurrent appointment updated")
	return s.decorateRecurrentAppointment(ctx, updated)
}

// DeleteAppointment removes an appointment after the ownership gate,
// clearing tag associations first.
func (s *AppointmentService) DeleteAppointment(ctx context.Context, ownerID, appointmentID string) error {
	if s == nil {
		return fmt.Errorf("AppointmentService is nil")
	}
	if vErr := requireSafeID("owner_id", ownerID); vErr != nil {
		return vErr
	}
	if vErr := requireSafeID("appointment_id", appointmentID); vErr != nil {
		return vErr
	}

	logger := s.log(ctx, "DeleteAppointment", "owner_id", ownerID, "appointment_id", appointmentID)

	existing, err := s.appointments.GetAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if existing.OwnerID != ownerID {
		return ErrForbidden
	}

	if err := s.appointments.ClearTagsForAppointment(ctx, appointmentID); err != nil {
		return err
	}
	if err := s.appointments.DeleteAppointment(ctx, appointmentID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.ErrorContext(ctx, "appointment deletion failed", "error", err, "error_kind", ErrorKind(err))
		return ErrStorageFailed
	}

	logger.InfoContext(ctx, "appointment deleted")
	return nil
}

// DeleteRecurrentAppointment mirrors DeleteAppointment for the recurring
// kind.
func (s *AppointmentService) DeleteRecurrentAppointment(ctx context.Context, ownerID, appointmentID string) error {
	if s == nil {
		return fmt.Errorf("AppointmentService is nil")
	}
	if vErr := requireSafeID("owner_id", ownerID); vErr != nil {
		return vErr
	}
	if vErr := requireSafeID("appointment_id", appointmentID); vErr != nil {
		return vErr
	}

	logger := s.log(ctx, "DeleteRecurrentAppointment", "owner_id", ownerID, "appointment_id", appointmentID)

	existing, err := s.appointments.GetRecurrentAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if existing.OwnerID != ownerID {
		return ErrForbidden
	}

	if err := s.appointments.ClearTagsForAppointment(ctx, appointmentID); err != nil {
		return err
	}
	if err := s.appointments.DeleteRecurrentAppointment(ctx, appointmentID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.ErrorContext(ctx, "recurrent appointment deletion failed", "error", err, "error_kind", ErrorKind(err))
		return ErrStorageFailed
	}

	logger.InfoContext(ctx, "recurrent appointment deleted")
	return nil
}

// syncTags reconciles the stored tag associations with the requested set:
// requested ids are normalized (empties dropped, duplicates removed), then
// diffed against the current links. Additions and removals have no ordering
// dependency on each other and run concurrently.
func (s *AppointmentService) syncTags(ctx context.Context, appointmentID string, requested []string) error {
	desired := normalizeTagIDs(requested)

	current, err := s.appointments.ListTagIDsForAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}

	currentSet := make(map[string]struct{}, len(current))
	for _, id := range current {
		currentSet[id] = struct{}{}
	}
	desiredSet := make(map[string]struct{}, len(desired))
	for _, id := range desired {
		desiredSet[id] = struct{}{}
	}

	var toAdd, toRemove []string
	for _, id := range desired {
		if _, ok := currentSet[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	for _, id := range current {
		if _, ok := desiredSet[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(toAdd)+len(toRemove))
	for _, id := range toAdd {
		wg.Add(1)
		go func(tagID string) {
			defer wg.Done()
			if err := s.appointments.AddTagToAppointment(ctx, appointmentID, tagID); err != nil {
				errs <- err
			}
		}(id)
	}
	for _, id := range toRemove {
		wg.Add(1)
		go func(tagID string) {
			defer wg.Done()
			if err := s.appointments.RemoveTagFromAppointment(ctx, appointmentID, tagID); err != nil {
				errs <- err
			}
		}(id)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *AppointmentService) requireOwnedCalendar(ctx context.Context, ownerID, calendarID string) error {
	calendar, err := s.calendars.GetCalendar(ctx, calendarID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if calendar.OwnerID != ownerID {
		return ErrForbidden
	}
	return nil
}

// applyAppointmentPatch copies the allow-listed fields onto the target
// appointment, re-encoding text, verifying a changed calendar exists, and
// re-normalizing the resulting date pair.
func (s *AppointmentService) applyAppointmentPatch(ctx context.Context, calendarID, title, description *string, start, end *time.Time, patch AppointmentPatch) error {
	if patch.CalendarID != nil {
		if vErr := requireSafeID("calendar_id", *patch.CalendarID); vErr != nil {
			return vErr
		}
		if _, err := s.calendars.GetCalendar(ctx, *patch.CalendarID); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		*calendarID = *patch.CalendarID
	}
	if patch.Title != nil {
		*title = sanitize.Encode(*patch.Title)
	}
	if patch.Description != nil {
		*description = sanitize.Encode(*patch.Description)
	}
	if patch.Start != nil {
		if patch.Start.IsZero() {
			return invalidField("start", "start date is invalid")
		}
		*start = *patch.Start
	}
	if patch.End != nil {
		if patch.End.IsZero() {
			return invalidField("end", "end date is invalid")
		}
		*end = *patch.End
	}
	*start, *end = orderDates(*start, *end)
	return nil
}

func checkAppointmentPatchGates(storedOwnerID, callerID, appointmentID string, patch AppointmentPatch) error {
	if storedOwnerID != callerID {
		return ErrForbidden
	}
	if patch.ID != "" && patch.ID != appointmentID {
		return ErrForbidden
	}
	if patch.OwnerID != "" && patch.OwnerID != storedOwnerID {
		return ErrForbidden
	}
	return nil
}

func (s *AppointmentService) decorateAppointment(ctx context.Context, record persistence.Appointment) (Appointment, error) {
	tagIDs, err := s.appointments.ListTagIDsForAppointment(ctx, record.ID)
	if err != nil {
		return Appointment{}, err
	}
	return Appointment{
		ID:          record.ID,
		CalendarID:  record.CalendarID,
		OwnerID:     record.OwnerID,
		Title:       sanitize.Decode(record.Title),
		Description: sanitize.Decode(record.Description),
		Start:       record.Start,
		End:         record.End,
		TagIDs:      tagIDs,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}, nil
}

func (s *AppointmentService) decorateRecurrentAppointment(ctx context.Context, record persistence.RecurrentAppointment) (RecurrentAppointment, error) {
	tagIDs, err := s.appointments.ListTagIDsForAppointment(ctx, record.ID)
	if err != nil {
		return RecurrentAppointment{}, err
	}
	return RecurrentAppointment{
		ID:            record.ID,
		CalendarID:    record.CalendarID,
		OwnerID:       record.OwnerID,
		Title:         sanitize.Decode(record.Title),
		Description:   sanitize.Decode(record.Description),
		Start:         record.Start,
		End:           record.End,
		RecursionRule: RecursionRule(record.RecursionRule),
		RecursionEnd:  record.RecursionEnd,
		TagIDs:        tagIDs,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}, nil
}

// validateDates rejects zero time values; ordering is normalized by swap,
// never rejected.
func validateDates(start, end time.Time) *ValidationError {
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
	return nil
}

// orderDates swaps an inverted pair silently.
func orderDates(start, end time.Time) (time.Time, time.Time) {
	if end.Before(start) {
		return end, start
	}
	return start, end
}

func normalizeTagIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

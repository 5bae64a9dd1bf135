package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/team-calendar/internal/persistence"
	"github.com/example/team-calendar/internal/sanitize"
)

// CalendarService orchestrates calendar CRUD with ownership checks and the
// encode-on-write/decode-on-read text discipline.
type CalendarService struct {
	calendars   persistence.CalendarRepository
	users       persistence.UserRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCalendarService wires dependencies for calendar operations.
func NewCalendarService(calendars persistence.CalendarRepository, users persistence.UserRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CalendarService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CalendarService{
		calendars:   calendars,
		users:       users,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *CalendarService) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CalendarService", operation, attrs...)
}

// CreateCalendar persists a calendar for an existing owner.
func (s *CalendarService) CreateCalendar(ctx context.Context, ownerID, name, description, color string) (Calendar, error) {
	if s == nil {
		return Calendar{}, fmt.Errorf("CalendarService is nil")
	}
	if vErr := requireSafeID("owner_id", ownerID); vErr != nil {
		return Calendar{}, vErr
	}

	logger := s.log(ctx, "CreateCalendar", "owner_id", ownerID)

	if _, err := s.users.GetUser(ctx, ownerID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Calendar{}, ErrNotFound
		}
		return Calendar{}, err
	}

	now := s.now()
	record := persistence.Calendar{
		ID:          s.idGenerator(),
		OwnerID:     ownerID,
		Name:        sanitize.Encode(name),
		Description: sanitize.Encode(description),
		Color:       sanitize.Encode(color),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.calendars.CreateCalendar(ctx, record); err != nil {
		if errors.Is(err, persistence.ErrForeignKeyViolation) {
			return Calendar{}, ErrNotFound
		}
		logger.ErrorContext(ctx, "calendar creation failed", "error", err, "error_kind", ErrorKind(err))
		return Calendar{}, ErrStorageFailed
	}

	logger.With("calendar_id", record.ID).InfoContext(ctx, "calendar created")
	return decodeCalendar(record), nil
}

// GetCalendarByID resolves a calendar with text fields decoded.
func (s *CalendarService) GetCalendarByID(ctx context.Context, id string) (Calendar, error) {
	if s == nil {
		return Calendar{}, fmt.Errorf("CalendarService is nil")
	}
	if vErr := requireSafeID("id", id); vErr != nil {
		return Calendar{}, vErr
	}

	record, err := s.calendars.GetCalendar(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Calendar{}, ErrNotFound
		}
		return Calendar{}, err
	}
	return decodeCalendar(record), nil
}

// GetCalendarsByOwnerID lists the calendars a user owns.
func (s *CalendarService) GetCalendarsByOwnerID(ctx context.Context, ownerID string) ([]Calendar, error) {
	if s == nil {
		return nil, fmt.Errorf("CalendarService is nil")
	}
	if vErr := requireSafeID("owner_id", ownerID); vErr != nil {
		return nil, vErr
	}

	records, err := s.calendars.ListCalendarsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	calendars := make([]Calendar, 0, len(records))
	for _, record := range records {
		calendars = append(calendars, decodeCalendar(record))
	}
	return calendars, nil
}

// UpdateCalendar applies the allow-listed patch fields (name, description,
// color) after the ownership gate. Attempts to rewrite id or owner are
// rejected with ErrForbidden.
func (s *CalendarService) UpdateCalendar(ctx context.Context, ownerID, calendarID string, patch CalendarPatch) (Calendar, error) {
	if s == nil {
		return Calendar{}, fmt.Errorf("CalendarService is nil")
	}
	if vErr := requireSafeID("owner_id", ownerID); vErr != nil {
		return Calendar{}, vErr
	}
	if vErr := requireSafeID("calendar_id", calendarID); vErr != nil {
		return Calendar{}, vErr
	}

	logger := s.log(ctx, "UpdateCalendar", "owner_id", ownerID, "calendar_id", calendarID)

	existing, err := s.calendars.GetCalendar(ctx, calendarID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Calendar{}, ErrNotFound
		}
		return Calendar{}, err
	}

	if existing.OwnerID != ownerID {
		return Calendar{}, ErrForbidden
	}
	if patch.ID != "" && patch.ID != calendarID {
		return Calendar{}, ErrForbidden
	}
	if patch.OwnerID != "" && patch.OwnerID != existing.OwnerID {
		return Calendar{}, ErrForbidden
	}

	updated := existing
	if patch.Name != nil {
		updated.Name = sanitize.Encode(*patch.Name)
	}
	if patch.Description != nil {
		updated.Description = sanitize.Encode(*patch.Description)
	}
	if patch.Color != nil {
		updated.Color = sanitize.Encode(*patch.Color)
	}
	updated.UpdatedAt = s.now()

	if err := s.calendars.UpdateCalendar(ctx, updated); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Calendar{}, ErrNotFound
		}
		logger.ErrorContext(ctx, "calendar update failed", "error", err, "error_kind", ErrorKind(err))
		return Calendar{}, ErrStorageFailed
	}

	logger.InfoContext(ctx, "calendar updated")
	return decodeCalendar(updated), nil
}

// DeleteCalendar removes a calendar after the ownership gate. Appointments
// on the calendar are removed by the storage cascade.
func (s *CalendarService) DeleteCalendar(ctx context.Context, ownerID, calendarID string) error {
	if s == nil {
		return fmt.Errorf("CalendarService is nil")
	}
	if vErr := requireSafeID("owner_id", ownerID); vErr != nil {
		return vErr
	}
	if vErr := requireSafeID("calendar_id", calendarID); vErr != nil {
		return vErr
	}

	logger := s.log(ctx, "DeleteCalendar", "owner_id", ownerID, "calendar_id", calendarID)

	existing, err := s.calendars.GetCalendar(ctx, calendarID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if existing.OwnerID != ownerID {
		return ErrForbidden
	}

	if err := s.calendars.DeleteCalendar(ctx, calendarID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.ErrorContext(ctx, "calendar deletion failed", "error", err, "error_kind", ErrorKind(err))
		return ErrStorageFailed
	}

	logger.InfoContext(ctx, "calendar deleted")
	return nil
}

func decodeCalendar(record persistence.Calendar) Calendar {
	return Calendar{
		ID:          record.ID,
		OwnerID:     record.OwnerID,
		Name:        sanitize.Decode(record.Name),
		Description: sanitize.Decode(record.Description),
		Color:       sanitize.Decode(record.Color),
		ImportURL:   record.ImportURL,
		UpdateRule:  record.UpdateRule,
		PublicToken: record.PublicToken,
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
	}
}

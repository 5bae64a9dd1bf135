package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/team-calendar/internal/persistence"
)

// ShareService manages calendar sharing between users.
type ShareService struct {
	shares         persistence.ShareRepository
	calendars      persistence.CalendarRepository
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewShareService wires dependencies for sharing operations.
func NewShareService(shares persistence.ShareRepository, calendars persistence.CalendarRepository, idGenerator, tokenGenerator func() string, now func() time.Time, logger *slog.Logger) *ShareService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if tokenGenerator == nil {
		tokenGenerator = idGenerator
	}
	if now == nil {
		now = time.Now
	}
	return &ShareService{
		shares:         shares,
		calendars:      calendars,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		logger:         defaultLogger(logger),
	}
}

func (s *ShareService) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ShareService", operation, attrs...)
}

// CreateShareForUser grants a grantee access to a calendar the caller owns.
// Self-shares and duplicate (calendar, grantee) pairs are rejected.
func (s *ShareService) CreateShareForUser(ctx context.Context, ownerID, calendarID, granteeID string) (Share, error) {
	if s == nil {
		return Share{}, fmt.Errorf("ShareService is nil")
	}
	if vErr := requireSafeID("owner_id", ownerID); vErr != nil {
		return Share{}, vErr
	}
	if vErr := requireSafeID("calendar_id", calendarID); vErr != nil {
		return Share{}, vErr
	}
	if vErr := requireSafeID("grantee_id", granteeID); vErr != nil {
		return Share{}, vErr
	}
	if ownerID == granteeID {
		return Share{}, invalidField("grantee_id", "a calendar cannot be shared with its owner")
	}

	logger := s.log(ctx, "CreateShareForUser", "owner_id", ownerID, "calendar_id", calendarID, "grantee_id", granteeID)

	calendar, err := s.calendars.GetCalendar(ctx, calendarID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Share{}, ErrNotFound
		}
		return Share{}, err
	}
	if calendar.OwnerID != ownerID {
		return Share{}, ErrForbidden
	}

	return s.createShare(ctx, logger, ownerID, calendarID, granteeID)
}

// AcceptShareByCalendarID records a share when a grantee follows a shared
// link. The share is attributed to the calendar's actual owner, not the
// caller.
func (s *ShareService) AcceptShareByCalendarID(ctx context.Context, calendarID, granteeID string) (Share, error) {
	if s == nil {
		return Share{}, fmt.Errorf("ShareService is nil")
	}
	if vErr := requireSafeID("calendar_id", calendarID); vErr != nil {
		return Share{}, vErr
	}
	if vErr := requireSafeID("grantee_id", granteeID); vErr != nil {
		return Share{}, vErr
	}

	logger := s.log(ctx, "AcceptShareByCalendarID", "calendar_id", calendarID, "grantee_id", granteeID)

	calendar, err := s.calendars.GetCalendar(ctx, calendarID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Share{}, ErrNotFound
		}
		return Share{}, err
	}
	if calendar.OwnerID == granteeID {
		return Share{}, invalidField("grantee_id", "a calendar cannot be shared with its owner")
	}

	return s.createShare(ctx, logger, calendar.OwnerID, calendarID, granteeID)
}

func (s *ShareService) createShare(ctx context.Context, logger *slog.Logger, ownerID, calendarID, granteeID string) (Share, error) {
	if _, err := s.shares.GetShareByCalendarAndGrantee(ctx, calendarID, granteeID); err == nil {
		return Share{}, fmt.Errorf("%w: calendar already shared with user", ErrAlreadyExists)
	} else if !errors.Is(err, persistence.ErrNotFound) {
		return Share{}, err
	}

	token := s.tokenGenerator()
	record := persistence.Share{
		ID:         s.idGenerator(),
		OwnerID:    ownerID,
		CalendarID: calendarID,
		GranteeID:  granteeID,
		Type:       ShareTypeLink,
		LinkToken:  &token,
		CreatedAt:  s.now(),
	}

	if err := s.shares.CreateShare(ctx, record); err != nil {
		switch {
		case errors.Is(err, persistence.ErrDuplicate):
			return Share{}, ErrAlreadyExists
		case errors.Is(err, persistence.ErrForeignKeyViolation):
			return Share{}, ErrNotFound
		}
		logger.ErrorContext(ctx, "share creation failed", "error", err, "error_kind", ErrorKind(err))
		return Share{}, ErrStorageFailed
	}

	logger.With("share_id", record.ID).InfoContext(ctx, "share created")
	return toShare(record), nil
}

// RemoveShareForUser revokes a grantee's access to a calendar the caller
// owns.
func (s *ShareService) RemoveShareForUser(ctx context.Context, ownerID, calendarID, granteeID string) error {
	if s == nil {
		return fmt.Errorf("ShareService is nil")
	}
	if vErr := requireSafeID("owner_id", ownerID); vErr != nil {
		return vErr
	}
	if vErr := requireSafeID("calendar_id", calendarID); vErr != nil {
		return vErr
	}
	if vErr := requireSafeID("grantee_id", granteeID); vErr != nil {
		return vErr
	}

	logger := s.log(ctx, "RemoveShareForUser", "owner_id", ownerID, "calendar_id", calendarID, "grantee_id", granteeID)

	share, err := s.shares.GetShareByCalendarAndGrantee(ctx, calendarID, granteeID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if share.OwnerID != ownerID {
		return ErrForbidden
	}

	if err := s.shares.DeleteShare(ctx, share.ID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.ErrorContext(ctx, "share removal failed", "error", err, "error_kind", ErrorKind(err))
		return ErrStorageFailed
	}

	logger.InfoContext(ctx, "share removed")
	return nil
}

// DeleteShareByID removes a share; both the original owner and the grantee
// may delete it.
func (s *ShareService) DeleteShareByID(ctx context.Context, callerID, shareID string) error {
	if s == nil {
		return fmt.Errorf("ShareService is nil")
	}
	if vErr := requireSafeID("caller_id", callerID); vErr != nil {
		return vErr
	}
	if vErr := requireSafeID("share_id", shareID); vErr != nil {
		return vErr
	}

	logger := s.log(ctx, "DeleteShareByID", "caller_id", callerID, "share_id", shareID)

	share, err := s.shares.GetShare(ctx, shareID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if share.OwnerID != callerID && share.GranteeID != callerID {
		return ErrForbidden
	}

	if err := s.shares.DeleteShare(ctx, shareID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.ErrorContext(ctx, "share deletion failed", "error", err, "error_kind", ErrorKind(err))
		return ErrStorageFailed
	}

	logger.InfoContext(ctx, "share deleted")
	return nil
}

// GetSharedCalendarsForUser lists calendars shared with the given user.
func (s *ShareService) GetSharedCalendarsForUser(ctx context.Context, granteeID string) ([]Calendar, error) {
	if s == nil {
		return nil, fmt.Errorf("ShareService is nil")
	}
	if vErr := requireSafeID("grantee_id", granteeID); vErr != nil {
		return nil, vErr
	}

	shares, err := s.shares.ListSharesByGrantee(ctx, granteeID)
	if err != nil {
		return nil, err
	}

	calendars := make([]Calendar, 0, len(shares))
	for _, share := range shares {
		record, err := s.calendars.GetCalendar(ctx, share.CalendarID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				continue
			}
			return nil, err
		}
		calendars = append(calendars, decodeCalendar(record))
	}
	return calendars, nil
}

// GetSharesByCalendarID lists the shares on a calendar the caller owns.
func (s *ShareService) GetSharesByCalendarID(ctx context.Context, callerID, calendarID string) ([]Share, error) {
	if s == nil {
		return nil, fmt.Errorf("ShareService is nil")
	}
	if vErr := requireSafeID("caller_id", callerID); vErr != nil {
		return nil, vErr
	}
	if vErr := requireSafeID("calendar_id", calendarID); vErr != nil {
		return nil, vErr
	}

	calendar, err := s.calendars.GetCalendar(ctx, calendarID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if calendar.OwnerID != callerID {
		return nil, ErrForbidden
	}

	records, err := s.shares.ListSharesByCalendar(ctx, calendarID)
	if err != nil {
		return nil, err
	}

	shares := make([]Share, 0, len(records))
	for _, record := range records {
		shares = append(shares, toShare(record))
	}
	return shares, nil
}

func toShare(record persistence.Share) Share {
	return Share{
		ID:         record.ID,
		OwnerID:    record.OwnerID,
		CalendarID: record.CalendarID,
		GranteeID:  record.GranteeID,
		Type:       record.Type,
		LinkToken:  record.LinkToken,
		CreatedAt:  record.CreatedAt,
	}
}

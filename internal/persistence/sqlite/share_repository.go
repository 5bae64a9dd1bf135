package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/team-calendar/internal/persistence"
)

// ShareRepository implements persistence.ShareRepository using SQLite.
type ShareRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewShareRepository creates a SQLite share repository.
func NewShareRepository(pool *ConnectionPool) *ShareRepository {
	return &ShareRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateShare inserts a new share. The schema's (calendar_id, grantee_id)
// unique constraint surfaces a repeated grant as ErrDuplicate.
func (r *ShareRepository) CreateShare(ctx context.Context, share persistence.Share) error {
	if share.ID == "" || share.CalendarID == "" || share.GranteeID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO shares (id, owner_id, calendar_id, grantee_id, share_type, link_token, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		share.ID,
		share.OwnerID,
		share.CalendarID,
		share.GranteeID,
		share.Type,
		share.LinkToken,
		formatTime(share.CreatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetShare retrieves a share by ID.
func (r *ShareRepository) GetShare(ctx context.Context, id string) (persistence.Share, error) {
	if id == "" {
		return persistence.Share{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, owner_id, calendar_id, grantee_id, share_type, link_token, created_at
		FROM shares
		WHERE id = ?
	`
	return r.scanShare(r.helper.QueryRow(ctx, query, id))
}

// GetShareByCalendarAndGrantee retrieves the share granting a user access
// to a calendar.
func (r *ShareRepository) GetShareByCalendarAndGrantee(ctx context.Context, calendarID, granteeID string) (persistence.Share, error) {
	if calendarID == "" || granteeID == "" {
		return persistence.Share{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, owner_id, calendar_id, grantee_id, share_type, link_token, created_at
		FROM shares
		WHERE calendar_id = ? AND grantee_id = ?
	`
	return r.scanShare(r.helper.QueryRow(ctx, query, calendarID, granteeID))
}

// ListSharesByCalendar returns all shares on a calendar.
func (r *ShareRepository) ListSharesByCalendar(ctx context.Context, calendarID string) ([]persistence.Share, error) {
	query := `
		SELECT id, owner_id, calendar_id, grantee_id, share_type, link_token, created_at
		FROM shares
		WHERE calendar_id = ?
		ORDER BY created_at, id
	`
	return r.listShares(ctx, query, calendarID)
}

// ListSharesByGrantee returns all shares granted to a user.
func (r *ShareRepository) ListSharesByGrantee(ctx context.Context, granteeID string) ([]persistence.Share, error) {
	query := `
		SELECT id, owner_id, calendar_id, grantee_id, share_type, link_token, created_at
		FROM shares
		WHERE grantee_id = ?
		ORDER BY created_at, id
	`
	return r.listShares(ctx, query, granteeID)
}

// DeleteShare removes a share.
func (r *ShareRepository) DeleteShare(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM shares WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *ShareRepository) listShares(ctx context.Context, query string, arg any) ([]persistence.Share, error) {
	rows, err := r.helper.Query(ctx, query, arg)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var shares []persistence.Share
	for rows.Next() {
		var share persistence.Share
		var createdAt string
		if err := rows.Scan(
			&share.ID,
			&share.OwnerID,
			&share.CalendarID,
			&share.GranteeID,
			&share.Type,
			&share.LinkToken,
			&createdAt,
		); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if share.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		shares = append(shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return shares, nil
}

func (r *ShareRepository) scanShare(row *sql.Row) (persistence.Share, error) {
	var share persistence.Share
	var createdAt string

	err := row.Scan(
		&share.ID,
		&share.OwnerID,
		&share.CalendarID,
		&share.GranteeID,
		&share.Type,
		&share.LinkToken,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Share{}, persistence.ErrNotFound
		}
		return persistence.Share{}, r.mapper.MapError(err)
	}
	if share.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Share{}, err
	}
	return share, nil
}

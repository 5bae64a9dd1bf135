package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/team-calendar/internal/persistence"
)

// CalendarRepository implements persistence.CalendarRepository using SQLite.
type CalendarRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewCalendarRepository creates a SQLite calendar repository.
func NewCalendarRepository(pool *ConnectionPool) *CalendarRepository {
	return &CalendarRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateCalendar inserts a new calendar.
func (r *CalendarRepository) CreateCalendar(ctx context.Context, calendar persistence.Calendar) error {
	if calendar.ID == "" || calendar.OwnerID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO calendars (id, owner_id, name, description, color, import_url, update_rule, public_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		calendar.ID,
		calendar.OwnerID,
		calendar.Name,
		calendar.Description,
		calendar.Color,
		calendar.ImportURL,
		calendar.UpdateRule,
		calendar.PublicToken,
		formatTime(calendar.CreatedAt),
		formatTime(calendar.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetCalendar retrieves a calendar by ID.
func (r *CalendarRepository) GetCalendar(ctx context.Context, id string) (persistence.Calendar, error) {
	if id == "" {
		return persistence.Calendar{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, owner_id, name, description, color, import_url, update_rule, public_token, created_at, updated_at
		FROM calendars
		WHERE id = ?
	`
	return r.scanCalendar(r.helper.QueryRow(ctx, query, id))
}

// ListCalendarsByOwner returns the owner's calendars ordered by creation.
func (r *CalendarRepository) ListCalendarsByOwner(ctx context.Context, ownerID string) ([]persistence.Calendar, error) {
	query := `
		SELECT id, owner_id, name, description, color, import_url, update_rule, public_token, created_at, updated_at
		FROM calendars
		WHERE owner_id = ?
		ORDER BY created_at, id
	`
	rows, err := r.helper.Query(ctx, query, ownerID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var calendars []persistence.Calendar
	for rows.Next() {
		calendar, err := r.scanCalendarRows(rows)
		if err != nil {
			return nil, err
		}
		calendars = append(calendars, calendar)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return calendars, nil
}

// UpdateCalendar updates an existing calendar.
func (r *CalendarRepository) UpdateCalendar(ctx context.Context, calendar persistence.Calendar) error {
	if calendar.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE calendars
		SET name = ?, description = ?, color = ?, import_url = ?, update_rule = ?, public_token = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		calendar.Name,
		calendar.Description,
		calendar.Color,
		calendar.ImportURL,
		calendar.UpdateRule,
		calendar.PublicToken,
		formatTime(calendar.UpdatedAt),
		calendar.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteCalendar removes a calendar; its appointments cascade.
func (r *CalendarRepository) DeleteCalendar(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM calendars WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *CalendarRepository) scanCalendar(row *sql.Row) (persistence.Calendar, error) {
	var calendar persistence.Calendar
	var createdAt, updatedAt string

	err := row.Scan(
		&calendar.ID,
		&calendar.OwnerID,
		&calendar.Name,
		&calendar.Description,
		&calendar.Color,
		&calendar.ImportURL,
		&calendar.UpdateRule,
		&calendar.PublicToken,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Calendar{}, persistence.ErrNotFound
		}
		return persistence.Calendar{}, r.mapper.MapError(err)
	}
	return r.finishCalendar(calendar, createdAt, updatedAt)
}

func (r *CalendarRepository) scanCalendarRows(rows *sql.Rows) (persistence.Calendar, error) {
	var calendar persistence.Calendar
	var createdAt, updatedAt string

	err := rows.Scan(
		&calendar.ID,
		&calendar.OwnerID,
		&calendar.Name,
		&calendar.Description,
		&calendar.Color,
		&calendar.ImportURL,
		&calendar.UpdateRule,
		&calendar.PublicToken,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Calendar{}, r.mapper.MapError(err)
	}
	return r.finishCalendar(calendar, createdAt, updatedAt)
}

func (r *CalendarRepository) finishCalendar(calendar persistence.Calendar, createdAt, updatedAt string) (persistence.Calendar, error) {
	var err error
	if calendar.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Calendar{}, err
	}
	if calendar.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Calendar{}, err
	}
	return calendar, nil
}

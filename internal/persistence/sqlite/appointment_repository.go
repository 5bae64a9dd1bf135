package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/team-calendar/internal/persistence"
)

// AppointmentRepository implements persistence.AppointmentRepository using
// SQLite. It covers single appointments, recurrent appointments and the
// appointment_tags join table.
type AppointmentRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAppointmentRepository creates a SQLite appointment repository.
func NewAppointmentRepository(pool *ConnectionPool) *AppointmentRepository {
	return &AppointmentRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateAppointment inserts a new appointment.
func (r *AppointmentRepository) CreateAppointment(ctx context.Context, appointment persistence.Appointment) error {
	if appointment.ID == "" || appointment.CalendarID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO appointments (id, calendar_id, owner_id, title, description, start_at, end_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		appointment.ID,
		appointment.CalendarID,
		appointment.OwnerID,
		appointment.Title,
		appointment.Description,
		formatTime(appointment.Start),
		formatTime(appointment.End),
		formatTime(appointment.CreatedAt),
		formatTime(appointment.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetAppointment retrieves an appointment by ID.
func (r *AppointmentRepository) GetAppointment(ctx context.Context, id string) (persistence.Appointment, error) {
	if id == "" {
		return persistence.Appointment{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, calendar_id, owner_id, title, description, start_at, end_at, created_at, updated_at
		FROM appointments
		WHERE id = ?
	`
	row := r.helper.QueryRow(ctx, query, id)

	var appointment persistence.Appointment
	var start, end, createdAt, updatedAt string
	err := row.Scan(
		&appointment.ID,
		&appointment.CalendarID,
		&appointment.OwnerID,
		&appointment.Title,
		&appointment.Description,
		&start,
		&end,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Appointment{}, persistence.ErrNotFound
		}
		return persistence.Appointment{}, r.mapper.MapError(err)
	}
	return r.finishAppointment(appointment, start, end, createdAt, updatedAt)
}

// ListAppointmentsByCalendar returns a calendar's appointments ordered by
// start time.
func (r *AppointmentRepository) ListAppointmentsByCalendar(ctx context.Context, calendarID string) ([]persistence.Appointment, error) {
	query := `
		SELECT id, calendar_id, owner_id, title, description, start_at, end_at, created_at, updated_at
		FROM appointments
		WHERE calendar_id = ?
		ORDER BY start_at, id
	`
	rows, err := r.helper.Query(ctx, query, calendarID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var appointments []persistence.Appointment
	for rows.Next() {
		var appointment persistence.Appointment
		var start, end, createdAt, updatedAt string
		err := rows.Scan(
			&appointment.ID,
			&appointment.CalendarID,
			&appointment.OwnerID,
			&appointment.Title,
			&appointment.Description,
			&start,
			&end,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		appointment, err = r.finishAppointment(appointment, start, end, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return appointments, nil
}

// UpdateAppointment updates an existing appointment.
func (r *AppointmentRepository) UpdateAppointment(ctx context.Context, appointment persistence.Appointment) error {
	if appointment.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE appointments
		SET calendar_id = ?, title = ?, description = ?, start_at = ?, end_at = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		appointment.CalendarID,
		appointment.Title,
		appointment.Description,
		formatTime(appointment.Start),
		formatTime(appointment.End),
		formatTime(appointment.UpdatedAt),
		appointment.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// DeleteAppointment removes an appointment; its tag links cascade.
func (r *AppointmentRepository) DeleteAppointment(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// CreateRecurrentAppointment inserts a new recurrent appointment.
func (r *AppointmentRepository) CreateRecurrentAppointment(ctx context.Context, appointment persistence.RecurrentAppointment) error {
	if appointment.ID == "" || appointment.CalendarID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO recurrent_appointments (id, calendar_id, owner_id, title, description, start_at, end_at, recursion_rule, recursion_end, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		appointment.ID,
		appointment.CalendarID,
		appointment.OwnerID,
		appointment.Title,
		appointment.Description,
		formatTime(appointment.Start),
		formatTime(appointment.End),
		appointment.RecursionRule,
		formatTime(appointment.RecursionEnd),
		formatTime(appointment.CreatedAt),
		formatTime(appointment.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetRecurrentAppointment retrieves a recurrent appointment by ID.
func (r *AppointmentRepository) GetRecurrentAppointment(ctx context.Context, id string) (persistence.RecurrentAppointment, error) {
	if id == "" {
		return persistence.RecurrentAppointment{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, calendar_id, owner_id, title, description, start_at, end_at, recursion_rule, recursion_end, created_at, updated_at
		FROM recurrent_appointments
		WHERE id = ?
	`
	row := r.helper.QueryRow(ctx, query, id)

	var appointment persistence.RecurrentAppointment
	var start, end, recursionEnd, createdAt, updatedAt string
	err := row.Scan(
		&appointment.ID,
		&appointment.CalendarID,
		&appointment.OwnerID,
		&appointment.Title,
		&appointment.Description,
		&start,
		&end,
		&appointment.RecursionRule,
		&recursionEnd,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.RecurrentAppointment{}, persistence.ErrNotFound
		}
		return persistence.RecurrentAppointment{}, r.mapper.MapError(err)
	}
	return r.finishRecurrent(appointment, start, end, recursionEnd, createdAt, updatedAt)
}

// ListRecurrentAppointmentsByCalendar returns a calendar's recurrent
// appointments ordered by start time.
func (r *AppointmentRepository) ListRecurrentAppointmentsByCalendar(ctx context.Context, calendarID string) ([]persistence.RecurrentAppointment, error) {
	query := `
		SELECT id, calendar_id, owner_id, title, description, start_at, end_at, recursion_rule, recursion_end, created_at, updated_at
		FROM recurrent_appointments
		WHERE calendar_id = ?
		ORDER BY start_at, id
	`
	rows, err := r.helper.Query(ctx, query, calendarID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var appointments []persistence.RecurrentAppointment
	for rows.Next() {
		var appointment persistence.RecurrentAppointment
		var start, end, recursionEnd, createdAt, updatedAt string
		err := rows.Scan(
			&appointment.ID,
			&appointment.CalendarID,
			&appointment.OwnerID,
			&appointment.Title,
			&appointment.Description,
			&start,
			&end,
			&appointment.RecursionRule,
			&recursionEnd,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		appointment, err = r.finishRecurrent(appointment, start, end, recursionEnd, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return appointments, nil
}

// UpdateRecurrentAppointment updates an existing recurrent appointment.
func (r *AppointmentRepository) UpdateRecurrentAppointment(ctx context.Context, appointment persistence.RecurrentAppointment) error {
	if appointment.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE recurrent_appointments
		SET calendar_id = ?, title = ?, description = ?, start_at = ?, end_at = ?, recursion_rule = ?, recursion_end = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		appointment.CalendarID,
		appointment.Title,
		appointment.Description,
		formatTime(appointment.Start),
		formatTime(appointment.End),
		appointment.RecursionRule,
		formatTime(appointment.RecursionEnd),
		formatTime(appointment.UpdatedAt),
		appointment.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// DeleteRecurrentAppointment removes a recurrent appointment; its pauses
// cascade.
func (r *AppointmentRepository) DeleteRecurrentAppointment(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM recurrent_appointments WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// ListTagIDsForAppointment returns the IDs of tags attached to an
// appointment.
func (r *AppointmentRepository) ListTagIDsForAppointment(ctx context.Context, appointmentID string) ([]string, error) {
	query := `
		SELECT tag_id
		FROM appointment_tags
		WHERE appointment_id = ?
		ORDER BY tag_id
	`
	rows, err := r.helper.Query(ctx, query, appointmentID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, r.mapper.MapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return ids, nil
}

// AddTagToAppointment links a tag to an appointment. Re-adding an existing
// link is a no-op.
func (r *AppointmentRepository) AddTagToAppointment(ctx context.Context, appointmentID, tagID string) error {
	if appointmentID == "" || tagID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT OR IGNORE INTO appointment_tags (appointment_id, tag_id)
		VALUES (?, ?)
	`
	if _, err := r.helper.Exec(ctx, query, appointmentID, tagID); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// RemoveTagFromAppointment unlinks a tag from an appointment.
func (r *AppointmentRepository) RemoveTagFromAppointment(ctx context.Context, appointmentID, tagID string) error {
	query := `DELETE FROM appointment_tags WHERE appointment_id = ? AND tag_id = ?`
	if _, err := r.helper.Exec(ctx, query, appointmentID, tagID); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// ClearTagsForAppointment removes all tag links for an appointment.
func (r *AppointmentRepository) ClearTagsForAppointment(ctx context.Context, appointmentID string) error {
	query := `DELETE FROM appointment_tags WHERE appointment_id = ?`
	if _, err := r.helper.Exec(ctx, query, appointmentID); err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

func (r *AppointmentRepository) finishAppointment(appointment persistence.Appointment, start, end, createdAt, updatedAt string) (persistence.Appointment, error) {
	var err error
	if appointment.Start, err = parseTime("start_at", start); err != nil {
		return persistence.Appointment{}, err
	}
	if appointment.End, err = parseTime("end_at", end); err != nil {
		return persistence.Appointment{}, err
	}
	if appointment.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Appointment{}, err
	}
	if appointment.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.Appointment{}, err
	}
	return appointment, nil
}

func (r *AppointmentRepository) finishRecurrent(appointment persistence.RecurrentAppointment, start, end, recursionEnd, createdAt, updatedAt string) (persistence.RecurrentAppointment, error) {
	var err error
	if appointment.Start, err = parseTime("start_at", start); err != nil {
		return persistence.RecurrentAppointment{}, err
	}
	if appointment.End, err = parseTime("end_at", end); err != nil {
		return persistence.RecurrentAppointment{}, err
	}
	if appointment.RecursionEnd, err = parseTime("recursion_end", recursionEnd); err != nil {
		return persistence.RecurrentAppointment{}, err
	}
	if appointment.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.RecurrentAppointment{}, err
	}
	if appointment.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.RecurrentAppointment{}, err
	}
	return appointment, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

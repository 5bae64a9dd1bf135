package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/team-calendar/internal/persistence"
)

// PauseRepository implements persistence.PauseRepository using SQLite.
type PauseRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPauseRepository creates a SQLite pause repository.
func NewPauseRepository(pool *ConnectionPool) *PauseRepository {
	return &PauseRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreatePause inserts a new pause interval.
func (r *PauseRepository) CreatePause(ctx context.Context, pause persistence.Pause) error {
	if pause.ID == "" || pause.RecurrentAppointmentID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO pauses (id, recurrent_appointment_id, start_at, end_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		pause.ID,
		pause.RecurrentAppointmentID,
		formatTime(pause.Start),
		formatTime(pause.End),
		formatTime(pause.CreatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetPause retrieves a pause by ID.
func (r *PauseRepository) GetPause(ctx context.Context, id string) (persistence.Pause, error) {
	if id == "" {
		return persistence.Pause{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, recurrent_appointment_id, start_at, end_at, created_at
		FROM pauses
		WHERE id = ?
	`
	row := r.helper.QueryRow(ctx, query, id)

	var pause persistence.Pause
	var start, end, createdAt string
	err := row.Scan(&pause.ID, &pause.RecurrentAppointmentID, &start, &end, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Pause{}, persistence.ErrNotFound
		}
		return persistence.Pause{}, r.mapper.MapError(err)
	}
	return r.finishPause(pause, start, end, createdAt)
}

// ListPausesByRecurrentAppointment returns a recurrence's pauses ordered by
// start.
func (r *PauseRepository) ListPausesByRecurrentAppointment(ctx context.Context, recurrentAppointmentID string) ([]persistence.Pause, error) {
	query := `
		SELECT id, recurrent_appointment_id, start_at, end_at, created_at
		FROM pauses
		WHERE recurrent_appointment_id = ?
		ORDER BY start_at, id
	`
	rows, err := r.helper.Query(ctx, query, recurrentAppointmentID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var pauses []persistence.Pause
	for rows.Next() {
		var pause persistence.Pause
		var start, end, createdAt string
		if err := rows.Scan(&pause.ID, &pause.RecurrentAppointmentID, &start, &end, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		pause, err = r.finishPause(pause, start, end, createdAt)
		if err != nil {
			return nil, err
		}
		pauses = append(pauses, pause)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return pauses, nil
}

// UpdatePause updates a pause's bounds in place.
func (r *PauseRepository) UpdatePause(ctx context.Context, pause persistence.Pause) error {
	if pause.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE pauses
		SET start_at = ?, end_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		formatTime(pause.Start),
		formatTime(pause.End),
		pause.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// DeletePause removes a pause.
func (r *PauseRepository) DeletePause(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM pauses WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// ReplacePauses deletes the absorbed pauses and inserts the merged
// replacement within one transaction, so a crash never leaves both the
// old intervals and the widened one behind.
func (r *PauseRepository) ReplacePauses(ctx context.Context, deleteIDs []string, replacement persistence.Pause) error {
	if replacement.ID == "" || replacement.RecurrentAppointmentID == "" {
		return persistence.ErrConstraintViolation
	}

	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, id := range deleteIDs {
			if _, err := tx.ExecContext(ctx, `DELETE FROM pauses WHERE id = ?`, id); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pauses (id, recurrent_appointment_id, start_at, end_at, created_at)
			VALUES (?, ?, ?, ?, ?)
		`,
			replacement.ID,
			replacement.RecurrentAppointmentID,
			formatTime(replacement.Start),
			formatTime(replacement.End),
			formatTime(replacement.CreatedAt),
		)
		return err
	})
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

func (r *PauseRepository) finishPause(pause persistence.Pause, start, end, createdAt string) (persistence.Pause, error) {
	var err error
	if pause.Start, err = parseTime("start_at", start); err != nil {
		return persistence.Pause{}, err
	}
	if pause.End, err = parseTime("end_at", end); err != nil {
		return persistence.Pause{}, err
	}
	if pause.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Pause{}, err
	}
	return pause, nil
}

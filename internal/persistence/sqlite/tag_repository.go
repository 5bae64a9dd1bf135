package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/team-calendar/internal/persistence"
)

// TagRepository implements persistence.TagRepository using SQLite.
type TagRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewTagRepository creates a SQLite tag repository.
func NewTagRepository(pool *ConnectionPool) *TagRepository {
	return &TagRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateTag inserts a new tag.
func (r *TagRepository) CreateTag(ctx context.Context, tag persistence.Tag) error {
	if tag.ID == "" || tag.CreatedBy == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO tags (id, name, color, created_by, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		tag.ID,
		tag.Name,
		tag.Color,
		tag.CreatedBy,
		formatTime(tag.CreatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetTag retrieves a tag by ID.
func (r *TagRepository) GetTag(ctx context.Context, id string) (persistence.Tag, error) {
	if id == "" {
		return persistence.Tag{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, name, color, created_by, created_at
		FROM tags
		WHERE id = ?
	`
	row := r.helper.QueryRow(ctx, query, id)

	var tag persistence.Tag
	var createdAt string
	err := row.Scan(&tag.ID, &tag.Name, &tag.Color, &tag.CreatedBy, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Tag{}, persistence.ErrNotFound
		}
		return persistence.Tag{}, r.mapper.MapError(err)
	}
	if tag.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Tag{}, err
	}
	return tag, nil
}

// ListTagsByOwner returns the tags created by a user ordered by creation.
func (r *TagRepository) ListTagsByOwner(ctx context.Context, ownerID string) ([]persistence.Tag, error) {
	query := `
		SELECT id, name, color, created_by, created_at
		FROM tags
		WHERE created_by = ?
		ORDER BY created_at, id
	`
	rows, err := r.helper.Query(ctx, query, ownerID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var tags []persistence.Tag
	for rows.Next() {
		var tag persistence.Tag
		var createdAt string
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color, &tag.CreatedBy, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if tag.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return tags, nil
}

// UpdateTag updates an existing tag.
func (r *TagRepository) UpdateTag(ctx context.Context, tag persistence.Tag) error {
	if tag.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		UPDATE tags
		SET name = ?, color = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query, tag.Name, tag.Color, tag.ID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// DeleteTag removes a tag; its appointment links cascade.
func (r *TagRepository) DeleteTag(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, `DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

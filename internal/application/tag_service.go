package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/example/team-calendar/internal/persistence"
	"github.com/example/team-calendar/internal/sanitize"
)

// tagColorPattern accepts three or six hex digit colors with a leading hash.
var tagColorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

const maxTagNameLength = 50

// TagService orchestrates tag CRUD with ownership and color-format checks.
type TagService struct {
	tags        persistence.TagRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTagService wires dependencies for tag operations.
func NewTagService(tags persistence.TagRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TagService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TagService{tags: tags, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *TagService) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TagService", operation, attrs...)
}

// CreateTag persists a tag for the calling user. The color is stored
// trimmed and uppercased; the name is entity-encoded.
func (s *TagService) CreateTag(ctx context.Context, ownerID, name, color string) (Tag, error) {
	if s == nil {
		return Tag{}, fmt.Errorf("TagService is nil")
	}
	if vErr := requireSafeID("owner_id", ownerID); vErr != nil {
		return Tag{}, vErr
	}

	vErr := &ValidationError{}
	validateTagName(name, vErr)
	normalizedColor, colorErr := normalizeTagColor(color)
	if colorErr != nil {
		vErr.add("color", colorErr.Error())
	}
	if vErr.HasErrors() {
		return Tag{}, vErr
	}

	logger := s.log(ctx, "CreateTag", "owner_id", ownerID)

	record := persistence.Tag{
		ID:        s.idGenerator(),
		Name:      sanitize.Encode(name),
		Color:     normalizedColor,
		CreatedBy: ownerID,
		CreatedAt: s.now(),
	}

	if err := s.tags.CreateTag(ctx, record); err != nil {
		if errors.Is(err, persistence.ErrForeignKeyViolation) {
			return Tag{}, ErrNotFound
		}
		logger.ErrorContext(ctx, "tag creation failed", "error", err, "error_kind", ErrorKind(err))
		return Tag{}, ErrStorageFailed
	}

	logger.With("tag_id", record.ID).InfoContext(ctx, "tag created")
	return decodeTag(record), nil
}

// GetTagsByOwnerID lists the tags created by a user, names decoded.
func (s *TagService) GetTagsByOwnerID(ctx context.Context, ownerID string) ([]Tag, error) {
	if s == nil {
		return nil, fmt.Errorf("TagService is nil")
	}
	if vErr := requireSafeID("owner_id", ownerID); vErr != nil {
		return nil, vErr
	}

	records, err := s.tags.ListTagsByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	tags := make([]Tag, 0, len(records))
	for _, record := range records {
		tags = append(tags, decodeTag(record))
	}
	return tags, nil
}

// UpdateTag applies the allow-listed patch fields (name, color) after the
// ownership gate. Attempts to rewrite createdBy are rejected.
func (s *TagService) UpdateTag(ctx context.Context, ownerID, tagID string, patch TagPatch) (Tag, error) {
	if s == nil {
		return Tag{}, fmt.Errorf("TagService is nil")
	}
	if vErr := requireSafeID("owner_id", ownerID); vErr != nil {
		return Tag{}, vErr
	}
	if vErr := requireSafeID("tag_id", tagID); vErr != nil {
		return Tag{}, vErr
	}

	logger := s.log(ctx, "UpdateTag", "owner_id", ownerID, "tag_id", tagID)

	existing, err := s.tags.GetTag(ctx, tagID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Tag{}, ErrNotFound
		}
		return Tag{}, err
	}

	if existing.CreatedBy != ownerID {
		return Tag{}, ErrForbidden
	}
	if patch.ID != "" && patch.ID != tagID {
		return Tag{}, ErrForbidden
	}
	if patch.CreatedBy != "" && patch.CreatedBy != existing.CreatedBy {
		return Tag{}, ErrForbidden
	}

	updated := existing
	if patch.Name != nil {
		vErr := &ValidationError{}
		validateTagName(*patch.Name, vErr)
		if vErr.HasErrors() {
			return Tag{}, vErr
		}
		updated.Name = sanitize.Encode(*patch.Name)
	}
	if patch.Color != nil {
		normalized, err := normalizeTagColor(*patch.Color)
		if err != nil {
			return Tag{}, invalidField("color", err.Error())
		}
		updated.Color = normalized
	}

	if err := s.tags.UpdateTag(ctx, updated); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Tag{}, ErrNotFound
		}
		logger.ErrorContext(ctx, "tag update failed", "error", err, "error_kind", ErrorKind(err))
		return Tag{}, ErrStorageFailed
	}

	logger.InfoContext(ctx, "tag updated")
	return decodeTag(updated), nil
}

// DeleteTag removes a tag owned by the caller.
func (s *TagService) DeleteTag(ctx context.Context, ownerID, tagID string) error {
	if s == nil {
		return fmt.Errorf("TagService is nil")
	}
	if vErr := requireSafeID("owner_id", ownerID); vErr != nil {
		return vErr
	}
	if vErr := requireSafeID("tag_id", tagID); vErr != nil {
		return vErr
	}

	logger := s.log(ctx, "DeleteTag", "owner_id", ownerID, "tag_id", tagID)

	existing, err := s.tags.GetTag(ctx, tagID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if existing.CreatedBy != ownerID {
		return ErrForbidden
	}

	if err := s.tags.DeleteTag(ctx, tagID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return ErrNotFound
		}
		logger.ErrorContext(ctx, "tag deletion failed", "error", err, "error_kind", ErrorKind(err))
		return ErrStorageFailed
	}

	logger.InfoContext(ctx, "tag deleted")
	return nil
}

func validateTagName(name string, vErr *ValidationError) {
	if strings.TrimSpace(name) == "" {
		vErr.add("name", "name is required")
		return
	}
	if len([]rune(name)) > maxTagNameLength {
		vErr.add("name", fmt.Sprintf("name must be at most %d characters", maxTagNameLength))
	}
}

func normalizeTagColor(color string) (string, error) {
	trimmed := strings.TrimSpace(color)
	if !tagColorPattern.MatchString(trimmed) {
		return "", errors.New("color must be #RGB or #RRGGBB")
	}
	return strings.ToUpper(trimmed), nil
}

func decodeTag(record persistence.Tag) Tag {
	return Tag{
		ID:        record.ID,
		Name:      sanitize.Decode(record.Name),
		Color:     record.Color,
		CreatedBy: record.CreatedBy,
		CreatedAt: record.CreatedAt,
	}
}

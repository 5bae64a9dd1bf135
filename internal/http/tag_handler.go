package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/example/team-calendar/internal/application"
)

type tagService interface {
	CreateTag(ctx context.Context, ownerID, name, color string) (application.Tag, error)
	GetTagsByOwnerID(ctx context.Context, ownerID string) ([]application.Tag, error)
	UpdateTag(ctx context.Context, ownerID, tagID string, patch application.TagPatch) (application.Tag, error)
	DeleteTag(ctx context.Context, ownerID, tagID string) error
}

type TagHandler struct {
	service   tagService
	validate  *validator.Validate
	responder responder
	logger    *slog.Logger
}

func NewTagHandler(service tagService, validate *validator.Validate, logger *slog.Logger) *TagHandler {
	base := defaultLogger(logger)
	return &TagHandler{service: service, validate: validate, responder: newResponder(base), logger: base}
}

func (h *TagHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "TagHandler", operation, attrs...)
}

func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())

	var req tagRequest
	if !decodeRequest(r.Context(), w, r, h.responder, h.validate, &req) {
		return
	}

	logger := h.log(r.Context(), "Create", "owner_id", claims.UserID)

	tag, err := h.service.CreateTag(r.Context(), claims.UserID, req.Name, req.Color)
	if err != nil {
		logger.ErrorContext(r.Context(), "tag creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("tag_id", tag.ID).InfoContext(r.Context(), "tag created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toTagDTO(tag))
}

func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())

	tags, err := h.service.GetTagsByOwnerID(r.Context(), claims.UserID)
	if err != nil {
		h.log(r.Context(), "List", "owner_id", claims.UserID).ErrorContext(r.Context(), "tag listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listTagsResponse{Tags: toTagDTOs(tags)})
}

func (h *TagHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tagID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(tagID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())

	var req tagPatchRequest
	if !decodeRequest(r.Context(), w, r, h.responder, h.validate, &req) {
		return
	}

	logger := h.log(r.Context(), "Update", "tag_id", tagID, "owner_id", claims.UserID)

	tag, err := h.service.UpdateTag(r.Context(), claims.UserID, tagID, req.toPatch())
	if err != nil {
		logger.ErrorContext(r.Context(), "tag update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "tag updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTagDTO(tag))
}

func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tagID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(tagID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "tag_id", tagID, "owner_id", claims.UserID)

	if err := h.service.DeleteTag(r.Context(), claims.UserID, tagID); err != nil {
		logger.ErrorContext(r.Context(), "tag deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "tag deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type tagRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=50"`
	Color string `json:"color" validate:"required"`
}

type tagPatchRequest struct {
	ID        string  `json:"id"`
	CreatedBy string  `json:"created_by"`
	Name      *string `json:"name"`
	Color     *string `json:"color"`
}

func (r tagPatchRequest) toPatch() application.TagPatch {
	return application.TagPatch{
		ID:        strings.TrimSpace(r.ID),
		CreatedBy: strings.TrimSpace(r.CreatedBy),
		Name:      r.Name,
		Color:     r.Color,
	}
}

type listTagsResponse struct {
	Tags []tagDTO `json:"tags"`
}

type tagDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at"`
}

func toTagDTO(tag application.Tag) tagDTO {
	return tagDTO{
		ID:        tag.ID,
		Name:      tag.Name,
		Color:     tag.Color,
		CreatedBy: tag.CreatedBy,
		CreatedAt: formatTimestamp(tag.CreatedAt),
	}
}

func toTagDTOs(tags []application.Tag) []tagDTO {
	if len(tags) == 0 {
		return nil
	}
	out := make([]tagDTO, 0, len(tags))
	for _, tag := range tags {
		out = append(out, toTagDTO(tag))
	}
	return out
}

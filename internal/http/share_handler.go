package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/example/team-calendar/internal/application"
)

type shareService interface {
	CreateShareForUser(ctx context.Context, ownerID, calendarID, granteeID string) (application.Share, error)
	AcceptShareByCalendarID(ctx context.Context, calendarID, granteeID string) (application.Share, error)
	RemoveShareForUser(ctx context.Context, ownerID, calendarID, granteeID string) error
	DeleteShareByID(ctx context.Context, callerID, shareID string) error
	GetSharedCalendarsForUser(ctx context.Context, granteeID string) ([]application.Calendar, error)
	GetSharesByCalendarID(ctx context.Context, callerID, calendarID string) ([]application.Share, error)
}

type ShareHandler struct {
	service   shareService
	validate  *validator.Validate
	responder responder
	logger    *slog.Logger
}

func NewShareHandler(service shareService, validate *validator.Validate, logger *slog.Logger) *ShareHandler {
	base := defaultLogger(logger)
	return &ShareHandler{service: service, validate: validate, responder: newResponder(base), logger: base}
}

func (h *ShareHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ShareHandler", operation, attrs...)
}

func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())

	var req shareRequest
	if !decodeRequest(r.Context(), w, r, h.responder, h.validate, &req) {
		return
	}

	logger := h.log(r.Context(), "Create", "owner_id", claims.UserID, "calendar_id", req.CalendarID, "grantee_id", req.GranteeID)

	share, err := h.service.CreateShareForUser(r.Context(), claims.UserID, req.CalendarID, req.GranteeID)
	if err != nil {
		logger.ErrorContext(r.Context(), "share creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("share_id", share.ID).InfoContext(r.Context(), "share created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toShareDTO(share))
}

// Accept records a share for the caller after they followed a shared link to
// the calendar.
func (h *ShareHandler) Accept(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	calendarID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(calendarID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Accept", "calendar_id", calendarID, "grantee_id", claims.UserID)

	share, err := h.service.AcceptShareByCalendarID(r.Context(), calendarID, claims.UserID)
	if err != nil {
		logger.ErrorContext(r.Context(), "share acceptance failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("share_id", share.ID).InfoContext(r.Context(), "share accepted")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toShareDTO(share))
}

// Remove revokes a grantee's access to one of the caller's calendars.
func (h *ShareHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())

	var req shareRequest
	if !decodeRequest(r.Context(), w, r, h.responder, h.validate, &req) {
		return
	}

	logger := h.log(r.Context(), "Remove", "owner_id", claims.UserID, "calendar_id", req.CalendarID, "grantee_id", req.GranteeID)

	if err := h.service.RemoveShareForUser(r.Context(), claims.UserID, req.CalendarID, req.GranteeID); err != nil {
		logger.ErrorContext(r.Context(), "share removal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "share removed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *ShareHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	shareID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(shareID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "share_id", shareID, "caller_id", claims.UserID)

	if err := h.service.DeleteShareByID(r.Context(), claims.UserID, shareID); err != nil {
		logger.ErrorContext(r.Context(), "share deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "share deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// ListSharedCalendars returns the calendars other users have shared with the
// caller.
func (h *ShareHandler) ListSharedCalendars(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())

	calendars, err := h.service.GetSharedCalendarsForUser(r.Context(), claims.UserID)
	if err != nil {
		h.log(r.Context(), "ListSharedCalendars", "grantee_id", claims.UserID).ErrorContext(r.Context(), "shared calendar listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listCalendarsResponse{Calendars: toCalendarDTOs(calendars)})
}

// ListByCalendar returns the shares on one of the caller's calendars.
func (h *ShareHandler) ListByCalendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	calendarID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(calendarID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())

	shares, err := h.service.GetSharesByCalendarID(r.Context(), claims.UserID, calendarID)
	if err != nil {
		h.log(r.Context(), "ListByCalendar", "calendar_id", calendarID, "caller_id", claims.UserID).ErrorContext(r.Context(), "share listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSharesResponse{Shares: toShareDTOs(shares)})
}

type shareRequest struct {
	CalendarID string `json:"calendar_id" validate:"required"`
	GranteeID  string `json:"grantee_id" validate:"required"`
}

type listSharesResponse struct {
	Shares []shareDTO `json:"shares"`
}

type shareDTO struct {
	ID         string  `json:"id"`
	OwnerID    string  `json:"owner_id"`
	CalendarID string  `json:"calendar_id"`
	GranteeID  string  `json:"grantee_id"`
	Type       string  `json:"type"`
	LinkToken  *string `json:"link_token,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

func toShareDTO(share application.Share) shareDTO {
	return shareDTO{
		ID:         share.ID,
		OwnerID:    share.OwnerID,
		CalendarID: share.CalendarID,
		GranteeID:  share.GranteeID,
		Type:       share.Type,
		LinkToken:  share.LinkToken,
		CreatedAt:  formatTimestamp(share.CreatedAt),
	}
}

func toShareDTOs(shares []application.Share) []shareDTO {
	if len(shares) == 0 {
		return nil
	}
	out := make([]shareDTO, 0, len(shares))
	for _, share := range shares {
		out = append(out, toShareDTO(share))
	}
	return out
}

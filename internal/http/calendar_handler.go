package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/example/team-calendar/internal/application"
)

type calendarService interface {
	CreateCalendar(ctx context.Context, ownerID, name, description, color string) (application.Calendar, error)
	GetCalendarByID(ctx context.Context, id string) (application.Calendar, error)
	GetCalendarsByOwnerID(ctx context.Context, ownerID string) ([]application.Calendar, error)
	UpdateCalendar(ctx context.Context, ownerID, calendarID string, patch application.CalendarPatch) (application.Calendar, error)
	DeleteCalendar(ctx context.Context, ownerID, calendarID string) error
}

type CalendarHandler struct {
	service   calendarService
	validate  *validator.Validate
	responder responder
	logger    *slog.Logger
}

func NewCalendarHandler(service calendarService, validate *validator.Validate, logger *slog.Logger) *CalendarHandler {
	base := defaultLogger(logger)
	return &CalendarHandler{service: service, validate: validate, responder: newResponder(base), logger: base}
}

func (h *CalendarHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "CalendarHandler", operation, attrs...)
}

func (h *CalendarHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())

	var req calendarRequest
	if !decodeRequest(r.Context(), w, r, h.responder, h.validate, &req) {
		return
	}

	logger := h.log(r.Context(), "Create", "owner_id", claims.UserID)

	calendar, err := h.service.CreateCalendar(r.Context(), claims.UserID, req.Name, req.Description, req.Color)
	if err != nil {
		logger.ErrorContext(r.Context(), "calendar creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("calendar_id", calendar.ID).InfoContext(r.Context(), "calendar created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toCalendarDTO(calendar))
}

func (h *CalendarHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	calendarID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(calendarID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	calendar, err := h.service.GetCalendarByID(r.Context(), calendarID)
	if err != nil {
		h.log(r.Context(), "Get", "calendar_id", calendarID).ErrorContext(r.Context(), "calendar lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toCalendarDTO(calendar))
}

func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())

	calendars, err := h.service.GetCalendarsByOwnerID(r.Context(), claims.UserID)
	if err != nil {
		h.log(r.Context(), "List", "owner_id", claims.UserID).ErrorContext(r.Context(), "calendar listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listCalendarsResponse{Calendars: toCalendarDTOs(calendars)})
}

func (h *CalendarHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req calendarPatchRequest
	if !decodeRequest(r.Context(), w, r, h.responder, h.validate, &req) {
		return
	}

	logger := h.log(r.Context(), "Update", "calendar_id", calendarID, "owner_id", claims.UserID)

	calendar, err := h.service.UpdateCalendar(r.Context(), claims.UserID, calendarID, req.toPatch())
	if err != nil {
		logger.ErrorContext(r.Context(), "calendar update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "calendar updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toCalendarDTO(calendar))
}

func (h *CalendarHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	logger := h.log(r.Context(), "Delete", "calendar_id", calendarID, "owner_id", claims.UserID)

	if err := h.service.DeleteCalendar(r.Context(), claims.UserID, calendarID); err != nil {
		logger.ErrorContext(r.Context(), "calendar deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "calendar deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type calendarRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

type calendarPatchRequest struct {
	ID          string  `json:"id"`
	OwnerID     string  `json:"owner_id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

func (r calendarPatchRequest) toPatch() application.CalendarPatch {
	return application.CalendarPatch{
		ID:          strings.TrimSpace(r.ID),
		OwnerID:     strings.TrimSpace(r.OwnerID),
		Name:        r.Name,
		Description: r.Description,
		Color:       r.Color,
	}
}

type listCalendarsResponse struct {
	Calendars []calendarDTO `json:"calendars"`
}

type calendarDTO struct {
	ID          string  `json:"id"`
	OwnerID     string  `json:"owner_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Color       string  `json:"color"`
	ImportURL   *string `json:"import_url,omitempty"`
	UpdateRule  *string `json:"update_rule,omitempty"`
	PublicToken *string `json:"public_token,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

func toCalendarDTO(calendar application.Calendar) calendarDTO {
	return calendarDTO{
		ID:          calendar.ID,
		OwnerID:     calendar.OwnerID,
		Name:        calendar.Name,
		Description: calendar.Description,
		Color:       calendar.Color,
		ImportURL:   calendar.ImportURL,
		UpdateRule:  calendar.UpdateRule,
		PublicToken: calendar.PublicToken,
		CreatedAt:   formatTimestamp(calendar.CreatedAt),
		UpdatedAt:   formatTimestamp(calendar.UpdatedAt),
	}
}

func toCalendarDTOs(calendars []application.Calendar) []calendarDTO {
	if len(calendars) == 0 {
		return nil
	}
	out := make([]calendarDTO, 0, len(calendars))
	for _, calendar := range calendars {
		out = append(out, toCalendarDTO(calendar))
	}
	return out
}

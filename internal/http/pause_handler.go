package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/example/team-calendar/internal/application"
)

type pauseService interface {
	CreatePause(ctx context.Context, recurrentAppointmentID string, start, end time.Time) (application.Pause, error)
	UpdatePause(ctx context.Context, pauseID string, patch application.PausePatch) (application.Pause, error)
	DeletePause(ctx context.Context, pauseID string) error
	GetPausesByRecurrentAppointmentID(ctx context.Context, recurrentAppointmentID string) ([]application.Pause, error)
	IsDateInPause(ctx context.Context, recurrentAppointmentID string, date time.Time) (bool, error)
}

type PauseHandler struct {
	service   pauseService
	validate  *validator.Validate
	responder responder
	logger    *slog.Logger
}

func NewPauseHandler(service pauseService, validate *validator.Validate, logger *slog.Logger) *PauseHandler {
	base := defaultLogger(logger)
	return &PauseHandler{service: service, validate: validate, responder: newResponder(base), logger: base}
}

func (h *PauseHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "PauseHandler", operation, attrs...)
}

func (h *PauseHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req pauseRequest
	if !decodeRequest(r.Context(), w, r, h.responder, h.validate, &req) {
		return
	}

	logger := h.log(r.Context(), "Create", "recurrent_appointment_id", req.RecurrentAppointmentID)

	pause, err := h.service.CreatePause(r.Context(), req.RecurrentAppointmentID, parseTimestamp(req.Start), parseTimestamp(req.End))
	if err != nil {
		logger.ErrorContext(r.Context(), "pause creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("pause_id", pause.ID).InfoContext(r.Context(), "pause created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toPauseDTO(pause))
}

// ListByRecurrent lists the pauses of a recurrent appointment. When the
// request carries a `date` query parameter the handler instead reports
// whether that date falls inside a pause.
func (h *PauseHandler) ListByRecurrent(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	recurrentID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(recurrentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		date := parseTimestamp(raw)
		if date.IsZero() {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("the date query parameter is not a valid timestamp"))
			return
		}

		paused, err := h.service.IsDateInPause(r.Context(), recurrentID, date)
		if err != nil {
			h.log(r.Context(), "ListByRecurrent", "recurrent_appointment_id", recurrentID).ErrorContext(r.Context(), "pause check failed", "error", err, "error_kind", application.ErrorKind(err))
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}

		h.responder.writeJSON(r.Context(), w, http.StatusOK, pauseCheckResponse{Paused: paused})
		return
	}

	pauses, err := h.service.GetPausesByRecurrentAppointmentID(r.Context(), recurrentID)
	if err != nil {
		h.log(r.Context(), "ListByRecurrent", "recurrent_appointment_id", recurrentID).ErrorContext(r.Context(), "pause listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listPausesResponse{Pauses: toPauseDTOs(pauses)})
}

func (h *PauseHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	pauseID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(pauseID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	var req pausePatchRequest
	if !decodeRequest(r.Context(), w, r, h.responder, h.validate, &req) {
		return
	}

	logger := h.log(r.Context(), "Update", "pause_id", pauseID)

	pause, err := h.service.UpdatePause(r.Context(), pauseID, application.PausePatch{
		Start: parseOptionalTimestamp(req.Start),
		End:   parseOptionalTimestamp(req.End),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "pause update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "pause updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toPauseDTO(pause))
}

func (h *PauseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	pauseID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(pauseID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	logger := h.log(r.Context(), "Delete", "pause_id", pauseID)

	if err := h.service.DeletePause(r.Context(), pauseID); err != nil {
		logger.ErrorContext(r.Context(), "pause deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "pause deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type pauseRequest struct {
	RecurrentAppointmentID string `json:"recurrent_appointment_id" validate:"required"`
	Start                  string `json:"start" validate:"required"`
	End                    string `json:"end" validate:"required"`
}

type pausePatchRequest struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

type pauseCheckResponse struct {
	Paused bool `json:"paused"`
}

type listPausesResponse struct {
	Pauses []pauseDTO `json:"pauses"`
}

type pauseDTO struct {
	ID                     string `json:"id"`
	RecurrentAppointmentID string `json:"recurrent_appointment_id"`
	Start                  string `json:"start"`
	End                    string `json:"end"`
	CreatedAt              string `json:"created_at"`
}

func toPauseDTO(pause application.Pause) pauseDTO {
	return pauseDTO{
		ID:                     pause.ID,
		RecurrentAppointmentID: pause.RecurrentAppointmentID,
		Start:                  formatTimestamp(pause.Start),
		End:                    formatTimestamp(pause.End),
		CreatedAt:              formatTimestamp(pause.CreatedAt),
	}
}

func toPauseDTOs(pauses []application.Pause) []pauseDTO {
	if len(pauses) == 0 {
		return nil
	}
	out := make([]pauseDTO, 0, len(pauses))
	for _, pause := range pauses {
		out = append(out, toPauseDTO(pause))
	}
	return out
}

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

type appointmentService interface {
	CreateAppointment(ctx context.Context, ownerID, calendarID, title, description string, start, end time.Time, tags []string) (application.Appointment, error)
	CreateRecurrentAppointment(ctx context.Context, ownerID, calendarID, title, description string, start, end time.Time, rule application.RecursionRule, recursionEnd time.Time, tags []string) (application.RecurrentAppointment, error)
	GetAppointmentByID(ctx context.Context, id string) (application.Appointment, error)
	GetAllAppointmentsByCalendarID(ctx context.Context, calendarID string) ([]application.Appointment, []application.RecurrentAppointment, error)
	UpdateAppointment(ctx context.Context, ownerID, appointmentID string, patch application.AppointmentPatch) (application.Appointment, error)
	UpdateRecurrentAppointment(ctx context.Context, ownerID, appointmentID string, patch application.RecurrentAppointmentPatch) (application.RecurrentAppointment, error)
	DeleteAppointment(ctx context.Context, ownerID, appointmentID string) error
	DeleteRecurrentAppointment(ctx context.Context, ownerID, appointmentID string) error
}

type occurrenceExpander interface {
	ExpandOccurrences(ctx context.Context, recurrentAppointmentID string, from, to time.Time) ([]application.Occurrence, error)
}

type AppointmentHandler struct {
	service     appointmentService
	occurrences occurrenceExpander
	validate    *validator.Validate
	responder   responder
	logger      *slog.Logger
}

func NewAppointmentHandler(service appointmentService, occurrences occurrenceExpander, validate *validator.Validate, logger *slog.Logger) *AppointmentHandler {
	base := defaultLogger(logger)
	return &AppointmentHandler{service: service, occurrences: occurrences, validate: validate, responder: newResponder(base), logger: base}
}

func (h *AppointmentHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AppointmentHandler", operation, attrs...)
}

// Create builds a single appointment, or a recurrent one when the request
// carries a recursion rule.
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())

	var req appointmentRequest
	if !decodeRequest(r.Context(), w, r, h.responder, h.validate, &req) {
		return
	}

	logger := h.log(r.Context(), "Create", "owner_id", claims.UserID, "calendar_id", req.CalendarID)

	if rule := strings.ToUpper(strings.TrimSpace(req.RecursionRule)); rule != "" {
		recurrent, err := h.service.CreateRecurrentAppointment(
			r.Context(),
			claims.UserID,
			req.CalendarID,
			req.Title,
			req.Description,
			parseTimestamp(req.Start),
			parseTimestamp(req.End),
			application.RecursionRule(rule),
			parseTimestamp(req.RecursionEnd),
			req.Tags,
		)
		if err != nil {
			logger.ErrorContext(r.Context(), "recurrent appointment creation failed", "error", err, "error_kind", application.ErrorKind(err))
			h.responder.handleServiceError(r.Context(), w, err)
			return
		}

		logger.With("appointment_id", recurrent.ID).InfoContext(r.Context(), "recurrent appointment created")
		h.responder.writeJSON(r.Context(), w, http.StatusCreated, toRecurrentAppointmentDTO(recurrent))
		return
	}

	appointment, err := h.service.CreateAppointment(
		r.Context(),
		claims.UserID,
		req.CalendarID,
		req.Title,
		req.Description,
		parseTimestamp(req.Start),
		parseTimestamp(req.End),
		req.Tags,
	)
	if err != nil {
		logger.ErrorContext(r.Context(), "appointment creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("appointment_id", appointment.ID).InfoContext(r.Context(), "appointment created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toAppointmentDTO(appointment))
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	appointmentID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(appointmentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	appointment, err := h.service.GetAppointmentByID(r.Context(), appointmentID)
	if err != nil {
		h.log(r.Context(), "Get", "appointment_id", appointmentID).ErrorContext(r.Context(), "appointment lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAppointmentDTO(appointment))
}

// ListByCalendar returns both single and recurrent appointments of a
// calendar in one response.
func (h *AppointmentHandler) ListByCalendar(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	calendarID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(calendarID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	appointments, recurrents, err := h.service.GetAllAppointmentsByCalendarID(r.Context(), calendarID)
	if err != nil {
		h.log(r.Context(), "ListByCalendar", "calendar_id", calendarID).ErrorContext(r.Context(), "appointment listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listAppointmentsResponse{
		Appointments:          toAppointmentDTOs(appointments),
		RecurrentAppointments: toRecurrentAppointmentDTOs(recurrents),
	})
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	appointmentID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(appointmentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())

	var req appointmentPatchRequest
	if !decodeRequest(r.Context(), w, r, h.responder, h.validate, &req) {
		return
	}

	logger := h.log(r.Context(), "Update", "appointment_id", appointmentID, "owner_id", claims.UserID)

	appointment, err := h.service.UpdateAppointment(r.Context(), claims.UserID, appointmentID, req.toPatch())
	if err != nil {
		logger.ErrorContext(r.Context(), "appointment update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "appointment updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAppointmentDTO(appointment))
}

func (h *AppointmentHandler) UpdateRecurrent(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	appointmentID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(appointmentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())

	var req recurrentAppointmentPatchRequest
	if !decodeRequest(r.Context(), w, r, h.responder, h.validate, &req) {
		return
	}

	logger := h.log(r.Context(), "UpdateRecurrent", "appointment_id", appointmentID, "owner_id", claims.UserID)

	recurrent, err := h.service.UpdateRecurrentAppointment(r.Context(), claims.UserID, appointmentID, req.toPatch())
	if err != nil {
		logger.ErrorContext(r.Context(), "recurrent appointment update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "recurrent appointment updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRecurrentAppointmentDTO(recurrent))
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	appointmentID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(appointmentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Delete", "appointment_id", appointmentID, "owner_id", claims.UserID)

	if err := h.service.DeleteAppointment(r.Context(), claims.UserID, appointmentID); err != nil {
		logger.ErrorContext(r.Context(), "appointment deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "appointment deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *AppointmentHandler) DeleteRecurrent(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	appointmentID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(appointmentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "DeleteRecurrent", "appointment_id", appointmentID, "owner_id", claims.UserID)

	if err := h.service.DeleteRecurrentAppointment(r.Context(), claims.UserID, appointmentID); err != nil {
		logger.ErrorContext(r.Context(), "recurrent appointment deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "recurrent appointment deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Occurrences expands a recurrent appointment into its concrete instances,
// with pauses already applied. Optional `from` and `to` query parameters
// clip the window; without `to` the expansion runs to the recursion end.
func (h *AppointmentHandler) Occurrences(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.occurrences == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	appointmentID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(appointmentID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	var from, to time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		if from = parseTimestamp(raw); from.IsZero() {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("the from query parameter is not a valid timestamp"))
			return
		}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		if to = parseTimestamp(raw); to.IsZero() {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errors.New("the to query parameter is not a valid timestamp"))
			return
		}
	}

	occurrences, err := h.occurrences.ExpandOccurrences(r.Context(), appointmentID, from, to)
	if err != nil {
		h.log(r.Context(), "Occurrences", "appointment_id", appointmentID).ErrorContext(r.Context(), "occurrence expansion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, occurrencesResponse{Occurrences: toOccurrenceDTOs(occurrences)})
}

type appointmentRequest struct {
	CalendarID    string   `json:"calendar_id" validate:"required"`
	Title         string   `json:"title" validate:"required,min=1,max=200"`
	Description   string   `json:"description"`
	Start         string   `json:"start" validate:"required"`
	End           string   `json:"end" validate:"required"`
	Tags          []string `json:"tags"`
	RecursionRule string   `json:"recursion_rule"`
	RecursionEnd  string   `json:"recursion_end"`
}

type appointmentPatchRequest struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	CalendarID  *string   `json:"calendar_id"`
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Start       *string   `json:"start"`
	End         *string   `json:"end"`
	Tags        *[]string `json:"tags"`
}

func (r appointmentPatchRequest) toPatch() application.AppointmentPatch {
	patch := application.AppointmentPatch{
		ID:          strings.TrimSpace(r.ID),
		OwnerID:     strings.TrimSpace(r.OwnerID),
		CalendarID:  r.CalendarID,
		Title:       r.Title,
		Description: r.Description,
		Start:       parseOptionalTimestamp(r.Start),
		End:         parseOptionalTimestamp(r.End),
	}
	if r.Tags != nil {
		patch.Tags = append([]string(nil), (*r.Tags)...)
		patch.HasTags = true
	}
	return patch
}

type recurrentAppointmentPatchRequest struct {
	appointmentPatchRequest
	RecursionRule *string `json:"recursion_rule"`
	RecursionEnd  *string `json:"recursion_end"`
}

func (r recurrentAppointmentPatchRequest) toPatch() application.RecurrentAppointmentPatch {
	patch := application.RecurrentAppointmentPatch{
		AppointmentPatch: r.appointmentPatchRequest.toPatch(),
		RecursionEnd:     parseOptionalTimestamp(r.RecursionEnd),
	}
	if r.RecursionRule != nil {
		rule := application.RecursionRule(strings.ToUpper(strings.TrimSpace(*r.RecursionRule)))
		patch.RecursionRule = &rule
	}
	return patch
}

func parseOptionalTimestamp(value *string) *time.Time {
	if value == nil {
		return nil
	}
	ts := parseTimestamp(*value)
	return &ts
}

type occurrencesResponse struct {
	Occurrences []occurrenceDTO `json:"occurrences"`
}

type occurrenceDTO struct {
	RecurrentAppointmentID string `json:"recurrent_appointment_id"`
	Start                  string `json:"start"`
	End                    string `json:"end"`
}

func toOccurrenceDTOs(occurrences []application.Occurrence) []occurrenceDTO {
	if len(occurrences) == 0 {
		return nil
	}
	out := make([]occurrenceDTO, 0, len(occurrences))
	for _, occ := range occurrences {
		out = append(out, occurrenceDTO{
			RecurrentAppointmentID: occ.RecurrentAppointmentID,
			Start:                  formatTimestamp(occ.Start),
			End:                    formatTimestamp(occ.End),
		})
	}
	return out
}

type listAppointmentsResponse struct {
	Appointments          []appointmentDTO          `json:"appointments"`
	RecurrentAppointments []recurrentAppointmentDTO `json:"recurrent_appointments"`
}

type appointmentDTO struct {
	ID          string   `json:"id"`
	CalendarID  string   `json:"calendar_id"`
	OwnerID     string   `json:"owner_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

func toAppointmentDTO(appointment application.Appointment) appointmentDTO {
	return appointmentDTO{
		ID:          appointment.ID,
		CalendarID:  appointment.CalendarID,
		OwnerID:     appointment.OwnerID,
		Title:       appointment.Title,
		Description: appointment.Description,
		Start:       formatTimestamp(appointment.Start),
		End:         formatTimestamp(appointment.End),
		Tags:        append([]string(nil), appointment.TagIDs...),
		CreatedAt:   formatTimestamp(appointment.CreatedAt),
		UpdatedAt:   formatTimestamp(appointment.UpdatedAt),
	}
}

func toAppointmentDTOs(appointments []application.Appointment) []appointmentDTO {
	if len(appointments) == 0 {
		return nil
	}
	out := make([]appointmentDTO, 0, len(appointments))
	for _, appointment := range appointments {
		out = append(out, toAppointmentDTO(appointment))
	}
	return out
}

type recurrentAppointmentDTO struct {
	ID            string   `json:"id"`
	CalendarID    string   `json:"calendar_id"`
	OwnerID       string   `json:"owner_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Start         string   `json:"start"`
	End           string   `json:"end"`
	RecursionRule string   `json:"recursion_rule"`
	RecursionEnd  string   `json:"recursion_end"`
	Tags          []string `json:"tags"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

func toRecurrentAppointmentDTO(recurrent application.RecurrentAppointment) recurrentAppointmentDTO {
	return recurrentAppointmentDTO{
		ID:            recurrent.ID,
		CalendarID:    recurrent.CalendarID,
		OwnerID:       recurrent.OwnerID,
		Title:         recurrent.Title,
		Description:   recurrent.Description,
		Start:         formatTimestamp(recurrent.Start),
		End:           formatTimestamp(recurrent.End),
		RecursionRule: string(recurrent.RecursionRule),
		RecursionEnd:  formatTimestamp(recurrent.RecursionEnd),
		Tags:          append([]string(nil), recurrent.TagIDs...),
		CreatedAt:     formatTimestamp(recurrent.CreatedAt),
		UpdatedAt:     formatTimestamp(recurrent.UpdatedAt),
	}
}

func toRecurrentAppointmentDTOs(recurrents []application.RecurrentAppointment) []recurrentAppointmentDTO {
	if len(recurrents) == 0 {
		return nil
	}
	out := make([]recurrentAppointmentDTO, 0, len(recurrents))
	for _, recurrent := range recurrents {
		out = append(out, toRecurrentAppointmentDTO(recurrent))
	}
	return out
}

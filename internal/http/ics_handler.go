package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/team-calendar/internal/application"
	"github.com/example/team-calendar/internal/ics"
)

type calendarGetter interface {
	GetCalendarByID(ctx context.Context, id string) (application.Calendar, error)
}

type tagLister interface {
	GetTagsByOwnerID(ctx context.Context, ownerID string) ([]application.Tag, error)
}

// ICSHandler serves iCalendar exports of a calendar and imports external
// iCalendar feeds into one.
type ICSHandler struct {
	calendars    calendarGetter
	appointments appointmentService
	tags         tagLister
	responder    responder
	logger       *slog.Logger
}

func NewICSHandler(calendars calendarGetter, appointments appointmentService, tags tagLister, logger *slog.Logger) *ICSHandler {
	base := defaultLogger(logger)
	return &ICSHandler{calendars: calendars, appointments: appointments, tags: tags, responder: newResponder(base), logger: base}
}

func (h *ICSHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ICSHandler", operation, attrs...)
}

// Export streams the calendar's appointments as a text/calendar document.
func (h *ICSHandler) Export(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.calendars == nil || h.appointments == nil || h.tags == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	calendarID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(calendarID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	logger := h.log(r.Context(), "Export", "calendar_id", calendarID)

	calendar, err := h.calendars.GetCalendarByID(r.Context(), calendarID)
	if err != nil {
		logger.ErrorContext(r.Context(), "calendar lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	appointments, recurrents, err := h.appointments.GetAllAppointmentsByCalendarID(r.Context(), calendarID)
	if err != nil {
		logger.ErrorContext(r.Context(), "appointment listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	ownerTags, err := h.tags.GetTagsByOwnerID(r.Context(), calendar.OwnerID)
	if err != nil {
		logger.ErrorContext(r.Context(), "tag listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	tagNames := make(map[string]string, len(ownerTags))
	for _, tag := range ownerTags {
		tagNames[tag.ID] = tag.Name
	}

	events := make([]ics.Event, 0, len(appointments)+len(recurrents))
	for _, appointment := range appointments {
		events = append(events, ics.Event{
			UID:         appointment.ID,
			Summary:     appointment.Title,
			Description: appointment.Description,
			Start:       appointment.Start,
			End:         appointment.End,
			Categories:  resolveCategories(appointment.TagIDs, tagNames),
		})
	}
	for _, recurrent := range recurrents {
		events = append(events, ics.Event{
			UID:         recurrent.ID,
			Summary:     recurrent.Title,
			Description: recurrent.Description,
			Start:       recurrent.Start,
			End:         recurrent.End,
			Categories:  resolveCategories(recurrent.TagIDs, tagNames),
			Frequency:   string(recurrent.RecursionRule),
			Until:       recurrent.RecursionEnd,
		})
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+calendar.ID+`.ics"`)
	if err := ics.Encode(w, calendar.Name, events); err != nil {
		logger.ErrorContext(r.Context(), "failed to encode calendar export", "error", err)
		return
	}

	logger.With("event_count", len(events)).InfoContext(r.Context(), "calendar exported")
}

// Import parses an iCalendar document from the request body and creates its
// events as the caller's appointments in the target calendar. Events with a
// recognised recurrence rule become recurrent appointments.
func (h *ICSHandler) Import(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.appointments == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	calendarID, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(calendarID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	claims, _ := PrincipalFromContext(r.Context())
	logger := h.log(r.Context(), "Import", "calendar_id", calendarID, "owner_id", claims.UserID)

	events, err := ics.Decode(r.Body)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to parse calendar document", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	imported := 0
	for _, event := range events {
		if event.Frequency != "" {
			if _, err := h.appointments.CreateRecurrentAppointment(
				r.Context(), claims.UserID, calendarID,
				event.Summary, event.Description,
				event.Start, event.End,
				application.RecursionRule(event.Frequency), event.Until,
				nil,
			); err != nil {
				logger.ErrorContext(r.Context(), "event import failed", "error", err, "error_kind", application.ErrorKind(err))
				h.responder.handleServiceError(r.Context(), w, err)
				return
			}
		} else {
			if _, err := h.appointments.CreateAppointment(
				r.Context(), claims.UserID, calendarID,
				event.Summary, event.Description,
				event.Start, event.End,
				nil,
			); err != nil {
				logger.ErrorContext(r.Context(), "event import failed", "error", err, "error_kind", application.ErrorKind(err))
				h.responder.handleServiceError(r.Context(), w, err)
				return
			}
		}
		imported++
	}

	logger.With("event_count", imported).InfoContext(r.Context(), "calendar imported")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, importResponse{Imported: imported})
}

type importResponse struct {
	Imported int `json:"imported"`
}

// resolveCategories maps stored tag ids onto their display names. An id
// without a matching tag is exported as-is rather than dropped.
func resolveCategories(ids []string, names map[string]string) []string {
	if len(ids) == 0 {
		return nil
	}
	categories := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok {
			categories = append(categories, name)
			continue
		}
		categories = append(categories, id)
	}
	return categories
}

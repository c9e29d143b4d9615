package handlers

import (
	"net/http"
	"time"

	"familia/internal/models"
	"familia/internal/service"
)

// CalendarHandler handles family calendar requests
type CalendarHandler struct {
	calendar *service.CalendarService
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(calendar *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{calendar: calendar}
}

// Events returns a family's events on ?day=YYYY-MM-DD, today when omitted
func (h *CalendarHandler) Events(w http.ResponseWriter, r *http.Request) {
	day := time.Now().UTC()
	if raw := r.URL.Query().Get("day"); raw != "" {
		parsed, err := time.ParseInLocation(dayLayout, raw, time.UTC)
		if err != nil {
			respondWithMessage(w, http.StatusBadRequest, "day must be formatted as YYYY-MM-DD")
			return
		}
		day = parsed
	}

	events, err := h.calendar.EventsForDay(r.Context(), GetUserIDFromContext(r.Context()), r.PathValue("id"), day)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	if events == nil {
		events = []models.CalendarEvent{}
	}
	respondSuccess(w, http.StatusOK, events)
}

// AddEvent creates an event in a family's calendar
func (h *CalendarHandler) AddEvent(w http.ResponseWriter, r *http.Request) {
	var req service.NewEvent
	if !decodeJSON(w, r, &req) {
		return
	}
	event, err := h.calendar.AddEvent(r.Context(), GetUserIDFromContext(r.Context()), r.PathValue("id"), req)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondSuccess(w, http.StatusCreated, event)
}

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/qviuqh/calendar-api/internal/calendar"
	"github.com/qviuqh/calendar-api/internal/models"
	"github.com/qviuqh/calendar-api/internal/store"
)

type calendarCreateRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type calendarUpdateRequest struct {
	Name     *string `json:"name"`
	Timezone *string `json:"timezone"`
}

func (api *Api) CreateCalendarHandler(w http.ResponseWriter, r *http.Request) {
	var req calendarCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	cal, err := api.calendars.CreateCalendar(userIDFrom(r.Context()), req.Name, req.Timezone)
	if err != nil {
		api.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, cal)
}

func (api *Api) ListCalendarsHandler(w http.ResponseWriter, r *http.Request) {
	calendars, err := api.calendars.ListCalendars(userIDFrom(r.Context()))
	if err != nil {
		api.handleError(w, err)
		return
	}
	if calendars == nil {
		calendars = []*models.Calendar{}
	}

	respondJSON(w, http.StatusOK, calendars)
}

func (api *Api) GetCalendarHandler(w http.ResponseWriter, r *http.Request) {
	cal, err := api.calendars.GetCalendar(userIDFrom(r.Context()), chi.URLParam(r, "calendarID"))
	if err != nil {
		api.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cal)
}

func (api *Api) UpdateCalendarHandler(w http.ResponseWriter, r *http.Request) {
	var req calendarUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cal, err := api.calendars.UpdateCalendar(
		userIDFrom(r.Context()),
		chi.URLParam(r, "calendarID"),
		calendar.CalendarChanges{Name: req.Name, Timezone: req.Timezone},
	)
	if err != nil {
		api.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cal)
}

func (api *Api) DeleteCalendarHandler(w http.ResponseWriter, r *http.Request) {
	err := api.calendars.DeleteCalendar(userIDFrom(r.Context()), chi.URLParam(r, "calendarID"))
	if err != nil {
		api.handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *Api) ExportCalendarHandler(w http.ResponseWriter, r *http.Request) {
	if api.exporter == nil {
		respondError(w, http.StatusServiceUnavailable, "export is not configured")
		return
	}

	userID := userIDFrom(r.Context())
	calendarID := chi.URLParam(r, "calendarID")

	cal, err := api.calendars.GetCalendar(userID, calendarID)
	if err != nil {
		api.handleError(w, err)
		return
	}

	events, err := api.calendars.ListEvents(userID, store.EventFilter{CalendarID: calendarID})
	if err != nil {
		api.handleError(w, err)
		return
	}

	result, err := api.exporter.Export(r.Context(), cal, events)
	if err != nil {
		api.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

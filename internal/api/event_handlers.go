package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/qviuqh/calendar-api/internal/calendar"
	"github.com/qviuqh/calendar-api/internal/models"
	"github.com/qviuqh/calendar-api/internal/store"
)

type eventCreateRequest struct {
	CalendarID  string    `json:"calendar_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Location    *string   `json:"location"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	IsAllDay    bool      `json:"is_all_day"`
}

type eventUpdateRequest struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Location    *string             `json:"location"`
	StartAt     *time.Time          `json:"start_at"`
	EndAt       *time.Time          `json:"end_at"`
	IsAllDay    *bool               `json:"is_all_day"`
	Status      *models.EventStatus `json:"status"`
}

// boolQuery parses a boolean query parameter. Absent means the default;
// anything ParseBool does not accept is an error rather than a silent
// fallback, so a typo cannot flip delete or conflict semantics.
func boolQuery(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q", name, raw)
	}
	return v, nil
}

func (api *Api) CreateEventHandler(w http.ResponseWriter, r *http.Request) {
	var req eventCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CalendarID == "" || req.Title == "" {
		respondError(w, http.StatusBadRequest, "calendar_id and title are required")
		return
	}
	if req.StartAt.IsZero() || req.EndAt.IsZero() {
		respondError(w, http.StatusBadRequest, "start_at and end_at are required")
		return
	}
	checkConflicts, err := boolQuery(r, "check_conflicts", true)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := api.calendars.CreateEvent(userIDFrom(r.Context()), calendar.EventInput{
		CalendarID:  req.CalendarID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		IsAllDay:    req.IsAllDay,
	}, checkConflicts)
	if err != nil {
		api.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, event)
}

func (api *Api) ListEventsHandler(w http.ResponseWriter, r *http.Request) {
	filter := store.EventFilter{
		CalendarID: r.URL.Query().Get("calendar_id"),
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid 'from' timestamp")
			return
		}
		filter.From = &t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid 'to' timestamp")
			return
		}
		filter.To = &t
	}

	events, err := api.calendars.ListEvents(userIDFrom(r.Context()), filter)
	if err != nil {
		api.handleError(w, err)
		return
	}
	if events == nil {
		events = []*models.Event{}
	}

	respondJSON(w, http.StatusOK, events)
}

func (api *Api) GetEventHandler(w http.ResponseWriter, r *http.Request) {
	event, err := api.calendars.GetEvent(userIDFrom(r.Context()), chi.URLParam(r, "eventID"))
	if err != nil {
		api.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, event)
}

func (api *Api) UpdateEventHandler(w http.ResponseWriter, r *http.Request) {
	var req eventUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	checkConflicts, err := boolQuery(r, "check_conflicts", true)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := api.calendars.UpdateEvent(
		userIDFrom(r.Context()),
		chi.URLParam(r, "eventID"),
		calendar.EventChanges{
			Title:       req.Title,
			Description: req.Description,
			Location:    req.Location,
			StartAt:     req.StartAt,
			EndAt:       req.EndAt,
			IsAllDay:    req.IsAllDay,
			Status:      req.Status,
		},
		checkConflicts,
	)
	if err != nil {
		api.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, event)
}

func (api *Api) DeleteEventHandler(w http.ResponseWriter, r *http.Request) {
	soft, err := boolQuery(r, "soft_delete", true)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = api.calendars.DeleteEvent(
		userIDFrom(r.Context()),
		chi.URLParam(r, "eventID"),
		soft,
	)
	if err != nil {
		api.handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

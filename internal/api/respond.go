package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/qviuqh/calendar-api/internal/auth"
	"github.com/qviuqh/calendar-api/internal/calendar"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("Error encoding response: %v", err)
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// handleError maps domain errors 1:1 to status codes. Ownership failures
// surface as 404, never 403. Anything outside the domain taxonomy is a
// server-side fault and is never coerced into it.
func (api *Api) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, calendar.ErrInvalidTimeRange),
		errors.Is(err, calendar.ErrInvalidStatus),
		errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrPasswordTooLong):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, calendar.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, calendar.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("Internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

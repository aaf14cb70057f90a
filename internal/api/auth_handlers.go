package api

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/qviuqh/calendar-api/internal/auth"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (api *Api) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !auth.ValidateEmail(creds.Email) {
		respondError(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if !auth.ValidatePassword(creds.Password) {
		respondError(w, http.StatusBadRequest, "password does not meet requirements")
		return
	}

	user, err := api.auth.Register(creds.Email, creds.Password)
	if err != nil {
		api.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

func (api *Api) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := api.auth.Login(creds.Email, creds.Password, clientMeta(r))
	if err != nil {
		api.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, pair)
}

func (api *Api) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := api.auth.Refresh(req.RefreshToken, clientMeta(r))
	if err != nil {
		api.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, pair)
}

func (api *Api) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	if err := api.auth.Logout(req.RefreshToken); err != nil {
		api.handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (api *Api) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, err := api.auth.GetUser(userIDFrom(r.Context()))
	if err != nil {
		api.handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// clientMeta captures optional session metadata from the request. RealIP
// middleware has already resolved forwarded addresses.
func clientMeta(r *http.Request) auth.ClientMeta {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		host = h
	}
	return auth.ClientMeta{
		UserAgent: r.UserAgent(),
		IPAddress: host,
	}
}

package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/qviuqh/calendar-api/internal/auth"
	"github.com/qviuqh/calendar-api/internal/config"
	"github.com/qviuqh/calendar-api/internal/database"
	"github.com/qviuqh/calendar-api/internal/models"
)

type ApiTestSuite struct {
	suite.Suite
	db  *sql.DB
	api *Api
}

func (s *ApiTestSuite) SetupTest() {
	dbPath := filepath.Join(s.T().TempDir(), "api_test.db")
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	assert.NoError(s.T(), err)
	assert.NoError(s.T(), database.RunMigrations(db, "sqlite"))
	s.db = db

	cfg := config.Config{APIPort: 8080}
	cfg.Database.Type = "sqlite"
	cfg.Auth.SigningSecret = "test-secret"
	cfg.Auth.SigningAlgorithm = "HS256"
	cfg.Auth.AccessTokenMinutes = 15
	cfg.Auth.RefreshTokenDays = 30

	s.api, err = NewApi(cfg, db)
	assert.NoError(s.T(), err)
}

func (s *ApiTestSuite) TearDownTest() {
	s.db.Close()
}

func TestApiTestSuite(t *testing.T) {
	suite.Run(t, new(ApiTestSuite))
}

// request performs an in-memory HTTP request against the router and decodes
// the JSON response into out when it is non-nil.
func (s *ApiTestSuite) request(method, path, token string, body any, out any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.api.Router.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		assert.NoError(s.T(), json.NewDecoder(rec.Body).Decode(out))
	}
	return rec
}

func (s *ApiTestSuite) registerAndLogin(email string) auth.TokenPair {
	creds := map[string]string{"email": email, "password": "Sup3rSecret"}

	rec := s.request(http.MethodPost, "/auth/register", "", creds, nil)
	assert.Equal(s.T(), http.StatusCreated, rec.Code)

	var pair auth.TokenPair
	rec = s.request(http.MethodPost, "/auth/login", "", creds, &pair)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.NotEmpty(s.T(), pair.AccessToken)
	assert.NotEmpty(s.T(), pair.RefreshToken)
	return pair
}

func (s *ApiTestSuite) createCalendar(token, name string) models.Calendar {
	var cal models.Calendar
	rec := s.request(http.MethodPost, "/calendars", token, map[string]string{"name": name}, &cal)
	assert.Equal(s.T(), http.StatusCreated, rec.Code)
	assert.NotEmpty(s.T(), cal.ID)
	return cal
}

func (s *ApiTestSuite) createEvent(token, calendarID, title string, start, end time.Time) models.Event {
	var event models.Event
	rec := s.request(http.MethodPost, "/events", token, map[string]any{
		"calendar_id": calendarID,
		"title":       title,
		"start_at":    start,
		"end_at":      end,
	}, &event)
	assert.Equal(s.T(), http.StatusCreated, rec.Code)
	return event
}

func (s *ApiTestSuite) TestRootAndHealth() {
	rec := s.request(http.MethodGet, "/", "", nil, nil)
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	var health map[string]string
	rec = s.request(http.MethodGet, "/health", "", nil, &health)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), "healthy", health["status"])

	rec = s.request(http.MethodGet, "/heartbeat", "", nil, nil)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
}

func (s *ApiTestSuite) TestRegisterValidation() {
	rec := s.request(http.MethodPost, "/auth/register", "",
		map[string]string{"email": "not-an-email", "password": "Sup3rSecret"}, nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)

	rec = s.request(http.MethodPost, "/auth/register", "",
		map[string]string{"email": "user@example.com", "password": "weak"}, nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)

	// Policy-compliant but past bcrypt's 72-byte input ceiling
	long := "Aa1" + strings.Repeat("x", 100)
	rec = s.request(http.MethodPost, "/auth/register", "",
		map[string]string{"email": "user@example.com", "password": long}, nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)

	rec = s.request(http.MethodPost, "/auth/register", "",
		map[string]string{"email": "user@.", "password": "Sup3rSecret"}, nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ApiTestSuite) TestRegisterDuplicateEmail() {
	s.registerAndLogin("user@example.com")

	rec := s.request(http.MethodPost, "/auth/register", "",
		map[string]string{"email": "user@example.com", "password": "Sup3rSecret"}, nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ApiTestSuite) TestLoginBadCredentials() {
	s.registerAndLogin("user@example.com")

	rec := s.request(http.MethodPost, "/auth/login", "",
		map[string]string{"email": "user@example.com", "password": "WrongPass1"}, nil)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)

	rec = s.request(http.MethodPost, "/auth/login", "",
		map[string]string{"email": "nobody@example.com", "password": "Sup3rSecret"}, nil)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}

func (s *ApiTestSuite) TestMe() {
	pair := s.registerAndLogin("user@example.com")

	rec := s.request(http.MethodGet, "/auth/me", pair.AccessToken, nil, nil)
	assert.Equal(s.T(), http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(s.T(), body, "user@example.com")
	// The stored digest never leaves the server
	assert.NotContains(s.T(), body, "password")
}

func (s *ApiTestSuite) TestRequireAuth() {
	rec := s.request(http.MethodGet, "/calendars", "", nil, nil)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)

	rec = s.request(http.MethodGet, "/calendars", "not-a-token", nil, nil)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}

func (s *ApiTestSuite) TestCalendarLifecycle() {
	pair := s.registerAndLogin("user@example.com")
	cal := s.createCalendar(pair.AccessToken, "Work")
	assert.Equal(s.T(), "UTC", cal.Timezone)

	var calendars []models.Calendar
	rec := s.request(http.MethodGet, "/calendars", pair.AccessToken, nil, &calendars)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Len(s.T(), calendars, 1)

	var updated models.Calendar
	rec = s.request(http.MethodPatch, "/calendars/"+cal.ID, pair.AccessToken,
		map[string]string{"timezone": "Europe/Berlin"}, &updated)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), "Europe/Berlin", updated.Timezone)
	assert.Equal(s.T(), "Work", updated.Name)

	rec = s.request(http.MethodDelete, "/calendars/"+cal.ID, pair.AccessToken, nil, nil)
	assert.Equal(s.T(), http.StatusNoContent, rec.Code)

	rec = s.request(http.MethodGet, "/calendars/"+cal.ID, pair.AccessToken, nil, nil)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

func (s *ApiTestSuite) TestEventConflictFlow() {
	pair := s.registerAndLogin("user@example.com")
	cal := s.createCalendar(pair.AccessToken, "Work")

	start := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	s.createEvent(pair.AccessToken, cal.ID, "Existing", start, start.Add(time.Hour))

	// Overlap rejected by default
	rec := s.request(http.MethodPost, "/events", pair.AccessToken, map[string]any{
		"calendar_id": cal.ID,
		"title":       "Overlap",
		"start_at":    start.Add(30 * time.Minute),
		"end_at":      start.Add(90 * time.Minute),
	}, nil)
	assert.Equal(s.T(), http.StatusConflict, rec.Code)

	// Same request with checking disabled goes through
	rec = s.request(http.MethodPost, "/events?check_conflicts=false", pair.AccessToken, map[string]any{
		"calendar_id": cal.ID,
		"title":       "Overlap",
		"start_at":    start.Add(30 * time.Minute),
		"end_at":      start.Add(90 * time.Minute),
	}, nil)
	assert.Equal(s.T(), http.StatusCreated, rec.Code)
}

func (s *ApiTestSuite) TestEventValidation() {
	pair := s.registerAndLogin("user@example.com")
	cal := s.createCalendar(pair.AccessToken, "Work")

	start := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	rec := s.request(http.MethodPost, "/events", pair.AccessToken, map[string]any{
		"calendar_id": cal.ID,
		"title":       "Backwards",
		"start_at":    start,
		"end_at":      start.Add(-time.Hour),
	}, nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)

	rec = s.request(http.MethodPost, "/events", pair.AccessToken,
		map[string]any{"title": "No calendar"}, nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ApiTestSuite) TestEventUpdateAndDelete() {
	pair := s.registerAndLogin("user@example.com")
	cal := s.createCalendar(pair.AccessToken, "Work")

	start := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	event := s.createEvent(pair.AccessToken, cal.ID, "Meeting", start, start.Add(time.Hour))

	var updated models.Event
	rec := s.request(http.MethodPatch, "/events/"+event.ID, pair.AccessToken,
		map[string]string{"title": "Renamed"}, &updated)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), "Renamed", updated.Title)

	// Default delete is a cancellation
	rec = s.request(http.MethodDelete, "/events/"+event.ID, pair.AccessToken, nil, nil)
	assert.Equal(s.T(), http.StatusNoContent, rec.Code)

	var cancelled models.Event
	rec = s.request(http.MethodGet, "/events/"+event.ID, pair.AccessToken, nil, &cancelled)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), models.EventStatusCancelled, cancelled.Status)

	// Hard delete removes the record
	rec = s.request(http.MethodDelete, fmt.Sprintf("/events/%s?soft_delete=false", event.ID), pair.AccessToken, nil, nil)
	assert.Equal(s.T(), http.StatusNoContent, rec.Code)

	rec = s.request(http.MethodGet, "/events/"+event.ID, pair.AccessToken, nil, nil)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

func (s *ApiTestSuite) TestEventListFilters() {
	pair := s.registerAndLogin("user@example.com")
	cal := s.createCalendar(pair.AccessToken, "Work")

	start := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	s.createEvent(pair.AccessToken, cal.ID, "Morning", start, start.Add(time.Hour))
	s.createEvent(pair.AccessToken, cal.ID, "Afternoon", start.Add(5*time.Hour), start.Add(6*time.Hour))

	var events []models.Event
	path := fmt.Sprintf("/events?calendar_id=%s&from=%s&to=%s",
		cal.ID,
		start.Add(4*time.Hour).Format(time.RFC3339),
		start.Add(8*time.Hour).Format(time.RFC3339),
	)
	rec := s.request(http.MethodGet, path, pair.AccessToken, nil, &events)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Len(s.T(), events, 1)
	assert.Equal(s.T(), "Afternoon", events[0].Title)

	rec = s.request(http.MethodGet, "/events?from=garbage", pair.AccessToken, nil, nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ApiTestSuite) TestBooleanQueryParams() {
	pair := s.registerAndLogin("user@example.com")
	cal := s.createCalendar(pair.AccessToken, "Work")

	start := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	event := s.createEvent(pair.AccessToken, cal.ID, "Meeting", start, start.Add(time.Hour))

	// A mistyped flag is rejected, not silently defaulted; the event is
	// neither cancelled nor removed
	rec := s.request(http.MethodDelete, "/events/"+event.ID+"?soft_delete=flase", pair.AccessToken, nil, nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)

	var got models.Event
	rec = s.request(http.MethodGet, "/events/"+event.ID, pair.AccessToken, nil, &got)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.Equal(s.T(), models.EventStatusConfirmed, got.Status)

	rec = s.request(http.MethodPost, "/events?check_conflicts=yes", pair.AccessToken, map[string]any{
		"calendar_id": cal.ID,
		"title":       "Overlap",
		"start_at":    start,
		"end_at":      start.Add(time.Hour),
	}, nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)

	// ParseBool's capitalized spellings work
	rec = s.request(http.MethodPost, "/events?check_conflicts=FALSE", pair.AccessToken, map[string]any{
		"calendar_id": cal.ID,
		"title":       "Overlap",
		"start_at":    start,
		"end_at":      start.Add(time.Hour),
	}, nil)
	assert.Equal(s.T(), http.StatusCreated, rec.Code)

	rec = s.request(http.MethodDelete, "/events/"+event.ID+"?soft_delete=False", pair.AccessToken, nil, nil)
	assert.Equal(s.T(), http.StatusNoContent, rec.Code)

	rec = s.request(http.MethodGet, "/events/"+event.ID, pair.AccessToken, nil, nil)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

func (s *ApiTestSuite) TestCrossTenantIsNotFound() {
	owner := s.registerAndLogin("owner@example.com")
	other := s.registerAndLogin("other@example.com")

	cal := s.createCalendar(owner.AccessToken, "Private")
	start := time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)
	event := s.createEvent(owner.AccessToken, cal.ID, "Secret", start, start.Add(time.Hour))

	rec := s.request(http.MethodGet, "/calendars/"+cal.ID, other.AccessToken, nil, nil)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)

	rec = s.request(http.MethodGet, "/events/"+event.ID, other.AccessToken, nil, nil)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)

	rec = s.request(http.MethodDelete, "/events/"+event.ID, other.AccessToken, nil, nil)
	assert.Equal(s.T(), http.StatusNotFound, rec.Code)
}

func (s *ApiTestSuite) TestRefreshAndLogout() {
	pair := s.registerAndLogin("user@example.com")

	var refreshed auth.TokenPair
	rec := s.request(http.MethodPost, "/auth/refresh", "",
		map[string]string{"refresh_token": pair.RefreshToken}, &refreshed)
	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.NotEmpty(s.T(), refreshed.AccessToken)
	// Without rotation the session secret is unchanged
	assert.Equal(s.T(), pair.RefreshToken, refreshed.RefreshToken)

	rec = s.request(http.MethodPost, "/auth/logout", "",
		map[string]string{"refresh_token": pair.RefreshToken}, nil)
	assert.Equal(s.T(), http.StatusNoContent, rec.Code)

	// Logging out again is fine
	rec = s.request(http.MethodPost, "/auth/logout", "",
		map[string]string{"refresh_token": pair.RefreshToken}, nil)
	assert.Equal(s.T(), http.StatusNoContent, rec.Code)

	// The revoked session can no longer refresh
	rec = s.request(http.MethodPost, "/auth/refresh", "",
		map[string]string{"refresh_token": pair.RefreshToken}, nil)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)

	rec = s.request(http.MethodPost, "/auth/refresh", "", map[string]string{}, nil)
	assert.Equal(s.T(), http.StatusBadRequest, rec.Code)
}

func (s *ApiTestSuite) TestExportUnconfigured() {
	pair := s.registerAndLogin("user@example.com")
	cal := s.createCalendar(pair.AccessToken, "Work")

	rec := s.request(http.MethodPost, "/calendars/"+cal.ID+"/export", pair.AccessToken, nil, nil)
	assert.Equal(s.T(), http.StatusServiceUnavailable, rec.Code)
}

func TestNewApiValidation(t *testing.T) {
	cfg := config.Config{}
	_, err := NewApi(cfg, nil)
	assert.Error(t, err)

	cfg.APIPort = 8080
	_, err = NewApi(cfg, nil)
	assert.Error(t, err)
}

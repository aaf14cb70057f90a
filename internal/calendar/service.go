package calendar

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/qviuqh/calendar-api/internal/models"
	"github.com/qviuqh/calendar-api/internal/store"
)

var (
	// ErrNotFound covers both a truly absent calendar or event and one that
	// belongs to another user. Non-owners never learn whether a resource
	// exists.
	ErrNotFound = errors.New("not found")

	ErrInvalidTimeRange = errors.New("end_at must be after start_at")
	ErrInvalidStatus    = errors.New("invalid event status")

	// ErrConflict means the requested interval overlaps a non-cancelled
	// event in the same calendar while conflict checking was enabled.
	ErrConflict = errors.New("event conflicts with existing event")
)

// Service implements calendar and event operations for authenticated users.
// Every operation resolves ownership first: events are only ever addressed
// through a calendar the caller owns.
type Service struct {
	store *store.Store
}

// NewService creates the calendar service
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// CalendarChanges carries a partial calendar update; nil fields are left
// untouched.
type CalendarChanges struct {
	Name     *string
	Timezone *string
}

// CreateCalendar creates a calendar owned by the user
func (s *Service) CreateCalendar(userID, name, timezone string) (*models.Calendar, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	return s.store.CreateCalendar(userID, name, timezone)
}

// ListCalendars returns all of the user's calendars
func (s *Service) ListCalendars(userID string) ([]*models.Calendar, error) {
	return s.store.ListCalendars(userID)
}

// GetCalendar returns the calendar if the user owns it
func (s *Service) GetCalendar(userID, calendarID string) (*models.Calendar, error) {
	return s.ownedCalendar(userID, calendarID)
}

// UpdateCalendar applies a partial update to an owned calendar
func (s *Service) UpdateCalendar(userID, calendarID string, changes CalendarChanges) (*models.Calendar, error) {
	cal, err := s.ownedCalendar(userID, calendarID)
	if err != nil {
		return nil, err
	}

	if changes.Name != nil {
		cal.Name = *changes.Name
	}
	if changes.Timezone != nil {
		cal.Timezone = *changes.Timezone
	}

	if err := s.store.UpdateCalendar(cal); err != nil {
		return nil, fmt.Errorf("updating calendar: %w", err)
	}
	return cal, nil
}

// DeleteCalendar removes an owned calendar; its events go with it
func (s *Service) DeleteCalendar(userID, calendarID string) error {
	cal, err := s.ownedCalendar(userID, calendarID)
	if err != nil {
		return err
	}
	return s.store.DeleteCalendar(cal.ID)
}

// ownedCalendar is the ownership guard every calendar and event operation
// routes through.
func (s *Service) ownedCalendar(userID, calendarID string) (*models.Calendar, error) {
	cal, err := s.store.GetCalendarForUser(calendarID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up calendar: %w", err)
	}
	return cal, nil
}

package calendar

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/qviuqh/calendar-api/internal/models"
	"github.com/qviuqh/calendar-api/internal/store"
)

// EventInput is the payload for creating an event
type EventInput struct {
	CalendarID  string
	Title       string
	Description *string
	Location    *string
	StartAt     time.Time
	EndAt       time.Time
	IsAllDay    bool
}

// EventChanges carries a partial event update; nil fields are left
// untouched.
type EventChanges struct {
	Title       *string
	Description *string
	Location    *string
	StartAt     *time.Time
	EndAt       *time.Time
	IsAllDay    *bool
	Status      *models.EventStatus
}

// CreateEvent validates the interval, checks ownership and, when enabled,
// conflicts, then persists a confirmed event. Conflict checking is advisory
// per call: with checkConflicts false, overlapping confirmed events may
// coexist.
func (s *Service) CreateEvent(userID string, in EventInput, checkConflicts bool) (*models.Event, error) {
	if !in.EndAt.After(in.StartAt) {
		return nil, ErrInvalidTimeRange
	}

	if _, err := s.ownedCalendar(userID, in.CalendarID); err != nil {
		return nil, err
	}

	if checkConflicts {
		conflict, err := s.store.HasConflict(in.CalendarID, in.StartAt, in.EndAt, "")
		if err != nil {
			return nil, fmt.Errorf("checking conflicts: %w", err)
		}
		if conflict {
			return nil, ErrConflict
		}
	}

	event := &models.Event{
		CalendarID:  in.CalendarID,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		StartAt:     in.StartAt,
		EndAt:       in.EndAt,
		IsAllDay:    in.IsAllDay,
		Status:      models.EventStatusConfirmed,
	}
	if err := s.store.CreateEvent(event); err != nil {
		return nil, fmt.Errorf("storing event: %w", err)
	}
	return event, nil
}

// GetEvent returns the event if the user owns its calendar
func (s *Service) GetEvent(userID, eventID string) (*models.Event, error) {
	return s.ownedEvent(userID, eventID)
}

// ListEvents returns the user's events, optionally narrowed to one calendar
// and a half-open time window
func (s *Service) ListEvents(userID string, filter store.EventFilter) ([]*models.Event, error) {
	return s.store.ListEvents(userID, filter)
}

// UpdateEvent applies a partial update. The effective interval is taken
// field by field from the changes, falling back to the stored event, and is
// validated unconditionally. The conflict check reruns only when the update
// actually touches start or end; a title-only update never re-evaluates
// conflicts even with checking enabled.
func (s *Service) UpdateEvent(userID, eventID string, changes EventChanges, checkConflicts bool) (*models.Event, error) {
	event, err := s.ownedEvent(userID, eventID)
	if err != nil {
		return nil, err
	}

	newStart := event.StartAt
	newEnd := event.EndAt
	if changes.StartAt != nil {
		newStart = *changes.StartAt
	}
	if changes.EndAt != nil {
		newEnd = *changes.EndAt
	}
	if !newEnd.After(newStart) {
		return nil, ErrInvalidTimeRange
	}

	timeChanged := changes.StartAt != nil || changes.EndAt != nil
	if checkConflicts && timeChanged {
		conflict, err := s.store.HasConflict(event.CalendarID, newStart, newEnd, event.ID)
		if err != nil {
			return nil, fmt.Errorf("checking conflicts: %w", err)
		}
		if conflict {
			return nil, ErrConflict
		}
	}

	event.StartAt = newStart
	event.EndAt = newEnd
	if changes.Title != nil {
		event.Title = *changes.Title
	}
	if changes.Description != nil {
		event.Description = changes.Description
	}
	if changes.Location != nil {
		event.Location = changes.Location
	}
	if changes.IsAllDay != nil {
		event.IsAllDay = *changes.IsAllDay
	}
	if changes.Status != nil {
		if !changes.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		event.Status = *changes.Status
	}

	if err := s.store.UpdateEvent(event); err != nil {
		return nil, fmt.Errorf("updating event: %w", err)
	}
	return event, nil
}

// DeleteEvent cancels or removes an event. Soft deletion moves the status
// to cancelled and is idempotent: cancelling an already-cancelled event is
// a no-op success. Hard deletion removes the record outright, bypassing the
// status machine.
func (s *Service) DeleteEvent(userID, eventID string, soft bool) error {
	event, err := s.ownedEvent(userID, eventID)
	if err != nil {
		return err
	}

	if !soft {
		return s.store.DeleteEvent(event.ID)
	}

	if event.Status == models.EventStatusCancelled {
		return nil
	}
	event.Status = models.EventStatusCancelled
	if err := s.store.UpdateEvent(event); err != nil {
		return fmt.Errorf("cancelling event: %w", err)
	}
	return nil
}

func (s *Service) ownedEvent(userID, eventID string) (*models.Event, error) {
	event, err := s.store.GetEventForUser(eventID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up event: %w", err)
	}
	return event, nil
}

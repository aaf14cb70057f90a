package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qviuqh/calendar-api/internal/models"
)

// Store handles all database operations
type Store struct {
	db     *sql.DB
	dbType string
}

// New creates a new store instance
func New(db *sql.DB, dbType string) *Store {
	return &Store{db: db, dbType: dbType}
}

// rebind rewrites ? placeholders to $n for PostgreSQL. Queries are written
// once in SQLite style and rebound per dialect.
func (s *Store) rebind(query string) string {
	if s.dbType != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// --- Users ---

// CreateUser creates a new user with an already-hashed password
func (s *Store) CreateUser(email, passwordHash string) (*models.User, error) {
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := s.db.Exec(
		s.rebind("INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)"),
		user.ID, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email
func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(
		s.rebind("SELECT id, email, password_hash, created_at FROM users WHERE email = ?"),
		email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by id
func (s *Store) GetUserByID(id string) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRow(
		s.rebind("SELECT id, email, password_hash, created_at FROM users WHERE id = ?"),
		id,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// EmailExists reports whether a user with the given email exists
func (s *Store) EmailExists(email string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(
		s.rebind("SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)"),
		email,
	).Scan(&exists)
	return exists, err
}

// DeleteUser removes a user. Calendars, events and refresh sessions go with
// it via the engine's foreign-key cascades.
func (s *Store) DeleteUser(id string) error {
	_, err := s.db.Exec(s.rebind("DELETE FROM users WHERE id = ?"), id)
	return err
}

// --- Calendars ---

// CreateCalendar creates a calendar owned by the given user
func (s *Store) CreateCalendar(userID, name, timezone string) (*models.Calendar, error) {
	cal := &models.Calendar{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Timezone:  timezone,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		s.rebind("INSERT INTO calendars (id, user_id, name, timezone, created_at) VALUES (?, ?, ?, ?, ?)"),
		cal.ID, cal.UserID, cal.Name, cal.Timezone, cal.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return cal, nil
}

// GetCalendarForUser retrieves a calendar only if it belongs to the given
// user. Absent and not-yours both come back as sql.ErrNoRows.
func (s *Store) GetCalendarForUser(id, userID string) (*models.Calendar, error) {
	cal := &models.Calendar{}
	err := s.db.QueryRow(
		s.rebind("SELECT id, user_id, name, timezone, created_at FROM calendars WHERE id = ? AND user_id = ?"),
		id, userID,
	).Scan(&cal.ID, &cal.UserID, &cal.Name, &cal.Timezone, &cal.CreatedAt)
	if err != nil {
		return nil, err
	}
	return cal, nil
}

// ListCalendars returns all calendars owned by the user
func (s *Store) ListCalendars(userID string) ([]*models.Calendar, error) {
	rows, err := s.db.Query(
		s.rebind("SELECT id, user_id, name, timezone, created_at FROM calendars WHERE user_id = ? ORDER BY created_at"),
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calendars []*models.Calendar
	for rows.Next() {
		cal := &models.Calendar{}
		if err := rows.Scan(&cal.ID, &cal.UserID, &cal.Name, &cal.Timezone, &cal.CreatedAt); err != nil {
			return nil, err
		}
		calendars = append(calendars, cal)
	}
	return calendars, rows.Err()
}

// UpdateCalendar persists the calendar's mutable fields
func (s *Store) UpdateCalendar(cal *models.Calendar) error {
	_, err := s.db.Exec(
		s.rebind("UPDATE calendars SET name = ?, timezone = ? WHERE id = ?"),
		cal.Name, cal.Timezone, cal.ID,
	)
	return err
}

// DeleteCalendar removes a calendar and, via cascade, its events
func (s *Store) DeleteCalendar(id string) error {
	_, err := s.db.Exec(s.rebind("DELETE FROM calendars WHERE id = ?"), id)
	return err
}

// --- Events ---

// CreateEvent inserts a new event, assigning its id and timestamps
func (s *Store) CreateEvent(e *models.Event) error {
	now := time.Now().UTC()
	e.ID = uuid.New().String()
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err := s.db.Exec(
		s.rebind(`INSERT INTO events (id, calendar_id, title, description, location, start_at, end_at, is_all_day, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		e.ID, e.CalendarID, e.Title, e.Description, e.Location,
		e.StartAt, e.EndAt, e.IsAllDay, e.Status, e.CreatedAt, e.UpdatedAt,
	)
	return err
}

const eventColumns = "e.id, e.calendar_id, e.title, e.description, e.location, e.start_at, e.end_at, e.is_all_day, e.status, e.created_at, e.updated_at"

func scanEvent(row interface{ Scan(...any) error }) (*models.Event, error) {
	e := &models.Event{}
	err := row.Scan(
		&e.ID, &e.CalendarID, &e.Title, &e.Description, &e.Location,
		&e.StartAt, &e.EndAt, &e.IsAllDay, &e.Status, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetEventForUser retrieves an event only if its calendar belongs to the
// given user. Events are addressed through the calendar they claim to
// belong to, so the ownership join is part of every lookup.
func (s *Store) GetEventForUser(id, userID string) (*models.Event, error) {
	row := s.db.QueryRow(
		s.rebind("SELECT "+eventColumns+" FROM events e JOIN calendars c ON e.calendar_id = c.id WHERE e.id = ? AND c.user_id = ?"),
		id, userID,
	)
	return scanEvent(row)
}

// EventFilter narrows ListEvents. From and To bound a half-open window:
// an event is included when it overlaps [From, To).
type EventFilter struct {
	CalendarID string
	From       *time.Time
	To         *time.Time
}

// ListEvents returns the user's events ordered by start time
func (s *Store) ListEvents(userID string, filter EventFilter) ([]*models.Event, error) {
	query := "SELECT " + eventColumns + " FROM events e JOIN calendars c ON e.calendar_id = c.id WHERE c.user_id = ?"
	args := []any{userID}

	if filter.CalendarID != "" {
		query += " AND e.calendar_id = ?"
		args = append(args, filter.CalendarID)
	}
	if filter.From != nil {
		query += " AND e.end_at > ?"
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += " AND e.start_at < ?"
		args = append(args, *filter.To)
	}
	query += " ORDER BY e.start_at"

	rows, err := s.db.Query(s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// UpdateEvent persists the event's mutable fields and bumps updated_at
func (s *Store) UpdateEvent(e *models.Event) error {
	e.UpdatedAt = time.Now().UTC()
	_, err := s.db.Exec(
		s.rebind(`UPDATE events SET title = ?, description = ?, location = ?, start_at = ?, end_at = ?, is_all_day = ?, status = ?, updated_at = ?
			WHERE id = ?`),
		e.Title, e.Description, e.Location, e.StartAt, e.EndAt, e.IsAllDay, e.Status, e.UpdatedAt, e.ID,
	)
	return err
}

// DeleteEvent permanently removes an event record
func (s *Store) DeleteEvent(id string) error {
	_, err := s.db.Exec(s.rebind("DELETE FROM events WHERE id = ?"), id)
	return err
}

// HasConflict reports whether any non-cancelled event in the calendar
// overlaps the half-open interval [start, end). Two intervals overlap iff
// s1 < e2 AND s2 < e1. excludeEventID skips one event, used when that same
// event is being rescheduled.
//
// The scan and any following insert are separate statements; two concurrent
// writers can both pass this check. That race is accepted.
func (s *Store) HasConflict(calendarID string, start, end time.Time, excludeEventID string) (bool, error) {
	query := "SELECT EXISTS(SELECT 1 FROM events WHERE calendar_id = ? AND status != 'cancelled' AND start_at < ? AND end_at > ?"
	args := []any{calendarID, end, start}

	if excludeEventID != "" {
		query += " AND id != ?"
		args = append(args, excludeEventID)
	}
	query += ")"

	var conflict bool
	err := s.db.QueryRow(s.rebind(query), args...).Scan(&conflict)
	return conflict, err
}

// --- Refresh tokens ---

// CreateRefreshToken persists a refresh session. Only the hash of the
// secret ever reaches this layer.
func (s *Store) CreateRefreshToken(t *models.RefreshToken) error {
	t.ID = uuid.New().String()
	t.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(
		s.rebind(`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, user_agent, ip_address, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.RevokedAt, t.UserAgent, t.IPAddress, t.CreatedAt,
	)
	return err
}

// GetRefreshTokenByHash retrieves a refresh session by the hash of its secret
func (s *Store) GetRefreshTokenByHash(hash string) (*models.RefreshToken, error) {
	t := &models.RefreshToken{}
	err := s.db.QueryRow(
		s.rebind("SELECT id, user_id, token_hash, expires_at, revoked_at, user_agent, ip_address, created_at FROM refresh_tokens WHERE token_hash = ?"),
		hash,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.RevokedAt, &t.UserAgent, &t.IPAddress, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// RevokeRefreshToken sets the revocation time of a session. Revocation is
// terminal; nothing ever clears revoked_at.
func (s *Store) RevokeRefreshToken(id string, when time.Time) error {
	_, err := s.db.Exec(
		s.rebind("UPDATE refresh_tokens SET revoked_at = ? WHERE id = ?"),
		when, id,
	)
	return err
}

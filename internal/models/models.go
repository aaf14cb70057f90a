package models

import (
	"time"
)

// EventStatus represents the lifecycle state of an event
type EventStatus string

const (
	EventStatusConfirmed EventStatus = "confirmed"
	EventStatusCancelled EventStatus = "cancelled"
)

// Valid reports whether the status is one of the known values.
func (s EventStatus) Valid() bool {
	return s == EventStatusConfirmed || s == EventStatusCancelled
}

// User represents a user account
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // never sent to clients
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Calendar belongs to exactly one user and owns its events.
type Calendar struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Name      string    `json:"name" db:"name"`
	Timezone  string    `json:"timezone" db:"timezone"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Event is a time-bounded entry in a calendar. end_at is exclusive:
// the occupied interval is [start_at, end_at).
type Event struct {
	ID          string      `json:"id" db:"id"`
	CalendarID  string      `json:"calendar_id" db:"calendar_id"`
	Title       string      `json:"title" db:"title"`
	Description *string     `json:"description,omitempty" db:"description"`
	Location    *string     `json:"location,omitempty" db:"location"`
	StartAt     time.Time   `json:"start_at" db:"start_at"`
	EndAt       time.Time   `json:"end_at" db:"end_at"`
	IsAllDay    bool        `json:"is_all_day" db:"is_all_day"`
	Status      EventStatus `json:"status" db:"status"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// RefreshToken is a persisted refresh session. Only the sha256 hash of the
// secret is stored; the plaintext is handed to the client exactly once.
type RefreshToken struct {
	ID        string     `json:"id" db:"id"`
	UserID    string     `json:"user_id" db:"user_id"`
	TokenHash string     `json:"-" db:"token_hash"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
	UserAgent *string    `json:"user_agent,omitempty" db:"user_agent"`
	IPAddress *string    `json:"ip_address,omitempty" db:"ip_address"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Active reports whether the session can still mint access tokens. Expiry is
// never stored as a state; it is derived from the clock at read time.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}

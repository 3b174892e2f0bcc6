package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session records one device's authenticated presence for a user. Rows are
// never deleted; a session leaves the device count by having Active cleared.
//
// Active is tri-state on purpose: true while the session counts toward the
// device limit, NULL once deactivated. Keeping inactive rows at NULL (never
// false) lets the composite unique index admit at most one active session
// per (user, device) while placing no bound on historical rows, since NULL
// values are distinct in unique indexes on SQLite, Postgres, and MySQL.
type Session struct {
	SessionID  string    `gorm:"primaryKey;type:uuid;column:session_id" json:"sessionId"`
	UserID     string    `gorm:"not null;index;uniqueIndex:idx_sessions_active_device" json:"userId"`
	DeviceID   string    `gorm:"not null;uniqueIndex:idx_sessions_active_device" json:"deviceId"`
	DeviceInfo string    `json:"deviceInfo,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	LastSeen   time.Time `gorm:"index" json:"lastSeen"`
	Active     *bool     `gorm:"uniqueIndex:idx_sessions_active_device" json:"-"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.SessionID == "" {
		s.SessionID = uuid.NewString()
	}
	return nil
}

// IsActive reports whether the session currently counts toward the device limit.
func (s *Session) IsActive() bool {
	return s.Active != nil && *s.Active
}

// SessionView is the wire representation of a session: timestamps as
// ISO-8601 UTC strings and the active flag flattened to a plain boolean.
type SessionView struct {
	SessionID  string `json:"sessionId"`
	UserID     string `json:"userId"`
	DeviceID   string `json:"deviceId"`
	DeviceInfo string `json:"deviceInfo,omitempty"`
	CreatedAt  string `json:"createdAt"`
	LastSeen   string `json:"lastSeen"`
	Active     bool   `json:"active"`
}

// View serializes the session for API responses.
func (s *Session) View() SessionView {
	return SessionView{
		SessionID:  s.SessionID,
		UserID:     s.UserID,
		DeviceID:   s.DeviceID,
		DeviceInfo: s.DeviceInfo,
		CreatedAt:  s.CreatedAt.UTC().Format(time.RFC3339Nano),
		LastSeen:   s.LastSeen.UTC().Format(time.RFC3339Nano),
		Active:     s.IsActive(),
	}
}

package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/harishghasolia07/NLogin-Devices/internal/models"
)

// GormStore implements Store on top of a gorm.DB handle. Atomicity of
// CreateIfAbsent rests on the idx_sessions_active_device unique index: the
// insert either commits first or collides, there is no read-then-write gap.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open database handle.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("sessions: db is required")
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) CreateIfAbsent(ctx context.Context, session *models.Session) (bool, error) {
	err := s.db.WithContext(ctx).Create(session).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	return false, fmt.Errorf("sessions: create session: %w", err)
}

func (s *GormStore) FindActiveByDevice(ctx context.Context, userID, deviceID string) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND device_id = ? AND active = ?", userID, deviceID, true).
		Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sessions: find active session: %w", err)
	}
	return &session, nil
}

func (s *GormStore) FindByID(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Take(&session, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sessions: find session: %w", err)
	}
	return &session, nil
}

func (s *GormStore) Touch(ctx context.Context, sessionID string, at time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("session_id = ?", sessionID).
		Update("last_seen", at).Error
	if err != nil {
		return fmt.Errorf("sessions: touch session: %w", err)
	}
	return nil
}

func (s *GormStore) Deactivate(ctx context.Context, sessionID string) (bool, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("session_id = ? AND active = ?", sessionID, true).
		Update("active", nil)
	if result.Error != nil {
		return false, fmt.Errorf("sessions: deactivate session: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		return true, nil
	}

	// Nothing changed: either the session is already inactive (idempotent
	// success) or it never existed.
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("sessions: deactivate lookup: %w", err)
	}
	if count == 0 {
		return false, ErrSessionNotFound
	}
	return false, nil
}

func (s *GormStore) DeactivateIfOverLimit(ctx context.Context, sessionID, userID string, maxDevices int) (bool, error) {
	// The occupancy count rides inside the UPDATE so check and compensation
	// cannot interleave with another request's compensation. The derived
	// table keeps the self-referencing subquery legal on MySQL.
	result := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("session_id = ? AND active = ?", sessionID, true).
		Where("(SELECT occupancy.cnt FROM (SELECT COUNT(*) AS cnt FROM sessions WHERE user_id = ? AND active = ?) AS occupancy) > ?",
			userID, true, maxDevices).
		Update("active", nil)
	if result.Error != nil {
		return false, fmt.Errorf("sessions: compensate over-limit session: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) ListActive(ctx context.Context, userID string) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Order("last_seen DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("sessions: list active sessions: %w", err)
	}
	return sessions, nil
}

func (s *GormStore) DeactivateIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("active = ? AND last_seen < ?", true, cutoff).
		Update("active", nil)
	if result.Error != nil {
		return 0, fmt.Errorf("sessions: deactivate idle sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

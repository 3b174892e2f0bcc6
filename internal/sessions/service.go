package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harishghasolia07/NLogin-Devices/internal/models"
	"github.com/harishghasolia07/NLogin-Devices/pkg/logger"
	"github.com/harishghasolia07/NLogin-Devices/pkg/metrics"
)

// DefaultMaxDevices is the fallback concurrent-device limit per user.
const DefaultMaxDevices = 2

// LoginStatus enumerates the admission outcomes carried on the wire.
type LoginStatus string

const (
	// StatusOK means the login holds a device slot, either freshly created,
	// renewed, or recovered from a concurrent duplicate.
	StatusOK LoginStatus = "ok"
	// StatusLimitReached means the login was rolled back because the user's
	// device limit was already occupied.
	StatusLimitReached LoginStatus = "limit_reached"
)

// LoginResult is the outcome of an admission attempt. ActiveSessions is
// populated only for StatusLimitReached, ordered by lastSeen descending, so
// the client can offer the user a device to evict.
type LoginResult struct {
	Status         LoginStatus
	SessionID      string
	ActiveSessions []models.Session
}

// ValidationResult reports whether a session still holds a device slot.
type ValidationResult struct {
	Valid  bool
	Reason string
}

// Config describes tunable behaviour for the Service.
type Config struct {
	MaxDevices int
	Clock      func() time.Time
}

// Service is the session admission controller: it decides, under concurrent
// requests, whether a login is admitted, which existing session it reuses,
// and how sessions move between active and inactive without breaching the
// per-user device limit. All coordination happens through the Store's
// atomic primitives; the service itself is stateless and safe for
// concurrent use.
type Service struct {
	store      Store
	maxDevices int
	now        func() time.Time
	log        *zap.Logger
}

// NewService constructs the admission controller around the provided store.
func NewService(store Store, cfg Config) (*Service, error) {
	if store == nil {
		return nil, errors.New("sessions: store is required")
	}

	max := cfg.MaxDevices
	if max <= 0 {
		max = DefaultMaxDevices
	}

	clock := time.Now
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &Service{
		store:      store,
		maxDevices: max,
		now:        clock,
		log:        logger.WithModule("sessions"),
	}, nil
}

// MaxDevices returns the configured concurrent-device limit.
func (s *Service) MaxDevices() int {
	return s.maxDevices
}

// Login admits, renews, or rejects a login for the given device.
//
// The admission sequence is: renewal fast path, then an atomic conditional
// insert, then a post-insert occupancy check. When the insert wins but the
// count shows the limit was already occupied by concurrently admitted
// devices, the just-created session is deactivated again before returning —
// a brief overshoot of the limit is possible between insert and
// compensation, but it always heals within this call. Which devices survive
// when more than MaxDevices race at once is decided by store commit order.
func (s *Service) Login(ctx context.Context, userID, deviceID, deviceInfo string) (LoginResult, error) {
	userID = strings.TrimSpace(userID)
	deviceID = strings.TrimSpace(deviceID)
	if userID == "" {
		return LoginResult{}, errors.New("sessions: user id is required")
	}
	if deviceID == "" {
		return LoginResult{}, errors.New("sessions: device id is required")
	}

	// Renewal fast path: a device that already holds a slot never changes
	// occupancy, so the limit is not re-checked here.
	existing, err := s.store.FindActiveByDevice(ctx, userID, deviceID)
	if err == nil {
		if err := s.store.Touch(ctx, existing.SessionID, s.now().UTC()); err != nil {
			return LoginResult{}, err
		}
		metrics.LoginOutcomes.WithLabelValues("renewed").Inc()
		return LoginResult{Status: StatusOK, SessionID: existing.SessionID}, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return LoginResult{}, err
	}

	now := s.now().UTC()
	active := true
	session := &models.Session{
		UserID:     userID,
		DeviceID:   deviceID,
		DeviceInfo: strings.TrimSpace(deviceInfo),
		CreatedAt:  now,
		LastSeen:   now,
		Active:     &active,
	}

	inserted, err := s.store.CreateIfAbsent(ctx, session)
	if err != nil {
		return LoginResult{}, err
	}

	if !inserted {
		// Another request for this exact device committed first. Recover by
		// returning the winner's session rather than failing the caller.
		winner, err := s.store.FindActiveByDevice(ctx, userID, deviceID)
		if err != nil {
			return LoginResult{}, fmt.Errorf("sessions: recover concurrent login: %w", err)
		}
		metrics.LoginOutcomes.WithLabelValues("recovered").Inc()
		return LoginResult{Status: StatusOK, SessionID: winner.SessionID}, nil
	}

	// Re-verify the occupancy invariant now that the insert is committed.
	// When the user's slots were already filled by concurrently admitted
	// devices, the just-created session deactivates itself in the same
	// atomic operation, so the caller is never left holding a phantom slot.
	compensated, err := s.store.DeactivateIfOverLimit(ctx, session.SessionID, userID, s.maxDevices)
	if err != nil {
		return LoginResult{}, err
	}

	if !compensated {
		metrics.LoginOutcomes.WithLabelValues("admitted").Inc()
		metrics.ActiveSessions.Inc()
		return LoginResult{Status: StatusOK, SessionID: session.SessionID}, nil
	}

	activeSessions, err := s.store.ListActive(ctx, userID)
	if err != nil {
		return LoginResult{}, err
	}

	s.log.Info("device limit reached",
		zap.String("user_id", userID),
		zap.String("device_id", deviceID),
		zap.Int("max_devices", s.maxDevices),
	)
	metrics.LoginOutcomes.WithLabelValues("limit_reached").Inc()

	return LoginResult{Status: StatusLimitReached, ActiveSessions: activeSessions}, nil
}

// Logout deactivates the session unconditionally. Logging out an already
// inactive session succeeds silently; ErrSessionNotFound is returned only
// when no session with the identifier was ever created.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.deactivate(ctx, sessionID, "logout")
}

// ForceLogout deactivates another device's session to free a slot. The
// contract is identical to Logout; the operations are kept distinct for
// caller intent and observability.
func (s *Service) ForceLogout(ctx context.Context, sessionID string) error {
	return s.deactivate(ctx, sessionID, "force_logout")
}

func (s *Service) deactivate(ctx context.Context, sessionID, origin string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ErrSessionNotFound
	}

	changed, err := s.store.Deactivate(ctx, sessionID)
	if err != nil {
		return err
	}

	if changed {
		metrics.Logouts.WithLabelValues(origin).Inc()
		metrics.ActiveSessions.Dec()
	}
	return nil
}

// Validate reports whether the session still holds a device slot,
// refreshing its lastSeen timestamp when it does.
func (s *Service) Validate(ctx context.Context, sessionID string) (ValidationResult, error) {
	session, err := s.store.FindByID(ctx, strings.TrimSpace(sessionID))
	if errors.Is(err, ErrSessionNotFound) {
		return ValidationResult{Valid: false, Reason: "session_not_found"}, nil
	}
	if err != nil {
		return ValidationResult{}, err
	}

	if !session.IsActive() {
		return ValidationResult{Valid: false, Reason: "logged_out"}, nil
	}

	if err := s.store.Touch(ctx, session.SessionID, s.now().UTC()); err != nil {
		return ValidationResult{}, err
	}
	return ValidationResult{Valid: true}, nil
}

// ListActive returns the user's active sessions, most recently used first.
func (s *Service) ListActive(ctx context.Context, userID string) ([]models.Session, error) {
	return s.store.ListActive(ctx, strings.TrimSpace(userID))
}

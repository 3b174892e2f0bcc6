package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/harishghasolia07/NLogin-Devices/internal/models"
)

var (
	// ErrSessionNotFound indicates that no session row matches the identifier.
	ErrSessionNotFound = errors.New("sessions: not found")
)

// Store is the persistence contract the admission service depends on. All
// coordination state lives behind it; the service holds no shared mutable
// state of its own. Implementations must guarantee that CreateIfAbsent is a
// single atomic operation: insert the session iff no active session exists
// for the same (user, device), otherwise report inserted=false.
type Store interface {
	// CreateIfAbsent atomically inserts a new active session unless one
	// already exists for the same (user, device). A lost race is reported
	// as inserted=false, not as an error.
	CreateIfAbsent(ctx context.Context, session *models.Session) (inserted bool, err error)

	// FindActiveByDevice returns the active session for (user, device), or
	// ErrSessionNotFound.
	FindActiveByDevice(ctx context.Context, userID, deviceID string) (*models.Session, error)

	// FindByID returns the session with the given identifier regardless of
	// state, or ErrSessionNotFound.
	FindByID(ctx context.Context, sessionID string) (*models.Session, error)

	// Touch refreshes the session's lastSeen timestamp.
	Touch(ctx context.Context, sessionID string, at time.Time) error

	// Deactivate clears the active flag. It returns ErrSessionNotFound when
	// no row with the identifier exists at all; deactivating an already
	// inactive session succeeds with changed=false.
	Deactivate(ctx context.Context, sessionID string) (changed bool, err error)

	// DeactivateIfOverLimit compensates an over-limit admission: it clears
	// the session's active flag iff the user currently holds more than
	// maxDevices active sessions. The occupancy check and the deactivation
	// execute as one atomic store operation, so racing compensations stop
	// deactivating the moment occupancy drops back to the limit.
	DeactivateIfOverLimit(ctx context.Context, sessionID, userID string, maxDevices int) (deactivated bool, err error)

	// ListActive returns the user's active sessions ordered by lastSeen
	// descending.
	ListActive(ctx context.Context, userID string) ([]models.Session, error)

	// DeactivateIdle clears the active flag on every session whose lastSeen
	// is before the cutoff, returning how many sessions were swept.
	DeactivateIdle(ctx context.Context, cutoff time.Time) (int64, error)
}

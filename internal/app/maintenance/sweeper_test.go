package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/harishghasolia07/NLogin-Devices/internal/database/testutil"
	"github.com/harishghasolia07/NLogin-Devices/internal/models"
	"github.com/harishghasolia07/NLogin-Devices/internal/sessions"
)

func seedSession(t *testing.T, store sessions.Store, userID, deviceID string, lastSeen time.Time) *models.Session {
	t.Helper()

	active := true
	session := &models.Session{
		UserID:    userID,
		DeviceID:  deviceID,
		CreatedAt: lastSeen,
		LastSeen:  lastSeen,
		Active:    &active,
	}
	inserted, err := store.CreateIfAbsent(context.Background(), session)
	require.NoError(t, err)
	require.True(t, inserted)
	return session
}

func TestNewSweeperValidatesArguments(t *testing.T) {
	store, err := sessions.NewGormStore(testutil.MustOpenTestDB(t))
	require.NoError(t, err)

	_, err = NewSweeper(nil, time.Hour)
	require.Error(t, err)

	_, err = NewSweeper(store, 0)
	require.Error(t, err)

	_, err = NewSweeper(store, -time.Hour)
	require.Error(t, err)
}

func TestRunOnceSweepsOnlyIdleSessions(t *testing.T) {
	store, err := sessions.NewGormStore(testutil.MustOpenTestDB(t))
	require.NoError(t, err)

	now := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	sweeper, err := NewSweeper(store, time.Hour, WithNow(func() time.Time { return now }))
	require.NoError(t, err)

	stale := seedSession(t, store, "alice", "old-laptop", now.Add(-3*time.Hour))
	fresh := seedSession(t, store, "alice", "phone", now.Add(-10*time.Minute))
	seedSession(t, store, "bob", "tablet", now.Add(-2*time.Hour))

	swept, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, swept)

	list, err := store.ListActive(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, fresh.SessionID, list[0].SessionID)

	// Swept rows survive as inactive history rather than being deleted.
	reloaded, err := store.FindByID(context.Background(), stale.SessionID)
	require.NoError(t, err)
	require.False(t, reloaded.IsActive())
}

func TestRunOnceIsIdempotent(t *testing.T) {
	store, err := sessions.NewGormStore(testutil.MustOpenTestDB(t))
	require.NoError(t, err)

	now := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	sweeper, err := NewSweeper(store, time.Hour, WithNow(func() time.Time { return now }))
	require.NoError(t, err)

	seedSession(t, store, "alice", "laptop", now.Add(-2*time.Hour))

	swept, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, swept)

	swept, err = sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	require.Zero(t, swept)
}

func TestStartSchedulesSweeps(t *testing.T) {
	store, err := sessions.NewGormStore(testutil.MustOpenTestDB(t))
	require.NoError(t, err)

	sweeper, err := NewSweeper(store, time.Hour, WithSchedule("@every 1h"))
	require.NoError(t, err)

	require.NoError(t, sweeper.Start())
	<-sweeper.Stop().Done()
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	store, err := sessions.NewGormStore(testutil.MustOpenTestDB(t))
	require.NoError(t, err)

	sweeper, err := NewSweeper(store, time.Hour, WithSchedule("not a cron spec"))
	require.NoError(t, err)

	require.Error(t, sweeper.Start())
}

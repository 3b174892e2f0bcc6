package maintenance

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/harishghasolia07/NLogin-Devices/internal/sessions"
	"github.com/harishghasolia07/NLogin-Devices/pkg/logger"
	"github.com/harishghasolia07/NLogin-Devices/pkg/metrics"
)

const defaultSweepSpec = "@every 10m"

// Sweeper periodically deactivates sessions that have been idle beyond the
// configured timeout. It never deletes rows; swept sessions simply stop
// counting toward their user's device limit, exactly like a logout.
type Sweeper struct {
	store       sessions.Store
	idleTimeout time.Duration
	schedule    string
	cron        *cron.Cron
	now         func() time.Time
	log         *zap.Logger
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used for idle comparisons.
func WithNow(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSchedule overrides the cron specification for sweep runs.
func WithSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.schedule = spec
		}
	}
}

// NewSweeper constructs a Sweeper over the session store.
func NewSweeper(store sessions.Store, idleTimeout time.Duration, opts ...Option) (*Sweeper, error) {
	if store == nil {
		return nil, errors.New("sweeper: store is required")
	}
	if idleTimeout <= 0 {
		return nil, errors.New("sweeper: idle timeout must be positive")
	}

	sweeper := &Sweeper{
		store:       store,
		idleTimeout: idleTimeout,
		schedule:    defaultSweepSpec,
		now:         time.Now,
		log:         logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return sweeper, nil
}

// Start registers the sweep job with the cron scheduler and launches it.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.log.Warn("idle session sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running job to complete.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes a single sweep, returning how many sessions were
// deactivated. Used by the scheduler, tests, and graceful shutdown.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	cutoff := s.now().UTC().Add(-s.idleTimeout)
	swept, err := s.store.DeactivateIdle(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if swept > 0 {
		metrics.Logouts.WithLabelValues("sweeper").Add(float64(swept))
		metrics.ActiveSessions.Sub(float64(swept))
		s.log.Info("idle sessions deactivated",
			zap.Int64("count", swept),
			zap.Time("cutoff", cutoff),
		)
	}

	return swept, nil
}

// Package maintenance runs the periodic cleanup of expired sessions, stale
// login attempts and idle rate-limiter state.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/classledger/internal/app/metrics"
	"github.com/R3E-Network/classledger/internal/app/storage"
	"github.com/R3E-Network/classledger/internal/app/system"
	"github.com/R3E-Network/classledger/internal/logging"
)

var _ system.Service = (*Job)(nil)

// DefaultSchedule runs the cleanup every ten minutes.
const DefaultSchedule = "@every 10m"

// Pruner drops in-memory state idle for longer than idle and reports how
// many entries were removed.
type Pruner interface {
	Prune(idle time.Duration) int
}

// Store is the persistence the job cleans.
type Store interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	DeleteLoginAttemptsBefore(ctx context.Context, before time.Time) (int64, error)
}

var _ Store = (storage.SessionStore)(nil)

// Settings configure the job.
type Settings struct {
	Schedule         string
	AttemptRetention time.Duration
	PrunerIdle       time.Duration
}

// Result reports one run.
type Result struct {
	ExpiredSessions int64 `json:"expired_sessions"`
	LoginAttempts   int64 `json:"login_attempts"`
	LimiterEntries  int   `json:"limiter_entries"`
}

// Job is a cron-driven cleanup runner.
type Job struct {
	store    Store
	settings Settings
	pruners  []Pruner
	log      *logging.Logger
	now      func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// Option configures a Job.
type Option func(*Job)

// WithClock overrides the time source used for expiry cutoffs.
func WithClock(now func() time.Time) Option {
	return func(j *Job) { j.now = now }
}

// WithPruners registers in-memory state to prune on each run.
func WithPruners(pruners ...Pruner) Option {
	return func(j *Job) { j.pruners = append(j.pruners, pruners...) }
}

// New constructs a cleanup job.
func New(store Store, settings Settings, log *logging.Logger, opts ...Option) *Job {
	if log == nil {
		log = logging.NewDefault("maintenance")
	}
	if settings.Schedule == "" {
		settings.Schedule = DefaultSchedule
	}
	if settings.AttemptRetention <= 0 {
		settings.AttemptRetention = 7 * 24 * time.Hour
	}
	if settings.PrunerIdle <= 0 {
		settings.PrunerIdle = 30 * time.Minute
	}
	j := &Job{store: store, settings: settings, log: log, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Name identifies the job to the service manager.
func (j *Job) Name() string { return "maintenance" }

// Start schedules the job.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(j.log)), cron.Recover(cron.PrintfLogger(j.log))))
	if _, err := c.AddFunc(j.settings.Schedule, func() {
		runCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := j.RunOnce(runCtx); err != nil {
			j.log.WithError(err).Warn("maintenance run failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", j.settings.Schedule, err)
	}
	c.Start()
	j.cron = c
	j.running = true
	j.log.WithField("schedule", j.settings.Schedule).Info("maintenance job started")
	return nil
}

// Stop unschedules the job and waits for a running pass to finish.
func (j *Job) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return nil
	}
	c := j.cron
	j.cron = nil
	j.running = false
	j.mu.Unlock()

	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	j.log.Info("maintenance job stopped")
	return nil
}

// RunOnce performs one cleanup pass.
func (j *Job) RunOnce(ctx context.Context) (Result, error) {
	now := j.now().UTC()
	var res Result

	n, err := j.store.DeleteExpiredSessions(ctx, now)
	if err != nil {
		return res, fmt.Errorf("delete expired sessions: %w", err)
	}
	res.ExpiredSessions = n
	metrics.RecordCleanup("user_sessions", n)

	n, err = j.store.DeleteLoginAttemptsBefore(ctx, now.Add(-j.settings.AttemptRetention))
	if err != nil {
		return res, fmt.Errorf("delete login attempts: %w", err)
	}
	res.LoginAttempts = n
	metrics.RecordCleanup("login_attempts", n)

	for _, p := range j.pruners {
		res.LimiterEntries += p.Prune(j.settings.PrunerIdle)
	}

	j.log.WithContext(ctx).WithFields(map[string]interface{}{
		"expired_sessions": res.ExpiredSessions,
		"login_attempts":   res.LoginAttempts,
		"limiter_entries":  res.LimiterEntries,
	}).Debug("maintenance pass complete")
	return res, nil
}

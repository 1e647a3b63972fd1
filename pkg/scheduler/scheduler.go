package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kilatworks/omzet/pkg/errdefs"
	"github.com/kilatworks/omzet/pkg/log"
	"github.com/kilatworks/omzet/pkg/metrics"
	"github.com/kilatworks/omzet/pkg/storage"
	"github.com/kilatworks/omzet/pkg/types"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// jobDeadline bounds one job run; a run that exceeds it is cancelled and
// logged as partial.
const jobDeadline = 10 * time.Minute

// Jobs holds the callbacks the scheduler fires. Date arguments are
// "YYYY-MM-DD" in the configured timezone.
type Jobs struct {
	DailyReport func(ctx context.Context, date string) error
	Sweep       func(ctx context.Context, now time.Time) (int, error)
	HealthCheck func(ctx context.Context) error
}

// Scheduler runs the recurring jobs: the daily report, the reservation
// grace-period sweep, and the health check. Configuration is persisted;
// Update replaces the running schedule in place.
type Scheduler struct {
	store  storage.Store
	jobs   Jobs
	logger zerolog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewScheduler creates a new scheduler
func NewScheduler(store storage.Store, jobs Jobs) *Scheduler {
	return &Scheduler{
		store:  store,
		jobs:   jobs,
		logger: log.WithComponent("scheduler"),
	}
}

// Start loads the persisted configuration and begins running jobs
func (s *Scheduler) Start() error {
	cfg, err := s.store.GetSchedulerConfig()
	if err != nil {
		return fmt.Errorf("failed to load scheduler config: %w", err)
	}
	return s.apply(cfg)
}

// Stop stops the scheduler, waiting for a running job to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
	}
}

// Update persists a new configuration and replaces the running schedule
func (s *Scheduler) Update(cfg *types.SchedulerConfig) error {
	if err := validate(cfg); err != nil {
		return err
	}
	if err := s.store.PutSchedulerConfig(cfg); err != nil {
		return fmt.Errorf("failed to persist scheduler config: %w", err)
	}
	return s.apply(cfg)
}

// Config returns the persisted scheduler configuration
func (s *Scheduler) Config() (*types.SchedulerConfig, error) {
	return s.store.GetSchedulerConfig()
}

func (s *Scheduler) apply(cfg *types.SchedulerConfig) error {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("unknown timezone %q: %w", cfg.Timezone, errdefs.ErrValidation)
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	if _, err := c.AddFunc(clockSpec(cfg.DailyReportAt), func() {
		// 01:00 builds the report for the day that just ended.
		date := time.Now().In(loc).AddDate(0, 0, -1).Format("2006-01-02")
		s.run("daily_report", func(ctx context.Context) error {
			return s.jobs.DailyReport(ctx, date)
		})
	}); err != nil {
		return fmt.Errorf("invalid daily report time %q: %w", cfg.DailyReportAt, errdefs.ErrValidation)
	}

	if _, err := c.AddFunc(clockSpec(cfg.SweepAt), func() {
		s.run("sweep", func(ctx context.Context) error {
			_, err := s.jobs.Sweep(ctx, time.Now().In(loc))
			return err
		})
	}); err != nil {
		return fmt.Errorf("invalid sweep time %q: %w", cfg.SweepAt, errdefs.ErrValidation)
	}

	if _, err := c.AddFunc(fmt.Sprintf("@every %dh", cfg.HealthCheckHours), func() {
		s.run("health_check", s.jobs.HealthCheck)
	}); err != nil {
		return fmt.Errorf("invalid health check interval %d: %w", cfg.HealthCheckHours, errdefs.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.cron = c
	c.Start()

	s.logger.Info().
		Str("daily_report_at", cfg.DailyReportAt).
		Str("sweep_at", cfg.SweepAt).
		Int("health_check_hours", cfg.HealthCheckHours).
		Str("timezone", cfg.Timezone).
		Msg("scheduler configured")
	return nil
}

func (s *Scheduler) run(name string, job func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobDeadline)
	defer cancel()

	start := time.Now()
	err := job(ctx)
	switch {
	case err == nil:
		metrics.ScheduledJobRuns.WithLabelValues(name, "success").Inc()
		s.logger.Info().Str("job", name).Dur("took", time.Since(start)).Msg("job complete")
	case ctx.Err() != nil:
		metrics.ScheduledJobRuns.WithLabelValues(name, "partial").Inc()
		s.logger.Warn().Str("job", name).Dur("took", time.Since(start)).Msg("job hit deadline, partial run")
	default:
		metrics.ScheduledJobRuns.WithLabelValues(name, "error").Inc()
		s.logger.Error().Err(err).Str("job", name).Msg("job failed")
	}
}

// clockSpec converts "HH:MM" into a cron spec firing once a day
func clockSpec(hhmm string) string {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return hhmm
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour())
}

func validate(cfg *types.SchedulerConfig) error {
	if cfg.HealthCheckHours <= 0 {
		return fmt.Errorf("health check interval must be positive: %w", errdefs.ErrValidation)
	}
	for _, at := range []string{cfg.DailyReportAt, cfg.SweepAt} {
		if _, err := time.Parse("15:04", at); err != nil {
			return fmt.Errorf("clock time %q is not HH:MM: %w", at, errdefs.ErrValidation)
		}
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q: %w", cfg.Timezone, errdefs.ErrValidation)
	}
	return nil
}

/*
Package scheduler provides cron-driven background jobs for Omzet.

The scheduler runs the recurring work: the nightly daily report build, the
reservation grace-period sweep, and the periodic consistency health check.
Schedules are persisted configuration; updating the configuration replaces
the running schedule in place without a restart.

# Core Components

Jobs:
  - DailyReport fires at the configured clock time and builds the
    report for the day that just ended
  - Sweep expires overdue reservations
  - HealthCheck runs consistency diagnostics at a fixed interval

Execution:
  - All clock times are interpreted in the configured timezone
  - Overlapping runs of the same job are skipped, not queued
  - Each run is bounded by a deadline and recorded in metrics

# Usage

	s := scheduler.NewScheduler(store, scheduler.Jobs{
		DailyReport: runDailyReport, // func(ctx context.Context, date string) error
		Sweep:       runSweep,       // func(ctx context.Context, now time.Time) (int, error)
		HealthCheck: runHealthCheck, // func(ctx context.Context) error
	})
	if err := s.Start(); err != nil {
		return err
	}
	defer s.Stop()

	err := s.Update(&types.SchedulerConfig{
		DailyReportAt:    "01:00",
		SweepAt:          "02:00",
		HealthCheckHours: 6,
		Timezone:         "Asia/Jakarta",
	})
*/
package scheduler

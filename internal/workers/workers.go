// Package workers holds the periodic maintenance jobs run by cmd/worker.
package workers

import (
	"context"
	"fmt"
	"time"

	"payhook/internal/platform/config"
	"payhook/internal/platform/models"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const jobTimeout = 5 * time.Minute

type LogPurger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type QueueMaintainer interface {
	Stats(ctx context.Context) (models.QueueStats, error)
	ReleaseStale(ctx context.Context, cutoff time.Time, maxAttempts int) (released, failed int64, err error)
}

type Jobs struct {
	logs  LogPurger
	queue QueueMaintainer
	cfg   config.WorkersConfig
	now   func() time.Time
}

func NewJobs(logs LogPurger, queue QueueMaintainer, cfg config.WorkersConfig) *Jobs {
	return &Jobs{logs: logs, queue: queue, cfg: cfg, now: time.Now}
}

// PurgeDispatchLogs deletes dispatch log entries past the retention window.
func (j *Jobs) PurgeDispatchLogs(ctx context.Context) error {
	if j.cfg.LogRetention <= 0 {
		return nil
	}
	cutoff := j.now().Add(-j.cfg.LogRetention)

	n, err := j.logs.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge dispatch logs: %w", err)
	}
	log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("dispatch logs purged")
	return nil
}

// ReportQueueStats logs the email queue depth per state.
func (j *Jobs) ReportQueueStats(ctx context.Context) error {
	stats, err := j.queue.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read queue stats: %w", err)
	}
	log.Info().
		Int64("waiting", stats.Waiting).
		Int64("active", stats.Active).
		Int64("completed", stats.Completed).
		Int64("failed", stats.Failed).
		Msg("email queue stats")
	return nil
}

// ReleaseStaleJobs returns jobs stuck in active back to waiting.
func (j *Jobs) ReleaseStaleJobs(ctx context.Context) error {
	cutoff := j.now().Add(-j.cfg.StaleJobAfter)

	released, failed, err := j.queue.ReleaseStale(ctx, cutoff, j.cfg.MaxAttempts)
	if err != nil {
		return fmt.Errorf("failed to release stale jobs: %w", err)
	}
	if released > 0 || failed > 0 {
		log.Warn().Int64("released", released).Int64("failed", failed).Msg("stale email jobs recovered")
	}
	return nil
}

// Schedule registers every job on c using the configured cron specs.
func (j *Jobs) Schedule(c *cron.Cron) error {
	entries := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"purge_dispatch_logs", j.cfg.LogPurgeSchedule, j.PurgeDispatchLogs},
		{"queue_stats", j.cfg.QueueStatsSchedule, j.ReportQueueStats},
		{"release_stale_jobs", j.cfg.StaleJobSchedule, j.ReleaseStaleJobs},
	}

	for _, e := range entries {
		if e.spec == "" {
			log.Info().Str("job", e.name).Msg("job disabled")
			continue
		}
		name, run := e.name, e.run
		if _, err := c.AddFunc(e.spec, func() { runJob(name, run) }); err != nil {
			return fmt.Errorf("invalid schedule %q for %s: %w", e.spec, name, err)
		}
		log.Info().Str("job", name).Str("schedule", e.spec).Msg("job scheduled")
	}
	return nil
}

func runJob(name string, run func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	if err := run(ctx); err != nil {
		log.Error().Err(err).Str("job", name).Msg("job failed")
		return
	}
	log.Debug().Str("job", name).Dur("duration", time.Since(start)).Msg("job finished")
}

package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"payhook/internal/platform/config"
	"payhook/internal/platform/models"

	"github.com/robfig/cron/v3"
)

type fakeLogs struct {
	cutoff time.Time
	err    error
}

func (f *fakeLogs) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 4, f.err
}

type fakeQueue struct {
	cutoff      time.Time
	maxAttempts int
	err         error
}

func (f *fakeQueue) Stats(ctx context.Context) (models.QueueStats, error) {
	return models.QueueStats{Waiting: 1}, f.err
}

func (f *fakeQueue) ReleaseStale(ctx context.Context, cutoff time.Time, maxAttempts int) (int64, int64, error) {
	f.cutoff, f.maxAttempts = cutoff, maxAttempts
	return 1, 0, f.err
}

func testConfig() config.WorkersConfig {
	return config.WorkersConfig{
		LogRetention:       90 * 24 * time.Hour,
		LogPurgeSchedule:   "0 3 * * *",
		QueueStatsSchedule: "*/5 * * * *",
		StaleJobSchedule:   "*/10 * * * *",
		StaleJobAfter:      30 * time.Minute,
		MaxAttempts:        5,
	}
}

func TestJobs_Cutoffs(t *testing.T) {
	logs, queue := &fakeLogs{}, &fakeQueue{}
	jobs := NewJobs(logs, queue, testConfig())
	now := time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)
	jobs.now = func() time.Time { return now }
	ctx := context.Background()

	if err := jobs.PurgeDispatchLogs(ctx); err != nil {
		t.Fatalf("PurgeDispatchLogs failed: %v", err)
	}
	if !logs.cutoff.Equal(now.Add(-90 * 24 * time.Hour)) {
		t.Errorf("purge cutoff = %v", logs.cutoff)
	}

	if err := jobs.ReleaseStaleJobs(ctx); err != nil {
		t.Fatalf("ReleaseStaleJobs failed: %v", err)
	}
	if !queue.cutoff.Equal(now.Add(-30*time.Minute)) || queue.maxAttempts != 5 {
		t.Errorf("stale cutoff = %v, maxAttempts = %d", queue.cutoff, queue.maxAttempts)
	}

	if err := jobs.ReportQueueStats(ctx); err != nil {
		t.Errorf("ReportQueueStats failed: %v", err)
	}
}

func TestJobs_Errors(t *testing.T) {
	boom := errors.New("boom")
	jobs := NewJobs(&fakeLogs{err: boom}, &fakeQueue{err: boom}, testConfig())
	ctx := context.Background()

	for name, run := range map[string]func(context.Context) error{
		"purge":   jobs.PurgeDispatchLogs,
		"stats":   jobs.ReportQueueStats,
		"release": jobs.ReleaseStaleJobs,
	} {
		if err := run(ctx); !errors.Is(err, boom) {
			t.Errorf("%s: err = %v, want wrapped boom", name, err)
		}
	}
}

func TestJobs_RetentionDisabled(t *testing.T) {
	logs := &fakeLogs{}
	cfg := testConfig()
	cfg.LogRetention = 0

	if err := NewJobs(logs, &fakeQueue{}, cfg).PurgeDispatchLogs(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !logs.cutoff.IsZero() {
		t.Error("Purge must not run without a retention window")
	}
}

func TestJobs_Schedule(t *testing.T) {
	c := cron.New()
	if err := NewJobs(&fakeLogs{}, &fakeQueue{}, testConfig()).Schedule(c); err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	if got := len(c.Entries()); got != 3 {
		t.Errorf("entries = %d, want 3", got)
	}

	cfg := testConfig()
	cfg.QueueStatsSchedule = ""
	c = cron.New()
	NewJobs(&fakeLogs{}, &fakeQueue{}, cfg).Schedule(c)
	if got := len(c.Entries()); got != 2 {
		t.Errorf("entries = %d, want 2 with one job disabled", got)
	}

	cfg.LogPurgeSchedule = "not a schedule"
	if err := NewJobs(&fakeLogs{}, &fakeQueue{}, cfg).Schedule(cron.New()); err == nil {
		t.Error("Expected invalid cron spec to fail")
	}
}

package queue

import (
	"context"
	"testing"
	"time"

	"payhook/internal/platform/config"
	"payhook/internal/platform/database"
	"payhook/internal/platform/models"

	"github.com/jmoiron/sqlx"
)

func setupStore(t *testing.T) (*Store, *sqlx.DB) {
	db, err := database.Open(config.DatabaseConfig{URL: ":memory:", MaxConnections: 1})
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	if _, err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), db
}

func TestStore_Enqueue(t *testing.T) {
	store, _ := setupStore(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }
	ctx := context.Background()

	job := &models.EmailJob{
		CompanyID:     1,
		WebhookLinkID: 2,
		TemplateID:    3,
		To:            "ana@example.com",
		Subject:       "Olá",
		HTML:          "<p>Olá</p>",
		Variables:     map[string]string{"customer_name": "Ana"},
		Metadata:      models.JobMetadata{Platform: "kiwify", EventType: "order_approved"},
	}

	id, err := store.Enqueue(ctx, job, 2*time.Hour)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if id == "" || id != job.ID {
		t.Fatalf("Unexpected job id %q", id)
	}

	got, err := store.Get(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != models.JobWaiting {
		t.Errorf("status = %q, want waiting", got.Status)
	}
	if got.RunAt != now.Add(2*time.Hour).UnixMilli() {
		t.Errorf("run_at = %d", got.RunAt)
	}
	if got.Variables["customer_name"] != "Ana" || got.Metadata.Platform != "kiwify" {
		t.Errorf("Payload not preserved: %+v", got)
	}

	missing, err := store.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Expected nil, nil for a missing job, got %v, %v", missing, err)
	}
}

func TestStore_StatsAndReleaseStale(t *testing.T) {
	store, db := setupStore(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 4; i++ {
		if _, err := store.Enqueue(ctx, &models.EmailJob{To: "a@example.com"}, 0); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	old := now.Add(-time.Hour).Unix()
	db.MustExec(`UPDATE email_jobs SET status = 'active', updated_at = ?, attempts = 1 WHERE id IN (SELECT id FROM email_jobs LIMIT 2)`, old)
	db.MustExec(`UPDATE email_jobs SET status = 'active', attempts = 5, updated_at = ? WHERE id IN (SELECT id FROM email_jobs WHERE status = 'waiting' LIMIT 1)`, old)

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Waiting != 1 || stats.Active != 3 {
		t.Errorf("stats = %+v, want 1 waiting and 3 active", stats)
	}

	released, failed, err := store.ReleaseStale(ctx, now.Add(-30*time.Minute), 5)
	if err != nil {
		t.Fatalf("ReleaseStale failed: %v", err)
	}
	if released != 2 || failed != 1 {
		t.Errorf("released=%d failed=%d, want 2 and 1", released, failed)
	}

	stats, _ = store.Stats(ctx)
	if stats.Waiting != 3 || stats.Active != 0 || stats.Failed != 1 {
		t.Errorf("stats after release = %+v", stats)
	}
}

// Package queue is a durable delayed job queue for outbound emails, kept in
// the email_jobs table. A separate delivery worker claims and sends jobs.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"payhook/internal/platform/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Store struct {
	db    *sqlx.DB
	clock func() time.Time
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, clock: time.Now}
}

// Enqueue stores job as waiting, due after delay. run_at is in unix
// milliseconds. It returns the generated job id.
func (s *Store) Enqueue(ctx context.Context, job *models.EmailJob, delay time.Duration) (string, error) {
	now := s.clock()

	variables, err := json.Marshal(job.Variables)
	if err != nil {
		return "", err
	}
	metadata, err := json.Marshal(job.Metadata)
	if err != nil {
		return "", err
	}

	job.ID = uuid.New().String()
	job.Status = models.JobWaiting
	job.RunAt = now.Add(delay).UnixMilli()
	job.CreatedAt = now.Unix()
	job.UpdatedAt = job.CreatedAt

	query := s.db.Rebind(`
		INSERT INTO email_jobs (id, company_id, webhook_link_id, template_id, recipient_email, recipient_name,
			from_email, from_name, reply_to, subject, html, variables, metadata, status, run_at, attempts,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`)
	_, err = s.db.ExecContext(ctx, query,
		job.ID, job.CompanyID, job.WebhookLinkID, job.TemplateID, job.To, job.RecipientName,
		job.From, job.FromName, job.ReplyTo, job.Subject, job.HTML, string(variables), string(metadata),
		job.Status, job.RunAt, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return "", err
	}
	return job.ID, nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.EmailJob, error) {
	row := s.db.QueryRowxContext(ctx, s.db.Rebind(`
		SELECT id, company_id, webhook_link_id, template_id, recipient_email, recipient_name, from_email,
			from_name, reply_to, subject, html, variables, metadata, status, run_at, attempts, last_error,
			created_at, updated_at
		FROM email_jobs WHERE id = ?
	`), id)

	var job models.EmailJob
	var variables, metadata string
	err := row.Scan(&job.ID, &job.CompanyID, &job.WebhookLinkID, &job.TemplateID, &job.To, &job.RecipientName,
		&job.From, &job.FromName, &job.ReplyTo, &job.Subject, &job.HTML, &variables, &metadata,
		&job.Status, &job.RunAt, &job.Attempts, &job.LastError, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(variables), &job.Variables); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metadata), &job.Metadata); err != nil {
		return nil, err
	}
	return &job, nil
}

// Stats counts jobs per state.
func (s *Store) Stats(ctx context.Context) (models.QueueStats, error) {
	var stats models.QueueStats

	rows, err := s.db.QueryxContext(ctx, `SELECT status, COUNT(*) FROM email_jobs GROUP BY status`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return stats, err
		}
		switch status {
		case models.JobWaiting:
			stats.Waiting = count
		case models.JobActive:
			stats.Active = count
		case models.JobCompleted:
			stats.Completed = count
		case models.JobFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

// ReleaseStale puts jobs that have been active since before cutoff back in
// the waiting state, so a crashed delivery worker does not strand them. Jobs
// that already used maxAttempts are marked failed instead.
func (s *Store) ReleaseStale(ctx context.Context, cutoff time.Time, maxAttempts int) (released, failed int64, err error) {
	now := s.clock().Unix()

	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE email_jobs SET status = ?, last_error = ?, updated_at = ?
		WHERE status = ? AND updated_at < ? AND attempts >= ?
	`), models.JobFailed, "stale: attempts exhausted", now, models.JobActive, cutoff.Unix(), maxAttempts)
	if err != nil {
		return 0, 0, err
	}
	if failed, err = res.RowsAffected(); err != nil {
		return 0, 0, err
	}

	res, err = s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE email_jobs SET status = ?, updated_at = ?
		WHERE status = ? AND updated_at < ?
	`), models.JobWaiting, now, models.JobActive, cutoff.Unix())
	if err != nil {
		return 0, failed, err
	}
	released, err = res.RowsAffected()
	return released, failed, err
}

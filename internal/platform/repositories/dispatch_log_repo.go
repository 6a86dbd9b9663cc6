package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"payhook/internal/platform/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// DispatchLogRepository is append-only apart from retention purges.
type DispatchLogRepository struct {
	db *sqlx.DB
}

func NewDispatchLogRepository(db *sqlx.DB) *DispatchLogRepository {
	return &DispatchLogRepository{db: db}
}

func (r *DispatchLogRepository) Append(ctx context.Context, entry *models.DispatchLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}
	payload := entry.RawPayload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	query := r.db.Rebind(`
		INSERT INTO webhook_dispatch_logs (id, webhook_link_id, company_id, platform, event_type, raw_payload,
			flow_triggered, http_status, response_time_ms, error_message, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.WebhookLinkID, entry.CompanyID, entry.Platform, entry.EventType, string(payload),
		entry.FlowTriggered, entry.HTTPStatus, entry.ResponseTimeMs, entry.ErrorMessage,
		entry.IPAddress, entry.UserAgent, entry.CreatedAt,
	)
	return err
}

// ListByLink returns the newest entries first. A nil linkID lists the
// requests that matched no link.
func (r *DispatchLogRepository) ListByLink(ctx context.Context, linkID *int64, limit int) ([]*models.DispatchLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sqlx.Rows
	var err error
	if linkID == nil {
		rows, err = r.db.QueryxContext(ctx, r.db.Rebind(`SELECT id, webhook_link_id, company_id, platform, event_type, raw_payload,
			flow_triggered, http_status, response_time_ms, error_message, ip_address, user_agent, created_at
			FROM webhook_dispatch_logs WHERE webhook_link_id IS NULL ORDER BY created_at DESC LIMIT ?`), limit)
	} else {
		rows, err = r.db.QueryxContext(ctx, r.db.Rebind(`SELECT id, webhook_link_id, company_id, platform, event_type, raw_payload,
			flow_triggered, http_status, response_time_ms, error_message, ip_address, user_agent, created_at
			FROM webhook_dispatch_logs WHERE webhook_link_id = ? ORDER BY created_at DESC LIMIT ?`), *linkID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.DispatchLogEntry
	for rows.Next() {
		var e models.DispatchLogEntry
		var linkID, companyID sql.NullInt64
		var payload string
		if err := rows.Scan(&e.ID, &linkID, &companyID, &e.Platform, &e.EventType, &payload,
			&e.FlowTriggered, &e.HTTPStatus, &e.ResponseTimeMs, &e.ErrorMessage,
			&e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		if linkID.Valid {
			e.WebhookLinkID = &linkID.Int64
		}
		if companyID.Valid {
			e.CompanyID = &companyID.Int64
		}
		e.RawPayload = json.RawMessage(payload)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// PurgeOlderThan deletes entries created before cutoff and reports how many.
func (r *DispatchLogRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM webhook_dispatch_logs WHERE created_at < ?`), cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Summarize aggregates linkID's entries created at or after since.
func (r *DispatchLogRepository) Summarize(ctx context.Context, linkID int64, since time.Time) (*models.DispatchSummary, error) {
	s := &models.DispatchSummary{}

	var avg sql.NullFloat64
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN http_status = 200 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN http_status = 422 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN http_status = 500 THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT ip_address),
			AVG(response_time_ms)
		FROM webhook_dispatch_logs
		WHERE webhook_link_id = ? AND created_at >= ?
	`), linkID, since.Unix()).Scan(&s.Total, &s.Succeeded, &s.TargetInactive, &s.ProcessingErrors, &s.UniqueIPs, &avg)
	if err != nil {
		return nil, err
	}
	s.AvgResponseTimeMs = avg.Float64

	if s.Total == 0 {
		return s, nil
	}

	err = r.db.GetContext(ctx, &s.TopEventType, r.db.Rebind(`
		SELECT event_type FROM webhook_dispatch_logs
		WHERE webhook_link_id = ? AND created_at >= ?
		GROUP BY event_type ORDER BY COUNT(*) DESC, event_type LIMIT 1
	`), linkID, since.Unix())
	if err != nil {
		return nil, err
	}
	return s, nil
}

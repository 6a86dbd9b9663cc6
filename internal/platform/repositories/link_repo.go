package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"payhook/internal/platform/models"

	"github.com/jmoiron/sqlx"
)

type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

const linkColumns = `l.id, l.company_id, l.name, l.description, l.platform, l.action_type,
	l.flow_id, l.email_template_id, l.email_settings, l.webhook_hash, l.webhook_url, l.active,
	l.total_requests, l.successful_requests, l.last_request_at, l.created_at, l.updated_at,
	f.name, f.active, t.name, t.active`

const linkJoins = `FROM webhook_links l
	LEFT JOIN flows f ON f.id = l.flow_id AND f.company_id = l.company_id
	LEFT JOIN email_templates t ON t.id = l.email_template_id AND t.company_id = l.company_id`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// FindActiveByHash returns the active link addressed by hash with its target
// denormalized, or nil when no active link matches.
func (r *LinkRepository) FindActiveByHash(ctx context.Context, hash string) (*models.WebhookLink, error) {
	query := r.db.Rebind(`SELECT ` + linkColumns + ` ` + linkJoins + ` WHERE l.webhook_hash = ? AND l.active = ?`)
	return scanLink(r.db.QueryRowxContext(ctx, query, hash, true))
}

// FindByHash ignores the active flag. Used by the test endpoint and the CLI.
func (r *LinkRepository) FindByHash(ctx context.Context, hash string) (*models.WebhookLink, error) {
	query := r.db.Rebind(`SELECT ` + linkColumns + ` ` + linkJoins + ` WHERE l.webhook_hash = ?`)
	return scanLink(r.db.QueryRowxContext(ctx, query, hash))
}

// IsActive reports whether link id exists and is active.
func (r *LinkRepository) IsActive(ctx context.Context, id int64) (bool, error) {
	var active bool
	err := r.db.GetContext(ctx, &active, r.db.Rebind(`SELECT active FROM webhook_links WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return active, err
}

func (r *LinkRepository) ExistsByHash(ctx context.Context, hash string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM webhook_links WHERE webhook_hash = ?`), hash)
	return count > 0, err
}

func (r *LinkRepository) ExistsByName(ctx context.Context, companyID int64, name string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM webhook_links WHERE company_id = ? AND name = ?`), companyID, name)
	return count > 0, err
}

func (r *LinkRepository) Create(ctx context.Context, link *models.WebhookLink) error {
	now := time.Now().Unix()
	link.CreatedAt = now
	link.UpdatedAt = now

	var settings interface{}
	if link.EmailSettings != nil {
		settings = *link.EmailSettings
	}

	query := r.db.Rebind(`
		INSERT INTO webhook_links (company_id, name, description, platform, action_type, flow_id,
			email_template_id, email_settings, webhook_hash, webhook_url, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	return r.db.QueryRowxContext(ctx, query,
		link.CompanyID, link.Name, link.Description, link.Platform, link.ActionType, link.FlowID,
		link.EmailTemplateID, settings, link.WebhookHash, link.WebhookURL, link.Active,
		link.CreatedAt, link.UpdatedAt,
	).Scan(&link.ID)
}

// IncrementCounters bumps the request counters in a single statement so
// concurrent deliveries on one link never lose updates. Only successful
// requests move successful_requests and last_request_at.
func (r *LinkRepository) IncrementCounters(ctx context.Context, id int64, success bool, at time.Time) error {
	var query string
	var args []interface{}
	if success {
		query = `UPDATE webhook_links
			SET total_requests = total_requests + 1, successful_requests = successful_requests + 1, last_request_at = ?
			WHERE id = ?`
		args = []interface{}{at.Unix(), id}
	} else {
		query = `UPDATE webhook_links SET total_requests = total_requests + 1 WHERE id = ?`
		args = []interface{}{id}
	}

	_, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	return err
}

func scanLink(row rowScanner) (*models.WebhookLink, error) {
	var l models.WebhookLink
	var description sql.NullString
	var flowID, templateID, lastRequestAt sql.NullInt64
	var settings []byte
	var flowName, templateName sql.NullString
	var flowActive, templateActive sql.NullBool

	err := row.Scan(&l.ID, &l.CompanyID, &l.Name, &description, &l.Platform, &l.ActionType,
		&flowID, &templateID, &settings, &l.WebhookHash, &l.WebhookURL, &l.Active,
		&l.TotalRequests, &l.SuccessfulRequests, &lastRequestAt, &l.CreatedAt, &l.UpdatedAt,
		&flowName, &flowActive, &templateName, &templateActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	l.Description = description.String
	if flowID.Valid {
		l.FlowID = &flowID.Int64
	}
	if templateID.Valid {
		l.EmailTemplateID = &templateID.Int64
	}
	if lastRequestAt.Valid {
		l.LastRequestAt = &lastRequestAt.Int64
	}
	if len(settings) > 0 {
		var s models.EmailSettings
		if err := s.Scan(settings); err != nil {
			return nil, err
		}
		l.EmailSettings = &s
	}

	switch l.ActionType {
	case models.ActionFlow:
		if flowID.Valid && flowName.Valid {
			l.Target = &models.LinkTarget{Kind: models.ActionFlow, ID: flowID.Int64, Name: flowName.String, Active: flowActive.Bool}
		}
	case models.ActionEmail:
		if templateID.Valid && templateName.Valid {
			l.Target = &models.LinkTarget{Kind: models.ActionEmail, ID: templateID.Int64, Name: templateName.String, Active: templateActive.Bool}
		}
	}

	return &l, nil
}

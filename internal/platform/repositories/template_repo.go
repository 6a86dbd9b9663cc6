package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"payhook/internal/platform/models"

	"github.com/jmoiron/sqlx"
)

type TemplateRepository struct {
	db *sqlx.DB
}

func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

const templateColumns = `id, company_id, name, subject, preview_text, blocks, settings, active, created_at, updated_at`

// FindActive returns the template only when it belongs to companyID and is
// enabled. A missing or disabled template yields nil, nil.
func (r *TemplateRepository) FindActive(ctx context.Context, id, companyID int64) (*models.EmailTemplate, error) {
	query := r.db.Rebind(`SELECT ` + templateColumns + ` FROM email_templates WHERE id = ? AND company_id = ? AND active = ?`)
	return scanTemplate(r.db.QueryRowxContext(ctx, query, id, companyID, true))
}

func (r *TemplateRepository) Find(ctx context.Context, id, companyID int64) (*models.EmailTemplate, error) {
	query := r.db.Rebind(`SELECT ` + templateColumns + ` FROM email_templates WHERE id = ? AND company_id = ?`)
	return scanTemplate(r.db.QueryRowxContext(ctx, query, id, companyID))
}

func (r *TemplateRepository) Create(ctx context.Context, t *models.EmailTemplate) error {
	now := time.Now().Unix()
	t.CreatedAt = now
	t.UpdatedAt = now

	query := r.db.Rebind(`
		INSERT INTO email_templates (company_id, name, subject, preview_text, blocks, settings, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	return r.db.QueryRowxContext(ctx, query,
		t.CompanyID, t.Name, t.Subject, t.PreviewText, t.Blocks, t.Settings, t.Active, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
}

func scanTemplate(row rowScanner) (*models.EmailTemplate, error) {
	var t models.EmailTemplate
	err := row.Scan(&t.ID, &t.CompanyID, &t.Name, &t.Subject, &t.PreviewText, &t.Blocks, &t.Settings, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

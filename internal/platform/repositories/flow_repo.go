package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"payhook/internal/platform/models"

	"github.com/jmoiron/sqlx"
)

// FlowRepository reads the local mirror of flows owned by the flow engine.
type FlowRepository struct {
	db *sqlx.DB
}

func NewFlowRepository(db *sqlx.DB) *FlowRepository {
	return &FlowRepository{db: db}
}

func (r *FlowRepository) FindActive(ctx context.Context, id, companyID int64) (*models.Flow, error) {
	var f models.Flow
	query := r.db.Rebind(`SELECT id, company_id, name, active FROM flows WHERE id = ? AND company_id = ? AND active = ?`)
	err := r.db.QueryRowxContext(ctx, query, id, companyID, true).Scan(&f.ID, &f.CompanyID, &f.Name, &f.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (r *FlowRepository) Exists(ctx context.Context, id, companyID int64) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(*) FROM flows WHERE id = ? AND company_id = ?`), id, companyID)
	return count > 0, err
}

func (r *FlowRepository) Create(ctx context.Context, f *models.Flow) error {
	now := time.Now().Unix()
	query := r.db.Rebind(`INSERT INTO flows (company_id, name, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?) RETURNING id`)
	return r.db.QueryRowxContext(ctx, query, f.CompanyID, f.Name, f.Active, now, now).Scan(&f.ID)
}

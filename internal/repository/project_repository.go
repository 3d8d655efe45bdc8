package repository

import (
	"context"
	"database/sql"

	"github.com/boardsync/server/internal/models"
)

// ProjectRepository handles project sub-record persistence
type ProjectRepository struct {
	db DBTX
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db DBTX) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// GetByExternalID retrieves the project record for a work item
func (r *ProjectRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Project, error) {
	query := `SELECT id, external_id, current_stage, progress_link, progress_name, description, total_price, total_payment, created_at, updated_at
		FROM projects WHERE external_id = $1`

	var p models.Project
	err := r.db.QueryRowContext(ctx, query, externalID).Scan(
		&p.ID,
		&p.ExternalID,
		&p.CurrentStage,
		&p.ProgressLink,
		&p.ProgressName,
		&p.Description,
		&p.TotalPrice,
		&p.TotalPayment,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert creates or updates a project record keyed by external id
func (r *ProjectRepository) Upsert(ctx context.Context, p *models.Project) error {
	query := `INSERT INTO projects (id, external_id, current_stage, progress_link, progress_name, description, total_price, total_payment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (external_id) DO UPDATE SET
			current_stage = EXCLUDED.current_stage,
			progress_link = EXCLUDED.progress_link,
			progress_name = EXCLUDED.progress_name,
			description = EXCLUDED.description,
			total_price = EXCLUDED.total_price,
			total_payment = EXCLUDED.total_payment,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.ExternalID,
		p.CurrentStage,
		p.ProgressLink,
		p.ProgressName,
		p.Description,
		p.TotalPrice,
		p.TotalPayment,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

// DeleteByExternalID removes the project record for a work item
func (r *ProjectRepository) DeleteByExternalID(ctx context.Context, externalID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM projects WHERE external_id = $1",
		externalID,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

package repository

import (
	"context"

	"github.com/boardsync/server/internal/models"
)

// SyncLogRepository appends and reads the sync audit trail
type SyncLogRepository struct {
	db DBTX
}

// NewSyncLogRepository creates a new SyncLogRepository
func NewSyncLogRepository(db DBTX) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Add appends one audit entry
func (r *SyncLogRepository) Add(ctx context.Context, entry *models.SyncLog) error {
	query := `INSERT INTO sync_logs (entity_type, external_id, operation, status, error_message, logged_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		entry.EntityType,
		entry.ExternalID,
		entry.Operation,
		entry.Status,
		entry.ErrorMessage,
		entry.LoggedAt,
	)
	return err
}

// ListRecent returns the newest audit entries
func (r *SyncLogRepository) ListRecent(ctx context.Context, limit int) ([]*models.SyncLog, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, entity_type, external_id, operation, status, error_message, logged_at
		FROM sync_logs ORDER BY logged_at DESC, id DESC LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []*models.SyncLog{}
	for rows.Next() {
		var e models.SyncLog
		if err := rows.Scan(
			&e.ID,
			&e.EntityType,
			&e.ExternalID,
			&e.Operation,
			&e.Status,
			&e.ErrorMessage,
			&e.LoggedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

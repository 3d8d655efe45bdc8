package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/boardsync/server/internal/models"
)

// SyncStateRepository handles sync state persistence
type SyncStateRepository struct {
	db DBTX
}

// NewSyncStateRepository creates a new SyncStateRepository
func NewSyncStateRepository(db DBTX) *SyncStateRepository {
	return &SyncStateRepository{db: db}
}

const syncStateColumns = `id, owner_id, source, status, started_at, completed_at, last_sync_timestamp, last_cursor, has_more, total_records, processed_records, created_records, updated_records, progress, error_message`

func scanSyncState(row interface {
	Scan(dest ...interface{}) error
}) (*models.SyncState, error) {
	var state models.SyncState
	err := row.Scan(
		&state.ID,
		&state.OwnerID,
		&state.Source,
		&state.Status,
		&state.StartedAt,
		&state.CompletedAt,
		&state.LastSyncTimestamp,
		&state.LastCursor,
		&state.HasMore,
		&state.TotalRecords,
		&state.ProcessedRecords,
		&state.CreatedRecords,
		&state.UpdatedRecords,
		&state.Progress,
		&state.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// GetByID retrieves a sync state row by id
func (r *SyncStateRepository) GetByID(ctx context.Context, id string) (*models.SyncState, error) {
	query := `SELECT ` + syncStateColumns + ` FROM sync_state WHERE id = $1`

	state, err := scanSyncState(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Get retrieves the sync state row for an (owner, source) pair
func (r *SyncStateRepository) Get(ctx context.Context, ownerID, source string) (*models.SyncState, error) {
	query := `SELECT ` + syncStateColumns + ` FROM sync_state WHERE owner_id = $1 AND source = $2`

	state, err := scanSyncState(r.db.QueryRowContext(ctx, query, ownerID, source))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Upsert creates or replaces the sync state row for an (owner, source) pair
func (r *SyncStateRepository) Upsert(ctx context.Context, state *models.SyncState) error {
	query := `INSERT INTO sync_state (` + syncStateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (owner_id, source) DO UPDATE SET
			status = EXCLUDED.status,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			last_sync_timestamp = EXCLUDED.last_sync_timestamp,
			last_cursor = EXCLUDED.last_cursor,
			has_more = EXCLUDED.has_more,
			total_records = EXCLUDED.total_records,
			processed_records = EXCLUDED.processed_records,
			created_records = EXCLUDED.created_records,
			updated_records = EXCLUDED.updated_records,
			progress = EXCLUDED.progress,
			error_message = EXCLUDED.error_message`

	_, err := r.db.ExecContext(ctx, query,
		state.ID,
		state.OwnerID,
		state.Source,
		state.Status,
		state.StartedAt,
		state.CompletedAt,
		state.LastSyncTimestamp,
		state.LastCursor,
		state.HasMore,
		state.TotalRecords,
		state.ProcessedRecords,
		state.CreatedRecords,
		state.UpdatedRecords,
		state.Progress,
		state.ErrorMessage,
	)
	return err
}

// UpdateProgress persists chunk counters so pollers see incremental progress
func (r *SyncStateRepository) UpdateProgress(ctx context.Context, id string, processed, created, updated int, progress float64) error {
	query := `UPDATE sync_state
		SET processed_records = $1, created_records = $2, updated_records = $3, progress = $4
		WHERE id = $5`

	_, err := r.db.ExecContext(ctx, query, processed, created, updated, progress, id)
	return err
}

// SetTotal records the total the run will process once it is known
func (r *SyncStateRepository) SetTotal(ctx context.Context, id string, total int) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sync_state SET total_records = $1 WHERE id = $2",
		total, id,
	)
	return err
}

// MarkCompleted finalizes a run and advances the incremental watermark
func (r *SyncStateRepository) MarkCompleted(ctx context.Context, id string, watermark time.Time) error {
	now := time.Now().UTC()
	query := `UPDATE sync_state
		SET status = $1, completed_at = $2, last_sync_timestamp = $3,
			last_cursor = '', has_more = $4, progress = 100
		WHERE id = $5`

	_, err := r.db.ExecContext(ctx, query,
		models.SyncStatusCompleted, now, watermark, false, id,
	)
	return err
}

// MarkError finalizes a run in the error state. The watermark is left
// untouched so the next run re-covers the failed window.
func (r *SyncStateRepository) MarkError(ctx context.Context, id string, message string) error {
	now := time.Now().UTC()
	query := `UPDATE sync_state
		SET status = $1, completed_at = $2, error_message = $3, has_more = $4
		WHERE id = $5`

	_, err := r.db.ExecContext(ctx, query,
		models.SyncStatusError, now, message, false, id,
	)
	return err
}

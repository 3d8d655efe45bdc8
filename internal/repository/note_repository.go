package repository

import (
	"context"

	"github.com/boardsync/server/internal/models"
)

// NoteRepository handles note persistence
type NoteRepository struct {
	db DBTX
}

// NewNoteRepository creates a new NoteRepository
func NewNoteRepository(db DBTX) *NoteRepository {
	return &NoteRepository{db: db}
}

// Add stores a note
func (r *NoteRepository) Add(ctx context.Context, note *models.Note) error {
	query := `INSERT INTO notes (id, work_item_id, owner_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		note.ID,
		note.WorkItemID,
		note.OwnerID,
		note.Content,
		note.CreatedAt,
	)
	return err
}

// ListForWorkItem returns a work item's notes, newest first
func (r *NoteRepository) ListForWorkItem(ctx context.Context, workItemID string) ([]*models.Note, error) {
	query := `SELECT id, work_item_id, owner_id, content, created_at
		FROM notes WHERE work_item_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, workItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []*models.Note{}
	for rows.Next() {
		var n models.Note
		if err := rows.Scan(
			&n.ID,
			&n.WorkItemID,
			&n.OwnerID,
			&n.Content,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		notes = append(notes, &n)
	}

	return notes, rows.Err()
}

// CountForWorkItem returns the number of notes on a work item
func (r *NoteRepository) CountForWorkItem(ctx context.Context, workItemID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notes WHERE work_item_id = $1",
		workItemID,
	).Scan(&count)
	return count, err
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/boardsync/server/internal/models"
)

// WorkItemRepository handles work item persistence
type WorkItemRepository struct {
	db DBTX
}

// NewWorkItemRepository creates a new WorkItemRepository
func NewWorkItemRepository(db DBTX) *WorkItemRepository {
	return &WorkItemRepository{db: db}
}

func scanWorkItem(row interface {
	Scan(dest ...interface{}) error
}) (*models.WorkItem, error) {
	var item models.WorkItem
	var fields string
	err := row.Scan(
		&item.ID,
		&item.ExternalID,
		&item.OwnerID,
		&item.Name,
		&fields,
		&item.NotesCount,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Fields, err = models.UnmarshalFields(fields)
	if err != nil {
		return nil, fmt.Errorf("work item %s has invalid fields: %w", item.ExternalID, err)
	}
	return &item, nil
}

const workItemColumns = `id, external_id, owner_id, name, fields, notes_count, created_at, updated_at`

// GetByExternalID retrieves a work item by its board record id
func (r *WorkItemRepository) GetByExternalID(ctx context.Context, externalID string) (*models.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items WHERE external_id = $1`

	item, err := scanWorkItem(r.db.QueryRowContext(ctx, query, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetByExternalIDs retrieves multiple work items keyed by board record id
func (r *WorkItemRepository) GetByExternalIDs(ctx context.Context, externalIDs []string) (map[string]*models.WorkItem, error) {
	result := make(map[string]*models.WorkItem)
	if len(externalIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(externalIDs))
	args := make([]interface{}, len(externalIDs))
	for i, id := range externalIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := `SELECT ` + workItemColumns + ` FROM work_items WHERE external_id IN (` + strings.Join(placeholders, ",") + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		result[item.ExternalID] = item
	}

	return result, rows.Err()
}

// BulkInsert inserts work items in a single statement, skipping rows whose
// external id already exists. Returns the number of rows actually inserted.
func (r *WorkItemRepository) BulkInsert(ctx context.Context, items []*models.WorkItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	valueClauses := make([]string, len(items))
	args := make([]interface{}, 0, len(items)*8)
	for i, item := range items {
		fields, err := item.MarshalFields()
		if err != nil {
			return 0, err
		}
		base := i * 8
		valueClauses[i] = fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
		args = append(args,
			item.ID,
			item.ExternalID,
			item.OwnerID,
			item.Name,
			fields,
			item.NotesCount,
			item.CreatedAt,
			item.UpdatedAt,
		)
	}

	query := `INSERT INTO work_items (` + workItemColumns + `)
		VALUES ` + strings.Join(valueClauses, ", ") + `
		ON CONFLICT (external_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

// Update rewrites a work item's mutable columns
func (r *WorkItemRepository) Update(ctx context.Context, item *models.WorkItem) error {
	fields, err := item.MarshalFields()
	if err != nil {
		return err
	}

	query := `UPDATE work_items
		SET owner_id = $1, name = $2, fields = $3, updated_at = $4
		WHERE external_id = $5`

	_, err = r.db.ExecContext(ctx, query,
		item.OwnerID,
		item.Name,
		fields,
		item.UpdatedAt,
		item.ExternalID,
	)
	return err
}

// List retrieves work items for an owner, newest first, with optional
// stage and name filtering
func (r *WorkItemRepository) List(ctx context.Context, ownerID string, opts ListOptions) ([]*models.WorkItem, error) {
	query := `SELECT w.id, w.external_id, w.owner_id, w.name, w.fields, w.notes_count, w.created_at, w.updated_at
		FROM work_items w`
	args := []interface{}{ownerID}
	where := []string{"w.owner_id = $1"}

	if opts.Stage != "" {
		query += ` JOIN projects p ON p.external_id = w.external_id`
		args = append(args, opts.Stage)
		where = append(where, fmt.Sprintf("p.current_stage = $%d", len(args)))
	}
	if opts.Search != "" {
		args = append(args, "%"+strings.ToLower(opts.Search)+"%")
		where = append(where, fmt.Sprintf("LOWER(w.name) LIKE $%d", len(args)))
	}

	query += ` WHERE ` + strings.Join(where, " AND ") + ` ORDER BY w.updated_at DESC`

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*models.WorkItem{}
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// Count returns the number of work items for an owner
func (r *WorkItemRepository) Count(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM work_items WHERE owner_id = $1",
		ownerID,
	).Scan(&count)
	return count, err
}

// GetMostRecent returns the owner's most recently updated work item
func (r *WorkItemRepository) GetMostRecent(ctx context.Context, ownerID string) (*models.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items
		WHERE owner_id = $1 ORDER BY updated_at DESC LIMIT 1`

	item, err := scanWorkItem(r.db.QueryRowContext(ctx, query, ownerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// ListAll returns every work item. Used by the reverse push path.
func (r *WorkItemRepository) ListAll(ctx context.Context) ([]*models.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*models.WorkItem{}
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// DeleteByExternalID removes a work item row. Returns whether a row existed.
func (r *WorkItemRepository) DeleteByExternalID(ctx context.Context, externalID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM work_items WHERE external_id = $1",
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

// SetNotesCount stores the denormalized note count on a work item row
func (r *WorkItemRepository) SetNotesCount(ctx context.Context, id string, count int) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE work_items SET notes_count = $1 WHERE id = $2",
		count, id,
	)
	return err
}

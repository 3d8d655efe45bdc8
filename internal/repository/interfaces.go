package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/boardsync/server/internal/models"
)

// DBTX is the narrow query interface repositories depend on. Both *sql.DB
// and the traced decorator in internal/observability satisfy it, so query
// diagnostics compose around repositories instead of mutating a shared
// client.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ListOptions filters and paginates the local work-item read path
type ListOptions struct {
	Limit  int
	Offset int
	Stage  string
	Search string
}

// WorkItemRepo defines work-item persistence operations
type WorkItemRepo interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.WorkItem, error)
	GetByExternalIDs(ctx context.Context, externalIDs []string) (map[string]*models.WorkItem, error)
	BulkInsert(ctx context.Context, items []*models.WorkItem) (int, error)
	Update(ctx context.Context, item *models.WorkItem) error
	List(ctx context.Context, ownerID string, opts ListOptions) ([]*models.WorkItem, error)
	Count(ctx context.Context, ownerID string) (int, error)
	GetMostRecent(ctx context.Context, ownerID string) (*models.WorkItem, error)
	ListAll(ctx context.Context) ([]*models.WorkItem, error)
	DeleteByExternalID(ctx context.Context, externalID string) (bool, error)
	SetNotesCount(ctx context.Context, id string, count int) error
}

// StaffRepo defines staff-member persistence operations
type StaffRepo interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.StaffMember, error)
	GetByExternalIDs(ctx context.Context, externalIDs []string) (map[string]*models.StaffMember, error)
	BulkInsert(ctx context.Context, members []*models.StaffMember) (int, error)
	Update(ctx context.Context, member *models.StaffMember) error
	ListAll(ctx context.Context) ([]*models.StaffMember, error)
	DeleteByExternalID(ctx context.Context, externalID string) (bool, error)
}

// CustomerRepo defines customer sub-record persistence operations
type CustomerRepo interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.Customer, error)
	Upsert(ctx context.Context, customer *models.Customer) error
	DeleteByExternalID(ctx context.Context, externalID string) (bool, error)
}

// ProjectRepo defines project sub-record persistence operations
type ProjectRepo interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.Project, error)
	Upsert(ctx context.Context, project *models.Project) error
	DeleteByExternalID(ctx context.Context, externalID string) (bool, error)
}

// SyncStateRepo defines sync-state persistence operations
type SyncStateRepo interface {
	GetByID(ctx context.Context, id string) (*models.SyncState, error)
	Get(ctx context.Context, ownerID, source string) (*models.SyncState, error)
	Upsert(ctx context.Context, state *models.SyncState) error
	UpdateProgress(ctx context.Context, id string, processed, created, updated int, progress float64) error
	SetTotal(ctx context.Context, id string, total int) error
	MarkCompleted(ctx context.Context, id string, watermark time.Time) error
	MarkError(ctx context.Context, id string, message string) error
}

// SyncLogRepo appends audit entries for sync operations
type SyncLogRepo interface {
	Add(ctx context.Context, entry *models.SyncLog) error
	ListRecent(ctx context.Context, limit int) ([]*models.SyncLog, error)
}

// NoteRepo defines note persistence operations
type NoteRepo interface {
	Add(ctx context.Context, note *models.Note) error
	ListForWorkItem(ctx context.Context, workItemID string) ([]*models.Note, error)
	CountForWorkItem(ctx context.Context, workItemID string) (int, error)
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardsync/server/internal/models"
	"github.com/boardsync/server/internal/repository"
)

type writerFixture struct {
	db           *sql.DB
	workItemRepo *repository.WorkItemRepository
	customerRepo *repository.CustomerRepository
	projectRepo  *repository.ProjectRepository
	staffRepo    *repository.StaffRepository
	syncLogRepo  *repository.SyncLogRepository
	writer       *BatchWriter
}

func newWriterFixture(t *testing.T) *writerFixture {
	t.Helper()
	db, err := repository.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &writerFixture{
		db:           db,
		workItemRepo: repository.NewWorkItemRepository(db),
		customerRepo: repository.NewCustomerRepository(db),
		projectRepo:  repository.NewProjectRepository(db),
		staffRepo:    repository.NewStaffRepository(db),
		syncLogRepo:  repository.NewSyncLogRepository(db),
	}
	f.writer = NewBatchWriter(f.workItemRepo, f.customerRepo, f.projectRepo,
		f.staffRepo, f.syncLogRepo, nil, 2)
	return f
}

func boardWorkItem(t *testing.T, externalID, name string, fields map[string]string) *models.WorkItem {
	t.Helper()
	item, err := models.NewWorkItem(externalID, "rep@example.com", name, fields)
	require.NoError(t, err)
	return item
}

func TestBatchWriter_UpsertWorkItems(t *testing.T) {
	f := newWriterFixture(t)
	ctx := context.Background()

	firstBatch := func() []*models.WorkItem {
		return []*models.WorkItem{
			boardWorkItem(t, "101", "Roof replacement", map[string]string{
				"current_stage":       "New Lead",
				"job_address":         "123 Main St, Springfield, IL 62704",
				"job_total":           "$12,500.00",
				"customer_first_name": "Pat",
				"customer_last_name":  "Jones",
				"customer_email":      "pat@example.com",
			}),
			boardWorkItem(t, "102", "Gutter repair", map[string]string{
				"current_stage": "In Progress",
			}),
			boardWorkItem(t, "103", "Siding quote", nil),
		}
	}

	t.Run("first sync creates everything", func(t *testing.T) {
		stats, err := f.writer.UpsertWorkItems(ctx, firstBatch())
		require.NoError(t, err)

		assert.Equal(t, UpsertStats{Created: 3}, stats)
	})

	t.Run("derives customer and project sub-records", func(t *testing.T) {
		customer, err := f.customerRepo.GetByExternalID(ctx, "101")
		require.NoError(t, err)
		require.NotNil(t, customer)
		assert.Equal(t, "Pat Jones", customer.FullName)
		assert.Equal(t, "pat@example.com", customer.Email)
		assert.Equal(t, "123 Main St", customer.Street)
		assert.Equal(t, "Springfield", customer.City)
		assert.Equal(t, "IL", customer.State)
		assert.Equal(t, "62704", customer.Zip)

		project, err := f.projectRepo.GetByExternalID(ctx, "101")
		require.NoError(t, err)
		require.NotNil(t, project)
		assert.Equal(t, "New Lead", project.CurrentStage)
		require.NotNil(t, project.TotalPrice)
		assert.InDelta(t, 12500.0, *project.TotalPrice, 0.001)

		// No contact data on 103, so no customer row
		customer, err = f.customerRepo.GetByExternalID(ctx, "103")
		require.NoError(t, err)
		assert.Nil(t, customer)
	})

	t.Run("unchanged re-run writes nothing", func(t *testing.T) {
		stats, err := f.writer.UpsertWorkItems(ctx, firstBatch())
		require.NoError(t, err)

		assert.Equal(t, UpsertStats{Skipped: 3}, stats)
	})

	t.Run("only changed rows are updated", func(t *testing.T) {
		batch := firstBatch()
		batch[1].Fields["current_stage"] = "Completed"

		stats, err := f.writer.UpsertWorkItems(ctx, batch)
		require.NoError(t, err)
		assert.Equal(t, UpsertStats{Updated: 1, Skipped: 2}, stats)

		got, err := f.workItemRepo.GetByExternalID(ctx, "102")
		require.NoError(t, err)
		assert.Equal(t, "Completed", got.Fields["current_stage"])
	})

	t.Run("updated row keeps its stored identity", func(t *testing.T) {
		original, err := f.workItemRepo.GetByExternalID(ctx, "101")
		require.NoError(t, err)

		batch := []*models.WorkItem{
			boardWorkItem(t, "101", "Roof replacement (rev 2)", nil),
		}
		_, err = f.writer.UpsertWorkItems(ctx, batch)
		require.NoError(t, err)

		got, err := f.workItemRepo.GetByExternalID(ctx, "101")
		require.NoError(t, err)
		assert.Equal(t, original.ID, got.ID)
		assert.Equal(t, "Roof replacement (rev 2)", got.Name)
	})

	t.Run("every change is audit-logged", func(t *testing.T) {
		entries, err := f.syncLogRepo.ListRecent(ctx, 100)
		require.NoError(t, err)
		assert.NotEmpty(t, entries)
		for _, e := range entries {
			assert.Equal(t, "work_item", e.EntityType)
			assert.Equal(t, models.SyncLogSuccess, e.Status)
		}
	})
}

// flakyCustomerRepo fails a configured number of upserts before recovering
type flakyCustomerRepo struct {
	*repository.CustomerRepository
	failures int
}

func (r *flakyCustomerRepo) Upsert(ctx context.Context, c *models.Customer) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("connection reset by peer")
	}
	return r.CustomerRepository.Upsert(ctx, c)
}

func TestBatchWriter_SubRecordsRecoverOnRetry(t *testing.T) {
	ctx := context.Background()
	db, err := repository.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	workItemRepo := repository.NewWorkItemRepository(db)
	customerRepo := &flakyCustomerRepo{
		CustomerRepository: repository.NewCustomerRepository(db),
		failures:           1,
	}
	writer := NewBatchWriter(workItemRepo, customerRepo,
		repository.NewProjectRepository(db),
		repository.NewStaffRepository(db),
		repository.NewSyncLogRepository(db), nil, 2)

	batch := func() []*models.WorkItem {
		return []*models.WorkItem{
			boardWorkItem(t, "101", "Roof replacement", map[string]string{
				"customer_first_name": "Pat",
				"customer_email":      "pat@example.com",
			}),
		}
	}

	// First pass commits the parent but fails on the customer write
	_, err = writer.UpsertWorkItems(ctx, batch())
	require.Error(t, err)

	parent, err := workItemRepo.GetByExternalID(ctx, "101")
	require.NoError(t, err)
	require.NotNil(t, parent)

	customer, err := customerRepo.CustomerRepository.GetByExternalID(ctx, "101")
	require.NoError(t, err)
	require.Nil(t, customer)

	// A retry with identical content skips the parent but still repairs
	// the missing customer row
	stats, err := writer.UpsertWorkItems(ctx, batch())
	require.NoError(t, err)
	assert.Equal(t, UpsertStats{Skipped: 1}, stats)

	customer, err = customerRepo.CustomerRepository.GetByExternalID(ctx, "101")
	require.NoError(t, err)
	require.NotNil(t, customer)
	assert.Equal(t, "pat@example.com", customer.Email)
}

func TestBatchWriter_UpsertStaff(t *testing.T) {
	f := newWriterFixture(t)
	ctx := context.Background()

	member := func(externalID, first, last, email string) *models.StaffMember {
		m, err := models.NewStaffMember(externalID)
		require.NoError(t, err)
		m.FirstName = first
		m.LastName = last
		m.Email = email
		return m
	}

	t.Run("blank rows are skipped", func(t *testing.T) {
		stats, err := f.writer.UpsertStaff(ctx, []*models.StaffMember{
			member("s1", "Ada", "Smith", "ada@example.com"),
			member("s2", "", "", ""),
		})
		require.NoError(t, err)

		assert.Equal(t, UpsertStats{Created: 1, Skipped: 1}, stats)

		got, err := f.staffRepo.GetByExternalID(ctx, "s2")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("missing email is kept but logged as a warning", func(t *testing.T) {
		stats, err := f.writer.UpsertStaff(ctx, []*models.StaffMember{
			member("s3", "Lee", "Wong", ""),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Created)

		entries, err := f.syncLogRepo.ListRecent(ctx, 10)
		require.NoError(t, err)

		var warned bool
		for _, e := range entries {
			if e.ExternalID == "s3" && e.Status == models.SyncLogWarning {
				warned = true
			}
		}
		assert.True(t, warned)
	})

	t.Run("unchanged staff are skipped on re-run", func(t *testing.T) {
		stats, err := f.writer.UpsertStaff(ctx, []*models.StaffMember{
			member("s1", "Ada", "Smith", "ada@example.com"),
		})
		require.NoError(t, err)
		assert.Equal(t, UpsertStats{Skipped: 1}, stats)
	})

	t.Run("changed staff are updated in place", func(t *testing.T) {
		stats, err := f.writer.UpsertStaff(ctx, []*models.StaffMember{
			member("s1", "Ada", "Smith-Jones", "ada@example.com"),
		})
		require.NoError(t, err)
		assert.Equal(t, UpsertStats{Updated: 1}, stats)

		got, err := f.staffRepo.GetByExternalID(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "Smith-Jones", got.LastName)
	})
}

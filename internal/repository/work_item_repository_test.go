package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardsync/server/internal/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func mustWorkItem(t *testing.T, externalID, ownerID, name string, fields map[string]string) *models.WorkItem {
	t.Helper()
	item, err := models.NewWorkItem(externalID, ownerID, name, fields)
	require.NoError(t, err)
	return item
}

func TestWorkItemRepository_BulkInsert(t *testing.T) {
	repo := NewWorkItemRepository(newTestDB(t))
	ctx := context.Background()

	items := []*models.WorkItem{
		mustWorkItem(t, "101", "rep@example.com", "Job A", map[string]string{"current_stage": "New Lead"}),
		mustWorkItem(t, "102", "rep@example.com", "Job B", nil),
		mustWorkItem(t, "103", "rep@example.com", "Job C", nil),
	}

	t.Run("inserts all new rows", func(t *testing.T) {
		inserted, err := repo.BulkInsert(ctx, items)
		require.NoError(t, err)
		assert.Equal(t, 3, inserted)
	})

	t.Run("existing external ids are skipped, not duplicated", func(t *testing.T) {
		again := []*models.WorkItem{
			mustWorkItem(t, "102", "rep@example.com", "Job B changed", nil),
			mustWorkItem(t, "104", "rep@example.com", "Job D", nil),
		}

		inserted, err := repo.BulkInsert(ctx, again)
		require.NoError(t, err)
		assert.Equal(t, 1, inserted)

		// The conflicting row kept its original content
		existing, err := repo.GetByExternalID(ctx, "102")
		require.NoError(t, err)
		require.NotNil(t, existing)
		assert.Equal(t, "Job B", existing.Name)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		inserted, err := repo.BulkInsert(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, inserted)
	})
}

func TestWorkItemRepository_GetByExternalID(t *testing.T) {
	repo := NewWorkItemRepository(newTestDB(t))
	ctx := context.Background()

	item := mustWorkItem(t, "201", "rep@example.com", "Job X", map[string]string{
		"current_stage": "In Progress",
		"job_total":     "$9,000",
	})
	_, err := repo.BulkInsert(ctx, []*models.WorkItem{item})
	require.NoError(t, err)

	t.Run("round-trips the field map", func(t *testing.T) {
		got, err := repo.GetByExternalID(ctx, "201")
		require.NoError(t, err)
		require.NotNil(t, got)

		assert.Equal(t, item.ID, got.ID)
		assert.Equal(t, "Job X", got.Name)
		assert.Equal(t, item.Fields, got.Fields)
	})

	t.Run("returns nil for unknown id", func(t *testing.T) {
		got, err := repo.GetByExternalID(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestWorkItemRepository_GetByExternalIDs(t *testing.T) {
	repo := NewWorkItemRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.BulkInsert(ctx, []*models.WorkItem{
		mustWorkItem(t, "301", "rep@example.com", "Job A", nil),
		mustWorkItem(t, "302", "rep@example.com", "Job B", nil),
	})
	require.NoError(t, err)

	got, err := repo.GetByExternalIDs(ctx, []string{"301", "302", "999"})
	require.NoError(t, err)

	assert.Len(t, got, 2)
	assert.Contains(t, got, "301")
	assert.Contains(t, got, "302")
}

func TestWorkItemRepository_Update(t *testing.T) {
	repo := NewWorkItemRepository(newTestDB(t))
	ctx := context.Background()

	item := mustWorkItem(t, "401", "rep@example.com", "Job A", map[string]string{"current_stage": "New Lead"})
	_, err := repo.BulkInsert(ctx, []*models.WorkItem{item})
	require.NoError(t, err)

	item.Name = "Job A renamed"
	item.Fields["current_stage"] = "Closed"
	item.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, item))

	got, err := repo.GetByExternalID(ctx, "401")
	require.NoError(t, err)
	assert.Equal(t, "Job A renamed", got.Name)
	assert.Equal(t, "Closed", got.Fields["current_stage"])
}

func TestWorkItemRepository_List(t *testing.T) {
	db := newTestDB(t)
	repo := NewWorkItemRepository(db)
	projectRepo := NewProjectRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, row := range []struct {
		id, name, stage string
	}{
		{"501", "Roof replacement", "New Lead"},
		{"502", "Gutter repair", "In Progress"},
		{"503", "Roof inspection", "In Progress"},
	} {
		item := mustWorkItem(t, row.id, "rep@example.com", row.name, nil)
		item.UpdatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := repo.BulkInsert(ctx, []*models.WorkItem{item})
		require.NoError(t, err)

		project, err := models.NewProject(row.id)
		require.NoError(t, err)
		project.CurrentStage = row.stage
		require.NoError(t, projectRepo.Upsert(ctx, project))
	}

	t.Run("newest first", func(t *testing.T) {
		items, err := repo.List(ctx, "rep@example.com", ListOptions{})
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "503", items[0].ExternalID)
	})

	t.Run("stage filter", func(t *testing.T) {
		items, err := repo.List(ctx, "rep@example.com", ListOptions{Stage: "In Progress"})
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("search filter is case-insensitive", func(t *testing.T) {
		items, err := repo.List(ctx, "rep@example.com", ListOptions{Search: "ROOF"})
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("pagination", func(t *testing.T) {
		items, err := repo.List(ctx, "rep@example.com", ListOptions{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("unknown owner returns empty slice", func(t *testing.T) {
		items, err := repo.List(ctx, "other@example.com", ListOptions{})
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestWorkItemRepository_GetMostRecent(t *testing.T) {
	repo := NewWorkItemRepository(newTestDB(t))
	ctx := context.Background()

	t.Run("empty store returns nil", func(t *testing.T) {
		got, err := repo.GetMostRecent(ctx, "rep@example.com")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	older := mustWorkItem(t, "601", "rep@example.com", "Old", nil)
	older.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	newer := mustWorkItem(t, "602", "rep@example.com", "New", nil)
	_, err := repo.BulkInsert(ctx, []*models.WorkItem{older, newer})
	require.NoError(t, err)

	got, err := repo.GetMostRecent(ctx, "rep@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "602", got.ExternalID)
}

func TestWorkItemRepository_DeleteByExternalID(t *testing.T) {
	repo := NewWorkItemRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.BulkInsert(ctx, []*models.WorkItem{
		mustWorkItem(t, "701", "rep@example.com", "Job", nil),
	})
	require.NoError(t, err)

	deleted, err := repo.DeleteByExternalID(ctx, "701")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteByExternalID(ctx, "701")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSyncStateRepository(t *testing.T) {
	repo := NewSyncStateRepository(newTestDB(t))
	ctx := context.Background()

	state, err := models.NewSyncState("rep@example.com", models.SourceBoard)
	require.NoError(t, err)
	state.BeginRun(time.Now().UTC())
	require.NoError(t, repo.Upsert(ctx, state))

	t.Run("get by owner and source", func(t *testing.T) {
		got, err := repo.Get(ctx, "rep@example.com", models.SourceBoard)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, state.ID, got.ID)
		assert.Equal(t, models.SyncStatusInProgress, got.Status)
	})

	t.Run("upsert replaces the existing owner row", func(t *testing.T) {
		state.TotalRecords = 40
		require.NoError(t, repo.Upsert(ctx, state))

		got, err := repo.Get(ctx, "rep@example.com", models.SourceBoard)
		require.NoError(t, err)
		assert.Equal(t, 40, got.TotalRecords)
	})

	t.Run("progress updates are visible to pollers", func(t *testing.T) {
		require.NoError(t, repo.UpdateProgress(ctx, state.ID, 20, 15, 5, 50))

		got, err := repo.GetByID(ctx, state.ID)
		require.NoError(t, err)
		assert.Equal(t, 20, got.ProcessedRecords)
		assert.Equal(t, 15, got.CreatedRecords)
		assert.Equal(t, 5, got.UpdatedRecords)
		assert.InDelta(t, 50.0, got.Progress, 0.001)
	})

	t.Run("mark completed advances the watermark", func(t *testing.T) {
		watermark := time.Now().UTC().Truncate(time.Second)
		require.NoError(t, repo.MarkCompleted(ctx, state.ID, watermark))

		got, err := repo.GetByID(ctx, state.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SyncStatusCompleted, got.Status)
		require.NotNil(t, got.LastSyncTimestamp)
		assert.WithinDuration(t, watermark, *got.LastSyncTimestamp, time.Second)
		assert.False(t, got.HasMore)
	})

	t.Run("mark error keeps the watermark", func(t *testing.T) {
		before, err := repo.GetByID(ctx, state.ID)
		require.NoError(t, err)

		require.NoError(t, repo.MarkError(ctx, state.ID, "board source unavailable"))

		got, err := repo.GetByID(ctx, state.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SyncStatusError, got.Status)
		assert.Equal(t, "board source unavailable", got.ErrorMessage)
		require.NotNil(t, got.LastSyncTimestamp)
		assert.Equal(t, before.LastSyncTimestamp.Unix(), got.LastSyncTimestamp.Unix())
	})
}

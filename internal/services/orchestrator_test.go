package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardsync/server/internal/boardapi"
	"github.com/boardsync/server/internal/models"
	"github.com/boardsync/server/internal/repository"
)

// fakeBoardSource serves canned items from memory. The cursor is a numeric
// offset, mirroring how the fixture server in the boardapi tests paginates.
type fakeBoardSource struct {
	mu         sync.Mutex
	items      []boardapi.Item
	staffItems []boardapi.Item
	latest     *boardapi.Item
	fetchErr   error

	// When set, FetchPage blocks until the channel is closed.
	gate chan struct{}

	pageCalls   int
	lastFilters []boardapi.Filter
}

func (f *fakeBoardSource) FetchPage(ctx context.Context, boardID string, cols boardapi.ColumnMap, filter boardapi.Filter, cursor string, limit int) ([]boardapi.Item, string, error) {
	f.mu.Lock()
	gate := f.gate
	f.pageCalls++
	f.lastFilters = append(f.lastFilters, filter)
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, "", f.fetchErr
	}

	offset := 0
	if cursor != "" {
		offset, _ = strconv.Atoi(cursor)
	}
	if offset >= len(f.items) {
		return nil, "", nil
	}
	end := offset + limit
	if end > len(f.items) {
		end = len(f.items)
	}
	next := ""
	if end < len(f.items) {
		next = strconv.Itoa(end)
	}
	return f.items[offset:end], next, nil
}

func (f *fakeBoardSource) FetchAll(ctx context.Context, boardID string, cols boardapi.ColumnMap, filter boardapi.Filter) ([]boardapi.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.staffItems, nil
}

func (f *fakeBoardSource) FetchLatest(ctx context.Context, boardID string, cols boardapi.ColumnMap, ownerEmail string) (*boardapi.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.latest, nil
}

type orchestratorFixture struct {
	source       *fakeBoardSource
	orchestrator *SyncOrchestrator
	stateRepo    *repository.SyncStateRepository
	workItemRepo *repository.WorkItemRepository
}

func newOrchestratorFixture(t *testing.T, source *fakeBoardSource) *orchestratorFixture {
	t.Helper()
	db, err := repository.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	workItemRepo := repository.NewWorkItemRepository(db)
	stateRepo := repository.NewSyncStateRepository(db)
	writer := NewBatchWriter(workItemRepo,
		repository.NewCustomerRepository(db),
		repository.NewProjectRepository(db),
		repository.NewStaffRepository(db),
		repository.NewSyncLogRepository(db),
		nil, 2)
	runner := NewSyncRunner(source, writer, stateRepo, "board-1", 10, time.Millisecond)

	return &orchestratorFixture{
		source:       source,
		stateRepo:    stateRepo,
		workItemRepo: workItemRepo,
		orchestrator: NewSyncOrchestrator(source, runner, writer, stateRepo,
			workItemRepo, "board-1", "board-2", nil),
	}
}

func boardItem(id, name, stage string) boardapi.Item {
	return boardapi.Item{
		ID:        id,
		Name:      name,
		UpdatedAt: time.Now().UTC(),
		ColumnValues: []boardapi.ColumnValue{
			{ID: "text95__1", Text: stage},
		},
	}
}

func (f *orchestratorFixture) waitForStatus(t *testing.T, ownerID string, want models.SyncStatus) *models.SyncState {
	t.Helper()
	var state *models.SyncState
	require.Eventually(t, func() bool {
		var err error
		state, err = f.stateRepo.Get(context.Background(), ownerID, models.SourceBoard)
		return err == nil && state != nil && state.Status == want
	}, 5*time.Second, 10*time.Millisecond)
	return state
}

func TestSyncOrchestrator_StartSync(t *testing.T) {
	ctx := context.Background()

	t.Run("runs to completion and records counters", func(t *testing.T) {
		source := &fakeBoardSource{}
		for i := 0; i < 25; i++ {
			source.items = append(source.items,
				boardItem(strconv.Itoa(i), fmt.Sprintf("Job %d", i), "New Lead"))
		}
		f := newOrchestratorFixture(t, source)

		syncID, err := f.orchestrator.StartSync(ctx, "rep@example.com", false, 10)
		require.NoError(t, err)
		assert.NotEmpty(t, syncID)

		state := f.waitForStatus(t, "rep@example.com", models.SyncStatusCompleted)
		assert.Equal(t, syncID, state.ID)
		assert.Equal(t, 25, state.TotalRecords)
		assert.Equal(t, 25, state.ProcessedRecords)
		assert.Equal(t, 25, state.CreatedRecords)
		assert.InDelta(t, 100, state.Progress, 0.001)
		assert.NotNil(t, state.LastSyncTimestamp)
		assert.False(t, state.HasMore)

		count, err := f.workItemRepo.Count(ctx, "rep@example.com")
		require.NoError(t, err)
		assert.Equal(t, 25, count)
	})

	t.Run("rejects a second run for the same owner", func(t *testing.T) {
		source := &fakeBoardSource{
			items: []boardapi.Item{boardItem("1", "Job", "New Lead")},
			gate:  make(chan struct{}),
		}
		f := newOrchestratorFixture(t, source)

		_, err := f.orchestrator.StartSync(ctx, "rep@example.com", false, 0)
		require.NoError(t, err)

		_, err = f.orchestrator.StartSync(ctx, "rep@example.com", false, 0)
		assert.ErrorIs(t, err, models.ErrSyncInProgress)

		// A different owner is not blocked
		_, err = f.orchestrator.StartSync(ctx, "other@example.com", false, 0)
		require.NoError(t, err)

		close(source.gate)
		f.waitForStatus(t, "rep@example.com", models.SyncStatusCompleted)

		// Slot is free again once the run finishes
		require.Eventually(t, func() bool {
			_, err := f.orchestrator.StartSync(ctx, "rep@example.com", false, 0)
			return err == nil
		}, 5*time.Second, 10*time.Millisecond)
	})

	t.Run("empty window still advances the watermark", func(t *testing.T) {
		f := newOrchestratorFixture(t, &fakeBoardSource{})

		before := time.Now().UTC()
		_, err := f.orchestrator.StartSync(ctx, "rep@example.com", false, 0)
		require.NoError(t, err)

		state := f.waitForStatus(t, "rep@example.com", models.SyncStatusCompleted)
		assert.Equal(t, 0, state.TotalRecords)
		require.NotNil(t, state.LastSyncTimestamp)
		assert.False(t, state.LastSyncTimestamp.Before(before.Truncate(time.Second)))
	})

	t.Run("incremental run filters by the stored watermark", func(t *testing.T) {
		source := &fakeBoardSource{
			items: []boardapi.Item{boardItem("1", "Job", "New Lead")},
		}
		f := newOrchestratorFixture(t, source)

		_, err := f.orchestrator.StartSync(ctx, "rep@example.com", false, 0)
		require.NoError(t, err)
		f.waitForStatus(t, "rep@example.com", models.SyncStatusCompleted)

		_, err = f.orchestrator.StartSync(ctx, "rep@example.com", false, 0)
		require.NoError(t, err)
		f.waitForStatus(t, "rep@example.com", models.SyncStatusCompleted)

		source.mu.Lock()
		defer source.mu.Unlock()
		first := source.lastFilters[0]
		second := source.lastFilters[len(source.lastFilters)-1]
		assert.Nil(t, first.Since)
		assert.Empty(t, first.Bucket)
		require.NotNil(t, second.Since)
		assert.NotEmpty(t, second.Bucket)
	})

	t.Run("forced full sync ignores the watermark", func(t *testing.T) {
		source := &fakeBoardSource{
			items: []boardapi.Item{boardItem("1", "Job", "New Lead")},
		}
		f := newOrchestratorFixture(t, source)

		_, err := f.orchestrator.StartSync(ctx, "rep@example.com", false, 0)
		require.NoError(t, err)
		f.waitForStatus(t, "rep@example.com", models.SyncStatusCompleted)

		_, err = f.orchestrator.StartSync(ctx, "rep@example.com", true, 0)
		require.NoError(t, err)
		f.waitForStatus(t, "rep@example.com", models.SyncStatusCompleted)

		source.mu.Lock()
		defer source.mu.Unlock()
		last := source.lastFilters[len(source.lastFilters)-1]
		assert.Nil(t, last.Since)
	})

	t.Run("failed forced run keeps the stored watermark", func(t *testing.T) {
		source := &fakeBoardSource{
			items: []boardapi.Item{boardItem("1", "Job", "New Lead")},
		}
		f := newOrchestratorFixture(t, source)

		_, err := f.orchestrator.StartSync(ctx, "rep@example.com", false, 0)
		require.NoError(t, err)
		completed := f.waitForStatus(t, "rep@example.com", models.SyncStatusCompleted)
		watermark := *completed.LastSyncTimestamp

		source.mu.Lock()
		source.fetchErr = boardapi.ErrSourceUnavailable
		source.mu.Unlock()

		_, err = f.orchestrator.StartSync(ctx, "rep@example.com", true, 0)
		require.NoError(t, err)
		state := f.waitForStatus(t, "rep@example.com", models.SyncStatusError)
		require.NotNil(t, state.LastSyncTimestamp)
		assert.True(t, state.LastSyncTimestamp.Equal(watermark))

		// Once the source recovers, the next plain sync is incremental
		source.mu.Lock()
		source.fetchErr = nil
		source.mu.Unlock()

		_, err = f.orchestrator.StartSync(ctx, "rep@example.com", false, 0)
		require.NoError(t, err)
		f.waitForStatus(t, "rep@example.com", models.SyncStatusCompleted)

		source.mu.Lock()
		defer source.mu.Unlock()
		last := source.lastFilters[len(source.lastFilters)-1]
		require.NotNil(t, last.Since)
		assert.True(t, last.Since.Equal(watermark))
	})

	t.Run("failed run is marked errored and keeps the watermark", func(t *testing.T) {
		source := &fakeBoardSource{
			items: []boardapi.Item{boardItem("1", "Job", "New Lead")},
		}
		f := newOrchestratorFixture(t, source)

		_, err := f.orchestrator.StartSync(ctx, "rep@example.com", false, 0)
		require.NoError(t, err)
		completed := f.waitForStatus(t, "rep@example.com", models.SyncStatusCompleted)
		watermark := *completed.LastSyncTimestamp

		source.mu.Lock()
		source.fetchErr = boardapi.ErrSourceUnavailable
		source.mu.Unlock()

		_, err = f.orchestrator.StartSync(ctx, "rep@example.com", false, 0)
		require.NoError(t, err)
		state := f.waitForStatus(t, "rep@example.com", models.SyncStatusError)
		assert.NotEmpty(t, state.ErrorMessage)
		require.NotNil(t, state.LastSyncTimestamp)
		assert.True(t, state.LastSyncTimestamp.Equal(watermark))
	})

	t.Run("empty owner id is rejected", func(t *testing.T) {
		f := newOrchestratorFixture(t, &fakeBoardSource{})
		_, err := f.orchestrator.StartSync(ctx, "", false, 0)
		assert.ErrorIs(t, err, models.ErrEmptyOwnerID)
	})
}

func TestSyncOrchestrator_GetStatus(t *testing.T) {
	ctx := context.Background()
	f := newOrchestratorFixture(t, &fakeBoardSource{})

	t.Run("nil before the first sync", func(t *testing.T) {
		state, err := f.orchestrator.GetStatus(ctx, "rep@example.com")
		require.NoError(t, err)
		assert.Nil(t, state)
	})

	t.Run("returns the persisted state after a run", func(t *testing.T) {
		_, err := f.orchestrator.StartSync(ctx, "rep@example.com", false, 0)
		require.NoError(t, err)
		f.waitForStatus(t, "rep@example.com", models.SyncStatusCompleted)

		state, err := f.orchestrator.GetStatus(ctx, "rep@example.com")
		require.NoError(t, err)
		require.NotNil(t, state)
		assert.Equal(t, models.SyncStatusCompleted, state.Status)
	})
}

func TestSyncOrchestrator_CheckIfSyncNeeded(t *testing.T) {
	ctx := context.Background()

	t.Run("board empty", func(t *testing.T) {
		f := newOrchestratorFixture(t, &fakeBoardSource{})
		needed, reason, err := f.orchestrator.CheckIfSyncNeeded(ctx, "rep@example.com")
		require.NoError(t, err)
		assert.False(t, needed)
		assert.Equal(t, "board has no records for this user", reason)
	})

	t.Run("no local records", func(t *testing.T) {
		latest := boardItem("1", "Job", "New Lead")
		f := newOrchestratorFixture(t, &fakeBoardSource{latest: &latest})

		needed, reason, err := f.orchestrator.CheckIfSyncNeeded(ctx, "rep@example.com")
		require.NoError(t, err)
		assert.True(t, needed)
		assert.Equal(t, "no local records for this user", reason)
	})

	t.Run("local copy matches", func(t *testing.T) {
		latest := boardItem("1", "Job", "New Lead")
		f := newOrchestratorFixture(t, &fakeBoardSource{
			latest: &latest,
			items:  []boardapi.Item{latest},
		})

		_, err := f.orchestrator.StartSync(ctx, "rep@example.com", false, 0)
		require.NoError(t, err)
		f.waitForStatus(t, "rep@example.com", models.SyncStatusCompleted)

		needed, reason, err := f.orchestrator.CheckIfSyncNeeded(ctx, "rep@example.com")
		require.NoError(t, err)
		assert.False(t, needed)
		assert.Equal(t, "local data is up to date", reason)
	})

	t.Run("board moved on", func(t *testing.T) {
		latest := boardItem("1", "Job", "New Lead")
		f := newOrchestratorFixture(t, &fakeBoardSource{
			latest: &latest,
			items:  []boardapi.Item{latest},
		})

		_, err := f.orchestrator.StartSync(ctx, "rep@example.com", false, 0)
		require.NoError(t, err)
		f.waitForStatus(t, "rep@example.com", models.SyncStatusCompleted)

		changed := boardItem("1", "Job", "Completed")
		f.source.mu.Lock()
		f.source.latest = &changed
		f.source.mu.Unlock()

		needed, reason, err := f.orchestrator.CheckIfSyncNeeded(ctx, "rep@example.com")
		require.NoError(t, err)
		assert.True(t, needed)
		assert.Equal(t, "newest board record differs from local copy", reason)

		newItem := boardItem("2", "Newer job", "New Lead")
		f.source.mu.Lock()
		f.source.latest = &newItem
		f.source.mu.Unlock()

		needed, reason, err = f.orchestrator.CheckIfSyncNeeded(ctx, "rep@example.com")
		require.NoError(t, err)
		assert.True(t, needed)
		assert.Equal(t, "newest board record is missing locally", reason)
	})
}

func TestSyncOrchestrator_SyncStaff(t *testing.T) {
	ctx := context.Background()
	source := &fakeBoardSource{
		staffItems: []boardapi.Item{
			{
				ID:   "s1",
				Name: "Ada Smith",
				ColumnValues: []boardapi.ColumnValue{
					{ID: "first_name", Text: "Ada"},
					{ID: "last_name", Text: "Smith"},
					{ID: "email", Text: "ada@example.com"},
				},
			},
			{
				// Name-only record falls back to the display name
				ID:   "s2",
				Name: "Crew Lead",
			},
		},
	}
	f := newOrchestratorFixture(t, source)

	stats, err := f.orchestrator.SyncStaff(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Created)
}

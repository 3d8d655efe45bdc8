package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boardsync/server/internal/models"
	"github.com/boardsync/server/internal/repository"
)

type mutation struct {
	boardID  string
	itemID   string
	columnID string
	value    string
}

type fakeBoardMutator struct {
	mu        sync.Mutex
	mutations []mutation
	failItems map[string]error
}

func (m *fakeBoardMutator) MutateField(ctx context.Context, boardID, itemID, columnID, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failItems[itemID]; ok {
		return err
	}
	m.mutations = append(m.mutations, mutation{boardID, itemID, columnID, value})
	return nil
}

func (m *fakeBoardMutator) CreateRecord(ctx context.Context, boardID, name string, fields map[string]string) (string, error) {
	return "", errors.New("not implemented")
}

func (m *fakeBoardMutator) DeleteRecord(ctx context.Context, itemID string) error {
	return errors.New("not implemented")
}

func newPropagatorFixture(t *testing.T, mutator *fakeBoardMutator) (*Propagator, *repository.WorkItemRepository, *repository.SyncLogRepository) {
	t.Helper()
	db, err := repository.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	workItemRepo := repository.NewWorkItemRepository(db)
	syncLogRepo := repository.NewSyncLogRepository(db)
	return NewPropagator(mutator, workItemRepo, syncLogRepo, "board-1", nil), workItemRepo, syncLogRepo
}

func TestPropagator_PushAll(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, repo *repository.WorkItemRepository, externalID string, fields map[string]string) {
		t.Helper()
		item, err := models.NewWorkItem(externalID, "rep@example.com", "Job "+externalID, fields)
		require.NoError(t, err)
		_, err = repo.BulkInsert(ctx, []*models.WorkItem{item})
		require.NoError(t, err)
	}

	t.Run("pushes each mapped field as one mutation", func(t *testing.T) {
		mutator := &fakeBoardMutator{}
		p, repo, _ := newPropagatorFixture(t, mutator)
		seed(t, repo, "101", map[string]string{
			"current_stage": "Completed",
			"job_total":     "$9,800.00",
		})

		stats, err := p.PushAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, PushStats{Pushed: 1}, stats)

		require.Len(t, mutator.mutations, 2)
		pushed := map[string]string{}
		for _, m := range mutator.mutations {
			assert.Equal(t, "board-1", m.boardID)
			assert.Equal(t, "101", m.itemID)
			pushed[m.columnID] = m.value
		}
		assert.Equal(t, "Completed", pushed["text95__1"])
		assert.Equal(t, "$9,800.00", pushed["jp_total__1"])
	})

	t.Run("empty and unmapped fields are not pushed", func(t *testing.T) {
		mutator := &fakeBoardMutator{}
		p, repo, _ := newPropagatorFixture(t, mutator)
		seed(t, repo, "101", map[string]string{
			"current_stage": "",
			"not_a_field":   "x",
		})

		stats, err := p.PushAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, PushStats{Pushed: 1}, stats)
		assert.Empty(t, mutator.mutations)
	})

	t.Run("one bad record does not abort the pass", func(t *testing.T) {
		mutator := &fakeBoardMutator{
			failItems: map[string]error{"101": errors.New("board said no")},
		}
		p, repo, syncLogRepo := newPropagatorFixture(t, mutator)
		seed(t, repo, "101", map[string]string{"current_stage": "Completed"})
		seed(t, repo, "102", map[string]string{"current_stage": "New Lead"})

		stats, err := p.PushAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, PushStats{Pushed: 1, Failed: 1}, stats)

		entries, err := syncLogRepo.ListRecent(ctx, 10)
		require.NoError(t, err)

		statuses := map[string]string{}
		for _, e := range entries {
			statuses[e.ExternalID] = e.Status
		}
		assert.Equal(t, models.SyncLogFailed, statuses["101"])
		assert.Equal(t, models.SyncLogSuccess, statuses["102"])
	})
}

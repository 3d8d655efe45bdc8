package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/boardsync/server/internal/boardapi"
	"github.com/boardsync/server/internal/models"
	"github.com/boardsync/server/internal/observability"
	"github.com/boardsync/server/internal/repository"
)

// BoardSource is the read side of the external board API. Narrow so tests
// can substitute a fixture server or an in-memory fake.
type BoardSource interface {
	FetchPage(ctx context.Context, boardID string, cols boardapi.ColumnMap, f boardapi.Filter, cursor string, limit int) ([]boardapi.Item, string, error)
	FetchAll(ctx context.Context, boardID string, cols boardapi.ColumnMap, f boardapi.Filter) ([]boardapi.Item, error)
	FetchLatest(ctx context.Context, boardID string, cols boardapi.ColumnMap, ownerEmail string) (*boardapi.Item, error)
}

// BoardMutator is the write side of the external board API
type BoardMutator interface {
	MutateField(ctx context.Context, boardID, itemID, columnID, value string) error
	CreateRecord(ctx context.Context, boardID, name string, fields map[string]string) (string, error)
	DeleteRecord(ctx context.Context, itemID string) error
}

// SyncOrchestrator coordinates sync runs. It enforces one run per owner at
// a time, hands the run to a background runner, and answers status and
// freshness queries. The in-memory lock map is the mutual exclusion
// authority; the persisted SyncState row is what callers poll.
type SyncOrchestrator struct {
	source          BoardSource
	runner          *SyncRunner
	writer          *BatchWriter
	stateRepo       repository.SyncStateRepo
	workItemRepo    repository.WorkItemRepo
	workItemBoardID string
	staffBoardID    string
	metrics         *observability.SyncMetrics
	logger          *observability.Logger
	runTimeout      time.Duration

	mu      sync.Mutex
	running map[string]bool
}

// NewSyncOrchestrator creates a new SyncOrchestrator
func NewSyncOrchestrator(
	source BoardSource,
	runner *SyncRunner,
	writer *BatchWriter,
	stateRepo repository.SyncStateRepo,
	workItemRepo repository.WorkItemRepo,
	workItemBoardID string,
	staffBoardID string,
	metrics *observability.SyncMetrics,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		source:          source,
		runner:          runner,
		writer:          writer,
		stateRepo:       stateRepo,
		workItemRepo:    workItemRepo,
		workItemBoardID: workItemBoardID,
		staffBoardID:    staffBoardID,
		metrics:         metrics,
		logger:          observability.WithField("component", "orchestrator"),
		runTimeout:      30 * time.Minute,
		running:         make(map[string]bool),
	}
}

// tryAcquire attempts to take the per-owner run slot without blocking
func (o *SyncOrchestrator) tryAcquire(ownerID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running[ownerID] {
		return false
	}
	o.running[ownerID] = true
	return true
}

func (o *SyncOrchestrator) release(ownerID string) {
	o.mu.Lock()
	delete(o.running, ownerID)
	o.mu.Unlock()
}

// StartSync begins a background sync run for an owner and returns the sync
// state id immediately. A second call while a run is active fails fast
// with models.ErrSyncInProgress instead of queueing.
func (o *SyncOrchestrator) StartSync(ctx context.Context, ownerID string, forceFullSync bool, chunkSize int) (string, error) {
	if ownerID == "" {
		return "", models.ErrEmptyOwnerID
	}

	if !o.tryAcquire(ownerID) {
		return "", models.ErrSyncInProgress
	}

	state, err := o.stateRepo.Get(ctx, ownerID, models.SourceBoard)
	if err != nil {
		o.release(ownerID)
		return "", fmt.Errorf("failed to load sync state: %w", err)
	}
	if state == nil {
		state, err = models.NewSyncState(ownerID, models.SourceBoard)
		if err != nil {
			o.release(ownerID)
			return "", err
		}
	}

	// A row another instance left in progress blocks the run too, but only
	// within the run timeout: a stale row must not wedge the owner forever.
	if state.Status == models.SyncStatusInProgress && state.StartedAt != nil &&
		time.Since(*state.StartedAt) < o.runTimeout {
		o.release(ownerID)
		return "", models.ErrSyncInProgress
	}

	state.BeginRun(time.Now().UTC())

	if err := o.stateRepo.Upsert(ctx, state); err != nil {
		o.release(ownerID)
		return "", fmt.Errorf("failed to persist sync state: %w", err)
	}

	go func() {
		defer o.release(ownerID)

		// The run outlives the HTTP request that started it
		runCtx, cancel := context.WithTimeout(context.Background(), o.runTimeout)
		defer cancel()

		started := time.Now()
		mode := "incremental"
		if forceFullSync || state.LastSyncTimestamp == nil {
			mode = "full"
		}

		err := o.runner.Run(runCtx, state, ownerID, forceFullSync, chunkSize)
		if o.metrics != nil {
			o.metrics.RecordSyncRun(runCtx, ownerID, mode, time.Since(started), err == nil)
		}
		if err != nil {
			o.logger.WithFields(map[string]interface{}{
				"ownerId": ownerID,
				"syncId":  state.ID,
			}).Errorf("sync run failed: %v", err)
		}
	}()

	return state.ID, nil
}

// GetStatus returns the persisted sync state for an owner, or nil when the
// owner has never synced
func (o *SyncOrchestrator) GetStatus(ctx context.Context, ownerID string) (*models.SyncState, error) {
	if ownerID == "" {
		return nil, models.ErrEmptyOwnerID
	}
	return o.stateRepo.Get(ctx, ownerID, models.SourceBoard)
}

// CheckIfSyncNeeded compares the board's newest record for an owner
// against the newest local row. Cheap enough for client polling: it reads
// a single record from each side.
func (o *SyncOrchestrator) CheckIfSyncNeeded(ctx context.Context, ownerID string) (bool, string, error) {
	if ownerID == "" {
		return false, "", models.ErrEmptyOwnerID
	}

	latest, err := o.source.FetchLatest(ctx, o.workItemBoardID, boardapi.WorkItemColumns, ownerID)
	if err != nil {
		return false, "", fmt.Errorf("failed to fetch latest board record: %w", err)
	}
	if latest == nil {
		return false, "board has no records for this user", nil
	}

	local, err := o.workItemRepo.GetMostRecent(ctx, ownerID)
	if err != nil {
		return false, "", fmt.Errorf("failed to load local record: %w", err)
	}
	if local == nil {
		return true, "no local records for this user", nil
	}

	if local.ExternalID != latest.ID {
		return true, "newest board record is missing locally", nil
	}
	if !local.ContentEquals(latest.Name, latest.FieldMap(boardapi.WorkItemColumns)) {
		return true, "newest board record differs from local copy", nil
	}

	return false, "local data is up to date", nil
}

// SyncStaff runs a full staff directory pass. The staff board is small,
// so this is synchronous and unfiltered.
func (o *SyncOrchestrator) SyncStaff(ctx context.Context) (UpsertStats, error) {
	items, err := o.source.FetchAll(ctx, o.staffBoardID, boardapi.StaffColumns, boardapi.Filter{})
	if err != nil {
		return UpsertStats{}, fmt.Errorf("failed to fetch staff board: %w", err)
	}

	members := make([]*models.StaffMember, 0, len(items))
	for _, it := range items {
		m, err := staffFromItem(it)
		if err != nil {
			o.logger.WithField("externalId", it.ID).Errorf("skipping staff record: %v", err)
			continue
		}
		members = append(members, m)
	}

	return o.writer.UpsertStaff(ctx, members)
}

// staffFromItem maps a staff board record onto a StaffMember
func staffFromItem(it boardapi.Item) (*models.StaffMember, error) {
	m, err := models.NewStaffMember(it.ID)
	if err != nil {
		return nil, err
	}

	fields := it.FieldMap(boardapi.StaffColumns)
	m.FirstName = fields[boardapi.FieldFirstName]
	m.LastName = fields[boardapi.FieldLastName]
	m.Email = fields[boardapi.FieldEmail]
	m.Phone = fields[boardapi.FieldPhone]
	m.Street = fields[boardapi.FieldAddress]
	m.City = fields[boardapi.FieldCity]
	m.State = fields[boardapi.FieldState]
	m.Zip = fields[boardapi.FieldZip]
	m.ShirtSize = fields[boardapi.FieldShirtSize]
	m.TeamName = fields[boardapi.FieldTeamName]

	if m.FirstName == "" && m.LastName == "" && it.Name != "" {
		m.FirstName = it.Name
	}

	return m, nil
}

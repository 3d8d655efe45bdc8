package services

import (
	"context"
	"fmt"
	"time"

	"github.com/boardsync/server/internal/boardapi"
	"github.com/boardsync/server/internal/models"
	"github.com/boardsync/server/internal/observability"
	"github.com/boardsync/server/internal/repository"
)

// SyncRunner executes one sync run: page through the board, then write in
// chunks, persisting cursor and counters after every step so pollers see
// live progress and a restart does not start from nothing.
type SyncRunner struct {
	source    BoardSource
	writer    *BatchWriter
	stateRepo repository.SyncStateRepo
	boardID   string
	chunkSize int
	pageDelay time.Duration
	logger    *observability.Logger
}

// NewSyncRunner creates a new SyncRunner. chunkSize bounds both the page
// size requested from the board and the write batch size.
func NewSyncRunner(
	source BoardSource,
	writer *BatchWriter,
	stateRepo repository.SyncStateRepo,
	boardID string,
	chunkSize int,
	pageDelay time.Duration,
) *SyncRunner {
	if chunkSize <= 0 {
		chunkSize = 100
	}
	if pageDelay <= 0 {
		pageDelay = 500 * time.Millisecond
	}
	return &SyncRunner{
		source:    source,
		writer:    writer,
		stateRepo: stateRepo,
		boardID:   boardID,
		chunkSize: chunkSize,
		pageDelay: pageDelay,
		logger:    observability.WithField("component", "sync_runner"),
	}
}

// Run performs the sync described by state. The watermark passed to
// MarkCompleted is the run's start time, not its end: records changed
// while the run was in flight fall inside the next incremental window.
// Any failure marks the state errored and stops the run; the watermark is
// left untouched so nothing is skipped on retry.
func (r *SyncRunner) Run(ctx context.Context, state *models.SyncState, ownerID string, forceFull bool, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = r.chunkSize
	}
	runStart := time.Now().UTC()
	log := r.logger.WithFields(map[string]interface{}{
		"ownerId": ownerID,
		"syncId":  state.ID,
	})

	// A forced run ignores the watermark but does not erase it: if the run
	// fails, the stored watermark still scopes the next incremental sync.
	filter := boardapi.Filter{OwnerEmail: ownerID}
	if !forceFull && state.LastSyncTimestamp != nil {
		filter.Since = state.LastSyncTimestamp
		filter.Bucket = boardapi.BucketForWindow(*state.LastSyncTimestamp, runStart)
	}
	log.Infof("starting sync run (bucket=%q)", string(filter.Bucket))

	items, err := r.fetch(ctx, state, filter, chunkSize)
	if err != nil {
		return r.fail(ctx, state, log, fmt.Errorf("fetch failed: %w", err))
	}

	items = boardapi.ApplySince(items, filter.Since)
	if err := r.stateRepo.SetTotal(ctx, state.ID, len(items)); err != nil {
		return r.fail(ctx, state, log, fmt.Errorf("failed to persist total: %w", err))
	}
	state.TotalRecords = len(items)

	for start := 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}

		chunk, err := workItemsFromBoard(items[start:end], ownerID)
		if err != nil {
			return r.fail(ctx, state, log, err)
		}

		stats, err := r.writer.UpsertWorkItems(ctx, chunk)
		if err != nil {
			return r.fail(ctx, state, log, fmt.Errorf("chunk write failed: %w", err))
		}

		state.ProcessedRecords += stats.Total()
		state.CreatedRecords += stats.Created
		state.UpdatedRecords += stats.Updated
		state.Progress = float64(state.ProcessedRecords) / float64(state.TotalRecords) * 100

		if err := r.stateRepo.UpdateProgress(ctx, state.ID,
			state.ProcessedRecords, state.CreatedRecords, state.UpdatedRecords, state.Progress); err != nil {
			return r.fail(ctx, state, log, fmt.Errorf("failed to persist progress: %w", err))
		}
	}

	// A run that found nothing still advances the watermark: the window
	// was covered, there was just nothing in it.
	if err := r.stateRepo.MarkCompleted(ctx, state.ID, runStart); err != nil {
		return r.fail(ctx, state, log, fmt.Errorf("failed to finalize sync state: %w", err))
	}
	state.Status = models.SyncStatusCompleted
	state.LastSyncTimestamp = &runStart

	log.Infof("sync run completed: %d processed, %d created, %d updated",
		state.ProcessedRecords, state.CreatedRecords, state.UpdatedRecords)
	return nil
}

// fetch pages through the board, persisting the cursor after every page
func (r *SyncRunner) fetch(ctx context.Context, state *models.SyncState, filter boardapi.Filter, chunkSize int) ([]boardapi.Item, error) {
	var all []boardapi.Item
	cursor := ""

	for {
		items, next, err := r.source.FetchPage(ctx, r.boardID, boardapi.WorkItemColumns, filter, cursor, chunkSize)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)

		state.LastCursor = next
		state.HasMore = next != ""
		if err := r.stateRepo.Upsert(ctx, state); err != nil {
			return nil, err
		}

		if next == "" {
			return all, nil
		}
		cursor = next

		// Pace page requests to stay under the source's rate limit
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.pageDelay):
		}
	}
}

func (r *SyncRunner) fail(ctx context.Context, state *models.SyncState, log *observability.Logger, runErr error) error {
	log.Errorf("sync run failed: %v", runErr)
	state.Status = models.SyncStatusError
	state.ErrorMessage = runErr.Error()
	if err := r.stateRepo.MarkError(ctx, state.ID, runErr.Error()); err != nil {
		log.Errorf("failed to persist error state: %v", err)
	}
	return runErr
}

// workItemsFromBoard maps board records onto WorkItem models
func workItemsFromBoard(items []boardapi.Item, ownerID string) ([]*models.WorkItem, error) {
	out := make([]*models.WorkItem, 0, len(items))
	for _, it := range items {
		w, err := models.NewWorkItem(it.ID, ownerID, it.Name, it.FieldMap(boardapi.WorkItemColumns))
		if err != nil {
			return nil, fmt.Errorf("invalid board record %s: %w", it.ID, err)
		}
		out = append(out, w)
	}
	return out, nil
}

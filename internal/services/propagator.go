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

// PushStats summarizes one reverse propagation pass
type PushStats struct {
	Pushed  int `json:"pushed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Propagator pushes local work item state back to the board, one column
// mutation per field. Failures are isolated per record: one bad record
// never aborts the pass.
type Propagator struct {
	mutator      BoardMutator
	workItemRepo repository.WorkItemRepo
	syncLogRepo  repository.SyncLogRepo
	boardID      string
	metrics      *observability.SyncMetrics
	logger       *observability.Logger
}

// NewPropagator creates a new Propagator
func NewPropagator(
	mutator BoardMutator,
	workItemRepo repository.WorkItemRepo,
	syncLogRepo repository.SyncLogRepo,
	boardID string,
	metrics *observability.SyncMetrics,
) *Propagator {
	return &Propagator{
		mutator:      mutator,
		workItemRepo: workItemRepo,
		syncLogRepo:  syncLogRepo,
		boardID:      boardID,
		metrics:      metrics,
		logger:       observability.WithField("component", "propagator"),
	}
}

// PushAll propagates every local work item to the board
func (p *Propagator) PushAll(ctx context.Context) (PushStats, error) {
	items, err := p.workItemRepo.ListAll(ctx)
	if err != nil {
		return PushStats{}, fmt.Errorf("failed to list work items: %w", err)
	}

	var stats PushStats
	for _, item := range items {
		if item.ExternalID == "" {
			stats.Skipped++
			continue
		}
		if err := p.PushItem(ctx, item); err != nil {
			stats.Failed++
			p.logger.WithField("externalId", item.ExternalID).Errorf("push failed: %v", err)
			continue
		}
		stats.Pushed++
	}

	return stats, nil
}

// PushItem writes one work item's mapped fields to the board. Empty
// fields are not pushed; the board keeps whatever it has.
func (p *Propagator) PushItem(ctx context.Context, item *models.WorkItem) error {
	reverse := boardapi.WorkItemColumns.Reverse()

	var firstErr error
	for field, value := range item.Fields {
		if value == "" {
			continue
		}
		columnID, ok := reverse[field]
		if !ok {
			continue
		}

		err := p.mutator.MutateField(ctx, p.boardID, item.ExternalID, columnID, value)
		p.log(ctx, item.ExternalID, "push_field", err)
		if p.metrics != nil {
			p.metrics.RecordPushMutation(ctx, err == nil)
		}
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to push column %s: %w", columnID, err)
		}
	}

	return firstErr
}

func (p *Propagator) log(ctx context.Context, externalID, operation string, opErr error) {
	entry := &models.SyncLog{
		EntityType: "work_item",
		ExternalID: externalID,
		Operation:  operation,
		Status:     models.SyncLogSuccess,
		LoggedAt:   time.Now().UTC(),
	}
	if opErr != nil {
		entry.Status = models.SyncLogFailed
		entry.ErrorMessage = opErr.Error()
	}
	if err := p.syncLogRepo.Add(ctx, entry); err != nil {
		p.logger.WithField("externalId", externalID).Errorf("failed to append sync log: %v", err)
	}
}

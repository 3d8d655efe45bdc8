package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/boardsync/server/internal/boardapi"
	"github.com/boardsync/server/internal/models"
	"github.com/boardsync/server/internal/observability"
	"github.com/boardsync/server/internal/repository"
)

// UpsertStats summarizes what one batch write actually changed
type UpsertStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Total returns how many records the batch covered
func (s UpsertStats) Total() int {
	return s.Created + s.Updated + s.Skipped
}

// BatchWriter persists board records into the local store. Inserts go
// through one multi-row statement per chunk; updates only touch rows whose
// content actually changed. Derived sub-records are upserted every pass so
// a retry reconciles rows a previous pass failed to write.
type BatchWriter struct {
	workItemRepo repository.WorkItemRepo
	customerRepo repository.CustomerRepo
	projectRepo  repository.ProjectRepo
	staffRepo    repository.StaffRepo
	syncLogRepo  repository.SyncLogRepo
	metrics      *observability.SyncMetrics
	logger       *observability.Logger
	workers      int
}

// NewBatchWriter creates a new BatchWriter. workers bounds concurrent
// update statements per chunk.
func NewBatchWriter(
	workItemRepo repository.WorkItemRepo,
	customerRepo repository.CustomerRepo,
	projectRepo repository.ProjectRepo,
	staffRepo repository.StaffRepo,
	syncLogRepo repository.SyncLogRepo,
	metrics *observability.SyncMetrics,
	workers int,
) *BatchWriter {
	if workers <= 0 {
		workers = 5
	}
	return &BatchWriter{
		workItemRepo: workItemRepo,
		customerRepo: customerRepo,
		projectRepo:  projectRepo,
		staffRepo:    staffRepo,
		syncLogRepo:  syncLogRepo,
		metrics:      metrics,
		logger:       observability.WithField("component", "batch_writer"),
		workers:      workers,
	}
}

// UpsertWorkItems writes one chunk of board work items. Incoming items
// carry freshly generated ids; rows that already exist keep their stored id.
func (w *BatchWriter) UpsertWorkItems(ctx context.Context, items []*models.WorkItem) (UpsertStats, error) {
	var stats UpsertStats
	if len(items) == 0 {
		return stats, nil
	}

	externalIDs := make([]string, 0, len(items))
	for _, item := range items {
		externalIDs = append(externalIDs, item.ExternalID)
	}

	existing, err := w.workItemRepo.GetByExternalIDs(ctx, externalIDs)
	if err != nil {
		return stats, fmt.Errorf("failed to load existing work items: %w", err)
	}

	var toInsert []*models.WorkItem
	var toUpdate []*models.WorkItem

	for _, item := range items {
		current, ok := existing[item.ExternalID]
		if !ok {
			toInsert = append(toInsert, item)
			continue
		}
		if current.ContentEquals(item.Name, item.Fields) {
			stats.Skipped++
			continue
		}
		// Keep the stored row identity, replace its content
		item.ID = current.ID
		item.CreatedAt = current.CreatedAt
		toUpdate = append(toUpdate, item)
	}

	if len(toInsert) > 0 {
		inserted, err := w.workItemRepo.BulkInsert(ctx, toInsert)
		if err != nil {
			return stats, fmt.Errorf("failed to insert work items: %w", err)
		}
		stats.Created = inserted
		for _, item := range toInsert {
			w.log(ctx, "work_item", item.ExternalID, "create", nil)
		}
	}

	if len(toUpdate) > 0 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(w.workers)
		for _, item := range toUpdate {
			item := item
			g.Go(func() error {
				if err := w.workItemRepo.Update(gctx, item); err != nil {
					w.log(gctx, "work_item", item.ExternalID, "update", err)
					return fmt.Errorf("failed to update work item %s: %w", item.ExternalID, err)
				}
				w.log(gctx, "work_item", item.ExternalID, "update", nil)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return stats, err
		}
		stats.Updated = len(toUpdate)
	}

	// Sub-records are derived for skipped parents too: a customer or
	// project upsert that failed on an earlier pass gets repaired on the
	// next run even when the parent row is unchanged.
	for _, item := range items {
		if err := w.writeSubRecords(ctx, item); err != nil {
			return stats, err
		}
	}

	if w.metrics != nil {
		w.metrics.RecordUpserts(ctx, "work_item", stats.Created, stats.Updated)
	}

	return stats, nil
}

// writeSubRecords derives the customer and project rows from a work
// item's mapped fields. Empty sub-records are not written.
func (w *BatchWriter) writeSubRecords(ctx context.Context, item *models.WorkItem) error {
	customer, err := models.NewCustomer(item.ExternalID)
	if err != nil {
		return err
	}
	first := item.Fields[boardapi.FieldCustomerFirstName]
	last := item.Fields[boardapi.FieldCustomerLastName]
	customer.FullName = joinName(first, last)
	customer.Email = item.Fields[boardapi.FieldCustomerEmail]
	customer.Phone = item.Fields[boardapi.FieldCustomerPhone]

	addr := boardapi.ParseAddress(item.Fields[boardapi.FieldJobAddress])
	customer.Street = addr.Street
	customer.City = addr.City
	customer.State = addr.State
	customer.Zip = addr.Zip

	if customer.HasContactData() {
		if err := w.customerRepo.Upsert(ctx, customer); err != nil {
			w.log(ctx, "customer", item.ExternalID, "upsert", err)
			return fmt.Errorf("failed to upsert customer %s: %w", item.ExternalID, err)
		}
	}

	project, err := models.NewProject(item.ExternalID)
	if err != nil {
		return err
	}
	project.CurrentStage = item.Fields[boardapi.FieldCurrentStage]
	project.ProgressLink = item.Fields[boardapi.FieldProgressLink]
	project.ProgressName = item.Fields[boardapi.FieldProgressName]
	project.Description = item.Fields[boardapi.FieldJobDetails]
	project.TotalPrice = boardapi.ParseMoney(item.Fields[boardapi.FieldJobTotal])
	project.TotalPayment = boardapi.ParseMoney(item.Fields[boardapi.FieldTotalPayment])

	if project.HasProjectData() {
		if err := w.projectRepo.Upsert(ctx, project); err != nil {
			w.log(ctx, "project", item.ExternalID, "upsert", err)
			return fmt.Errorf("failed to upsert project %s: %w", item.ExternalID, err)
		}
	}

	return nil
}

// UpsertStaff writes one batch of staff board records. Members whose name
// and email are both blank are placeholder rows on the board and are
// skipped entirely.
func (w *BatchWriter) UpsertStaff(ctx context.Context, members []*models.StaffMember) (UpsertStats, error) {
	var stats UpsertStats
	if len(members) == 0 {
		return stats, nil
	}

	kept := make([]*models.StaffMember, 0, len(members))
	externalIDs := make([]string, 0, len(members))
	for _, m := range members {
		if m.IsEmpty() {
			stats.Skipped++
			continue
		}
		if m.Email == "" {
			w.warn(ctx, "staff", m.ExternalID, "missing email")
		}
		kept = append(kept, m)
		externalIDs = append(externalIDs, m.ExternalID)
	}
	if len(kept) == 0 {
		return stats, nil
	}

	existing, err := w.staffRepo.GetByExternalIDs(ctx, externalIDs)
	if err != nil {
		return stats, fmt.Errorf("failed to load existing staff: %w", err)
	}

	var toInsert []*models.StaffMember
	for _, m := range kept {
		current, ok := existing[m.ExternalID]
		if !ok {
			toInsert = append(toInsert, m)
			continue
		}
		if current.ContentEquals(m) {
			stats.Skipped++
			continue
		}
		m.ID = current.ID
		m.CreatedAt = current.CreatedAt
		if err := w.staffRepo.Update(ctx, m); err != nil {
			w.log(ctx, "staff", m.ExternalID, "update", err)
			return stats, fmt.Errorf("failed to update staff %s: %w", m.ExternalID, err)
		}
		w.log(ctx, "staff", m.ExternalID, "update", nil)
		stats.Updated++
	}

	if len(toInsert) > 0 {
		inserted, err := w.staffRepo.BulkInsert(ctx, toInsert)
		if err != nil {
			return stats, fmt.Errorf("failed to insert staff: %w", err)
		}
		stats.Created = inserted
		for _, m := range toInsert {
			w.log(ctx, "staff", m.ExternalID, "create", nil)
		}
	}

	if w.metrics != nil {
		w.metrics.RecordUpserts(ctx, "staff", stats.Created, stats.Updated)
	}

	return stats, nil
}

// log appends an audit row. Audit failures are logged but never fail the
// write they describe.
func (w *BatchWriter) log(ctx context.Context, entityType, externalID, operation string, opErr error) {
	entry := &models.SyncLog{
		EntityType: entityType,
		ExternalID: externalID,
		Operation:  operation,
		Status:     models.SyncLogSuccess,
		LoggedAt:   time.Now().UTC(),
	}
	if opErr != nil {
		entry.Status = models.SyncLogFailed
		entry.ErrorMessage = opErr.Error()
	}
	if err := w.syncLogRepo.Add(ctx, entry); err != nil {
		w.logger.WithFields(map[string]interface{}{
			"entityType": entityType,
			"externalId": externalID,
		}).Errorf("failed to append sync log: %v", err)
	}
}

// warn appends a warning audit row for a record that was written or
// skipped with suspect data
func (w *BatchWriter) warn(ctx context.Context, entityType, externalID, reason string) {
	entry := &models.SyncLog{
		EntityType:   entityType,
		ExternalID:   externalID,
		Operation:    "upsert",
		Status:       models.SyncLogWarning,
		ErrorMessage: reason,
		LoggedAt:     time.Now().UTC(),
	}
	if err := w.syncLogRepo.Add(ctx, entry); err != nil {
		w.logger.WithField("externalId", externalID).Errorf("failed to append sync log: %v", err)
	}
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

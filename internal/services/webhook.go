package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/boardsync/server/internal/models"
	"github.com/boardsync/server/internal/observability"
	"github.com/boardsync/server/internal/repository"
)

// BoardHandler is one board's webhook strategy. The service dispatches on
// the event's board id; each registered board decides what its events mean.
type BoardHandler interface {
	Handle(ctx context.Context, event *models.WebhookEvent) error
}

// WebhookService verifies and dispatches board webhook events
type WebhookService struct {
	secret   string
	handlers map[string]BoardHandler
	metrics  *observability.SyncMetrics
	logger   *observability.Logger
}

// NewWebhookService creates a WebhookService. An empty secret disables
// signature verification (local development).
func NewWebhookService(secret string, metrics *observability.SyncMetrics) *WebhookService {
	return &WebhookService{
		secret:   secret,
		handlers: make(map[string]BoardHandler),
		metrics:  metrics,
		logger:   observability.WithField("component", "webhook"),
	}
}

// Register binds a board id to its handler
func (s *WebhookService) Register(boardID string, handler BoardHandler) {
	s.handlers[boardID] = handler
}

// VerifySignature checks an HMAC-SHA256 hex signature over the raw body
func (s *WebhookService) VerifySignature(body []byte, signature string) error {
	if s.secret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return models.ErrInvalidSignature
	}
	return nil
}

// HandleEvent dispatches one verified event to its board's handler.
// Events for unregistered boards are logged and dropped: the webhook
// endpoint acknowledges everything it can parse.
func (s *WebhookService) HandleEvent(ctx context.Context, event *models.WebhookEvent) error {
	handler, ok := s.handlers[event.BoardID]
	if !ok {
		s.logger.WithFields(map[string]interface{}{
			"boardId":   event.BoardID,
			"eventType": event.Type,
		}).Warn("event for unregistered board ignored")
		if s.metrics != nil {
			s.metrics.RecordWebhookEvent(ctx, event.Type, false)
		}
		return nil
	}

	err := handler.Handle(ctx, event)
	if s.metrics != nil {
		s.metrics.RecordWebhookEvent(ctx, event.Type, err == nil)
	}
	return err
}

// WorkItemBoardHandler reacts to work item board events. Creates and
// updates trigger an incremental sync for the affected owner; deletes are
// applied directly to the local rows.
type WorkItemBoardHandler struct {
	orchestrator *SyncOrchestrator
	workItemRepo repository.WorkItemRepo
	customerRepo repository.CustomerRepo
	projectRepo  repository.ProjectRepo
	logger       *observability.Logger
}

// NewWorkItemBoardHandler creates a new WorkItemBoardHandler
func NewWorkItemBoardHandler(
	orchestrator *SyncOrchestrator,
	workItemRepo repository.WorkItemRepo,
	customerRepo repository.CustomerRepo,
	projectRepo repository.ProjectRepo,
) *WorkItemBoardHandler {
	return &WorkItemBoardHandler{
		orchestrator: orchestrator,
		workItemRepo: workItemRepo,
		customerRepo: customerRepo,
		projectRepo:  projectRepo,
		logger:       observability.WithField("component", "webhook_work_items"),
	}
}

// Handle processes one work item board event
func (h *WorkItemBoardHandler) Handle(ctx context.Context, event *models.WebhookEvent) error {
	switch event.Type {
	case models.EventCreateItem, models.EventUpdateItem,
		models.EventCreateColumnValue, models.EventUpdateColumnValue:
		return h.triggerSync(ctx, event)
	case models.EventDeleteItem:
		return h.deleteItem(ctx, event)
	default:
		h.logger.WithField("eventType", event.Type).Warn("unknown event type ignored")
		return nil
	}
}

// triggerSync starts an incremental sync for the event's owner. A run
// already in flight covers the change, so lock contention is not an error.
func (h *WorkItemBoardHandler) triggerSync(ctx context.Context, event *models.WebhookEvent) error {
	ownerID := event.UserID
	if ownerID == "" && event.ItemID != "" {
		item, err := h.workItemRepo.GetByExternalID(ctx, event.ItemID)
		if err != nil {
			return fmt.Errorf("failed to resolve event owner: %w", err)
		}
		if item != nil {
			ownerID = item.OwnerID
		}
	}
	if ownerID == "" {
		h.logger.WithField("itemId", event.ItemID).Warn("cannot resolve owner for event, dropped")
		return nil
	}

	_, err := h.orchestrator.StartSync(ctx, ownerID, false, 0)
	if errors.Is(err, models.ErrSyncInProgress) {
		return nil
	}
	return err
}

// deleteItem removes the local row and its derived sub-records. Deleting
// something already gone is a no-op.
func (h *WorkItemBoardHandler) deleteItem(ctx context.Context, event *models.WebhookEvent) error {
	if event.ItemID == "" {
		return nil
	}

	deleted, err := h.workItemRepo.DeleteByExternalID(ctx, event.ItemID)
	if err != nil {
		return fmt.Errorf("failed to delete work item %s: %w", event.ItemID, err)
	}
	if _, err := h.customerRepo.DeleteByExternalID(ctx, event.ItemID); err != nil {
		return fmt.Errorf("failed to delete customer %s: %w", event.ItemID, err)
	}
	if _, err := h.projectRepo.DeleteByExternalID(ctx, event.ItemID); err != nil {
		return fmt.Errorf("failed to delete project %s: %w", event.ItemID, err)
	}

	if deleted {
		h.logger.WithField("externalId", event.ItemID).Info("work item deleted via webhook")
	}
	return nil
}

// StaffBoardHandler reacts to staff board events with a full directory
// pass; the staff board is small enough that diffing event types is not
// worth the bookkeeping.
type StaffBoardHandler struct {
	orchestrator *SyncOrchestrator
	staffRepo    repository.StaffRepo
	logger       *observability.Logger
}

// NewStaffBoardHandler creates a new StaffBoardHandler
func NewStaffBoardHandler(orchestrator *SyncOrchestrator, staffRepo repository.StaffRepo) *StaffBoardHandler {
	return &StaffBoardHandler{
		orchestrator: orchestrator,
		staffRepo:    staffRepo,
		logger:       observability.WithField("component", "webhook_staff"),
	}
}

// Handle processes one staff board event
func (h *StaffBoardHandler) Handle(ctx context.Context, event *models.WebhookEvent) error {
	if event.Type == models.EventDeleteItem {
		if event.ItemID == "" {
			return nil
		}
		_, err := h.staffRepo.DeleteByExternalID(ctx, event.ItemID)
		return err
	}

	_, err := h.orchestrator.SyncStaff(ctx)
	return err
}

package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/boardsync/server/internal/models"
	"github.com/boardsync/server/internal/services"
)

// SyncHandler handles board sync endpoints
type SyncHandler struct {
	orchestrator *services.SyncOrchestrator
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(orchestrator *services.SyncOrchestrator) *SyncHandler {
	return &SyncHandler{orchestrator: orchestrator}
}

// StartSync begins a background sync run for a user
// @Summary Start a sync run
// @Description Start a background sync run for a user; poll GET /api/sync for progress
// @Tags sync
// @Accept json
// @Produce json
// @Param request body models.SyncRequest true "Sync request"
// @Success 202 {object} models.SyncStartedResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sync [post]
func (h *SyncHandler) StartSync(w http.ResponseWriter, r *http.Request) {
	var req models.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	syncID, err := h.orchestrator.StartSync(r.Context(), req.UserID, req.ForceFullSync, req.ChunkSize)
	if errors.Is(err, models.ErrSyncInProgress) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(models.ErrorResponse{
			Error:   "sync_in_progress",
			Message: "a sync run is already active for this user",
		})
		return
	}
	if err != nil {
		log.Printf("Error starting sync for %s: %v", req.UserID, err)
		writeError(w, http.StatusInternalServerError, "Failed to start sync")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(models.SyncStartedResponse{
		Status:        "started",
		SyncID:        syncID,
		ForceFullSync: req.ForceFullSync,
	})
}

// GetSyncStatus returns the current sync state for a user
// @Summary Get sync status
// @Description Get the persisted sync state snapshot for a user
// @Tags sync
// @Produce json
// @Param userId query string true "User ID"
// @Success 200 {object} models.SyncStatusResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sync [get]
func (h *SyncHandler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	state, err := h.orchestrator.GetStatus(r.Context(), userID)
	if err != nil {
		log.Printf("Error getting sync status for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if state == nil {
		writeError(w, http.StatusNotFound, "No sync state for user")
		return
	}

	response := models.SyncStatusResponse{
		SyncID:            state.ID,
		Status:            state.Status,
		Progress:          state.Progress,
		TotalRecords:      state.TotalRecords,
		ProcessedRecords:  state.ProcessedRecords,
		CreatedRecords:    state.CreatedRecords,
		UpdatedRecords:    state.UpdatedRecords,
		StartedAt:         state.StartedAt,
		CompletedAt:       state.CompletedAt,
		LastSyncTimestamp: state.LastSyncTimestamp,
		Error:             state.ErrorMessage,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// CheckLatest reports whether local data is current without syncing
// @Summary Check whether a sync is needed
// @Description Compare the newest board record against the local copy
// @Tags sync
// @Accept json
// @Produce json
// @Param request body models.CheckLatestRequest true "Check request"
// @Success 200 {object} models.CheckLatestResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sync/check-latest [post]
func (h *SyncHandler) CheckLatest(w http.ResponseWriter, r *http.Request) {
	var req models.CheckLatestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	needed, message, err := h.orchestrator.CheckIfSyncNeeded(r.Context(), req.UserID)
	if err != nil {
		log.Printf("Error checking latest for %s: %v", req.UserID, err)
		writeError(w, http.StatusBadGateway, "Failed to reach board source")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.CheckLatestResponse{
		IsUpToDate: !needed,
		Message:    message,
	})
}

// SyncStaff runs a full staff directory sync
// @Summary Sync the staff directory
// @Description Run a full pass over the staff board
// @Tags sync
// @Produce json
// @Success 200 {object} services.UpsertStats
// @Failure 502 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/sync/staff [post]
func (h *SyncHandler) SyncStaff(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orchestrator.SyncStaff(r.Context())
	if err != nil {
		log.Printf("Error syncing staff: %v", err)
		writeError(w, http.StatusBadGateway, "Staff sync failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

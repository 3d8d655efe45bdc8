package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/boardsync/server/internal/models"
	"github.com/boardsync/server/internal/repository"
	"github.com/boardsync/server/internal/services"
)

// ItemHandler handles local work item read endpoints, notes, and the
// reverse push trigger
type ItemHandler struct {
	workItemRepo repository.WorkItemRepo
	noteRepo     repository.NoteRepo
	propagator   *services.Propagator
}

// NewItemHandler creates a new ItemHandler
func NewItemHandler(
	workItemRepo repository.WorkItemRepo,
	noteRepo repository.NoteRepo,
	propagator *services.Propagator,
) *ItemHandler {
	return &ItemHandler{
		workItemRepo: workItemRepo,
		noteRepo:     noteRepo,
		propagator:   propagator,
	}
}

// ListItems returns a user's work items
// @Summary List work items
// @Description List a user's synced work items with pagination and filtering
// @Tags items
// @Produce json
// @Param userId query string true "User ID"
// @Param limit query int false "Page size (default 50)"
// @Param offset query int false "Page offset"
// @Param stage query string false "Filter by project stage"
// @Param search query string false "Filter by name substring"
// @Success 200 {object} models.WorkItemListResponse
// @Failure 400 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/items [get]
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	opts := repository.ListOptions{
		Limit:  limit,
		Offset: offset,
		Stage:  r.URL.Query().Get("stage"),
		Search: r.URL.Query().Get("search"),
	}

	items, err := h.workItemRepo.List(r.Context(), userID, opts)
	if err != nil {
		log.Printf("Error listing items for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	total, err := h.workItemRepo.Count(r.Context(), userID)
	if err != nil {
		log.Printf("Error counting items for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.WorkItemListResponse{
		Items:      items,
		TotalCount: total,
		Limit:      limit,
		Offset:     offset,
	})
}

// GetItem returns one work item by its board record id
// @Summary Get a work item
// @Tags items
// @Produce json
// @Param externalId path string true "Board record ID"
// @Success 200 {object} models.WorkItem
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/items/{externalId} [get]
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalId")

	item, err := h.workItemRepo.GetByExternalID(r.Context(), externalID)
	if err != nil {
		log.Printf("Error getting item %s: %v", externalID, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

// ListNotes returns the notes attached to a work item
// @Summary List notes for a work item
// @Tags items
// @Produce json
// @Param externalId path string true "Board record ID"
// @Success 200 {object} models.NotesResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/items/{externalId}/notes [get]
func (h *ItemHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalId")

	item, err := h.workItemRepo.GetByExternalID(r.Context(), externalID)
	if err != nil {
		log.Printf("Error getting item %s: %v", externalID, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}

	notes, err := h.noteRepo.ListForWorkItem(r.Context(), item.ID)
	if err != nil {
		log.Printf("Error listing notes for %s: %v", externalID, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.NotesResponse{
		Notes:    notes,
		HasNotes: len(notes) > 0,
		Count:    len(notes),
	})
}

// AddNote attaches a note to a work item
// @Summary Add a note to a work item
// @Tags items
// @Accept json
// @Produce json
// @Param externalId path string true "Board record ID"
// @Param request body models.NoteRequest true "Note"
// @Success 201 {object} models.Note
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/items/{externalId}/notes [post]
func (h *ItemHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalId")

	var req models.NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	item, err := h.workItemRepo.GetByExternalID(r.Context(), externalID)
	if err != nil {
		log.Printf("Error getting item %s: %v", externalID, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}

	note, err := models.NewNote(item.ID, req.UserID, req.Content)
	if err != nil {
		if errors.Is(err, models.ErrEmptyNoteContent) || errors.Is(err, models.ErrEmptyOwnerID) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid note")
		return
	}

	if err := h.noteRepo.Add(r.Context(), note); err != nil {
		log.Printf("Error adding note to %s: %v", externalID, err)
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	// Keep the denormalized count in step with the notes table
	count, err := h.noteRepo.CountForWorkItem(r.Context(), item.ID)
	if err == nil {
		if err := h.workItemRepo.SetNotesCount(r.Context(), item.ID, count); err != nil {
			log.Printf("Error updating notes count for %s: %v", externalID, err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(note)
}

// Push propagates local work item state back to the board
// @Summary Push local changes to the board
// @Description Write every local work item's fields back to the board
// @Tags items
// @Produce json
// @Success 200 {object} models.PushResponse
// @Failure 500 {object} models.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/push [post]
func (h *ItemHandler) Push(w http.ResponseWriter, r *http.Request) {
	stats, err := h.propagator.PushAll(r.Context())
	if err != nil {
		log.Printf("Error pushing items: %v", err)
		writeError(w, http.StatusInternalServerError, "Push failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.PushResponse{
		Pushed:  stats.Pushed,
		Failed:  stats.Failed,
		Skipped: stats.Skipped,
	})
}

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/boardsync/server/internal/models"
	"github.com/boardsync/server/internal/services"
)

// WebhookHandler receives change notifications from the board
type WebhookHandler struct {
	webhookService *services.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhookService *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// Receive handles one webhook delivery
// @Summary Receive a board webhook event
// @Description Verify the signature and apply one board change notification
// @Tags webhook
// @Accept json
// @Produce json
// @Param X-Signature header string false "HMAC-SHA256 hex signature over the raw body"
// @Success 200 {object} models.WebhookResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /webhook [post]
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read body")
		return
	}

	if err := h.webhookService.VerifySignature(body, r.Header.Get("X-Signature")); err != nil {
		if errors.Is(err, models.ErrInvalidSignature) {
			writeError(w, http.StatusUnauthorized, "Invalid signature")
			return
		}
		writeError(w, http.StatusUnauthorized, "Signature verification failed")
		return
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event payload")
		return
	}

	if err := h.webhookService.HandleEvent(r.Context(), &event); err != nil {
		log.Printf("Error handling webhook event %s/%s: %v", event.BoardID, event.Type, err)
		writeError(w, http.StatusInternalServerError, "Failed to process event")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.WebhookResponse{Success: true})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/boardsync/server/internal/models"
)

// writeError sends a JSON error body with the given status
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}

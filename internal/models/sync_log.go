package models

import "time"

// Sync log statuses
const (
	SyncLogSuccess = "success"
	SyncLogFailed  = "failed"
	SyncLogWarning = "warning"
)

// SyncLog is an append-only audit entry, one row per attempted upsert or
// mutation. Written for diagnosis; never read by the sync logic itself.
type SyncLog struct {
	ID           int64     `json:"id"`
	EntityType   string    `json:"entityType"`
	ExternalID   string    `json:"externalId"`
	Operation    string    `json:"operation"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	LoggedAt     time.Time `json:"loggedAt"`
}

package models

import "time"

// ErrorResponse is the generic error payload
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse for GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// SyncRequest for POST /api/sync
type SyncRequest struct {
	UserID        string `json:"userId"`
	ForceFullSync bool   `json:"forceFullSync"`
	ChunkSize     int    `json:"chunkSize"`
}

// SyncStartedResponse for POST /api/sync
type SyncStartedResponse struct {
	Status        string `json:"status"`
	SyncID        string `json:"syncId"`
	ForceFullSync bool   `json:"forceFullSync"`
}

// SyncStatusResponse for GET /api/sync
type SyncStatusResponse struct {
	Status            SyncStatus `json:"status"`
	Progress          float64    `json:"progress"`
	TotalRecords      int        `json:"totalRecords"`
	ProcessedRecords  int        `json:"processedRecords"`
	CreatedRecords    int        `json:"createdRecords"`
	UpdatedRecords    int        `json:"updatedRecords"`
	StartedAt         *time.Time `json:"startedAt,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	LastSyncTimestamp *time.Time `json:"lastSyncTimestamp,omitempty"`
	Error             string     `json:"error,omitempty"`
	SyncID            string     `json:"syncId"`
}

// CheckLatestRequest for POST /api/sync/check-latest
type CheckLatestRequest struct {
	UserID string `json:"userId"`
}

// CheckLatestResponse for POST /api/sync/check-latest
type CheckLatestResponse struct {
	IsUpToDate bool   `json:"isUpToDate"`
	Message    string `json:"message"`
}

// WebhookEvent is an externally-pushed change notification
type WebhookEvent struct {
	Type     string `json:"type"`
	BoardID  string `json:"boardId"`
	ItemID   string `json:"itemId"`
	ColumnID string `json:"columnId,omitempty"`
	Value    string `json:"value,omitempty"`
	UserID   string `json:"userId,omitempty"`
}

// Webhook event kinds
const (
	EventCreateItem        = "create_item"
	EventUpdateItem        = "update_item"
	EventCreateColumnValue = "create_column_value"
	EventUpdateColumnValue = "update_column_value"
	EventDeleteItem        = "delete_item"
)

// WebhookResponse for POST /webhook
type WebhookResponse struct {
	Success bool `json:"success"`
}

// WorkItemListResponse for GET /api/items
type WorkItemListResponse struct {
	Items      []*WorkItem `json:"items"`
	TotalCount int         `json:"totalCount"`
	Limit      int         `json:"limit"`
	Offset     int         `json:"offset"`
}

// NoteRequest for POST /api/items/{externalId}/notes
type NoteRequest struct {
	UserID  string `json:"userId"`
	Content string `json:"content"`
}

// NotesResponse for GET /api/items/{externalId}/notes
type NotesResponse struct {
	Notes    []*Note `json:"notes"`
	HasNotes bool    `json:"hasNotes"`
	Count    int     `json:"count"`
}

// PushResponse for POST /api/push
type PushResponse struct {
	Pushed  int `json:"pushed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

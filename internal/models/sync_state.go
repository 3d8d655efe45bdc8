package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncStatus is the lifecycle state of a sync run
type SyncStatus string

const (
	SyncStatusIdle       SyncStatus = "idle"
	SyncStatusInProgress SyncStatus = "in_progress"
	SyncStatusCompleted  SyncStatus = "completed"
	SyncStatusError      SyncStatus = "error"
)

// SourceBoard identifies the external source a SyncState row tracks
const SourceBoard = "board"

// SyncState tracks one user's sync lifecycle against one external source.
// It is the only synchronization point between the HTTP path and the
// background runner; callers poll it for progress.
type SyncState struct {
	ID                string     `json:"id"`
	OwnerID           string     `json:"ownerId"`
	Source            string     `json:"source"`
	Status            SyncStatus `json:"status"`
	StartedAt         *time.Time `json:"startedAt,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	LastSyncTimestamp *time.Time `json:"lastSyncTimestamp,omitempty"`
	LastCursor        string     `json:"lastCursor,omitempty"`
	HasMore           bool       `json:"hasMore"`
	TotalRecords      int        `json:"totalRecords"`
	ProcessedRecords  int        `json:"processedRecords"`
	CreatedRecords    int        `json:"createdRecords"`
	UpdatedRecords    int        `json:"updatedRecords"`
	Progress          float64    `json:"progress"`
	ErrorMessage      string     `json:"errorMessage,omitempty"`
}

// NewSyncState creates an idle SyncState for an (owner, source) pair
func NewSyncState(ownerID, source string) (*SyncState, error) {
	if ownerID == "" {
		return nil, ErrEmptyOwnerID
	}
	return &SyncState{
		ID:      uuid.New().String(),
		OwnerID: ownerID,
		Source:  source,
		Status:  SyncStatusIdle,
	}, nil
}

// BeginRun resets counters and marks the state in progress
func (s *SyncState) BeginRun(now time.Time) {
	s.Status = SyncStatusInProgress
	s.StartedAt = &now
	s.CompletedAt = nil
	s.HasMore = true
	s.TotalRecords = 0
	s.ProcessedRecords = 0
	s.CreatedRecords = 0
	s.UpdatedRecords = 0
	s.Progress = 0
	s.ErrorMessage = ""
}

package models

// SyncError is a domain error with a stable message
type SyncError struct {
	Message string
}

func (e SyncError) Error() string {
	return e.Message
}

var (
	ErrEmptyExternalID  = SyncError{"external id cannot be empty"}
	ErrEmptyOwnerID     = SyncError{"owner id cannot be empty"}
	ErrSyncInProgress   = SyncError{"a sync is already running for this user"}
	ErrSyncStateMissing = SyncError{"sync state not found"}
	ErrItemNotFound     = SyncError{"work item not found"}
	ErrInvalidSignature = SyncError{"invalid webhook signature"}
	ErrUnknownBoard     = SyncError{"event references an untracked board"}
	ErrEmptyNoteContent = SyncError{"note content cannot be empty"}
)

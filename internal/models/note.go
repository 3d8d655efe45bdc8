package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Note is a user annotation attached to a local work item
type Note struct {
	ID         string    `json:"id"`
	WorkItemID string    `json:"workItemId"`
	OwnerID    string    `json:"ownerId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// NewNote creates a Note attached to a work item row
func NewNote(workItemID, ownerID, content string) (*Note, error) {
	if workItemID == "" {
		return nil, ErrItemNotFound
	}
	if ownerID == "" {
		return nil, ErrEmptyOwnerID
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyNoteContent
	}
	return &Note{
		ID:         uuid.New().String(),
		WorkItemID: workItemID,
		OwnerID:    ownerID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

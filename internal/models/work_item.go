package models

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WorkItem is the local copy of a record on the external work-item board.
// The board owns the content; the local store owns the row and its id.
type WorkItem struct {
	ID         string            `json:"id"`
	ExternalID string            `json:"externalId"`
	OwnerID    string            `json:"ownerId"`
	Name       string            `json:"name"`
	Fields     map[string]string `json:"fields"`
	NotesCount int               `json:"notesCount"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// NewWorkItem creates a WorkItem for a record observed on the board
func NewWorkItem(externalID, ownerID, name string, fields map[string]string) (*WorkItem, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, ErrEmptyExternalID
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, ErrEmptyOwnerID
	}
	if fields == nil {
		fields = map[string]string{}
	}

	now := time.Now().UTC()
	return &WorkItem{
		ID:         uuid.New().String(),
		ExternalID: externalID,
		OwnerID:    ownerID,
		Name:       name,
		Fields:     fields,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// ContentEquals reports whether the stored content matches the incoming
// name and field map. Unchanged records are skipped by the batch writer.
func (w *WorkItem) ContentEquals(name string, fields map[string]string) bool {
	if w.Name != name {
		return false
	}
	if len(w.Fields) != len(fields) {
		return false
	}
	for k, v := range fields {
		if w.Fields[k] != v {
			return false
		}
	}
	return true
}

// MarshalFields serializes the field map with stable key order
func (w *WorkItem) MarshalFields() (string, error) {
	if len(w.Fields) == 0 {
		return "{}", nil
	}
	// json.Marshal sorts map keys, but go through an ordered slice so the
	// serialization stays stable if the representation ever changes
	keys := make([]string, 0, len(w.Fields))
	for k := range w.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ordered := make(map[string]string, len(keys))
	for _, k := range keys {
		ordered[k] = w.Fields[k]
	}

	data, err := json.Marshal(ordered)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// UnmarshalFields parses a stored field-map serialization
func UnmarshalFields(data string) (map[string]string, error) {
	fields := map[string]string{}
	if strings.TrimSpace(data) == "" {
		return fields, nil
	}
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

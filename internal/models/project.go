package models

import (
	"time"

	"github.com/google/uuid"
)

// Project is a financial/progress sub-record derived from a work item's
// field map. It shares the parent's external id.
type Project struct {
	ID           string    `json:"id"`
	ExternalID   string    `json:"externalId"`
	CurrentStage string    `json:"currentStage"`
	ProgressLink string    `json:"progressLink"`
	ProgressName string    `json:"progressName"`
	Description  string    `json:"description"`
	TotalPrice   *float64  `json:"totalPrice,omitempty"`
	TotalPayment *float64  `json:"totalPayment,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewProject creates a Project sub-record keyed by the parent external id
func NewProject(externalID string) (*Project, error) {
	if externalID == "" {
		return nil, ErrEmptyExternalID
	}
	now := time.Now().UTC()
	return &Project{
		ID:         uuid.New().String(),
		ExternalID: externalID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// HasProjectData reports whether the record holds enough data to justify a row
func (p *Project) HasProjectData() bool {
	return p.CurrentStage != "" || p.ProgressLink != "" || p.ProgressName != "" ||
		p.Description != "" || p.TotalPrice != nil || p.TotalPayment != nil
}

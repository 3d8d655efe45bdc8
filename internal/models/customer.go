package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a contact sub-record derived from a work item's field map.
// It shares the parent's external id.
type Customer struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"externalId"`
	FullName   string    `json:"fullName"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	Zip        string    `json:"zip"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewCustomer creates a Customer sub-record keyed by the parent external id
func NewCustomer(externalID string) (*Customer, error) {
	if externalID == "" {
		return nil, ErrEmptyExternalID
	}
	now := time.Now().UTC()
	return &Customer{
		ID:         uuid.New().String(),
		ExternalID: externalID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// HasContactData reports whether the record holds enough data to justify a row
func (c *Customer) HasContactData() bool {
	return c.FullName != "" || c.Email != "" || c.Phone != ""
}

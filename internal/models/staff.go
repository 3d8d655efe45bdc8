package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// StaffMember is the local copy of a record on the external staff board
type StaffMember struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"externalId"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	Zip        string    `json:"zip"`
	TeamName   string    `json:"teamName"`
	ShirtSize  string    `json:"shirtSize"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewStaffMember creates a StaffMember for a record observed on the board
func NewStaffMember(externalID string) (*StaffMember, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, ErrEmptyExternalID
	}

	now := time.Now().UTC()
	return &StaffMember{
		ID:         uuid.New().String(),
		ExternalID: externalID,
		Role:       "sales_staff",
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// FullName joins the name parts
func (s *StaffMember) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// IsEmpty reports whether the record has neither a name nor an email.
// Such rows are incomplete or test records and are skipped during sync.
func (s *StaffMember) IsEmpty() bool {
	return s.FullName() == "" && s.Email == ""
}

// ContentEquals reports whether another record carries identical content
func (s *StaffMember) ContentEquals(other *StaffMember) bool {
	return s.FirstName == other.FirstName &&
		s.LastName == other.LastName &&
		s.Email == other.Email &&
		s.Phone == other.Phone &&
		s.Street == other.Street &&
		s.City == other.City &&
		s.State == other.State &&
		s.Zip == other.Zip &&
		s.TeamName == other.TeamName &&
		s.ShirtSize == other.ShirtSize &&
		s.Role == other.Role
}

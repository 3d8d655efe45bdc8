package boardapi

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Local field names for the work-item board
const (
	FieldCurrentStage      = "current_stage"
	FieldJobAddress        = "job_address"
	FieldJobTotal          = "job_total"
	FieldTotalPayment      = "total_payment"
	FieldJobDetails        = "job_details"
	FieldProgressLink      = "progress_link"
	FieldProgressName      = "progress_name"
	FieldCustomerFirstName = "customer_first_name"
	FieldCustomerLastName  = "customer_last_name"
	FieldCustomerPhone     = "customer_phone"
	FieldCustomerEmail     = "customer_email"
	FieldOwnerEmail        = "owner_email"
)

// Local field names for the staff board
const (
	FieldFirstName = "first_name"
	FieldLastName  = "last_name"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldAddress   = "address"
	FieldCity      = "city"
	FieldState     = "state"
	FieldZip       = "zip"
	FieldShirtSize = "shirt_size"
	FieldTeamName  = "team_name"
)

// ColumnMap translates external column ids to local field names. The map is
// intentionally partial; columns without an entry are dropped, not errors.
type ColumnMap map[string]string

// WorkItemColumns maps the work-item board's column ids
var WorkItemColumns = ColumnMap{
	"text95__1":             FieldCurrentStage,
	"job_address___text__1": FieldJobAddress,
	"jp_total__1":           FieldJobTotal,
	"jp_payment__1":         FieldTotalPayment,
	"text":                  FieldJobDetails,
	"job_progress_link":     FieldProgressLink,
	"job_progress_name":     FieldProgressName,
	"text0__1":              FieldCustomerFirstName,
	"text1__1":              FieldCustomerLastName,
	"phone_1__1":            FieldCustomerPhone,
	"email4__1":             FieldCustomerEmail,
	"email5__1":             FieldOwnerEmail,
}

// StaffColumns maps the staff board's column ids
var StaffColumns = ColumnMap{
	"first_name": FieldFirstName,
	"last_name":  FieldLastName,
	"email":      FieldEmail,
	"phone":      FieldPhone,
	"address":    FieldAddress,
	"city":       FieldCity,
	"state":      FieldState,
	"zip":        FieldZip,
	"shirt_size": FieldShirtSize,
	"team_name":  FieldTeamName,
}

var workItemFields = []string{
	FieldCurrentStage, FieldJobAddress, FieldJobTotal, FieldTotalPayment,
	FieldJobDetails, FieldProgressLink, FieldProgressName,
	FieldCustomerFirstName, FieldCustomerLastName, FieldCustomerPhone,
	FieldCustomerEmail, FieldOwnerEmail,
}

var staffFields = []string{
	FieldFirstName, FieldLastName, FieldEmail, FieldPhone, FieldAddress,
	FieldCity, FieldState, FieldZip, FieldShirtSize, FieldTeamName,
}

// ColumnIDs returns the external column ids the map covers, for scoping
// column_values in fetch queries
func (m ColumnMap) ColumnIDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return ids
}

// Reverse returns the field-name → column-id map used by the reverse
// propagation path
func (m ColumnMap) Reverse() map[string]string {
	rev := make(map[string]string, len(m))
	for id, field := range m {
		rev[field] = id
	}
	return rev
}

// Validate checks the map against the local schema's known field names.
// Run at startup so a drifted mapping fails loudly rather than silently
// writing unknown fields.
func (m ColumnMap) Validate(known []string) error {
	set := make(map[string]bool, len(known))
	for _, f := range known {
		set[f] = true
	}
	for id, field := range m {
		if !set[field] {
			return fmt.Errorf("column %q maps to unknown field %q", id, field)
		}
	}
	return nil
}

// ValidateColumnMaps validates both board maps against the expected schema
func ValidateColumnMaps() error {
	if err := WorkItemColumns.Validate(workItemFields); err != nil {
		return fmt.Errorf("work-item column map: %w", err)
	}
	if err := StaffColumns.Validate(staffFields); err != nil {
		return fmt.Errorf("staff column map: %w", err)
	}
	return nil
}

// Address holds parsed address components
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

var cityStateZipRe = regexp.MustCompile(`([^,]+),\s*([A-Za-z]{2})\s*(\d{5}(?:-\d{4})?)?$`)

// ParseAddress splits a single-line address into components. Board records
// carry addresses as free text; anything that doesn't match the usual
// "street, City, ST 12345" shape stays in Street untouched.
func ParseAddress(raw string) Address {
	addr := Address{Street: strings.TrimSpace(raw)}
	if addr.Street == "" {
		return addr
	}

	m := cityStateZipRe.FindStringSubmatch(addr.Street)
	if m == nil {
		return addr
	}

	addr.City = strings.TrimSpace(m[1])
	addr.State = strings.TrimSpace(m[2])
	addr.Zip = strings.TrimSpace(m[3])
	addr.Street = strings.TrimSpace(strings.TrimSuffix(addr.Street, m[0]))
	addr.Street = strings.TrimRight(addr.Street, ", ")
	return addr
}

var nonNumericRe = regexp.MustCompile(`[^0-9.]`)

// ParseMoney normalizes a currency string ("$12,500.00") to a float.
// Returns nil when the text carries no numeric value.
func ParseMoney(raw string) *float64 {
	cleaned := nonNumericRe.ReplaceAllString(raw, "")
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &v
}

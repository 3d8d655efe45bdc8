package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/boardsync/server/internal/models"
)

// StaffRepository handles staff member persistence
type StaffRepository struct {
	db DBTX
}

// NewStaffRepository creates a new StaffRepository
func NewStaffRepository(db DBTX) *StaffRepository {
	return &StaffRepository{db: db}
}

const staffColumns = `id, external_id, first_name, last_name, email, phone, street, city, state, zip, team_name, shirt_size, role, created_at, updated_at`

func scanStaff(row interface {
	Scan(dest ...interface{}) error
}) (*models.StaffMember, error) {
	var m models.StaffMember
	err := row.Scan(
		&m.ID,
		&m.ExternalID,
		&m.FirstName,
		&m.LastName,
		&m.Email,
		&m.Phone,
		&m.Street,
		&m.City,
		&m.State,
		&m.Zip,
		&m.TeamName,
		&m.ShirtSize,
		&m.Role,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByExternalID retrieves a staff member by board record id
func (r *StaffRepository) GetByExternalID(ctx context.Context, externalID string) (*models.StaffMember, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE external_id = $1`

	m, err := scanStaff(r.db.QueryRowContext(ctx, query, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetByExternalIDs retrieves multiple staff members keyed by board record id
func (r *StaffRepository) GetByExternalIDs(ctx context.Context, externalIDs []string) (map[string]*models.StaffMember, error) {
	result := make(map[string]*models.StaffMember)
	if len(externalIDs) == 0 {
		return result, nil
	}

	placeholders := make([]string, len(externalIDs))
	args := make([]interface{}, len(externalIDs))
	for i, id := range externalIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	query := `SELECT ` + staffColumns + ` FROM staff WHERE external_id IN (` + strings.Join(placeholders, ",") + `)`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result[m.ExternalID] = m
	}

	return result, rows.Err()
}

// BulkInsert inserts staff members, skipping existing external ids.
// Returns the number of rows actually inserted.
func (r *StaffRepository) BulkInsert(ctx context.Context, members []*models.StaffMember) (int, error) {
	if len(members) == 0 {
		return 0, nil
	}

	valueClauses := make([]string, len(members))
	args := make([]interface{}, 0, len(members)*15)
	for i, m := range members {
		base := i * 15
		parts := make([]string, 15)
		for j := range parts {
			parts[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueClauses[i] = "(" + strings.Join(parts, ", ") + ")"
		args = append(args,
			m.ID, m.ExternalID, m.FirstName, m.LastName, m.Email, m.Phone,
			m.Street, m.City, m.State, m.Zip, m.TeamName, m.ShirtSize, m.Role,
			m.CreatedAt, m.UpdatedAt,
		)
	}

	query := `INSERT INTO staff (` + staffColumns + `)
		VALUES ` + strings.Join(valueClauses, ", ") + `
		ON CONFLICT (external_id) DO NOTHING`

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

// Update rewrites a staff member's mutable columns
func (r *StaffRepository) Update(ctx context.Context, m *models.StaffMember) error {
	query := `UPDATE staff
		SET first_name = $1, last_name = $2, email = $3, phone = $4,
			street = $5, city = $6, state = $7, zip = $8,
			team_name = $9, shirt_size = $10, role = $11, updated_at = $12
		WHERE external_id = $13`

	_, err := r.db.ExecContext(ctx, query,
		m.FirstName, m.LastName, m.Email, m.Phone,
		m.Street, m.City, m.State, m.Zip,
		m.TeamName, m.ShirtSize, m.Role, m.UpdatedAt,
		m.ExternalID,
	)
	return err
}

// ListAll returns the full staff directory ordered by name
func (r *StaffRepository) ListAll(ctx context.Context) ([]*models.StaffMember, error) {
	query := `SELECT ` + staffColumns + ` FROM staff ORDER BY first_name, last_name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []*models.StaffMember{}
	for rows.Next() {
		m, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}

	return members, rows.Err()
}

// DeleteByExternalID removes a staff row. Returns whether a row existed.
func (r *StaffRepository) DeleteByExternalID(ctx context.Context, externalID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM staff WHERE external_id = $1",
		externalID,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

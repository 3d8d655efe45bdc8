package repository

import (
	"context"
	"database/sql"

	"github.com/boardsync/server/internal/models"
)

// CustomerRepository handles customer sub-record persistence
type CustomerRepository struct {
	db DBTX
}

// NewCustomerRepository creates a new CustomerRepository
func NewCustomerRepository(db DBTX) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// GetByExternalID retrieves the customer record for a work item
func (r *CustomerRepository) GetByExternalID(ctx context.Context, externalID string) (*models.Customer, error) {
	query := `SELECT id, external_id, full_name, email, phone, street, city, state, zip, created_at, updated_at
		FROM customers WHERE external_id = $1`

	var c models.Customer
	err := r.db.QueryRowContext(ctx, query, externalID).Scan(
		&c.ID,
		&c.ExternalID,
		&c.FullName,
		&c.Email,
		&c.Phone,
		&c.Street,
		&c.City,
		&c.State,
		&c.Zip,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Upsert creates or updates a customer record keyed by external id
func (r *CustomerRepository) Upsert(ctx context.Context, c *models.Customer) error {
	query := `INSERT INTO customers (id, external_id, full_name, email, phone, street, city, state, zip, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (external_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			street = EXCLUDED.street,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			zip = EXCLUDED.zip,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.ExternalID,
		c.FullName,
		c.Email,
		c.Phone,
		c.Street,
		c.City,
		c.State,
		c.Zip,
		c.CreatedAt,
		c.UpdatedAt,
	)
	return err
}

// DeleteByExternalID removes the customer record for a work item
func (r *CustomerRepository) DeleteByExternalID(ctx context.Context, externalID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM customers WHERE external_id = $1",
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

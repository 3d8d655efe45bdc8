package repository

import (
	"database/sql"

	_ "github.com/lib/pq"
)

// NewPostgresDB creates and initializes a PostgreSQL database connection
func NewPostgresDB(connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	// Create tables
	if err := createPostgresTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createPostgresTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS work_items (
		id TEXT PRIMARY KEY,
		external_id TEXT UNIQUE NOT NULL,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		fields JSONB NOT NULL DEFAULT '{}',
		notes_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_work_items_owner_id ON work_items(owner_id);
	CREATE INDEX IF NOT EXISTS idx_work_items_updated_at ON work_items(updated_at);

	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		external_id TEXT UNIQUE NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		street TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		zip TEXT NOT NULL DEFAULT '',
		team_name TEXT NOT NULL DEFAULT '',
		shirt_size TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL DEFAULT 'sales_staff',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_staff_email ON staff(email);

	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		external_id TEXT UNIQUE NOT NULL,
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		street TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		zip TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		external_id TEXT UNIQUE NOT NULL,
		current_stage TEXT NOT NULL DEFAULT '',
		progress_link TEXT NOT NULL DEFAULT '',
		progress_name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		total_price DOUBLE PRECISION,
		total_payment DOUBLE PRECISION,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_projects_stage ON projects(current_stage);

	CREATE TABLE IF NOT EXISTS sync_state (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		source TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'idle',
		started_at TIMESTAMP,
		completed_at TIMESTAMP,
		last_sync_timestamp TIMESTAMP,
		last_cursor TEXT NOT NULL DEFAULT '',
		has_more BOOLEAN NOT NULL DEFAULT FALSE,
		total_records INTEGER NOT NULL DEFAULT 0,
		processed_records INTEGER NOT NULL DEFAULT 0,
		created_records INTEGER NOT NULL DEFAULT 0,
		updated_records INTEGER NOT NULL DEFAULT 0,
		progress DOUBLE PRECISION NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		UNIQUE(owner_id, source)
	);

	CREATE TABLE IF NOT EXISTS sync_logs (
		id BIGSERIAL PRIMARY KEY,
		entity_type TEXT NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		operation TEXT NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		logged_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_sync_logs_logged_at ON sync_logs(logged_at);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		work_item_id TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
		owner_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_notes_work_item_id ON notes(work_item_id);
	`

	_, err := db.Exec(schema)
	return err
}

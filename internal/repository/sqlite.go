package repository

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// NewSQLiteDB creates and initializes a SQLite database
func NewSQLiteDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite allows one writer; a single pooled connection avoids
	// SQLITE_BUSY under concurrent updates
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, err
	}

	// Create tables
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	schema := `
	-- Work items mirrored from the external board
	CREATE TABLE IF NOT EXISTS work_items (
		id TEXT PRIMARY KEY,
		external_id TEXT UNIQUE NOT NULL,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		fields TEXT NOT NULL DEFAULT '{}',
		notes_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_work_items_owner_id ON work_items(owner_id);
	CREATE INDEX IF NOT EXISTS idx_work_items_updated_at ON work_items(updated_at);

	-- Staff directory mirrored from the staff board
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
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_staff_email ON staff(email);

	-- Customer contact details derived from work item fields
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
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	-- Project progress details derived from work item fields
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		external_id TEXT UNIQUE NOT NULL,
		current_stage TEXT NOT NULL DEFAULT '',
		progress_link TEXT NOT NULL DEFAULT '',
		progress_name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		total_price REAL,
		total_payment REAL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_projects_stage ON projects(current_stage);

	-- One sync state row per (owner, source)
	CREATE TABLE IF NOT EXISTS sync_state (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		source TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'idle',
		started_at DATETIME,
		completed_at DATETIME,
		last_sync_timestamp DATETIME,
		last_cursor TEXT NOT NULL DEFAULT '',
		has_more INTEGER NOT NULL DEFAULT 0,
		total_records INTEGER NOT NULL DEFAULT 0,
		processed_records INTEGER NOT NULL DEFAULT 0,
		created_records INTEGER NOT NULL DEFAULT 0,
		updated_records INTEGER NOT NULL DEFAULT 0,
		progress REAL NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		UNIQUE(owner_id, source)
	);

	-- Append-only audit trail of sync operations
	CREATE TABLE IF NOT EXISTS sync_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity_type TEXT NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		operation TEXT NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		logged_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sync_logs_logged_at ON sync_logs(logged_at);

	-- Local-only notes attached to work items
	CREATE TABLE IF NOT EXISTS notes (
		id TEXT PRIMARY KEY,
		work_item_id TEXT NOT NULL REFERENCES work_items(id) ON DELETE CASCADE,
		owner_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_notes_work_item_id ON notes(work_item_id);
	`

	_, err := db.Exec(schema)
	return err
}

// Package db opens the SQLite file that backs the command journal.
package db

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

var (
	db   *sql.DB
	once sync.Once
)

// InitDB opens the journal at dbPath once per process and brings its schema
// up to date. Later calls return the same handle.
func InitDB(dbPath string) (*sql.DB, error) {
	var initErr error
	once.Do(func() {
		var err error
		db, err = sql.Open("sqlite3", dbPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			return
		}

		// WAL lets status and list readers run while a read pump is journaling
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			initErr = fmt.Errorf("failed to enable WAL mode: %w", err)
			return
		}

		if err := runMigrations(db); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			return
		}
	})

	if initErr != nil {
		return nil, initErr
	}
	return db, nil
}

// GetDB returns the journal handle, or nil before InitDB.
func GetDB() *sql.DB {
	return db
}

// runMigrations creates the commands table and adds columns that older
// journals lack.
func runMigrations(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS commands (
		id TEXT PRIMARY KEY,
		directive TEXT NOT NULL,
		raw TEXT NOT NULL,
		speed INTEGER,
		turn INTEGER,
		duration INTEGER,
		source TEXT NOT NULL,
		outcome TEXT NOT NULL DEFAULT '',
		received_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_commands_received_at ON commands(received_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return addColumn(db, "commands", "outcome", "TEXT NOT NULL DEFAULT ''")
}

// addColumn adds column to table unless it is already there.
func addColumn(db *sql.DB, table, column, decl string) error {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl)); err != nil {
		return fmt.Errorf("failed to add %s.%s: %w", table, column, err)
	}
	return nil
}

// CloseDB closes the journal opened by InitDB.
func CloseDB() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// ResetDB closes the journal and lets the next InitDB open a fresh one.
func ResetDB() {
	if db != nil {
		db.Close()
	}
	once = sync.Once{}
	db = nil
}

// NewTestDB returns a private in-memory journal with the full schema.
// It does not touch the process-wide handle.
func NewTestDB() (*sql.DB, error) {
	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open test database: %w", err)
	}
	// Each pooled connection to :memory: would open a separate database
	testDB.SetMaxOpenConns(1)

	if err := runMigrations(testDB); err != nil {
		testDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return testDB, nil
}

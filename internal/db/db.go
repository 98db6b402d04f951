// Package db provides local database management for the inspection service tool.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	apperrors "github.com/tkmserwis/inspektor/internal/errors"
)

// DB wraps sql.DB with the tool's SQLite configuration.
type DB struct {
	*sql.DB
}

// Open opens the local SQLite database under dataDir, creating the
// directory if needed. The database is opened with:
// - WAL mode for concurrent reads during a drain
// - foreign key constraints enabled
// Failures are reported as STORAGE_UNAVAILABLE.
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to create data directory", err)
	}

	dbPath := filepath.Join(dataDir, "inspektor.db")

	// modernc.org/sqlite is pure Go, no CGO; the binary runs on whatever
	// field device the technician carries.
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to open database", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to enable WAL mode", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable, "failed to enable foreign keys", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.ErrStorageUnavailable,
			fmt.Sprintf("database at %s is not usable", dbPath), err)
	}

	return &DB{db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}

// Package db provides the generic keyed-record store used by the
// inspection archive and the email outbox.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"time"

	apperrors "github.com/tkmserwis/inspektor/internal/errors"
)

// Collection names map directly onto table names, so they are
// restricted to a safe identifier shape.
var collectionNameRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Record is one row of a collection: the auto-assigned id plus the
// JSON-encoded body as written at insert time.
type Record struct {
	ID        int64
	Body      json.RawMessage
	CreatedAt int64
}

// Decode unmarshals the record body into v.
func (r Record) Decode(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return apperrors.Wrap(apperrors.ErrReadFailed, "failed to decode record body", err)
	}
	return nil
}

// Store provides insert/getAll/delete over named collections. Ids are
// assigned by SQLite AUTOINCREMENT, so they increase monotonically and
// are never reused within a store lifetime. Each operation is a single
// transaction; the store adds no locking of its own.
type Store struct {
	db *sql.DB

	// Prepared statement cache, keyed by query text. Statements are
	// prepared on first use and reused across drain cycles.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewStore creates a Store over an opened database.
func NewStore(db *DB) *Store {
	return &Store{db: db.DB}
}

// prepareStmt gets or creates a prepared statement from the cache.
func (s *Store) prepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := s.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := s.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := s.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another goroutine already prepared this, close our duplicate
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}

	return stmt, nil
}

// Close closes all cached prepared statements.
func (s *Store) Close() error {
	var firstErr error
	s.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

func validateCollection(collection string) error {
	if !collectionNameRe.MatchString(collection) {
		return apperrors.New(apperrors.ErrInvalid,
			fmt.Sprintf("invalid collection name %q", collection))
	}
	return nil
}

// Insert writes a new record and returns its assigned id. The write is
// atomic: either the full record is durable and the id returned, or
// nothing is written.
func (s *Store) Insert(collection string, record interface{}) (int64, error) {
	if err := validateCollection(collection); err != nil {
		return 0, err
	}

	body, err := json.Marshal(record)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrWriteFailed, "failed to encode record", err)
	}

	query := fmt.Sprintf("INSERT INTO %s (body, created_at) VALUES (?, ?)", collection)
	stmt, err := s.prepareStmt(query)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrWriteFailed, "failed to prepare insert", err)
	}

	result, err := stmt.Exec(string(body), time.Now().UnixMilli())
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrWriteFailed,
			fmt.Sprintf("failed to insert into %s", collection), err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrWriteFailed, "failed to read assigned id", err)
	}
	return id, nil
}

// GetAll returns a finite snapshot of every record in the collection,
// in id order. The snapshot reflects some valid state since the call
// began; no stronger guarantee against concurrent writers.
func (s *Store) GetAll(collection string) ([]Record, error) {
	if err := validateCollection(collection); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT id, body, created_at FROM %s ORDER BY id", collection)
	stmt, err := s.prepareStmt(query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrReadFailed, "failed to prepare select", err)
	}

	rows, err := stmt.Query()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrReadFailed,
			fmt.Sprintf("failed to read %s", collection), err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var body string
		if err := rows.Scan(&rec.ID, &body, &rec.CreatedAt); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrReadFailed, "failed to scan record", err)
		}
		rec.Body = json.RawMessage(body)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrReadFailed,
			fmt.Sprintf("failed to iterate %s", collection), err)
	}
	return records, nil
}

// Count returns the number of records in the collection.
func (s *Store) Count(collection string) (int, error) {
	if err := validateCollection(collection); err != nil {
		return 0, err
	}

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", collection)
	stmt, err := s.prepareStmt(query)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrReadFailed, "failed to prepare count", err)
	}

	var count int
	if err := stmt.QueryRow().Scan(&count); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrReadFailed,
			fmt.Sprintf("failed to count %s", collection), err)
	}
	return count, nil
}

// Delete removes the record with the given id. Deleting an absent id
// is a no-op, not an error: a drain interrupted between a confirmed
// send and the local delete must be able to retry the delete safely.
func (s *Store) Delete(collection string, id int64) error {
	if err := validateCollection(collection); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", collection)
	stmt, err := s.prepareStmt(query)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDeleteFailed, "failed to prepare delete", err)
	}

	if _, err := stmt.Exec(id); err != nil {
		return apperrors.Wrap(apperrors.ErrDeleteFailed,
			fmt.Sprintf("failed to delete %d from %s", id, collection), err)
	}
	return nil
}

// Update replaces the body of the record with the given id. The outbox
// never updates records; this exists for the archive's reminder flag.
func (s *Store) Update(collection string, id int64, record interface{}) error {
	if err := validateCollection(collection); err != nil {
		return err
	}

	body, err := json.Marshal(record)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrWriteFailed, "failed to encode record", err)
	}

	query := fmt.Sprintf("UPDATE %s SET body = ? WHERE id = ?", collection)
	stmt, err := s.prepareStmt(query)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrWriteFailed, "failed to prepare update", err)
	}

	result, err := stmt.Exec(string(body), id)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrWriteFailed,
			fmt.Sprintf("failed to update %d in %s", id, collection), err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return apperrors.New(apperrors.ErrNotFound,
			fmt.Sprintf("record %d not found in %s", id, collection))
	}
	return nil
}

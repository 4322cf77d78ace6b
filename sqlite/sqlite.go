// Package sqlite provides a SQLite-backed implementation of the Clarity
// store contracts. Both stores share one database handle so session removal
// cascades to thoughts inside the engine's single logical store.
//
// The driver is modernc.org/sqlite (pure Go, no cgo).
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/kivo360/clarity/core"
)

// Store bundles the SQLite-backed session and thought stores over one
// database handle.
type Store struct {
	db       *sql.DB
	sessions *SessionStore
	thoughts *ThoughtStore
}

// Open opens (or creates) the database at dsn, applies migrations and
// returns the bundled store. Use ":memory:" for an ephemeral database.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("open sqlite: dsn is empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The engine serializes writers per branch; a single connection keeps
	// SQLite itself out of lock contention.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite: enable foreign keys: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return NewStore(db)
}

// NewStore wraps an existing migrated database handle.
func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite store: db is nil")
	}
	return &Store{
		db:       db,
		sessions: &SessionStore{db: db},
		thoughts: &ThoughtStore{db: db},
	}, nil
}

// Sessions returns the core.SessionStore implementation.
func (s *Store) Sessions() *SessionStore { return s.sessions }

// Thoughts returns the core.ThoughtStore implementation.
func (s *Store) Thoughts() *ThoughtStore { return s.thoughts }

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// isUniqueViolation detects a UNIQUE index violation from the driver. The
// modernc driver exposes SQLite's message text rather than a typed error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// mapExecError classifies a driver error: unique index violations become
// conflict errors (the engine retries those), everything else is a storage
// failure.
func mapExecError(op string, err error) error {
	if isUniqueViolation(err) {
		return core.NewConflictError("", "sequence slot already taken")
	}
	return core.NewStorageError(op, err)
}

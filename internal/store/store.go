// Package store implements the transactional collection layer over the
// local SQLite database: inventory, attachments, stores, archive, and
// settings, plus snapshot export/import.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// Sentinel errors returned by collection operations. Callers match them
// with errors.Is; messages carry the offending ID.
var (
	ErrNotFound     = errors.New("not found")
	ErrExists       = errors.New("already exists")
	ErrInvalidState = errors.New("invalid state")
)

// Store is the collection layer. All methods are safe for concurrent use;
// SQLite serializes writers underneath.
type Store struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time

	mu       sync.Mutex
	onChange []func()
}

// New wraps an open, upgraded database handle. A nil logger defaults to
// stderr.
func New(sqldb *sql.DB, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(os.Stderr, "[store] ", log.LstdFlags)
	}
	return &Store{
		db:     sqldb,
		logger: logger,
		now:    time.Now,
	}
}

// OnChange registers fn to run after every successful user-facing mutation.
// The sync coordinator hangs its debounce trigger here. Sync bookkeeping
// writes (clearing dirty flags after a push) do not fire it.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(), len(s.onChange))
	copy(fns, s.onChange)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Clear empties one collection.
func (s *Store) Clear(ctx context.Context, collection string) error {
	switch collection {
	case "inventory", "archive", "attachments", "stores", "settings":
	default:
		return fmt.Errorf("unknown collection %q", collection)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+collection); err != nil {
		return fmt.Errorf("failed to clear %s: %w", collection, err)
	}
	s.notify()
	return nil
}

func rowExists(tx *sql.Tx, table, id string) (bool, error) {
	var one int
	err := tx.QueryRow("SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to probe %s/%s: %w", table, id, err)
	}
	return true, nil
}

package db

import (
	"database/sql"
	"io"
	"log"
	"testing"
)

// NewTestDB opens a fresh in-memory store, fully upgraded. Each in-memory
// connection is its own database, so the pool is pinned to one connection.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	if err := Upgrade(sqldb, log.New(io.Discard, "", 0)); err != nil {
		sqldb.Close()
		t.Fatalf("failed to upgrade test database: %v", err)
	}

	t.Cleanup(func() { sqldb.Close() })
	return sqldb
}

// Package db opens the local SQLite store and brings it to the current
// store version before anyone can query it.
package db

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Open opens the SQLite database at path, configures pragmas, and runs any
// pending store upgrades in a single transaction. The returned handle is
// fully upgraded; if any upgrade step fails the handle is closed and an
// error returned, leaving the on-disk file at its previous version.
func Open(path string, logger *log.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[db] ", log.LstdFlags)
	}

	sqldb, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Pragmas for correctness and single-writer performance.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := sqldb.Exec(p); err != nil {
			sqldb.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}

	if err := Upgrade(sqldb, logger); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to upgrade store: %w", err)
	}

	return sqldb, nil
}

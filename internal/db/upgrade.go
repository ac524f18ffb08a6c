package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/vanastassiou/scrounger-sub002/internal/schema"
)

// upgrade is one store version step. Steps run in order inside a single
// transaction; each must be idempotent because a crash between the version
// bump and commit replays the whole batch.
type upgrade struct {
	to int
	fn func(tx *sql.Tx) error
}

// upgrades tracks schema.CurrentSchemaVersion. Append new steps at the end.
var upgrades = []upgrade{
	{to: 1, fn: createBaseSchema},
	{to: 2, fn: normalizeDocuments}, // groups flat category/colour/material
	{to: 3, fn: normalizeDocuments}, // strips resale_score
}

// Upgrade brings the store to the current version. All pending steps commit
// atomically: either the store reaches the latest version or it stays
// exactly where it was.
func Upgrade(sqldb *sql.DB, logger *log.Logger) error {
	tx, err := sqldb.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin upgrade transaction: %w", err)
	}
	defer tx.Rollback()

	var current int
	if err := tx.QueryRow("PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to read store version: %w", err)
	}

	applied := 0
	for _, step := range upgrades {
		if step.to <= current {
			continue
		}
		if err := step.fn(tx); err != nil {
			return fmt.Errorf("upgrade to version %d failed: %w", step.to, err)
		}
		// user_version is stored in the database header and rolls back
		// with the transaction.
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", step.to)); err != nil {
			return fmt.Errorf("failed to record store version %d: %w", step.to, err)
		}
		current = step.to
		applied++
	}

	if applied > 0 {
		if logger != nil {
			logger.Printf("upgraded store to version %d (%d steps)", current, applied)
		}
	}
	return tx.Commit()
}

func createBaseSchema(tx *sql.Tx) error {
	if _, err := tx.Exec(baseSchema); err != nil {
		return fmt.Errorf("failed to create base schema: %w", err)
	}
	return nil
}

// normalizeDocuments rewrites every item document that schema.NormalizeItem
// changes, in both the inventory and archive collections. The unsynced
// column is refreshed from the document so migrations that dirty a record
// surface it to the sync coordinator.
func normalizeDocuments(tx *sql.Tx) error {
	for _, table := range []string{"inventory", "archive"} {
		if err := normalizeTable(tx, table); err != nil {
			return err
		}
	}
	return nil
}

func normalizeTable(tx *sql.Tx, table string) error {
	rows, err := tx.Query(fmt.Sprintf("SELECT id, data FROM %s", table))
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", table, err)
	}

	type pending struct {
		id       string
		data     []byte
		unsynced bool
	}
	var updates []pending

	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			rows.Close()
			return fmt.Errorf("failed to read %s row: %w", table, err)
		}

		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			rows.Close()
			return fmt.Errorf("failed to decode document %s/%s: %w", table, id, err)
		}
		if !schema.NormalizeItem(doc) {
			continue
		}

		data, err := json.Marshal(doc)
		if err != nil {
			rows.Close()
			return fmt.Errorf("failed to encode document %s/%s: %w", table, id, err)
		}
		updates = append(updates, pending{id: id, data: data, unsynced: docUnsynced(doc)})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("failed to scan %s: %w", table, err)
	}
	rows.Close()

	for _, u := range updates {
		query := fmt.Sprintf("UPDATE %s SET data = ?, unsynced = ? WHERE id = ?", table)
		if _, err := tx.Exec(query, u.data, u.unsynced, u.id); err != nil {
			return fmt.Errorf("failed to rewrite document %s/%s: %w", table, u.id, err)
		}
	}
	return nil
}

func docUnsynced(doc map[string]any) bool {
	meta, ok := doc["metadata"].(map[string]any)
	if !ok {
		return true
	}
	syn, ok := meta["sync"].(map[string]any)
	if !ok {
		return true
	}
	dirty, ok := syn["unsynced"].(bool)
	if !ok {
		return true
	}
	return dirty
}

package db

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"testing"

	"github.com/vanastassiou/scrounger-sub002/internal/schema"
)

// newV1DB builds a database the way a version-1 build would have left it:
// base tables present, user_version 1, documents still in the flat shape.
func newV1DB(t *testing.T) *sql.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	t.Cleanup(func() { sqldb.Close() })

	if _, err := sqldb.Exec(baseSchema); err != nil {
		t.Fatalf("failed to create base schema: %v", err)
	}
	if _, err := sqldb.Exec("PRAGMA user_version = 1"); err != nil {
		t.Fatalf("failed to set store version: %v", err)
	}
	return sqldb
}

func insertRawItem(t *testing.T, sqldb *sql.DB, table, id, doc string) {
	t.Helper()
	_, err := sqldb.Exec(
		"INSERT INTO "+table+" (id, data, status, unsynced, updated_at) VALUES (?, ?, 'sourced', 0, '2026-01-01T00:00:00Z')",
		id, doc,
	)
	if err != nil {
		t.Fatalf("failed to insert %s/%s: %v", table, id, err)
	}
}

func storeVersion(t *testing.T, sqldb *sql.DB) int {
	t.Helper()
	var v int
	if err := sqldb.QueryRow("PRAGMA user_version").Scan(&v); err != nil {
		t.Fatalf("failed to read store version: %v", err)
	}
	return v
}

func TestUpgradeFreshDatabase(t *testing.T) {
	sqldb := NewTestDB(t)

	if got := storeVersion(t, sqldb); got != schema.CurrentSchemaVersion {
		t.Errorf("store version = %d, want %d", got, schema.CurrentSchemaVersion)
	}

	// All five collections must exist.
	for _, table := range []string{"inventory", "archive", "attachments", "stores", "settings"} {
		var name string
		err := sqldb.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("collection %q missing: %v", table, err)
		}
	}
}

func TestUpgradeNormalizesLegacyDocuments(t *testing.T) {
	sqldb := newV1DB(t)
	insertRawItem(t, sqldb, "inventory", "1b9d6bcd",
		`{"id":"1b9d6bcd","category":"shoes","subcategory":"boots","colour":"black","material":"leather","resale_score":7.1,"metadata":{"sync":{"unsynced":false}}}`)
	insertRawItem(t, sqldb, "archive", "aa11bb22",
		`{"id":"aa11bb22","schema_version":2,"colour":{"primary":"navy","secondary":null},"resale_score":2,"metadata":{"sync":{"unsynced":false}}}`)

	if err := Upgrade(sqldb, log.New(io.Discard, "", 0)); err != nil {
		t.Fatalf("Upgrade() error = %v", err)
	}
	if got := storeVersion(t, sqldb); got != schema.CurrentSchemaVersion {
		t.Fatalf("store version = %d, want %d", got, schema.CurrentSchemaVersion)
	}

	var raw []byte
	var unsynced bool
	if err := sqldb.QueryRow("SELECT data, unsynced FROM inventory WHERE id = '1b9d6bcd'").Scan(&raw, &unsynced); err != nil {
		t.Fatalf("failed to read migrated row: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("failed to decode migrated document: %v", err)
	}

	category, ok := doc["category"].(map[string]any)
	if !ok || category["primary"] != "shoes" || category["secondary"] != "boots" {
		t.Errorf("category = %v, want grouped {shoes boots}", doc["category"])
	}
	if _, ok := doc["resale_score"]; ok {
		t.Error("resale_score survived the upgrade")
	}
	if !unsynced {
		t.Error("stripped record must surface as unsynced in the index column")
	}

	if err := sqldb.QueryRow("SELECT data, unsynced FROM archive WHERE id = 'aa11bb22'").Scan(&raw, &unsynced); err != nil {
		t.Fatalf("failed to read migrated archive row: %v", err)
	}
	if !unsynced {
		t.Error("archived record stripped of resale_score must be marked unsynced")
	}
}

func TestUpgradeIdempotent(t *testing.T) {
	sqldb := newV1DB(t)
	insertRawItem(t, sqldb, "inventory", "1b9d6bcd",
		`{"id":"1b9d6bcd","category":"shoes","subcategory":"boots","colour":"black","material":"leather"}`)

	if err := Upgrade(sqldb, log.New(io.Discard, "", 0)); err != nil {
		t.Fatalf("first Upgrade() error = %v", err)
	}
	var first []byte
	if err := sqldb.QueryRow("SELECT data FROM inventory WHERE id = '1b9d6bcd'").Scan(&first); err != nil {
		t.Fatalf("failed to read row: %v", err)
	}

	if err := Upgrade(sqldb, log.New(io.Discard, "", 0)); err != nil {
		t.Fatalf("second Upgrade() error = %v", err)
	}
	var second []byte
	if err := sqldb.QueryRow("SELECT data FROM inventory WHERE id = '1b9d6bcd'").Scan(&second); err != nil {
		t.Fatalf("failed to read row: %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("second upgrade rewrote the document:\n first: %s\nsecond: %s", first, second)
	}
}

func TestUpgradeRollsBackOnFailure(t *testing.T) {
	sqldb := newV1DB(t)
	insertRawItem(t, sqldb, "inventory", "good",
		`{"id":"good","category":"shoes","subcategory":"boots","colour":"black","material":"leather"}`)
	insertRawItem(t, sqldb, "inventory", "broken", `{not json`)

	if err := Upgrade(sqldb, log.New(io.Discard, "", 0)); err == nil {
		t.Fatal("Upgrade() = nil error with an undecodable document")
	}

	// Nothing may have moved: version and documents stay at v1.
	if got := storeVersion(t, sqldb); got != 1 {
		t.Errorf("store version after failed upgrade = %d, want 1", got)
	}
	var raw []byte
	if err := sqldb.QueryRow("SELECT data FROM inventory WHERE id = 'good'").Scan(&raw); err != nil {
		t.Fatalf("failed to read row: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("failed to decode document: %v", err)
	}
	if _, isFlat := doc["category"].(string); !isFlat {
		t.Error("failed upgrade leaked a partially migrated document")
	}
}

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vanastassiou/scrounger-sub002/internal/schema"
)

// SnapshotVersion is the current snapshot wire format. Older exports used
// unversioned envelopes; see decodeEnvelope.
const SnapshotVersion = 3

// Snapshot is the whole-store wire format pushed to and fetched from the
// remote. Attachments are deliberately absent: they sync file-by-file.
// Records are raw documents so a push round-trips byte-exact.
type Snapshot struct {
	Version    int               `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Device     string            `json:"device,omitempty"`
	Inventory  []json.RawMessage `json:"inventory"`
	Stores     []json.RawMessage `json:"stores"`
	Archive    []json.RawMessage `json:"archive"`
}

// Encode renders the snapshot the way it is stored remotely.
func (snap *Snapshot) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// Export captures the syncable collections as a snapshot. Documents come
// out exactly as stored, in ID order.
func (s *Store) Export(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.now().UTC(),
	}
	if device, err := s.GetSetting(ctx, SettingDeviceLabel); err == nil {
		snap.Device = device
	}

	var err error
	if snap.Inventory, err = s.rawDocs(ctx, "inventory"); err != nil {
		return nil, err
	}
	if snap.Stores, err = s.rawDocs(ctx, "stores"); err != nil {
		return nil, err
	}
	if snap.Archive, err = s.rawDocs(ctx, "archive"); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) rawDocs(ctx context.Context, table string) ([]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM "+table+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", table, err)
	}
	defer rows.Close()

	docs := []json.RawMessage{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to export %s: %w", table, err)
		}
		docs = append(docs, json.RawMessage(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to export %s: %w", table, err)
	}
	return docs, nil
}

// ImportOptions controls how incoming records land.
type ImportOptions struct {
	// MarkSynced stamps records written by this import as clean, with
	// SyncedAt as the sync time. The reconciler's fetch path sets this;
	// file imports leave it false so restored records push back out.
	MarkSynced bool
	SyncedAt   time.Time
}

// ImportResult tallies one import pass.
type ImportResult struct {
	ItemsImported  int
	ItemsSkipped   int
	StoresImported int
	StoresSkipped  int
	Errors         []string
}

// Import merges one exported document into the store. Three envelope shapes
// are understood: the current versioned snapshot, the legacy {meta, items}
// export, and the legacy bare {stores} export.
//
// Merging is last-write-wins per record on the updated timestamp: a newer
// incoming record replaces the local one wholesale, an older or equal one is
// skipped. Incoming item documents are normalized first, and land in the
// archive when their status is terminal, wherever the envelope carried them.
func (s *Store) Import(ctx context.Context, raw []byte, opts ImportOptions) (*ImportResult, error) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, doc := range env.items {
			if err := s.mergeItemDoc(tx, doc, opts, result); err != nil {
				return err
			}
		}
		for _, doc := range env.stores {
			if err := s.mergeStoreDoc(tx, doc, opts, result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Printf("imported %d items, %d stores (%d/%d skipped, %d errors)",
		result.ItemsImported, result.StoresImported, result.ItemsSkipped, result.StoresSkipped, len(result.Errors))
	if result.ItemsImported > 0 || result.StoresImported > 0 {
		s.notify()
	}
	return result, nil
}

// envelope is the shape-independent view of an export file.
type envelope struct {
	items  []map[string]any
	stores []map[string]any
}

func decodeEnvelope(raw []byte) (*envelope, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	env := &envelope{}
	switch {
	case probe["inventory"] != nil || probe["version"] != nil:
		// Current shape. Archive records merge through the same item path;
		// their terminal status routes them back to the archive.
		var snap Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, fmt.Errorf("failed to decode snapshot: %w", err)
		}
		for _, r := range snap.Inventory {
			doc, err := decodeDoc(r)
			if err != nil {
				return nil, err
			}
			env.items = append(env.items, doc)
		}
		for _, r := range snap.Archive {
			doc, err := decodeDoc(r)
			if err != nil {
				return nil, err
			}
			env.items = append(env.items, doc)
		}
		for _, r := range snap.Stores {
			doc, err := decodeDoc(r)
			if err != nil {
				return nil, err
			}
			env.stores = append(env.stores, doc)
		}

	case probe["items"] != nil:
		// Legacy shape one: {"meta": {...}, "items": [...]}.
		var legacy struct {
			Meta  map[string]any   `json:"meta"`
			Items []map[string]any `json:"items"`
		}
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, fmt.Errorf("failed to decode legacy items export: %w", err)
		}
		env.items = legacy.Items

	case probe["stores"] != nil:
		// Legacy shape two: a bare stores list.
		var legacy struct {
			Stores []map[string]any `json:"stores"`
		}
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, fmt.Errorf("failed to decode legacy stores export: %w", err)
		}
		env.stores = legacy.Stores

	default:
		return nil, fmt.Errorf("unrecognized snapshot shape (no inventory, items, or stores key)")
	}
	return env, nil
}

func decodeDoc(raw json.RawMessage) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot record: %w", err)
	}
	return doc, nil
}

func (s *Store) mergeItemDoc(tx *sql.Tx, doc map[string]any, opts ImportOptions, result *ImportResult) error {
	schema.NormalizeItem(doc)

	id, _ := doc["id"].(string)
	if id == "" {
		result.Errors = append(result.Errors, "item record without id skipped")
		return nil
	}

	incomingUpdated := itemDocUpdated(doc)
	existingTable := ""
	var existingUpdated time.Time
	for _, table := range []string{"inventory", "archive"} {
		raw, err := itemDocTx(tx, table, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		existing, err := decodeDoc(raw)
		if err != nil {
			return err
		}
		existingTable = table
		existingUpdated = itemDocUpdated(existing)
		break
	}

	if existingTable != "" && !incomingUpdated.After(existingUpdated) {
		result.ItemsSkipped++
		return nil
	}

	if opts.MarkSynced {
		schema.MarkDocSynced(doc, opts.SyncedAt)
	} else {
		schema.MarkDocDirty(doc)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode item %q: %w", id, err)
	}
	var item schema.Item
	if err := json.Unmarshal(data, &item); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("item %s unreadable: %v", id, err))
		return nil
	}

	target := "inventory"
	if item.Metadata.Status.IsTerminal() {
		target = "archive"
	}

	if existingTable != "" {
		if _, err := tx.Exec("DELETE FROM "+existingTable+" WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to replace item %q: %w", id, err)
		}
	}
	if err := insertItemDocTx(tx, target, &item, data); err != nil {
		return err
	}
	result.ItemsImported++
	return nil
}

func (s *Store) mergeStoreDoc(tx *sql.Tx, doc map[string]any, opts ImportOptions, result *ImportResult) error {
	id, _ := doc["id"].(string)
	if id == "" {
		result.Errors = append(result.Errors, "store record without id skipped")
		return nil
	}

	var existingRaw []byte
	err := tx.QueryRow("SELECT data FROM stores WHERE id = ?", id).Scan(&existingRaw)
	exists := err == nil
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to probe store %q: %w", id, err)
	}
	if exists {
		existing, err := decodeDoc(existingRaw)
		if err != nil {
			return err
		}
		if !storeDocUpdated(doc).After(storeDocUpdated(existing)) {
			result.StoresSkipped++
			return nil
		}
	}

	markStoreDoc(doc, opts)

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode store %q: %w", id, err)
	}
	var rec schema.Store
	if err := json.Unmarshal(data, &rec); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("store %s unreadable: %v", id, err))
		return nil
	}
	if err := upsertStoreTx(tx, &rec, !exists); err != nil {
		return err
	}
	// upsertStoreTx encodes the typed view; rewrite with the raw document
	// so unknown fields survive.
	if _, err := tx.Exec("UPDATE stores SET data = ? WHERE id = ?", data, id); err != nil {
		return fmt.Errorf("failed to write store %q: %w", id, err)
	}
	result.StoresImported++
	return nil
}

// MarkSnapshotSynced clears the dirty flag on every record the pushed
// snapshot contained, provided the record has not changed since export.
// Records mutated mid-push keep their dirty flag and go out next time.
// Sync bookkeeping: fires no change notification.
func (s *Store) MarkSnapshotSynced(ctx context.Context, snap *Snapshot, at time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, pair := range []struct {
			table string
			docs  []json.RawMessage
		}{
			{"inventory", snap.Inventory},
			{"archive", snap.Archive},
		} {
			for _, raw := range pair.docs {
				pushed, err := decodeDoc(raw)
				if err != nil {
					return err
				}
				if err := clearItemDirty(tx, pair.table, pushed, at); err != nil {
					return err
				}
			}
		}
		for _, raw := range snap.Stores {
			pushed, err := decodeDoc(raw)
			if err != nil {
				return err
			}
			if err := clearStoreDirty(tx, pushed, at); err != nil {
				return err
			}
		}
		return nil
	})
}

func clearItemDirty(tx *sql.Tx, table string, pushed map[string]any, at time.Time) error {
	id, _ := pushed["id"].(string)
	if id == "" {
		return nil
	}
	raw, err := itemDocTx(tx, table, id)
	if errors.Is(err, ErrNotFound) {
		return nil // deleted since export
	}
	if err != nil {
		return err
	}
	current, err := decodeDoc(raw)
	if err != nil {
		return err
	}
	if !itemDocUpdated(current).Equal(itemDocUpdated(pushed)) {
		return nil // mutated since export, stays dirty
	}

	schema.MarkDocSynced(current, at)
	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to encode item %q: %w", id, err)
	}
	if _, err := tx.Exec("UPDATE "+table+" SET data = ?, unsynced = 0 WHERE id = ?", data, id); err != nil {
		return fmt.Errorf("failed to clear dirty flag on %s/%s: %w", table, id, err)
	}
	return nil
}

func clearStoreDirty(tx *sql.Tx, pushed map[string]any, at time.Time) error {
	id, _ := pushed["id"].(string)
	if id == "" {
		return nil
	}
	var raw []byte
	err := tx.QueryRow("SELECT data FROM stores WHERE id = ?", id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load store %q: %w", id, err)
	}
	current, err := decodeDoc(raw)
	if err != nil {
		return err
	}
	if !storeDocUpdated(current).Equal(storeDocUpdated(pushed)) {
		return nil
	}

	markStoreDoc(current, ImportOptions{MarkSynced: true, SyncedAt: at})
	data, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to encode store %q: %w", id, err)
	}
	if _, err := tx.Exec("UPDATE stores SET data = ?, unsynced = 0 WHERE id = ?", data, id); err != nil {
		return fmt.Errorf("failed to clear dirty flag on store %q: %w", id, err)
	}
	return nil
}

// DirtyCounts reports how much of each collection awaits a push.
type DirtyCounts struct {
	Items       int
	Archived    int
	Stores      int
	Attachments int
}

// Total sums the per-collection counts.
func (d DirtyCounts) Total() int {
	return d.Items + d.Archived + d.Stores + d.Attachments
}

// DirtyCounts tallies unsynced records across the syncable collections.
func (s *Store) DirtyCounts(ctx context.Context) (DirtyCounts, error) {
	var counts DirtyCounts
	for _, q := range []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM inventory WHERE unsynced = 1", &counts.Items},
		{"SELECT COUNT(*) FROM archive WHERE unsynced = 1", &counts.Archived},
		{"SELECT COUNT(*) FROM stores WHERE unsynced = 1", &counts.Stores},
		{"SELECT COUNT(*) FROM attachments WHERE synced = 0", &counts.Attachments},
	} {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return DirtyCounts{}, fmt.Errorf("failed to count unsynced records: %w", err)
		}
	}
	return counts, nil
}

// ===== raw document helpers =====

func itemDocUpdated(doc map[string]any) time.Time {
	meta, _ := doc["metadata"].(map[string]any)
	return parseDocTime(meta, "updated")
}

func storeDocUpdated(doc map[string]any) time.Time {
	return parseDocTime(doc, "updated")
}

func parseDocTime(m map[string]any, key string) time.Time {
	if m == nil {
		return time.Time{}
	}
	s, _ := m[key].(string)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func markStoreDoc(doc map[string]any, opts ImportOptions) {
	syn, ok := doc["sync"].(map[string]any)
	if !ok {
		syn = make(map[string]any)
		doc["sync"] = syn
	}
	if opts.MarkSynced {
		syn["unsynced"] = false
		syn["synced_at"] = opts.SyncedAt.UTC().Format(time.RFC3339Nano)
	} else {
		syn["unsynced"] = true
		delete(syn, "synced_at")
	}
}

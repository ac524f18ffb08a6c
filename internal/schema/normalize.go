package schema

import (
	"encoding/json"
	"time"
)

// flatAliases maps each grouped field to the legacy flat keys it absorbs:
// the primary value lived under the field name itself, the secondary under a
// prefixed alias.
var flatAliases = []struct {
	field     string
	secondary string
}{
	{"category", "subcategory"},
	{"colour", "secondary_colour"},
	{"material", "secondary_material"},
}

// NormalizeItem upgrades an item document in place to CurrentSchemaVersion
// and reports whether anything changed. It is safe to run on documents of any
// vintage, including current ones: a second run is always a no-op.
//
// Steps, gated on the document's schema_version tag:
//
//	< 2: group flat category/colour/material fields into nested pairs
//	< 3: strip the deprecated resale_score computed field, marking the
//	     record dirty so the stripped shape reaches the remote
//
// The tag itself is stamped last, so partially-shaped documents written by
// old builds that never tagged are still detected by shape.
func NormalizeItem(doc map[string]any) bool {
	changed := false

	if docVersion(doc) < 2 && !hasGroupedShape(doc) {
		groupFlatFields(doc)
		changed = true
	}

	if docVersion(doc) < 3 {
		if _, ok := doc["resale_score"]; ok {
			delete(doc, "resale_score")
			MarkDocDirty(doc)
			changed = true
		}
	}

	if docVersion(doc) != CurrentSchemaVersion {
		doc["schema_version"] = CurrentSchemaVersion
		changed = true
	}
	return changed
}

// hasGroupedShape is the v2 discriminator: a document is grouped when its
// colour field is an object carrying a primary key.
func hasGroupedShape(doc map[string]any) bool {
	colour, ok := doc["colour"].(map[string]any)
	if !ok {
		return false
	}
	_, ok = colour["primary"]
	return ok
}

// groupFlatFields rewrites the six flat v1 fields into three nested pairs,
// defaulting missing values to null and deleting the flat secondary aliases.
func groupFlatFields(doc map[string]any) {
	for _, a := range flatAliases {
		pair := map[string]any{
			"primary":   stringOrNil(doc[a.field]),
			"secondary": stringOrNil(doc[a.secondary]),
		}
		doc[a.field] = pair
		delete(doc, a.secondary)
	}
}

// MarkDocDirty sets metadata.sync.unsynced on a raw document without
// touching updated, creating the nested maps when a legacy record lacks
// them.
func MarkDocDirty(doc map[string]any) {
	meta := ensureMap(doc, "metadata")
	sync := ensureMap(meta, "sync")
	sync["unsynced"] = true
	delete(sync, "synced_at")
}

// TouchDoc is the raw-document counterpart of Item.Touch: bumps
// metadata.updated and sets the dirty flag. Used on merge-patch writes,
// where the document may carry fields the typed Item does not know.
func TouchDoc(doc map[string]any, now time.Time) {
	meta := ensureMap(doc, "metadata")
	meta["updated"] = now.UTC().Format(time.RFC3339Nano)
	MarkDocDirty(doc)
}

// MarkDocSynced is the raw-document counterpart of Item.MarkSynced.
func MarkDocSynced(doc map[string]any, at time.Time) {
	meta := ensureMap(doc, "metadata")
	sync := ensureMap(meta, "sync")
	sync["unsynced"] = false
	sync["synced_at"] = at.UTC().Format(time.RFC3339Nano)
}

// docVersion reads the schema_version tag, tolerating the numeric types
// json decoding can produce. Untagged documents report 0.
func docVersion(doc map[string]any) int {
	switch v := doc["schema_version"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	default:
		return 0
	}
}

// ensureMap returns doc[key] as a map, replacing it when absent or of the
// wrong type.
func ensureMap(doc map[string]any, key string) map[string]any {
	if m, ok := doc[key].(map[string]any); ok {
		return m
	}
	m := make(map[string]any)
	doc[key] = m
	return m
}

// stringOrNil passes non-empty strings through and collapses everything else
// to null, matching how missing flat fields default during grouping.
func stringOrNil(v any) any {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return nil
}

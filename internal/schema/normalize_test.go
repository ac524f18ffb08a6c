package schema

import (
	"bytes"
	"encoding/json"
	"testing"
)

func decodeDoc(t *testing.T, raw string) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("failed to decode test document: %v", err)
	}
	return doc
}

func TestNormalizeItemGroupsFlatFields(t *testing.T) {
	doc := decodeDoc(t, `{
		"id": "1b9d6bcd",
		"category": "shoes",
		"subcategory": "boots",
		"colour": "black",
		"material": "leather",
		"secondary_material": "suede",
		"metadata": {"sync": {"unsynced": false}}
	}`)

	if !NormalizeItem(doc) {
		t.Fatal("NormalizeItem() = false on a flat v1 document")
	}

	category, ok := doc["category"].(map[string]any)
	if !ok {
		t.Fatalf("category = %T, want nested pair", doc["category"])
	}
	if category["primary"] != "shoes" || category["secondary"] != "boots" {
		t.Errorf("category = %v, want {shoes boots}", category)
	}

	colour := doc["colour"].(map[string]any)
	if colour["primary"] != "black" {
		t.Errorf("colour.primary = %v, want black", colour["primary"])
	}
	if colour["secondary"] != nil {
		t.Errorf("colour.secondary = %v, want null default", colour["secondary"])
	}

	material := doc["material"].(map[string]any)
	if material["primary"] != "leather" || material["secondary"] != "suede" {
		t.Errorf("material = %v, want {leather suede}", material)
	}

	for _, alias := range []string{"subcategory", "secondary_colour", "secondary_material"} {
		if _, ok := doc[alias]; ok {
			t.Errorf("flat alias %q survived grouping", alias)
		}
	}

	if docVersion(doc) != CurrentSchemaVersion {
		t.Errorf("schema_version = %d, want %d", docVersion(doc), CurrentSchemaVersion)
	}

	// Grouping alone is a local shape fix; it must not flip the dirty flag.
	sync := doc["metadata"].(map[string]any)["sync"].(map[string]any)
	if sync["unsynced"] != false {
		t.Errorf("grouping changed unsynced to %v", sync["unsynced"])
	}
}

func TestNormalizeItemIdempotent(t *testing.T) {
	docs := []string{
		`{"id": "a", "category": "shoes", "subcategory": "boots", "colour": "black", "material": "leather", "resale_score": 7.5}`,
		`{"id": "b", "schema_version": 2, "colour": {"primary": "red", "secondary": null}, "resale_score": 3}`,
		`{"id": "c", "schema_version": 3, "colour": {"primary": "navy"}}`,
		`{"id": "d"}`,
	}

	for _, raw := range docs {
		doc := decodeDoc(t, raw)
		NormalizeItem(doc)
		first, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("marshal after first pass: %v", err)
		}

		// Round-trip through JSON the way the store does, then re-run.
		reloaded := decodeDoc(t, string(first))
		if NormalizeItem(reloaded) {
			t.Errorf("second NormalizeItem() = true for %s", raw)
		}
		second, err := json.Marshal(reloaded)
		if err != nil {
			t.Fatalf("marshal after second pass: %v", err)
		}
		if !bytes.Equal(first, second) {
			t.Errorf("normalization not byte-stable:\n first: %s\nsecond: %s", first, second)
		}
	}
}

func TestNormalizeItemStripsResaleScore(t *testing.T) {
	doc := decodeDoc(t, `{
		"id": "black-wool-coat",
		"schema_version": 2,
		"colour": {"primary": "black", "secondary": null},
		"resale_score": 8.2,
		"metadata": {"sync": {"unsynced": false, "synced_at": "2026-01-04T10:00:00Z"}}
	}`)

	if !NormalizeItem(doc) {
		t.Fatal("NormalizeItem() = false on a v2 document with resale_score")
	}
	if _, ok := doc["resale_score"]; ok {
		t.Error("resale_score survived the strip")
	}

	sync := doc["metadata"].(map[string]any)["sync"].(map[string]any)
	if sync["unsynced"] != true {
		t.Error("stripping resale_score must mark the record dirty")
	}
	if _, ok := sync["synced_at"]; ok {
		t.Error("marking dirty must clear synced_at")
	}
}

func TestNormalizeItemRespectsVersionTag(t *testing.T) {
	// A v3 document containing a stray resale_score must not be touched:
	// the tag says the strip already ran.
	doc := decodeDoc(t, `{"id": "x", "schema_version": 3, "colour": {"primary": "tan"}, "resale_score": 1}`)
	if NormalizeItem(doc) {
		t.Error("NormalizeItem() = true on a document already at the current version")
	}
	if _, ok := doc["resale_score"]; !ok {
		t.Error("normalizer re-ran a migration on a tagged document")
	}
}

func TestNormalizeItemUntaggedButGrouped(t *testing.T) {
	// Old builds wrote grouped documents without a version tag. The shape
	// discriminator must keep grouping from running twice.
	doc := decodeDoc(t, `{
		"id": "y",
		"category": {"primary": "tops", "secondary": "sweater"},
		"colour": {"primary": "cream", "secondary": null},
		"material": {"primary": "cashmere", "secondary": null}
	}`)

	if !NormalizeItem(doc) {
		t.Fatal("NormalizeItem() = false, want true for the version stamp alone")
	}
	category := doc["category"].(map[string]any)
	if category["primary"] != "tops" {
		t.Errorf("grouped document was regrouped: %v", doc["category"])
	}
	if docVersion(doc) != CurrentSchemaVersion {
		t.Errorf("schema_version = %d, want %d", docVersion(doc), CurrentSchemaVersion)
	}
}

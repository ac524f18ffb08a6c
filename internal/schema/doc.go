// Package schema defines the record types and document transforms for the
// scrounger inventory store.
//
// # Overview
//
// Inventory records are stored as JSON documents. This package owns the Go
// view of those documents (Item, Attachment, Store) plus everything that has
// to understand their raw map form: shape normalization between schema
// versions, deep-merge patching, and slug derivation.
//
// # Schema Versions
//
// Each item document carries a schema_version tag written by the normalizer:
//
//   - v1 (untagged): flat category/subcategory, colour/secondary_colour,
//     material/secondary_material string fields
//   - v2: the six flat fields grouped into category/colour/material pairs,
//     each {"primary": ..., "secondary": ...}
//   - v3: deprecated resale_score computed field removed
//
// NormalizeItem applies every step a document still needs and is idempotent:
// re-running it on current-version documents changes nothing.
//
// # Identifiers
//
// Item IDs are human-readable slugs derived from colour, material, and
// category ("black-wool-coat") when those fields are present, otherwise short
// random hex tokens. See DeriveSlug and NewToken.
package schema

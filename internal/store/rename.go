package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vanastassiou/scrounger-sub002/internal/schema"
)

// RenameItem changes an item's primary key and cascades to its attachments,
// all in one transaction. The renamed item and every repointed attachment
// come out dirty, and attachments lose their remote file identity so the
// next sync re-uploads them into the new item folder.
//
// Archived items cannot be renamed; their slugs are frozen at sale time.
func (s *Store) RenameItem(ctx context.Context, oldID, newID string) (*schema.Item, error) {
	if newID == "" {
		return nil, fmt.Errorf("new item id is required")
	}
	if newID == oldID {
		return nil, fmt.Errorf("item %q: new id equals old id: %w", oldID, ErrInvalidState)
	}

	var renamed *schema.Item
	var repointed int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		raw, err := itemDocTx(tx, "inventory", oldID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				if archived, aerr := rowExists(tx, "archive", oldID); aerr == nil && archived {
					return fmt.Errorf("item %q is archived and cannot be renamed: %w", oldID, ErrInvalidState)
				}
			}
			return err
		}

		for _, table := range []string{"inventory", "archive"} {
			exists, err := rowExists(tx, table, newID)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("item %q: %w", newID, ErrExists)
			}
		}

		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to decode item %q: %w", oldID, err)
		}
		doc["id"] = newID
		schema.TouchDoc(doc, s.now())

		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode item %q: %w", newID, err)
		}
		var item schema.Item
		if err := json.Unmarshal(data, &item); err != nil {
			return fmt.Errorf("failed to decode item %q: %w", newID, err)
		}

		// Delete + insert rather than UPDATE ... SET id: the row moves to
		// a new primary key.
		if _, err := tx.Exec("DELETE FROM inventory WHERE id = ?", oldID); err != nil {
			return fmt.Errorf("failed to remove item %q: %w", oldID, err)
		}
		if err := insertItemDocTx(tx, "inventory", &item, data); err != nil {
			return err
		}

		res, err := tx.Exec(
			"UPDATE attachments SET item_id = ?, synced = 0, drive_file_id = NULL WHERE item_id = ?",
			newID, oldID,
		)
		if err != nil {
			return fmt.Errorf("failed to repoint attachments of %q: %w", oldID, err)
		}
		repointed, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to repoint attachments of %q: %w", oldID, err)
		}

		renamed = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("renamed item %s -> %s (%d attachments repointed)", oldID, newID, repointed)
	s.notify()
	return renamed, nil
}

// RefreshItemID re-derives the slug after descriptive fields changed and
// renames the item when the slug no longer matches. Returns the item's
// current ID. When descriptive fields are still missing the derivation
// error names each absent field so the caller can prompt for them.
func (s *Store) RefreshItemID(ctx context.Context, id string) (string, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return "", err
	}

	slug, err := schema.DeriveSlug(item)
	if err != nil {
		return "", fmt.Errorf("item %q: %w", id, err)
	}
	if slug == id {
		return id, nil
	}

	if _, err := s.RenameItem(ctx, id, slug); err != nil {
		return "", err
	}
	return slug, nil
}

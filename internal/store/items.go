package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanastassiou/scrounger-sub002/internal/schema"
)

// maxSlugSuffix bounds the collision loop in CreateItem. Ten coats of the
// same colour, wool, and cut is a lot of coats.
const maxSlugSuffix = 9

// AddItem inserts a new inventory item under its existing ID. It fails with
// ErrExists when the ID is taken in either the inventory or the archive:
// attachments reference items across both, so IDs are unique across both.
func (s *Store) AddItem(ctx context.Context, item *schema.Item) error {
	item.SetDefaults(s.now())
	if err := item.Validate(); err != nil {
		return fmt.Errorf("invalid item: %w", err)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"inventory", "archive"} {
			exists, err := rowExists(tx, table, item.ID)
			if err != nil {
				return err
			}
			if exists {
				return fmt.Errorf("item %q: %w", item.ID, ErrExists)
			}
		}
		return insertItemTx(tx, "inventory", item)
	})
	if err != nil {
		return err
	}
	s.logger.Printf("added item %s", item.ID)
	s.notify()
	return nil
}

// CreateItem assigns an ID and inserts the item. The ID is the derived slug
// when colour, material, and category allow it, suffixed -2, -3, ... on
// collision; items missing those fields get a random token instead.
func (s *Store) CreateItem(ctx context.Context, item *schema.Item) (string, error) {
	base := item.ID
	if base == "" {
		base = schema.ItemID(item)
	}

	item.ID = base
	err := s.AddItem(ctx, item)
	for n := 2; errors.Is(err, ErrExists) && n <= maxSlugSuffix; n++ {
		item.ID = fmt.Sprintf("%s-%d", base, n)
		err = s.AddItem(ctx, item)
	}
	if err != nil {
		return "", err
	}
	return item.ID, nil
}

// GetItem loads an active inventory item.
func (s *Store) GetItem(ctx context.Context, id string) (*schema.Item, error) {
	return s.getItemFrom(ctx, "inventory", id)
}

// FindItem looks for the item in the inventory first, then the archive.
// The second return names the collection it was found in.
func (s *Store) FindItem(ctx context.Context, id string) (*schema.Item, string, error) {
	for _, table := range []string{"inventory", "archive"} {
		item, err := s.getItemFrom(ctx, table, id)
		if err == nil {
			return item, table, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("item %q: %w", id, ErrNotFound)
}

// PutItem replaces an inventory item wholesale, inserting when absent.
// The dirty flag is set either way.
func (s *Store) PutItem(ctx context.Context, item *schema.Item) error {
	item.SetDefaults(s.now())
	item.Touch(s.now())
	if err := item.Validate(); err != nil {
		return fmt.Errorf("invalid item: %w", err)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := rowExists(tx, "inventory", item.ID)
		if err != nil {
			return err
		}
		if exists {
			return updateItemTx(tx, "inventory", item)
		}
		return insertItemTx(tx, "inventory", item)
	})
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// UpdateItem applies a merge patch to the stored document. Unknown fields
// already in the document survive; the patch cannot change the item's ID.
// Returns the item after the patch.
func (s *Store) UpdateItem(ctx context.Context, id string, patch map[string]any) (*schema.Item, error) {
	var updated *schema.Item
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		raw, err := itemDocTx(tx, "inventory", id)
		if err != nil {
			return err
		}

		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to decode item %q: %w", id, err)
		}

		schema.MergePatch(doc, patch)
		schema.NormalizeItem(doc)
		doc["id"] = id
		schema.TouchDoc(doc, s.now())

		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode item %q: %w", id, err)
		}

		var item schema.Item
		if err := json.Unmarshal(data, &item); err != nil {
			return fmt.Errorf("patch produced an unreadable item %q: %w", id, err)
		}
		if err := item.Validate(); err != nil {
			return fmt.Errorf("patch produced an invalid item %q: %w", id, err)
		}

		updated = &item
		return writeItemDocTx(tx, "inventory", &item, data)
	})
	if err != nil {
		return nil, err
	}
	s.notify()
	return updated, nil
}

// DeleteItem removes an item from the active inventory. Its attachments go
// with it.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.Exec("DELETE FROM inventory WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete item %q: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete item %q: %w", id, err)
		}
		if n == 0 {
			return fmt.Errorf("item %q: %w", id, ErrNotFound)
		}
		if _, err := tx.Exec("DELETE FROM attachments WHERE item_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete attachments of %q: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Printf("deleted item %s", id)
	s.notify()
	return nil
}

// ItemFilter selects inventory items by the indexed columns. Zero fields
// match everything.
type ItemFilter struct {
	Status   schema.Status
	Brand    string
	Category string // category.primary
	StoreID  string
	Unsynced *bool
}

// ListItems returns active inventory items matching the filter, most
// recently updated first.
func (s *Store) ListItems(ctx context.Context, filter ItemFilter) ([]*schema.Item, error) {
	query := "SELECT data FROM inventory WHERE 1=1"
	var args []any
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Brand != "" {
		query += " AND brand = ?"
		args = append(args, filter.Brand)
	}
	if filter.Category != "" {
		query += " AND category = ?"
		args = append(args, filter.Category)
	}
	if filter.StoreID != "" {
		query += " AND store_id = ?"
		args = append(args, filter.StoreID)
	}
	if filter.Unsynced != nil {
		query += " AND unsynced = ?"
		args = append(args, *filter.Unsynced)
	}
	query += " ORDER BY updated_at DESC"

	return s.queryItems(ctx, query, args...)
}

// PromoteItem advances a sourced item to prepped. Listing and selling carry
// extra details and have their own operations.
func (s *Store) PromoteItem(ctx context.Context, id string) (*schema.Item, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	switch item.Metadata.Status {
	case schema.StatusSourced:
		item.Metadata.Status = schema.StatusPrepped
	case schema.StatusKeep:
		return nil, fmt.Errorf("item %q is kept, not in the pipeline: %w", id, ErrInvalidState)
	case schema.StatusSold:
		return nil, fmt.Errorf("item %q is already sold: %w", id, ErrInvalidState)
	case schema.StatusPrepped:
		return nil, fmt.Errorf("item %q needs listing details to advance: %w", id, ErrInvalidState)
	case schema.StatusListed:
		return nil, fmt.Errorf("item %q needs sale details to advance: %w", id, ErrInvalidState)
	default:
		return nil, fmt.Errorf("item %q has status %q: %w", id, item.Metadata.Status, ErrInvalidState)
	}

	item.Touch(s.now())
	if err := s.writeInventoryItem(ctx, item); err != nil {
		return nil, err
	}
	s.notify()
	return item, nil
}

// ListingDetails describes where an item went live.
type ListingDetails struct {
	Platform string
	URL      string
	ListedAt time.Time
}

// MarkItemListed moves a sourced or prepped item to listed.
func (s *Store) MarkItemListed(ctx context.Context, id string, details ListingDetails) (*schema.Item, error) {
	if details.Platform == "" {
		return nil, fmt.Errorf("listing platform is required")
	}
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	switch item.Metadata.Status {
	case schema.StatusSourced, schema.StatusPrepped, schema.StatusListed:
	default:
		return nil, fmt.Errorf("item %q has status %q, cannot list: %w", id, item.Metadata.Status, ErrInvalidState)
	}

	listedAt := details.ListedAt
	if listedAt.IsZero() {
		listedAt = s.now()
	}
	listedAt = listedAt.UTC()

	item.Metadata.Status = schema.StatusListed
	item.Listing.Platform = details.Platform
	item.Listing.URL = details.URL
	item.Listing.ListedAt = &listedAt
	item.Touch(s.now())

	if err := s.writeInventoryItem(ctx, item); err != nil {
		return nil, err
	}
	s.notify()
	return item, nil
}

// SaleDetails closes out a listing.
type SaleDetails struct {
	SoldPrice    decimal.Decimal
	Fees         *decimal.Decimal
	ShippingCost *decimal.Decimal
	Platform     string
	SoldAt       time.Time
}

// SellItem completes the pipeline: the item is stamped sold and moved from
// the inventory to the archive in one transaction. Its attachments stay in
// the attachments collection under the same item ID.
func (s *Store) SellItem(ctx context.Context, id string, sale SaleDetails) (*schema.Item, error) {
	var sold *schema.Item
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		raw, err := itemDocTx(tx, "inventory", id)
		if err != nil {
			return err
		}
		var item schema.Item
		if err := json.Unmarshal(raw, &item); err != nil {
			return fmt.Errorf("failed to decode item %q: %w", id, err)
		}
		if item.Metadata.Status == schema.StatusSold {
			return fmt.Errorf("item %q is already sold: %w", id, ErrInvalidState)
		}

		soldAt := sale.SoldAt
		if soldAt.IsZero() {
			soldAt = s.now()
		}
		soldAt = soldAt.UTC()

		item.Metadata.Status = schema.StatusSold
		item.Listing.SoldAt = &soldAt
		price := sale.SoldPrice
		item.Listing.SoldPrice = &price
		item.Listing.Fees = sale.Fees
		item.Listing.ShippingCost = sale.ShippingCost
		if sale.Platform != "" {
			item.Listing.Platform = sale.Platform
		}
		item.Touch(s.now())
		if err := item.Validate(); err != nil {
			return fmt.Errorf("invalid sale for item %q: %w", id, err)
		}

		if _, err := tx.Exec("DELETE FROM inventory WHERE id = ?", id); err != nil {
			return fmt.Errorf("failed to remove item %q from inventory: %w", id, err)
		}
		if err := insertItemTx(tx, "archive", &item); err != nil {
			return err
		}
		sold = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Printf("sold item %s for %s", id, sale.SoldPrice)
	s.notify()
	return sold, nil
}

// ===== document plumbing =====

func (s *Store) getItemFrom(ctx context.Context, table, id string) (*schema.Item, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM "+table+" WHERE id = ?", id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item %q: %w", id, err)
	}
	var item schema.Item
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("failed to decode item %q: %w", id, err)
	}
	return &item, nil
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]*schema.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*schema.Item
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		var item schema.Item
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to decode item row: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// writeInventoryItem persists a loaded-and-modified item in its own
// transaction.
func (s *Store) writeInventoryItem(ctx context.Context, item *schema.Item) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return updateItemTx(tx, "inventory", item)
	})
}

func itemDocTx(tx *sql.Tx, table, id string) ([]byte, error) {
	var raw []byte
	err := tx.QueryRow("SELECT data FROM "+table+" WHERE id = ?", id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item %q: %w", id, err)
	}
	return raw, nil
}

func insertItemTx(tx *sql.Tx, table string, item *schema.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode item %q: %w", item.ID, err)
	}
	return insertItemDocTx(tx, table, item, data)
}

func insertItemDocTx(tx *sql.Tx, table string, item *schema.Item, data []byte) error {
	_, err := tx.Exec(
		"INSERT INTO "+table+" (id, data, status, brand, category, store_id, unsynced, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		item.ID, data, string(item.Metadata.Status), item.Brand, item.Category.Primary,
		item.Metadata.Acquisition.StoreID, item.Metadata.Sync.Unsynced,
		item.Metadata.Updated.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert item %q into %s: %w", item.ID, table, err)
	}
	return nil
}

func updateItemTx(tx *sql.Tx, table string, item *schema.Item) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode item %q: %w", item.ID, err)
	}
	return writeItemDocTx(tx, table, item, data)
}

// writeItemDocTx persists pre-encoded document bytes, refreshing the
// extracted index columns from the typed view.
func writeItemDocTx(tx *sql.Tx, table string, item *schema.Item, data []byte) error {
	res, err := tx.Exec(
		"UPDATE "+table+" SET data = ?, status = ?, brand = ?, category = ?, store_id = ?, unsynced = ?, updated_at = ? WHERE id = ?",
		data, string(item.Metadata.Status), item.Brand, item.Category.Primary,
		item.Metadata.Acquisition.StoreID, item.Metadata.Sync.Unsynced,
		item.Metadata.Updated.UTC().Format(time.RFC3339Nano), item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update item %q in %s: %w", item.ID, table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update item %q in %s: %w", item.ID, table, err)
	}
	if n == 0 {
		return fmt.Errorf("item %q: %w", item.ID, ErrNotFound)
	}
	return nil
}

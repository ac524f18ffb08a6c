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

// AddStore inserts a sourcing location. A missing ID gets a token.
func (s *Store) AddStore(ctx context.Context, rec *schema.Store) error {
	if rec.ID == "" {
		rec.ID = schema.NewToken()
	}
	rec.SetDefaults(s.now())
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid store: %w", err)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := rowExists(tx, "stores", rec.ID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("store %q: %w", rec.ID, ErrExists)
		}
		return upsertStoreTx(tx, rec, true)
	})
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// GetStore loads one sourcing location.
func (s *Store) GetStore(ctx context.Context, id string) (*schema.Store, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM stores WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load store %q: %w", id, err)
	}
	var rec schema.Store
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode store %q: %w", id, err)
	}
	return &rec, nil
}

// PutStore replaces a sourcing location, inserting when absent.
func (s *Store) PutStore(ctx context.Context, rec *schema.Store) error {
	rec.SetDefaults(s.now())
	rec.Touch(s.now())
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid store: %w", err)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := rowExists(tx, "stores", rec.ID)
		if err != nil {
			return err
		}
		return upsertStoreTx(tx, rec, !exists)
	})
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// DeleteStore removes a sourcing location. Items that referenced it keep
// their store_id; it simply stops resolving.
func (s *Store) DeleteStore(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM stores WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete store %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete store %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("store %q: %w", id, ErrNotFound)
	}
	s.notify()
	return nil
}

// ListStores returns every sourcing location sorted by name.
func (s *Store) ListStores(ctx context.Context) ([]*schema.Store, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM stores ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	defer rows.Close()

	var recs []*schema.Store
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan store row: %w", err)
		}
		var rec schema.Store
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode store row: %w", err)
		}
		recs = append(recs, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}
	return recs, nil
}

func upsertStoreTx(tx *sql.Tx, rec *schema.Store, insert bool) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode store %q: %w", rec.ID, err)
	}
	updated := rec.Updated.UTC().Format(time.RFC3339Nano)
	if insert {
		_, err = tx.Exec("INSERT INTO stores (id, data, name, unsynced, updated_at) VALUES (?, ?, ?, ?, ?)",
			rec.ID, data, rec.Name, rec.Sync.Unsynced, updated)
	} else {
		_, err = tx.Exec("UPDATE stores SET data = ?, name = ?, unsynced = ?, updated_at = ? WHERE id = ?",
			data, rec.Name, rec.Sync.Unsynced, updated, rec.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to write store %q: %w", rec.ID, err)
	}
	return nil
}

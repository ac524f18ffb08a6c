package store

import (
	"context"
	"fmt"

	"github.com/vanastassiou/scrounger-sub002/internal/schema"
)

// GetArchivedItem loads a sold item from the archive.
func (s *Store) GetArchivedItem(ctx context.Context, id string) (*schema.Item, error) {
	return s.getItemFrom(ctx, "archive", id)
}

// ListArchive returns sold items, most recently updated first.
func (s *Store) ListArchive(ctx context.Context) ([]*schema.Item, error) {
	return s.queryItems(ctx, "SELECT data FROM archive ORDER BY updated_at DESC")
}

// CountByStatus tallies active inventory by pipeline status.
func (s *Store) CountByStatus(ctx context.Context) (map[schema.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM inventory GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count inventory: %w", err)
	}
	defer rows.Close()

	counts := make(map[schema.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to count inventory: %w", err)
		}
		counts[schema.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to count inventory: %w", err)
	}
	return counts, nil
}

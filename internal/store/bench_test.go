package store

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/vanastassiou/scrounger-sub002/internal/db"
)

// newBenchStore opens an on-disk store so benchmarks see real SQLite I/O,
// not the in-memory fast path the unit tests use.
func newBenchStore(b *testing.B) *Store {
	b.Helper()
	sqldb, err := db.Open(filepath.Join(b.TempDir(), "bench.db"), log.New(io.Discard, "", 0))
	if err != nil {
		b.Fatalf("Open() failed: %v", err)
	}
	b.Cleanup(func() { sqldb.Close() })
	return New(sqldb, log.New(io.Discard, "", 0))
}

func seedBenchItems(b *testing.B, s *Store, n int) {
	b.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		item := testItem("black", "wool", "coat")
		item.ID = fmt.Sprintf("bench-seed-%d", i)
		if err := s.AddItem(ctx, item); err != nil {
			b.Fatalf("AddItem() failed: %v", err)
		}
	}
}

func BenchmarkAddItem(b *testing.B) {
	s := newBenchStore(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		item := testItem("black", "wool", "coat")
		item.ID = fmt.Sprintf("bench-add-%d", i)
		if err := s.AddItem(ctx, item); err != nil {
			b.Fatalf("AddItem() failed: %v", err)
		}
	}
}

func BenchmarkListItems(b *testing.B) {
	s := newBenchStore(b)
	seedBenchItems(b, s, 500)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		items, err := s.ListItems(ctx, ItemFilter{Brand: "Pendleton"})
		if err != nil {
			b.Fatalf("ListItems() failed: %v", err)
		}
		if len(items) != 500 {
			b.Fatalf("ListItems() returned %d items, want 500", len(items))
		}
	}
}

func BenchmarkExport(b *testing.B) {
	s := newBenchStore(b)
	seedBenchItems(b, s, 500)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		snap, err := s.Export(ctx)
		if err != nil {
			b.Fatalf("Export() failed: %v", err)
		}
		if _, err := snap.Encode(); err != nil {
			b.Fatalf("Encode() failed: %v", err)
		}
	}
}

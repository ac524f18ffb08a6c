package store

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vanastassiou/scrounger-sub002/internal/db"
	"github.com/vanastassiou/scrounger-sub002/internal/schema"
)

// newTestStore opens an in-memory store with a deterministic clock that
// advances one second per call.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(db.NewTestDB(t), log.New(io.Discard, "", 0))

	tick := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return s
}

func testItem(colour, material, secondary string) *schema.Item {
	return &schema.Item{
		Brand:    "Pendleton",
		Category: categoryPair(secondary),
		Colour:   schema.Pair{Primary: colour},
		Material: schema.Pair{Primary: material},
		Pricing: schema.Pricing{
			EstimatedResaleValue:   decimal.NewFromInt(60),
			MinimumAcceptablePrice: decimal.NewFromInt(25),
		},
	}
}

func categoryPair(secondary string) schema.Pair {
	primaries := map[string]string{
		"coat": "outerwear", "boots": "shoes", "jeans": "bottoms", "sweater": "tops",
	}
	return schema.Pair{Primary: primaries[secondary], Secondary: secondary}
}

func mustCreate(t *testing.T, s *Store, item *schema.Item) string {
	t.Helper()
	id, err := s.CreateItem(context.Background(), item)
	if err != nil {
		t.Fatalf("CreateItem() error = %v", err)
	}
	return id
}

func mustAttach(t *testing.T, s *Store, itemID, filename string) *schema.Attachment {
	t.Helper()
	att := &schema.Attachment{
		ItemID:   itemID,
		Filename: filename,
		MimeType: "image/jpeg",
		Data:     []byte("jpeg bytes"),
	}
	if err := s.AddAttachment(context.Background(), att); err != nil {
		t.Fatalf("AddAttachment(%s) error = %v", filename, err)
	}
	return att
}

func TestOnChangeNotifications(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	fired := 0
	s.OnChange(func() { fired++ })

	id := mustCreate(t, s, testItem("black", "wool", "coat"))
	if fired != 1 {
		t.Fatalf("notifications after create = %d, want 1", fired)
	}

	if _, err := s.UpdateItem(ctx, id, map[string]any{"brand": "Filson"}); err != nil {
		t.Fatalf("UpdateItem() error = %v", err)
	}
	if fired != 2 {
		t.Fatalf("notifications after update = %d, want 2", fired)
	}

	// Sync bookkeeping must stay silent: it would otherwise retrigger the
	// debounce it just serviced.
	snap, err := s.Export(ctx)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if err := s.MarkSnapshotSynced(ctx, snap, time.Now()); err != nil {
		t.Fatalf("MarkSnapshotSynced() error = %v", err)
	}
	if fired != 2 {
		t.Errorf("notifications after bookkeeping = %d, want 2", fired)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id := mustCreate(t, s, testItem("black", "wool", "coat"))
	mustAttach(t, s, id, "photo_front.jpg")

	if err := s.Clear(ctx, "inventory"); err != nil {
		t.Fatalf("Clear(inventory) error = %v", err)
	}
	items, err := s.ListItems(ctx, ItemFilter{})
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items after clear = %d, want 0", len(items))
	}

	// Other collections are untouched.
	count, err := s.CountAttachments(ctx)
	if err != nil {
		t.Fatalf("CountAttachments() error = %v", err)
	}
	if count != 1 {
		t.Errorf("attachments after clearing inventory = %d, want 1", count)
	}

	if err := s.Clear(ctx, "sessions"); err == nil {
		t.Error("Clear() accepted an unknown collection")
	}
}

func TestConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	// Real clock here: the deterministic test clock is not safe across
	// goroutines.
	s := New(db.NewTestDB(t), log.New(io.Discard, "", 0))

	const writers = 4
	const perWriter = 10

	errCh := make(chan error, writers)
	for w := 0; w < writers; w++ {
		go func(w int) {
			for i := 0; i < perWriter; i++ {
				item := testItem("black", "wool", "coat")
				item.ID = fmt.Sprintf("writer%d-item%d", w, i)
				if err := s.AddItem(ctx, item); err != nil {
					errCh <- err
					return
				}
			}
			errCh <- nil
		}(w)
	}
	for w := 0; w < writers; w++ {
		if err := <-errCh; err != nil {
			t.Errorf("concurrent writer failed: %v", err)
		}
	}

	items, err := s.ListItems(ctx, ItemFilter{})
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	if len(items) != writers*perWriter {
		t.Errorf("items = %d, want %d (no lost writes)", len(items), writers*perWriter)
	}
}

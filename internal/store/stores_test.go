package store

import (
	"context"
	"errors"
	"testing"

	"github.com/vanastassiou/scrounger-sub002/internal/schema"
)

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := &schema.Store{Name: "Goodwill Bins Hastings", Tier: "bins"}
	if err := s.AddStore(ctx, rec); err != nil {
		t.Fatalf("AddStore() error = %v", err)
	}
	if rec.ID == "" {
		t.Fatal("AddStore() left ID empty")
	}
	if !rec.Sync.Unsynced {
		t.Error("new store must start dirty")
	}

	if err := s.AddStore(ctx, &schema.Store{ID: rec.ID, Name: "Dup"}); !errors.Is(err, ErrExists) {
		t.Fatalf("AddStore(duplicate) error = %v, want ErrExists", err)
	}

	got, err := s.GetStore(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetStore() error = %v", err)
	}
	if got.Name != "Goodwill Bins Hastings" || got.Tier != "bins" {
		t.Errorf("GetStore() = %+v", got)
	}

	got.Notes = "half-off Tuesdays"
	if err := s.PutStore(ctx, got); err != nil {
		t.Fatalf("PutStore() error = %v", err)
	}
	again, err := s.GetStore(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetStore() error = %v", err)
	}
	if again.Notes != "half-off Tuesdays" {
		t.Errorf("notes = %q after update", again.Notes)
	}

	if err := s.AddStore(ctx, &schema.Store{Name: "Value Village Fraser"}); err != nil {
		t.Fatalf("AddStore() error = %v", err)
	}
	all, err := s.ListStores(ctx)
	if err != nil {
		t.Fatalf("ListStores() error = %v", err)
	}
	if len(all) != 2 || all[0].Name != "Goodwill Bins Hastings" {
		t.Errorf("ListStores() = %d entries, want 2 sorted by name", len(all))
	}

	if err := s.DeleteStore(ctx, rec.ID); err != nil {
		t.Fatalf("DeleteStore() error = %v", err)
	}
	if _, err := s.GetStore(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetStore(deleted) error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteStore(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteStore(missing) error = %v, want ErrNotFound", err)
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.GetSetting(ctx, SettingLastSyncAt); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetSetting(absent) error = %v, want ErrNotFound", err)
	}

	if err := s.SetSetting(ctx, SettingLastSyncAt, "2026-03-10T12:00:00Z"); err != nil {
		t.Fatalf("SetSetting() error = %v", err)
	}
	if err := s.SetSetting(ctx, SettingLastSyncAt, "2026-03-11T09:30:00Z"); err != nil {
		t.Fatalf("SetSetting(overwrite) error = %v", err)
	}

	got, err := s.GetSetting(ctx, SettingLastSyncAt)
	if err != nil {
		t.Fatalf("GetSetting() error = %v", err)
	}
	if got != "2026-03-11T09:30:00Z" {
		t.Errorf("GetSetting() = %q, want latest write", got)
	}

	if err := s.DeleteSetting(ctx, SettingLastSyncAt); err != nil {
		t.Fatalf("DeleteSetting() error = %v", err)
	}
	if _, err := s.GetSetting(ctx, SettingLastSyncAt); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSetting(deleted) error = %v, want ErrNotFound", err)
	}
}

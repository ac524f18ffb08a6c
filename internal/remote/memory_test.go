package remote

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestMemoryFolderLifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	root, err := m.EnsureFolder(ctx, "", "scrounger")
	if err != nil {
		t.Fatalf("EnsureFolder() error = %v", err)
	}
	again, err := m.EnsureFolder(ctx, "", "scrounger")
	if err != nil {
		t.Fatalf("EnsureFolder(repeat) error = %v", err)
	}
	if again != root {
		t.Errorf("EnsureFolder() returned new ID %s, want existing %s", again, root)
	}

	sub, err := m.EnsureFolder(ctx, root, "black-wool-coat")
	if err != nil {
		t.Fatalf("EnsureFolder(child) error = %v", err)
	}

	id, err := m.Upload(ctx, sub, "photo_front.jpg", "image/jpeg", []byte("bytes"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	files, err := m.ListFolder(ctx, sub)
	if err != nil {
		t.Fatalf("ListFolder() error = %v", err)
	}
	if len(files) != 1 || files[0].ID != id || files[0].Name != "photo_front.jpg" {
		t.Fatalf("ListFolder() = %+v", files)
	}

	found, err := m.FindFile(ctx, sub, "photo_front.jpg")
	if err != nil {
		t.Fatalf("FindFile() error = %v", err)
	}
	if found.ID != id {
		t.Errorf("FindFile() ID = %s, want %s", found.ID, id)
	}

	if _, err := m.FindFile(ctx, sub, "absent.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindFile(absent) error = %v, want ErrNotFound", err)
	}
}

func TestMemoryUploadDownloadUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.Upload(ctx, "", "snapshot.json", "application/json", []byte(`{"v":1}`))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	data, err := m.Download(ctx, id)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !bytes.Equal(data, []byte(`{"v":1}`)) {
		t.Errorf("Download() = %s", data)
	}

	if err := m.Update(ctx, id, []byte(`{"v":2}`)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	data, err = m.Download(ctx, id)
	if err != nil {
		t.Fatalf("Download() after update error = %v", err)
	}
	if !bytes.Equal(data, []byte(`{"v":2}`)) {
		t.Errorf("Update() did not replace content: %s", data)
	}

	if err := m.Update(ctx, "mem-9999", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(absent) error = %v, want ErrNotFound", err)
	}

	if err := m.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := m.Download(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Download(deleted) error = %v, want ErrNotFound", err)
	}
	if err := m.Delete(ctx, id); err != nil {
		t.Errorf("Delete(absent) error = %v, want nil", err)
	}
}

func TestMemoryErrorInjection(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	boom := errors.New("remote is down")

	m.SetError(boom)
	if _, err := m.Upload(ctx, "", "x", "text/plain", nil); !errors.Is(err, boom) {
		t.Fatalf("Upload() with injected error = %v, want %v", err, boom)
	}

	m.SetError(nil)
	if _, err := m.Upload(ctx, "", "x", "text/plain", nil); err != nil {
		t.Fatalf("Upload() after clearing error = %v", err)
	}
}

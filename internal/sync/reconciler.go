package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/vanastassiou/scrounger-sub002/internal/remote"
	"github.com/vanastassiou/scrounger-sub002/internal/store"
)

// SnapshotFilename is the well-known name of the snapshot document inside
// the configured remote folder. Every device reads and overwrites the same
// file: whole-document last-writer-wins.
const SnapshotFilename = "scrounger-snapshot.json"

// Reconciler moves the whole-store snapshot to and from the remote folder.
type Reconciler struct {
	client remote.Client
	logger *log.Logger
}

// NewReconciler wraps a remote client. A nil logger defaults to stderr.
func NewReconciler(client remote.Client, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Reconciler{
		client: client,
		logger: logger,
	}
}

// Push uploads the snapshot into the folder, overwriting the existing
// document or creating it on first push. fileID is the remembered remote
// identity from a previous push; pass "" to look the document up by name.
// Returns the document's current remote identity.
func (r *Reconciler) Push(ctx context.Context, folderID, fileID string, snap *store.Snapshot) (string, error) {
	data, err := snap.Encode()
	if err != nil {
		return "", err
	}

	if fileID != "" {
		err := r.client.Update(ctx, fileID, data)
		if err == nil {
			r.logger.Printf("pushed snapshot (%d items, %d archived, %d stores, %d bytes)",
				len(snap.Inventory), len(snap.Archive), len(snap.Stores), len(data))
			return fileID, nil
		}
		if !errors.Is(err, remote.ErrNotFound) {
			return "", fmt.Errorf("failed to push snapshot: %w", err)
		}
		// The remembered file is gone (deleted remotely, or the folder
		// changed). Fall through and find or create it by name.
	}

	existing, err := r.client.FindFile(ctx, folderID, SnapshotFilename)
	switch {
	case err == nil:
		if err := r.client.Update(ctx, existing.ID, data); err != nil {
			return "", fmt.Errorf("failed to push snapshot: %w", err)
		}
		fileID = existing.ID
	case errors.Is(err, remote.ErrNotFound):
		fileID, err = r.client.Upload(ctx, folderID, SnapshotFilename, "application/json", data)
		if err != nil {
			return "", fmt.Errorf("failed to create snapshot: %w", err)
		}
	default:
		return "", fmt.Errorf("failed to locate snapshot: %w", err)
	}

	r.logger.Printf("pushed snapshot (%d items, %d archived, %d stores, %d bytes)",
		len(snap.Inventory), len(snap.Archive), len(snap.Stores), len(data))
	return fileID, nil
}

// Fetch downloads the snapshot document from the folder and returns its
// bytes, ready for store.Import. A missing document returns (nil, nil):
// the folder simply has nothing to restore yet.
//
// Two legacy wire shapes are unwrapped for backward compatibility: early
// builds pushed {"data": <document>} (with "data": null before the first
// push), later ones the bare document. Import handles the rest of the
// envelope variations.
func (r *Reconciler) Fetch(ctx context.Context, folderID string) ([]byte, error) {
	existing, err := r.client.FindFile(ctx, folderID, SnapshotFilename)
	if errors.Is(err, remote.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to locate snapshot: %w", err)
	}

	raw, err := r.client.Download(ctx, existing.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}

	doc, err := unwrapSnapshot(raw)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	r.logger.Printf("fetched snapshot (%d bytes)", len(doc))
	return doc, nil
}

// unwrapSnapshot strips the legacy {"data": ...} wrapper when present.
// A wrapper carrying null data means the writer had nothing to push yet.
func unwrapSnapshot(raw []byte) ([]byte, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot document: %w", err)
	}

	inner, wrapped := probe["data"]
	if !wrapped || len(probe) != 1 {
		return raw, nil
	}
	if string(inner) == "null" {
		return nil, nil
	}
	return inner, nil
}

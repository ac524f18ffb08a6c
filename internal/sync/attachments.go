package sync

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/vanastassiou/scrounger-sub002/internal/remote"
	"github.com/vanastassiou/scrounger-sub002/internal/schema"
	"github.com/vanastassiou/scrounger-sub002/internal/store"
)

// AttachmentSyncer mirrors binary attachments between the local store and
// the remote folder. The remote layout is one folder per item, named after
// the item ID, holding that item's files.
//
// Both directions are best effort: a single file's failure is counted and
// logged, never fatal to the batch. Whatever failed stays unsynced and is
// retried on the next run.
type AttachmentSyncer struct {
	store  *store.Store
	client remote.Client
	logger *log.Logger

	// folderIDs caches item-folder lookups for the process lifetime. The
	// cache is tied to the root folder it was built under and clears
	// itself when folder selection changes.
	mu        sync.Mutex
	rootID    string
	folderIDs map[string]string
}

// NewAttachmentSyncer wires the syncer. A nil logger defaults to stderr.
func NewAttachmentSyncer(st *store.Store, client remote.Client, logger *log.Logger) *AttachmentSyncer {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &AttachmentSyncer{
		store:     st,
		client:    client,
		logger:    logger,
		folderIDs: make(map[string]string),
	}
}

// AttachmentResult tallies one attachment sync phase.
type AttachmentResult struct {
	Uploaded   int
	Downloaded int
	Skipped    int
	Failed     int
	Errors     []string
}

// SyncOutbound uploads every locally-unsynced attachment that has no remote
// identity yet into its item's folder under rootID, recording the returned
// identity and marking the row synced.
//
// The error return is reserved for phase-fatal faults (the local scan
// failing); per-file upload failures land in the result.
func (a *AttachmentSyncer) SyncOutbound(ctx context.Context, rootID string) (*AttachmentResult, error) {
	pending, err := a.store.UnsyncedAttachments(ctx)
	if err != nil {
		return nil, err
	}

	result := &AttachmentResult{}
	for _, att := range pending {
		if att.DriveFileID != "" {
			// Already uploaded under this identity; only the flag is
			// stale. Leave it for the snapshot path to reconcile.
			result.Skipped++
			continue
		}

		folderID, err := a.itemFolder(ctx, rootID, att.ItemID)
		if err != nil {
			a.fileFailed(result, fmt.Sprintf("folder for item %s: %v", att.ItemID, err))
			continue
		}

		fileID, err := a.client.Upload(ctx, folderID, att.Filename, att.MimeType, att.Data)
		if err != nil {
			a.fileFailed(result, fmt.Sprintf("upload %s/%s: %v", att.ItemID, att.Filename, err))
			continue
		}
		if err := a.store.MarkAttachmentSynced(ctx, att.ID, fileID); err != nil {
			// The upload landed but the bookkeeping didn't; the next run
			// re-uploads and the remote copy is superseded.
			a.fileFailed(result, fmt.Sprintf("record %s/%s: %v", att.ItemID, att.Filename, err))
			continue
		}
		result.Uploaded++
	}

	if result.Uploaded > 0 || result.Failed > 0 {
		a.logger.Printf("attachment upload: %d sent, %d skipped, %d failed",
			result.Uploaded, result.Skipped, result.Failed)
	}
	return result, nil
}

// SyncInbound walks the remote item folders under rootID and downloads every
// file whose remote identity is not yet present locally, upserting by
// (item_id, filename) so a re-sent file overwrites instead of duplicating.
func (a *AttachmentSyncer) SyncInbound(ctx context.Context, rootID string) (*AttachmentResult, error) {
	known, err := a.store.AttachmentRemoteIDs(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := a.client.ListFolder(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote folder: %w", err)
	}

	result := &AttachmentResult{}
	for _, entry := range entries {
		if !entry.IsFolder() {
			continue // the snapshot document and anything else at the root
		}
		a.syncItemFolder(ctx, entry, known, result)
	}

	if result.Downloaded > 0 || result.Failed > 0 {
		a.logger.Printf("attachment download: %d received, %d skipped, %d failed",
			result.Downloaded, result.Skipped, result.Failed)
	}
	return result, nil
}

// syncItemFolder pulls one item folder's missing files. The folder name is
// the item ID.
func (a *AttachmentSyncer) syncItemFolder(ctx context.Context, folder remote.File, known map[string]bool, result *AttachmentResult) {
	files, err := a.client.ListFolder(ctx, folder.ID)
	if err != nil {
		a.fileFailed(result, fmt.Sprintf("list folder %s: %v", folder.Name, err))
		return
	}

	for _, f := range files {
		if f.IsFolder() {
			continue
		}
		if known[f.ID] {
			result.Skipped++
			continue
		}

		data, err := a.client.Download(ctx, f.ID)
		if err != nil {
			a.fileFailed(result, fmt.Sprintf("download %s/%s: %v", folder.Name, f.Name, err))
			continue
		}
		att := &schema.Attachment{
			ItemID:      folder.Name,
			Filename:    f.Name,
			MimeType:    f.MimeType,
			Data:        data,
			DriveFileID: f.ID,
		}
		if err := a.store.UpsertSyncedAttachment(ctx, att); err != nil {
			a.fileFailed(result, fmt.Sprintf("store %s/%s: %v", folder.Name, f.Name, err))
			continue
		}
		known[f.ID] = true
		result.Downloaded++
	}
}

// itemFolder resolves (and lazily creates) the remote folder for an item,
// caching the result. Changing the root folder invalidates the cache: the
// cached IDs belong to the old tree.
func (a *AttachmentSyncer) itemFolder(ctx context.Context, rootID, itemID string) (string, error) {
	a.mu.Lock()
	if a.rootID != rootID {
		a.rootID = rootID
		a.folderIDs = make(map[string]string)
	}
	if id, ok := a.folderIDs[itemID]; ok {
		a.mu.Unlock()
		return id, nil
	}
	a.mu.Unlock()

	id, err := a.client.EnsureFolder(ctx, rootID, itemID)
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	if a.rootID == rootID {
		a.folderIDs[itemID] = id
	}
	a.mu.Unlock()
	return id, nil
}

func (a *AttachmentSyncer) fileFailed(result *AttachmentResult, msg string) {
	a.logger.Printf("WARNING: %s", msg)
	result.Failed++
	result.Errors = append(result.Errors, msg)
}

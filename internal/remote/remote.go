// Package remote abstracts the cloud file store the sync layer talks to.
//
// The contract is a flat file/folder object store: enough for one snapshot
// file at the root and one folder of attachment files per item. The real
// implementation is Google Drive; Memory backs tests and offline use.
package remote

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a file or folder ID no longer resolves.
var ErrNotFound = errors.New("remote: not found")

// ErrAuthRequired is returned when no usable OAuth token exists yet. The
// setup flow mints one; everything else treats it as fatal.
var ErrAuthRequired = errors.New("remote: authorization required")

// FolderMimeType marks folder entries in listings.
const FolderMimeType = "application/vnd.google-apps.folder"

// File describes one remote object.
type File struct {
	ID       string
	Name     string
	MimeType string
	Modified time.Time
	Size     int64
}

// IsFolder reports whether the entry is a folder.
func (f *File) IsFolder() bool {
	return f.MimeType == FolderMimeType
}

// Client is the remote operation set the sync layer needs. Implementations
// must treat file IDs as opaque and stable: the local store records them to
// recognize already-uploaded content.
type Client interface {
	// EnsureFolder returns the ID of the named folder under parent,
	// creating it when absent. An empty parent means the root.
	EnsureFolder(ctx context.Context, parentID, name string) (string, error)

	// FindFile locates a file by name within a folder. ErrNotFound when
	// absent.
	FindFile(ctx context.Context, folderID, name string) (*File, error)

	// ListFolder returns the folder's direct children.
	ListFolder(ctx context.Context, folderID string) ([]File, error)

	// Upload creates a new file and returns its ID.
	Upload(ctx context.Context, folderID, name, mimeType string, data []byte) (string, error)

	// Update replaces an existing file's content in place, keeping its ID.
	Update(ctx context.Context, fileID string, data []byte) error

	// Download fetches a file's content.
	Download(ctx context.Context, fileID string) ([]byte, error)

	// Delete removes a file or folder. Deleting an already-absent ID is
	// not an error.
	Delete(ctx context.Context, fileID string) error
}

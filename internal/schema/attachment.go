package schema

import (
	"fmt"
	"strings"
	"time"
)

// AttachmentKind classifies what a binary attachment shows.
type AttachmentKind string

const (
	KindPhoto   AttachmentKind = "photo"   // listing photos
	KindLabel   AttachmentKind = "label"   // brand/care/size tag shots
	KindReceipt AttachmentKind = "receipt" // proof of acquisition cost
	KindFlaw    AttachmentKind = "flaw"    // close-ups of defects
)

// ValidKinds lists every attachment kind.
var ValidKinds = []AttachmentKind{KindPhoto, KindLabel, KindReceipt, KindFlaw}

// IsValid reports whether k is a known attachment kind.
func (k AttachmentKind) IsValid() bool {
	for _, v := range ValidKinds {
		if k == v {
			return true
		}
	}
	return false
}

// Attachment is a binary blob (photo, scan) tied to one inventory item.
// Attachments live in their own collection keyed by id and are mirrored to
// the remote as files inside a folder named after the owning item.
type Attachment struct {
	ID       string         `json:"id"`
	ItemID   string         `json:"item_id"`
	Filename string         `json:"filename"`
	MimeType string         `json:"mime_type"`
	Kind     AttachmentKind `json:"kind"`

	// Data is the payload. Persisted as a blob column, never inside the
	// JSON document, and never included in snapshot exports.
	Data []byte `json:"-"`

	// Synced and DriveFileID track the remote mirror. DriveFileID is the
	// remote's identity for the uploaded file; empty means never uploaded.
	Synced      bool   `json:"synced"`
	DriveFileID string `json:"drive_file_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate checks the attachment before it is written to the store.
func (a *Attachment) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("id is required")
	}
	if a.ItemID == "" {
		return fmt.Errorf("item_id is required")
	}
	if a.Filename == "" {
		return fmt.Errorf("filename is required")
	}
	if !a.Kind.IsValid() {
		return fmt.Errorf("invalid attachment kind %q", a.Kind)
	}
	if len(a.Data) == 0 {
		return fmt.Errorf("attachment payload is empty")
	}
	return nil
}

// KindForFilename guesses an attachment kind from naming conventions used by
// the capture folder: "label_*" and "tag_*" are labels, "receipt_*" receipts,
// "flaw_*" and "defect_*" flaws, everything else a photo.
func KindForFilename(name string) AttachmentKind {
	switch {
	case hasAnyPrefix(name, "label_", "tag_"):
		return KindLabel
	case hasAnyPrefix(name, "receipt_"):
		return KindReceipt
	case hasAnyPrefix(name, "flaw_", "defect_"):
		return KindFlaw
	default:
		return KindPhoto
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

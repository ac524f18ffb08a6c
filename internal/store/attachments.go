package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vanastassiou/scrounger-sub002/internal/schema"
)

// AddAttachment stores a binary attachment for an existing item. The owning
// item may live in the inventory or the archive. Filenames are unique per
// item; a duplicate fails with ErrExists.
func (s *Store) AddAttachment(ctx context.Context, att *schema.Attachment) error {
	if att.ID == "" {
		att.ID = schema.NewToken()
	}
	if att.Kind == "" {
		att.Kind = schema.KindForFilename(att.Filename)
	}
	if att.CreatedAt.IsZero() {
		att.CreatedAt = s.now().UTC()
	}
	att.Synced = false
	att.DriveFileID = ""
	if err := att.Validate(); err != nil {
		return fmt.Errorf("invalid attachment: %w", err)
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		owned := false
		for _, table := range []string{"inventory", "archive"} {
			exists, err := rowExists(tx, table, att.ItemID)
			if err != nil {
				return err
			}
			if exists {
				owned = true
				break
			}
		}
		if !owned {
			return fmt.Errorf("item %q: %w", att.ItemID, ErrNotFound)
		}

		var one int
		err := tx.QueryRow("SELECT 1 FROM attachments WHERE item_id = ? AND filename = ?",
			att.ItemID, att.Filename).Scan(&one)
		if err == nil {
			return fmt.Errorf("attachment %s/%s: %w", att.ItemID, att.Filename, ErrExists)
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("failed to probe attachment %s/%s: %w", att.ItemID, att.Filename, err)
		}

		_, err = tx.Exec(
			"INSERT INTO attachments (id, item_id, filename, mime_type, kind, data, synced, drive_file_id, created_at) VALUES (?, ?, ?, ?, ?, ?, 0, NULL, ?)",
			att.ID, att.ItemID, att.Filename, att.MimeType, string(att.Kind), att.Data,
			att.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("failed to insert attachment %q: %w", att.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Printf("attached %s to item %s (%s)", att.Filename, att.ItemID, att.Kind)
	s.notify()
	return nil
}

// GetAttachment loads one attachment with its payload.
func (s *Store) GetAttachment(ctx context.Context, id string) (*schema.Attachment, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, item_id, filename, mime_type, kind, data, synced, drive_file_id, created_at FROM attachments WHERE id = ?", id)
	att, err := scanAttachment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attachment %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load attachment %q: %w", id, err)
	}
	return att, nil
}

// ListAttachments returns an item's attachments in insertion order, payloads
// included.
func (s *Store) ListAttachments(ctx context.Context, itemID string) ([]*schema.Attachment, error) {
	return s.queryAttachments(ctx,
		"SELECT id, item_id, filename, mime_type, kind, data, synced, drive_file_id, created_at FROM attachments WHERE item_id = ? ORDER BY created_at, id", itemID)
}

// UnsyncedAttachments returns every attachment the remote mirror is missing.
func (s *Store) UnsyncedAttachments(ctx context.Context) ([]*schema.Attachment, error) {
	return s.queryAttachments(ctx,
		"SELECT id, item_id, filename, mime_type, kind, data, synced, drive_file_id, created_at FROM attachments WHERE synced = 0 ORDER BY item_id, created_at, id")
}

// DeleteAttachment removes one attachment.
func (s *Store) DeleteAttachment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM attachments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete attachment %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete attachment %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("attachment %q: %w", id, ErrNotFound)
	}
	s.notify()
	return nil
}

// UpsertSyncedAttachment lands an attachment fetched from the remote,
// keyed on (item_id, filename): a re-sent file overwrites the local copy
// instead of duplicating it. The owning item is not required to exist yet;
// its snapshot may arrive in a later fetch. Sync bookkeeping: no change
// notification.
func (s *Store) UpsertSyncedAttachment(ctx context.Context, att *schema.Attachment) error {
	if att.ID == "" {
		att.ID = schema.NewToken()
	}
	if att.Kind == "" {
		att.Kind = schema.KindForFilename(att.Filename)
	}
	if att.CreatedAt.IsZero() {
		att.CreatedAt = s.now().UTC()
	}
	att.Synced = true
	if err := att.Validate(); err != nil {
		return fmt.Errorf("invalid attachment: %w", err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attachments (id, item_id, filename, mime_type, kind, data, synced, drive_file_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		 ON CONFLICT(item_id, filename) DO UPDATE SET
		   mime_type = excluded.mime_type,
		   kind = excluded.kind,
		   data = excluded.data,
		   synced = 1,
		   drive_file_id = excluded.drive_file_id`,
		att.ID, att.ItemID, att.Filename, att.MimeType, string(att.Kind), att.Data,
		att.DriveFileID, att.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert attachment %s/%s: %w", att.ItemID, att.Filename, err)
	}
	return nil
}

// AttachmentRemoteIDs returns the set of remote file identities already
// present locally. Inbound attachment sync consults it to skip files it
// already has.
func (s *Store) AttachmentRemoteIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT drive_file_id FROM attachments WHERE drive_file_id IS NOT NULL AND drive_file_id != ''")
	if err != nil {
		return nil, fmt.Errorf("failed to list remote attachment ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan remote attachment id: %w", err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list remote attachment ids: %w", err)
	}
	return ids, nil
}

// CountAttachments reports the attachment total across all items.
func (s *Store) CountAttachments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM attachments").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count attachments: %w", err)
	}
	return n, nil
}

// MarkAttachmentSynced records the remote identity after an upload. This is
// sync bookkeeping: it does not fire change notifications.
func (s *Store) MarkAttachmentSynced(ctx context.Context, id, driveFileID string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE attachments SET synced = 1, drive_file_id = ? WHERE id = ?", driveFileID, id)
	if err != nil {
		return fmt.Errorf("failed to mark attachment %q synced: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark attachment %q synced: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("attachment %q: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) queryAttachments(ctx context.Context, query string, args ...any) ([]*schema.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var atts []*schema.Attachment
	for rows.Next() {
		att, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attachment row: %w", err)
		}
		atts = append(atts, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return atts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttachment(row rowScanner) (*schema.Attachment, error) {
	var att schema.Attachment
	var kind, createdAt string
	var driveFileID sql.NullString
	if err := row.Scan(&att.ID, &att.ItemID, &att.Filename, &att.MimeType, &kind,
		&att.Data, &att.Synced, &driveFileID, &createdAt); err != nil {
		return nil, err
	}
	att.Kind = schema.AttachmentKind(kind)
	att.DriveFileID = driveFileID.String
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	att.CreatedAt = ts
	return &att, nil
}

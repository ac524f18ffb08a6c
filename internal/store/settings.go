package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Settings keys the sync layer records between runs.
const (
	SettingLastSyncAt     = "last_sync_at"
	SettingLastSyncError  = "last_sync_error"
	SettingSnapshotFileID = "snapshot_file_id"
	SettingRemoteFolderID = "remote_folder_id"
	SettingDeviceLabel    = "device_label"
)

// GetSetting reads one settings value. Absent keys return ErrNotFound.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("setting %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting writes one settings value. Settings are local bookkeeping and
// never sync, so this fires no change notification.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("failed to write setting %q: %w", key, err)
	}
	return nil
}

// DeleteSetting removes a settings key; absent keys are fine.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete setting %q: %w", key, err)
	}
	return nil
}

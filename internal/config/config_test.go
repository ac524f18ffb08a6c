package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	wantDir := filepath.Join(home, ".scrounger")
	if cfg.DataDir != wantDir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, wantDir)
	}
	if cfg.Remote.Provider != "none" {
		t.Errorf("Remote.Provider = %q, want %q", cfg.Remote.Provider, "none")
	}
	if cfg.Sync.QuietPeriod != 30*time.Second {
		t.Errorf("Sync.QuietPeriod = %v, want 30s", cfg.Sync.QuietPeriod)
	}
	if !cfg.Sync.Auto {
		t.Error("Sync.Auto = false, want true by default")
	}
	if cfg.SyncConfigured() {
		t.Error("SyncConfigured() = true with no provider")
	}
	if got, want := cfg.DatabasePath(), filepath.Join(wantDir, "scrounger.db"); got != want {
		t.Errorf("DatabasePath() = %q, want %q", got, want)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	path := filepath.Join(dir, FileName)
	body := []byte(`device_label: workbench
remote:
  provider: drive
  folder: resale-stuff
sync:
  auto: false
  quiet_period: 45s
daemon:
  auto_sync_interval: 5m
`)
	if err := os.WriteFile(path, body, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DeviceLabel != "workbench" {
		t.Errorf("DeviceLabel = %q, want %q", cfg.DeviceLabel, "workbench")
	}
	if cfg.Remote.Provider != "drive" || cfg.Remote.Folder != "resale-stuff" {
		t.Errorf("Remote = %+v, want drive/resale-stuff", cfg.Remote)
	}
	if cfg.Sync.Auto {
		t.Error("Sync.Auto = true, want false from file")
	}
	if cfg.Sync.QuietPeriod != 45*time.Second {
		t.Errorf("Sync.QuietPeriod = %v, want 45s", cfg.Sync.QuietPeriod)
	}
	if cfg.Daemon.AutoSyncInterval != 5*time.Minute {
		t.Errorf("Daemon.AutoSyncInterval = %v, want 5m", cfg.Daemon.AutoSyncInterval)
	}
	if !cfg.SyncConfigured() {
		t.Error("SyncConfigured() = false with drive configured")
	}

	// Unset fields keep their defaults.
	if cfg.Daemon.CaptureDir != filepath.Join(dir, ".scrounger", "capture") {
		t.Errorf("Daemon.CaptureDir = %q, want default", cfg.Daemon.CaptureDir)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SCROUNGER_REMOTE_FOLDER", "from-env")
	t.Setenv("SCROUNGER_SYNC_QUIET_PERIOD", "5s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Remote.Folder != "from-env" {
		t.Errorf("Remote.Folder = %q, want %q", cfg.Remote.Folder, "from-env")
	}
	if cfg.Sync.QuietPeriod != 5*time.Second {
		t.Errorf("Sync.QuietPeriod = %v, want 5s", cfg.Sync.QuietPeriod)
	}
}

func TestLoad_MissingExplicitPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v, want defaults for a missing file", err)
	}
	if cfg.Remote.Provider != "none" {
		t.Errorf("Remote.Provider = %q, want default", cfg.Remote.Provider)
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.DeviceLabel = "garage-laptop"
	cfg.Remote.Provider = "drive"
	cfg.Remote.Folder = "resale"
	cfg.Sync.Auto = false
	cfg.Sync.QuietPeriod = 42 * time.Second

	// Write creates the parent directory.
	path := filepath.Join(dir, ".scrounger", FileName)
	if err := cfg.Write(path); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() after Write() error = %v", err)
	}
	if loaded.DeviceLabel != cfg.DeviceLabel {
		t.Errorf("DeviceLabel = %q, want %q", loaded.DeviceLabel, cfg.DeviceLabel)
	}
	if loaded.Remote != cfg.Remote {
		t.Errorf("Remote = %+v, want %+v", loaded.Remote, cfg.Remote)
	}
	if loaded.Sync.Auto != cfg.Sync.Auto || loaded.Sync.QuietPeriod != cfg.Sync.QuietPeriod {
		t.Errorf("Sync = %+v, want %+v", loaded.Sync, cfg.Sync)
	}
}

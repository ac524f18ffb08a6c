// Package config loads and writes scrounger's configuration: a YAML file
// under the data directory, overridable with SCROUNGER_* environment
// variables. Collaborators receive an explicit Config; nothing reads
// configuration globally.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file scrounger reads and the setup command writes.
const FileName = "scrounger.yaml"

// Config is the full configuration tree.
type Config struct {
	// DataDir holds the database, OAuth tokens, and daemon log. Defaults
	// to ~/.scrounger.
	DataDir string `mapstructure:"data_dir"`

	// DeviceLabel names this device in pushed snapshots.
	DeviceLabel string `mapstructure:"device_label"`

	Remote RemoteConfig `mapstructure:"remote"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Daemon DaemonConfig `mapstructure:"daemon"`
}

// RemoteConfig selects and parameterizes the cloud backend.
type RemoteConfig struct {
	// Provider is "drive" or "none". "none" disables sync; every trigger
	// reports not configured.
	Provider string `mapstructure:"provider"`

	// Folder is the remote folder everything syncs under.
	Folder string `mapstructure:"folder"`

	// CredentialsFile is the OAuth client secret JSON downloaded from the
	// cloud console. TokenFile caches the granted token.
	CredentialsFile string `mapstructure:"credentials_file"`
	TokenFile       string `mapstructure:"token_file"`
}

// SyncConfig tunes the coordinator.
type SyncConfig struct {
	// Auto enables the debounced edit-triggered sync.
	Auto bool `mapstructure:"auto"`

	// QuietPeriod is how long edits must settle before a queued sync runs.
	QuietPeriod time.Duration `mapstructure:"quiet_period"`
}

// DaemonConfig tunes the background host.
type DaemonConfig struct {
	// CaptureDir is the drop folder watched for new photos.
	CaptureDir string `mapstructure:"capture_dir"`

	// AutoSyncInterval is the periodic full-sync cadence. Zero disables it.
	AutoSyncInterval time.Duration `mapstructure:"auto_sync_interval"`

	// LogFile receives the daemon's rotated log.
	LogFile string `mapstructure:"log_file"`
}

// DefaultDir returns ~/.scrounger.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".scrounger"), nil
}

// Load reads configuration from path, or from the default locations when
// path is empty (the data dir, then the working directory). A missing file
// is fine: defaults plus environment apply.
func Load(path string) (*Config, error) {
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, dir)
	v.SetEnvPrefix("SCROUNGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No file yet: defaults plus environment apply; setup writes one.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	host, _ := os.Hostname()
	v.SetDefault("data_dir", dir)
	v.SetDefault("device_label", host)
	v.SetDefault("remote.provider", "none")
	v.SetDefault("remote.folder", "scrounger")
	v.SetDefault("remote.credentials_file", filepath.Join(dir, "credentials.json"))
	v.SetDefault("remote.token_file", filepath.Join(dir, "token.json"))
	v.SetDefault("sync.auto", true)
	v.SetDefault("sync.quiet_period", 30*time.Second)
	v.SetDefault("daemon.capture_dir", filepath.Join(dir, "capture"))
	v.SetDefault("daemon.auto_sync_interval", 15*time.Minute)
	v.SetDefault("daemon.log_file", filepath.Join(dir, "daemon.log"))
}

// Write persists the configuration to path, creating parent directories.
// The setup command calls this after the wizard.
func (c *Config) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("data_dir", c.DataDir)
	v.Set("device_label", c.DeviceLabel)
	v.Set("remote.provider", c.Remote.Provider)
	v.Set("remote.folder", c.Remote.Folder)
	v.Set("remote.credentials_file", c.Remote.CredentialsFile)
	v.Set("remote.token_file", c.Remote.TokenFile)
	v.Set("sync.auto", c.Sync.Auto)
	v.Set("sync.quiet_period", c.Sync.QuietPeriod.String())
	v.Set("daemon.capture_dir", c.Daemon.CaptureDir)
	v.Set("daemon.auto_sync_interval", c.Daemon.AutoSyncInterval.String())
	v.Set("daemon.log_file", c.Daemon.LogFile)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// DatabasePath is where the local store lives.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "scrounger.db")
}

// Path is the default config file location under the data dir.
func (c *Config) Path() string {
	return filepath.Join(c.DataDir, FileName)
}

// SyncConfigured reports whether a usable remote is selected.
func (c *Config) SyncConfigured() bool {
	return c.Remote.Provider != "" && c.Remote.Provider != "none" && c.Remote.Folder != ""
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vanastassiou/scrounger-sub002/internal/config"
	"github.com/vanastassiou/scrounger-sub002/internal/db"
	"github.com/vanastassiou/scrounger-sub002/internal/remote"
	"github.com/vanastassiou/scrounger-sub002/internal/store"
	scsync "github.com/vanastassiou/scrounger-sub002/internal/sync"
	"github.com/vanastassiou/scrounger-sub002/internal/ui"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "scrounger",
	Short: "Local-first resale inventory tracker",
	Long: `Scrounger tracks secondhand finds from sourcing to sale.

Everything lives in a local SQLite database (~/.scrounger/scrounger.db) and
works offline. When a Google Drive folder is configured, edits sync to it in
the background and other devices pick them up from the shared snapshot.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default ~/.scrounger/scrounger.yaml)")
}

// loadConfig reads the config named by --config, or the default search path.
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// openStore opens the configured database. The returned cleanup closes it.
func openStore(cfg *config.Config) (*store.Store, func()) {
	sqldb, err := db.Open(cfg.DatabasePath(), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	return store.New(sqldb, nil), func() { sqldb.Close() }
}

// newRemoteClient connects to the configured remote, or returns nil when
// sync is not configured. The coordinator treats a nil client as
// not-configured, so offline-only setups flow through unchanged.
func newRemoteClient(ctx context.Context, cfg *config.Config) remote.Client {
	if !cfg.SyncConfigured() {
		return nil
	}
	client, err := remote.NewDriveClient(ctx, cfg.Remote.CredentialsFile, cfg.Remote.TokenFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to Drive: %v\n", err)
		fmt.Fprintf(os.Stderr, "Run %s to re-authorize\n", ui.Accent("scrounger setup"))
		os.Exit(1)
	}
	return client
}

// newCoordinator wires a sync coordinator for one-shot command use.
func newCoordinator(ctx context.Context, cfg *config.Config, st *store.Store) *scsync.Coordinator {
	syncCfg := scsync.DefaultConfig()
	syncCfg.FolderName = cfg.Remote.Folder
	syncCfg.QuietPeriod = cfg.Sync.QuietPeriod
	return scsync.New(st, newRemoteClient(ctx, cfg), syncCfg)
}

// syncAfterChange pushes a mutation made by a one-shot command. CLI
// processes exit before a debounce window could elapse, so auto-sync runs
// inline; failure only warns because the store is authoritative and the
// daemon or the next command retries.
func syncAfterChange(ctx context.Context, cfg *config.Config, st *store.Store) {
	if !cfg.Sync.Auto || !cfg.SyncConfigured() {
		return
	}
	coord := newCoordinator(ctx, cfg, st)
	defer coord.Close()
	if err := coord.SyncNow(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s sync failed: %v (changes saved locally)\n", ui.Warn("Warning:"), err)
	}
}

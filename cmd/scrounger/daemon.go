package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vanastassiou/scrounger-sub002/internal/daemon"
	scsync "github.com/vanastassiou/scrounger-sub002/internal/sync"
	"github.com/vanastassiou/scrounger-sub002/internal/ui"
)

var daemonVerbose bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the background watcher and sync host",
	Long: `Run the background watcher and sync host in the foreground.

The daemon ingests photos dropped into the capture folder (named
<itemID>__<filename>), queues a debounced sync after every edit, and runs a
periodic full sync. Logs go to the rotated daemon log file unless --verbose
sends them to stderr.

Press Ctrl+C to stop.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, closeStore := openStore(cfg)
		defer closeStore()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger := log.New(os.Stderr, "[daemon] ", log.LstdFlags)
		if !daemonVerbose && cfg.Daemon.LogFile != "" {
			logger = daemon.RotatingLogger(cfg.Daemon.LogFile)
		}

		syncCfg := scsync.DefaultConfig()
		syncCfg.FolderName = cfg.Remote.Folder
		syncCfg.QuietPeriod = cfg.Sync.QuietPeriod
		syncCfg.Logger = log.New(logger.Writer(), "[sync] ", log.LstdFlags)

		coord := scsync.New(st, newRemoteClient(ctx, cfg), syncCfg)
		defer coord.Close()

		daemonCfg := daemon.DefaultConfig()
		daemonCfg.AutoSyncInterval = cfg.Daemon.AutoSyncInterval
		daemonCfg.Logger = logger

		d, err := daemon.New(st, coord, cfg.Daemon.CaptureDir, daemonCfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating daemon: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Watching %s\n", ui.Accent(cfg.Daemon.CaptureDir))
		if cfg.SyncConfigured() {
			fmt.Printf("Syncing to %s folder %q\n", cfg.Remote.Provider, cfg.Remote.Folder)
		} else {
			fmt.Println(ui.Muted("Remote sync not configured; captures still ingest locally"))
		}
		fmt.Println("Press Ctrl+C to stop")

		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Daemon stopped with error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonVerbose, "verbose", false, "log to stderr instead of the log file")
	rootCmd.AddCommand(daemonCmd)
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vanastassiou/scrounger-sub002/internal/ui"
)

var syncRestore bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push local changes to the remote folder now",
	Long: `Push local changes to the remote folder now.

With --restore the direction reverses: the remote snapshot is fetched and
merged into the local database. Restore is how a new device picks up an
existing inventory; merging is last-write-wins per record, so local edits
newer than the snapshot survive.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		if !cfg.SyncConfigured() {
			fmt.Fprintf(os.Stderr, "Error: remote sync is not configured\n")
			fmt.Fprintf(os.Stderr, "Run %s first\n", ui.Accent("scrounger setup"))
			os.Exit(1)
		}

		st, closeStore := openStore(cfg)
		defer closeStore()
		ctx := context.Background()

		coord := newCoordinator(ctx, cfg, st)
		defer coord.Close()

		if syncRestore {
			result, err := coord.Restore(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error restoring: %v\n", err)
				os.Exit(1)
			}
			if result == nil {
				fmt.Println("No snapshot in the remote folder yet")
				return
			}
			fmt.Printf("Restored %s items and %s stores (%d up to date)\n",
				ui.Accent(fmt.Sprint(result.ItemsImported)),
				ui.Accent(fmt.Sprint(result.StoresImported)),
				result.ItemsSkipped+result.StoresSkipped)
			for _, msg := range result.Errors {
				fmt.Fprintf(os.Stderr, "%s %s\n", ui.Warn("Warning:"), msg)
			}
			return
		}

		dirty, err := st.DirtyCounts(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if err := coord.SyncNow(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error syncing: %v\n", err)
			os.Exit(1)
		}

		if dirty.Total() == 0 {
			fmt.Println(ui.Good("Already in sync"))
			return
		}
		fmt.Printf("%s (%d items, %d archived, %d stores, %d attachments)\n",
			ui.Good("Sync complete"), dirty.Items, dirty.Archived, dirty.Stores, dirty.Attachments)
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncRestore, "restore", false, "pull the remote snapshot into this device")
	rootCmd.AddCommand(syncCmd)
}

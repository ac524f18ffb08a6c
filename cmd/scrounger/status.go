package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanastassiou/scrounger-sub002/internal/schema"
	"github.com/vanastassiou/scrounger-sub002/internal/store"
	"github.com/vanastassiou/scrounger-sub002/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show inventory and sync state",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, closeStore := openStore(cfg)
		defer closeStore()
		ctx := context.Background()

		counts, err := st.CountByStatus(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		archive, err := st.ListArchive(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		attachments, err := st.CountAttachments(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		total := 0
		for _, n := range counts {
			total += n
		}

		fmt.Printf("Inventory: %s active, %d archived, %d attachments\n",
			ui.Accent(fmt.Sprint(total)), len(archive), attachments)
		for _, status := range schema.ValidStatuses {
			if status == schema.StatusSold {
				continue // sold items live in the archive count
			}
			if n := counts[status]; n > 0 {
				fmt.Printf("  %-10s %d\n", status, n)
			}
		}

		fmt.Println()
		if !cfg.SyncConfigured() {
			fmt.Printf("Remote:    %s (run %s)\n", ui.Muted("not configured"), ui.Accent("scrounger setup"))
			return
		}
		fmt.Printf("Remote:    %s folder %q\n", cfg.Remote.Provider, cfg.Remote.Folder)

		dirty, err := st.DirtyCounts(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if dirty.Total() == 0 {
			fmt.Printf("Pending:   %s\n", ui.Good("nothing"))
		} else {
			fmt.Printf("Pending:   %s\n", ui.Warn(fmt.Sprintf(
				"%d items, %d archived, %d stores, %d attachments",
				dirty.Items, dirty.Archived, dirty.Stores, dirty.Attachments)))
		}

		printLastSync(ctx, st)
	},
}

// printLastSync reports the bookkeeping the coordinator left behind.
func printLastSync(ctx context.Context, st *store.Store) {
	raw, err := st.GetSetting(ctx, store.SettingLastSyncAt)
	switch {
	case errors.Is(err, store.ErrNotFound):
		fmt.Printf("Last sync: %s\n", ui.Muted("never"))
	case err != nil:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	default:
		at, perr := time.Parse(time.RFC3339Nano, raw)
		if perr != nil {
			fmt.Printf("Last sync: %s\n", raw)
		} else {
			fmt.Printf("Last sync: %s (%s ago)\n",
				at.Local().Format("2006-01-02 15:04"),
				time.Since(at).Round(time.Minute))
		}
	}

	if msg, err := st.GetSetting(ctx, store.SettingLastSyncError); err == nil {
		fmt.Printf("Last err:  %s\n", ui.Bad(msg))
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vanastassiou/scrounger-sub002/internal/store"
	"github.com/vanastassiou/scrounger-sub002/internal/ui"
)

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Merge exported snapshots into this device",
	Long: `Merge one or more exported snapshots into this device.

Records merge last-write-wins on their updated timestamp, so importing the
same file twice is safe and importing exports from several devices
converges on the newest version of each record. Legacy export shapes from
the old app are understood.

Imported records count as local edits and push out on the next sync.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, closeStore := openStore(cfg)
		defer closeStore()
		ctx := context.Background()

		var imported, skipped int
		failed := false
		for _, path := range args {
			raw, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %s: %v\n", ui.Bad("Failed:"), path, err)
				failed = true
				continue
			}
			result, err := st.Import(ctx, raw, store.ImportOptions{})
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s %s: %v\n", ui.Bad("Failed:"), path, err)
				failed = true
				continue
			}

			fmt.Printf("%s: %d items, %d stores merged (%d up to date)\n",
				path, result.ItemsImported, result.StoresImported,
				result.ItemsSkipped+result.StoresSkipped)
			for _, msg := range result.Errors {
				fmt.Fprintf(os.Stderr, "%s %s\n", ui.Warn("Warning:"), msg)
			}
			imported += result.ItemsImported + result.StoresImported
			skipped += result.ItemsSkipped + result.StoresSkipped
		}

		if len(args) > 1 {
			fmt.Printf("\nMerged %s records, %d already up to date\n", ui.Accent(fmt.Sprint(imported)), skipped)
		}
		if imported > 0 {
			syncAfterChange(ctx, cfg, st)
		}
		if failed {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

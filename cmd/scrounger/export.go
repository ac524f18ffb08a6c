package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vanastassiou/scrounger-sub002/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the full inventory snapshot as JSON",
	Long: `Write the full inventory snapshot as JSON, to stdout or to a file.

The document is the same shape the sync push uploads: inventory, stores,
and archive. Attachment binaries are not included; they sync as separate
files.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, closeStore := openStore(cfg)
		defer closeStore()
		ctx := context.Background()

		snap, err := st.Export(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
			os.Exit(1)
		}
		data, err := snap.Encode()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
			os.Exit(1)
		}

		if len(args) == 0 {
			fmt.Println(string(data))
			return
		}

		if err := os.WriteFile(args[0], data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", args[0], err)
			os.Exit(1)
		}
		fmt.Printf("Exported %d items, %d stores, %d archived to %s\n",
			len(snap.Inventory), len(snap.Stores), len(snap.Archive), ui.Accent(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vanastassiou/scrounger-sub002/internal/catalog"
	"github.com/vanastassiou/scrounger-sub002/internal/schema"
	"github.com/vanastassiou/scrounger-sub002/internal/ui"
)

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "List sourcing locations",
	Long: `List sourcing locations: the built-in catalog of common chains plus
every store added here. A store you add with a catalog ID shadows the
catalog entry.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, closeStore := openStore(cfg)
		defer closeStore()
		ctx := context.Background()

		user, err := st.ListStores(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing stores: %v\n", err)
			os.Exit(1)
		}
		all, err := catalog.Union(user)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		yours := make(map[string]bool, len(user))
		for _, rec := range user {
			yours[rec.ID] = true
		}

		for _, rec := range all {
			origin := ui.Muted("catalog")
			if yours[rec.ID] {
				origin = ui.Good("yours")
			}
			fmt.Printf("%s %-24s %-12s %s\n",
				ui.Accent(fmt.Sprintf("%-22s", rec.ID)), rec.Name, rec.Tier, origin)
		}
		fmt.Printf("\n%d stores (%d yours)\n", len(all), len(user))
	},
}

var (
	storeID      string
	storeName    string
	storeTier    string
	storeAddress string
	storeNotes   string
)

var storesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a sourcing location",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, closeStore := openStore(cfg)
		defer closeStore()
		ctx := context.Background()

		if storeName == "" {
			fmt.Fprintf(os.Stderr, "Error: --name is required\n")
			os.Exit(1)
		}

		rec := &schema.Store{
			ID:      storeID,
			Name:    storeName,
			Tier:    storeTier,
			Address: storeAddress,
			Notes:   storeNotes,
		}
		if err := st.AddStore(ctx, rec); err != nil {
			fmt.Fprintf(os.Stderr, "Error adding store: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Added store %s (%s)\n", ui.Accent(rec.ID), rec.Name)
		syncAfterChange(ctx, cfg, st)
	},
}

func init() {
	storesAddCmd.Flags().StringVar(&storeID, "id", "", "store ID (default: random token; use a catalog ID to shadow it)")
	storesAddCmd.Flags().StringVar(&storeName, "name", "", "store name (required)")
	storesAddCmd.Flags().StringVar(&storeTier, "tier", "", "tier: bins, thrift, consignment, estate")
	storesAddCmd.Flags().StringVar(&storeAddress, "address", "", "street address")
	storesAddCmd.Flags().StringVar(&storeNotes, "notes", "", "sourcing notes")

	storesCmd.AddCommand(storesAddCmd)
	rootCmd.AddCommand(storesCmd)
}

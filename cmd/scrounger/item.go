package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vanastassiou/scrounger-sub002/internal/catalog"
	"github.com/vanastassiou/scrounger-sub002/internal/remote"
	"github.com/vanastassiou/scrounger-sub002/internal/schema"
	"github.com/vanastassiou/scrounger-sub002/internal/store"
	"github.com/vanastassiou/scrounger-sub002/internal/ui"
)

var itemCmd = &cobra.Command{
	Use:   "item",
	Short: "Manage inventory items",
}

var (
	addBrand    string
	addCategory string
	addColour   string
	addMaterial string
	addSize     string
	addGender   string
	addCost     string
	addStore    string
	addAcquired string
	addValue    string
	addMin      string
	addKeep     bool
	addNotes    string
)

var itemAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new find to the inventory",
	Long: `Add a new find to the inventory.

The item ID is derived from colour, material, and category when all three
are given ("black-wool-coat"); otherwise a random token is assigned until
the missing fields are filled in.

Dates accept natural language: --acquired "last saturday" works.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, closeStore := openStore(cfg)
		defer closeStore()
		ctx := context.Background()

		item := &schema.Item{
			Brand:    addBrand,
			Colour:   schema.Pair{Primary: addColour},
			Material: schema.Pair{Primary: addMaterial},
			Size: schema.Size{
				Label: schema.SizeLabel{Gender: addGender, Value: addSize},
			},
			Condition: schema.Condition{Notes: addNotes},
		}

		if addCategory != "" {
			taxonomy, err := schema.LoadTaxonomy()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			pair, err := taxonomy.ResolveCategory(addCategory)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			item.Category = pair
		}

		if addKeep {
			item.Metadata.Status = schema.StatusKeep
		}

		item.Pricing.EstimatedResaleValue = parseMoney(addValue, "--value")
		item.Pricing.MinimumAcceptablePrice = parseMoney(addMin, "--min")
		item.Metadata.Acquisition.Price = parseMoney(addCost, "--cost")

		if addAcquired != "" {
			at := parseDate(addAcquired)
			item.Metadata.Acquisition.Date = &at
		}

		if addStore != "" {
			if err := checkStoreID(ctx, st, addStore); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			item.Metadata.Acquisition.StoreID = addStore
		}

		id, err := st.CreateItem(ctx, item)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error adding item: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Added %s\n", ui.Accent(id))
		syncAfterChange(ctx, cfg, st)
	},
}

var (
	listStatus   string
	listBrand    string
	listCategory string
	listStore    string
	listUnsynced bool
	listArchive  bool
)

var itemListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inventory items",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, closeStore := openStore(cfg)
		defer closeStore()
		ctx := context.Background()

		var items []*schema.Item
		var err error
		if listArchive {
			items, err = st.ListArchive(ctx)
		} else {
			filter := store.ItemFilter{
				Brand:    listBrand,
				Category: listCategory,
				StoreID:  listStore,
			}
			if listStatus != "" {
				status := schema.Status(listStatus)
				if !status.IsValid() {
					fmt.Fprintf(os.Stderr, "Error: unknown status %q (want one of %v)\n", listStatus, schema.ValidStatuses)
					os.Exit(1)
				}
				filter.Status = status
			}
			if listUnsynced {
				unsynced := true
				filter.Unsynced = &unsynced
			}
			items, err = st.ListItems(ctx, filter)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing items: %v\n", err)
			os.Exit(1)
		}

		if len(items) == 0 {
			fmt.Println(ui.Muted("No items"))
			return
		}

		for _, item := range items {
			fmt.Println(itemLine(item))
		}
		fmt.Printf("\n%d items\n", len(items))
	},
}

var itemShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one item in full",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, closeStore := openStore(cfg)
		defer closeStore()
		ctx := context.Background()

		item, collection, err := st.FindItem(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		printItem(item, collection)

		atts, err := st.ListAttachments(ctx, item.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing attachments: %v\n", err)
			os.Exit(1)
		}
		if len(atts) > 0 {
			fmt.Printf("\nAttachments:\n")
			for _, att := range atts {
				state := ui.Warn("unsynced")
				if att.Synced {
					state = ui.Good("synced")
				}
				fmt.Printf("  %-28s %-8s %s\n", att.Filename, att.Kind, state)
			}
		}
	},
}

var (
	promotePlatform string
	promoteURL      string
)

var itemPromoteCmd = &cobra.Command{
	Use:   "promote <id>",
	Short: "Advance an item along the pipeline",
	Long: `Advance an item along the sourced -> prepped -> listed pipeline.

Without flags a sourced item becomes prepped. With --platform the item goes
live: prepped (or sourced) becomes listed. Selling is a separate command
because it carries sale details and archives the item.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, closeStore := openStore(cfg)
		defer closeStore()
		ctx := context.Background()

		var item *schema.Item
		var err error
		if promotePlatform != "" {
			item, err = st.MarkItemListed(ctx, args[0], store.ListingDetails{
				Platform: promotePlatform,
				URL:      promoteURL,
			})
		} else {
			item, err = st.PromoteItem(ctx, args[0])
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s is now %s\n", ui.Accent(item.ID), ui.Good(string(item.Metadata.Status)))
		syncAfterChange(ctx, cfg, st)
	},
}

var (
	soldPrice    string
	soldPlatform string
	soldFees     string
	soldShipping string
	soldOn       string
)

var itemSoldCmd = &cobra.Command{
	Use:   "sold <id>",
	Short: "Record a sale and archive the item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, closeStore := openStore(cfg)
		defer closeStore()
		ctx := context.Background()

		if soldPrice == "" {
			fmt.Fprintf(os.Stderr, "Error: --price is required\n")
			os.Exit(1)
		}

		sale := store.SaleDetails{
			SoldPrice: parseMoney(soldPrice, "--price"),
			Platform:  soldPlatform,
		}
		if soldFees != "" {
			fees := parseMoney(soldFees, "--fees")
			sale.Fees = &fees
		}
		if soldShipping != "" {
			shipping := parseMoney(soldShipping, "--shipping")
			sale.ShippingCost = &shipping
		}
		if soldOn != "" {
			sale.SoldAt = parseDate(soldOn)
		}

		item, err := st.SellItem(ctx, args[0], sale)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Sold %s for %s, moved to archive\n",
			ui.Accent(item.ID), ui.Good("$"+item.Listing.SoldPrice.StringFixed(2)))
		syncAfterChange(ctx, cfg, st)
	},
}

var itemRenameCmd = &cobra.Command{
	Use:   "rename <id> [new-id]",
	Short: "Rename an item, or re-derive its slug",
	Long: `Rename an item and repoint its attachments.

With an explicit new-id the item takes that ID. Without one the slug is
re-derived from the item's current colour, material, and category; when
any of those are still missing the command reports which.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, closeStore := openStore(cfg)
		defer closeStore()
		ctx := context.Background()

		oldID := args[0]
		var newID string
		var err error
		if len(args) == 2 {
			_, err = st.RenameItem(ctx, oldID, args[1])
			newID = args[1]
		} else {
			newID, err = st.RefreshItemID(ctx, oldID)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if newID == oldID {
			fmt.Printf("%s unchanged\n", ui.Accent(oldID))
			return
		}
		fmt.Printf("Renamed %s to %s\n", ui.Muted(oldID), ui.Accent(newID))
		syncAfterChange(ctx, cfg, st)
	},
}

var itemAttachCmd = &cobra.Command{
	Use:   "attach <id> <file>",
	Short: "Attach a photo or scan to an item",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, closeStore := openStore(cfg)
		defer closeStore()
		ctx := context.Background()

		data, err := os.ReadFile(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
			os.Exit(1)
		}

		filename := filepath.Base(args[1])
		mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}

		att := &schema.Attachment{
			ItemID:   args[0],
			Filename: filename,
			MimeType: mimeType,
			Data:     data,
		}
		if err := st.AddAttachment(ctx, att); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Attached %s to %s (%s, %d bytes)\n",
			ui.Accent(filename), args[0], att.Kind, len(data))
		syncAfterChange(ctx, cfg, st)
	},
}

var itemDetachCmd = &cobra.Command{
	Use:   "detach <id> <filename>",
	Short: "Remove an attachment from an item",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, closeStore := openStore(cfg)
		defer closeStore()
		ctx := context.Background()

		atts, err := st.ListAttachments(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		var target *schema.Attachment
		for _, att := range atts {
			if att.Filename == args[1] {
				target = att
				break
			}
		}
		if target == nil {
			fmt.Fprintf(os.Stderr, "Error: item %s has no attachment %q\n", args[0], args[1])
			os.Exit(1)
		}

		if err := st.DeleteAttachment(ctx, target.ID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// Remove the remote copy too, or the next inbound sync would pull
		// it straight back.
		if target.DriveFileID != "" && cfg.SyncConfigured() {
			client := newRemoteClient(ctx, cfg)
			if err := client.Delete(ctx, target.DriveFileID); err != nil && !errors.Is(err, remote.ErrNotFound) {
				fmt.Fprintf(os.Stderr, "%s could not remove the remote copy: %v\n", ui.Warn("Warning:"), err)
			}
		}

		fmt.Printf("Detached %s from %s\n", ui.Accent(args[1]), args[0])
	},
}

var deleteForce bool

var itemDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an item and its attachments",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		st, closeStore := openStore(cfg)
		defer closeStore()
		ctx := context.Background()

		if !deleteForce && ui.IsTTY() {
			var confirmed bool
			err := huh.NewConfirm().
				Title(fmt.Sprintf("Delete %s and all its attachments?", args[0])).
				Value(&confirmed).
				Run()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if !confirmed {
				fmt.Println("Aborted")
				return
			}
		}

		if err := st.DeleteItem(ctx, args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Deleted %s\n", args[0])
		syncAfterChange(ctx, cfg, st)
	},
}

// itemLine renders one list row.
func itemLine(item *schema.Item) string {
	desc := item.Brand
	if desc == "" {
		desc = ui.Muted("(no brand)")
	}
	category := item.Category.Secondary
	if category == "" {
		category = item.Category.Primary
	}

	status := fmt.Sprintf("%-9s", item.Metadata.Status)
	switch item.Metadata.Status {
	case schema.StatusListed:
		status = ui.Good(status)
	case schema.StatusSold:
		status = ui.Muted(status)
	case schema.StatusKeep:
		status = ui.Warn(status)
	}

	dirty := " "
	if item.Metadata.Sync.Unsynced {
		dirty = ui.Warn("*")
	}

	// Pad before styling so ANSI codes never skew the columns.
	return fmt.Sprintf("%s %s %s %-12s $%s",
		dirty,
		ui.Accent(fmt.Sprintf("%-28s", item.ID)),
		status,
		category,
		item.Pricing.EstimatedResaleValue.StringFixed(2))
}

// printItem renders the full detail view.
func printItem(item *schema.Item, collection string) {
	fmt.Printf("%s  (%s)\n", ui.Accent(item.ID), collection)
	if item.Brand != "" {
		fmt.Printf("  Brand:     %s\n", item.Brand)
	}
	fmt.Printf("  Category:  %s\n", pairString(item.Category))
	fmt.Printf("  Colour:    %s\n", pairString(item.Colour))
	fmt.Printf("  Material:  %s\n", pairString(item.Material))
	if item.Size.Label.Value != "" {
		fmt.Printf("  Size:      %s %s\n", item.Size.Label.Gender, item.Size.Label.Value)
	}
	fmt.Printf("  Status:    %s\n", item.Metadata.Status)
	fmt.Printf("  Value:     $%s (min $%s)\n",
		item.Pricing.EstimatedResaleValue.StringFixed(2),
		item.Pricing.MinimumAcceptablePrice.StringFixed(2))

	acq := item.Metadata.Acquisition
	if acq.StoreID != "" || acq.Date != nil || !acq.Price.IsZero() {
		fmt.Printf("  Acquired:  ")
		if acq.Date != nil {
			fmt.Printf("%s ", acq.Date.Format("2006-01-02"))
		}
		if !acq.Price.IsZero() {
			fmt.Printf("for $%s ", acq.Price.StringFixed(2))
		}
		if acq.StoreID != "" {
			fmt.Printf("at %s", acq.StoreID)
		}
		fmt.Println()
	}

	if item.Listing.Platform != "" {
		fmt.Printf("  Listed:    %s", item.Listing.Platform)
		if item.Listing.URL != "" {
			fmt.Printf(" (%s)", item.Listing.URL)
		}
		fmt.Println()
	}
	if item.Listing.SoldPrice != nil {
		fmt.Printf("  Sold:      $%s", item.Listing.SoldPrice.StringFixed(2))
		if item.Listing.SoldAt != nil {
			fmt.Printf(" on %s", item.Listing.SoldAt.Format("2006-01-02"))
		}
		fmt.Println()
	}
	if item.Condition.Notes != "" {
		fmt.Printf("  Notes:     %s\n", item.Condition.Notes)
	}

	syncState := ui.Good("synced")
	if item.Metadata.Sync.Unsynced {
		syncState = ui.Warn("unsynced")
	}
	fmt.Printf("  Sync:      %s\n", syncState)
}

func pairString(p schema.Pair) string {
	if p.Secondary != "" {
		return p.Primary + " / " + p.Secondary
	}
	return p.Primary
}

// parseMoney converts a money flag to a decimal. Empty means zero.
func parseMoney(s, flag string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(s, "$"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: invalid amount %q\n", flag, s)
		os.Exit(1)
	}
	return d
}

// parseDate accepts ISO dates and natural language ("last saturday").
func parseDate(s string) time.Time {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(s, time.Now())
	if err != nil || r == nil {
		fmt.Fprintf(os.Stderr, "Error: unrecognized date %q\n", s)
		os.Exit(1)
	}
	return r.Time
}

// checkStoreID accepts stores the operator created and entries from the
// built-in reference catalog.
func checkStoreID(ctx context.Context, st *store.Store, id string) error {
	_, err := st.GetStore(ctx, id)
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		if catalog.IsReference(id) {
			return nil
		}
		return fmt.Errorf("unknown store %q (see 'scrounger stores')", id)
	}
	return err
}

func init() {
	itemAddCmd.Flags().StringVar(&addBrand, "brand", "", "brand name")
	itemAddCmd.Flags().StringVar(&addCategory, "category", "", "category (primary or secondary, e.g. boots)")
	itemAddCmd.Flags().StringVar(&addColour, "colour", "", "primary colour")
	itemAddCmd.Flags().StringVar(&addMaterial, "material", "", "primary material")
	itemAddCmd.Flags().StringVar(&addSize, "size", "", "tagged size (M, 10.5, 32x34)")
	itemAddCmd.Flags().StringVar(&addGender, "gender", "", "sizing system: mens, womens, unisex")
	itemAddCmd.Flags().StringVar(&addCost, "cost", "", "acquisition price")
	itemAddCmd.Flags().StringVar(&addStore, "store", "", "store ID the item came from")
	itemAddCmd.Flags().StringVar(&addAcquired, "acquired", "", "acquisition date (ISO or natural language)")
	itemAddCmd.Flags().StringVar(&addValue, "value", "", "estimated resale value")
	itemAddCmd.Flags().StringVar(&addMin, "min", "", "minimum acceptable price")
	itemAddCmd.Flags().BoolVar(&addKeep, "keep", false, "personal keep, not for resale")
	itemAddCmd.Flags().StringVar(&addNotes, "notes", "", "condition notes")

	itemListCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	itemListCmd.Flags().StringVar(&listBrand, "brand", "", "filter by brand")
	itemListCmd.Flags().StringVar(&listCategory, "category", "", "filter by primary category")
	itemListCmd.Flags().StringVar(&listStore, "store", "", "filter by acquisition store")
	itemListCmd.Flags().BoolVar(&listUnsynced, "unsynced", false, "only items awaiting sync")
	itemListCmd.Flags().BoolVar(&listArchive, "archive", false, "list sold items instead")

	itemPromoteCmd.Flags().StringVar(&promotePlatform, "platform", "", "marketplace the item is listed on")
	itemPromoteCmd.Flags().StringVar(&promoteURL, "url", "", "listing URL")

	itemSoldCmd.Flags().StringVar(&soldPrice, "price", "", "sale price (required)")
	itemSoldCmd.Flags().StringVar(&soldPlatform, "platform", "", "marketplace it sold on")
	itemSoldCmd.Flags().StringVar(&soldFees, "fees", "", "marketplace fees")
	itemSoldCmd.Flags().StringVar(&soldShipping, "shipping", "", "shipping cost")
	itemSoldCmd.Flags().StringVar(&soldOn, "on", "", "sale date (default today)")

	itemDeleteCmd.Flags().BoolVar(&deleteForce, "force", false, "skip confirmation")

	itemCmd.AddCommand(itemAddCmd)
	itemCmd.AddCommand(itemListCmd)
	itemCmd.AddCommand(itemShowCmd)
	itemCmd.AddCommand(itemPromoteCmd)
	itemCmd.AddCommand(itemSoldCmd)
	itemCmd.AddCommand(itemRenameCmd)
	itemCmd.AddCommand(itemAttachCmd)
	itemCmd.AddCommand(itemDetachCmd)
	itemCmd.AddCommand(itemDeleteCmd)
	rootCmd.AddCommand(itemCmd)
}

package schema

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CurrentSchemaVersion is the document shape this package reads and writes.
// NormalizeItem upgrades older documents to this version.
const CurrentSchemaVersion = 3

// Status tracks an item through the resale pipeline.
type Status string

const (
	// StatusKeep marks items retained for personal use. They never list.
	StatusKeep Status = "keep"
	// StatusSourced is the entry state: acquired but not yet worked on.
	StatusSourced Status = "sourced"
	// StatusPrepped means cleaned/repaired/photographed, ready to list.
	StatusPrepped Status = "prepped"
	// StatusListed means live on a marketplace.
	StatusListed Status = "listed"
	// StatusSold is terminal. Sold items move to the archive collection.
	StatusSold Status = "sold"
)

// ValidStatuses lists every pipeline status in order.
var ValidStatuses = []Status{StatusKeep, StatusSourced, StatusPrepped, StatusListed, StatusSold}

// IsValid reports whether s is a known pipeline status.
func (s Status) IsValid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s ends the pipeline. Terminal items are
// archived and no longer appear in the active inventory.
func (s Status) IsTerminal() bool {
	return s == StatusSold
}

// Next returns the status that follows s in the pipeline, or s itself when s
// is terminal or off-pipeline (keep).
func (s Status) Next() Status {
	switch s {
	case StatusSourced:
		return StatusPrepped
	case StatusPrepped:
		return StatusListed
	case StatusListed:
		return StatusSold
	default:
		return s
	}
}

// Pair is a primary/secondary value pair used for category, colour, and
// material. Secondary is optional.
type Pair struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary,omitempty"`
}

// SizeLabel is the tagged garment size, split by sizing system gender.
type SizeLabel struct {
	Gender string `json:"gender,omitempty"` // mens, womens, unisex
	Value  string `json:"value,omitempty"`  // e.g. "M", "10.5", "32x34"
}

// Size combines the label with tape measurements in centimetres.
type Size struct {
	Label        SizeLabel          `json:"label"`
	Measurements map[string]float64 `json:"measurements,omitempty"` // e.g. "pit_to_pit": 52.5
}

// Flaw records a single defect found during inspection.
type Flaw struct {
	Type       string `json:"type"`               // stain, hole, pilling, ...
	Severity   string `json:"severity,omitempty"` // minor, moderate, severe
	Location   string `json:"location,omitempty"`
	Repairable bool   `json:"repairable,omitempty"`
}

// Condition is the inspection result: an overall grade plus an ordered flaw
// list. Flaw order is preserved; it mirrors the inspection sequence.
type Condition struct {
	Overall string `json:"overall,omitempty"` // nwt, excellent, good, fair, poor
	Flaws   []Flaw `json:"flaws,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// Pricing holds the monetary estimates for an item. Values are decimals, not
// floats: resale math must round-trip exactly.
type Pricing struct {
	EstimatedResaleValue   decimal.Decimal `json:"estimated_resale_value"`
	MinimumAcceptablePrice decimal.Decimal `json:"minimum_acceptable_price"`
	BrandPremiumMultiplier decimal.Decimal `json:"brand_premium_multiplier"`
}

// ListingStatus tracks marketplace state once an item is listed. All fields
// are empty until then.
type ListingStatus struct {
	Platform     string           `json:"platform,omitempty"`
	URL          string           `json:"url,omitempty"`
	ListedAt     *time.Time       `json:"listed_at,omitempty"`
	SoldAt       *time.Time       `json:"sold_at,omitempty"`
	SoldPrice    *decimal.Decimal `json:"sold_price,omitempty"`
	Fees         *decimal.Decimal `json:"fees,omitempty"`
	ShippingCost *decimal.Decimal `json:"shipping_cost,omitempty"`
}

// Acquisition records where and when the item was sourced.
type Acquisition struct {
	Date    *time.Time      `json:"date,omitempty"`
	Price   decimal.Decimal `json:"price"`
	StoreID string          `json:"store_id,omitempty"`
}

// SyncFlags is the per-record dirty state consulted by the sync coordinator.
// Unsynced is set by every local mutation and cleared only after a successful
// push of the snapshot that contained the record.
type SyncFlags struct {
	Unsynced bool       `json:"unsynced"`
	SyncedAt *time.Time `json:"synced_at,omitempty"`
}

// Metadata groups the bookkeeping fields shared by every item.
type Metadata struct {
	Acquisition Acquisition `json:"acquisition"`
	Status      Status      `json:"status"`
	Created     time.Time   `json:"created"`
	Updated     time.Time   `json:"updated"`
	Sync        SyncFlags   `json:"sync"`
}

// Item is one piece of inventory. It is the typed view of the JSON documents
// held in the inventory and archive collections.
type Item struct {
	// ===== Identity =====
	ID            string `json:"id"`
	SchemaVersion int    `json:"schema_version"`

	// ===== Garment description =====
	Brand    string `json:"brand,omitempty"`
	Category Pair   `json:"category"`
	Colour   Pair   `json:"colour"`
	Material Pair   `json:"material"`
	Size     Size   `json:"size"`

	// ===== Assessment =====
	Condition Condition `json:"condition"`
	Pricing   Pricing   `json:"pricing"`

	// ===== Pipeline =====
	Listing  ListingStatus `json:"listing_status"`
	Metadata Metadata      `json:"metadata"`
}

// Validate checks that the item is internally consistent. It is called on
// every write path into the store.
func (i *Item) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("id is required")
	}
	if i.SchemaVersion != CurrentSchemaVersion {
		return fmt.Errorf("schema_version must be %d (got %d)", CurrentSchemaVersion, i.SchemaVersion)
	}
	if !i.Metadata.Status.IsValid() {
		return fmt.Errorf("invalid status %q", i.Metadata.Status)
	}
	if i.Metadata.Created.IsZero() {
		return fmt.Errorf("metadata.created is required")
	}
	if i.Metadata.Updated.IsZero() {
		return fmt.Errorf("metadata.updated is required")
	}
	if i.Metadata.Updated.Before(i.Metadata.Created) {
		return fmt.Errorf("metadata.updated precedes metadata.created")
	}
	if i.Metadata.Status == StatusSold {
		if i.Listing.SoldAt == nil {
			return fmt.Errorf("sold item missing listing_status.sold_at")
		}
		if i.Listing.SoldPrice == nil {
			return fmt.Errorf("sold item missing listing_status.sold_price")
		}
	}
	if i.Pricing.MinimumAcceptablePrice.IsNegative() {
		return fmt.Errorf("minimum_acceptable_price must not be negative")
	}
	if i.Pricing.EstimatedResaleValue.IsNegative() {
		return fmt.Errorf("estimated_resale_value must not be negative")
	}
	return nil
}

// SetDefaults fills the fields every new item needs: schema version, status,
// creation timestamps, and the dirty flag. Existing values are preserved.
func (i *Item) SetDefaults(now time.Time) {
	if i.SchemaVersion == 0 {
		i.SchemaVersion = CurrentSchemaVersion
	}
	if i.Metadata.Status == "" {
		i.Metadata.Status = StatusSourced
	}
	if i.Metadata.Created.IsZero() {
		i.Metadata.Created = now.UTC()
	}
	if i.Metadata.Updated.IsZero() {
		i.Metadata.Updated = i.Metadata.Created
	}
	if i.Pricing.BrandPremiumMultiplier.IsZero() {
		i.Pricing.BrandPremiumMultiplier = decimal.NewFromInt(1)
	}
	i.Metadata.Sync.Unsynced = true
}

// Touch records a local mutation: bumps updated and sets the dirty flag.
// Every store write path calls this before persisting.
func (i *Item) Touch(now time.Time) {
	i.Metadata.Updated = now.UTC()
	i.Metadata.Sync.Unsynced = true
	i.Metadata.Sync.SyncedAt = nil
}

// MarkSynced clears the dirty flag after a successful push. Only the sync
// coordinator calls this.
func (i *Item) MarkSynced(at time.Time) {
	t := at.UTC()
	i.Metadata.Sync.Unsynced = false
	i.Metadata.Sync.SyncedAt = &t
}

// ProjectedProfit returns estimated resale value minus acquisition cost.
func (i *Item) ProjectedProfit() decimal.Decimal {
	return i.Pricing.EstimatedResaleValue.Sub(i.Metadata.Acquisition.Price)
}

// NetProfit returns the realized profit for a sold item: sold price minus
// fees, shipping, and acquisition cost. Returns zero and false when the item
// has not sold.
func (i *Item) NetProfit() (decimal.Decimal, bool) {
	if i.Listing.SoldPrice == nil {
		return decimal.Zero, false
	}
	net := i.Listing.SoldPrice.Sub(i.Metadata.Acquisition.Price)
	if i.Listing.Fees != nil {
		net = net.Sub(*i.Listing.Fees)
	}
	if i.Listing.ShippingCost != nil {
		net = net.Sub(*i.Listing.ShippingCost)
	}
	return net, true
}

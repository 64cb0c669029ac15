// Package model defines the receipt, catalogue, and budget types shared by the pipeline stages.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UncategorizedCategory is assigned to items the catalogue could not resolve.
const UncategorizedCategory = "Uncategorized"

// RawLineItem is a receipt entry as printed, before catalogue enrichment.
type RawLineItem struct {
	Name string `json:"name"`
	// UnitPrice is the amount charged for the whole line as printed, so
	// "2 x BAP WIT 3,58" carries 3.58. Totals sum it without multiplying by
	// Quantity.
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// Valid reports whether the item satisfies the raw line item invariants.
func (r RawLineItem) Valid() bool {
	return r.Name != "" && !r.UnitPrice.IsNegative() && r.Quantity >= 1
}

// ResolvedLineItem is a raw item enriched with catalogue metadata.
// Category is never empty; unresolved items carry UncategorizedCategory.
type ResolvedLineItem struct {
	RecordedAt time.Time `json:"recorded_at"`
	RawLineItem
	CanonicalName  string          `json:"canonical_name"`
	Category       string          `json:"category"`
	CataloguePrice decimal.Decimal `json:"catalogue_price"`
	IsPromotional  bool            `json:"is_promotional"`
}

// Unresolved builds the fallback entry for a raw item with no catalogue match.
func Unresolved(raw RawLineItem) ResolvedLineItem {
	return ResolvedLineItem{
		RawLineItem:    raw,
		CanonicalName:  raw.Name,
		Category:       UncategorizedCategory,
		CataloguePrice: raw.UnitPrice,
		IsPromotional:  false,
	}
}

// Resolved builds an entry from a catalogue match. The checkout price of the
// raw item is kept; the catalogue price is informational.
func Resolved(raw RawLineItem, product Product) ResolvedLineItem {
	category := product.Category
	if category == "" {
		category = UncategorizedCategory
	}
	name := product.Name
	if name == "" {
		name = raw.Name
	}
	return ResolvedLineItem{
		RawLineItem:    raw,
		CanonicalName:  name,
		Category:       category,
		CataloguePrice: product.Price,
		IsPromotional:  product.IsPromotional,
	}
}

// SumUnitPrices returns the sum of UnitPrice over items.
func SumUnitPrices(items []ResolvedLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice)
	}
	return total
}

package testutil

import (
	"time"

	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"
)

// ItemBuilder builds resolved line items for seeding a ledger.
//
//	items := testutil.NewItems().
//		Add("BAP WIT", "Fruit", "1.79").
//		AddQty("COMMANDEUR", "Alcohol", "3.99", 2).
//		Build()
type ItemBuilder struct {
	at    time.Time
	items []model.ResolvedLineItem
}

// NewItems starts an empty builder. Items are stamped with a fixed time.
func NewItems() *ItemBuilder {
	return &ItemBuilder{at: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

// At sets the recorded time for items added afterwards.
func (b *ItemBuilder) At(t time.Time) *ItemBuilder {
	b.at = t
	return b
}

// Add appends one unit of name in category at price.
func (b *ItemBuilder) Add(name, category, price string) *ItemBuilder {
	return b.AddQty(name, category, price, 1)
}

// AddQty appends qty units of name in category at price each.
func (b *ItemBuilder) AddQty(name, category, price string, qty int) *ItemBuilder {
	p := decimal.RequireFromString(price)
	b.items = append(b.items, model.ResolvedLineItem{
		RecordedAt: b.at,
		RawLineItem: model.RawLineItem{
			Name:      name,
			UnitPrice: p,
			Quantity:  qty,
		},
		CanonicalName:  name,
		Category:       category,
		CataloguePrice: p,
	})
	return b
}

// Build returns a copy of the items added so far.
func (b *ItemBuilder) Build() []model.ResolvedLineItem {
	return append([]model.ResolvedLineItem(nil), b.items...)
}

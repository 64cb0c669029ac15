// Package catalogue resolves receipt names to catalogue products.
//
// Matching is exact: the key is the name exactly as printed on the receipt.
// Other strategies plug in through service.ProductLookup and can be combined
// with Chain.
package catalogue

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"
)

// Catalogue is an in-memory, exact-match product catalogue.
type Catalogue struct {
	products map[string]model.Product
	mu       sync.RWMutex
}

// New builds a catalogue from products, keyed by Product.Key.
func New(products []model.Product) (*Catalogue, error) {
	c := &Catalogue{products: make(map[string]model.Product, len(products))}
	for _, p := range products {
		if err := c.Add(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Default returns the built-in Albert Heijn sample catalogue.
func Default() *Catalogue {
	c, err := New(DefaultProducts())
	if err != nil {
		panic(fmt.Sprintf("invalid built-in catalogue: %v", err))
	}
	return c
}

// DefaultProducts lists the built-in catalogue entries.
func DefaultProducts() []model.Product {
	return []model.Product{
		{Key: "BAP WIT", Name: "Bananas White (Fairtrade)", Category: "Fruit", Price: decimal.RequireFromString("1.79")},
		{Key: "AH BIO MLK", Name: "AH Organic Semi-Skimmed Milk 1L", Category: "Dairy", Price: decimal.RequireFromString("1.35")},
		{Key: "BB ROERBAK ITAL", Name: "Bellella Italian Stir Fry Mix", Category: "Vegetables", Price: decimal.RequireFromString("2.49"), IsPromotional: true},
		{Key: "COMMANDEUR", Name: "Gulpener Commandeur Beer", Category: "Alcohol", Price: decimal.RequireFromString("3.99")},
	}
}

// Add inserts or replaces a product.
func (c *Catalogue) Add(p model.Product) error {
	if p.Key == "" {
		return fmt.Errorf("%w: catalogue product needs a key", common.ErrInvalidConfig)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: catalogue product %q has a negative price", common.ErrInvalidConfig, p.Key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.Key] = p
	return nil
}

// LookupProduct implements service.ProductLookup.
func (c *Catalogue) LookupProduct(_ context.Context, name string) (model.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[name]
	if !ok {
		return model.Product{}, fmt.Errorf("%w: %q", common.ErrNotFound, name)
	}
	return p, nil
}

// Products returns all products sorted by key.
func (c *Catalogue) Products() []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Categories returns the distinct categories in the catalogue, sorted.
func (c *Catalogue) Categories() []string {
	seen := make(map[string]struct{})
	for _, p := range c.Products() {
		if p.Category != "" {
			seen[p.Category] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for category := range seen {
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of products.
func (c *Catalogue) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

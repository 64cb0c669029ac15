package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// CategoryTotals maps category names to amounts and remembers the order in
// which categories were first added. Iteration follows that order.
type CategoryTotals struct {
	amounts map[string]decimal.Decimal
	order   []string
}

// NewCategoryTotals returns an empty CategoryTotals.
func NewCategoryTotals() CategoryTotals {
	return CategoryTotals{amounts: make(map[string]decimal.Decimal)}
}

// Add increases the total for category by amount.
func (c *CategoryTotals) Add(category string, amount decimal.Decimal) {
	if c.amounts == nil {
		c.amounts = make(map[string]decimal.Decimal)
	}
	current, ok := c.amounts[category]
	if !ok {
		c.order = append(c.order, category)
	}
	c.amounts[category] = current.Add(amount)
}

// Get returns the total for category and whether it is present.
func (c CategoryTotals) Get(category string) (decimal.Decimal, bool) {
	amount, ok := c.amounts[category]
	return amount, ok
}

// Categories returns category names in insertion order.
func (c CategoryTotals) Categories() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Len returns the number of categories.
func (c CategoryTotals) Len() int {
	return len(c.order)
}

// Each calls fn for every category in insertion order.
func (c CategoryTotals) Each(fn func(category string, amount decimal.Decimal)) {
	for _, category := range c.order {
		fn(category, c.amounts[category])
	}
}

// Total returns the sum across all categories.
func (c CategoryTotals) Total() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range c.amounts {
		total = total.Add(amount)
	}
	return total
}

// Clone returns an independent copy.
func (c CategoryTotals) Clone() CategoryTotals {
	out := NewCategoryTotals()
	c.Each(out.Add)
	return out
}

// Map returns the totals as a plain map. Order is lost.
func (c CategoryTotals) Map() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(c.amounts))
	for k, v := range c.amounts {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the totals as a JSON object in insertion order.
func (c CategoryTotals) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, category := range c.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(category)
		if err != nil {
			return nil, fmt.Errorf("failed to encode category %q: %w", category, err)
		}
		value, err := json.Marshal(c.amounts[category])
		if err != nil {
			return nil, fmt.Errorf("failed to encode amount for %q: %w", category, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the document.
func (c *CategoryTotals) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read category totals: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("category totals must be a JSON object")
	}

	*c = NewCategoryTotals()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read category name: %w", err)
		}
		category, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected category key %v", keyTok)
		}

		var amount decimal.Decimal
		if err := dec.Decode(&amount); err != nil {
			return fmt.Errorf("failed to decode amount for %q: %w", category, err)
		}
		c.Add(category, amount)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to close category totals: %w", err)
	}
	return nil
}

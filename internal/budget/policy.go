// Package budget holds per-category spending limits and classifies spending against them.
package budget

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"
)

var (
	// DefaultLimit applies to categories without a configured limit.
	DefaultLimit = decimal.NewFromInt(100)

	cautionRatio = decimal.RequireFromString("0.8")
)

// DefaultLimits returns the limits the application ships with.
func DefaultLimits() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"Fruit":      decimal.NewFromInt(20),
		"Dairy":      decimal.NewFromInt(15),
		"Vegetables": decimal.NewFromInt(25),
		"Alcohol":    decimal.NewFromInt(30),
		"Snacks":     decimal.NewFromInt(10),
	}
}

// Policy maps categories to spending limits. It is safe for concurrent use.
type Policy struct {
	limits       map[string]decimal.Decimal
	defaultLimit decimal.Decimal
	mu           sync.RWMutex
}

// NewPolicy creates a policy from limits. Negative limits are rejected.
func NewPolicy(limits map[string]decimal.Decimal) (*Policy, error) {
	p := &Policy{
		limits:       make(map[string]decimal.Decimal),
		defaultLimit: DefaultLimit,
	}
	if err := p.Replace(limits); err != nil {
		return nil, err
	}
	return p, nil
}

// WithDefaultLimit changes the limit used for unconfigured categories.
func (p *Policy) WithDefaultLimit(limit decimal.Decimal) error {
	if err := validateLimit("default", limit); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defaultLimit = limit
	return nil
}

// LimitFor returns the configured limit for category, or the default limit.
func (p *Policy) LimitFor(category string) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if limit, ok := p.limits[category]; ok {
		return limit
	}
	return p.defaultLimit
}

// Classify places spent against the limit for category.
func (p *Policy) Classify(category string, spent decimal.Decimal) model.AlertTier {
	return Tier(spent, p.LimitFor(category))
}

// Tier classifies spent against limit: EXCEEDED above the limit, CAUTION
// above 80% of it, OK otherwise.
func Tier(spent, limit decimal.Decimal) model.AlertTier {
	switch {
	case spent.GreaterThan(limit):
		return model.TierExceeded
	case spent.GreaterThan(limit.Mul(cautionRatio)):
		return model.TierCaution
	default:
		return model.TierOK
	}
}

// Evaluate returns one alert per CAUTION or EXCEEDED category, in the
// iteration order of totals.
func (p *Policy) Evaluate(totals model.CategoryTotals) []model.Alert {
	alerts := make([]model.Alert, 0)
	totals.Each(func(category string, spent decimal.Decimal) {
		limit := p.LimitFor(category)
		tier := Tier(spent, limit)
		if tier.Visible() {
			alerts = append(alerts, model.NewAlert(category, tier, spent, limit))
		}
	})
	return alerts
}

// SetLimit configures the limit for one category.
func (p *Policy) SetLimit(category string, limit decimal.Decimal) error {
	if category == "" {
		return fmt.Errorf("%w: budget category cannot be empty", common.ErrInvalidConfig)
	}
	if err := validateLimit(category, limit); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.limits[category] = limit
	return nil
}

// Replace swaps all configured limits at once. Nothing changes on error.
func (p *Policy) Replace(limits map[string]decimal.Decimal) error {
	next := make(map[string]decimal.Decimal, len(limits))
	for category, limit := range limits {
		if category == "" {
			return fmt.Errorf("%w: budget category cannot be empty", common.ErrInvalidConfig)
		}
		if err := validateLimit(category, limit); err != nil {
			return err
		}
		next[category] = limit
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.limits = next
	return nil
}

// Limits returns a copy of the configured limits.
func (p *Policy) Limits() map[string]decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[string]decimal.Decimal, len(p.limits))
	for category, limit := range p.limits {
		out[category] = limit
	}
	return out
}

// Categories returns the configured categories sorted by name.
func (p *Policy) Categories() []string {
	limits := p.Limits()
	out := make([]string, 0, len(limits))
	for category := range limits {
		out = append(out, category)
	}
	sort.Strings(out)
	return out
}

func validateLimit(category string, limit decimal.Decimal) error {
	if limit.IsNegative() {
		return fmt.Errorf("%w: budget for %s cannot be negative (%s)", common.ErrInvalidConfig, category, limit)
	}
	return nil
}

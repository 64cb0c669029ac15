// Package finance records resolved receipt items and builds the financial
// snapshot for a run.
package finance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Veraticus/smartspend/internal/budget"
	"github.com/Veraticus/smartspend/internal/ledger"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/google/uuid"
)

// Builder turns resolved items into a FinancialSnapshot. Recording, totalling
// and evaluation run under one lock so concurrent builds see consistent totals.
type Builder struct {
	ledger *ledger.Ledger
	policy *budget.Policy
	now    func() time.Time
	mu     sync.Mutex
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder creates a builder over a shared ledger and policy.
func NewBuilder(l *ledger.Ledger, p *budget.Policy, opts ...Option) *Builder {
	b := &Builder{ledger: l, policy: p, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build records resolved into the ledger and returns the snapshot. TotalSpend
// covers this call's items only; CategoryTotals and Alerts are cumulative
// over the whole ledger.
func (b *Builder) Build(ctx context.Context, resolved []model.ResolvedLineItem) (*model.FinancialSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	createdAt := b.now().UTC()

	transactions := make([]model.ResolvedLineItem, len(resolved))
	for i, item := range resolved {
		if item.RecordedAt.IsZero() {
			item.RecordedAt = createdAt
		}
		transactions[i] = item
	}

	// Once the append lands the snapshot must be returned; the totals come
	// back with it so nothing after the commit can fail.
	totals, err := b.ledger.RecordWithTotals(ctx, transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot: %w", err)
	}

	return &model.FinancialSnapshot{
		RunID:          uuid.NewString(),
		CreatedAt:      createdAt,
		TotalSpend:     model.SumUnitPrices(transactions),
		CategoryTotals: totals,
		Alerts:         b.policy.Evaluate(totals),
		Transactions:   transactions,
	}, nil
}

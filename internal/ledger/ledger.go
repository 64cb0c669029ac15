// Package ledger keeps the append-only log of resolved receipt items and
// derives cumulative category totals from it.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Veraticus/smartspend/internal/model"
	"github.com/Veraticus/smartspend/internal/service"
)

// Ledger is the transaction log shared by every pipeline run.
type Ledger struct {
	store  service.LedgerStore
	logger *slog.Logger
	mu     sync.RWMutex
}

// New creates a ledger over store. A nil store keeps the log in memory.
func New(store service.LedgerStore, logger *slog.Logger) *Ledger {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{store: store, logger: logger}
}

// Record appends items to the log in input order.
func (l *Ledger) Record(ctx context.Context, items []model.ResolvedLineItem) error {
	if len(items) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Append(ctx, items); err != nil {
		return fmt.Errorf("failed to record %d items: %w", len(items), err)
	}

	l.logger.Debug("recorded transactions", "count", len(items))
	return nil
}

// RecordWithTotals appends items and returns the category totals of the log
// including them. The prior log is read before the append, so once the append
// succeeds the totals cannot fail to load.
func (l *Ledger) RecordWithTotals(ctx context.Context, items []model.ResolvedLineItem) (model.CategoryTotals, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prior, err := l.store.All(ctx)
	if err != nil {
		return model.CategoryTotals{}, fmt.Errorf("failed to load transaction log: %w", err)
	}

	if len(items) > 0 {
		if err := l.store.Append(ctx, items); err != nil {
			return model.CategoryTotals{}, fmt.Errorf("failed to record %d items: %w", len(items), err)
		}
		l.logger.Debug("recorded transactions", "count", len(items))
	}

	log := make([]model.ResolvedLineItem, 0, len(prior)+len(items))
	log = append(log, prior...)
	log = append(log, items...)
	return Totals(log), nil
}

// CategoryTotals sums UnitPrice per category over the full log. Categories
// appear in the order they were first logged.
func (l *Ledger) CategoryTotals(ctx context.Context) (model.CategoryTotals, error) {
	items, err := l.Transactions(ctx)
	if err != nil {
		return model.CategoryTotals{}, err
	}
	return Totals(items), nil
}

// Transactions returns a copy of the full log.
func (l *Ledger) Transactions(ctx context.Context) ([]model.ResolvedLineItem, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	items, err := l.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction log: %w", err)
	}
	return items, nil
}

// Totals computes category totals for items.
func Totals(items []model.ResolvedLineItem) model.CategoryTotals {
	totals := model.NewCategoryTotals()
	for _, item := range items {
		category := item.Category
		if category == "" {
			category = model.UncategorizedCategory
		}
		totals.Add(category, item.UnitPrice)
	}
	return totals
}

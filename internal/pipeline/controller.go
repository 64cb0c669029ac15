// Package pipeline sequences a receipt through ingestion, resolution,
// evaluation and summarization, and keeps the last successful result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/smartspend/internal/budget"
	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/ledger"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/Veraticus/smartspend/internal/service"
	"github.com/shopspring/decimal"
)

// Ingestor reads a receipt source into raw items.
type Ingestor interface {
	Ingest(ctx context.Context, source string) ([]model.RawLineItem, error)
}

// Resolver enriches raw items. It must return one item per input.
type Resolver interface {
	Resolve(ctx context.Context, raw []model.RawLineItem) []model.ResolvedLineItem
}

// SnapshotBuilder records resolved items and builds the run's snapshot.
type SnapshotBuilder interface {
	Build(ctx context.Context, resolved []model.ResolvedLineItem) (*model.FinancialSnapshot, error)
}

// Composer renders a snapshot as summary text.
type Composer interface {
	Compose(ctx context.Context, snapshot *model.FinancialSnapshot) string
}

// Observer is called on every state entry.
type Observer func(State)

// Deps are the collaborators of a Controller. Budgets and Publisher are
// optional.
type Deps struct {
	Ingestor  Ingestor
	Resolver  Resolver
	Builder   SnapshotBuilder
	Composer  Composer
	Ledger    *ledger.Ledger
	Policy    *budget.Policy
	Budgets   service.BudgetStore
	Publisher service.AlertPublisher
	Logger    *slog.Logger
}

// Controller runs the pipeline. Runs are serialized; accessors return copies.
type Controller struct {
	deps      Deps
	logger    *slog.Logger
	lastErr   error
	snapshot  *model.FinancialSnapshot
	resolved  []model.ResolvedLineItem
	observers []Observer
	state     State
	runMu     sync.Mutex
	mu        sync.RWMutex
}

// New creates a controller.
func New(deps Deps) (*Controller, error) {
	switch {
	case deps.Ingestor == nil:
		return nil, fmt.Errorf("%w: pipeline requires an ingestor", common.ErrInvalidConfig)
	case deps.Resolver == nil:
		return nil, fmt.Errorf("%w: pipeline requires a resolver", common.ErrInvalidConfig)
	case deps.Builder == nil:
		return nil, fmt.Errorf("%w: pipeline requires a snapshot builder", common.ErrInvalidConfig)
	case deps.Composer == nil:
		return nil, fmt.Errorf("%w: pipeline requires a composer", common.ErrInvalidConfig)
	case deps.Ledger == nil:
		return nil, fmt.Errorf("%w: pipeline requires a ledger", common.ErrInvalidConfig)
	case deps.Policy == nil:
		return nil, fmt.Errorf("%w: pipeline requires a budget policy", common.ErrInvalidConfig)
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{deps: deps, logger: logger}, nil
}

// OnStateChange registers an observer.
func (c *Controller) OnStateChange(obs Observer) {
	if obs == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, obs)
}

// Run processes source and returns the summary text. If any stage fails the
// previous run's snapshot stays in place. ctx is honoured up to the ledger
// write; after that the run always completes.
func (c *Controller) Run(ctx context.Context, source string) (string, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	start := time.Now()
	c.logger.Info("pipeline run started", "source", source)

	var (
		raw      []model.RawLineItem
		resolved []model.ResolvedLineItem
		snapshot *model.FinancialSnapshot
		summary  string
	)

	if err := c.stage(ctx, StateIngesting, func() error {
		var err error
		raw, err = c.deps.Ingestor.Ingest(ctx, source)
		return err
	}); err != nil {
		return "", err
	}

	if err := c.stage(ctx, StateResolving, func() error {
		resolved = c.deps.Resolver.Resolve(ctx, raw)
		if len(resolved) != len(raw) {
			return fmt.Errorf("resolver returned %d items for %d inputs", len(resolved), len(raw))
		}
		return nil
	}); err != nil {
		return "", err
	}

	if err := c.stage(ctx, StateEvaluating, func() error {
		var err error
		snapshot, err = c.deps.Builder.Build(ctx, resolved)
		return err
	}); err != nil {
		return "", err
	}

	// The ledger has been written, so the run finishes even if ctx is
	// canceled from here on. A canceled ctx only drops the narrative.
	if err := c.stage(context.WithoutCancel(ctx), StateSummarizing, func() error {
		summary = c.deps.Composer.Compose(ctx, snapshot)
		return nil
	}); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.snapshot = snapshot.Clone()
	c.resolved = cloneItems(snapshot.Transactions)
	c.lastErr = nil
	c.mu.Unlock()
	c.enter(StateDone)

	c.logger.Info("pipeline run finished",
		"run_id", snapshot.RunID,
		"items", len(snapshot.Transactions),
		"total_spend", snapshot.TotalSpend.StringFixed(2),
		"alerts", len(snapshot.Alerts),
		"duration", time.Since(start))

	c.publish(ctx, snapshot)
	return summary, nil
}

// stage enters state and runs fn. Configuration errors are returned as-is;
// anything else becomes a *StageError.
func (c *Controller) stage(ctx context.Context, state State, fn func() error) error {
	c.enter(state)

	err := ctx.Err()
	if err == nil {
		err = fn()
	}
	if err == nil {
		return nil
	}

	if !errors.Is(err, common.ErrMissingConfig) && !errors.Is(err, common.ErrInvalidConfig) {
		err = &StageError{Stage: state, Err: err}
	}

	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()

	c.logger.Error("pipeline run aborted", "stage", state.String(), "error", err)
	return err
}

func (c *Controller) enter(state State) {
	c.mu.Lock()
	c.state = state
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	c.logger.Debug("pipeline state", "state", state.String())
	for _, obs := range observers {
		obs(state)
	}
}

func (c *Controller) publish(ctx context.Context, snapshot *model.FinancialSnapshot) {
	if c.deps.Publisher == nil || len(snapshot.Alerts) == 0 {
		return
	}
	if err := c.deps.Publisher.PublishAlerts(ctx, snapshot); err != nil {
		c.logger.Warn("failed to publish budget alerts",
			"run_id", snapshot.RunID,
			"alerts", len(snapshot.Alerts),
			"error", err)
	}
}

// State returns the current state. After an aborted run it is the stage that failed.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// LastError returns the error of the most recent run, or nil if it succeeded.
func (c *Controller) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// LastSnapshot returns a copy of the last successful snapshot.
func (c *Controller) LastSnapshot() (*model.FinancialSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return nil, false
	}
	return c.snapshot.Clone(), true
}

// LastResolvedItems returns a copy of the last successful run's resolved items.
func (c *Controller) LastResolvedItems() ([]model.ResolvedLineItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.resolved == nil {
		return nil, false
	}
	return cloneItems(c.resolved), true
}

// SetBudget sets and persists the limit for category.
func (c *Controller) SetBudget(ctx context.Context, category string, limit decimal.Decimal) error {
	previous := c.deps.Policy.Limits()
	if err := c.deps.Policy.SetLimit(category, limit); err != nil {
		return err
	}

	if c.deps.Budgets != nil {
		if err := c.deps.Budgets.SaveBudget(ctx, category, limit); err != nil {
			if rollbackErr := c.deps.Policy.Replace(previous); rollbackErr != nil {
				c.logger.Error("failed to roll back budget change", "category", category, "error", rollbackErr)
			}
			return fmt.Errorf("failed to save budget for %s: %w", category, err)
		}
	}

	c.logger.Info("budget updated", "category", category, "limit", limit.StringFixed(2))
	return nil
}

// Budgets returns the configured limits.
func (c *Controller) Budgets() map[string]decimal.Decimal {
	return c.deps.Policy.Limits()
}

// LimitFor returns the limit that applies to category.
func (c *Controller) LimitFor(category string) decimal.Decimal {
	return c.deps.Policy.LimitFor(category)
}

// CumulativeCategoryTotals returns totals over the whole ledger.
func (c *Controller) CumulativeCategoryTotals(ctx context.Context) (model.CategoryTotals, error) {
	return c.deps.Ledger.CategoryTotals(ctx)
}

// CurrentAlerts evaluates the budget policy against the whole ledger.
func (c *Controller) CurrentAlerts(ctx context.Context) ([]model.Alert, error) {
	totals, err := c.deps.Ledger.CategoryTotals(ctx)
	if err != nil {
		return nil, err
	}
	return c.deps.Policy.Evaluate(totals), nil
}

// Transactions returns the full transaction log.
func (c *Controller) Transactions(ctx context.Context) ([]model.ResolvedLineItem, error) {
	return c.deps.Ledger.Transactions(ctx)
}

func cloneItems(items []model.ResolvedLineItem) []model.ResolvedLineItem {
	out := make([]model.ResolvedLineItem, len(items))
	copy(out, items)
	return out
}

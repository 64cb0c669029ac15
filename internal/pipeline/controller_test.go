package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Veraticus/smartspend/internal/budget"
	"github.com/Veraticus/smartspend/internal/catalogue"
	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/finance"
	"github.com/Veraticus/smartspend/internal/ingest"
	"github.com/Veraticus/smartspend/internal/ledger"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/Veraticus/smartspend/internal/resolver"
	"github.com/Veraticus/smartspend/internal/summary"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	controller *Controller
	ledger     *ledger.Ledger
	policy     *budget.Policy
	budgets    *memoryBudgets
	publisher  *recordingPublisher
	dir        string
}

func newFixture(t *testing.T, limits map[string]decimal.Decimal) *fixture {
	t.Helper()

	policy, err := budget.NewPolicy(limits)
	require.NoError(t, err)
	l := ledger.New(nil, nil)
	budgets := &memoryBudgets{limits: map[string]decimal.Decimal{}}
	publisher := &recordingPublisher{}

	controller, err := New(Deps{
		Ingestor:  ingest.New(nil, nil, nil),
		Resolver:  resolver.New(catalogue.Default(), nil),
		Builder:   finance.NewBuilder(l, policy),
		Composer:  summary.NewComposer(nil, nil),
		Ledger:    l,
		Policy:    policy,
		Budgets:   budgets,
		Publisher: publisher,
	})
	require.NoError(t, err)

	return &fixture{
		controller: controller,
		ledger:     l,
		policy:     policy,
		budgets:    budgets,
		publisher:  publisher,
		dir:        t.TempDir(),
	}
}

func (f *fixture) receipt(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type memoryBudgets struct {
	err    error
	limits map[string]decimal.Decimal
	mu     sync.Mutex
}

func (m *memoryBudgets) SaveBudget(_ context.Context, category string, limit decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.limits[category] = limit
	return nil
}

func (m *memoryBudgets) Budgets(context.Context) (map[string]decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(m.limits))
	for k, v := range m.limits {
		out[k] = v
	}
	return out, nil
}

type recordingPublisher struct {
	err       error
	snapshots []*model.FinancialSnapshot
	mu        sync.Mutex
}

func (r *recordingPublisher) PublishAlerts(_ context.Context, s *model.FinancialSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func TestRun_HappyPath(t *testing.T) {
	f := newFixture(t, map[string]decimal.Decimal{"Fruit": d("20")})

	var states []State
	f.controller.OnStateChange(func(s State) { states = append(states, s) })

	text, err := f.controller.Run(context.Background(), f.receipt(t, "r.txt", "BAP WIT 1,79\nTOTAAL 1,79\n"))
	require.NoError(t, err)

	assert.Contains(t, text, "**Total Spend:** €1.79")
	assert.Contains(t, text, "- Fruit: €1.79")
	assert.Contains(t, text, summary.WithinBudgetMessage)
	assert.Equal(t, []State{StateIngesting, StateResolving, StateEvaluating, StateSummarizing, StateDone}, states)
	assert.Equal(t, StateDone, f.controller.State())
	assert.NoError(t, f.controller.LastError())

	snap, ok := f.controller.LastSnapshot()
	require.True(t, ok)
	assert.True(t, snap.TotalSpend.Equal(d("1.79")))
	assert.Empty(t, snap.Alerts)

	items, ok := f.controller.LastResolvedItems()
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "Bananas White (Fairtrade)", items[0].CanonicalName)
	assert.Equal(t, 0, f.publisher.count(), "nothing to publish without alerts")
}

func TestRun_TwoRunsAccumulate(t *testing.T) {
	f := newFixture(t, map[string]decimal.Decimal{"Fruit": d("20")})
	ctx := context.Background()
	path := f.receipt(t, "r.txt", "BAP WIT 1,79\n")

	_, err := f.controller.Run(ctx, path)
	require.NoError(t, err)
	_, err = f.controller.Run(ctx, path)
	require.NoError(t, err)

	snap, _ := f.controller.LastSnapshot()
	assert.True(t, snap.TotalSpend.Equal(d("1.79")))

	totals, err := f.controller.CumulativeCategoryTotals(ctx)
	require.NoError(t, err)
	fruit, _ := totals.Get("Fruit")
	assert.True(t, fruit.Equal(d("3.58")))

	log, err := f.controller.Transactions(ctx)
	require.NoError(t, err)
	assert.Len(t, log, 2)
}

func TestRun_AlertsArePublished(t *testing.T) {
	f := newFixture(t, map[string]decimal.Decimal{"Alcohol": d("30")})
	ctx := context.Background()

	require.NoError(t, f.ledger.Record(ctx, []model.ResolvedLineItem{{
		RawLineItem: model.RawLineItem{Name: "WIJN", UnitPrice: d("25"), Quantity: 1},
		Category:    "Alcohol",
	}}))

	text, err := f.controller.Run(ctx, f.receipt(t, "r.txt", "COMMANDEUR 3,99\n"))
	require.NoError(t, err)

	assert.Contains(t, text, "**Alerts:**")
	assert.Contains(t, text, "CAUTION: You are nearing your Alcohol budget.")
	require.Equal(t, 1, f.publisher.count())
	assert.Len(t, f.publisher.snapshots[0].Alerts, 1)

	alerts, err := f.controller.CurrentAlerts(ctx)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestRun_PublishFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(t, map[string]decimal.Decimal{"Snacks": d("1")})
	f.publisher.err = errors.New("broker down")

	_, err := f.controller.Run(context.Background(), f.receipt(t, "r.txt", "XYZ999 500,00\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.publisher.count())
}

func TestRun_EmptyReceipt(t *testing.T) {
	f := newFixture(t, budget.DefaultLimits())
	ctx := context.Background()

	_, err := f.controller.Run(ctx, f.receipt(t, "a.txt", "BAP WIT 1,79\n"))
	require.NoError(t, err)

	text, err := f.controller.Run(ctx, f.receipt(t, "empty.txt", "ALBERT HEIJN\nthank you\n"))
	require.NoError(t, err)
	assert.Contains(t, text, "**Total Spend:** €0.00")
	assert.Contains(t, text, "- Fruit: €1.79")

	snap, ok := f.controller.LastSnapshot()
	require.True(t, ok)
	assert.True(t, snap.TotalSpend.IsZero())
	assert.Empty(t, snap.Transactions)
	fruit, _ := snap.CategoryTotals.Get("Fruit")
	assert.True(t, fruit.Equal(d("1.79")))
}

func TestRun_AbortKeepsPreviousSnapshot(t *testing.T) {
	f := newFixture(t, budget.DefaultLimits())
	ctx := context.Background()

	_, err := f.controller.Run(ctx, f.receipt(t, "a.txt", "BAP WIT 1,79\n"))
	require.NoError(t, err)
	before, _ := f.controller.LastSnapshot()

	_, err = f.controller.Run(ctx, filepath.Join(f.dir, "missing.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrStageFailed)
	stage, ok := FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, StateIngesting, stage)
	assert.Equal(t, StateIngesting, f.controller.State())
	assert.Equal(t, err, f.controller.LastError())

	after, ok := f.controller.LastSnapshot()
	require.True(t, ok)
	assert.Equal(t, before.RunID, after.RunID)
}

func TestRun_ImageWithoutOCRIsConfigurationError(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.controller.Run(context.Background(), f.receipt(t, "r.png", "png"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
	_, isStage := FailedStage(err)
	assert.False(t, isStage)

	_, ok := f.controller.LastSnapshot()
	assert.False(t, ok)
}

func TestRun_CanceledContext(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.controller.Run(ctx, f.receipt(t, "r.txt", "BAP WIT 1,79\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, common.ErrStageFailed)

	log, err := f.controller.Transactions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestRun_CancelAfterCommitStillCompletes(t *testing.T) {
	f := newFixture(t, map[string]decimal.Decimal{"Fruit": d("20")})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.controller.OnStateChange(func(s State) {
		if s == StateSummarizing {
			cancel()
		}
	})

	text, err := f.controller.Run(ctx, f.receipt(t, "r.txt", "BAP WIT 1,79\n"))
	require.NoError(t, err)
	assert.Contains(t, text, "- Fruit: €1.79")
	assert.Equal(t, StateDone, f.controller.State())
	assert.NoError(t, f.controller.LastError())

	snap, ok := f.controller.LastSnapshot()
	require.True(t, ok)
	retained, _ := snap.CategoryTotals.Get("Fruit")

	totals, err := f.controller.CumulativeCategoryTotals(context.Background())
	require.NoError(t, err)
	fruit, _ := totals.Get("Fruit")
	assert.True(t, fruit.Equal(d("1.79")))
	assert.True(t, retained.Equal(fruit))
}

type failingBuilder struct{}

func (failingBuilder) Build(context.Context, []model.ResolvedLineItem) (*model.FinancialSnapshot, error) {
	return nil, errors.New("ledger unavailable")
}

func TestRun_EvaluatingFailure(t *testing.T) {
	policy, err := budget.NewPolicy(nil)
	require.NoError(t, err)
	c, err := New(Deps{
		Ingestor: ingest.New(nil, nil, nil),
		Resolver: resolver.New(nil, nil),
		Builder:  failingBuilder{},
		Composer: summary.NewComposer(nil, nil),
		Ledger:   ledger.New(nil, nil),
		Policy:   policy,
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "r.txt")
	require.NoError(t, os.WriteFile(path, []byte("BAP WIT 1,79"), 0o600))

	_, err = c.Run(context.Background(), path)
	stage, ok := FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, StateEvaluating, stage)
	assert.Contains(t, err.Error(), "pipeline aborted while evaluating")

	_, ok = c.LastResolvedItems()
	assert.False(t, ok)
}

func TestAccessorsReturnCopies(t *testing.T) {
	f := newFixture(t, budget.DefaultLimits())
	_, err := f.controller.Run(context.Background(), f.receipt(t, "r.txt", "BAP WIT 1,79\n"))
	require.NoError(t, err)

	snap, _ := f.controller.LastSnapshot()
	snap.Alerts = append(snap.Alerts, model.Alert{Category: "Fake"})
	snap.Transactions[0].Category = "Tampered"
	snap.CategoryTotals.Add("Fake", d("1"))

	items, _ := f.controller.LastResolvedItems()
	items[0].Category = "Tampered"

	again, _ := f.controller.LastSnapshot()
	assert.Empty(t, again.Alerts)
	assert.Equal(t, "Fruit", again.Transactions[0].Category)
	assert.Equal(t, 1, again.CategoryTotals.Len())

	itemsAgain, _ := f.controller.LastResolvedItems()
	assert.Equal(t, "Fruit", itemsAgain[0].Category)

	budgets := f.controller.Budgets()
	budgets["Fruit"] = d("0")
	assert.True(t, f.controller.LimitFor("Fruit").Equal(d("20")))
}

func TestSetBudget(t *testing.T) {
	f := newFixture(t, budget.DefaultLimits())
	ctx := context.Background()

	require.NoError(t, f.controller.SetBudget(ctx, "Fruit", d("1")))
	assert.True(t, f.controller.Budgets()["Fruit"].Equal(d("1")))
	stored, _ := f.budgets.Budgets(ctx)
	assert.True(t, stored["Fruit"].Equal(d("1")))

	text, err := f.controller.Run(ctx, f.receipt(t, "r.txt", "BAP WIT 1,79\n"))
	require.NoError(t, err)
	assert.Contains(t, text, "WARNING: You have exceeded your Fruit budget! (Spent: €1.79 / Limit: €1.00)")

	assert.ErrorIs(t, f.controller.SetBudget(ctx, "Fruit", d("-5")), common.ErrInvalidConfig)
	assert.True(t, f.controller.Budgets()["Fruit"].Equal(d("1")))
}

func TestSetBudget_StoreFailureRollsBack(t *testing.T) {
	f := newFixture(t, budget.DefaultLimits())
	f.budgets.err = errors.New("read-only database")

	err := f.controller.SetBudget(context.Background(), "Dairy", d("99"))
	require.Error(t, err)
	assert.True(t, f.controller.Budgets()["Dairy"].Equal(d("15")))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Deps{})
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestRun_Serialized(t *testing.T) {
	f := newFixture(t, budget.DefaultLimits())
	path := f.receipt(t, "r.txt", "BAP WIT 1,79\n")

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.controller.Run(context.Background(), path)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	totals, err := f.controller.CumulativeCategoryTotals(context.Background())
	require.NoError(t, err)
	fruit, _ := totals.Get("Fruit")
	assert.True(t, fruit.Equal(d("14.32")))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "summarizing", StateSummarizing.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.Len(t, Stages(), 4)
}

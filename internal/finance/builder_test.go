package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/smartspend/internal/budget"
	"github.com/Veraticus/smartspend/internal/catalogue"
	"github.com/Veraticus/smartspend/internal/ledger"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/Veraticus/smartspend/internal/resolver"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func raw(name, price string) model.RawLineItem {
	return model.RawLineItem{Name: name, UnitPrice: d(price), Quantity: 1}
}

func newBuilder(t *testing.T, limits map[string]decimal.Decimal) (*Builder, *ledger.Ledger) {
	t.Helper()
	policy, err := budget.NewPolicy(limits)
	require.NoError(t, err)
	l := ledger.New(nil, nil)
	return NewBuilder(l, policy), l
}

func resolve(items ...model.RawLineItem) []model.ResolvedLineItem {
	return resolver.New(catalogue.Default(), nil).Resolve(context.Background(), items)
}

func TestBuild_SingleItemWithinBudget(t *testing.T) {
	b, _ := newBuilder(t, map[string]decimal.Decimal{"Fruit": d("20")})

	snap, err := b.Build(context.Background(), resolve(raw("BAP WIT", "1.79")))
	require.NoError(t, err)

	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, "Fruit", snap.Transactions[0].Category)
	assert.True(t, snap.TotalSpend.Equal(d("1.79")))
	assert.Equal(t, []string{"Fruit"}, snap.CategoryTotals.Categories())
	fruit, _ := snap.CategoryTotals.Get("Fruit")
	assert.True(t, fruit.Equal(d("1.79")))
	assert.Empty(t, snap.Alerts)
	assert.NotEmpty(t, snap.RunID)
	assert.False(t, snap.CreatedAt.IsZero())
}

func TestBuild_TotalSpendIsPerRunTotalsAreCumulative(t *testing.T) {
	b, _ := newBuilder(t, map[string]decimal.Decimal{"Fruit": d("20")})
	ctx := context.Background()

	first, err := b.Build(ctx, resolve(raw("BAP WIT", "1.79")))
	require.NoError(t, err)
	second, err := b.Build(ctx, resolve(raw("BAP WIT", "1.79")))
	require.NoError(t, err)

	assert.True(t, second.TotalSpend.Equal(d("1.79")))
	fruit, _ := second.CategoryTotals.Get("Fruit")
	assert.True(t, fruit.Equal(d("3.58")))
	assert.NotEqual(t, first.RunID, second.RunID)

	firstFruit, _ := first.CategoryTotals.Get("Fruit")
	assert.True(t, firstFruit.Equal(d("1.79")), "earlier snapshots are not mutated")
}

func TestBuild_CautionAgainstCumulativeSpend(t *testing.T) {
	b, l := newBuilder(t, map[string]decimal.Decimal{"Alcohol": d("30")})
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, []model.ResolvedLineItem{{
		RawLineItem: raw("WIJN", "25.00"),
		Category:    "Alcohol",
	}}))

	snap, err := b.Build(ctx, resolve(raw("COMMANDEUR", "3.99")))
	require.NoError(t, err)

	alcohol, _ := snap.CategoryTotals.Get("Alcohol")
	assert.True(t, alcohol.Equal(d("28.99")))
	require.Len(t, snap.Alerts, 1)
	assert.Equal(t, model.TierCaution, snap.Alerts[0].Tier)
	assert.Contains(t, snap.Alerts[0].Message, "Alcohol")
	assert.True(t, snap.TotalSpend.Equal(d("3.99")))
}

func TestBuild_UnknownItemFallsBack(t *testing.T) {
	b, _ := newBuilder(t, budget.DefaultLimits())

	snap, err := b.Build(context.Background(), resolve(raw("XYZ999", "5.00")))
	require.NoError(t, err)

	require.Len(t, snap.Transactions, 1)
	item := snap.Transactions[0]
	assert.Equal(t, model.UncategorizedCategory, item.Category)
	assert.Equal(t, "XYZ999", item.CanonicalName)
	assert.True(t, item.CataloguePrice.Equal(d("5.00")))
	assert.False(t, item.IsPromotional)
	assert.Empty(t, snap.Alerts, "5.00 is well within the default limit")
}

func TestBuild_EmptyInputKeepsLedgerTotals(t *testing.T) {
	b, _ := newBuilder(t, budget.DefaultLimits())
	ctx := context.Background()

	_, err := b.Build(ctx, resolve(raw("BAP WIT", "1.79"), raw("AH BIO MLK", "1.35")))
	require.NoError(t, err)

	snap, err := b.Build(ctx, nil)
	require.NoError(t, err)
	assert.True(t, snap.TotalSpend.IsZero())
	assert.NotNil(t, snap.Transactions)
	assert.Empty(t, snap.Transactions)
	assert.Equal(t, []string{"Fruit", "Dairy"}, snap.CategoryTotals.Categories())
}

func TestBuild_StampsRecordedAt(t *testing.T) {
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	policy, err := budget.NewPolicy(nil)
	require.NoError(t, err)
	l := ledger.New(nil, nil)
	b := NewBuilder(l, policy, WithClock(func() time.Time { return fixed }))

	input := resolve(raw("BAP WIT", "1.79"))
	snap, err := b.Build(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, fixed, snap.CreatedAt)
	assert.Equal(t, fixed, snap.Transactions[0].RecordedAt)
	assert.True(t, input[0].RecordedAt.IsZero(), "caller's slice is not modified")

	logged, err := l.Transactions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixed, logged[0].RecordedAt)
}

type failingStore struct{}

func (failingStore) Append(context.Context, []model.ResolvedLineItem) error {
	return errors.New("disk full")
}

func (failingStore) All(context.Context) ([]model.ResolvedLineItem, error) {
	return nil, nil
}

func TestBuild_RecordFailurePropagates(t *testing.T) {
	policy, err := budget.NewPolicy(nil)
	require.NoError(t, err)
	b := NewBuilder(ledger.New(failingStore{}, nil), policy)

	_, err = b.Build(context.Background(), resolve(raw("BAP WIT", "1.79")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

// flakyReadStore stops serving reads once something has been appended.
type flakyReadStore struct {
	*ledger.MemoryStore
	appended bool
}

func (s *flakyReadStore) Append(ctx context.Context, items []model.ResolvedLineItem) error {
	s.appended = true
	return s.MemoryStore.Append(ctx, items)
}

func (s *flakyReadStore) All(ctx context.Context) ([]model.ResolvedLineItem, error) {
	if s.appended {
		return nil, errors.New("read timeout")
	}
	return s.MemoryStore.All(ctx)
}

func TestBuild_SnapshotSurvivesReadFailureAfterCommit(t *testing.T) {
	ctx := context.Background()
	policy, err := budget.NewPolicy(map[string]decimal.Decimal{"Fruit": d("20")})
	require.NoError(t, err)
	store := &flakyReadStore{MemoryStore: ledger.NewMemoryStore()}
	b := NewBuilder(ledger.New(store, nil), policy)

	snap, err := b.Build(ctx, resolve(raw("BAP WIT", "1.79")))
	require.NoError(t, err)

	fruit, ok := snap.CategoryTotals.Get("Fruit")
	require.True(t, ok)
	assert.True(t, fruit.Equal(d("1.79")))

	committed, err := store.MemoryStore.All(ctx)
	require.NoError(t, err)
	assert.Len(t, committed, 1)
}

func TestBuild_ReadFailureBeforeCommitLeavesLogUnchanged(t *testing.T) {
	ctx := context.Background()
	policy, err := budget.NewPolicy(nil)
	require.NoError(t, err)
	store := &flakyReadStore{MemoryStore: ledger.NewMemoryStore(), appended: true}
	b := NewBuilder(ledger.New(store, nil), policy)

	_, err = b.Build(ctx, resolve(raw("BAP WIT", "1.79")))
	require.ErrorContains(t, err, "read timeout")

	committed, err := store.MemoryStore.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, committed)
}

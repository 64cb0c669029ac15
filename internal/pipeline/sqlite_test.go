package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/smartspend/internal/budget"
	"github.com/Veraticus/smartspend/internal/catalogue"
	"github.com/Veraticus/smartspend/internal/finance"
	"github.com/Veraticus/smartspend/internal/ingest"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/Veraticus/smartspend/internal/pipeline"
	"github.com/Veraticus/smartspend/internal/resolver"
	"github.com/Veraticus/smartspend/internal/summary"
	"github.com/Veraticus/smartspend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteController(t *testing.T, db *testutil.TestDB) *pipeline.Controller {
	t.Helper()

	limits, err := db.Storage.Budgets(context.Background())
	require.NoError(t, err)
	policy, err := budget.NewPolicy(limits)
	require.NoError(t, err)

	controller, err := pipeline.New(pipeline.Deps{
		Ingestor: ingest.New(nil, nil, nil),
		Resolver: resolver.New(catalogue.Default(), nil),
		Builder:  finance.NewBuilder(db.Ledger, policy),
		Composer: summary.NewComposer(nil, nil),
		Ledger:   db.Ledger,
		Policy:   policy,
		Budgets:  db.Storage,
	})
	require.NoError(t, err)
	return controller
}

func TestSQLite_RunOnSeededLedger(t *testing.T) {
	db := testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{
		Budgets: map[string]decimal.Decimal{"Alcohol": decimal.NewFromInt(30)},
		Items:   testutil.NewItems().Add("WIJN", "Alcohol", "25.00").Build(),
	})
	controller := newSQLiteController(t, db)

	path := filepath.Join(t.TempDir(), "receipt.txt")
	require.NoError(t, os.WriteFile(path, []byte("COMMANDEUR 3,99\n"), 0o600))

	text, err := controller.Run(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "CAUTION: You are nearing your Alcohol budget.")

	snap, ok := controller.LastSnapshot()
	require.True(t, ok)
	require.Len(t, snap.Alerts, 1)
	assert.Equal(t, model.TierCaution, snap.Alerts[0].Tier)

	alcohol, ok := db.MustTotals().Get("Alcohol")
	require.True(t, ok)
	assert.Equal(t, "28.99", alcohol.StringFixed(2))
}

func TestSQLite_SetBudgetPersists(t *testing.T) {
	db := testutil.SetupTestDB(t, nil)
	controller := newSQLiteController(t, db)

	require.NoError(t, controller.SetBudget(context.Background(), "Bakery", decimal.RequireFromString("12.50")))

	stored := db.MustBudgets()
	require.Contains(t, stored, "Bakery")
	assert.Equal(t, "12.50", stored["Bakery"].StringFixed(2))
	assert.Equal(t, "12.50", controller.LimitFor("Bakery").StringFixed(2))
}

func TestSQLite_FailedRunLeavesLedgerUntouched(t *testing.T) {
	db := testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{
		Items: testutil.NewItems().Add("BAP WIT", "Fruit", "1.79").Build(),
	})
	controller := newSQLiteController(t, db)

	_, err := controller.Run(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)

	stage, ok := pipeline.FailedStage(err)
	require.True(t, ok)
	assert.Equal(t, pipeline.StateIngesting, stage)
	assert.Equal(t, 1, db.MustTotals().Len())
}

// Package testutil provides test fixtures backed by a real SQLite ledger.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/smartspend/internal/ledger"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/Veraticus/smartspend/internal/storage"
	"github.com/shopspring/decimal"
)

// TestDB is a migrated in-memory SQLite store with a ledger on top.
type TestDB struct {
	Storage *storage.SQLiteStorage
	Ledger  *ledger.Ledger
	t       *testing.T
}

// TestDBOptions seeds a test database.
type TestDBOptions struct {
	CustomSetup func(context.Context, *storage.SQLiteStorage) error
	Budgets     map[string]decimal.Decimal
	Items       []model.ResolvedLineItem
}

// SetupTestDB creates a migrated in-memory database with the given budgets
// persisted. It is closed when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t, map[string]decimal.Decimal{
//		"Alcohol": decimal.NewFromInt(30),
//	})
func SetupTestDB(t *testing.T, budgets map[string]decimal.Decimal) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{Budgets: budgets})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for category, limit := range opts.Budgets {
		if err := store.SaveBudget(ctx, category, limit); err != nil {
			t.Fatalf("failed to seed budget %q: %v", category, err)
		}
	}

	if len(opts.Items) > 0 {
		if err := store.Append(ctx, opts.Items); err != nil {
			t.Fatalf("failed to seed ledger: %v", err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{
		Storage: store,
		Ledger:  ledger.New(store, nil),
		t:       t,
	}
}

// MustTotals returns the cumulative totals or fails the test.
func (db *TestDB) MustTotals() model.CategoryTotals {
	db.t.Helper()
	totals, err := db.Ledger.CategoryTotals(context.Background())
	if err != nil {
		db.t.Fatalf("failed to read totals: %v", err)
	}
	return totals
}

// MustBudgets returns the persisted budgets or fails the test.
func (db *TestDB) MustBudgets() map[string]decimal.Decimal {
	db.t.Helper()
	budgets, err := db.Storage.Budgets(context.Background())
	if err != nil {
		db.t.Fatalf("failed to read budgets: %v", err)
	}
	return budgets
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresStorage implements Storage on a shared PostgreSQL database.
type PostgresStorage struct {
	db *sql.DB
}

// NewPostgresStorage wraps an open database handle.
func NewPostgresStorage(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStorage, error) {
	if err := validateString(dsn, "dsn"); err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return NewPostgresStorage(db), nil
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	queries := []string{
		`CREATE TABLE IF NOT EXISTS ledger_items (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			unit_price NUMERIC(12,2) NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 1,
			canonical_name TEXT NOT NULL,
			category TEXT NOT NULL,
			catalogue_price NUMERIC(12,2) NOT NULL,
			is_promotional BOOLEAN NOT NULL DEFAULT FALSE,
			recorded_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_items_category ON ledger_items(category)`,
		`CREATE TABLE IF NOT EXISTS budgets (
			category TEXT PRIMARY KEY,
			limit_amount NUMERIC(12,2) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}
	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to migrate postgres schema: %w", err)
		}
	}
	return nil
}

// Append implements service.LedgerStore.
func (s *PostgresStorage) Append(ctx context.Context, items []model.ResolvedLineItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateItems(items); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ledger_items (name, unit_price, quantity, canonical_name, category, catalogue_price, is_promotional, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			item.Name,
			item.UnitPrice.String(),
			item.Quantity,
			item.CanonicalName,
			item.Category,
			item.CataloguePrice.String(),
			item.IsPromotional,
			recordedAt(item),
		); err != nil {
			return fmt.Errorf("failed to insert item %s: %w", item.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit items: %w", err)
	}
	return nil
}

// All implements service.LedgerStore.
func (s *PostgresStorage) All(ctx context.Context) ([]model.ResolvedLineItem, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, unit_price, quantity, canonical_name, category, catalogue_price, is_promotional, recorded_at
		FROM ledger_items
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanItems(rows)
}

// SaveBudget implements service.BudgetStore.
func (s *PostgresStorage) SaveBudget(ctx context.Context, category string, limit decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(category, limit); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (category, limit_amount, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (category) DO UPDATE SET
			limit_amount = EXCLUDED.limit_amount,
			updated_at = EXCLUDED.updated_at`,
		category, limit.String(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}
	return nil
}

// Budgets implements service.BudgetStore.
func (s *PostgresStorage) Budgets(ctx context.Context) (map[string]decimal.Decimal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT category, limit_amount FROM budgets`)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanBudgets(rows)
}

// Close closes the database handle.
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

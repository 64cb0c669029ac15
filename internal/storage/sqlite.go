package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage opens (creating if needed) the database at dbPath.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dsn := ":memory:"
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// a single connection also keeps an in-memory database alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Append implements service.LedgerStore.
func (s *SQLiteStorage) Append(ctx context.Context, items []model.ResolvedLineItem) error {
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

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger_items (name, unit_price, quantity, canonical_name, category, catalogue_price, is_promotional, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, item := range items {
		if _, err := stmt.ExecContext(ctx,
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

// All implements service.LedgerStore. Items are returned in insertion order.
func (s *SQLiteStorage) All(ctx context.Context) ([]model.ResolvedLineItem, error) {
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
func (s *SQLiteStorage) SaveBudget(ctx context.Context, category string, limit decimal.Decimal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(category, limit); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (category, limit_amount, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET
			limit_amount = excluded.limit_amount,
			updated_at = excluded.updated_at`,
		category, limit.String(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}
	return nil
}

// Budgets implements service.BudgetStore.
func (s *SQLiteStorage) Budgets(ctx context.Context) (map[string]decimal.Decimal, error) {
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

func recordedAt(item model.ResolvedLineItem) time.Time {
	if item.RecordedAt.IsZero() {
		return time.Now().UTC()
	}
	return item.RecordedAt.UTC()
}

// scanItems reads rows of (name, unit_price, quantity, canonical_name,
// category, catalogue_price, is_promotional, recorded_at).
func scanItems(rows *sql.Rows) ([]model.ResolvedLineItem, error) {
	items := []model.ResolvedLineItem{}
	for rows.Next() {
		var item model.ResolvedLineItem
		if err := rows.Scan(
			&item.Name,
			&item.UnitPrice,
			&item.Quantity,
			&item.CanonicalName,
			&item.Category,
			&item.CataloguePrice,
			&item.IsPromotional,
			&item.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return items, nil
}

func scanBudgets(rows *sql.Rows) (map[string]decimal.Decimal, error) {
	budgets := make(map[string]decimal.Decimal)
	for rows.Next() {
		var category string
		var limit decimal.Decimal
		if err := rows.Scan(&category, &limit); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets[category] = limit
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read budgets: %w", err)
	}
	return budgets, nil
}

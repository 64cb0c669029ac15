package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/ledger"
	"github.com/Veraticus/smartspend/internal/service"
	"github.com/shopspring/decimal"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Storage persists both the transaction log and budget limits.
type Storage interface {
	service.LedgerStore
	service.BudgetStore
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures a storage backend.
type Config struct {
	Driver string
	Path   string
	DSN    string
}

// Open creates the configured backend and migrates its schema.
func Open(ctx context.Context, cfg Config) (Storage, error) {
	var (
		store Storage
		err   error
	)

	switch cfg.Driver {
	case "", DriverSQLite:
		if cfg.Path == "" {
			return nil, common.MissingConfig("storage", "database path")
		}
		store, err = NewSQLiteStorage(cfg.Path)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, common.MissingConfig("storage", "postgres dsn")
		}
		store, err = OpenPostgres(ctx, cfg.DSN)
	case DriverMemory:
		store = NewMemoryStorage()
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", common.ErrInvalidConfig, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate storage: %w", err)
	}
	return store, nil
}

// MemoryStorage keeps everything in process. Nothing survives a restart.
type MemoryStorage struct {
	*ledger.MemoryStore
	budgets map[string]decimal.Decimal
	mu      sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		MemoryStore: ledger.NewMemoryStore(),
		budgets:     make(map[string]decimal.Decimal),
	}
}

// Migrate is a no-op.
func (m *MemoryStorage) Migrate(context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryStorage) Close() error { return nil }

// SaveBudget implements service.BudgetStore.
func (m *MemoryStorage) SaveBudget(_ context.Context, category string, limit decimal.Decimal) error {
	if err := validateBudget(category, limit); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets[category] = limit
	return nil
}

// Budgets implements service.BudgetStore.
func (m *MemoryStorage) Budgets(context.Context) (map[string]decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]decimal.Decimal, len(m.budgets))
	for k, v := range m.budgets {
		out[k] = v
	}
	return out, nil
}

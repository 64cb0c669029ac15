package ledger

import (
	"context"
	"sync"

	"github.com/Veraticus/smartspend/internal/model"
)

// MemoryStore keeps the log for the lifetime of the process.
type MemoryStore struct {
	items []model.ResolvedLineItem
	mu    sync.Mutex
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make([]model.ResolvedLineItem, 0)}
}

// Append implements service.LedgerStore.
func (m *MemoryStore) Append(_ context.Context, items []model.ResolvedLineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = append(m.items, items...)
	return nil
}

// All implements service.LedgerStore. The returned slice is a copy.
func (m *MemoryStore) All(_ context.Context) ([]model.ResolvedLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]model.ResolvedLineItem, len(m.items))
	copy(copied, m.items)
	return copied, nil
}

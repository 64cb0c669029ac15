package sheets

import (
	"context"
	"sync"
)

// MockWriter records exports for tests.
type MockWriter struct {
	WriteFunc  func(ctx context.Context, report Report) (string, error)
	LastReport *Report
	Calls      int
	mu         sync.Mutex
}

// Write records report and delegates to WriteFunc when set.
func (m *MockWriter) Write(ctx context.Context, report Report) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.LastReport = &report
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, report)
	}
	return "mock-spreadsheet", nil
}

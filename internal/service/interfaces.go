// Package service defines the contracts between the pipeline core and its collaborators.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"
)

// TextExtractor turns a receipt document into raw text (OCR).
// A document with no readable text yields common.ErrNoText.
type TextExtractor interface {
	ExtractText(ctx context.Context, document []byte, mimeHint string) (string, error)
}

// ItemExtractor turns raw receipt text into line items.
type ItemExtractor interface {
	ExtractItems(ctx context.Context, rawText string) ([]model.RawLineItem, error)
}

// ProductLookup finds the catalogue record for a name as printed on a receipt.
// It returns common.ErrNotFound when there is no match.
type ProductLookup interface {
	LookupProduct(ctx context.Context, name string) (model.Product, error)
}

// Narrator produces a natural-language description of a snapshot.
type Narrator interface {
	ComposeNarrative(ctx context.Context, snapshot *model.FinancialSnapshot) (string, error)
}

// LedgerStore persists the ordered transaction log.
type LedgerStore interface {
	Append(ctx context.Context, items []model.ResolvedLineItem) error
	All(ctx context.Context) ([]model.ResolvedLineItem, error)
}

// BudgetStore persists per-category budget limits.
type BudgetStore interface {
	SaveBudget(ctx context.Context, category string, limit decimal.Decimal) error
	Budgets(ctx context.Context) (map[string]decimal.Decimal, error)
}

// AlertPublisher delivers the alerts of a finished run to other systems.
type AlertPublisher interface {
	PublishAlerts(ctx context.Context, snapshot *model.FinancialSnapshot) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

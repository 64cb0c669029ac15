package sheets

import (
	"time"

	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"
)

// BudgetRow is one category's position against its limit.
type BudgetRow struct {
	Category string
	Tier     model.AlertTier
	Spent    decimal.Decimal
	Limit    decimal.Decimal
}

// Remaining is the limit minus the spend. It is negative once exceeded.
func (r BudgetRow) Remaining() decimal.Decimal {
	return r.Limit.Sub(r.Spent)
}

// Report is everything written in one export.
type Report struct {
	GeneratedAt  time.Time
	Transactions []model.ResolvedLineItem
	Budgets      []BudgetRow
	TotalSpend   decimal.Decimal
}

// LimitSource resolves the limit for a category.
type LimitSource interface {
	LimitFor(category string) decimal.Decimal
	Classify(category string, spent decimal.Decimal) model.AlertTier
}

// NewReport builds a report from the ledger and its cumulative totals.
// Budget rows follow the order of totals.
func NewReport(transactions []model.ResolvedLineItem, totals model.CategoryTotals, limits LimitSource, now time.Time) Report {
	report := Report{
		GeneratedAt:  now,
		Transactions: transactions,
		Budgets:      make([]BudgetRow, 0, totals.Len()),
		TotalSpend:   totals.Total(),
	}
	totals.Each(func(category string, spent decimal.Decimal) {
		report.Budgets = append(report.Budgets, BudgetRow{
			Category: category,
			Spent:    spent,
			Limit:    limits.LimitFor(category),
			Tier:     limits.Classify(category, spent),
		})
	})
	return report
}

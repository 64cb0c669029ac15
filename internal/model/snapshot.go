package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinancialSnapshot is the result of one pipeline run.
//
// TotalSpend covers only the items resolved in this run, while
// CategoryTotals and Alerts reflect the cumulative ledger.
type FinancialSnapshot struct {
	CreatedAt      time.Time          `json:"created_at"`
	CategoryTotals CategoryTotals     `json:"category_totals"`
	RunID          string             `json:"run_id"`
	Alerts         []Alert            `json:"alerts"`
	Transactions   []ResolvedLineItem `json:"transactions"`
	TotalSpend     decimal.Decimal    `json:"total_spend"`
}

// AlertMessages returns the alert messages in order.
func (s *FinancialSnapshot) AlertMessages() []string {
	messages := make([]string, len(s.Alerts))
	for i, alert := range s.Alerts {
		messages[i] = alert.Message
	}
	return messages
}

// Clone returns a deep copy so callers cannot mutate retained state.
func (s *FinancialSnapshot) Clone() *FinancialSnapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.CategoryTotals = s.CategoryTotals.Clone()
	out.Alerts = make([]Alert, len(s.Alerts))
	copy(out.Alerts, s.Alerts)
	out.Transactions = make([]ResolvedLineItem, len(s.Transactions))
	copy(out.Transactions, s.Transactions)
	return &out
}

package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AlertTier classifies spending against a budget limit.
type AlertTier string

const (
	// TierOK means spending is at or below 80% of the limit.
	TierOK AlertTier = "OK"
	// TierCaution means spending is above 80% of the limit but not above it.
	TierCaution AlertTier = "CAUTION"
	// TierExceeded means spending is above the limit.
	TierExceeded AlertTier = "EXCEEDED"
)

// Severity orders tiers so that a higher value is a worse tier.
func (t AlertTier) Severity() int {
	switch t {
	case TierCaution:
		return 1
	case TierExceeded:
		return 2
	default:
		return 0
	}
}

// Visible reports whether the tier produces an alert message.
func (t AlertTier) Visible() bool {
	return t == TierCaution || t == TierExceeded
}

// Alert is a budget alert for one category.
type Alert struct {
	Category string          `json:"category"`
	Tier     AlertTier       `json:"tier"`
	Message  string          `json:"message"`
	Spent    decimal.Decimal `json:"spent"`
	Limit    decimal.Decimal `json:"limit"`
}

// NewAlert builds an alert and its human-readable message.
func NewAlert(category string, tier AlertTier, spent, limit decimal.Decimal) Alert {
	return Alert{
		Category: category,
		Tier:     tier,
		Spent:    spent,
		Limit:    limit,
		Message:  formatAlertMessage(category, tier, spent, limit),
	}
}

func (a Alert) String() string {
	return a.Message
}

func formatAlertMessage(category string, tier AlertTier, spent, limit decimal.Decimal) string {
	switch tier {
	case TierExceeded:
		return fmt.Sprintf("WARNING: You have exceeded your %s budget! (Spent: %s / Limit: %s)",
			category, FormatEuro(spent), FormatEuro(limit))
	case TierCaution:
		return fmt.Sprintf("CAUTION: You are nearing your %s budget. (Spent: %s / Limit: %s)",
			category, FormatEuro(spent), FormatEuro(limit))
	default:
		return fmt.Sprintf("OK: %s is within budget. (Spent: %s / Limit: %s)",
			category, FormatEuro(spent), FormatEuro(limit))
	}
}

// FormatEuro renders an amount with two decimals and a euro sign.
func FormatEuro(amount decimal.Decimal) string {
	return "€" + amount.StringFixed(2)
}

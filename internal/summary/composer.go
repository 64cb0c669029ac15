// Package summary renders a financial snapshot as a short markdown report.
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/smartspend/internal/model"
	"github.com/Veraticus/smartspend/internal/service"
	"github.com/shopspring/decimal"
)

// WithinBudgetMessage is shown when a snapshot has no alerts.
const WithinBudgetMessage = "**Status:** You are within your budget for all categories. Great job!"

// Composer renders snapshots. The template part is deterministic; an optional
// narrator appends a natural-language paragraph when it succeeds.
type Composer struct {
	narrator service.Narrator
	logger   *slog.Logger
}

// NewComposer creates a composer. narrator may be nil.
func NewComposer(narrator service.Narrator, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{narrator: narrator, logger: logger}
}

// Compose returns the summary for snapshot.
func (c *Composer) Compose(ctx context.Context, snapshot *model.FinancialSnapshot) string {
	text := Render(snapshot)
	if c.narrator == nil || snapshot == nil {
		return text
	}

	narrative, err := c.narrator.ComposeNarrative(ctx, snapshot)
	if err != nil {
		c.logger.Warn("narrative enrichment failed, using template summary", "error", err)
		return text
	}
	narrative = strings.TrimSpace(narrative)
	if narrative == "" {
		return text
	}
	return text + "\n\n" + narrative
}

// Render is the template rendering of snapshot.
func Render(snapshot *model.FinancialSnapshot) string {
	if snapshot == nil {
		return ""
	}

	lines := []string{
		"**Total Spend:** " + euro(snapshot.TotalSpend),
		"**Category Breakdown:**",
	}
	snapshot.CategoryTotals.Each(func(category string, amount decimal.Decimal) {
		lines = append(lines, fmt.Sprintf("- %s: %s", category, euro(amount)))
	})

	if len(snapshot.Alerts) > 0 {
		lines = append(lines, "\n**Alerts:**")
		for _, alert := range snapshot.Alerts {
			lines = append(lines, "- "+alert.Message)
		}
	} else {
		lines = append(lines, "\n"+WithinBudgetMessage)
	}

	return strings.Join(lines, "\n")
}

func euro(d decimal.Decimal) string {
	return model.FormatEuro(d)
}

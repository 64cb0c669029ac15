package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/smartspend/internal/model"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// BudgetLine is one row of a totals-versus-limits table.
type BudgetLine struct {
	Category string
	Tier     model.AlertTier
	Spent    decimal.Decimal
	Limit    decimal.Decimal
}

// RenderSnapshot writes the run's items, the cumulative breakdown, its
// alerts, and the summary text.
func RenderSnapshot(w io.Writer, snapshot *model.FinancialSnapshot, summary string) error {
	if snapshot == nil {
		_, err := fmt.Fprintln(w, FormatWarning("No run has completed yet."))
		return err
	}

	var b strings.Builder
	b.WriteString(FormatTitle(fmt.Sprintf("Receipt processed (%d items)", len(snapshot.Transactions))))
	b.WriteString("\n")

	if len(snapshot.Transactions) > 0 {
		b.WriteString(renderItems(snapshot.Transactions))
		b.WriteString("\n\n")
	}

	lines := make([]BudgetLine, 0, snapshot.CategoryTotals.Len())
	alertTiers := make(map[string]model.AlertTier, len(snapshot.Alerts))
	for _, a := range snapshot.Alerts {
		alertTiers[a.Category] = a.Tier
	}
	snapshot.CategoryTotals.Each(func(category string, spent decimal.Decimal) {
		tier, ok := alertTiers[category]
		if !ok {
			tier = model.TierOK
		}
		lines = append(lines, BudgetLine{Category: category, Spent: spent, Tier: tier})
	})
	b.WriteString(BoldStyle.Render("Cumulative spend"))
	b.WriteString("\n")
	b.WriteString(RenderBudgetTable(lines, false))
	b.WriteString("\n")

	for _, alert := range snapshot.Alerts {
		if alert.Tier == model.TierExceeded {
			b.WriteString(FormatError(alert.Message))
		} else {
			b.WriteString(FormatWarning(alert.Message))
		}
		b.WriteString("\n")
	}

	if summary != "" {
		b.WriteString("\n")
		b.WriteString(RenderBox("Summary", summary))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func renderItems(items []model.ResolvedLineItem) string {
	nameWidth := len("Item")
	for _, item := range items {
		nameWidth = max(nameWidth, lipgloss.Width(item.CanonicalName))
	}

	rows := make([]string, 0, len(items)+1)
	rows = append(rows, TableHeaderStyle.Render(fmt.Sprintf("%-*s  %-14s %8s %4s", nameWidth, "Item", "Category", "Price", "Qty")))
	for _, item := range items {
		row := fmt.Sprintf("%-*s  %-14s %8s %4d", nameWidth, item.CanonicalName, item.Category, model.FormatEuro(item.UnitPrice), item.Quantity)
		if item.IsPromotional {
			row += " " + InfoStyle.Render("bonus")
		}
		if item.Category == model.UncategorizedCategory {
			row = SubtleStyle.Render(row)
		}
		rows = append(rows, row)
	}
	return strings.Join(rows, "\n")
}

// RenderBudgetTable renders categories with their spend, and with limits
// when withLimits is set. Tier labels are coloured.
func RenderBudgetTable(lines []BudgetLine, withLimits bool) string {
	if len(lines) == 0 {
		return SubtleStyle.Render("No spending recorded.")
	}

	width := len("Category")
	for _, l := range lines {
		width = max(width, lipgloss.Width(l.Category))
	}

	var header string
	if withLimits {
		header = fmt.Sprintf("%-*s %10s %10s  %s", width, "Category", "Spent", "Limit", "Status")
	} else {
		header = fmt.Sprintf("%-*s %10s  %s", width, "Category", "Spent", "Status")
	}

	rows := []string{TableHeaderStyle.Render(header)}
	for _, l := range lines {
		var row string
		if withLimits {
			row = fmt.Sprintf("%-*s %10s %10s  ", width, l.Category, model.FormatEuro(l.Spent), model.FormatEuro(l.Limit))
		} else {
			row = fmt.Sprintf("%-*s %10s  ", width, l.Category, model.FormatEuro(l.Spent))
		}
		rows = append(rows, row+FormatTier(l.Tier))
	}
	return strings.Join(rows, "\n")
}

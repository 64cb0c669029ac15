package tui

import (
	"context"
	"sort"
	"time"

	"github.com/Veraticus/smartspend/internal/budget"
	"github.com/Veraticus/smartspend/internal/model"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
)

const loadTimeout = 10 * time.Second

// loadTotals reads cumulative totals and pairs them with limits.
func (m Model) loadTotals() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		totals, err := source.CumulativeCategoryTotals(ctx)
		if err != nil {
			return totalsLoadedMsg{err: err, loadedAt: time.Now()}
		}
		return totalsLoadedMsg{
			rows:     buildRows(totals, source.LimitFor),
			total:    totals.Total(),
			loadedAt: time.Now(),
		}
	}
}

func buildRows(totals model.CategoryTotals, limitFor func(string) decimal.Decimal) []Row {
	rows := make([]Row, 0, totals.Len())
	totals.Each(func(category string, spent decimal.Decimal) {
		limit := limitFor(category)
		rows = append(rows, Row{
			Category: category,
			Spent:    spent,
			Limit:    limit,
			Tier:     budget.Tier(spent, limit),
		})
	})
	return rows
}

// sortBySeverity orders rows worst tier first, then by spend. Ties keep ledger order.
func sortBySeverity(rows []Row) []Row {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := sorted[i].Tier.Severity(), sorted[j].Tier.Severity()
		if si != sj {
			return si > sj
		}
		return sorted[i].Spent.GreaterThan(sorted[j].Spent)
	})
	return sorted
}

func tick(interval time.Duration) tea.Cmd {
	if interval <= 0 {
		return nil
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

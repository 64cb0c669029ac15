package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/smartspend/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.theme.Title.Render("🛒 Grocery budget"))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(m.theme.StatusError.Render("Could not load totals: " + m.err.Error()))
		b.WriteString("\n")
	case m.loading && len(m.rows) == 0:
		b.WriteString(m.theme.StatusPending.Render("Loading..."))
		b.WriteString("\n")
	case len(m.rows) == 0:
		b.WriteString(m.theme.Subtitle.Render("No spending recorded yet."))
		b.WriteString("\n")
	default:
		b.WriteString(m.table.View())
		b.WriteString("\n\n")
		b.WriteString(m.renderAlerts())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderAlerts() string {
	var lines []string
	for _, r := range m.visibleRows() {
		if !r.Tier.Visible() {
			continue
		}
		alert := model.NewAlert(r.Category, r.Tier, r.Spent, r.Limit)
		lines = append(lines, m.theme.Tier(r.Tier).Render(alert.Message))
	}
	if len(lines) == 0 {
		return m.theme.StatusSuccess.Render("All categories are within budget.")
	}
	return m.theme.RoundedBox.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) renderStatusBar() string {
	parts := []string{
		m.theme.Bold.Render("Total: " + model.FormatEuro(m.total)),
		fmt.Sprintf("%d categories", len(m.rows)),
	}
	if m.sorted {
		parts = append(parts, "sorted by severity")
	}
	if !m.loadedAt.IsZero() {
		parts = append(parts, "updated "+m.loadedAt.Format("15:04:05"))
	}
	return m.theme.Subtitle.Render(strings.Join(parts, " • "))
}

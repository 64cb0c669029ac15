// Package tui provides the interactive budget dashboard.
package tui

import (
	"context"
	"time"

	"github.com/Veraticus/smartspend/internal/model"
	"github.com/Veraticus/smartspend/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
)

// Source provides the cumulative position. *pipeline.Controller satisfies it.
type Source interface {
	CumulativeCategoryTotals(ctx context.Context) (model.CategoryTotals, error)
	LimitFor(category string) decimal.Decimal
}

// Option configures the dashboard.
type Option func(*Model)

// WithTheme sets the colour theme.
func WithTheme(theme themes.Theme) Option {
	return func(m *Model) { m.theme = theme }
}

// WithRefreshInterval reloads totals periodically. Zero disables it.
func WithRefreshInterval(d time.Duration) Option {
	return func(m *Model) { m.refresh = d }
}

// Model is the bubbletea model for the dashboard.
type Model struct {
	loadedAt time.Time
	source   Source
	err      error
	keys     KeyMap
	help     help.Model
	theme    themes.Theme
	rows     []Row
	table    table.Model
	total    decimal.Decimal
	refresh  time.Duration
	width    int
	height   int
	loading  bool
	sorted   bool
	quitting bool
}

// New creates the dashboard model.
func New(source Source, opts ...Option) Model {
	m := Model{
		source:  source,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		theme:   themes.Default,
		loading: true,
		width:   80,
		height:  24,
	}
	for _, opt := range opts {
		opt(&m)
	}

	styles := table.DefaultStyles()
	styles.Header = m.theme.Header
	styles.Selected = m.theme.Selected

	m.table = table.New(
		table.WithColumns(columns(m.width)),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithStyles(styles),
	)
	return m
}

func columns(width int) []table.Column {
	category := max(width-48, 14)
	return []table.Column{
		{Title: "Category", Width: category},
		{Title: "Spent", Width: 10},
		{Title: "Limit", Width: 10},
		{Title: "Used", Width: 6},
		{Title: "Status", Width: 10},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadTotals(), tick(m.refresh))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.table.SetColumns(columns(msg.Width))
		m.table.SetHeight(max(msg.Height-10, 3))
		return m, nil

	case totalsLoadedMsg:
		m.loading = false
		m.loadedAt = msg.loadedAt
		m.err = msg.err
		if msg.err == nil {
			m.rows = msg.rows
			m.total = msg.total
			m.table.SetRows(m.tableRows())
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.loadTotals(), tick(m.refresh))

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			m.loading = true
			return m, m.loadTotals()
		case key.Matches(msg, m.keys.Sort):
			m.sorted = !m.sorted
			m.table.SetRows(m.tableRows())
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) visibleRows() []Row {
	if m.sorted {
		return sortBySeverity(m.rows)
	}
	return m.rows
}

func (m Model) tableRows() []table.Row {
	visible := m.visibleRows()
	rows := make([]table.Row, 0, len(visible))
	for _, r := range visible {
		rows = append(rows, table.Row{
			r.Category,
			model.FormatEuro(r.Spent),
			model.FormatEuro(r.Limit),
			usage(r.Spent, r.Limit),
			string(r.Tier),
		})
	}
	return rows
}

func usage(spent, limit decimal.Decimal) string {
	if limit.IsZero() {
		if spent.IsPositive() {
			return "∞"
		}
		return "0%"
	}
	return spent.Div(limit).Mul(decimal.NewFromInt(100)).Round(0).String() + "%"
}

// Rows returns the rows in display order.
func (m Model) Rows() []Row {
	return m.visibleRows()
}

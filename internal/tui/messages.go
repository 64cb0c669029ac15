package tui

import (
	"time"

	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"
)

// Row is one category on the dashboard.
type Row struct {
	Category string
	Tier     model.AlertTier
	Spent    decimal.Decimal
	Limit    decimal.Decimal
}

type totalsLoadedMsg struct {
	loadedAt time.Time
	err      error
	rows     []Row
	total    decimal.Decimal
}

type tickMsg time.Time

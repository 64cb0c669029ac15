package model

import "github.com/shopspring/decimal"

// Product is a catalogue record keyed by the name printed on receipts.
type Product struct {
	Key           string          `json:"key"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	IsPromotional bool            `json:"is_promotional"`
}

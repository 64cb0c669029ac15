package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"
)

// cleanMarkdownWrapper strips a surrounding ```json fence from a model response.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	content = strings.TrimPrefix(content, "```")
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		// drop the language tag line
		content = content[idx+1:]
	}
	content = strings.TrimSpace(content)
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

type extractedItem struct {
	Name     string          `json:"name"`
	RawName  string          `json:"raw_name"`
	Price    json.RawMessage `json:"price"`
	Quantity json.RawMessage `json:"quantity"`
}

// parseItems decodes a JSON array of {name, price, quantity} records.
// Entries without a name or with an unreadable price are skipped; anything
// other than an array is ErrMalformedResponse.
func parseItems(content string) ([]model.RawLineItem, error) {
	content = cleanMarkdownWrapper(content)

	start := strings.IndexByte(content, '[')
	end := strings.LastIndexByte(content, ']')
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: expected a JSON array", common.ErrMalformedResponse)
	}
	if strings.HasPrefix(content, "{") || strings.HasPrefix(content, `"`) {
		return nil, fmt.Errorf("%w: expected a top-level JSON array", common.ErrMalformedResponse)
	}

	var raw []extractedItem
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrMalformedResponse, err)
	}

	items := make([]model.RawLineItem, 0, len(raw))
	for _, r := range raw {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			name = strings.TrimSpace(r.RawName)
		}
		if name == "" {
			continue
		}

		price, err := parsePrice(r.Price)
		if err != nil {
			continue
		}

		items = append(items, model.RawLineItem{
			Name:      name,
			UnitPrice: price,
			Quantity:  parseQuantity(r.Quantity),
		})
	}
	return items, nil
}

// parsePrice accepts JSON numbers and strings like "1,79" or "€ 1.79".
func parsePrice(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, fmt.Errorf("missing price")
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.Zero, err
		}
		text = strings.TrimSpace(text)
		text = strings.TrimPrefix(text, "€")
		text = strings.TrimPrefix(text, "EUR")
		text = strings.ReplaceAll(text, " ", "")
		text = strings.ReplaceAll(text, ",", ".")
	}
	return decimal.NewFromString(text)
}

// maxQuantity bounds a parsed quantity; anything larger is a misread.
const maxQuantity = 10000

// parseQuantity falls back to 1 for anything that is not a finite count
// between 1 and maxQuantity.
func parseQuantity(raw json.RawMessage) int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 1
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 1
		}
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(f) || f < 1 || f > maxQuantity {
		return 1
	}
	return int(math.Round(f))
}

package ingest

import (
	"bufio"
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"
)

var (
	linePattern = regexp.MustCompile(`^(?:(\d+)\s*[xX]?\s+)?(.+?)\s+(?:€|EUR)?\s*(\d+[.,]\d{2})(?:\s+[A-Z])?$`)

	skipKeywords = []string{
		"TOTAAL", "TOTAL", "SUBTOTAAL", "SUBTOTAL", "TE BETALEN", "BETAALD",
		"PINNEN", "PIN", "CONTANT", "WISSELGELD", "CHANGE", "BTW", "VAT",
		"BONUSKAART", "KOOPZEGELS", "AIRMILES", "SALDO",
	}
)

// LineParser is an offline ItemExtractor for plain-text receipts with one
// item per line: "[<qty> [x] ]<name> <price>". Decimal commas are accepted
// and totals or payment lines are skipped.
type LineParser struct{}

// NewLineParser creates a rule-based extractor.
func NewLineParser() *LineParser {
	return &LineParser{}
}

// ExtractItems implements service.ItemExtractor.
func (p *LineParser) ExtractItems(_ context.Context, rawText string) ([]model.RawLineItem, error) {
	items := []model.RawLineItem{}

	scanner := bufio.NewScanner(strings.NewReader(rawText))
	for scanner.Scan() {
		if item, ok := parseLine(scanner.Text()); ok {
			items = append(items, item)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func parseLine(line string) (model.RawLineItem, bool) {
	line = strings.Join(strings.Fields(line), " ")
	if line == "" {
		return model.RawLineItem{}, false
	}

	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return model.RawLineItem{}, false
	}

	name := strings.TrimSpace(m[2])
	if isSummaryLine(name) {
		return model.RawLineItem{}, false
	}

	price, err := decimal.NewFromString(strings.ReplaceAll(m[3], ",", "."))
	if err != nil {
		return model.RawLineItem{}, false
	}

	quantity := 1
	if m[1] != "" {
		if q, err := strconv.Atoi(m[1]); err == nil && q > 0 {
			quantity = q
		}
	}

	return model.RawLineItem{Name: name, UnitPrice: price, Quantity: quantity}, true
}

func isSummaryLine(name string) bool {
	upper := strings.ToUpper(name)
	for _, word := range strings.Fields(upper) {
		for _, kw := range skipKeywords {
			if word == kw || strings.TrimSuffix(word, ":") == kw {
				return true
			}
		}
	}
	return strings.Contains(upper, "TE BETALEN")
}

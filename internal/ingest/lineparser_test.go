package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line     string
		name     string
		price    string
		quantity int
		ok       bool
	}{
		{"BAP WIT 1,79", "BAP WIT", "1.79", 1, true},
		{"AH BIO MLK      1.35", "AH BIO MLK", "1.35", 1, true},
		{"2 x COMMANDEUR 3,99", "COMMANDEUR", "3.99", 2, true},
		{"3x BB ROERBAK ITAL 2,49", "BB ROERBAK ITAL", "2.49", 3, true},
		{"1 BAP WIT 1,79 B", "BAP WIT", "1.79", 1, true},
		{"PINDAKAAS € 2,49", "PINDAKAAS", "2.49", 1, true},
		{"TOTAAL 9,62", "", "", 0, false},
		{"SUBTOTAAL: 9,62", "", "", 0, false},
		{"PINNEN 9,62", "", "", 0, false},
		{"BTW 21% 0,69", "", "", 0, false},
		{"TE BETALEN 9,62", "", "", 0, false},
		{"BONUS BB ROERBAK -0,50", "", "", 0, false},
		{"ALBERT HEIJN", "", "", 0, false},
		{"", "", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			item, ok := parseLine(tt.line)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.name, item.Name)
			assert.Equal(t, tt.price, item.UnitPrice.StringFixed(2))
			assert.Equal(t, tt.quantity, item.Quantity)
		})
	}
}

func TestLineParser_ExtractItems(t *testing.T) {
	receipt := `ALBERT HEIJN
Filiaal 1234

BAP WIT            1,79
AH BIO MLK         1,35
BB ROERBAK ITAL    2,49
COMMANDEUR         3,99

SUBTOTAAL          9,62
TOTAAL             9,62
PINNEN             9,62
`
	items, err := NewLineParser().ExtractItems(context.Background(), receipt)
	require.NoError(t, err)
	require.Len(t, items, 4)

	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	assert.Equal(t, []string{"BAP WIT", "AH BIO MLK", "BB ROERBAK ITAL", "COMMANDEUR"}, names)
}

func TestLineParser_NoItems(t *testing.T) {
	items, err := NewLineParser().ExtractItems(context.Background(), "thank you for shopping")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

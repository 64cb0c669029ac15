package budget

import (
	"testing"

	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTier(t *testing.T) {
	limit := d("30")

	tests := []struct {
		spent string
		want  model.AlertTier
	}{
		{"0", model.TierOK},
		{"24", model.TierOK},
		{"24.01", model.TierCaution},
		{"28.99", model.TierCaution},
		{"30", model.TierCaution},
		{"30.01", model.TierExceeded},
		{"100", model.TierExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.spent, func(t *testing.T) {
			assert.Equal(t, tt.want, Tier(d(tt.spent), limit))
		})
	}
}

func TestTier_ZeroLimit(t *testing.T) {
	assert.Equal(t, model.TierOK, Tier(decimal.Zero, decimal.Zero))
	assert.Equal(t, model.TierExceeded, Tier(d("0.01"), decimal.Zero))
}

func TestPolicy_LimitForUsesDefault(t *testing.T) {
	p, err := NewPolicy(map[string]decimal.Decimal{"Fruit": d("20")})
	require.NoError(t, err)

	assert.Equal(t, "20", p.LimitFor("Fruit").String())
	assert.Equal(t, "100", p.LimitFor("Uncategorized").String())

	require.NoError(t, p.WithDefaultLimit(d("50")))
	assert.Equal(t, "50", p.LimitFor("Household").String())
	assert.Error(t, p.WithDefaultLimit(d("-1")))
}

func TestPolicy_Evaluate(t *testing.T) {
	p, err := NewPolicy(DefaultLimits())
	require.NoError(t, err)

	totals := model.NewCategoryTotals()
	totals.Add("Fruit", d("1.79"))
	totals.Add("Snacks", d("12.50"))
	totals.Add("Alcohol", d("28.99"))
	totals.Add("Uncategorized", d("99"))

	alerts := p.Evaluate(totals)

	require.Len(t, alerts, 3)
	assert.Equal(t, "Snacks", alerts[0].Category)
	assert.Equal(t, model.TierExceeded, alerts[0].Tier)
	assert.Equal(t, "WARNING: You have exceeded your Snacks budget! (Spent: €12.50 / Limit: €10.00)", alerts[0].Message)

	assert.Equal(t, "Alcohol", alerts[1].Category)
	assert.Equal(t, model.TierCaution, alerts[1].Tier)
	assert.Contains(t, alerts[1].Message, "Alcohol")

	assert.Equal(t, "Uncategorized", alerts[2].Category)
	assert.Equal(t, model.TierCaution, alerts[2].Tier)
	assert.Equal(t, "100", alerts[2].Limit.String())
}

func TestPolicy_EvaluateEmpty(t *testing.T) {
	p, err := NewPolicy(nil)
	require.NoError(t, err)

	alerts := p.Evaluate(model.NewCategoryTotals())
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
}

func TestPolicy_SetLimitAndReplace(t *testing.T) {
	p, err := NewPolicy(DefaultLimits())
	require.NoError(t, err)

	require.NoError(t, p.SetLimit("Bakery", d("12.5")))
	assert.Equal(t, "12.5", p.LimitFor("Bakery").String())
	assert.Equal(t, model.TierExceeded, p.Classify("Bakery", d("13")))

	assert.ErrorIs(t, p.SetLimit("Bakery", d("-1")), common.ErrInvalidConfig)
	assert.ErrorIs(t, p.SetLimit("", d("1")), common.ErrInvalidConfig)

	err = p.Replace(map[string]decimal.Decimal{"Dairy": d("5"), "Bad": d("-2")})
	require.Error(t, err)
	assert.Equal(t, "12.5", p.LimitFor("Bakery").String(), "failed replace must not change limits")

	require.NoError(t, p.Replace(map[string]decimal.Decimal{"Dairy": d("5")}))
	assert.Equal(t, []string{"Dairy"}, p.Categories())
	assert.Equal(t, "100", p.LimitFor("Bakery").String())
}

func TestPolicy_LimitsReturnsCopy(t *testing.T) {
	p, err := NewPolicy(DefaultLimits())
	require.NoError(t, err)

	limits := p.Limits()
	limits["Fruit"] = d("1")

	assert.Equal(t, "20", p.LimitFor("Fruit").String())
	assert.Equal(t, []string{"Alcohol", "Dairy", "Fruit", "Snacks", "Vegetables"}, p.Categories())
}

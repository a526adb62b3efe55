package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"clubdesk/internal/plans"
)

func TestFormatPriceZeroIsFree(t *testing.T) {
	assert.Equal(t, FreeLabel, FormatPrice(decimal.Zero, Monthly))
	assert.Equal(t, FreeLabel, FormatPrice(decimal.Zero, Yearly))
	assert.Equal(t, FreeLabel, FormatPrice(decimal.RequireFromString("0.00"), Monthly))
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		amount   string
		interval Interval
		want     string
	}{
		{amount: "29", interval: Monthly, want: "€29/month"},
		{amount: "290", interval: Yearly, want: "€290/year"},
		{amount: "1990", interval: Yearly, want: "€1,990/year"},
		{amount: "29.5", interval: Monthly, want: "€29.50/month"},
	}
	for _, tc := range tests {
		got := FormatPrice(decimal.RequireFromString(tc.amount), tc.interval)
		assert.Equal(t, tc.want, got, tc.amount)
	}
}

func TestFormatPlanName(t *testing.T) {
	assert.Equal(t, "Free", FormatPlanName(plans.Free))
	assert.Equal(t, "Professional", FormatPlanName(plans.Professional))
	assert.Equal(t, "Unknown", FormatPlanName(plans.Tier(17)))
}

func TestCalculateYearlySavings(t *testing.T) {
	got := CalculateYearlySavings(decimal.NewFromInt(29), decimal.NewFromInt(290))
	assert.True(t, got.Equal(decimal.NewFromInt(58)), got.String())

	got = CalculateYearlySavings(decimal.NewFromInt(100), decimal.NewFromInt(1300))
	assert.True(t, got.IsZero(), "yearly above 12x monthly reports zero, got %s", got)

	got = CalculateYearlySavings(decimal.Zero, decimal.Zero)
	assert.True(t, got.IsZero())
}

func TestCalculateYearlySavingsNeverNegative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		monthly := decimal.NewFromInt(rapid.Int64Range(0, 100000).Draw(t, "monthly"))
		yearly := decimal.NewFromInt(rapid.Int64Range(0, 2000000).Draw(t, "yearly"))
		savings := CalculateYearlySavings(monthly, yearly)
		if savings.IsNegative() {
			t.Fatalf("negative savings %s for monthly=%s yearly=%s", savings, monthly, yearly)
		}
		want := monthly.Mul(decimal.NewFromInt(12)).Sub(yearly)
		if want.IsPositive() && !savings.Equal(want) {
			t.Fatalf("savings %s, want %s", savings, want)
		}
	})
}

func TestSavingsPercent(t *testing.T) {
	assert.Equal(t, 16, SavingsPercent(decimal.NewFromInt(29), decimal.NewFromInt(290)))
	assert.Equal(t, 0, SavingsPercent(decimal.NewFromInt(100), decimal.NewFromInt(1300)))
	assert.Equal(t, 0, SavingsPercent(decimal.Zero, decimal.Zero))
}

func TestParseInterval(t *testing.T) {
	for in, want := range map[string]Interval{"monthly": Monthly, "Month": Monthly, "yearly": Yearly, "annual": Yearly} {
		got, err := ParseInterval(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseInterval("weekly")
	assert.Error(t, err)
}

// Package pricing renders plan names and prices for upgrade prompts and
// comparison tables. It has no state and does not compute what anyone owes.
package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"clubdesk/internal/plans"
)

// FreeLabel is shown instead of a zero price.
const FreeLabel = "Free"

const currencySymbol = "€"

// Interval is a billing cadence.
type Interval uint8

const (
	Monthly Interval = iota
	Yearly
)

func (i Interval) String() string {
	switch i {
	case Monthly:
		return "monthly"
	case Yearly:
		return "yearly"
	default:
		return fmt.Sprintf("interval(%d)", uint8(i))
	}
}

func (i Interval) unit() string {
	if i == Yearly {
		return "year"
	}
	return "month"
}

// ParseInterval accepts "monthly"/"month" and "yearly"/"year"/"annual".
func ParseInterval(s string) (Interval, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "monthly", "month":
		return Monthly, nil
	case "yearly", "year", "annual", "annually":
		return Yearly, nil
	default:
		return Monthly, fmt.Errorf("unknown billing interval %q", s)
	}
}

var printer = message.NewPrinter(language.English)

// FormatPlanName returns the customer-facing name of a tier.
func FormatPlanName(t plans.Tier) string {
	return plans.DisplayName(t)
}

// FormatPrice renders amount per interval, e.g. "€29/month" or
// "€1,990/year". Zero and negative amounts render as FreeLabel.
func FormatPrice(amount decimal.Decimal, interval Interval) string {
	if !amount.IsPositive() {
		return FreeLabel
	}
	return currencySymbol + formatAmount(amount) + "/" + interval.unit()
}

func formatAmount(amount decimal.Decimal) string {
	if amount.IsInteger() {
		return printer.Sprintf("%d", amount.IntPart())
	}
	return printer.Sprintf("%.2f", amount.Round(2).InexactFloat64())
}

// CalculateYearlySavings returns 12×monthly − yearly, floored at zero so a
// yearly price above twelve months never shows as a negative discount.
func CalculateYearlySavings(monthly, yearly decimal.Decimal) decimal.Decimal {
	savings := monthly.Mul(decimal.NewFromInt(12)).Sub(yearly)
	if savings.IsNegative() {
		return decimal.Zero
	}
	return savings
}

// SavingsPercent is the yearly discount as a whole percentage of twelve
// monthly payments, rounded down.
func SavingsPercent(monthly, yearly decimal.Decimal) int {
	full := monthly.Mul(decimal.NewFromInt(12))
	if !full.IsPositive() {
		return 0
	}
	savings := CalculateYearlySavings(monthly, yearly)
	return int(savings.Mul(decimal.NewFromInt(100)).Div(full).IntPart())
}

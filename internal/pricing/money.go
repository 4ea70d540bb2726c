package pricing

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.NewFromFloat(0.5)
)

// Round rounds to the nearest whole currency unit with halves going up
// (floor(x + 0.5)), the rounding every derived amount uses.
func Round(d decimal.Decimal) decimal.Decimal {
	return RoundTo(d, 0)
}

// RoundTo applies the same half-up rule at the given number of decimal places.
func RoundTo(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Shift(places).Add(half).Floor().Shift(-places)
}

// Percent returns pct percent of amount without rounding.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred)
}

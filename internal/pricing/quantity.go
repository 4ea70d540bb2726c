package pricing

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// NormalizeQuantity turns a user-entered quantity into the stored value. The
// first comma is read as the decimal separator and the longest numeric prefix
// is parsed. Unparseable or negative input becomes zero; anything else is
// rounded to two decimals.
func NormalizeQuantity(raw string) decimal.Decimal {
	clean := strings.TrimSpace(strings.Replace(raw, ",", ".", 1))
	match := numericPrefix.FindString(clean)
	if match == "" {
		return decimal.Zero
	}
	qty, err := decimal.NewFromString(match)
	if err != nil || qty.IsNegative() {
		return decimal.Zero
	}
	return RoundTo(qty, 2)
}

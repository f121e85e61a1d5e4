// Package display renders currencies, amounts and rate tables for the ERP screens.
// Everything here is synchronous and works over an already fetched currency list.
package display

import (
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// AmountDecimals fraction digits shown for every amount
const AmountDecimals = 2

// Venezuelan grouping, "Bs. 1.234,56"
var vesFormatter = money.NewFormatter(AmountDecimals, ",", ".", "Bs.", "$ 1")

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// FormatAmount renders amount with two decimals, thousands separated by commas and
// prefixed with symbol when one is given.
func FormatAmount(amount decimal.Decimal, symbol string) string {
	return format(money.NewFormatter(AmountDecimals, ".", ",", symbol, "$1"), amount)
}

// FormatVES renders a bolívar amount the way Venezuelan invoices print it.
func FormatVES(amount decimal.Decimal) string {
	return format(vesFormatter, amount)
}

// format rounds half away from zero to cents. Amounts whose cents overflow int64
// are laid out from their decimal string with the same separators and template.
func format(f *money.Formatter, amount decimal.Decimal) string {
	minor := amount.Round(AmountDecimals).Shift(AmountDecimals)
	if minor.Abs().LessThanOrEqual(maxMinorUnits) {
		return f.Format(minor.IntPart())
	}

	whole, frac, _ := strings.Cut(amount.Abs().StringFixed(AmountDecimals), ".")
	for i := len(whole) - 3; i > 0; i -= 3 {
		whole = whole[:i] + f.Thousand + whole[i:]
	}
	s := strings.Replace(f.Template, "1", whole+f.Decimal+frac, 1)
	s = strings.Replace(s, "$", f.Grapheme, 1)
	if amount.IsNegative() {
		s = "-" + s
	}
	return s
}

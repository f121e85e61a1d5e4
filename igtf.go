package currency

import "github.com/shopspring/decimal"

// IGTF the financial-transaction surcharge for an amount paid in c.
// Local previews only: the backend computes the invoiced figure.
func IGTF(amount decimal.Decimal, c Currency) decimal.Decimal {
	if !c.AppliesIGTF || c.IGTFRate.IsZero() {
		return decimal.Zero
	}
	return amount.Mul(c.IGTFRate).Div(decimal.NewFromInt(100))
}

// WithIGTF is amount plus its IGTF surcharge
func WithIGTF(amount decimal.Decimal, c Currency) decimal.Decimal {
	return amount.Add(IGTF(amount, c))
}

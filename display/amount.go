package display

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	currency "go-erp-currency"
)

// Converter converts amounts between currency codes
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (currency.Conversion, error)
}

// Amount a rendered amount. Converted is empty when there is nothing to show.
type Amount struct {
	Primary   string `json:"primary"`
	Converted string `json:"converted,omitempty"`
	Code      string `json:"code"`
	IsBase    bool   `json:"is_base"`
}

// AmountRenderer renders amounts in their own currency and, when Convert is set,
// adds the equivalent in the base currency.
type AmountRenderer struct {
	Currencies currency.Currencies
	Converter  Converter
	Convert    bool
}

// Render formats amount in the currency with id. Amounts in the base currency are
// never converted. A failed conversion drops the converted line and is not reported.
func (r AmountRenderer) Render(ctx context.Context, amount decimal.Decimal, id currency.ID) (Amount, error) {
	c, ok := r.Currencies.ByID(id)
	if !ok {
		return Amount{}, fmt.Errorf("%w: %v", currency.ErrNotFound, id)
	}

	out := Amount{
		Primary: FormatAmount(amount, c.Symbol),
		Code:    c.Code,
		IsBase:  c.IsBaseCurrency,
	}
	if c.IsBaseCurrency || !r.Convert || r.Converter == nil {
		return out, nil
	}

	base, ok := r.Currencies.Base()
	if !ok {
		return out, nil
	}
	conversion, err := r.Converter.Convert(ctx, amount, c.Code, base.Code)
	if err != nil {
		return out, nil
	}
	out.Converted = Approx(conversion.ConvertedAmount, base)
	return out, nil
}

// Approx renders "≈ <symbol><amount> <code>"
func Approx(amount decimal.Decimal, c currency.Currency) string {
	return "≈ " + FormatAmount(amount, c.Symbol) + " " + c.Code
}

package apitest

import (
	"github.com/shopspring/decimal"

	currency "go-erp-currency"
)

// Seed a small tenant table: USD base, VES at 36.5, inactive EUR with 3% IGTF
func Seed() currency.Currencies {
	return currency.Currencies{
		{ID: "1", Code: "USD", Name: "Dólar estadounidense", Symbol: "$", ExchangeRate: currency.One(), IsBaseCurrency: true, IsActive: true},
		{ID: "2", Code: "VES", Name: "Bolívar", Symbol: "Bs.", ExchangeRate: currency.MustRate("36.5"), IsActive: true},
		{ID: "3", Code: "EUR", Name: "Euro", Symbol: "€", ExchangeRate: currency.MustRate("0.92"), IsActive: false, AppliesIGTF: true, IGTFRate: decimal.NewFromInt(3)},
	}
}

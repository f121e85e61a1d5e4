package display

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	currency "go-erp-currency"
	"go-erp-currency/api"
	"go-erp-currency/api/apitest"
	"go-erp-currency/exchange"
)

type converter struct {
	calls int
	err   error
}

func (c *converter) Convert(_ context.Context, amount decimal.Decimal, from, to string) (currency.Conversion, error) {
	c.calls++
	if c.err != nil {
		return currency.Conversion{}, c.err
	}
	return currency.Conversion{OriginalAmount: amount, OriginalCurrency: from, ConvertedAmount: amount.Mul(decimal.NewFromFloat(36.5)), TargetCurrency: to}, nil
}

// vesBase a tenant keeping its books in bolívares
func vesBase() currency.Currencies {
	return currency.Currencies{
		{ID: "1", Code: "VES", Name: "Bolívar", Symbol: "Bs.", ExchangeRate: currency.One(), IsBaseCurrency: true, IsActive: true},
		{ID: "2", Code: "USD", Name: "Dólar", Symbol: "$", ExchangeRate: currency.MustRate("0.0273972603"), IsActive: true, AppliesIGTF: true, IGTFRate: decimal.NewFromInt(3)},
		{ID: "3", Code: "COP", Name: "Peso", Symbol: "$", ExchangeRate: currency.MustRate("110.5"), IsActive: false},
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount string
		symbol string
		want   string
	}{
		{"10", "$", "$10.00"},
		{"365", "Bs.", "Bs.365.00"},
		{"1234.5", "", "1,234.50"},
		{"0.005", "$", "$0.01"},
		{"1234567.891", "€", "€1,234,567.89"},
		{"-2.5", "$", "-$2.50"},
		{"99999999999999999", "$", "$99,999,999,999,999,999.00"},
		{"-123456789012345678.456", "$", "-$123,456,789,012,345,678.46"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAmount(decimal.RequireFromString(tt.amount), tt.symbol))
		})
	}
}

func TestFormatVES(t *testing.T) {
	assert.Equal(t, "Bs. 1.234,56", FormatVES(decimal.RequireFromString("1234.56")))
	assert.Equal(t, "Bs. 0,50", FormatVES(decimal.RequireFromString("0.5")))
	assert.Equal(t, "Bs. 1.000.000,00", FormatVES(decimal.NewFromInt(1000000)))
	assert.Equal(t, "Bs. 100.000.000.000.000.000,00", FormatVES(decimal.RequireFromString("100000000000000000")))
}

func TestBadge(t *testing.T) {
	list := vesBase()
	assert.Equal(t, "🇻🇪 VES", Badge("1", list))
	assert.Equal(t, "🇺🇸 USD", Badge("2", list))
	assert.Equal(t, Unknown, Badge("99", list))

	list = append(list, currency.Currency{ID: "4", Code: "xau"})
	assert.Equal(t, GenericFlag+" XAU", Badge("4", list))
}

func TestAmountRenderer_BaseNeverConverts(t *testing.T) {
	conv := &converter{}
	r := AmountRenderer{Currencies: vesBase(), Converter: conv, Convert: true}

	got, err := r.Render(context.Background(), decimal.NewFromInt(100), "1")
	require.NoError(t, err)
	assert.Equal(t, "Bs.100.00", got.Primary)
	assert.Empty(t, got.Converted)
	assert.True(t, got.IsBase)
	assert.Equal(t, 0, conv.calls)
}

func TestAmountRenderer_ConvertsToBase(t *testing.T) {
	conv := &converter{}
	r := AmountRenderer{Currencies: vesBase(), Converter: conv, Convert: true}

	got, err := r.Render(context.Background(), decimal.NewFromInt(10), "2")
	require.NoError(t, err)
	assert.Equal(t, "$10.00", got.Primary)
	assert.Equal(t, "≈ Bs.365.00 VES", got.Converted)
	assert.Equal(t, 1, conv.calls)
}

func TestAmountRenderer_ConversionDisabled(t *testing.T) {
	conv := &converter{}
	r := AmountRenderer{Currencies: vesBase(), Converter: conv}

	got, err := r.Render(context.Background(), decimal.NewFromInt(10), "2")
	require.NoError(t, err)
	assert.Empty(t, got.Converted)
	assert.Equal(t, 0, conv.calls)
}

func TestAmountRenderer_ConversionFailureIsSwallowed(t *testing.T) {
	r := AmountRenderer{Currencies: vesBase(), Converter: &converter{err: errors.New("down")}, Convert: true}

	got, err := r.Render(context.Background(), decimal.NewFromInt(10), "2")
	require.NoError(t, err)
	assert.Equal(t, "$10.00", got.Primary)
	assert.Empty(t, got.Converted)
}

func TestAmountRenderer_UnknownCurrency(t *testing.T) {
	r := AmountRenderer{Currencies: vesBase()}
	_, err := r.Render(context.Background(), decimal.NewFromInt(10), "99")
	assert.True(t, errors.Is(err, currency.ErrNotFound))
}

func TestAmountRenderer_AgainstServer(t *testing.T) {
	server := apitest.NewServer(vesBase())
	defer server.Close()
	r := AmountRenderer{
		Currencies: vesBase(),
		Converter:  exchange.NewService(api.NewService(server.URL)),
		Convert:    true,
	}

	got, err := r.Render(context.Background(), decimal.NewFromInt(10), "2")
	require.NoError(t, err)
	assert.Equal(t, "$10.00", got.Primary)
	assert.Equal(t, "≈ Bs.365.00 VES", got.Converted)
	assert.Equal(t, 1, server.Calls("convert"))
}

func TestOptions(t *testing.T) {
	list := vesBase()

	all := Options(list, SelectorOptions{})
	require.Len(t, all, 2)
	assert.Equal(t, []string{"Base"}, all[0].Badges)
	assert.Equal(t, "🇻🇪 VES - Bolívar", all[0].Label)
	assert.Equal(t, []string{"IGTF 3%"}, all[1].Badges)

	noBase := Options(list, SelectorOptions{ExcludeBase: true})
	require.Len(t, noBase, 1)
	assert.Equal(t, "USD", noBase[0].Code)
}

func TestFactorTable(t *testing.T) {
	factor := currency.MustRate("36.5")
	rows := FactorTable([]currency.ConversionFactor{
		{CurrencyID: "2", Code: "VES", ExchangeRate: factor, ConversionFactor: &factor, ConversionMethod: currency.MethodInverse},
		{CurrencyID: "3", Code: "EUR", ExchangeRate: currency.MustRate("0.92"), AppliesIGTF: true, IGTFRate: decimal.NewFromInt(3)},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, "36.5000000000", rows[0].Factor)
	assert.Equal(t, "inverse", rows[0].Method)
	assert.Equal(t, Unknown, rows[0].IGTF)
	assert.Equal(t, Unknown, rows[1].Factor)
	assert.Equal(t, "direct", rows[1].Method)
	assert.Equal(t, "3%", rows[1].IGTF)
}

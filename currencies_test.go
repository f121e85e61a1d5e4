package currency

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func table() Currencies {
	return Currencies{
		{ID: "1", Code: "USD", Symbol: "$", ExchangeRate: MustRate("1"), IsBaseCurrency: true, IsActive: true},
		{ID: "2", Code: "VES", Symbol: "Bs.", ExchangeRate: MustRate("36.5"), IsActive: true},
		{ID: "3", Code: "EUR", Symbol: "€", ExchangeRate: MustRate("0.92"), IsActive: false, AppliesIGTF: true, IGTFRate: decimal.NewFromInt(3)},
	}
}

func TestCurrencies_Lookups(t *testing.T) {
	cs := table()

	base, ok := cs.Base()
	assert.True(t, ok)
	assert.Equal(t, "USD", base.Code)

	ves, ok := cs.ByID("2")
	assert.True(t, ok)
	assert.Equal(t, "VES", ves.Code)

	_, ok = cs.ByID("99")
	assert.False(t, ok)

	eur, ok := cs.ByCode("eur")
	assert.True(t, ok)
	assert.Equal(t, ID("3"), eur.ID)

	assert.Len(t, cs.Active(), 2)
	assert.Len(t, cs.WithoutBase(), 2)
}

func TestCurrencies_Validate(t *testing.T) {
	cs := table()
	assert.NoError(t, cs.Validate())

	cs[1].IsBaseCurrency = true
	assert.ErrorIs(t, cs.Validate(), ErrMultipleBase)

	assert.NoError(t, Currencies{}.Validate())
}

func TestIGTF(t *testing.T) {
	cs := table()
	eur, _ := cs.ByCode("EUR")
	amount := decimal.NewFromInt(100)

	assert.True(t, IGTF(amount, eur).Equal(decimal.NewFromInt(3)))
	assert.True(t, WithIGTF(amount, eur).Equal(decimal.NewFromInt(103)))

	ves, _ := cs.ByCode("VES")
	assert.True(t, IGTF(amount, ves).IsZero())
}

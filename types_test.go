package currency

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrency_UnmarshalJSON(t *testing.T) {
	payload := `{
		"id": 2,
		"code": "VES",
		"name": "Bolívar",
		"symbol": "Bs.",
		"exchange_rate": "36.5000000000",
		"is_base_currency": false,
		"is_active": true,
		"applies_igtf": true,
		"igtf_rate": "3.00",
		"conversion_factor": null,
		"conversion_method": "direct",
		"last_rate_update": "2024-05-02T10:15:00"
	}`

	var c Currency
	require.NoError(t, json.Unmarshal([]byte(payload), &c))

	assert.Equal(t, ID("2"), c.ID)
	assert.Equal(t, "VES", c.Code)
	assert.True(t, c.ExchangeRate.Equal(decimal.RequireFromString("36.5")))
	assert.True(t, c.IGTFRate.Equal(decimal.NewFromInt(3)))
	assert.Nil(t, c.ConversionFactor)
	assert.Equal(t, MethodDirect, c.ConversionMethod)
	require.NotNil(t, c.LastRateUpdate)
	assert.Equal(t, 2024, c.LastRateUpdate.Year())
}

func TestRate_MarshalJSONKeepsPrecision(t *testing.T) {
	r := MustRate("36.1234567891")
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `"36.1234567891"`, string(b))

	b, err = json.Marshal(MustRate("1"))
	require.NoError(t, err)
	assert.Equal(t, `"1.0000000000"`, string(b))
}

func TestRate_UnmarshalNumberAndString(t *testing.T) {
	var fromString, fromNumber Rate
	require.NoError(t, json.Unmarshal([]byte(`"0.0273972603"`), &fromString))
	require.NoError(t, json.Unmarshal([]byte(`0.0273972603`), &fromNumber))
	assert.True(t, fromString.Equal(fromNumber.Decimal))
	assert.Equal(t, "0.0273972603", fromString.String())
}

func TestID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ID
	}{
		{"number", `42`, "42"},
		{"string", `"b7e2"`, "b7e2"},
		{"null", `null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tt.in), &id))
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestTimestamp_Layouts(t *testing.T) {
	for _, in := range []string{`"2024-05-02T10:15:00Z"`, `"2024-05-02T10:15:00.123456"`, `"2024-05-02"`} {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(in), &ts), in)
		assert.Equal(t, 2, ts.Day(), in)
	}

	var bad Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("true")
	require.NoError(t, err)
	assert.Equal(t, Active, f)
	assert.Equal(t, "true", f.Query())

	f, err = ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, "", f.Query())

	_, err = ParseFilter("maybe")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCurrency_EffectiveRate(t *testing.T) {
	usd := Currency{Code: "USD", IsBaseCurrency: true, ExchangeRate: MustRate("0")}
	assert.Equal(t, "1.0000000000", usd.EffectiveRate().String())

	ves := Currency{Code: "VES", ExchangeRate: MustRate("36.5")}
	assert.Equal(t, "36.5000000000", ves.EffectiveRate().String())
}

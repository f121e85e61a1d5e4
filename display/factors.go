package display

import (
	currency "go-erp-currency"
)

// FactorRow one read-only line of the conversion factor table
type FactorRow struct {
	Badge  string `json:"badge"`
	Code   string `json:"code"`
	Rate   string `json:"rate"`
	Factor string `json:"factor"`
	Method string `json:"method"`
	IGTF   string `json:"igtf"`
}

// FactorTable formats the factor rows in the order the API returned them
func FactorTable(factors []currency.ConversionFactor) []FactorRow {
	rows := make([]FactorRow, 0, len(factors))
	for _, f := range factors {
		row := FactorRow{
			Badge:  badge(currency.Currency{Code: f.Code}),
			Code:   f.Code,
			Rate:   f.ExchangeRate.String(),
			Factor: Unknown,
			Method: string(f.ConversionMethod),
			IGTF:   Unknown,
		}
		if f.ConversionFactor != nil {
			row.Factor = f.ConversionFactor.String()
		}
		if row.Method == "" {
			row.Method = string(currency.MethodDirect)
		}
		if f.AppliesIGTF {
			row.IGTF = f.IGTFRate.String() + "%"
		}
		rows = append(rows, row)
	}
	return rows
}

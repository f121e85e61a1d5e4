package display

import (
	"fmt"
	"strings"

	currency "go-erp-currency"
)

// GenericFlag shown for codes with no known flag
const GenericFlag = "💱"

// Unknown is the badge of a currency id missing from the list
const Unknown = "-"

var flags = map[string]string{
	"USD": "🇺🇸",
	"VES": "🇻🇪",
	"VEF": "🇻🇪",
	"EUR": "🇪🇺",
	"COP": "🇨🇴",
	"BRL": "🇧🇷",
	"ARS": "🇦🇷",
	"CLP": "🇨🇱",
	"PEN": "🇵🇪",
	"MXN": "🇲🇽",
	"GBP": "🇬🇧",
	"CNY": "🇨🇳",
	"JPY": "🇯🇵",
	"CAD": "🇨🇦",
	"TRY": "🇹🇷",
	"RUB": "🇷🇺",
}

// Flag returns the flag glyph for an ISO code
func Flag(code string) string {
	if f, ok := flags[strings.ToUpper(code)]; ok {
		return f
	}
	return GenericFlag
}

// Badge a fixed-width label for the currency id: flag followed by the code.
func Badge(id currency.ID, list currency.Currencies) string {
	c, ok := list.ByID(id)
	if !ok {
		return Unknown
	}
	return badge(c)
}

func badge(c currency.Currency) string {
	code := strings.ToUpper(c.Code)
	return fmt.Sprintf("%s %-3s", Flag(code), code)
}

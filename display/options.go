package display

import (
	"fmt"

	currency "go-erp-currency"
)

// SelectorOptions controls which currencies a selector offers
type SelectorOptions struct {
	ExcludeBase bool
}

// Option one entry of a currency selector
type Option struct {
	ID     currency.ID `json:"id"`
	Code   string      `json:"code"`
	Label  string      `json:"label"`
	Badges []string    `json:"badges,omitempty"`
	IsBase bool        `json:"is_base"`
}

// Options lists the active currencies, tagged with their IGTF rate and a base marker.
func Options(list currency.Currencies, opts SelectorOptions) []Option {
	out := []Option{}
	for _, c := range list.Active() {
		if opts.ExcludeBase && c.IsBaseCurrency {
			continue
		}
		o := Option{
			ID:     c.ID,
			Code:   c.Code,
			Label:  fmt.Sprintf("%s - %s", badge(c), c.Name),
			IsBase: c.IsBaseCurrency,
		}
		if c.IsBaseCurrency {
			o.Badges = append(o.Badges, "Base")
		}
		if c.AppliesIGTF {
			o.Badges = append(o.Badges, "IGTF "+c.IGTFRate.String()+"%")
		}
		out = append(out, o)
	}
	return out
}

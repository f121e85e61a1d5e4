package currency

import (
	"fmt"
	"strings"
)

// Currencies the tenant's currency table as fetched from the API
type Currencies []Currency

// Base returns the base currency, if the table has one.
func (cs Currencies) Base() (Currency, bool) {
	for _, c := range cs {
		if c.IsBaseCurrency {
			return c, true
		}
	}
	return Currency{}, false
}

// ByID looks a currency up by id
func (cs Currencies) ByID(id ID) (Currency, bool) {
	for _, c := range cs {
		if c.ID == id {
			return c, true
		}
	}
	return Currency{}, false
}

// ByCode looks a currency up by code, case-insensitively
func (cs Currencies) ByCode(code string) (Currency, bool) {
	for _, c := range cs {
		if strings.EqualFold(c.Code, code) {
			return c, true
		}
	}
	return Currency{}, false
}

// Active returns the active currencies in table order
func (cs Currencies) Active() Currencies {
	active := Currencies{}
	for _, c := range cs {
		if c.IsActive {
			active = append(active, c)
		}
	}
	return active
}

// WithoutBase returns the table minus the base currency
func (cs Currencies) WithoutBase() Currencies {
	rest := Currencies{}
	for _, c := range cs {
		if !c.IsBaseCurrency {
			rest = append(rest, c)
		}
	}
	return rest
}

// Validate enforces the at-most-one base currency invariant
func (cs Currencies) Validate() error {
	var base []string
	for _, c := range cs {
		if c.IsBaseCurrency {
			base = append(base, c.Code)
		}
	}
	if len(base) > 1 {
		return fmt.Errorf("%w: %s", ErrMultipleBase, strings.Join(base, ", "))
	}
	return nil
}

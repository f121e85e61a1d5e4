package currency

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RatePrecision number of fraction digits an exchange rate carries on the wire
const RatePrecision = 10

// ID a backend identifier. The API sends ids either as numbers or as strings.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return fmt.Errorf("decoding id: %w", err)
		}
		*id = ID(str)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decoding id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Rate an exchange rate, transmitted as a decimal string.
// Rates are echoed back with RatePrecision fraction digits so no precision is lost.
type Rate struct {
	decimal.Decimal
}

// NewRate parses a decimal rate string without going through float64
func NewRate(s string) (Rate, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Rate{}, fmt.Errorf("bad rate value %q: %w", s, err)
	}
	return Rate{d}, nil
}

// MustRate is NewRate for literals; it panics on a malformed value.
func MustRate(s string) Rate {
	r, err := NewRate(s)
	if err != nil {
		panic(err)
	}
	return r
}

// One the implicit rate of the base currency
func One() Rate { return Rate{decimal.NewFromInt(1)} }

func (r Rate) String() string { return r.StringFixed(RatePrecision) }

func (r Rate) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(r.String())), nil
}

func (r *Rate) UnmarshalJSON(b []byte) error {
	return r.Decimal.UnmarshalJSON(b)
}

// Timestamp accepts RFC 3339 as well as the zone-less and date-only layouts the API emits.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	s, err := strconv.Unquote(s)
	if err != nil {
		return fmt.Errorf("decoding timestamp %s: %w", b, err)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("decoding timestamp: unknown layout %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return t.Time.MarshalJSON()
}

// ConversionMethod how a currency's rate is applied against the base currency
type ConversionMethod string

const (
	MethodDirect  ConversionMethod = "direct"
	MethodInverse ConversionMethod = "inverse"
)

// ChangeType why a rate changed
type ChangeType string

const (
	ChangeManual       ChangeType = "manual"
	ChangeAutomaticAPI ChangeType = "automatic_api"
	ChangeScheduled    ChangeType = "scheduled"
	ChangeCorrection   ChangeType = "correction"
)

// Currency a tenant currency with its current rate against the base currency
type Currency struct {
	ID               ID               `json:"id"`
	Code             string           `json:"code"`
	Name             string           `json:"name"`
	Symbol           string           `json:"symbol"`
	ExchangeRate     Rate             `json:"exchange_rate"`
	IsBaseCurrency   bool             `json:"is_base_currency"`
	IsActive         bool             `json:"is_active"`
	AppliesIGTF      bool             `json:"applies_igtf"`
	IGTFRate         decimal.Decimal  `json:"igtf_rate"`
	ConversionFactor *Rate            `json:"conversion_factor,omitempty"`
	ConversionMethod ConversionMethod `json:"conversion_method,omitempty"`
	LastRateUpdate   *Timestamp       `json:"last_rate_update,omitempty"`
}

// EffectiveRate is the stored rate, or 1 for the base currency.
func (c Currency) EffectiveRate() Rate {
	if c.IsBaseCurrency {
		return One()
	}
	return c.ExchangeRate
}

// RateHistory one append-only audit record of a rate change
type RateHistory struct {
	ID                   ID              `json:"id"`
	CurrencyID           ID              `json:"currency_id"`
	OldRate              Rate            `json:"old_rate"`
	NewRate              Rate            `json:"new_rate"`
	RateVariationPercent decimal.Decimal `json:"rate_variation_percent"`
	ChangeType           ChangeType      `json:"change_type"`
	ChangeSource         string          `json:"change_source"`
	ChangeReason         string          `json:"change_reason"`
	ChangedBy            ID              `json:"changed_by"`
	ChangedAt            Timestamp       `json:"changed_at"`
	ProviderMetadata     json.RawMessage `json:"provider_metadata,omitempty"`
}

// RateMetadata describes the rate the backend used for a conversion
type RateMetadata struct {
	Rate          Rate             `json:"rate"`
	Method        ConversionMethod `json:"method"`
	Source        string           `json:"source"`
	CurrencyID    ID               `json:"currency_id"`
	DecimalPlaces int              `json:"decimal_places"`
	LastUpdate    *Timestamp       `json:"last_update,omitempty"`
}

// Conversion the result of a backend conversion. Never persisted.
type Conversion struct {
	OriginalAmount   decimal.Decimal  `json:"original_amount"`
	OriginalCurrency string           `json:"original_currency"`
	ConvertedAmount  decimal.Decimal  `json:"converted_amount"`
	TargetCurrency   string           `json:"target_currency"`
	RateMetadata     RateMetadata     `json:"rate_metadata"`
	ConversionMethod ConversionMethod `json:"conversion_method,omitempty"`
}

// ConversionFactor a read-only row of the factor table
type ConversionFactor struct {
	CurrencyID       ID               `json:"currency_id"`
	Code             string           `json:"code"`
	ExchangeRate     Rate             `json:"exchange_rate"`
	ConversionFactor *Rate            `json:"conversion_factor,omitempty"`
	ConversionMethod ConversionMethod `json:"conversion_method,omitempty"`
	AppliesIGTF      bool             `json:"applies_igtf"`
	IGTFRate         decimal.Decimal  `json:"igtf_rate"`
}

// TodayRate the official rate of the day for a currency pair (BCV, or the fallback source)
type TodayRate struct {
	From        string    `json:"from,omitempty"`
	To          string    `json:"to,omitempty"`
	Rate        Rate      `json:"rate"`
	RateDate    Timestamp `json:"rate_date"`
	Source      string    `json:"source"`
	InverseRate Rate      `json:"inverse_rate"`
}

// Filter selects currencies by their active flag
type Filter int

const (
	All Filter = iota
	Active
	Inactive
)

// Query returns the is_active query value, empty for All.
func (f Filter) Query() string {
	switch f {
	case Active:
		return "true"
	case Inactive:
		return "false"
	default:
		return ""
	}
}

func (f Filter) String() string {
	switch f {
	case Active:
		return "active"
	case Inactive:
		return "inactive"
	default:
		return "all"
	}
}

// ParseFilter maps "true"/"false"/"" (and active/inactive/all) to a Filter.
func ParseFilter(s string) (Filter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return All, nil
	case "true", "active":
		return Active, nil
	case "false", "inactive":
		return Inactive, nil
	}
	return All, fmt.Errorf("%w: unknown currency filter %q", ErrValidation, s)
}

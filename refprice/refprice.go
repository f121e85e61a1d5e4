// Package refprice shows the bolívar reference price (REF) of a dollar price
// using the official rate of the day.
package refprice

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	currency "go-erp-currency"
	"go-erp-currency/display"
	"go-erp-currency/errmsg"
)

// State of the calculator
type State int

const (
	Hidden State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "hidden"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// RateSource looks up the official rate of the day
type RateSource interface {
	TodayRate(ctx context.Context, from, to string) (currency.TodayRate, error)
}

// Result what the calculator shows. Advisory only, never used for booking.
type Result struct {
	State   State           `json:"state"`
	USD     decimal.Decimal `json:"usd"`
	VES     decimal.Decimal `json:"ves"`
	Rate    currency.Rate   `json:"rate"`
	Source  string          `json:"source,omitempty"`
	Display string          `json:"display,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Calculator turns a USD price into its VES reference. Only the latest input is
// shown: a slow lookup for an older input never replaces a newer result.
type Calculator struct {
	rates RateSource

	// OnChange, if set, receives every state change including Loading
	OnChange func(Result)

	lock    sync.Mutex
	seq     uint64
	current Result
}

// New returns a hidden Calculator
func New(rates RateSource) *Calculator {
	return &Calculator{rates: rates}
}

// Result the latest shown result
func (c *Calculator) Result() Result {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.current
}

// Calculate reacts to a new USD price. Unparsable or non-positive input hides the
// calculator without any lookup.
func (c *Calculator) Calculate(ctx context.Context, priceUSD string) Result {
	usd, ok := parsePrice(priceUSD)
	if !ok {
		r, _ := c.set(c.next(), Result{State: Hidden})
		return r
	}

	seq := c.next()
	c.set(seq, Result{State: Loading, USD: usd})

	rate, err := c.rates.TodayRate(ctx, "USD", "VES")
	if err != nil {
		r, _ := c.set(seq, Result{State: Failed, USD: usd, Error: errmsg.Extract(err)})
		return r
	}

	ves := usd.Mul(rate.Rate.Decimal).Round(display.AmountDecimals)
	r, _ := c.set(seq, Result{
		State:   Ready,
		USD:     usd,
		VES:     ves,
		Rate:    rate.Rate,
		Source:  rate.Source,
		Display: display.FormatVES(ves),
	})
	return r
}

func (c *Calculator) next() uint64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.seq++
	return c.seq
}

// set stores r unless a newer Calculate started; it returns what is shown.
func (c *Calculator) set(seq uint64, r Result) (Result, bool) {
	c.lock.Lock()
	if seq != c.seq {
		current := c.current
		c.lock.Unlock()
		return current, false
	}
	c.current = r
	onChange := c.OnChange
	c.lock.Unlock()

	if onChange != nil {
		onChange(r)
	}
	return r, true
}

func parsePrice(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

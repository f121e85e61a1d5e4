// Package store owns the client-side currency state shared by the ERP widgets:
// the fetched currency list, conversion factors, one currency's rate history,
// a loading flag and the last error message.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/shopspring/decimal"

	currency "go-erp-currency"
	"go-erp-currency/api"
	"go-erp-currency/errmsg"
	"go-erp-currency/exchange"
)

// State a point-in-time copy of the store
type State struct {
	Currencies        currency.Currencies
	ConversionFactors []currency.ConversionFactor
	History           []currency.RateHistory
	HistoryCurrencyID currency.ID
	IsLoading         bool
	Error             string
}

func (st State) clone() State {
	st.Currencies = append(currency.Currencies(nil), st.Currencies...)
	st.ConversionFactors = append([]currency.ConversionFactor(nil), st.ConversionFactors...)
	st.History = append([]currency.RateHistory(nil), st.History...)
	return st
}

// Store is safe for concurrent use. Subscribers are notified outside the lock
// after every change, in no particular order.
type Store struct {
	api      api.Service
	exchange exchange.Service
	logger   log.Logger

	lock        sync.Mutex
	state       State
	filter      currency.Filter
	inflight    int
	subscribers map[int]func(State)
	nextSub     int
}

// Option configures a Store
type Option func(*Store)

// WithLogger reports failed operations to logger
func WithLogger(logger log.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithExchange overrides the conversion service, by default exchange.NewService(apiService)
func WithExchange(e exchange.Service) Option {
	return func(s *Store) { s.exchange = e }
}

// New returns an empty Store reading through apiService
func New(apiService api.Service, opts ...Option) *Store {
	s := &Store{
		api:         apiService,
		logger:      log.NewNopLogger(),
		subscribers: map[int]func(State){},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.exchange == nil {
		s.exchange = exchange.NewService(apiService)
	}
	return s
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state.clone()
}

// Subscribe registers fn for state changes and returns a function that removes it.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.lock.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.lock.Unlock()

	return func() {
		s.lock.Lock()
		delete(s.subscribers, id)
		s.lock.Unlock()
	}
}

// FetchCurrencies replaces the currency list. On failure the previous list is kept.
func (s *Store) FetchCurrencies(ctx context.Context, filter currency.Filter) (currency.Currencies, error) {
	var list currency.Currencies
	err := s.run(ctx, "fetch_currencies", func(ctx context.Context) (func(*State), error) {
		fetched, err := s.api.ListCurrencies(ctx, filter)
		if err != nil {
			return nil, err
		}
		if err := fetched.Validate(); err != nil {
			return nil, err
		}
		list = fetched
		return func(st *State) {
			st.Currencies = fetched
			s.filter = filter
		}, nil
	})
	return list, err
}

// FetchConversionFactors replaces the factor table
func (s *Store) FetchConversionFactors(ctx context.Context) ([]currency.ConversionFactor, error) {
	var factors []currency.ConversionFactor
	err := s.run(ctx, "fetch_conversion_factors", func(ctx context.Context) (func(*State), error) {
		fetched, err := s.api.ConversionFactors(ctx)
		if err != nil {
			return nil, err
		}
		factors = fetched
		return func(st *State) { st.ConversionFactors = fetched }, nil
	})
	return factors, err
}

// FetchRateHistory replaces the history with id's records, newest first.
func (s *Store) FetchRateHistory(ctx context.Context, id currency.ID) ([]currency.RateHistory, error) {
	var history []currency.RateHistory
	err := s.run(ctx, "fetch_rate_history", func(ctx context.Context) (func(*State), error) {
		fetched, err := s.api.RateHistory(ctx, id)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(fetched, func(i, j int) bool {
			return fetched[i].ChangedAt.After(fetched[j].ChangedAt.Time)
		})
		history = fetched
		return func(st *State) {
			st.History = fetched
			st.HistoryCurrencyID = id
		}, nil
	})
	return history, err
}

// UpdateCurrencyRate validates and submits form. Nothing changes locally until the server
// accepts it; then the cache is dropped and the currency list (and the history, when it
// shows id) is fetched again. The update stands even if that reload fails: the error is
// left in State.Error and the accepted currency is returned.
func (s *Store) UpdateCurrencyRate(ctx context.Context, id currency.ID, form currency.RateUpdate) (currency.Currency, error) {
	var updated currency.Currency
	err := s.run(ctx, "update_currency_rate", func(ctx context.Context) (func(*State), error) {
		if err := form.Validate(); err != nil {
			return nil, err
		}
		c, err := s.api.UpdateRate(ctx, id, form)
		if err != nil {
			return nil, err
		}
		updated = c
		return nil, nil
	})
	if err != nil {
		return currency.Currency{}, err
	}

	s.Invalidate(ctx)

	s.lock.Lock()
	filter, historyID := s.filter, s.state.HistoryCurrencyID
	s.lock.Unlock()

	if _, err := s.FetchCurrencies(ctx, filter); err != nil {
		level.Warn(s.logger).Log("msg", "rate updated but currency reload failed", "id", id, "err", err)
		return updated, nil
	}
	if historyID == id {
		if _, err := s.FetchRateHistory(ctx, id); err != nil {
			level.Warn(s.logger).Log("msg", "rate updated but history reload failed", "id", id, "err", err)
		}
	}
	return updated, nil
}

// ConvertCurrency converts through the API; from == to returns amount unchanged.
func (s *Store) ConvertCurrency(ctx context.Context, from, to string, amount decimal.Decimal) (currency.Conversion, error) {
	var conversion currency.Conversion
	err := s.run(ctx, "convert_currency", func(ctx context.Context) (func(*State), error) {
		c, err := s.exchange.Convert(ctx, amount, from, to)
		if err != nil {
			return nil, err
		}
		conversion = c
		return nil, nil
	})
	return conversion, err
}

// TodayRate the official rate of the day for from/to
func (s *Store) TodayRate(ctx context.Context, from, to string) (currency.TodayRate, error) {
	var rate currency.TodayRate
	err := s.run(ctx, "today_rate", func(ctx context.Context) (func(*State), error) {
		r, err := s.api.TodayRate(ctx, from, to)
		if err != nil {
			return nil, err
		}
		rate = r
		return nil, nil
	})
	return rate, err
}

// SyncBCV triggers the backend's official rate sync and reloads the currency list.
// A failed reload after a successful sync is only recorded in State.Error.
func (s *Store) SyncBCV(ctx context.Context) error {
	err := s.run(ctx, "sync_bcv", func(ctx context.Context) (func(*State), error) {
		return nil, s.api.SyncBCV(ctx)
	})
	if err != nil {
		return err
	}

	s.Invalidate(ctx)

	s.lock.Lock()
	filter := s.filter
	s.lock.Unlock()

	if _, err := s.FetchCurrencies(ctx, filter); err != nil {
		level.Warn(s.logger).Log("msg", "bcv synced but currency reload failed", "err", err)
	}
	return nil
}

// ClearError dismisses the current error message
func (s *Store) ClearError() {
	s.mutate(func(st *State) { st.Error = "" })
}

// Invalidate drops the shared response cache, if the API service has one.
func (s *Store) Invalidate(ctx context.Context) {
	inv, ok := s.api.(api.Invalidator)
	if !ok {
		return
	}
	if err := inv.Invalidate(ctx); err != nil {
		level.Warn(s.logger).Log("msg", "cache invalidation failed", "err", err)
	}
}

// run wraps one API call: raises IsLoading, then either applies the result and clears
// the error, or records the error message and leaves the rest of the state untouched.
func (s *Store) run(ctx context.Context, op string, call func(context.Context) (func(*State), error)) error {
	s.mutate(func(st *State) {
		s.inflight++
		st.IsLoading = true
	})

	apply, err := call(ctx)

	s.mutate(func(st *State) {
		s.inflight--
		st.IsLoading = s.inflight > 0
		if err != nil {
			st.Error = errmsg.Extract(err)
			return
		}
		st.Error = ""
		if apply != nil {
			apply(st)
		}
	})

	if err != nil {
		level.Warn(s.logger).Log("op", op, "err", err)
	}
	return err
}

func (s *Store) mutate(fn func(*State)) {
	s.lock.Lock()
	fn(&s.state)
	snapshot := s.state.clone()
	subscribers := make([]func(State), 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		subscribers = append(subscribers, sub)
	}
	s.lock.Unlock()

	for _, sub := range subscribers {
		sub(snapshot)
	}
}

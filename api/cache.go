package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	currency "go-erp-currency"
	"go-erp-currency/cache"
)

const (
	keyCurrencies = "currencies:"
	keyFactors    = "conversion-factors"
	keyToday      = "today:"
)

// Invalidator is implemented by services that hold cached responses
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// cachingService decorates a Service with a time-bounded cache of the read-mostly endpoints.
// Concurrent misses on the same key share one upstream request.
// Rate history and conversions always go to the API. A ttl <= 0 disables storing.
type cachingService struct {
	// next the service being decorated with a cache
	next Service

	// cache the backing store, values are JSON
	cache cache.Cache

	// ttl how long a cached response stays valid
	ttl time.Duration

	// group collapses concurrent loads of one key within a generation
	group singleflight.Group

	// gen counts invalidations; a load started under an older generation is not stored
	gen  uint64
	lock sync.RWMutex

	logger log.Logger
}

// NewCachingService returns a new caching Service. Successful UpdateRate and
// SyncBCV calls drop every cached entry they can affect.
func NewCachingService(ttl time.Duration, c cache.Cache, s Service) Service {
	return NewCachingServiceWithLogger(ttl, c, s, log.NewNopLogger())
}

// NewCachingServiceWithLogger is NewCachingService reporting cache faults to logger
func NewCachingServiceWithLogger(ttl time.Duration, c cache.Cache, s Service, logger log.Logger) Service {
	return &cachingService{
		next:   s,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *cachingService) ListCurrencies(ctx context.Context, filter currency.Filter) (currency.Currencies, error) {
	return cached(ctx, s, keyCurrencies+filter.String(), func(ctx context.Context) (currency.Currencies, error) {
		return s.next.ListCurrencies(ctx, filter)
	})
}

func (s *cachingService) ConversionFactors(ctx context.Context) ([]currency.ConversionFactor, error) {
	return cached(ctx, s, keyFactors, s.next.ConversionFactors)
}

func (s *cachingService) TodayRate(ctx context.Context, from, to string) (currency.TodayRate, error) {
	return cached(ctx, s, keyToday+from+":"+to, func(ctx context.Context) (currency.TodayRate, error) {
		return s.next.TodayRate(ctx, from, to)
	})
}

func (s *cachingService) RateHistory(ctx context.Context, id currency.ID) ([]currency.RateHistory, error) {
	return s.next.RateHistory(ctx, id)
}

func (s *cachingService) Convert(ctx context.Context, from, to string, amount decimal.Decimal) (currency.Conversion, error) {
	return s.next.Convert(ctx, from, to, amount)
}

func (s *cachingService) UpdateRate(ctx context.Context, id currency.ID, form currency.RateUpdate) (currency.Currency, error) {
	updated, err := s.next.UpdateRate(ctx, id, form)
	if err != nil {
		return currency.Currency{}, err
	}
	s.invalidate(ctx, keyCurrencies, keyFactors)
	return updated, nil
}

func (s *cachingService) SyncBCV(ctx context.Context) error {
	if err := s.next.SyncBCV(ctx); err != nil {
		return err
	}
	s.invalidate(ctx, keyCurrencies, keyFactors, keyToday)
	return nil
}

// Invalidate drops every cached entry
func (s *cachingService) Invalidate(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.gen++
	for _, prefix := range []string{keyCurrencies, keyFactors, keyToday} {
		if err := s.cache.DeletePrefix(ctx, prefix); err != nil {
			return fmt.Errorf("invalidating cache [%v]: %w", prefix, err)
		}
	}
	return nil
}

// invalidate starts a new generation so reads after a write never join or store a load begun before it.
func (s *cachingService) invalidate(ctx context.Context, prefixes ...string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.gen++
	for _, prefix := range prefixes {
		if err := s.cache.DeletePrefix(ctx, prefix); err != nil {
			level.Warn(s.logger).Log("msg", "cache invalidation failed", "prefix", prefix, "err", err)
		}
	}
}

func (s *cachingService) generation() uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.gen
}

// store writes raw under key unless an invalidation happened since gen
func (s *cachingService) store(ctx context.Context, gen uint64, key string, raw []byte) {
	if s.ttl <= 0 {
		return
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.gen != gen {
		level.Debug(s.logger).Log("msg", "discarding stale load", "key", key)
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		level.Warn(s.logger).Log("msg", "cache write failed", "key", key, "err", err)
	}
}

// lookup returns a live cached value for key, if any
func lookup[T any](ctx context.Context, s *cachingService, key string) (T, bool) {
	var v T
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		level.Warn(s.logger).Log("msg", "cache read failed", "key", key, "err", err)
		return v, false
	}
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		level.Warn(s.logger).Log("msg", "cache entry unreadable", "key", key, "err", err)
		return v, false
	}
	return v, true
}

// cached serves key from the cache, loading and storing it on a miss.
func cached[T any](ctx context.Context, s *cachingService, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := lookup[T](ctx, s, key); ok {
		return v, nil
	}

	gen := s.generation()
	v, err, _ := s.group.Do(fmt.Sprintf("%d/%s", gen, key), func() (any, error) {
		// a flight that finished between our miss and this call already filled the entry
		if v, ok := lookup[T](ctx, s, key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			level.Warn(s.logger).Log("msg", "cache encode failed", "key", key, "err", err)
			return v, nil
		}
		s.store(ctx, gen, key, raw)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("refreshing cache [%v]: %w", key, err)
	}
	return v.(T), nil
}

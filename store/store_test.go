package store

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	currency "go-erp-currency"
	"go-erp-currency/api"
	"go-erp-currency/api/apitest"
	"go-erp-currency/cache"
	"go-erp-currency/errmsg"
)

// switchable fails every request with a dial error while down is set
type switchable struct {
	down atomic.Bool
}

func (s *switchable) RoundTrip(req *http.Request) (*http.Response, error) {
	if s.down.Load() {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	}
	return http.DefaultTransport.RoundTrip(req)
}

func newStore(t *testing.T) (*Store, *apitest.Server) {
	t.Helper()
	server := apitest.NewServer(apitest.Seed())
	t.Cleanup(server.Close)
	return New(api.NewService(server.URL)), server
}

func TestStore_FetchCurrencies(t *testing.T) {
	s, _ := newStore(t)

	list, err := s.FetchCurrencies(context.Background(), currency.Active)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	snapshot := s.Snapshot()
	assert.Len(t, snapshot.Currencies, 2)
	assert.False(t, snapshot.IsLoading)
	assert.Empty(t, snapshot.Error)
}

func TestStore_UnreachableKeepsPreviousRates(t *testing.T) {
	server := apitest.NewServer(apitest.Seed())
	defer server.Close()
	transport := &switchable{}
	s := New(api.NewService(server.URL, api.WithTransport(transport)))
	ctx := context.Background()

	_, err := s.FetchCurrencies(ctx, currency.All)
	require.NoError(t, err)

	transport.down.Store(true)
	_, err = s.FetchCurrencies(ctx, currency.All)
	require.Error(t, err)

	snapshot := s.Snapshot()
	assert.Len(t, snapshot.Currencies, 3)
	assert.Equal(t, errmsg.Network, snapshot.Error)
	assert.False(t, snapshot.IsLoading)

	s.ClearError()
	assert.Empty(t, s.Snapshot().Error)

	transport.down.Store(false)
	_, err = s.FetchCurrencies(ctx, currency.All)
	require.NoError(t, err)
	assert.Empty(t, s.Snapshot().Error)
	assert.Len(t, s.Snapshot().Currencies, 3)
}

func TestStore_UpdateThenHistory(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.FetchCurrencies(ctx, currency.All)
	require.NoError(t, err)
	_, err = s.FetchRateHistory(ctx, "2")
	require.NoError(t, err)

	_, err = s.UpdateCurrencyRate(ctx, "2", currency.RateUpdate{NewRate: "38.00", ChangeReason: "cierre"})
	require.NoError(t, err)

	snapshot := s.Snapshot()
	require.Len(t, snapshot.History, 1)
	assert.True(t, snapshot.History[0].NewRate.Equal(decimal.RequireFromString("38")))
	assert.True(t, snapshot.History[0].OldRate.Equal(decimal.RequireFromString("36.5")))
	assert.Equal(t, "4.1096", snapshot.History[0].RateVariationPercent.String())
	assert.Equal(t, currency.ChangeManual, snapshot.History[0].ChangeType)

	ves, _ := snapshot.Currencies.ByID("2")
	assert.Equal(t, "38.0000000000", ves.ExchangeRate.String())

	_, err = s.UpdateCurrencyRate(ctx, "2", currency.RateUpdate{NewRate: "39.125"})
	require.NoError(t, err)

	snapshot = s.Snapshot()
	require.Len(t, snapshot.History, 2)
	assert.True(t, snapshot.History[0].NewRate.Equal(decimal.RequireFromString("39.125")))
	assert.True(t, snapshot.History[0].OldRate.Equal(decimal.RequireFromString("38")))
}

func TestStore_UpdateRejectedLocally(t *testing.T) {
	s, server := newStore(t)
	ctx := context.Background()
	_, _ = s.FetchCurrencies(ctx, currency.All)

	for _, bad := range []string{"", "abc", "0", "-1", "1.12345678901"} {
		_, err := s.UpdateCurrencyRate(ctx, "2", currency.RateUpdate{NewRate: bad})
		assert.True(t, errors.Is(err, currency.ErrValidation), bad)
		assert.NotEmpty(t, s.Snapshot().Error, bad)
	}
	assert.Equal(t, "Error en new_rate: máximo 10 decimales", s.Snapshot().Error)

	assert.Equal(t, 0, server.Calls("update"))
	ves, _ := s.Snapshot().Currencies.ByID("2")
	assert.Equal(t, "36.5000000000", ves.ExchangeRate.String())
}

func TestStore_UpdateRejectedByServer(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	_, _ = s.FetchCurrencies(ctx, currency.All)

	_, err := s.UpdateCurrencyRate(ctx, "1", currency.RateUpdate{NewRate: "2"})
	require.Error(t, err)

	snapshot := s.Snapshot()
	assert.Equal(t, "No se puede modificar la tasa de la moneda base", snapshot.Error)
	usd, _ := snapshot.Currencies.ByID("1")
	assert.Equal(t, "1.0000000000", usd.ExchangeRate.String())
}

func TestStore_UpdateStandsWhenReloadFails(t *testing.T) {
	s, server := newStore(t)
	ctx := context.Background()
	_, err := s.FetchCurrencies(ctx, currency.All)
	require.NoError(t, err)

	server.Fail("list", http.StatusServiceUnavailable, `{"detail": "Servicio no disponible"}`)
	updated, err := s.UpdateCurrencyRate(ctx, "2", currency.RateUpdate{NewRate: "38"})
	require.NoError(t, err)
	assert.Equal(t, "38.0000000000", updated.ExchangeRate.String())

	remote, _ := server.Currency("2")
	assert.Equal(t, "38.0000000000", remote.ExchangeRate.String())

	snapshot := s.Snapshot()
	assert.Equal(t, "Servicio no disponible", snapshot.Error)
	assert.False(t, snapshot.IsLoading)
	ves, _ := snapshot.Currencies.ByID("2")
	assert.Equal(t, "36.5000000000", ves.ExchangeRate.String())

	server.Recover("list")
	_, err = s.FetchCurrencies(ctx, currency.All)
	require.NoError(t, err)
	ves, _ = s.Snapshot().Currencies.ByID("2")
	assert.Equal(t, "38.0000000000", ves.ExchangeRate.String())
}

func TestStore_ConvertIdentity(t *testing.T) {
	s, server := newStore(t)

	got, err := s.ConvertCurrency(context.Background(), "VES", "VES", decimal.RequireFromString("12.34"))
	require.NoError(t, err)
	assert.Equal(t, "12.34", got.ConvertedAmount.String())
	assert.Equal(t, 0, server.Calls("convert"))

	got, err = s.ConvertCurrency(context.Background(), "USD", "VES", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, "365", got.ConvertedAmount.String())
	assert.Equal(t, 1, server.Calls("convert"))
}

func TestStore_TodayAndSyncBCV(t *testing.T) {
	s, server := newStore(t)
	server.BCVRate = currency.MustRate("40")
	ctx := context.Background()

	today, err := s.TodayRate(ctx, "USD", "VES")
	require.NoError(t, err)
	assert.Equal(t, "BCV", today.Source)

	require.NoError(t, s.SyncBCV(ctx))
	ves, ok := s.Snapshot().Currencies.ByID("2")
	require.True(t, ok)
	assert.Equal(t, "40.0000000000", ves.ExchangeRate.String())
}

func TestStore_ConversionFactors(t *testing.T) {
	s, _ := newStore(t)

	factors, err := s.FetchConversionFactors(context.Background())
	require.NoError(t, err)
	assert.Len(t, factors, 3)
	assert.Len(t, s.Snapshot().ConversionFactors, 3)
}

func TestStore_Subscribe(t *testing.T) {
	s, _ := newStore(t)

	var seen []State
	var lock sync.Mutex
	unsubscribe := s.Subscribe(func(st State) {
		lock.Lock()
		defer lock.Unlock()
		seen = append(seen, st)
	})

	_, _ = s.FetchCurrencies(context.Background(), currency.All)

	lock.Lock()
	require.Len(t, seen, 2)
	assert.True(t, seen[0].IsLoading)
	assert.False(t, seen[1].IsLoading)
	assert.Len(t, seen[1].Currencies, 3)
	lock.Unlock()

	unsubscribe()
	s.ClearError()

	lock.Lock()
	assert.Len(t, seen, 2)
	lock.Unlock()
}

func TestStore_WidgetsShareOneFetch(t *testing.T) {
	server := apitest.NewServer(apitest.Seed())
	defer server.Close()
	server.Delay = 20 * time.Millisecond
	shared := api.NewCachingService(time.Minute, cache.NewMemoryCache(), api.NewService(server.URL))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			widget := New(shared)
			_, err := widget.FetchCurrencies(context.Background(), currency.All)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, server.Calls("list"))
}

func TestStore_UpdateDropsSharedCache(t *testing.T) {
	server := apitest.NewServer(apitest.Seed())
	defer server.Close()
	s := New(api.NewCachingService(time.Minute, cache.NewMemoryCache(), api.NewService(server.URL)))
	ctx := context.Background()

	_, _ = s.FetchCurrencies(ctx, currency.All)
	_, _ = s.FetchCurrencies(ctx, currency.All)
	assert.Equal(t, 1, server.Calls("list"))

	_, err := s.UpdateCurrencyRate(ctx, "2", currency.RateUpdate{NewRate: "37"})
	require.NoError(t, err)
	assert.Equal(t, 2, server.Calls("list"))

	ves, _ := s.Snapshot().Currencies.ByID("2")
	assert.Equal(t, "37.0000000000", ves.ExchangeRate.String())
}

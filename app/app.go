// Package app wires the configured services together for the binaries.
package app

import (
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"go-erp-currency/api"
	"go-erp-currency/cache"
	"go-erp-currency/config"
	"go-erp-currency/exchange"
	"go-erp-currency/store"
)

// App the services shared by every command
type App struct {
	Config   config.Config
	Logger   log.Logger
	Cache    cache.Cache
	API      api.Service
	Exchange exchange.Service
}

// NewLogger a logfmt logger stamped with time and caller
func NewLogger(w io.Writer) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

// New builds the decorated service chain for cfg:
// REST client, logged, behind the shared cache.
func New(cfg config.Config, logger log.Logger) (*App, error) {
	logger = level.NewFilter(logger, cfg.Level())

	c, err := cfg.Cache()
	if err != nil {
		return nil, err
	}

	apiService := api.NewService(cfg.APIURL,
		api.WithTimeout(cfg.APITimeout),
		api.WithToken(cfg.APIToken),
		api.WithTenant(cfg.TenantID),
	)
	apiService = api.NewLoggingService(level.Debug(log.With(logger, "component", "api_rest")), apiService)
	apiService = api.NewCachingServiceWithLogger(cfg.CacheTTL, c, apiService, log.With(logger, "component", "api_cache"))

	exchangeService := exchange.NewService(apiService)
	exchangeService = exchange.NewLoggingService(level.Debug(log.With(logger, "component", "exchange")), exchangeService)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Cache:    c,
		API:      apiService,
		Exchange: exchangeService,
	}, nil
}

// Store a new widget state over the shared services
func (a *App) Store() *store.Store {
	return store.New(a.API, store.WithExchange(a.Exchange), store.WithLogger(log.With(a.Logger, "component", "store")))
}

// Close releases the cache connection, if any
func (a *App) Close() error {
	if c, ok := a.Cache.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

package main

import (
	"fmt"
	nhttp "net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"go-erp-currency/app"
	"go-erp-currency/config"
	"go-erp-currency/http"
)

func main() {
	logger := app.NewLogger(os.Stderr)
	if err := run(logger); err != nil {
		level.Error(logger).Log("err", err)
		os.Exit(1)
	}
}

// run serves until the listener fails; services are closed before it returns
func run(logger log.Logger) error {
	cfg, err := config.Load(logger)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	gin.SetMode(cfg.GinMode)

	a, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("building services: %w", err)
	}
	defer a.Close()

	handler := http.NewServer(a.API, a.Exchange, a.Logger)
	srv := &nhttp.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	level.Info(a.Logger).Log("msg", "listening", "addr", cfg.Listen)
	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

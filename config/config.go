// Package config loads the ERPFX_* environment, optionally seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"go-erp-currency/cache"
)

// Prefix of every variable read by Load
const Prefix = "ERPFX"

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config the runtime settings of the CLI and the view host
type Config struct {
	APIURL       string        `envconfig:"API_URL" required:"true"`
	APIToken     string        `envconfig:"API_TOKEN"`
	TenantID     string        `envconfig:"TENANT_ID"`
	APITimeout   time.Duration `envconfig:"API_TIMEOUT" default:"10s"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"5m"` // 0 disables caching
	CacheBackend string        `envconfig:"CACHE_BACKEND" default:"memory"`
	RedisURL     string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	RedisPrefix  string        `envconfig:"REDIS_PREFIX" default:"erpfx:"`
	Listen       string        `envconfig:"LISTEN" default:":8080"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"info"`
	GinMode      string        `envconfig:"GIN_MODE" default:"release"`
}

// Load reads the environment after loading envFiles (default ".env"). Missing files are skipped.
func Load(logger log.Logger, envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, path := range envFiles {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				level.Debug(logger).Log("msg", "env file not found", "path", path)
				continue
			}
			return Config{}, fmt.Errorf("loading env file [%v]: %w", path, err)
		}
		level.Debug(logger).Log("msg", "env file loaded", "path", path)
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("reading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	level.Info(logger).Log(
		"msg", "config loaded",
		"api_url", cfg.APIURL,
		"api_token", mask(cfg.APIToken),
		"tenant_id", cfg.TenantID,
		"api_timeout", cfg.APITimeout,
		"cache_backend", cfg.CacheBackend,
		"cache_ttl", cfg.CacheTTL,
	)
	return cfg, nil
}

// Validate checks values envconfig cannot
func (c *Config) Validate() error {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		return errors.New("config: ERPFX_API_URL is required")
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("config: ERPFX_API_TIMEOUT must be positive, got %v", c.APITimeout)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("config: ERPFX_CACHE_TTL must not be negative, got %v", c.CacheTTL)
	}
	switch c.CacheBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("config: unknown ERPFX_CACHE_BACKEND %q", c.CacheBackend)
	}
	return nil
}

// Cache builds the configured cache backend. Redis keys are namespaced per tenant.
func (c Config) Cache() (cache.Cache, error) {
	if c.CacheBackend != BackendRedis {
		return cache.NewMemoryCache(), nil
	}
	prefix := c.RedisPrefix
	if c.TenantID != "" {
		prefix += c.TenantID + ":"
	}
	return cache.NewRedisCache(c.RedisURL, prefix)
}

// Level maps LogLevel to a go-kit level filter option
func (c Config) Level() level.Option {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return level.AllowDebug()
	case "warn", "warning":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	case "none":
		return level.AllowNone()
	default:
		return level.AllowInfo()
	}
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "****"
	}
	return s[:3] + "****" + s[len(s)-3:]
}

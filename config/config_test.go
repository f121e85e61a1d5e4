package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-erp-currency/cache"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ERPFX_API_URL", "http://erp.local/api/")

	cfg, err := Load(log.NewNopLogger(), filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "http://erp.local/api", cfg.APIURL)
	assert.Equal(t, 10*time.Second, cfg.APITimeout)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, BackendMemory, cfg.CacheBackend)
	assert.Equal(t, ":8080", cfg.Listen)

	c, err := cfg.Cache()
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryCache{}, c)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("ERPFX_API_URL=http://from-file\nERPFX_TENANT_ID=acme\nERPFX_CACHE_TTL=30s\n"), 0o600))
	// godotenv does not override variables that are already set
	t.Setenv("ERPFX_API_URL", "http://from-env")
	t.Setenv("ERPFX_TENANT_ID", "")
	t.Setenv("ERPFX_CACHE_TTL", "")
	os.Unsetenv("ERPFX_TENANT_ID")
	os.Unsetenv("ERPFX_CACHE_TTL")

	cfg, err := Load(log.NewNopLogger(), path)
	require.NoError(t, err)

	assert.Equal(t, "http://from-env", cfg.APIURL)
	assert.Equal(t, "acme", cfg.TenantID)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
}

func TestLoad_Invalid(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")

	t.Setenv("ERPFX_API_URL", "")
	os.Unsetenv("ERPFX_API_URL")
	_, err := Load(log.NewNopLogger(), missing)
	assert.Error(t, err)

	t.Setenv("ERPFX_API_URL", "http://erp.local")
	t.Setenv("ERPFX_CACHE_BACKEND", "memcached")
	_, err = Load(log.NewNopLogger(), missing)
	assert.Error(t, err)

	t.Setenv("ERPFX_CACHE_BACKEND", "memory")
	t.Setenv("ERPFX_API_TIMEOUT", "0s")
	_, err = Load(log.NewNopLogger(), missing)
	assert.Error(t, err)
}

func TestValidate_CacheTTL(t *testing.T) {
	cfg := Config{APIURL: "http://erp.local", APITimeout: time.Second, CacheBackend: BackendMemory}

	cfg.CacheTTL = 0
	assert.NoError(t, cfg.Validate())

	cfg.CacheTTL = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "****", mask("abc"))
	assert.Equal(t, "sec****123", mask("secret-token-123"))
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("PORTFOLIO_API_KEY", "")
	t.Setenv("PORTFOLIO_STORAGE_BACKEND", "")
	path := writeConfig(t, `
[server]
addr = ":9090"

[auth]
api_key = "file-key"

[storage]
backend = "redis"

[storage.redis]
url = "redis://localhost:6379/0"
read_timeout = "750ms"

[links]
cache_ttl = "2m"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "file-key", cfg.Auth.APIKey)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.Equal(t, 750*time.Millisecond, cfg.Storage.Redis.ReadTimeout.Duration)
	assert.Equal(t, 5*time.Second, cfg.Storage.Redis.DialTimeout.Duration, "unset fields keep defaults")
	assert.Equal(t, 2*time.Minute, cfg.Links.CacheTTL.Duration)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[auth]
api_key = "file-key"
`)
	t.Setenv("PORTFOLIO_API_KEY", "env-key")
	t.Setenv("PORTFOLIO_ADDR", ":7000")
	t.Setenv("PORTFOLIO_TRACING_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Auth.APIKey)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadMissingFileUsesDefaultsButRequiresKey(t *testing.T) {
	t.Setenv("PORTFOLIO_API_KEY", "")

	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	t.Setenv("PORTFOLIO_API_KEY", "k")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultStorageBackend, cfg.Storage.Backend)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults with key", func(c *Config) {}, false},
		{"blank key", func(c *Config) { c.Auth.APIKey = "   " }, true},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "postgres" }, true},
		{"redis without url", func(c *Config) { c.Storage.Backend = "redis" }, true},
		{"dapr default store", func(c *Config) { c.Storage.Backend = "dapr" }, false},
		{"dapr without store", func(c *Config) {
			c.Storage.Backend = "dapr"
			c.Storage.Dapr.StoreName = ""
		}, true},
		{"zero cache ttl", func(c *Config) { c.Links.CacheTTL = Duration{} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Auth.APIKey = "secret"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInvalidDurationEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(func(name string) (string, bool) {
		if name == "PORTFOLIO_LINK_CACHE_TTL" {
			return "soon", true
		}
		return "", false
	})
	assert.Error(t, err)
}

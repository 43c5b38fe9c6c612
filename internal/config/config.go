// Package config loads the service configuration from TOML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultConfigPath     = "config.toml"
	DefaultAddr           = ":8080"
	DefaultServiceName    = "portfolio-api"
	DefaultServiceVersion = "1.0.0"
	DefaultStorageBackend = "memory"
	DefaultDaprStore      = "statestore"
	DefaultLinkCacheTTL   = 5 * time.Minute
)

var ErrMissingAPIKey = errors.New("auth.api_key (or PORTFOLIO_API_KEY) must be set")

// Duration decodes TOML strings such as "5m" or "250ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Log     LogConfig     `toml:"log"`
	Auth    AuthConfig    `toml:"auth"`
	Storage StorageConfig `toml:"storage"`
	Tracing TracingConfig `toml:"tracing"`
	Links   LinksConfig   `toml:"links"`
}

type ServerConfig struct {
	Addr            string   `toml:"addr"`
	GinMode         string   `toml:"gin_mode"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// AuthConfig holds the admin API key. There is no built-in fallback value.
type AuthConfig struct {
	APIKey string `toml:"api_key"`
}

type StorageConfig struct {
	Backend string      `toml:"backend"`
	Redis   RedisConfig `toml:"redis"`
	Dapr    DaprConfig  `toml:"dapr"`
}

type RedisConfig struct {
	URL          string   `toml:"url"`
	PoolSize     int      `toml:"pool_size"`
	MinIdleConns int      `toml:"min_idle_conns"`
	DialTimeout  Duration `toml:"dial_timeout"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

type DaprConfig struct {
	Address   string `toml:"address"`
	StoreName string `toml:"store_name"`
}

type TracingConfig struct {
	Enabled        bool   `toml:"enabled"`
	ServiceName    string `toml:"service_name"`
	ServiceVersion string `toml:"service_version"`
}

type LinksConfig struct {
	CacheTTL Duration `toml:"cache_ttl"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			ShutdownTimeout: Duration{30 * time.Second},
		},
		Log: LogConfig{Level: "info"},
		Storage: StorageConfig{
			Backend: DefaultStorageBackend,
			Redis: RedisConfig{
				PoolSize:     10,
				DialTimeout:  Duration{5 * time.Second},
				ReadTimeout:  Duration{3 * time.Second},
				WriteTimeout: Duration{3 * time.Second},
			},
			Dapr: DaprConfig{StoreName: DefaultDaprStore},
		},
		Tracing: TracingConfig{
			Enabled:        true,
			ServiceName:    DefaultServiceName,
			ServiceVersion: DefaultServiceVersion,
		},
		Links: LinksConfig{CacheTTL: Duration{DefaultLinkCacheTTL}},
	}
}

// Load reads path over the defaults (a missing file keeps defaults), applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, err
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	str("PORTFOLIO_ADDR", &c.Server.Addr)
	str("PORTFOLIO_GIN_MODE", &c.Server.GinMode)
	str("PORTFOLIO_LOG_LEVEL", &c.Log.Level)
	str("PORTFOLIO_API_KEY", &c.Auth.APIKey)
	str("PORTFOLIO_STORAGE_BACKEND", &c.Storage.Backend)
	str("PORTFOLIO_REDIS_URL", &c.Storage.Redis.URL)
	str("PORTFOLIO_DAPR_ADDRESS", &c.Storage.Dapr.Address)
	str("PORTFOLIO_DAPR_STORE", &c.Storage.Dapr.StoreName)

	if v, ok := lookup("PORTFOLIO_TRACING_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PORTFOLIO_TRACING_ENABLED: %w", err)
		}
		c.Tracing.Enabled = enabled
	}
	if v, ok := lookup("PORTFOLIO_LINK_CACHE_TTL"); ok && v != "" {
		if err := c.Links.CacheTTL.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("PORTFOLIO_LINK_CACHE_TTL: %w", err)
		}
	}
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.APIKey) == "" {
		return ErrMissingAPIKey
	}

	switch c.Storage.Backend {
	case "memory":
	case "redis":
		if c.Storage.Redis.URL == "" {
			return errors.New("storage.redis.url is required for the redis backend")
		}
	case "dapr":
		if c.Storage.Dapr.StoreName == "" {
			return errors.New("storage.dapr.store_name is required for the dapr backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Links.CacheTTL.Duration <= 0 {
		return errors.New("links.cache_ttl must be positive")
	}
	return nil
}

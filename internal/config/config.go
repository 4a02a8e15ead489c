// Package config loads client configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ukcensus-tools/census-client/pkg/ratelimit"
)

// DefaultBaseURL is the public ONS census API.
const DefaultBaseURL = "https://api.beta.ons.gov.uk/v1"

// Config is the full client configuration.
type Config struct {
	// BaseURL is the census API root.
	BaseURL string `mapstructure:"base_url"`

	Store     StoreConfig    `mapstructure:"store"`
	Redis     RedisConfig    `mapstructure:"redis"`
	Fetch     FetchConfig    `mapstructure:"fetch"`
	RateLimit []WindowConfig `mapstructure:"rate_limit"`
	Log       LogConfig      `mapstructure:"log"`
}

// StoreConfig selects and connects the resource store backend.
type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`

	// DSN is the database path (sqlite) or connection string (postgres).
	DSN string `mapstructure:"dsn"`
}

// RedisConfig configures the optional response cache. An empty Addr
// disables it.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// FetchConfig tunes the paginated fetcher.
type FetchConfig struct {
	// Limit is the page size requested per call.
	Limit int `mapstructure:"limit"`

	// EarlyExitPages stops paginated fetches after this many pages when
	// positive. Zero fetches everything.
	EarlyExitPages int `mapstructure:"early_exit_pages"`
}

// WindowConfig is one rate limit tier.
type WindowConfig struct {
	Capacity int           `mapstructure:"capacity"`
	Duration time.Duration `mapstructure:"duration"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads configuration from the given file (optional) and the
// environment. Environment variables use the CENSUS_ prefix with
// underscores for nesting, e.g. CENSUS_STORE_DRIVER=postgres.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "census-cache.db")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)
	v.SetDefault("fetch.limit", 100)
	v.SetDefault("fetch.early_exit_pages", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetEnvPrefix("CENSUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
	if c.Fetch.Limit <= 0 {
		return fmt.Errorf("fetch.limit must be positive, got %d", c.Fetch.Limit)
	}
	if c.Fetch.EarlyExitPages < 0 {
		return fmt.Errorf("fetch.early_exit_pages must not be negative, got %d", c.Fetch.EarlyExitPages)
	}
	for i, w := range c.RateLimit {
		if w.Capacity <= 0 || w.Duration <= 0 {
			return fmt.Errorf("rate_limit[%d]: capacity and duration must be positive", i)
		}
	}
	return nil
}

// Windows converts the configured rate limit tiers, falling back to the
// census API defaults when none are configured.
func (c *Config) Windows() []ratelimit.Window {
	if len(c.RateLimit) == 0 {
		return ratelimit.DefaultWindows()
	}
	windows := make([]ratelimit.Window, 0, len(c.RateLimit))
	for _, w := range c.RateLimit {
		windows = append(windows, ratelimit.Window{
			Capacity: w.Capacity,
			Duration: w.Duration,
		})
	}
	return windows
}

// Package config defines the top-level configuration for the pmdata tool
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/pmdata/internal/synth"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by PMDATA_* environment
// variables.
//
// The Postgres, Redis, and S3 sections are optional: when their connection
// fields are left empty the dependent features (market store, hot caches,
// archiving) simply stay disabled.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Goldsky    GoldskyConfig    `toml:"goldsky"`
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Cache      CacheConfig      `toml:"cache"`
	Synthesis  SynthesisConfig  `toml:"synthesis"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds Polymarket API endpoints.
type PolymarketConfig struct {
	ClobHost  string `toml:"clob_host"`
	GammaHost string `toml:"gamma_host"`
	WsHost    string `toml:"ws_host"`
}

// GoldskyConfig holds the subgraph endpoint used for order fill history.
// URL may be left empty, in which case trade-based operations are
// unavailable.
type GoldskyConfig struct {
	URL    string `toml:"url"`
	APIKey string `toml:"api_key"`
}

// PostgresConfig holds PostgreSQL connection parameters. Leave both DSN
// and Host empty to run without a market store.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Enabled reports whether a Postgres connection is configured.
func (c PostgresConfig) Enabled() bool {
	return strings.TrimSpace(c.DSN) != "" || strings.TrimSpace(c.Host) != ""
}

// RedisConfig holds Redis connection parameters. Leave Addr empty to run
// without the hot price/book caches.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// Enabled reports whether a Redis connection is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// S3Config holds S3-compatible object storage parameters. Leave Bucket
// empty to run without archiving.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Enabled reports whether object storage is configured.
func (c S3Config) Enabled() bool {
	return strings.TrimSpace(c.Bucket) != ""
}

// CacheConfig holds local bar cache parameters.
type CacheConfig struct {
	Dir string `toml:"dir"`
}

// SynthesisConfig holds the synthetic orderbook parameters. Zero values
// fall back to the library defaults at load time.
type SynthesisConfig struct {
	DepthLevels      int     `toml:"depth_levels"`
	SpreadMultiplier float64 `toml:"spread_multiplier"`
	MinSpread        float64 `toml:"min_spread"`
	MaxSpread        float64 `toml:"max_spread"`
	BaseDepth        float64 `toml:"base_depth"`
	LiquidityDecay   float64 `toml:"liquidity_decay"`
}

// ToSynth converts the TOML section into the synthesis core's config.
func (c SynthesisConfig) ToSynth() synth.SynthesisConfig {
	return synth.SynthesisConfig{
		DepthLevels:      c.DepthLevels,
		SpreadMultiplier: c.SpreadMultiplier,
		MinSpread:        c.MinSpread,
		MaxSpread:        c.MaxSpread,
		BaseDepth:        c.BaseDepth,
		LiquidityDecay:   c.LiquidityDecay,
	}
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	sc := synth.DefaultSynthesisConfig()
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost:  "https://clob.polymarket.com",
			GammaHost: "https://gamma-api.polymarket.com",
			WsHost:    "wss://ws-subscriptions-clob.polymarket.com/ws/market",
		},
		Postgres: PostgresConfig{
			Port:          5432,
			Database:      "pmdata",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Region:         "us-east-1",
			UseSSL:         true,
			ForcePathStyle: false,
		},
		Cache: CacheConfig{
			Dir: ".pmdata/cache",
		},
		Synthesis: SynthesisConfig{
			DepthLevels:      sc.DepthLevels,
			SpreadMultiplier: sc.SpreadMultiplier,
			MinSpread:        sc.MinSpread,
			MaxSpread:        sc.MaxSpread,
			BaseDepth:        sc.BaseDepth,
			LiquidityDecay:   sc.LiquidityDecay,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}

	if c.Cache.Dir == "" {
		errs = append(errs, "cache: dir must not be empty")
	}

	if c.Postgres.Enabled() {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty (or set postgres.dsn)")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Redis.Enabled() && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.S3.Enabled() {
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	if err := c.Synthesis.ToSynth().Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("synthesis: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

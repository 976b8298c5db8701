package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path (skipped when path is empty
// or the file does not exist), merges it on top of the built-in defaults,
// applies PMDATA_* environment variable overrides, and returns the final
// Config. The returned Config has NOT been validated; the caller should
// invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return nil, err
			}
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PMDATA_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "PMDATA_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "PMDATA_GAMMA_HOST")
	setStr(&cfg.Polymarket.WsHost, "PMDATA_WS_HOST")

	// ── Goldsky ──
	setStr(&cfg.Goldsky.URL, "PMDATA_GOLDSKY_URL")
	setStr(&cfg.Goldsky.APIKey, "PMDATA_GOLDSKY_API_KEY")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "PMDATA_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PMDATA_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PMDATA_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PMDATA_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PMDATA_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PMDATA_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PMDATA_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PMDATA_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PMDATA_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PMDATA_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PMDATA_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PMDATA_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PMDATA_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PMDATA_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PMDATA_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PMDATA_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "PMDATA_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PMDATA_S3_REGION")
	setStr(&cfg.S3.Bucket, "PMDATA_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PMDATA_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PMDATA_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PMDATA_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PMDATA_S3_FORCE_PATH_STYLE")

	// ── Cache ──
	setStr(&cfg.Cache.Dir, "PMDATA_CACHE_DIR")

	// ── Synthesis ──
	setInt(&cfg.Synthesis.DepthLevels, "PMDATA_SYNTHESIS_DEPTH_LEVELS")
	setFloat64(&cfg.Synthesis.SpreadMultiplier, "PMDATA_SYNTHESIS_SPREAD_MULTIPLIER")
	setFloat64(&cfg.Synthesis.MinSpread, "PMDATA_SYNTHESIS_MIN_SPREAD")
	setFloat64(&cfg.Synthesis.MaxSpread, "PMDATA_SYNTHESIS_MAX_SPREAD")
	setFloat64(&cfg.Synthesis.BaseDepth, "PMDATA_SYNTHESIS_BASE_DEPTH")
	setFloat64(&cfg.Synthesis.LiquidityDecay, "PMDATA_SYNTHESIS_LIQUIDITY_DECAY")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "PMDATA_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

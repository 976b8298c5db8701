package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://clob.polymarket.com", cfg.Polymarket.ClobHost)
	assert.False(t, cfg.Postgres.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.S3.Enabled())
	assert.Equal(t, 20, cfg.Synthesis.DepthLevels)
	assert.Equal(t, 1.5, cfg.Synthesis.SpreadMultiplier)
	assert.Equal(t, 0.85, cfg.Synthesis.LiquidityDecay)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pmdata.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[redis]
addr = "localhost:6379"

[synthesis]
depth_levels = 10
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 10, cfg.Synthesis.DepthLevels)
	// Untouched sections keep their defaults.
	assert.Equal(t, "https://gamma-api.polymarket.com", cfg.Polymarket.GammaHost)
	assert.Equal(t, 0.01, cfg.Synthesis.MinSpread)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Polymarket, cfg.Polymarket)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PMDATA_CLOB_HOST", "https://clob.example.test")
	t.Setenv("PMDATA_SYNTHESIS_MIN_SPREAD", "0.02")
	t.Setenv("PMDATA_POSTGRES_RUN_MIGRATIONS", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://clob.example.test", cfg.Polymarket.ClobHost)
	assert.Equal(t, 0.02, cfg.Synthesis.MinSpread)
	assert.False(t, cfg.Postgres.RunMigrations)
}

func TestValidateRejectsBadSynthesis(t *testing.T) {
	cfg := Defaults()
	cfg.Synthesis.MinSpread = 0.5
	cfg.Synthesis.MaxSpread = 0.1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "synthesis")
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestValidateOptionalSectionsOnlyWhenEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.Redis.PoolSize = 0
	require.NoError(t, cfg.Validate(), "disabled redis section is not validated")

	cfg.Redis.Addr = "localhost:6379"
	assert.Error(t, cfg.Validate())
}

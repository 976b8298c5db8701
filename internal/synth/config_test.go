package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

func TestDefaultSynthesisConfig(t *testing.T) {
	cfg := DefaultSynthesisConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 20, cfg.DepthLevels)
	assert.Equal(t, 1.5, cfg.SpreadMultiplier)
	assert.Equal(t, 0.01, cfg.MinSpread)
	assert.Equal(t, 0.08, cfg.MaxSpread)
	assert.Equal(t, 10000.0, cfg.BaseDepth)
	assert.Equal(t, 0.85, cfg.LiquidityDecay)
}

func TestSynthesisConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SynthesisConfig)
	}{
		{"zero depth levels", func(c *SynthesisConfig) { c.DepthLevels = 0 }},
		{"negative depth levels", func(c *SynthesisConfig) { c.DepthLevels = -1 }},
		{"zero spread multiplier", func(c *SynthesisConfig) { c.SpreadMultiplier = 0 }},
		{"zero min spread", func(c *SynthesisConfig) { c.MinSpread = 0 }},
		{"min spread at one", func(c *SynthesisConfig) { c.MinSpread = 1 }},
		{"max spread at one", func(c *SynthesisConfig) { c.MaxSpread = 1 }},
		{"min above max", func(c *SynthesisConfig) { c.MinSpread = 0.09; c.MaxSpread = 0.05 }},
		{"zero base depth", func(c *SynthesisConfig) { c.BaseDepth = 0 }},
		{"zero decay", func(c *SynthesisConfig) { c.LiquidityDecay = 0 }},
		{"decay above one", func(c *SynthesisConfig) { c.LiquidityDecay = 1.1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultSynthesisConfig()
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), domain.ErrInvalidConfig)

			_, err := NewSynthesizer(cfg)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig, "degenerate config must be rejected at construction")
		})
	}
}

func TestFullDecayIsValid(t *testing.T) {
	cfg := DefaultSynthesisConfig()
	cfg.LiquidityDecay = 1
	assert.NoError(t, cfg.Validate())
}

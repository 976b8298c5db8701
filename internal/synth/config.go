// Package synth derives higher-level market views from sparse history: OHLCV
// bars aggregated from raw price observations, and synthetic orderbook
// snapshots reconstructed from nearby trades. Everything here is pure
// computation over already-materialized inputs; no I/O, no shared state.
package synth

import (
	"fmt"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

// SynthesisConfig controls the shape of synthesized orderbooks. It is a
// value object: validate once at construction (NewSynthesizer) and reuse
// freely across calls.
type SynthesisConfig struct {
	// DepthLevels is the number of price rungs built on each side of mid.
	DepthLevels int

	// SpreadMultiplier scales the trade-dispersion spread estimate.
	SpreadMultiplier float64

	// MinSpread and MaxSpread clamp the estimated spread. Both are absolute
	// prices; 0 < MinSpread <= MaxSpread < 1.
	MinSpread float64
	MaxSpread float64

	// BaseDepth is the top-of-book depth in quote-currency (USDC) units.
	// Level sizes are converted to token units at the level's own price.
	BaseDepth float64

	// LiquidityDecay is the per-level multiplicative size shrinkage, in (0,1].
	LiquidityDecay float64
}

// DefaultSynthesisConfig returns the default synthetic-book shape. Callers
// rely on these exact values in tests; change them deliberately.
func DefaultSynthesisConfig() SynthesisConfig {
	return SynthesisConfig{
		DepthLevels:      20,
		SpreadMultiplier: 1.5,
		MinSpread:        0.01,
		MaxSpread:        0.08,
		BaseDepth:        10000,
		LiquidityDecay:   0.85,
	}
}

// Validate reports the first out-of-range field, wrapped in
// domain.ErrInvalidConfig. A config that validates once stays valid; there
// is no partially-constructed state.
func (c SynthesisConfig) Validate() error {
	switch {
	case c.DepthLevels <= 0:
		return fmt.Errorf("%w: depth_levels must be positive, got %d", domain.ErrInvalidConfig, c.DepthLevels)
	case c.SpreadMultiplier <= 0:
		return fmt.Errorf("%w: spread_multiplier must be positive, got %g", domain.ErrInvalidConfig, c.SpreadMultiplier)
	case c.MinSpread <= 0 || c.MinSpread >= 1:
		return fmt.Errorf("%w: min_spread must be in (0,1), got %g", domain.ErrInvalidConfig, c.MinSpread)
	case c.MaxSpread >= 1:
		return fmt.Errorf("%w: max_spread must be below 1, got %g", domain.ErrInvalidConfig, c.MaxSpread)
	case c.MinSpread > c.MaxSpread:
		return fmt.Errorf("%w: min_spread %g exceeds max_spread %g", domain.ErrInvalidConfig, c.MinSpread, c.MaxSpread)
	case c.BaseDepth <= 0:
		return fmt.Errorf("%w: base_depth must be positive, got %g", domain.ErrInvalidConfig, c.BaseDepth)
	case c.LiquidityDecay <= 0 || c.LiquidityDecay > 1:
		return fmt.Errorf("%w: liquidity_decay must be in (0,1], got %g", domain.ErrInvalidConfig, c.LiquidityDecay)
	}
	return nil
}

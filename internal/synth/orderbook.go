package synth

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

const (
	// anchorTradeCount is the number of nearest trades used to anchor the
	// mid price. Fixed synthesis constant, not part of SynthesisConfig.
	anchorTradeCount = 20

	// levelStepFraction is the per-level price step as a fraction of the
	// estimated spread.
	levelStepFraction = 0.25
)

// anchorKind tags how the mid price was obtained, so spread estimation
// knows whether trade dispersion is available.
type anchorKind int

const (
	anchorTradeWeighted anchorKind = iota
	anchorBarClose
)

// anchor is the resolved mid-price source: either a time-weighted average
// over nearby trades (Prices holds the trades used) or the close of the
// nearest bar at or before the target.
type anchor struct {
	Kind   anchorKind
	Mid    float64
	Prices []float64
}

// Synthesizer builds plausible orderbook snapshots at arbitrary historical
// timestamps. It is stateless beyond its validated config and safe for
// concurrent use.
type Synthesizer struct {
	cfg SynthesisConfig
}

// NewSynthesizer validates cfg and returns a Synthesizer. A degenerate
// config is rejected here, never at Synthesize time.
func NewSynthesizer(cfg SynthesisConfig) (*Synthesizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Synthesizer{cfg: cfg}, nil
}

// Config returns the validated config the Synthesizer was built with.
func (s *Synthesizer) Config() SynthesisConfig { return s.cfg }

// Synthesize reconstructs an orderbook for tokenID at the target timestamp.
// trades is the caller's lookback window around the target (any order);
// bars is an ascending fallback series consulted when no trades exist.
// It fails with domain.ErrNoAnchorData when neither source can anchor a
// price, and with domain.ErrInvalidInput when upstream data is out of range.
//
// The result is a statistically motivated estimate for slippage and
// backtesting, not a claim about any book that actually existed.
func (s *Synthesizer) Synthesize(tokenID string, target int64, trades []domain.Trade, bars []domain.PriceBar) (domain.Orderbook, error) {
	a, err := resolveAnchor(target, trades, bars)
	if err != nil {
		return domain.Orderbook{}, err
	}

	spread := s.estimateSpread(a)
	half := spread / 2
	step := spread * levelStepFraction

	bids := make([]domain.OrderbookLevel, 0, s.cfg.DepthLevels)
	asks := make([]domain.OrderbookLevel, 0, s.cfg.DepthLevels)
	for i := 0; i < s.cfg.DepthLevels; i++ {
		offset := half + float64(i)*step
		quote := s.cfg.BaseDepth * math.Pow(s.cfg.LiquidityDecay, float64(i))

		// Levels outside (0,1) are dropped, not wrapped or pinned: the clamp
		// policy only applies to derived prices, never to inputs.
		if px := a.Mid - offset; px > 0 && px < 1 {
			bids = append(bids, domain.OrderbookLevel{Price: px, Size: quote / px})
		}
		if px := a.Mid + offset; px > 0 && px < 1 {
			asks = append(asks, domain.OrderbookLevel{Price: px, Size: quote / px})
		}
	}

	// Bids are built strictly descending and asks strictly ascending by
	// construction: offsets grow by a positive step each level.
	return domain.Orderbook{
		Timestamp: target,
		TokenID:   tokenID,
		Bids:      bids,
		Asks:      asks,
		Synthetic: true,
	}, nil
}

// estimateSpread derives the spread from anchor-trade dispersion, clamped
// to [MinSpread, MaxSpread]. With fewer than two anchor trades (including
// the bar-fallback case) there is no dispersion to measure and MinSpread
// is used directly.
func (s *Synthesizer) estimateSpread(a anchor) float64 {
	if a.Kind != anchorTradeWeighted || len(a.Prices) < 2 {
		return s.cfg.MinSpread
	}
	est := s.cfg.SpreadMultiplier * sampleStddev(a.Prices) * 2
	return clamp(est, s.cfg.MinSpread, s.cfg.MaxSpread)
}

// resolveAnchor picks the mid-price source: an inverse-time-distance
// weighted average over the nearest anchorTradeCount trades, falling back
// to the close of the nearest bar at or before target.
func resolveAnchor(target int64, trades []domain.Trade, bars []domain.PriceBar) (anchor, error) {
	for i, t := range trades {
		if t.Price < 0 || t.Price > 1 {
			return anchor{}, fmt.Errorf("%w: trade %d price %g outside [0,1]", domain.ErrInvalidInput, i, t.Price)
		}
		if t.Size <= 0 {
			return anchor{}, fmt.Errorf("%w: trade %d size %g not positive", domain.ErrInvalidInput, i, t.Size)
		}
	}
	for i, b := range bars {
		if b.Close < 0 || b.Close > 1 {
			return anchor{}, fmt.Errorf("%w: bar %d close %g outside [0,1]", domain.ErrInvalidInput, i, b.Close)
		}
	}

	if nearest := nearestTrades(trades, target, anchorTradeCount); len(nearest) > 0 {
		var mid, weightSum float64
		prices := make([]float64, 0, len(nearest))
		for _, t := range nearest {
			// 1/(1+dt) is finite at dt=0 and maximal there, so a trade at the
			// exact target dominates without any division by zero.
			w := 1 / (1 + float64(absDelta(t.Timestamp, target)))
			mid += w * t.Price
			weightSum += w
			prices = append(prices, t.Price)
		}
		return anchor{Kind: anchorTradeWeighted, Mid: mid / weightSum, Prices: prices}, nil
	}

	if bar, ok := nearestBarAtOrBefore(bars, target); ok {
		return anchor{Kind: anchorBarClose, Mid: bar.Close}, nil
	}

	return anchor{}, fmt.Errorf("%w: no trades in window and no bar at or before %d", domain.ErrNoAnchorData, target)
}

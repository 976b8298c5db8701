package synth

import (
	"fmt"
	"math"
	"sort"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

// VolumeProxy derives a non-negative activity figure from the ordered prices
// observed within one bucket. Raw price history carries no traded sizes, so
// bar volume is a proxy for activity, never notional.
type VolumeProxy func(prices []float64) float64

// MovementVolume is the default volume proxy: the number of price movements
// in the bucket plus the total absolute price change across them. A bucket
// with a single observation yields 0.
func MovementVolume(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	v := float64(len(prices) - 1)
	for i := 1; i < len(prices); i++ {
		v += math.Abs(prices[i] - prices[i-1])
	}
	return v
}

// Aggregate converts raw price observations into fixed-interval OHLCV bars
// using MovementVolume as the volume proxy. See AggregateWith.
func Aggregate(points []domain.PricePoint, interval domain.Interval) ([]domain.PriceBar, error) {
	return AggregateWith(points, interval, MovementVolume)
}

// AggregateWith buckets points into epoch-aligned intervals and emits one
// bar per non-empty bucket, ordered ascending with no duplicate buckets.
// Empty buckets are not fabricated; callers wanting flat fills use
// ForwardFill explicitly.
//
// Points are sorted defensively if not already ascending by timestamp. A
// price outside [0,1] is upstream bad data and yields ErrInvalidInput. An
// empty input yields an empty result, not an error.
func AggregateWith(points []domain.PricePoint, interval domain.Interval, proxy VolumeProxy) ([]domain.PriceBar, error) {
	width := interval.Seconds()
	if width == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidInterval, interval)
	}
	if proxy == nil {
		proxy = MovementVolume
	}
	if len(points) == 0 {
		return nil, nil
	}

	for i, p := range points {
		if p.Price < 0 || p.Price > 1 {
			return nil, fmt.Errorf("%w: point %d price %g outside [0,1]", domain.ErrInvalidInput, i, p.Price)
		}
	}

	ordered := points
	if !sort.SliceIsSorted(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp }) {
		ordered = make([]domain.PricePoint, len(points))
		copy(ordered, points)
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].Timestamp < ordered[j].Timestamp })
	}

	var (
		bars   []domain.PriceBar
		prices []float64
		bucket int64
	)
	flush := func() {
		if len(prices) == 0 {
			return
		}
		bar := domain.PriceBar{
			Timestamp: bucket,
			Open:      prices[0],
			High:      prices[0],
			Low:       prices[0],
			Close:     prices[len(prices)-1],
			Volume:    proxy(prices),
		}
		for _, p := range prices {
			if p > bar.High {
				bar.High = p
			}
			if p < bar.Low {
				bar.Low = p
			}
		}
		bars = append(bars, bar)
		prices = prices[:0]
	}

	for _, p := range ordered {
		b := floorDiv(p.Timestamp, width) * width
		if len(prices) > 0 && b != bucket {
			flush()
		}
		bucket = b
		prices = append(prices, p.Price)
	}
	flush()

	return bars, nil
}

// Resample re-buckets bars into a coarser interval, summing volumes. The
// target must not be finer than the spacing already present in bars.
func Resample(bars []domain.PriceBar, target domain.Interval) ([]domain.PriceBar, error) {
	width := target.Seconds()
	if width == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidInterval, target)
	}
	if len(bars) == 0 {
		return nil, nil
	}
	if src := inferBarSpacing(bars); width < src {
		return nil, fmt.Errorf("%w: cannot resample %ds bars to %ds", domain.ErrInvalidInput, src, width)
	}

	var (
		out    []domain.PriceBar
		cur    domain.PriceBar
		have   bool
		bucket int64
	)
	for _, b := range bars {
		bk := floorDiv(b.Timestamp, width) * width
		if !have || bk != bucket {
			if have {
				out = append(out, cur)
			}
			bucket = bk
			cur = domain.PriceBar{Timestamp: bk, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
			have = true
			continue
		}
		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	if have {
		out = append(out, cur)
	}
	return out, nil
}

// ForwardFill inserts flat zero-volume bars for the empty buckets between
// consecutive bars, carrying the previous close. This is the explicit
// opt-in for callers that need gapless series; Aggregate never fills.
func ForwardFill(bars []domain.PriceBar, interval domain.Interval) []domain.PriceBar {
	width := interval.Seconds()
	if width == 0 || len(bars) < 2 {
		return bars
	}
	out := make([]domain.PriceBar, 0, len(bars))
	out = append(out, bars[0])
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1]
		for ts := prev.Timestamp + width; ts < bars[i].Timestamp; ts += width {
			out = append(out, domain.PriceBar{
				Timestamp: ts,
				Open:      prev.Close,
				High:      prev.Close,
				Low:       prev.Close,
				Close:     prev.Close,
			})
		}
		out = append(out, bars[i])
	}
	return out
}

// inferBarSpacing returns the median gap of the first few bars, defaulting
// to 60s for short series.
func inferBarSpacing(bars []domain.PriceBar) int64 {
	if len(bars) < 2 {
		return 60
	}
	n := len(bars) - 1
	if n > 10 {
		n = 10
	}
	gaps := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		gaps = append(gaps, bars[i+1].Timestamp-bars[i].Timestamp)
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	if g := gaps[len(gaps)/2]; g > 0 {
		return g
	}
	return 60
}

package synth

import (
	"math"
	"sort"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

// sampleStddev returns the sample standard deviation of xs, or 0 when fewer
// than two samples are available.
func sampleStddev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(n)

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// clamp bounds x into [lo, hi].
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// floorDiv is integer division rounding toward negative infinity, so bucket
// assignment stays a true floor even for pre-epoch timestamps.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// absDelta returns |a-b| for Unix-second timestamps.
func absDelta(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}

// nearestTrades returns up to k trades ordered by increasing time distance
// to target. Ties break on timestamp then order ID so the selection is
// deterministic regardless of input order. The input slice is not modified.
func nearestTrades(trades []domain.Trade, target int64, k int) []domain.Trade {
	if len(trades) == 0 || k <= 0 {
		return nil
	}
	sorted := make([]domain.Trade, len(trades))
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		di, dj := absDelta(sorted[i].Timestamp, target), absDelta(sorted[j].Timestamp, target)
		if di != dj {
			return di < dj
		}
		if sorted[i].Timestamp != sorted[j].Timestamp {
			return sorted[i].Timestamp < sorted[j].Timestamp
		}
		return sorted[i].OrderID < sorted[j].OrderID
	})
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}

// nearestBarAtOrBefore returns the latest bar whose bucket timestamp is at
// or before ts. Bars must be ordered ascending by timestamp.
func nearestBarAtOrBefore(bars []domain.PriceBar, ts int64) (domain.PriceBar, bool) {
	// First bar strictly after ts.
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Timestamp > ts })
	if i == 0 {
		return domain.PriceBar{}, false
	}
	return bars[i-1], true
}

package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

func TestAggregateSingleBucket(t *testing.T) {
	points := []domain.PricePoint{
		{Timestamp: 100, Price: 0.40},
		{Timestamp: 130, Price: 0.45},
		{Timestamp: 200, Price: 0.50},
	}

	bars, err := Aggregate(points, domain.Interval5m)
	require.NoError(t, err)
	require.Len(t, bars, 1)

	bar := bars[0]
	assert.Equal(t, int64(0), bar.Timestamp)
	assert.Equal(t, 0.40, bar.Open)
	assert.Equal(t, 0.50, bar.High)
	assert.Equal(t, 0.40, bar.Low)
	assert.Equal(t, 0.50, bar.Close)
}

func TestAggregateBucketBoundaries(t *testing.T) {
	// 60s buckets: 59 and 60 land in different buckets, 60 and 119 share one.
	points := []domain.PricePoint{
		{Timestamp: 59, Price: 0.30},
		{Timestamp: 60, Price: 0.35},
		{Timestamp: 119, Price: 0.40},
		{Timestamp: 120, Price: 0.45},
	}

	bars, err := Aggregate(points, domain.Interval1m)
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, int64(0), bars[0].Timestamp)
	assert.Equal(t, int64(60), bars[1].Timestamp)
	assert.Equal(t, int64(120), bars[2].Timestamp)

	assert.Equal(t, 0.35, bars[1].Open)
	assert.Equal(t, 0.40, bars[1].Close)
}

func TestAggregateSortsDefensively(t *testing.T) {
	unsorted := []domain.PricePoint{
		{Timestamp: 200, Price: 0.50},
		{Timestamp: 100, Price: 0.40},
		{Timestamp: 130, Price: 0.45},
	}

	bars, err := Aggregate(unsorted, domain.Interval5m)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 0.40, bars[0].Open)
	assert.Equal(t, 0.50, bars[0].Close)

	// Input slice must not be reordered.
	assert.Equal(t, int64(200), unsorted[0].Timestamp)
}

func TestAggregateSinglePointBucket(t *testing.T) {
	bars, err := Aggregate([]domain.PricePoint{{Timestamp: 90, Price: 0.62}}, domain.Interval1m)
	require.NoError(t, err)
	require.Len(t, bars, 1)

	bar := bars[0]
	assert.Equal(t, 0.62, bar.Open)
	assert.Equal(t, 0.62, bar.High)
	assert.Equal(t, 0.62, bar.Low)
	assert.Equal(t, 0.62, bar.Close)
	assert.Zero(t, bar.Volume)
}

func TestAggregateEmptyInput(t *testing.T) {
	bars, err := Aggregate(nil, domain.Interval1h)
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestAggregateRejectsOutOfRangePrice(t *testing.T) {
	_, err := Aggregate([]domain.PricePoint{{Timestamp: 10, Price: 1.2}}, domain.Interval1m)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = Aggregate([]domain.PricePoint{{Timestamp: 10, Price: -0.1}}, domain.Interval1m)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAggregateRejectsUnknownInterval(t *testing.T) {
	_, err := Aggregate([]domain.PricePoint{{Timestamp: 10, Price: 0.5}}, domain.Interval("2m"))
	require.ErrorIs(t, err, domain.ErrInvalidInterval)
}

func TestAggregateInvariants(t *testing.T) {
	points := []domain.PricePoint{
		{Timestamp: 5, Price: 0.10},
		{Timestamp: 65, Price: 0.20},
		{Timestamp: 70, Price: 0.15},
		{Timestamp: 310, Price: 0.90},
		{Timestamp: 320, Price: 0.85},
		{Timestamp: 330, Price: 0.95},
	}

	bars, err := Aggregate(points, domain.Interval1m)
	require.NoError(t, err)

	var prev int64 = -1
	for _, b := range bars {
		assert.Greater(t, b.Timestamp, prev, "bucket timestamps strictly increasing")
		prev = b.Timestamp

		assert.LessOrEqual(t, b.Low, b.Open)
		assert.LessOrEqual(t, b.Low, b.Close)
		assert.LessOrEqual(t, b.Open, b.High)
		assert.LessOrEqual(t, b.Close, b.High)
		assert.GreaterOrEqual(t, b.Volume, 0.0)
	}
}

func TestMovementVolume(t *testing.T) {
	assert.Zero(t, MovementVolume(nil))
	assert.Zero(t, MovementVolume([]float64{0.5}))

	// Two movements, total absolute change 0.10.
	assert.InDelta(t, 2.1, MovementVolume([]float64{0.40, 0.45, 0.50}), 1e-9)

	// Direction does not matter for magnitude.
	assert.InDelta(t, 2.1, MovementVolume([]float64{0.50, 0.45, 0.40}), 1e-9)
}

func TestAggregateWithCustomProxy(t *testing.T) {
	countProxy := func(prices []float64) float64 { return float64(len(prices)) }

	points := []domain.PricePoint{
		{Timestamp: 0, Price: 0.5},
		{Timestamp: 1, Price: 0.5},
		{Timestamp: 2, Price: 0.5},
	}
	bars, err := AggregateWith(points, domain.Interval1m, countProxy)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 3.0, bars[0].Volume)
}

func TestResample(t *testing.T) {
	bars := []domain.PriceBar{
		{Timestamp: 0, Open: 0.40, High: 0.45, Low: 0.40, Close: 0.45, Volume: 1},
		{Timestamp: 60, Open: 0.45, High: 0.50, Low: 0.35, Close: 0.36, Volume: 2},
		{Timestamp: 300, Open: 0.36, High: 0.40, Low: 0.36, Close: 0.40, Volume: 3},
	}

	out, err := Resample(bars, domain.Interval5m)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, int64(0), out[0].Timestamp)
	assert.Equal(t, 0.40, out[0].Open)
	assert.Equal(t, 0.50, out[0].High)
	assert.Equal(t, 0.35, out[0].Low)
	assert.Equal(t, 0.36, out[0].Close)
	assert.Equal(t, 3.0, out[0].Volume)

	assert.Equal(t, int64(300), out[1].Timestamp)
}

func TestResampleRejectsFinerTarget(t *testing.T) {
	bars := []domain.PriceBar{
		{Timestamp: 0, Close: 0.5},
		{Timestamp: 3600, Close: 0.5},
	}
	_, err := Resample(bars, domain.Interval1m)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestForwardFill(t *testing.T) {
	bars := []domain.PriceBar{
		{Timestamp: 0, Open: 0.40, High: 0.45, Low: 0.40, Close: 0.42, Volume: 1},
		{Timestamp: 180, Open: 0.44, High: 0.44, Low: 0.44, Close: 0.44, Volume: 1},
	}

	filled := ForwardFill(bars, domain.Interval1m)
	require.Len(t, filled, 4)

	for _, flat := range filled[1:3] {
		assert.Equal(t, 0.42, flat.Open)
		assert.Equal(t, 0.42, flat.Close)
		assert.Zero(t, flat.Volume)
	}
	assert.Equal(t, int64(60), filled[1].Timestamp)
	assert.Equal(t, int64(120), filled[2].Timestamp)
}

func TestAggregateDeterministic(t *testing.T) {
	points := []domain.PricePoint{
		{Timestamp: 100, Price: 0.40},
		{Timestamp: 130, Price: 0.45},
		{Timestamp: 200, Price: 0.50},
		{Timestamp: 4000, Price: 0.55},
	}

	first, err := Aggregate(points, domain.Interval1m)
	require.NoError(t, err)
	second, err := Aggregate(points, domain.Interval1m)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

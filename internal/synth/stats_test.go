package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

func TestSampleStddev(t *testing.T) {
	assert.Zero(t, sampleStddev(nil))
	assert.Zero(t, sampleStddev([]float64{0.5}))
	assert.Zero(t, sampleStddev([]float64{0.5, 0.5, 0.5}))

	// Known value: stddev of {2,4,4,4,5,5,7,9} with n-1 is ~2.138.
	got := sampleStddev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 2.13809, got, 1e-4)
}

func TestFloorDiv(t *testing.T) {
	assert.Equal(t, int64(1), floorDiv(100, 60))
	assert.Equal(t, int64(0), floorDiv(59, 60))
	assert.Equal(t, int64(-1), floorDiv(-1, 60))
	assert.Equal(t, int64(-2), floorDiv(-61, 60))
}

func TestNearestTrades(t *testing.T) {
	trades := []domain.Trade{
		{Timestamp: 100, Price: 0.1, OrderID: "a"},
		{Timestamp: 300, Price: 0.3, OrderID: "b"},
		{Timestamp: 190, Price: 0.2, OrderID: "c"},
		{Timestamp: 210, Price: 0.4, OrderID: "d"},
	}

	got := nearestTrades(trades, 200, 2)
	require.Len(t, got, 2)
	// 190 and 210 are both 10s away; the earlier timestamp wins the tie.
	assert.Equal(t, "c", got[0].OrderID)
	assert.Equal(t, "d", got[1].OrderID)

	all := nearestTrades(trades, 200, 10)
	assert.Len(t, all, 4)

	assert.Nil(t, nearestTrades(nil, 200, 5))
}

func TestNearestBarAtOrBefore(t *testing.T) {
	bars := []domain.PriceBar{
		{Timestamp: 100, Close: 0.1},
		{Timestamp: 200, Close: 0.2},
		{Timestamp: 300, Close: 0.3},
	}

	b, ok := nearestBarAtOrBefore(bars, 250)
	require.True(t, ok)
	assert.Equal(t, int64(200), b.Timestamp)

	b, ok = nearestBarAtOrBefore(bars, 200)
	require.True(t, ok)
	assert.Equal(t, int64(200), b.Timestamp)

	_, ok = nearestBarAtOrBefore(bars, 99)
	assert.False(t, ok)

	_, ok = nearestBarAtOrBefore(nil, 100)
	assert.False(t, ok)
}

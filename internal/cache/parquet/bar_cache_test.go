package parquet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

func testBars() []domain.PriceBar {
	return []domain.PriceBar{
		{Timestamp: 0, Open: 0.40, High: 0.50, Low: 0.40, Close: 0.50, Volume: 2.1},
		{Timestamp: 300, Open: 0.50, High: 0.55, Low: 0.48, Close: 0.52, Volume: 3.0},
	}
}

func TestBarCacheRoundTrip(t *testing.T) {
	cache, err := NewBarCache(t.TempDir())
	require.NoError(t, err)

	const token = "71319907883767"
	assert.False(t, cache.HasBars(token))

	require.NoError(t, cache.SaveBars(token, testBars()))
	assert.True(t, cache.HasBars(token))

	got, err := cache.LoadBars(token)
	require.NoError(t, err)
	assert.Equal(t, testBars(), got)
}

func TestBarCacheSaveReplaces(t *testing.T) {
	cache, err := NewBarCache(t.TempDir())
	require.NoError(t, err)

	const token = "111"
	require.NoError(t, cache.SaveBars(token, testBars()))

	replacement := []domain.PriceBar{{Timestamp: 600, Open: 0.6, High: 0.6, Low: 0.6, Close: 0.6, Volume: 0}}
	require.NoError(t, cache.SaveBars(token, replacement))

	got, err := cache.LoadBars(token)
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
}

func TestBarCacheMissingToken(t *testing.T) {
	cache, err := NewBarCache(t.TempDir())
	require.NoError(t, err)

	_, err = cache.LoadBars("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBarCacheDelete(t *testing.T) {
	cache, err := NewBarCache(t.TempDir())
	require.NoError(t, err)

	const token = "111"
	require.NoError(t, cache.SaveBars(token, testBars()))
	require.NoError(t, cache.DeleteBars(token))
	assert.False(t, cache.HasBars(token))

	// Deleting a missing token is not an error.
	require.NoError(t, cache.DeleteBars(token))
}

func TestSanitizeStem(t *testing.T) {
	assert.Equal(t, "abc_123", sanitizeStem("abc/123"))
	assert.Equal(t, "token", sanitizeStem(""))

	long := sanitizeStem("123456789012345678901234567890123456789012345678901234567890123456789012345678901234567890")
	assert.Len(t, long, maxFileStem)
}

package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pmdata/internal/domain"
	"github.com/alanyoungcy/pmdata/internal/synth"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// fakePriceSource serves canned price points and counts calls.
type fakePriceSource struct {
	points []domain.PricePoint
	err    error
	calls  int
}

func (f *fakePriceSource) PricesHistory(_ context.Context, _ string, _, _ int64, _ int) ([]domain.PricePoint, error) {
	f.calls++
	return f.points, f.err
}

// windowedPriceSource serves only the points inside the requested range.
type windowedPriceSource struct {
	points []domain.PricePoint
	calls  int
}

func (f *windowedPriceSource) PricesHistory(_ context.Context, _ string, startTs, endTs int64, _ int) ([]domain.PricePoint, error) {
	f.calls++
	var out []domain.PricePoint
	for _, p := range f.points {
		if p.Timestamp >= startTs && p.Timestamp <= endTs {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeTradeSource serves canned trades.
type fakeTradeSource struct {
	trades []domain.Trade
	err    error
}

func (f *fakeTradeSource) OrderFills(_ context.Context, _ string, _, _ int64) ([]domain.Trade, error) {
	return f.trades, f.err
}

// memBarCache is an in-memory domain.BarCache.
type memBarCache struct {
	mu   sync.Mutex
	bars map[string][]domain.PriceBar
}

func newMemBarCache() *memBarCache {
	return &memBarCache{bars: map[string][]domain.PriceBar{}}
}

func (c *memBarCache) SaveBars(tokenID string, bars []domain.PriceBar) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bars[tokenID] = bars
	return nil
}

func (c *memBarCache) LoadBars(tokenID string) ([]domain.PriceBar, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bars, ok := c.bars[tokenID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return bars, nil
}

func (c *memBarCache) HasBars(tokenID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.bars[tokenID]
	return ok
}

func (c *memBarCache) DeleteBars(tokenID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bars, tokenID)
	return nil
}

// memFetchLog is an in-memory domain.FetchLogStore.
type memFetchLog struct {
	ranges map[string]domain.FetchRange
}

func newMemFetchLog() *memFetchLog {
	return &memFetchLog{ranges: map[string]domain.FetchRange{}}
}

func (l *memFetchLog) Record(_ context.Context, tokenID string, r domain.FetchRange) error {
	l.ranges[tokenID] = r
	return nil
}

func (l *memFetchLog) Get(_ context.Context, tokenID string) (domain.FetchRange, error) {
	r, ok := l.ranges[tokenID]
	if !ok {
		return domain.FetchRange{}, domain.ErrNotFound
	}
	return r, nil
}

// memBookCache is an in-memory domain.BookCache.
type memBookCache struct {
	books map[string]domain.Orderbook
	sets  int
}

func newMemBookCache() *memBookCache {
	return &memBookCache{books: map[string]domain.Orderbook{}}
}

func bookCacheKey(tokenID string, ts int64) string {
	return tokenID + "@" + time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

func (c *memBookCache) SetBook(_ context.Context, book domain.Orderbook, _ time.Duration) error {
	c.sets++
	c.books[bookCacheKey(book.TokenID, book.Timestamp)] = book
	return nil
}

func (c *memBookCache) GetBook(_ context.Context, tokenID string, ts int64) (domain.Orderbook, error) {
	book, ok := c.books[bookCacheKey(tokenID, ts)]
	if !ok {
		return domain.Orderbook{}, domain.ErrNotFound
	}
	return book, nil
}

func newTestSynthesizer(t *testing.T) *synth.Synthesizer {
	t.Helper()
	sy, err := synth.NewSynthesizer(synth.DefaultSynthesisConfig())
	require.NoError(t, err)
	return sy
}

func TestGetOHLCVFetchesAndCaches(t *testing.T) {
	prices := &fakePriceSource{points: []domain.PricePoint{
		{Timestamp: 100, Price: 0.40},
		{Timestamp: 130, Price: 0.45},
		{Timestamp: 200, Price: 0.50},
	}}
	bars := newMemBarCache()
	log := newMemFetchLog()

	svc := NewHistoryService(prices, nil, bars, newTestSynthesizer(t), testLogger(), WithFetchLog(log))

	got, err := svc.GetOHLCV(context.Background(), "tok", 0, 300, domain.Interval1m)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 1, prices.calls)
	assert.True(t, bars.HasBars("tok"))

	// Second call inside the recorded range is served from the cache.
	got2, err := svc.GetOHLCV(context.Background(), "tok", 0, 300, domain.Interval1m)
	require.NoError(t, err)
	assert.Equal(t, got, got2)
	assert.Equal(t, 1, prices.calls, "cache hit must not refetch")

	// A wider range forces a refetch.
	_, err = svc.GetOHLCV(context.Background(), "tok", 0, 10_000, domain.Interval1m)
	require.NoError(t, err)
	assert.Equal(t, 2, prices.calls)
}

func TestGetOHLCVRefetchesAfterDisjointFetch(t *testing.T) {
	// The bar cache holds only the last fetch's bars, so a later disjoint
	// fetch must not leave the log claiming the earlier window is covered.
	prices := &windowedPriceSource{points: []domain.PricePoint{
		{Timestamp: 100, Price: 0.40},
		{Timestamp: 160, Price: 0.45},
		{Timestamp: 100_000, Price: 0.60},
		{Timestamp: 100_060, Price: 0.65},
	}}
	bars := newMemBarCache()
	log := newMemFetchLog()

	svc := NewHistoryService(prices, nil, bars, newTestSynthesizer(t), testLogger(), WithFetchLog(log))

	first, err := svc.FetchAndCache(context.Background(), "tok", 0, 600)
	require.NoError(t, err)
	require.Len(t, first, 2)

	_, err = svc.FetchAndCache(context.Background(), "tok", 100_000, 100_600)
	require.NoError(t, err)
	require.Equal(t, 2, prices.calls)

	// The first window is no longer cached; querying it must refetch and
	// return its bars rather than an empty slice from the second fetch.
	got, err := svc.GetOHLCV(context.Background(), "tok", 0, 600, domain.Interval1m)
	require.NoError(t, err)
	assert.Equal(t, first, got)
	assert.Equal(t, 3, prices.calls, "stale coverage must not serve the cache")
}

func TestGetOHLCVResamplesCoarserIntervals(t *testing.T) {
	prices := &fakePriceSource{points: []domain.PricePoint{
		{Timestamp: 0, Price: 0.40},
		{Timestamp: 60, Price: 0.45},
		{Timestamp: 120, Price: 0.50},
		{Timestamp: 360, Price: 0.55},
	}}

	svc := NewHistoryService(prices, nil, newMemBarCache(), newTestSynthesizer(t), testLogger())

	got, err := svc.GetOHLCV(context.Background(), "tok", 0, 400, domain.Interval5m)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0.40, got[0].Open)
	assert.Equal(t, 0.50, got[0].Close)
	assert.Equal(t, 0.55, got[1].Close)
}

func TestGetOHLCVRejectsUnknownInterval(t *testing.T) {
	svc := NewHistoryService(&fakePriceSource{}, nil, newMemBarCache(), newTestSynthesizer(t), testLogger())
	_, err := svc.GetOHLCV(context.Background(), "tok", 0, 100, domain.Interval("7m"))
	assert.ErrorIs(t, err, domain.ErrInvalidInterval)
}

func TestGetSyntheticOrderbookFromTrades(t *testing.T) {
	trades := &fakeTradeSource{trades: []domain.Trade{
		{Timestamp: 950, Price: 0.50, Size: 1, Side: domain.TradeBuy, TokenID: "tok"},
		{Timestamp: 960, Price: 0.52, Size: 1, Side: domain.TradeSell, TokenID: "tok"},
		{Timestamp: 990, Price: 0.48, Size: 1, Side: domain.TradeBuy, TokenID: "tok"},
	}}
	books := newMemBookCache()

	svc := NewHistoryService(&fakePriceSource{}, trades, newMemBarCache(), newTestSynthesizer(t), testLogger(), WithBookCache(books))

	book, err := svc.GetSyntheticOrderbook(context.Background(), "tok", 1000, 1)
	require.NoError(t, err)
	assert.True(t, book.Synthetic)
	assert.Equal(t, "tok", book.TokenID)
	assert.Equal(t, int64(1000), book.Timestamp)
	assert.Greater(t, book.BestAsk(), book.BestBid())
	assert.Equal(t, 1, books.sets)

	// Repeating the query hits the book cache.
	again, err := svc.GetSyntheticOrderbook(context.Background(), "tok", 1000, 1)
	require.NoError(t, err)
	assert.Equal(t, book, again)
	assert.Equal(t, 1, books.sets)
}

func TestGetSyntheticOrderbookBarFallback(t *testing.T) {
	// No trades; prices produce the fallback bars.
	prices := &fakePriceSource{points: []domain.PricePoint{
		{Timestamp: 100, Price: 0.37},
	}}
	trades := &fakeTradeSource{}

	svc := NewHistoryService(prices, trades, newMemBarCache(), newTestSynthesizer(t), testLogger())

	book, err := svc.GetSyntheticOrderbook(context.Background(), "tok", 86400, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.37, book.Mid(), 1e-9)
}

func TestGetSyntheticOrderbookNoData(t *testing.T) {
	svc := NewHistoryService(&fakePriceSource{}, &fakeTradeSource{}, newMemBarCache(), newTestSynthesizer(t), testLogger())

	_, err := svc.GetSyntheticOrderbook(context.Background(), "tok", 1000, 1)
	assert.ErrorIs(t, err, domain.ErrNoAnchorData)
}

// fakeArchiver records the archived token.
type fakeArchiver struct {
	archived []string
}

func (f *fakeArchiver) ArchiveBars(_ context.Context, tokenID string) (string, error) {
	f.archived = append(f.archived, tokenID)
	return "archive/bars/2026/08/27/" + tokenID + "/run.parquet", nil
}

func TestArchiveCached(t *testing.T) {
	arch := &fakeArchiver{}
	svc := NewHistoryService(&fakePriceSource{}, nil, newMemBarCache(), newTestSynthesizer(t), testLogger(), WithArchiver(arch))

	key, err := svc.ArchiveCached(context.Background(), "tok")
	require.NoError(t, err)
	assert.Contains(t, key, "tok")
	assert.Equal(t, []string{"tok"}, arch.archived)
}

func TestArchiveCachedWithoutArchiver(t *testing.T) {
	svc := NewHistoryService(&fakePriceSource{}, nil, newMemBarCache(), newTestSynthesizer(t), testLogger())
	_, err := svc.ArchiveCached(context.Background(), "tok")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

// Package service composes the fetch clients, caches, and the synthesis
// core into the operations the CLI exposes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/pmdata/internal/domain"
	"github.com/alanyoungcy/pmdata/internal/synth"
)

// rawFidelity is the minute-level fidelity the bar cache is built from.
// Coarser fidelities are derived by resampling, never cached separately.
const rawFidelity = 1

// PriceSource fetches sparse price history from the CLOB.
type PriceSource interface {
	PricesHistory(ctx context.Context, tokenID string, startTs, endTs int64, fidelity int) ([]domain.PricePoint, error)
}

// TradeSource fetches individual fills from the subgraph.
type TradeSource interface {
	OrderFills(ctx context.Context, tokenID string, startTs, endTs int64) ([]domain.Trade, error)
}

// HistoryService answers price history, OHLCV, trade, and synthetic
// orderbook queries, reading through the local bar cache where possible.
type HistoryService struct {
	prices   PriceSource
	trades   TradeSource
	bars     domain.BarCache
	books    domain.BookCache
	fetchLog domain.FetchLogStore
	archiver domain.Archiver
	synth    *synth.Synthesizer
	logger   *slog.Logger
}

// HistoryOption configures optional HistoryService dependencies.
type HistoryOption func(*HistoryService)

// WithBookCache caches synthetic orderbooks between calls.
func WithBookCache(books domain.BookCache) HistoryOption {
	return func(s *HistoryService) { s.books = books }
}

// WithFetchLog records fetched ranges so bulk jobs can skip covered work.
func WithFetchLog(log domain.FetchLogStore) HistoryOption {
	return func(s *HistoryService) { s.fetchLog = log }
}

// WithArchiver enables ArchiveCached.
func WithArchiver(a domain.Archiver) HistoryOption {
	return func(s *HistoryService) { s.archiver = a }
}

// NewHistoryService creates a HistoryService. prices, bars, and the
// synthesizer are required; trades is required only for trade and
// orderbook queries.
func NewHistoryService(
	prices PriceSource,
	trades TradeSource,
	bars domain.BarCache,
	sy *synth.Synthesizer,
	logger *slog.Logger,
	opts ...HistoryOption,
) *HistoryService {
	s := &HistoryService{
		prices: prices,
		trades: trades,
		bars:   bars,
		synth:  sy,
		logger: logger.With(slog.String("component", "history_service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetRawPrices fetches sparse price points for the token over [startTs, endTs].
func (s *HistoryService) GetRawPrices(ctx context.Context, tokenID string, startTs, endTs int64) ([]domain.PricePoint, error) {
	points, err := s.prices.PricesHistory(ctx, tokenID, startTs, endTs, rawFidelity)
	if err != nil {
		return nil, fmt.Errorf("history: raw prices %s: %w", tokenID, err)
	}
	return points, nil
}

// GetOHLCV returns aggregated bars for the token at the given interval.
// Minute bars are served from the local cache when it covers the range;
// otherwise they are fetched, aggregated, and cached. Coarser intervals
// are resampled from the minute bars.
func (s *HistoryService) GetOHLCV(ctx context.Context, tokenID string, startTs, endTs int64, interval domain.Interval) ([]domain.PriceBar, error) {
	if _, err := domain.ParseInterval(string(interval)); err != nil {
		return nil, err
	}

	minuteBars, err := s.minuteBars(ctx, tokenID, startTs, endTs)
	if err != nil {
		return nil, err
	}

	// Trim to the requested range; the cache may hold a wider span.
	trimmed := minuteBars[:0:0]
	for _, bar := range minuteBars {
		if bar.Timestamp >= startTs && bar.Timestamp <= endTs {
			trimmed = append(trimmed, bar)
		}
	}

	if interval == domain.Interval1m {
		return trimmed, nil
	}
	bars, err := synth.Resample(trimmed, interval)
	if err != nil {
		return nil, fmt.Errorf("history: resample %s to %s: %w", tokenID, interval, err)
	}
	return bars, nil
}

// minuteBars returns cached minute bars when the fetch log covers the
// range, fetching and caching otherwise.
func (s *HistoryService) minuteBars(ctx context.Context, tokenID string, startTs, endTs int64) ([]domain.PriceBar, error) {
	if s.covered(ctx, tokenID, startTs, endTs) && s.bars.HasBars(tokenID) {
		bars, err := s.bars.LoadBars(tokenID)
		if err == nil {
			return bars, nil
		}
		s.logger.WarnContext(ctx, "bar cache load failed, refetching",
			slog.String("token_id", tokenID),
			slog.String("error", err.Error()),
		)
	}
	return s.FetchAndCache(ctx, tokenID, startTs, endTs)
}

// covered reports whether the fetch log says [startTs, endTs] was already
// fetched for the token.
func (s *HistoryService) covered(ctx context.Context, tokenID string, startTs, endTs int64) bool {
	if s.fetchLog == nil {
		return false
	}
	r, err := s.fetchLog.Get(ctx, tokenID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "fetch log read failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}
		return false
	}
	return r.Start <= startTs && r.End >= endTs
}

// FetchAndCache fetches raw prices, aggregates them into minute bars,
// stores them in the bar cache, and records the fetched range. The
// aggregated bars are returned.
func (s *HistoryService) FetchAndCache(ctx context.Context, tokenID string, startTs, endTs int64) ([]domain.PriceBar, error) {
	points, err := s.GetRawPrices(ctx, tokenID, startTs, endTs)
	if err != nil {
		return nil, err
	}

	bars, err := synth.Aggregate(points, domain.Interval1m)
	if err != nil {
		return nil, fmt.Errorf("history: aggregate %s: %w", tokenID, err)
	}

	if err := s.bars.SaveBars(tokenID, bars); err != nil {
		return nil, fmt.Errorf("history: cache bars %s: %w", tokenID, err)
	}

	if s.fetchLog != nil {
		if err := s.fetchLog.Record(ctx, tokenID, domain.FetchRange{Start: startTs, End: endTs}); err != nil {
			s.logger.WarnContext(ctx, "fetch log record failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "fetched and cached bars",
		slog.String("token_id", tokenID),
		slog.Int("points", len(points)),
		slog.Int("bars", len(bars)),
	)
	return bars, nil
}

// GetTrades fetches fills for the token over [startTs, endTs].
func (s *HistoryService) GetTrades(ctx context.Context, tokenID string, startTs, endTs int64) ([]domain.Trade, error) {
	if s.trades == nil {
		return nil, fmt.Errorf("history: trades: %w: no trade source configured", domain.ErrInvalidConfig)
	}
	trades, err := s.trades.OrderFills(ctx, tokenID, startTs, endTs)
	if err != nil {
		return nil, fmt.Errorf("history: trades %s: %w", tokenID, err)
	}
	return trades, nil
}

// GetSyntheticOrderbook reconstructs the orderbook for the token at the
// target timestamp. Trades from lookback days before the target anchor
// the mid; hourly bars over the same window serve as fallback. Results
// are cached when a book cache is configured.
func (s *HistoryService) GetSyntheticOrderbook(ctx context.Context, tokenID string, target int64, lookbackDays int) (domain.Orderbook, error) {
	if lookbackDays <= 0 {
		lookbackDays = 1
	}

	if s.books != nil {
		if book, err := s.books.GetBook(ctx, tokenID, target); err == nil {
			return book, nil
		}
	}

	startTs := target - int64(lookbackDays)*86400

	trades, err := s.GetTrades(ctx, tokenID, startTs, target)
	if err != nil {
		s.logger.WarnContext(ctx, "trade fetch failed, relying on bar fallback",
			slog.String("token_id", tokenID),
			slog.String("error", err.Error()),
		)
		trades = nil
	}

	var bars []domain.PriceBar
	if len(trades) == 0 {
		bars, err = s.GetOHLCV(ctx, tokenID, startTs, target, domain.Interval1h)
		if err != nil {
			return domain.Orderbook{}, fmt.Errorf("history: fallback bars %s: %w", tokenID, err)
		}
	}

	book, err := s.synth.Synthesize(tokenID, target, trades, bars)
	if err != nil {
		return domain.Orderbook{}, fmt.Errorf("history: synthesize %s@%d: %w", tokenID, target, err)
	}

	if s.books != nil {
		if err := s.books.SetBook(ctx, book, time.Hour); err != nil {
			s.logger.WarnContext(ctx, "book cache write failed",
				slog.String("token_id", tokenID),
				slog.String("error", err.Error()),
			)
		}
	}
	return book, nil
}

// ArchiveCached uploads the token's cached bars to long-term storage and
// returns the object key.
func (s *HistoryService) ArchiveCached(ctx context.Context, tokenID string) (string, error) {
	if s.archiver == nil {
		return "", fmt.Errorf("history: archive: %w: no archiver configured", domain.ErrInvalidConfig)
	}
	key, err := s.archiver.ArchiveBars(ctx, tokenID)
	if err != nil {
		return "", fmt.Errorf("history: archive %s: %w", tokenID, err)
	}
	s.logger.InfoContext(ctx, "archived cached bars",
		slog.String("token_id", tokenID),
		slog.String("key", key),
	)
	return key, nil
}

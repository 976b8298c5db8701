package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

// MarketSource fetches market metadata from the Gamma API.
type MarketSource interface {
	GetMarket(ctx context.Context, id string) (domain.Market, error)
	GetMarketBySlug(ctx context.Context, slug string) (domain.Market, error)
	GetAllMarkets(ctx context.Context, filter MarketQuery, pageSize, max int) ([]domain.Market, error)
}

// MarketQuery mirrors the Gamma market filter without importing the
// transport package.
type MarketQuery struct {
	Active    *bool
	Closed    *bool
	Order     string
	Ascending *bool
}

// MarketService handles market discovery and metadata, reading through an
// optional persistent store.
type MarketService struct {
	source MarketSource
	store  domain.MarketStore
	logger *slog.Logger
}

// NewMarketService creates a MarketService. store may be nil, in which
// case every call goes straight to the API.
func NewMarketService(source MarketSource, store domain.MarketStore, logger *slog.Logger) *MarketService {
	return &MarketService{
		source: source,
		store:  store,
		logger: logger.With(slog.String("component", "market_service")),
	}
}

// GetMarket retrieves a market by Gamma ID, checking the store first and
// falling back to the API on a miss. API results are written back.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	if s.store != nil {
		m, err := s.store.GetByID(ctx, id)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "market store read failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	m, err := s.source.GetMarket(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market: get %s: %w", id, err)
	}
	s.persist(ctx, m)
	return m, nil
}

// GetMarketBySlug retrieves a market by its URL slug.
func (s *MarketService) GetMarketBySlug(ctx context.Context, slug string) (domain.Market, error) {
	m, err := s.source.GetMarketBySlug(ctx, slug)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market: get by slug %s: %w", slug, err)
	}
	s.persist(ctx, m)
	return m, nil
}

// ResolveToken maps an outcome token ID to its market. The store answers
// directly when it knows the token.
func (s *MarketService) ResolveToken(ctx context.Context, tokenID string) (domain.Market, error) {
	if s.store == nil {
		return domain.Market{}, fmt.Errorf("market: resolve token: %w: no market store configured", domain.ErrInvalidConfig)
	}
	m, err := s.store.GetByTokenID(ctx, tokenID)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market: resolve token %s: %w", tokenID, err)
	}
	return m, nil
}

// marketPageSize is the Gamma page size used when listing markets.
const marketPageSize = 100

// ListMarkets fetches up to limit markets matching the filter from the API
// and persists them. limit <= 0 fetches the whole catalog.
func (s *MarketService) ListMarkets(ctx context.Context, query MarketQuery, limit int) ([]domain.Market, error) {
	markets, err := s.source.GetAllMarkets(ctx, query, marketPageSize, limit)
	if err != nil {
		return nil, fmt.Errorf("market: list: %w", err)
	}
	for _, m := range markets {
		s.persist(ctx, m)
	}
	s.logger.InfoContext(ctx, "listed markets", slog.Int("count", len(markets)))
	return markets, nil
}

// persist upserts into the store when one is configured. Store write
// failures are logged, never surfaced; the API result is still good.
func (s *MarketService) persist(ctx context.Context, m domain.Market) {
	if s.store == nil {
		return
	}
	if err := s.store.Upsert(ctx, m); err != nil {
		s.logger.WarnContext(ctx, "market store write failed",
			slog.String("market_id", m.ID),
			slog.String("error", err.Error()),
		)
	}
}

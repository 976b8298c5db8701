package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/pmdata/internal/blob/s3"
	"github.com/alanyoungcy/pmdata/internal/cache/parquet"
	"github.com/alanyoungcy/pmdata/internal/cache/redis"
	"github.com/alanyoungcy/pmdata/internal/config"
	"github.com/alanyoungcy/pmdata/internal/domain"
	"github.com/alanyoungcy/pmdata/internal/platform/goldsky"
	"github.com/alanyoungcy/pmdata/internal/platform/polymarket"
	"github.com/alanyoungcy/pmdata/internal/service"
	"github.com/alanyoungcy/pmdata/internal/store/postgres"
	"github.com/alanyoungcy/pmdata/internal/synth"
)

// Dependencies bundles everything the CLI commands need. It is constructed
// by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	History *service.HistoryService
	Markets *service.MarketService

	// PriceCache and BookCache are non-nil only when Redis is configured;
	// the watch command uses them for write-through.
	PriceCache domain.PriceCache
	BookCache  domain.BookCache

	WsHost string
}

// gammaSource adapts the Gamma client to the service-level market source.
type gammaSource struct {
	client *polymarket.GammaClient
}

func (g gammaSource) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	return g.client.GetMarket(ctx, id)
}

func (g gammaSource) GetMarketBySlug(ctx context.Context, slug string) (domain.Market, error) {
	return g.client.GetMarketBySlug(ctx, slug)
}

func (g gammaSource) GetAllMarkets(ctx context.Context, q service.MarketQuery, pageSize, max int) ([]domain.Market, error) {
	return g.client.GetAllMarkets(ctx, polymarket.MarketFilter{
		Active:    q.Active,
		Closed:    q.Closed,
		Order:     q.Order,
		Ascending: q.Ascending,
	}, pageSize, max)
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown. Optional backends (Postgres, Redis, S3)
// are only dialed when their config sections are filled in.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	clob := polymarket.NewClobClient(cfg.Polymarket.ClobHost)
	gamma := polymarket.NewGammaClient(cfg.Polymarket.GammaHost)

	var trades service.TradeSource
	if cfg.Goldsky.URL != "" {
		trades = goldsky.NewClient(cfg.Goldsky.URL, cfg.Goldsky.APIKey)
	}

	barCache, err := parquet.NewBarCache(cfg.Cache.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: bar cache: %w", err)
	}

	synthesizer, err := synth.NewSynthesizer(cfg.Synthesis.ToSynth())
	if err != nil {
		return nil, nil, fmt.Errorf("wire: synthesizer: %w", err)
	}

	deps := &Dependencies{WsHost: cfg.Polymarket.WsHost}
	var historyOpts []service.HistoryOption
	var marketStore domain.MarketStore

	// --- PostgreSQL (market store + fetch log) ---
	if cfg.Postgres.Enabled() {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		marketStore = postgres.NewMarketStore(pool)
		historyOpts = append(historyOpts, service.WithFetchLog(postgres.NewFetchLogStore(pool)))
	}

	// --- Redis (hot price + book caches) ---
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.PriceCache = redis.NewPriceCache(redisClient)
		deps.BookCache = redis.NewBookCache(redisClient)
		historyOpts = append(historyOpts, service.WithBookCache(deps.BookCache))
	}

	// --- S3 (bar archive) ---
	if cfg.S3.Enabled() {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		archiver := s3blob.NewBarArchiver(s3blob.NewWriter(s3Client), barCache)
		historyOpts = append(historyOpts, service.WithArchiver(archiver))
	}

	deps.History = service.NewHistoryService(clob, trades, barCache, synthesizer, logger, historyOpts...)
	deps.Markets = service.NewMarketService(gammaSource{client: gamma}, marketStore, logger)

	return deps, cleanup, nil
}

package domain

import (
	"context"
	"time"
)

// BarCache persists aggregated OHLCV bars per outcome token.
type BarCache interface {
	SaveBars(tokenID string, bars []PriceBar) error
	LoadBars(tokenID string) ([]PriceBar, error)
	HasBars(tokenID string) bool
	DeleteBars(tokenID string) error
}

// PriceCache provides fast access to the latest observed price per token.
type PriceCache interface {
	SetPrice(ctx context.Context, tokenID string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, tokenID string) (float64, time.Time, error)
}

// BookCache stores synthesized orderbook snapshots keyed by token and
// target timestamp, so repeated backtest queries skip re-synthesis.
type BookCache interface {
	SetBook(ctx context.Context, book Orderbook, ttl time.Duration) error
	GetBook(ctx context.Context, tokenID string, timestamp int64) (Orderbook, error)
}

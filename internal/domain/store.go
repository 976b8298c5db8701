package domain

import "context"

// FetchRange records the [Start,End] Unix-second range last fetched for a
// token, used to decide whether the local bar cache covers a query.
type FetchRange struct {
	Start int64
	End   int64
}

// MarketStore persists market metadata.
type MarketStore interface {
	Upsert(ctx context.Context, market Market) error
	GetByID(ctx context.Context, id string) (Market, error)
	GetByTokenID(ctx context.Context, tokenID string) (Market, error)
	ListActive(ctx context.Context, limit int) ([]Market, error)
}

// FetchLogStore persists per-token fetch ranges.
type FetchLogStore interface {
	Record(ctx context.Context, tokenID string, r FetchRange) error
	Get(ctx context.Context, tokenID string) (FetchRange, error)
}

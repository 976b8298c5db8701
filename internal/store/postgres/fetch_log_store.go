package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

// FetchLogStore implements domain.FetchLogStore using PostgreSQL. One row
// per token records the range of the most recent fetch, so bulk jobs can
// skip work the local cache covers.
type FetchLogStore struct {
	pool *pgxpool.Pool
}

var _ domain.FetchLogStore = (*FetchLogStore)(nil)

// NewFetchLogStore creates a FetchLogStore backed by the given pool.
func NewFetchLogStore(pool *pgxpool.Pool) *FetchLogStore {
	return &FetchLogStore{pool: pool}
}

// Record replaces the stored range with the given one. The bar cache holds
// exactly the bars of the last fetch, so the log must never claim a wider
// span: a union of disjoint fetches would mark the gap and the older window
// as covered while the cache no longer has their bars.
func (s *FetchLogStore) Record(ctx context.Context, tokenID string, r domain.FetchRange) error {
	const query = `
		INSERT INTO fetch_log (token_id, range_start, range_end, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (token_id) DO UPDATE SET
			range_start = EXCLUDED.range_start,
			range_end   = EXCLUDED.range_end,
			updated_at  = NOW()`

	if _, err := s.pool.Exec(ctx, query, tokenID, r.Start, r.End); err != nil {
		return fmt.Errorf("postgres: record fetch range %s: %w", tokenID, err)
	}
	return nil
}

// Get returns the recorded range for the token, or domain.ErrNotFound.
func (s *FetchLogStore) Get(ctx context.Context, tokenID string) (domain.FetchRange, error) {
	var r domain.FetchRange
	err := s.pool.QueryRow(ctx,
		`SELECT range_start, range_end FROM fetch_log WHERE token_id = $1`, tokenID,
	).Scan(&r.Start, &r.End)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.FetchRange{}, domain.ErrNotFound
		}
		return domain.FetchRange{}, fmt.Errorf("postgres: get fetch range %s: %w", tokenID, err)
	}
	return r, nil
}

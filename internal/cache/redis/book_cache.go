package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/pmdata/internal/domain"
)

// defaultBookTTL bounds how long synthesized snapshots stay warm when the
// caller passes no TTL.
const defaultBookTTL = time.Hour

// BookCache implements domain.BookCache using JSON-encoded snapshots.
// Snapshots are keyed by token and target timestamp at
// "book:{tokenID}:{timestamp}", so a backtest replaying the same instants
// reuses earlier synthesis results.
type BookCache struct {
	rdb *redis.Client
}

var _ domain.BookCache = (*BookCache)(nil)

// NewBookCache creates a BookCache backed by the given Client.
func NewBookCache(c *Client) *BookCache {
	return &BookCache{rdb: c.Underlying()}
}

func bookKey(tokenID string, timestamp int64) string {
	return "book:" + tokenID + ":" + strconv.FormatInt(timestamp, 10)
}

// SetBook stores an orderbook snapshot under its token and timestamp with
// the given TTL. A non-positive TTL falls back to the default.
func (bc *BookCache) SetBook(ctx context.Context, book domain.Orderbook, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultBookTTL
	}

	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("redis: marshal book %s: %w", book.TokenID, err)
	}

	key := bookKey(book.TokenID, book.Timestamp)
	if err := bc.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set book %s: %w", key, err)
	}
	return nil
}

// GetBook retrieves the snapshot stored for the token at the exact
// timestamp. It returns domain.ErrNotFound when no snapshot is cached.
func (bc *BookCache) GetBook(ctx context.Context, tokenID string, timestamp int64) (domain.Orderbook, error) {
	key := bookKey(tokenID, timestamp)
	data, err := bc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Orderbook{}, domain.ErrNotFound
		}
		return domain.Orderbook{}, fmt.Errorf("redis: get book %s: %w", key, err)
	}

	var book domain.Orderbook
	if err := json.Unmarshal(data, &book); err != nil {
		return domain.Orderbook{}, fmt.Errorf("redis: decode book %s: %w", key, err)
	}
	return book, nil
}

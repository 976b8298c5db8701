// Package feed streams live market data from the Polymarket CLOB WebSocket
// and fans it out to handlers and caches.
package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/pmdata/internal/domain"
	"github.com/alanyoungcy/pmdata/internal/platform/polymarket"
)

const (
	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 60 * time.Second
)

// BookHandler receives every live orderbook snapshot.
type BookHandler func(ctx context.Context, book domain.Orderbook)

// TradeHandler receives every live last-trade event.
type TradeHandler func(ctx context.Context, trade domain.Trade)

// Watcher subscribes to the "book" and "last_trade_price" channels for a set
// of outcome tokens and invokes the registered handlers on each message.
// When caches are provided, snapshots and last trade prices are written
// through before handlers run.
type Watcher struct {
	wsURL    string
	tokenIDs []string

	onBook  BookHandler
	onTrade TradeHandler

	bookCache  domain.BookCache
	priceCache domain.PriceCache
	bookTTL    time.Duration

	logger *slog.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithBookHandler sets the handler invoked for each book snapshot.
func WithBookHandler(h BookHandler) WatcherOption {
	return func(w *Watcher) { w.onBook = h }
}

// WithTradeHandler sets the handler invoked for each last-trade event.
func WithTradeHandler(h TradeHandler) WatcherOption {
	return func(w *Watcher) { w.onTrade = h }
}

// WithBookCache write-through caches each snapshot with the given TTL.
func WithBookCache(cache domain.BookCache, ttl time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.bookCache = cache
		w.bookTTL = ttl
	}
}

// WithPriceCache write-through caches each last trade price.
func WithPriceCache(cache domain.PriceCache) WatcherOption {
	return func(w *Watcher) { w.priceCache = cache }
}

// NewWatcher creates a watcher for the given WebSocket endpoint and tokens.
func NewWatcher(wsURL string, tokenIDs []string, logger *slog.Logger, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		wsURL:    wsURL,
		tokenIDs: tokenIDs,
		logger:   logger.With(slog.String("component", "book_watcher")),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run connects, subscribes, and dispatches messages until ctx is cancelled.
// Disconnects are retried with exponential backoff; subscriptions are
// re-established on each new connection.
func (w *Watcher) Run(ctx context.Context) error {
	if len(w.tokenIDs) == 0 {
		w.logger.Info("no tokens to watch, exiting")
		return nil
	}

	delay := reconnectDelay
	for {
		err := w.runConnection(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Warn("websocket disconnected, reconnecting",
			slog.String("error", errString(err)),
			slog.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// runConnection drives one WebSocket session until it drops or ctx ends.
func (w *Watcher) runConnection(ctx context.Context) error {
	client := polymarket.NewWSClient(w.wsURL)
	defer client.Close()

	client.OnBook(func(book domain.Orderbook) {
		w.handleBook(ctx, book)
	})
	client.OnLastTrade(func(trade domain.Trade) {
		w.handleTrade(ctx, trade)
	})

	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err := client.Connect(connCtx)
	cancel()
	if err != nil {
		return err
	}

	channels := []string{"book", "last_trade_price"}
	if err := client.Subscribe(ctx, channels, w.tokenIDs); err != nil {
		return err
	}
	w.logger.Info("subscribed", slog.Int("tokens", len(w.tokenIDs)))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-client.Err():
		return domain.ErrWSDisconnect
	}
}

func (w *Watcher) handleBook(ctx context.Context, book domain.Orderbook) {
	if w.bookCache != nil {
		if err := w.bookCache.SetBook(ctx, book, w.bookTTL); err != nil {
			w.logger.Debug("cache book failed",
				slog.String("token_id", book.TokenID),
				slog.String("error", err.Error()),
			)
		}
	}
	if w.onBook != nil {
		w.onBook(ctx, book)
	}
}

func (w *Watcher) handleTrade(ctx context.Context, trade domain.Trade) {
	if w.priceCache != nil {
		if err := w.priceCache.SetPrice(ctx, trade.TokenID, trade.Price, time.Unix(trade.Timestamp, 0)); err != nil {
			w.logger.Debug("cache price failed",
				slog.String("token_id", trade.TokenID),
				slog.String("error", err.Error()),
			)
		}
	}
	if w.onTrade != nil {
		w.onTrade(ctx, trade)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

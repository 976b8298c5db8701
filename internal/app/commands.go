package app

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/pmdata/internal/domain"
	"github.com/alanyoungcy/pmdata/internal/feed"
	"github.com/alanyoungcy/pmdata/internal/service"
	"github.com/alanyoungcy/pmdata/internal/synth"
)

// fetchConcurrency caps concurrent token fetches in the fetch command.
const fetchConcurrency = 4

// parseWhen accepts Unix seconds or a YYYY-MM-DD date (UTC midnight).
func parseWhen(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty time value")
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Unix(), nil
	}
	var ts int64
	if _, err := fmt.Sscanf(s, "%d", &ts); err != nil || ts <= 0 {
		return 0, fmt.Errorf("%w: time %q (want unix seconds or YYYY-MM-DD)", domain.ErrInvalidInput, s)
	}
	return ts, nil
}

// rangeFlags adds the shared -start/-end flags; defaults cover the last
// seven days.
func rangeFlags(fs *flag.FlagSet) (start, end *string) {
	now := time.Now().UTC()
	start = fs.String("start", now.AddDate(0, 0, -7).Format("2006-01-02"), "range start (unix seconds or YYYY-MM-DD)")
	end = fs.String("end", fmt.Sprintf("%d", now.Unix()), "range end (unix seconds or YYYY-MM-DD)")
	return start, end
}

func parseRange(start, end string) (int64, int64, error) {
	startTs, err := parseWhen(start)
	if err != nil {
		return 0, 0, err
	}
	endTs, err := parseWhen(end)
	if err != nil {
		return 0, 0, err
	}
	if endTs < startTs {
		return 0, 0, fmt.Errorf("%w: start %d after end %d", domain.ErrInvalidInput, startTs, endTs)
	}
	return startTs, endTs, nil
}

func (a *App) cmdMarkets(ctx context.Context, deps *Dependencies, args []string) error {
	fs := flag.NewFlagSet("markets", flag.ContinueOnError)
	active := fs.Bool("active", true, "only active markets")
	closed := fs.Bool("closed", false, "only closed markets")
	limit := fs.Int("limit", 50, "maximum markets to list (0 for all)")
	format := fs.String("format", "table", "output format: table, csv, json")
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	markets, err := deps.Markets.ListMarkets(ctx, service.MarketQuery{
		Active: active,
		Closed: closed,
	}, *limit)
	if err != nil {
		return err
	}

	return withOutput(*out, func(w *outputWriter) error {
		return renderMarkets(w, *format, markets)
	})
}

func (a *App) cmdPrices(ctx context.Context, deps *Dependencies, args []string) error {
	fs := flag.NewFlagSet("prices", flag.ContinueOnError)
	token := fs.String("token", "", "outcome token ID (required)")
	start, end := rangeFlags(fs)
	format := fs.String("format", "table", "output format: table, csv, json")
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token == "" {
		return fmt.Errorf("%w: -token is required", domain.ErrInvalidInput)
	}

	startTs, endTs, err := parseRange(*start, *end)
	if err != nil {
		return err
	}

	points, err := deps.History.GetRawPrices(ctx, *token, startTs, endTs)
	if err != nil {
		return err
	}

	return withOutput(*out, func(w *outputWriter) error {
		return renderPoints(w, *format, points)
	})
}

func (a *App) cmdOHLCV(ctx context.Context, deps *Dependencies, args []string) error {
	fs := flag.NewFlagSet("ohlcv", flag.ContinueOnError)
	token := fs.String("token", "", "outcome token ID (required)")
	start, end := rangeFlags(fs)
	interval := fs.String("interval", "1m", "bar interval: 1m, 5m, 15m, 1h, 6h, 1d")
	fill := fs.Bool("fill", false, "forward-fill gaps with flat zero-volume bars")
	format := fs.String("format", "table", "output format: table, csv, json")
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token == "" {
		return fmt.Errorf("%w: -token is required", domain.ErrInvalidInput)
	}

	iv, err := domain.ParseInterval(*interval)
	if err != nil {
		return err
	}
	startTs, endTs, err := parseRange(*start, *end)
	if err != nil {
		return err
	}

	bars, err := deps.History.GetOHLCV(ctx, *token, startTs, endTs, iv)
	if err != nil {
		return err
	}
	if *fill {
		bars = synth.ForwardFill(bars, iv)
	}

	return withOutput(*out, func(w *outputWriter) error {
		return renderBars(w, *format, bars)
	})
}

func (a *App) cmdOrderbook(ctx context.Context, deps *Dependencies, args []string) error {
	fs := flag.NewFlagSet("orderbook", flag.ContinueOnError)
	token := fs.String("token", "", "outcome token ID (required)")
	at := fs.String("at", "", "target timestamp (unix seconds or YYYY-MM-DD, default now)")
	lookback := fs.Int("lookback", 1, "days of trades to anchor the book on")
	format := fs.String("format", "table", "output format: table, csv, json")
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token == "" {
		return fmt.Errorf("%w: -token is required", domain.ErrInvalidInput)
	}

	target := time.Now().UTC().Unix()
	if *at != "" {
		var err error
		target, err = parseWhen(*at)
		if err != nil {
			return err
		}
	}

	book, err := deps.History.GetSyntheticOrderbook(ctx, *token, target, *lookback)
	if err != nil {
		return err
	}

	return withOutput(*out, func(w *outputWriter) error {
		return renderBook(w, *format, book)
	})
}

func (a *App) cmdFetch(ctx context.Context, deps *Dependencies, args []string) error {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)
	tokens := fs.String("tokens", "", "comma-separated outcome token IDs")
	market := fs.String("market", "", "market ID; fetches both of its outcome tokens")
	start, end := rangeFlags(fs)
	archive := fs.Bool("archive", false, "archive cached bars to object storage after fetching")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var tokenIDs []string
	for _, t := range strings.Split(*tokens, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tokenIDs = append(tokenIDs, t)
		}
	}
	if *market != "" {
		m, err := deps.Markets.GetMarket(ctx, *market)
		if err != nil {
			return err
		}
		for _, id := range m.TokenIDs {
			if id != "" {
				tokenIDs = append(tokenIDs, id)
			}
		}
	}
	if len(tokenIDs) == 0 {
		return fmt.Errorf("%w: -tokens or -market is required", domain.ErrInvalidInput)
	}

	startTs, endTs, err := parseRange(*start, *end)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for _, tokenID := range tokenIDs {
		tokenID := tokenID
		g.Go(func() error {
			bars, err := deps.History.FetchAndCache(gctx, tokenID, startTs, endTs)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", tokenID, err)
			}
			fmt.Printf("%s: %d bars cached\n", tokenID, len(bars))

			if *archive {
				key, err := deps.History.ArchiveCached(gctx, tokenID)
				if err != nil {
					return fmt.Errorf("archive %s: %w", tokenID, err)
				}
				fmt.Printf("%s: archived to %s\n", tokenID, key)
			}
			return nil
		})
	}
	return g.Wait()
}

func (a *App) cmdWatch(ctx context.Context, deps *Dependencies, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	tokens := fs.String("tokens", "", "comma-separated outcome token IDs (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var tokenIDs []string
	for _, t := range strings.Split(*tokens, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tokenIDs = append(tokenIDs, t)
		}
	}
	if len(tokenIDs) == 0 {
		return fmt.Errorf("%w: -tokens is required", domain.ErrInvalidInput)
	}

	opts := []feed.WatcherOption{
		feed.WithBookHandler(func(_ context.Context, book domain.Orderbook) {
			fmt.Printf("book %s bid=%.4f ask=%.4f mid=%.4f levels=%d/%d\n",
				book.TokenID, book.BestBid(), book.BestAsk(), book.Mid(),
				len(book.Bids), len(book.Asks))
		}),
		feed.WithTradeHandler(func(_ context.Context, trade domain.Trade) {
			fmt.Printf("trade %s %s %.4f x %.2f\n",
				trade.TokenID, trade.Side, trade.Price, trade.Size)
		}),
	}
	if deps.BookCache != nil {
		opts = append(opts, feed.WithBookCache(deps.BookCache, time.Hour))
	}
	if deps.PriceCache != nil {
		opts = append(opts, feed.WithPriceCache(deps.PriceCache))
	}

	a.logger.InfoContext(ctx, "watching live feed",
		slog.Int("tokens", len(tokenIDs)),
		slog.String("ws_host", deps.WsHost),
	)
	return feed.NewWatcher(deps.WsHost, tokenIDs, a.logger, opts...).Run(ctx)
}

// Package app provides the command-line surface of pmdata. It wires the
// fetch clients, caches, stores, and the synthesis core, then dispatches
// to the requested subcommand.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/pmdata/internal/config"
)

const usage = `pmdata - Polymarket historical data tool

Usage:
  pmdata [-config path] <command> [flags]

Commands:
  markets    list markets from the Gamma API
  prices     fetch raw price history for a token
  ohlcv      aggregate price history into OHLCV bars
  orderbook  reconstruct a synthetic orderbook at a timestamp
  fetch      fetch, aggregate, and cache bars for one or more tokens
  watch      stream live books and trades over WebSocket

Run "pmdata <command> -h" for command flags.`

// App is the root application object. It owns the configuration, logger,
// and a list of cleanup functions run in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires dependencies and executes the subcommand named by args[0].
// On return it leaves registered cleanup functions for Close.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Println(usage)
		return fmt.Errorf("app: no command given")
	}

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "markets":
		return a.cmdMarkets(ctx, deps, rest)
	case "prices":
		return a.cmdPrices(ctx, deps, rest)
	case "ohlcv":
		return a.cmdOHLCV(ctx, deps, rest)
	case "orderbook":
		return a.cmdOrderbook(ctx, deps, rest)
	case "fetch":
		return a.cmdFetch(ctx, deps, rest)
	case "watch":
		return a.cmdWatch(ctx, deps, rest)
	case "help", "-h", "--help":
		fmt.Println(usage)
		return nil
	default:
		fmt.Println(usage)
		return fmt.Errorf("app: unknown command %q", cmd)
	}
}

// Close tears down all resources in reverse registration order. Safe to
// call multiple times.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

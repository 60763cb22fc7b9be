package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/zappabad/stockbroker/internal/auth"
	"github.com/zappabad/stockbroker/internal/config"
	"github.com/zappabad/stockbroker/internal/game"
	"github.com/zappabad/stockbroker/internal/quote"
	"github.com/zappabad/stockbroker/internal/store"
	"github.com/zappabad/stockbroker/internal/store/local"
	"github.com/zappabad/stockbroker/internal/store/memstore"
	"github.com/zappabad/stockbroker/internal/store/pgstore"
	"github.com/zappabad/stockbroker/internal/store/sqlitestore"
)

// newLogger builds a text logger at the configured level.
func newLogger(w io.Writer) (*slog.Logger, error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// openRemote opens the configured document store. It returns nil for the
// "none" driver.
func openRemote(ctx context.Context, logger *slog.Logger) (store.DocumentStore, error) {
	switch cfg.Remote.Driver {
	case config.DriverNone:
		return nil, nil
	case config.DriverMemory:
		return memstore.New(), nil
	case config.DriverSQLite:
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		return sqlitestore.Open(ctx, sqlitestore.Config{
			Path:         cfg.Remote.SQLite.Path,
			PollInterval: cfg.Remote.SQLite.PollInterval,
		}, logger)
	case config.DriverPostgres:
		return pgstore.Open(ctx, pgstore.Config{
			DSN:      cfg.Remote.Postgres.DSN,
			MinConns: int(cfg.Remote.Postgres.MinConns),
			MaxConns: int(cfg.Remote.Postgres.MaxConns),
		}, logger)
	default:
		return nil, fmt.Errorf("unknown remote driver %q", cfg.Remote.Driver)
	}
}

// newQuoteSource returns nil when external quotes are disabled.
func newQuoteSource(logger *slog.Logger) *quote.Source {
	if !cfg.Quote.Enabled || cfg.Quote.APIKey == "" {
		return nil
	}
	client := quote.NewClient(cfg.Quote.APIKey,
		quote.WithBaseURL(cfg.Quote.BaseURL),
		quote.WithHTTPClient(&http.Client{Timeout: cfg.Quote.Timeout}),
	)
	return quote.NewSource(client, quote.NewLimiter(cfg.Quote.CallsPerWindow, cfg.Quote.Window), logger)
}

// app bundles a game with the resources it was built from.
type app struct {
	game   *game.Game
	remote store.DocumentStore
}

func (a *app) Close() {
	a.game.Close()
	if a.remote != nil {
		if err := a.remote.Close(); err != nil {
			slog.Warn("close remote store", "err", err)
		}
	}
}

// newApp wires the game from cfg. The caller starts and closes it.
func newApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	repo, err := local.NewFileStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open local storage: %w", err)
	}

	remote, err := openRemote(ctx, logger)
	if err != nil {
		return nil, fmt.Errorf("open remote store: %w", err)
	}

	deps := game.Deps{
		Local:  repo,
		Remote: remote,
		Auth:   auth.NewLocalProvider(!cfg.Auth.Disabled, cfg.Auth.AllowedDomains),
		Logger: logger,
	}
	// A nil *quote.Source must not become a non-nil interface.
	if src := newQuoteSource(logger); src != nil {
		deps.Quotes = src
	}

	g, err := game.New(game.ConfigFrom(cfg), deps)
	if err != nil {
		if remote != nil {
			remote.Close()
		}
		return nil, err
	}
	return &app{game: g, remote: remote}, nil
}

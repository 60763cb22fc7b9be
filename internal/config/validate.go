package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks that values are usable.
func (c *Config) Validate() error {
	if c.Game.StartingCash <= 0 {
		return errors.New("game.starting_cash must be > 0")
	}
	if c.Game.MaxDays < 1 {
		return errors.New("game.max_days must be >= 1")
	}
	if c.Game.PriceInterval <= 0 || c.Game.NewsInterval <= 0 || c.Game.DayInterval <= 0 {
		return errors.New("game intervals must be positive")
	}
	if c.Game.HistorySize < 1 {
		return errors.New("game.history_size must be >= 1")
	}
	if c.Game.VolatilityPct <= 0 || c.Game.VolatilityPct >= 100 {
		return fmt.Errorf("game.volatility_pct must be between 0 and 100, got %v", c.Game.VolatilityPct)
	}
	if c.Game.MinPrice <= 0 {
		return errors.New("game.min_price must be > 0")
	}

	if c.Quote.Enabled {
		if c.Quote.APIKey == "" {
			return errors.New("quote.api_key is required when quote.enabled is set")
		}
		if c.Quote.CallsPerWindow < 1 {
			return errors.New("quote.calls_per_window must be >= 1")
		}
	}

	if c.Storage.DataDir == "" {
		return errors.New("storage.data_dir is required")
	}

	switch c.Remote.Driver {
	case DriverNone, DriverMemory:
	case DriverSQLite:
		if c.Remote.SQLite.Path == "" {
			return errors.New("remote.sqlite.path is required")
		}
	case DriverPostgres:
		if c.Remote.Postgres.DSN == "" {
			return errors.New("remote.postgres.dsn is required")
		}
		if c.Remote.Postgres.MinConns > c.Remote.Postgres.MaxConns {
			return fmt.Errorf("remote.postgres.min_conns (%d) cannot exceed max_conns (%d)",
				c.Remote.Postgres.MinConns, c.Remote.Postgres.MaxConns)
		}
	default:
		return fmt.Errorf("remote.driver %q is not one of none, memory, sqlite, postgres", c.Remote.Driver)
	}

	if c.Leaderboard.Size < 1 {
		return errors.New("leaderboard.size must be >= 1")
	}
	if !strings.HasPrefix(c.Leaderboard.Path, "/") {
		return fmt.Errorf("leaderboard.path must start with /, got %q", c.Leaderboard.Path)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

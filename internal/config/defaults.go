package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default values for optional configuration fields.
const (
	DefaultStartingCash    = 10000
	DefaultMaxDays         = 30
	DefaultPriceInterval   = 5 * time.Second
	DefaultNewsInterval    = 10 * time.Second
	DefaultDayInterval     = 2 * time.Hour
	DefaultHistorySize     = 10
	DefaultVolatilityPct   = 5
	DefaultMinPrice        = 0.01
	DefaultNewsDisplay     = 3 * time.Second
	DefaultAlertDuration   = 3 * time.Second
	DefaultQuoteBaseURL    = "https://www.alphavantage.co/query"
	DefaultCallsPerWindow  = 5
	DefaultQuoteWindow     = 60 * time.Second
	DefaultQuoteTimeout    = 10 * time.Second
	DefaultSQLiteFile      = "remote.db"
	DefaultPollInterval    = time.Second
	DefaultMinConns        = 1
	DefaultMaxConns        = 4
	DefaultBoardSize       = 10
	DefaultBoardAddr       = ":8080"
	DefaultBoardPath       = "/ws/leaderboard"
	DefaultPingInterval    = 30 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFile         = "stockbroker.log"
	DefaultConfigFileName  = "stockbroker.yaml"
	defaultDataDirFallback = ".stockbroker"
)

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// DefaultDataDir is the per-user data directory.
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "stockbroker")
	}
	return defaultDataDirFallback
}

func (c *Config) applyDefaults() {
	// Game defaults
	if c.Game.StartingCash == 0 {
		c.Game.StartingCash = DefaultStartingCash
	}
	if c.Game.MaxDays == 0 {
		c.Game.MaxDays = DefaultMaxDays
	}
	if c.Game.PriceInterval == 0 {
		c.Game.PriceInterval = DefaultPriceInterval
	}
	if c.Game.NewsInterval == 0 {
		c.Game.NewsInterval = DefaultNewsInterval
	}
	if c.Game.DayInterval == 0 {
		c.Game.DayInterval = DefaultDayInterval
	}
	if c.Game.HistorySize == 0 {
		c.Game.HistorySize = DefaultHistorySize
	}
	if c.Game.VolatilityPct == 0 {
		c.Game.VolatilityPct = DefaultVolatilityPct
	}
	if c.Game.MinPrice == 0 {
		c.Game.MinPrice = DefaultMinPrice
	}
	if c.Game.NewsDisplay == 0 {
		c.Game.NewsDisplay = DefaultNewsDisplay
	}
	if c.Game.AlertDuration == 0 {
		c.Game.AlertDuration = DefaultAlertDuration
	}

	// Quote defaults
	if c.Quote.BaseURL == "" {
		c.Quote.BaseURL = DefaultQuoteBaseURL
	}
	if c.Quote.CallsPerWindow == 0 {
		c.Quote.CallsPerWindow = DefaultCallsPerWindow
	}
	if c.Quote.Window == 0 {
		c.Quote.Window = DefaultQuoteWindow
	}
	if c.Quote.Timeout == 0 {
		c.Quote.Timeout = DefaultQuoteTimeout
	}

	if c.Storage.DataDir == "" {
		c.Storage.DataDir = DefaultDataDir()
	}

	// Remote defaults
	if c.Remote.Driver == "" {
		c.Remote.Driver = DriverNone
	}
	if c.Remote.SQLite.Path == "" {
		c.Remote.SQLite.Path = filepath.Join(c.Storage.DataDir, DefaultSQLiteFile)
	}
	if c.Remote.SQLite.PollInterval == 0 {
		c.Remote.SQLite.PollInterval = DefaultPollInterval
	}
	if c.Remote.Postgres.MinConns == 0 {
		c.Remote.Postgres.MinConns = DefaultMinConns
	}
	if c.Remote.Postgres.MaxConns == 0 {
		c.Remote.Postgres.MaxConns = DefaultMaxConns
	}

	// Leaderboard defaults
	if c.Leaderboard.Size == 0 {
		c.Leaderboard.Size = DefaultBoardSize
	}
	if c.Leaderboard.Addr == "" {
		c.Leaderboard.Addr = DefaultBoardAddr
	}
	if c.Leaderboard.Path == "" {
		c.Leaderboard.Path = DefaultBoardPath
	}
	if c.Leaderboard.PingInterval == 0 {
		c.Leaderboard.PingInterval = DefaultPingInterval
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(c.Storage.DataDir, DefaultLogFile)
	}
}

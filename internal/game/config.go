package game

import (
	"time"

	brokerservice "github.com/zappabad/stockbroker/internal/broker/service"
	"github.com/zappabad/stockbroker/internal/config"
	"github.com/zappabad/stockbroker/internal/leaderboard"
	"github.com/zappabad/stockbroker/internal/market"
	marketservice "github.com/zappabad/stockbroker/internal/market/service"
	newsservice "github.com/zappabad/stockbroker/internal/news/service"
	"github.com/zappabad/stockbroker/internal/session"
	"github.com/zappabad/stockbroker/internal/syncer"
)

// Config holds configuration for the game.
type Config struct {
	// Instruments is the list of companies traded in the market.
	Instruments []market.Instrument
	// MaxDays is the length of a session.
	MaxDays int
	// PriceInterval is how often prices move.
	PriceInterval time.Duration
	// NewsInterval is how often a news event fires.
	NewsInterval time.Duration
	// DayInterval is how long one trading day lasts.
	DayInterval time.Duration
	// AlertDuration is how long a transient alert stays on screen.
	AlertDuration time.Duration
	// MarketConfig is the configuration for the market service.
	MarketConfig marketservice.Config
	// NewsConfig is the configuration for the news service.
	NewsConfig newsservice.Config
	// BrokerConfig is the configuration for the broker service.
	BrokerConfig brokerservice.Config
	// SyncerConfig is the configuration for persistence sync. Its starting
	// cash always follows BrokerConfig.
	SyncerConfig syncer.Config
	// LeaderboardConfig is the configuration for the leaderboard service.
	LeaderboardConfig leaderboard.Config
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Instruments:       market.DefaultInstruments(),
		MaxDays:           session.DefaultMaxDays,
		PriceInterval:     5 * time.Second,
		NewsInterval:      10 * time.Second,
		DayInterval:       2 * time.Hour,
		AlertDuration:     3 * time.Second,
		MarketConfig:      marketservice.DefaultConfig(),
		NewsConfig:        newsservice.DefaultConfig(),
		BrokerConfig:      brokerservice.DefaultConfig(),
		SyncerConfig:      syncer.DefaultConfig(),
		LeaderboardConfig: leaderboard.DefaultConfig(),
	}
}

// ConfigFrom maps the loaded file configuration onto a game Config.
func ConfigFrom(c *config.Config) Config {
	cfg := DefaultConfig()

	cfg.MaxDays = c.Game.MaxDays
	cfg.PriceInterval = c.Game.PriceInterval
	cfg.NewsInterval = c.Game.NewsInterval
	cfg.DayInterval = c.Game.DayInterval
	cfg.AlertDuration = c.Game.AlertDuration

	cfg.MarketConfig.HistorySize = c.Game.HistorySize
	cfg.MarketConfig.VolatilityPct = c.Game.VolatilityPct
	cfg.MarketConfig.MinPrice = c.Game.MinPrice
	cfg.MarketConfig.QuoteTimeout = c.Quote.Timeout
	cfg.MarketConfig.RandSeed = c.Game.Seed

	cfg.NewsConfig.DisplayDuration = c.Game.NewsDisplay
	if c.Game.Seed != 0 {
		cfg.NewsConfig.RandSeed = c.Game.Seed + 1
	}

	cfg.BrokerConfig.StartingCash = c.Game.StartingCash
	cfg.SyncerConfig.StartingCash = c.Game.StartingCash
	cfg.LeaderboardConfig.Size = c.Leaderboard.Size

	return cfg
}

// Package config loads the stockbroker YAML configuration.
package config

import (
	"time"
)

// Config is the root of stockbroker.yaml.
type Config struct {
	Game        GameConfig        `yaml:"game"`
	Quote       QuoteConfig       `yaml:"quote"`
	Storage     StorageConfig     `yaml:"storage"`
	Remote      RemoteConfig      `yaml:"remote"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Auth        AuthConfig        `yaml:"auth"`
	Log         LogConfig         `yaml:"log"`
}

// GameConfig drives the simulation.
type GameConfig struct {
	StartingCash  float64       `yaml:"starting_cash"`
	MaxDays       int           `yaml:"max_days"`
	PriceInterval time.Duration `yaml:"price_interval"`
	NewsInterval  time.Duration `yaml:"news_interval"`
	DayInterval   time.Duration `yaml:"day_interval"`
	HistorySize   int           `yaml:"history_size"`
	VolatilityPct float64       `yaml:"volatility_pct"`
	MinPrice      float64       `yaml:"min_price"`
	NewsDisplay   time.Duration `yaml:"news_display"`
	AlertDuration time.Duration `yaml:"alert_duration"`
	Seed          uint64        `yaml:"seed"`
}

// QuoteConfig configures the external quote provider.
type QuoteConfig struct {
	Enabled        bool          `yaml:"enabled"`
	APIKey         string        `yaml:"api_key"`
	BaseURL        string        `yaml:"base_url"`
	CallsPerWindow int           `yaml:"calls_per_window"`
	Window         time.Duration `yaml:"window"`
	Timeout        time.Duration `yaml:"timeout"`
}

// StorageConfig locates device-local state.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// Remote store drivers.
const (
	DriverNone     = "none"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// RemoteConfig selects the document store holding user records and the leaderboard.
type RemoteConfig struct {
	Driver   string         `yaml:"driver"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type SQLiteConfig struct {
	Path         string        `yaml:"path"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MinConns int32  `yaml:"min_conns"`
	MaxConns int32  `yaml:"max_conns"`
}

// LeaderboardConfig sizes the board and configures the websocket feed.
type LeaderboardConfig struct {
	Size         int           `yaml:"size"`
	Addr         string        `yaml:"addr"`
	Path         string        `yaml:"path"`
	PingInterval time.Duration `yaml:"ping_interval"`
}

// AuthConfig controls local sign-in. An empty AllowedDomains accepts any address.
type AuthConfig struct {
	Disabled       bool     `yaml:"disabled"`
	AllowedDomains []string `yaml:"allowed_domains"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

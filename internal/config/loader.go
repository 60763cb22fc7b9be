package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvDataDir         = "STOCKBROKER_DATA_DIR"
	EnvRemoteDriver    = "STOCKBROKER_REMOTE_DRIVER"
	EnvSQLitePath      = "STOCKBROKER_SQLITE_PATH"
	EnvPostgresDSN     = "STOCKBROKER_PG_DSN"
	EnvLeaderboardAddr = "STOCKBROKER_LEADERBOARD_ADDR"
	EnvLogLevel        = "STOCKBROKER_LOG_LEVEL"
	EnvSeed            = "STOCKBROKER_SEED"
	EnvQuoteAPIKey     = "ALPHAVANTAGE_API_KEY"
)

// LoadDotEnv loads variables from the given .env files. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads a YAML config file and expands environment variables. A missing
// file yields an empty Config.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > 0 {
		// Expand ${VAR} environment variables
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	return &cfg, nil
}

// LoadWithDefaults loads config, applies env overrides and default values.
func LoadWithDefaults(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies overrides and defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv(EnvRemoteDriver); v != "" {
		c.Remote.Driver = strings.ToLower(v)
	}
	if v := os.Getenv(EnvSQLitePath); v != "" {
		c.Remote.SQLite.Path = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.Remote.Postgres.DSN = v
	}
	if v := os.Getenv(EnvLeaderboardAddr); v != "" {
		c.Leaderboard.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvSeed); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}
		c.Game.Seed = seed
	}
	if v := strings.TrimSpace(os.Getenv(EnvQuoteAPIKey)); v != "" {
		c.Quote.APIKey = v
		c.Quote.Enabled = true
	}
	return nil
}

// Write marshals cfg to path, refusing to overwrite unless force is set.
func Write(path string, cfg *Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

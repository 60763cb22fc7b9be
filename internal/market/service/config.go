package service

import "time"

// Config holds configuration for the market service.
type Config struct {
	// HistorySize is the number of trailing prices kept per instrument.
	HistorySize int
	// VolatilityPct bounds the random walk: each tick moves by a percentage in [-VolatilityPct, +VolatilityPct).
	VolatilityPct float64
	// MinPrice is the floor every computed price is clamped to.
	MinPrice float64
	// SeedMin and SeedMax bound the random seed price of each instrument.
	SeedMin float64
	SeedMax float64
	// QuoteTimeout bounds a single external quote round.
	QuoteTimeout time.Duration
	// RandSeed makes price generation deterministic when non-zero.
	RandSeed uint64
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		HistorySize:   10,
		VolatilityPct: 5,
		MinPrice:      0.01,
		SeedMin:       100,
		SeedMax:       500,
		QuoteTimeout:  10 * time.Second,
	}
}

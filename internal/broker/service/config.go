package service

// Config holds configuration for the broker service.
type Config struct {
	// StartingCash is the balance of a fresh session.
	StartingCash float64
	// TradeCapacity is the maximum number of trades to keep.
	TradeCapacity int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		StartingCash:  10000,
		TradeCapacity: 100,
	}
}

package service

import "time"

// Config holds configuration for the news service.
type Config struct {
	// LogSize is how many past items the news log keeps.
	LogSize int
	// EventBuffer sizes the queue between Publish and the dispatcher.
	EventBuffer int
	// SubscriberBuffer sizes the channel returned by Events.
	SubscriberBuffer int
	// BlockOnSlowSubscriber makes the dispatcher wait for Events readers
	// instead of dropping items.
	BlockOnSlowSubscriber bool
	// DisplayDuration is how long a notice stays on display.
	DisplayDuration time.Duration
	// RandSeed makes event selection deterministic when non-zero.
	RandSeed uint64
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		LogSize:          50,
		EventBuffer:      64,
		SubscriberBuffer: 64,
		DisplayDuration:  3 * time.Second,
	}
}

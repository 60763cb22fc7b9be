package quote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterBudgetAndReset(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	l := NewLimiter(5, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		assert.True(t, l.Allow(), "call %d should be allowed", i+1)
	}
	assert.False(t, l.Allow())
	assert.Equal(t, 0, l.Remaining())

	now = now.Add(59 * time.Second)
	assert.False(t, l.Allow(), "window has not elapsed")

	now = now.Add(time.Second)
	assert.Equal(t, 5, l.Remaining())
	assert.True(t, l.Allow())
	assert.Equal(t, 4, l.Remaining())
}

func TestLimiterExhaust(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	l := NewLimiter(5, time.Minute)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow())
	l.Exhaust()
	assert.False(t, l.Allow())

	now = now.Add(time.Minute)
	assert.True(t, l.Allow())
}

func TestLimiterDefaults(t *testing.T) {
	l := NewLimiter(0, 0)
	assert.Equal(t, DefaultCallsPerWindow, l.budget)
	assert.Equal(t, DefaultWindow, l.window)
}

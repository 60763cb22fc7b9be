package quote

import (
	"sync"
	"time"
)

// Limiter enforces a fixed call budget per window. The window resets lazily on
// the first call after it elapses.
type Limiter struct {
	mu          sync.Mutex
	budget      int
	window      time.Duration
	used        int
	windowStart time.Time
	now         func() time.Time
}

// NewLimiter creates a Limiter allowing budget calls per window.
func NewLimiter(budget int, window time.Duration) *Limiter {
	if budget <= 0 {
		budget = DefaultCallsPerWindow
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		budget: budget,
		window: window,
		now:    time.Now,
	}
}

func (l *Limiter) rollLocked() {
	now := l.now()
	if l.windowStart.IsZero() || now.Sub(l.windowStart) >= l.window {
		l.windowStart = now
		l.used = 0
	}
}

// Allow consumes one call from the budget. It reports false when the budget
// for the current window is exhausted.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollLocked()
	if l.used >= l.budget {
		return false
	}
	l.used++
	return true
}

// Remaining returns the calls left in the current window.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollLocked()
	return l.budget - l.used
}

// Exhaust spends the rest of the current window. Used when the provider
// reports its own quota is gone.
func (l *Limiter) Exhaust() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollLocked()
	l.used = l.budget
}

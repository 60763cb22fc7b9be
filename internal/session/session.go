package session

import "sync"

// DefaultMaxDays is the length of a session.
const DefaultMaxDays = 30

// State is the session's position in its play-through.
// Complete implies !Active.
type State struct {
	Day      int
	Active   bool
	Complete bool
}

// Initial returns the state of a fresh session.
func Initial() State {
	return State{Day: 1, Active: true}
}

// Clock advances the day counter and ends the session after the last day.
type Clock struct {
	mu      sync.RWMutex
	maxDays int
	state   State
}

// NewClock creates a Clock at day 1.
func NewClock(maxDays int) *Clock {
	if maxDays <= 0 {
		maxDays = DefaultMaxDays
	}
	return &Clock{maxDays: maxDays, state: Initial()}
}

// Advance moves to the next day. Past the last day the session completes:
// Complete is set, Active cleared, and Day stays at the last day. Once
// complete, or while inactive, Advance does nothing.
func (c *Clock) Advance() (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.Active || c.state.Complete {
		return c.state, false
	}
	if c.state.Day+1 > c.maxDays {
		c.state.Day = c.maxDays
		c.state.Complete = true
		c.state.Active = false
		return c.state, true
	}
	c.state.Day++
	return c.state, true
}

// State returns the current state.
func (c *Clock) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Active reports whether trading and day advancement are allowed.
func (c *Clock) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Active
}

// MaxDays returns the session length.
func (c *Clock) MaxDays() int {
	return c.maxDays
}

// Reset starts a new session at day 1.
func (c *Clock) Reset() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Initial()
	return c.state
}

// Restore loads a persisted state, clamping the day into range and
// enforcing that a complete session is inactive.
func (c *Clock) Restore(s State) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.Day < 1 {
		s.Day = 1
	}
	if s.Day > c.maxDays {
		s.Day = c.maxDays
	}
	if s.Complete {
		s.Active = false
	}
	c.state = s
	return c.state
}

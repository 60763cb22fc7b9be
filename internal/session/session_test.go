package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClockAdvance(t *testing.T) {
	c := NewClock(30)
	assert.Equal(t, Initial(), c.State())

	st, changed := c.Advance()
	assert.True(t, changed)
	assert.Equal(t, 2, st.Day)
	assert.True(t, st.Active)
}

func TestClockCompletesAfterLastDay(t *testing.T) {
	c := NewClock(30)
	for i := 0; i < 29; i++ {
		c.Advance()
	}
	assert.Equal(t, State{Day: 30, Active: true}, c.State())

	st, changed := c.Advance()
	assert.True(t, changed)
	assert.Equal(t, State{Day: 30, Active: false, Complete: true}, st)

	// Terminal
	for i := 0; i < 5; i++ {
		st, changed = c.Advance()
		assert.False(t, changed)
	}
	assert.Equal(t, 30, st.Day)
	assert.False(t, c.Active())
}

func TestClockDayNeverExceedsMax(t *testing.T) {
	c := NewClock(3)
	for i := 0; i < 100; i++ {
		st, _ := c.Advance()
		assert.LessOrEqual(t, st.Day, 3)
		if st.Complete {
			assert.False(t, st.Active)
		}
	}
}

func TestClockReset(t *testing.T) {
	c := NewClock(2)
	c.Advance()
	c.Advance()
	assert.True(t, c.State().Complete)

	st := c.Reset()
	assert.Equal(t, State{Day: 1, Active: true}, st)

	_, changed := c.Advance()
	assert.True(t, changed)
}

func TestClockRestoreNormalizes(t *testing.T) {
	c := NewClock(30)

	st := c.Restore(State{Day: 45, Active: true, Complete: true})
	assert.Equal(t, State{Day: 30, Active: false, Complete: true}, st)

	st = c.Restore(State{Day: 0, Active: true})
	assert.Equal(t, 1, st.Day)

	// A paused, incomplete session stays paused
	st = c.Restore(State{Day: 5})
	assert.False(t, st.Active)
	_, changed := c.Advance()
	assert.False(t, changed)
}

func TestClockDefaultMaxDays(t *testing.T) {
	assert.Equal(t, DefaultMaxDays, NewClock(0).MaxDays())
}

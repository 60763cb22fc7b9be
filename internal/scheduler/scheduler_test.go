package scheduler

import (
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryRunsJob(t *testing.T) {
	s := New(nil)
	var n atomic.Int32
	require.NoError(t, s.Every("tick", time.Second, func() { n.Add(1) }))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return n.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestEveryRejectsBadInterval(t *testing.T) {
	s := New(nil)
	assert.ErrorIs(t, s.Every("x", 0, func() {}), ErrInvalidInterval)
	assert.Empty(t, s.Jobs())
}

func TestReplaceAndRemove(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Every("a", time.Minute, func() {}))
	require.NoError(t, s.Every("a", time.Hour, func() {}))
	require.NoError(t, s.Every("b", time.Hour, func() {}))

	jobs := s.Jobs()
	slices.Sort(jobs)
	assert.Equal(t, []string{"a", "b"}, jobs)
	assert.Len(t, s.cron.Entries(), 2)

	s.Remove("a")
	s.Remove("missing")
	assert.Equal(t, []string{"b"}, s.Jobs())

	s.RemoveAll()
	assert.Empty(t, s.Jobs())
	assert.Empty(t, s.cron.Entries())
}

func TestRemovedJobStopsRunning(t *testing.T) {
	s := New(nil)
	var n atomic.Int32
	require.NoError(t, s.Every("tick", time.Second, func() { n.Add(1) }))
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool { return n.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	s.Remove("tick")
	seen := n.Load()
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, seen, n.Load())
}

func TestStopIdempotent(t *testing.T) {
	s := New(nil)
	s.Stop()
	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}

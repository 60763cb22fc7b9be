package pgstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/stockbroker/internal/market"
	"github.com/zappabad/stockbroker/internal/store"
)

// Set STOCKBROKER_TEST_PG_DSN to run against a real database.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("STOCKBROKER_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("STOCKBROKER_TEST_PG_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := DefaultConfig()
	cfg.DSN = dsn
	s, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{}, nil)
	assert.Error(t, err)
}

func TestUserRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	uid := uuid.NewString()

	_, err := s.GetUser(ctx, uid)
	assert.ErrorIs(t, err, store.ErrNotFound)

	rec := store.UserRecord{
		UID:          uid,
		Username:     "Ada",
		Cash:         9880,
		Portfolio:    map[market.InstrumentID]int{1: 1},
		Day:          2,
		NetWorth:     10000,
		IsGameActive: true,
	}
	require.NoError(t, s.CreateUser(ctx, rec))
	assert.ErrorIs(t, s.CreateUser(ctx, rec), store.ErrExists)

	require.NoError(t, s.UpdateUser(ctx, store.UserRecord{UID: uid, Cash: 10010, Day: 3, IsGameActive: true}))
	got, err := s.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Username)
	assert.Equal(t, 10010.0, got.Cash)
	assert.Empty(t, got.Portfolio)
}

func TestWatchLeaderboardNotifies(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	uid := uuid.NewString()

	updates := make(chan []store.LeaderboardEntry, 16)
	cancel, err := s.WatchLeaderboard(ctx, 1000, func(entries []store.LeaderboardEntry) {
		updates <- entries
	})
	require.NoError(t, err)
	defer cancel()
	<-updates

	require.NoError(t, s.UpsertLeaderboard(ctx, store.LeaderboardEntry{UID: uid, Username: "Zed", NetWorth: 12345}))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case entries := <-updates:
			for _, e := range entries {
				if e.UID == uid {
					assert.Equal(t, 12345.0, e.NetWorth)
					return
				}
			}
		case <-deadline:
			t.Fatal("timed out waiting for notification")
		}
	}
}

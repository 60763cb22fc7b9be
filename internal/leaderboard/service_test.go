package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/stockbroker/internal/auth"
	"github.com/zappabad/stockbroker/internal/store"
	"github.com/zappabad/stockbroker/internal/store/memstore"
)

var (
	ada  = auth.User{UID: "u-ada", DisplayName: "Ada"}
	bob  = auth.User{UID: "u-bob", DisplayName: "Bob"}
	anon = auth.User{UID: "u-anon"}
)

func TestPublishSkipsZeroAndUnchanged(t *testing.T) {
	ctx := context.Background()
	ds := memstore.New()
	svc := NewService(DefaultConfig(), ds, nil)

	wrote, err := svc.Publish(ctx, ada, 0)
	require.NoError(t, err)
	assert.False(t, wrote)

	wrote, err = svc.Publish(ctx, ada, 10250.5)
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = svc.Publish(ctx, ada, 10250.5)
	require.NoError(t, err)
	assert.False(t, wrote)

	svc.Forget(ada.UID)
	wrote, err = svc.Publish(ctx, ada, 10250.5)
	require.NoError(t, err)
	assert.True(t, wrote)

	top, err := ds.TopLeaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Ada", top[0].Username)
	assert.Equal(t, 10250.5, top[0].NetWorth)
}

func TestPublishAnonymous(t *testing.T) {
	ctx := context.Background()
	ds := memstore.New()
	svc := NewService(DefaultConfig(), ds, nil)

	_, err := svc.Publish(ctx, anon, 9000)
	require.NoError(t, err)

	top, _ := ds.TopLeaderboard(ctx, 10)
	require.Len(t, top, 1)
	assert.Equal(t, "Anonymous", top[0].Username)
}

func TestOffline(t *testing.T) {
	svc := NewService(DefaultConfig(), nil, nil)
	assert.False(t, svc.Online())

	_, err := svc.Publish(context.Background(), ada, 1)
	assert.ErrorIs(t, err, ErrOffline)
	assert.ErrorIs(t, svc.Start(context.Background()), ErrOffline)
	assert.True(t, svc.Loading())

	svc.PublishAsync(ada, 1)
	svc.Close()
}

func TestWatchOrdersAndLimits(t *testing.T) {
	ctx := context.Background()
	ds := memstore.New()
	svc := NewService(Config{Size: 2}, ds, nil)
	assert.True(t, svc.Loading())

	require.NoError(t, svc.Start(ctx))
	defer svc.Close()
	assert.False(t, svc.Loading(), "memstore delivers the initial result synchronously")
	assert.Empty(t, svc.Entries())

	_, err := svc.Publish(ctx, ada, 12000)
	require.NoError(t, err)
	_, err = svc.Publish(ctx, bob, 15000)
	require.NoError(t, err)
	_, err = svc.Publish(ctx, anon, 9000)
	require.NoError(t, err)

	entries := svc.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "u-bob", entries[0].UID)
	assert.Equal(t, "u-ada", entries[1].UID)
	assert.Equal(t, 1, svc.Rank(bob.UID))
	assert.Equal(t, 2, svc.Rank(ada.UID))
	assert.Zero(t, svc.Rank(anon.UID))
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	ds := memstore.New()
	svc := NewService(DefaultConfig(), ds, nil)

	updates, cancel := svc.Subscribe()
	require.NoError(t, svc.Start(ctx))
	defer svc.Close()

	select {
	case entries := <-updates:
		assert.Empty(t, entries)
	case <-time.After(time.Second):
		t.Fatal("no initial update")
	}

	svc.PublishAsync(ada, 11000)
	svc.Wait()

	select {
	case entries := <-updates:
		require.Len(t, entries, 1)
		assert.Equal(t, 11000.0, entries[0].NetWorth)
	case <-time.After(time.Second):
		t.Fatal("no update after publish")
	}

	cancel()
	cancel()
	_, ok := <-updates
	assert.False(t, ok)
}

func TestStopKeepsEntries(t *testing.T) {
	ctx := context.Background()
	ds := memstore.New()
	svc := NewService(DefaultConfig(), ds, nil)
	require.NoError(t, svc.Start(ctx))

	_, err := svc.Publish(ctx, ada, 12000)
	require.NoError(t, err)
	svc.Stop()

	require.NoError(t, ds.UpsertLeaderboard(ctx, store.LeaderboardEntry{UID: "late", NetWorth: 99999}))
	entries := svc.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "u-ada", entries[0].UID)
}

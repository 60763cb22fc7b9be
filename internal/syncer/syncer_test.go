package syncer

import (
	"context"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/stockbroker/internal/auth"
	"github.com/zappabad/stockbroker/internal/market"
	"github.com/zappabad/stockbroker/internal/store"
	"github.com/zappabad/stockbroker/internal/store/local"
	"github.com/zappabad/stockbroker/internal/store/memstore"
)

var ada = auth.User{UID: "uid-ada", DisplayName: "Ada", Email: "ada@example.com"}

type applied struct {
	mu     sync.Mutex
	states []store.GameState
}

func (a *applied) fn(s *Syncer) ApplyFunc {
	return func(g store.GameState) {
		a.mu.Lock()
		a.states = append(a.states, g)
		a.mu.Unlock()
		_ = s.Save(g)
	}
}

func (a *applied) all() []store.GameState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]store.GameState(nil), a.states...)
}

func midGame() store.GameState {
	return store.GameState{
		Cash:          9500,
		Portfolio:     map[market.InstrumentID]int{1: 2, 3: 1},
		Day:           7,
		IsGameActive:  true,
		CompanyPrices: map[market.InstrumentID]float64{1: 150, 2: 80, 3: 200, 4: 50, 5: 100},
	}
}

func TestSaveOfflineWritesLocalOnly(t *testing.T) {
	repo := local.NewMemoryStore()
	s := New(DefaultConfig(), repo, nil, nil)

	require.NoError(t, s.Save(midGame()))
	s.Wait()

	got, ok, err := repo.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 7, got.Day)
	assert.False(t, s.Online())
	assert.Zero(t, s.Pushes())
}

func TestSaveWithoutUserSkipsRemote(t *testing.T) {
	remote := memstore.New()
	s := New(DefaultConfig(), local.NewMemoryStore(), remote, nil)

	require.NoError(t, s.Save(midGame()))
	s.Wait()

	_, err := remote.GetUser(context.Background(), ada.UID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAttachSeedsMissingRecord(t *testing.T) {
	ctx := context.Background()
	remote := memstore.New()
	repo := local.NewMemoryStore()
	s := New(DefaultConfig(), repo, remote, nil)
	require.NoError(t, s.Save(midGame()))

	var a applied
	require.NoError(t, s.Attach(ctx, ada, a.fn(s)))
	s.Wait()

	rec, err := remote.GetUser(ctx, ada.UID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", rec.Username)
	assert.Equal(t, 10000.0, rec.Cash)
	assert.Equal(t, 1, rec.Day)
	assert.True(t, rec.IsGameActive)
	assert.Empty(t, rec.Portfolio)
	assert.Equal(t, 10000.0, rec.NetWorth)

	states := a.all()
	require.Len(t, states, 1, "seed applied once, its echo is ignored")
	assert.Equal(t, 1, states[0].Day)
	assert.Equal(t, 150.0, states[0].CompanyPrices[1], "prices survive the seed")

	got, _, _ := repo.Load()
	assert.Equal(t, 10000.0, got.Cash)
}

func TestAttachAppliesExistingRecord(t *testing.T) {
	ctx := context.Background()
	remote := memstore.New()
	rec := store.NewUserRecord(ada.UID, "Ada", midGame())
	require.NoError(t, remote.CreateUser(ctx, rec))

	s := New(DefaultConfig(), local.NewMemoryStore(), remote, nil)
	require.NoError(t, s.Save(store.GameState{
		Cash:          10000,
		Portfolio:     map[market.InstrumentID]int{},
		Day:           1,
		IsGameActive:  true,
		CompanyPrices: map[market.InstrumentID]float64{1: 111},
	}))

	var a applied
	require.NoError(t, s.Attach(ctx, ada, a.fn(s)))
	s.Wait()

	states := a.all()
	require.Len(t, states, 1)
	assert.Equal(t, 9500.0, states[0].Cash)
	assert.Equal(t, 7, states[0].Day)
	assert.Equal(t, 2, states[0].Portfolio[1])
	assert.Equal(t, 111.0, states[0].CompanyPrices[1], "local prices are kept")
	assert.Zero(t, s.Pushes(), "applied state is not echoed back")
}

func TestSavePushesProgressChanges(t *testing.T) {
	ctx := context.Background()
	remote := memstore.New()
	s := New(DefaultConfig(), local.NewMemoryStore(), remote, nil)

	var a applied
	require.NoError(t, s.Attach(ctx, ada, a.fn(s)))
	s.Wait()
	base := s.Pushes()

	g := midGame()
	require.NoError(t, s.Save(g))
	s.Wait()

	rec, err := remote.GetUser(ctx, ada.UID)
	require.NoError(t, err)
	assert.Equal(t, 9500.0, rec.Cash)
	assert.Equal(t, 7, rec.Day)
	// 9500 + 2*150 + 1*200
	assert.Equal(t, 10000.0, rec.NetWorth)
	assert.Equal(t, base+1, s.Pushes())

	// Price-only change: nothing to push
	g.CompanyPrices = map[market.InstrumentID]float64{1: 1}
	require.NoError(t, s.Save(g))
	s.Wait()
	assert.Equal(t, base+1, s.Pushes())
}

func TestRemoteChangeReconciles(t *testing.T) {
	ctx := context.Background()
	remote := memstore.New()
	s := New(DefaultConfig(), local.NewMemoryStore(), remote, nil)

	var a applied
	require.NoError(t, s.Attach(ctx, ada, a.fn(s)))
	s.Wait()

	// Another device finishes the session
	other := store.NewUserRecord(ada.UID, "", store.GameState{
		Cash:         12000,
		Portfolio:    map[market.InstrumentID]int{},
		Day:          30,
		GameComplete: true,
	})
	require.NoError(t, remote.UpdateUser(ctx, other))
	s.Wait()

	states := a.all()
	require.NotEmpty(t, states)
	last := states[len(states)-1]
	assert.Equal(t, 30, last.Day)
	assert.True(t, last.GameComplete)
	assert.False(t, last.IsGameActive)

	rec, _ := remote.GetUser(ctx, ada.UID)
	assert.Equal(t, "Ada", rec.Username, "merge keeps the username")
}

func TestDetachStopsSync(t *testing.T) {
	ctx := context.Background()
	remote := memstore.New()
	s := New(DefaultConfig(), local.NewMemoryStore(), remote, nil)

	var a applied
	require.NoError(t, s.Attach(ctx, ada, a.fn(s)))
	s.Wait()
	s.Detach()

	_, ok := s.User()
	assert.False(t, ok)

	n := len(a.all())
	require.NoError(t, remote.UpdateUser(ctx, store.NewUserRecord(ada.UID, "", midGame())))
	assert.Len(t, a.all(), n)

	pushes := s.Pushes()
	require.NoError(t, s.Save(midGame()))
	s.Wait()
	assert.Equal(t, pushes, s.Pushes())
}

// gatedStore holds every UpdateUser until the test releases it.
type gatedStore struct {
	*memstore.Store
	release chan struct{}
}

func (g *gatedStore) UpdateUser(ctx context.Context, rec store.UserRecord) error {
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.Store.UpdateUser(ctx, rec)
}

// player mimics the game: buys build on the current state, and remote
// reconciles replace it.
type player struct {
	mu    sync.Mutex
	state store.GameState
	s     *Syncer
}

func (p *player) apply(g store.GameState) {
	p.mu.Lock()
	p.state = g
	p.state.Portfolio = maps.Clone(g.Portfolio)
	p.mu.Unlock()
}

func (p *player) buy(t *testing.T, id market.InstrumentID, price float64) {
	t.Helper()
	p.mu.Lock()
	g := p.state
	g.Portfolio = maps.Clone(p.state.Portfolio)
	g.Cash -= price
	g.Portfolio[id]++
	p.state = g
	p.mu.Unlock()
	require.NoError(t, p.s.Save(g))
}

func (p *player) shares(id market.InstrumentID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Portfolio[id]
}

func TestOwnEchoesDoNotRollBackLaterTrades(t *testing.T) {
	ctx := context.Background()
	remote := &gatedStore{Store: memstore.New(), release: make(chan struct{})}
	s := New(Config{Timeout: 5 * time.Second}, local.NewMemoryStore(), remote, nil)
	p := &player{s: s}

	// seeding goes through CreateUser, which is not gated
	require.NoError(t, s.Attach(ctx, ada, p.apply))
	s.Wait()
	base := s.Pushes()
	require.Equal(t, 0, p.shares(1))

	p.buy(t, 1, 100)
	p.buy(t, 1, 100)
	assert.Equal(t, 2, p.shares(1))

	// first write lands and echoes back while the second is still queued
	remote.release <- struct{}{}
	require.Eventually(t, func() bool { return s.Pushes() == base+1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, p.shares(1), "echo of an older write must not roll back")

	p.buy(t, 1, 100)
	close(remote.release)
	s.Wait()

	assert.Equal(t, 3, p.shares(1))
	p.mu.Lock()
	assert.Equal(t, 9700.0, p.state.Cash)
	p.mu.Unlock()

	rec, err := remote.GetUser(ctx, ada.UID)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Portfolio[1])
	assert.Equal(t, 9700.0, rec.Cash)
}

type failingStore struct {
	store.DocumentStore
}

func (failingStore) GetUser(context.Context, string) (store.UserRecord, error) {
	return store.UserRecord{}, context.DeadlineExceeded
}

func (failingStore) WatchUser(_ context.Context, _ string, fn store.UserWatcher) (store.CancelFunc, error) {
	return func() {}, nil
}

func TestRemoteFailureIsNotSurfaced(t *testing.T) {
	repo := local.NewMemoryStore()
	s := New(Config{Timeout: 50 * time.Millisecond}, repo, failingStore{}, nil)
	require.NoError(t, s.Attach(context.Background(), ada, nil))

	require.NoError(t, s.Save(midGame()))
	s.Close()

	assert.Zero(t, s.Pushes())
	assert.Equal(t, 1, repo.Saves())
}

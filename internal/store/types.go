package store

import (
	"cmp"
	"context"
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/zappabad/stockbroker/internal/auth"
	"github.com/zappabad/stockbroker/internal/broker"
	"github.com/zappabad/stockbroker/internal/market"
	"github.com/zappabad/stockbroker/internal/session"
)

var (
	ErrNotFound = errors.New("store: record not found")
	ErrExists   = errors.New("store: record already exists")
	ErrClosed   = errors.New("store: closed")
)

// GameState is the full game snapshot persisted on the device.
type GameState struct {
	Cash          float64                         `json:"cash"`
	Portfolio     map[market.InstrumentID]int     `json:"portfolio"`
	Day           int                             `json:"day"`
	GameComplete  bool                            `json:"gameComplete"`
	IsGameActive  bool                            `json:"isGameActive"`
	CompanyPrices map[market.InstrumentID]float64 `json:"companyPrices"`
}

// InitialState is the snapshot of a fresh session.
func InitialState(startingCash float64) GameState {
	s := session.Initial()
	return GameState{
		Cash:          startingCash,
		Portfolio:     map[market.InstrumentID]int{},
		Day:           s.Day,
		GameComplete:  s.Complete,
		IsGameActive:  s.Active,
		CompanyPrices: map[market.InstrumentID]float64{},
	}
}

// NetWorth is cash plus holdings valued at CompanyPrices.
func (g GameState) NetWorth() float64 {
	return broker.NetWorth(g.Cash, g.Portfolio, g.CompanyPrices)
}

// Account returns the ledger part of the snapshot.
func (g GameState) Account() broker.Account {
	return broker.Account{Cash: g.Cash, Holdings: maps.Clone(g.Portfolio)}
}

// Session returns the clock part of the snapshot.
func (g GameState) Session() session.State {
	return session.State{Day: g.Day, Active: g.IsGameActive, Complete: g.GameComplete}
}

// SameProgress reports whether two snapshots agree on everything mirrored
// to the remote record. Prices are not compared.
func (g GameState) SameProgress(o GameState) bool {
	if g.Cash != o.Cash || g.Day != o.Day || g.GameComplete != o.GameComplete || g.IsGameActive != o.IsGameActive {
		return false
	}
	return sameHoldings(g.Portfolio, o.Portfolio)
}

func sameHoldings(a, b map[market.InstrumentID]int) bool {
	for id, n := range a {
		if n != b[id] {
			return false
		}
	}
	for id, n := range b {
		if n != a[id] {
			return false
		}
	}
	return true
}

// UserRecord is the remote per-user document.
type UserRecord struct {
	UID          string                      `json:"uid"`
	Username     string                      `json:"username"`
	Cash         float64                     `json:"cash"`
	Portfolio    map[market.InstrumentID]int `json:"portfolio"`
	Day          int                         `json:"day"`
	NetWorth     float64                     `json:"netWorth"`
	GameComplete bool                        `json:"gameComplete"`
	IsGameActive bool                        `json:"isGameActive"`
	UpdatedAt    time.Time                   `json:"updatedAt"`
}

// NewUserRecord builds the remote record for a snapshot.
func NewUserRecord(uid, username string, g GameState) UserRecord {
	return UserRecord{
		UID:          uid,
		Username:     username,
		Cash:         g.Cash,
		Portfolio:    maps.Clone(g.Portfolio),
		Day:          g.Day,
		NetWorth:     g.NetWorth(),
		GameComplete: g.GameComplete,
		IsGameActive: g.IsGameActive,
		UpdatedAt:    time.Now().UTC(),
	}
}

// Apply overlays the record's progress onto a local snapshot, keeping its prices.
func (r UserRecord) Apply(g GameState) GameState {
	g.Cash = r.Cash
	g.Portfolio = maps.Clone(r.Portfolio)
	if g.Portfolio == nil {
		g.Portfolio = map[market.InstrumentID]int{}
	}
	g.Day = r.Day
	g.GameComplete = r.GameComplete
	g.IsGameActive = r.IsGameActive
	return g
}

// Clone returns a deep copy.
func (r UserRecord) Clone() UserRecord {
	r.Portfolio = maps.Clone(r.Portfolio)
	return r
}

// LeaderboardEntry is one user's published net worth.
type LeaderboardEntry struct {
	UID       string    `json:"uid"`
	Username  string    `json:"username"`
	NetWorth  float64   `json:"netWorth"`
	Timestamp time.Time `json:"timestamp"`
}

// SortLeaderboard orders entries by net worth descending; ties go to the
// earlier timestamp, then uid.
func SortLeaderboard(entries []LeaderboardEntry) {
	slices.SortFunc(entries, func(a, b LeaderboardEntry) int {
		if c := cmp.Compare(b.NetWorth, a.NetWorth); c != 0 {
			return c
		}
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.UID, b.UID)
	})
}

// Settings are device-local preferences.
type Settings struct {
	Theme string     `json:"theme"`
	User  *auth.User `json:"user,omitempty"`
}

// DefaultTheme is used until the player toggles it.
const DefaultTheme = "dark"

// CancelFunc stops a watch. It is safe to call more than once.
type CancelFunc func()

// UserWatcher receives the current user record; found is false when it does not exist.
type UserWatcher func(rec UserRecord, found bool)

// LeaderboardWatcher receives the current top entries, best first.
type LeaderboardWatcher func(entries []LeaderboardEntry)

// DocumentStore is the remote database holding user records and the shared
// leaderboard. Watches fire once with the current state and again after
// every change. Concurrent writers are last-write-wins.
type DocumentStore interface {
	GetUser(ctx context.Context, uid string) (UserRecord, error)
	CreateUser(ctx context.Context, rec UserRecord) error
	UpdateUser(ctx context.Context, rec UserRecord) error
	WatchUser(ctx context.Context, uid string, fn UserWatcher) (CancelFunc, error)

	UpsertLeaderboard(ctx context.Context, e LeaderboardEntry) error
	TopLeaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	WatchLeaderboard(ctx context.Context, limit int, fn LeaderboardWatcher) (CancelFunc, error)

	Close() error
}

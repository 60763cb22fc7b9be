package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/stockbroker/internal/market"
)

func TestGameStateNetWorthFromSnapshot(t *testing.T) {
	g := GameState{
		Cash:          9500.5,
		Portfolio:     map[market.InstrumentID]int{1: 2, 3: 1},
		Day:           4,
		IsGameActive:  true,
		CompanyPrices: map[market.InstrumentID]float64{1: 120.25, 3: 80, 5: 10},
	}

	data, err := json.Marshal(g)
	require.NoError(t, err)

	var back GameState
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, g.NetWorth(), back.NetWorth())
	assert.Equal(t, 9821.0, back.NetWorth())
}

func TestGameStateJSONKeys(t *testing.T) {
	data, err := json.Marshal(InitialState(10000))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, k := range []string{"cash", "portfolio", "day", "gameComplete", "isGameActive", "companyPrices"} {
		assert.Contains(t, raw, k)
	}
	assert.Equal(t, true, raw["isGameActive"])
	assert.Equal(t, float64(1), raw["day"])
}

func TestSameProgress(t *testing.T) {
	a := InitialState(10000)
	b := InitialState(10000)
	b.CompanyPrices[1] = 123
	assert.True(t, a.SameProgress(b), "prices are not progress")

	b.Portfolio[2] = 0
	assert.True(t, a.SameProgress(b), "zero holdings equal absent holdings")

	b.Portfolio[2] = 1
	assert.False(t, a.SameProgress(b))

	c := InitialState(10000)
	c.Day = 2
	assert.False(t, a.SameProgress(c))
}

func TestUserRecordApply(t *testing.T) {
	local := InitialState(10000)
	local.CompanyPrices[1] = 200

	rec := NewUserRecord("u1", "Ada", GameState{
		Cash:         500,
		Portfolio:    map[market.InstrumentID]int{1: 3},
		Day:          30,
		GameComplete: true,
	})
	assert.Equal(t, 500.0, rec.NetWorth, "no prices known when building from a bare snapshot")

	got := rec.Apply(local)
	assert.Equal(t, 500.0, got.Cash)
	assert.Equal(t, 3, got.Portfolio[1])
	assert.True(t, got.GameComplete)
	assert.False(t, got.IsGameActive)
	assert.Equal(t, 200.0, got.CompanyPrices[1])
	assert.Equal(t, 1100.0, got.NetWorth())
}

func TestSortLeaderboard(t *testing.T) {
	t0 := time.Now()
	entries := []LeaderboardEntry{
		{UID: "b", NetWorth: 100, Timestamp: t0.Add(time.Second)},
		{UID: "a", NetWorth: 100, Timestamp: t0},
		{UID: "c", NetWorth: 300},
	}
	SortLeaderboard(entries)
	assert.Equal(t, []string{"c", "a", "b"}, []string{entries[0].UID, entries[1].UID, entries[2].UID})
}

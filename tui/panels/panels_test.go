package panels

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/stockbroker/internal/auth"
	"github.com/zappabad/stockbroker/internal/market"
	marketview "github.com/zappabad/stockbroker/internal/market/view"
	"github.com/zappabad/stockbroker/internal/news"
	"github.com/zappabad/stockbroker/internal/store"
)

func testSnapshot() marketview.MarketSnapshot {
	var snap marketview.MarketSnapshot
	for i, inst := range market.DefaultInstruments() {
		p := float64(100 + i*10)
		snap.Quotes = append(snap.Quotes, marketview.Quote{
			Instrument: inst,
			Price:      p,
			Prev:       p - 1,
			History:    []float64{p - 2, p - 1, p},
		})
	}
	return snap
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "GreenC...", truncate("GreenCorporation", 9))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "", truncate("abc", 0))
}

func TestMarketPanelSelection(t *testing.T) {
	p := NewMarketPanel()
	p.SetSnapshot(testSnapshot(), map[market.InstrumentID]int{1: 3})
	p.SetFocus(true)
	p.SetSize(60, 12)

	assert.Equal(t, market.InstrumentID(1), p.Selected().ID)

	p, cmd := p.Update(tea.KeyMsg{Type: tea.KeyDown})
	require.NotNil(t, cmd)
	msg, ok := cmd().(InstrumentSelectedMsg)
	require.True(t, ok)
	assert.Equal(t, market.InstrumentID(2), msg.Instrument.ID)

	// up at the top and down at the bottom are no-ops
	p.Update(tea.KeyMsg{Type: tea.KeyUp})
	_, cmd = p.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Nil(t, cmd)
	assert.Equal(t, market.InstrumentID(1), p.Selected().ID)

	view := p.View()
	assert.Contains(t, view, "Techify")
	assert.Contains(t, view, "FoodZone")
}

func TestMarketPanelIgnoresKeysUnfocused(t *testing.T) {
	p := NewMarketPanel()
	p.SetSnapshot(testSnapshot(), nil)

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Nil(t, cmd)
	assert.Equal(t, market.InstrumentID(1), p.Selected().ID)
}

func TestPriceAxisMapping(t *testing.T) {
	assert.Equal(t, 0, priceToY(110, 100, 110, 11))
	assert.Equal(t, 10, priceToY(100, 100, 110, 11))
	assert.Equal(t, 5, priceToY(105, 100, 110, 11))
	assert.Equal(t, 5, priceToY(105, 105, 105, 11))

	assert.InDelta(t, 110, yToPrice(0, 100, 110, 11), 1e-9)
	assert.InDelta(t, 100, yToPrice(10, 100, 110, 11), 1e-9)
}

func TestSampleChar(t *testing.T) {
	rows := []int{5, 1}
	assert.Equal(t, '●', sampleChar(rows, 0, 5))
	assert.Equal(t, ' ', sampleChar(rows, 0, 3))
	assert.Equal(t, '●', sampleChar(rows, 1, 1))
	assert.Equal(t, '│', sampleChar(rows, 1, 3))
	assert.Equal(t, ' ', sampleChar(rows, 1, 5))
}

func TestChartPanelView(t *testing.T) {
	p := NewChartPanel()
	p.SetSize(50, 16)
	assert.Contains(t, p.View(), "Waiting for price moves")

	q := testSnapshot().Quotes[0]
	p.SetQuote(q)
	view := p.View()
	assert.Contains(t, view, "Techify")
	assert.Contains(t, view, "●")
}

func TestNewsPanelNewestFirst(t *testing.T) {
	p := NewNewsPanel()
	p.SetSize(80, 12)
	items := []news.NewsItem{
		{ID: "a", Company: "Techify", Headline: "first", Impact: 5},
		{ID: "b", Company: "Market", Headline: "second", Impact: -3},
	}
	p.SetNews(&items[1], items)

	sel := p.SelectedNews()
	require.NotNil(t, sel)
	assert.Equal(t, news.NewsID("b"), sel.ID)
	assert.Contains(t, p.View(), "BREAKING")
}

func TestLeaderboardPanelStates(t *testing.T) {
	p := NewLeaderboardPanel()
	p.SetSize(50, 16)

	p.SetEntries(nil, false, false)
	assert.Contains(t, p.View(), "offline")

	p.SetEntries(nil, true, true)
	assert.Contains(t, p.View(), "Loading")

	u := auth.User{UID: "u1", DisplayName: "Ada"}
	p.SetEntries([]store.LeaderboardEntry{{UID: "u1", Username: "Ada", NetWorth: 12345}}, false, true)
	p.SetUser(&u, 1)
	view := p.View()
	assert.Contains(t, view, "$12,345.00")
	assert.Contains(t, view, "you are #1")

	p.SetUser(nil, 0)
	assert.Contains(t, p.View(), "sign in")
}

func TestSignInPanelSubmitAndCancel(t *testing.T) {
	p := NewSignInPanel()
	p.SetSize(50, 12)
	p.SetFocus(true)

	for _, r := range "Ada" {
		p, _ = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	for _, r := range "ada@example.com" {
		p, _ = p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg, ok := cmd().(SignInSubmitMsg)
	require.True(t, ok)
	assert.Equal(t, auth.Credentials{DisplayName: "Ada", Email: "ada@example.com"}, msg.Credentials)

	_, cmd = p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	msg = cmd().(SignInSubmitMsg)
	assert.True(t, msg.Credentials.Canceled)
}

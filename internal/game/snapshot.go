package game

import (
	"github.com/zappabad/stockbroker/internal/auth"
	"github.com/zappabad/stockbroker/internal/broker"
	"github.com/zappabad/stockbroker/internal/market"
	marketview "github.com/zappabad/stockbroker/internal/market/view"
	"github.com/zappabad/stockbroker/internal/news"
	"github.com/zappabad/stockbroker/internal/session"
	"github.com/zappabad/stockbroker/internal/store"
)

// Snapshot is everything the terminal UI draws, captured at one instant.
type Snapshot struct {
	Market         marketview.MarketSnapshot
	Cash           float64
	Holdings       map[market.InstrumentID]int
	PortfolioValue float64
	NetWorth       float64
	StartingCash   float64

	Session session.State
	MaxDays int

	News       *news.NewsItem
	RecentNews []news.NewsItem
	Trades     []broker.Trade

	User               *auth.User
	Online             bool
	Leaderboard        []store.LeaderboardEntry
	LeaderboardLoading bool
	Rank               int

	Alert *Alert
	Theme string
}

// ProfitLoss is net worth relative to the starting cash.
func (s Snapshot) ProfitLoss() float64 {
	return market.Round2(s.NetWorth - s.StartingCash)
}

// Snapshot captures the current game state.
func (g *Game) Snapshot() Snapshot {
	prices := g.Market.Prices()
	acct := g.Broker.Account()

	snap := Snapshot{
		Market:             g.Market.Snapshot(),
		Cash:               acct.Cash,
		Holdings:           acct.Holdings,
		PortfolioValue:     broker.PortfolioValue(acct.Holdings, prices),
		NetWorth:           broker.NetWorth(acct.Cash, acct.Holdings, prices),
		StartingCash:       g.Broker.StartingCash(),
		Session:            g.Clock.State(),
		MaxDays:            g.Clock.MaxDays(),
		RecentNews:         g.News.Latest(recentNews),
		Trades:             g.Broker.Trades(recentTrades),
		Online:             g.Board.Online(),
		Leaderboard:        g.Board.Entries(),
		LeaderboardLoading: g.Board.Loading(),
		Alert:              g.currentAlert(),
		Theme:              g.Theme(),
	}
	if item, ok := g.News.Current(); ok {
		snap.News = &item
	}
	if u, ok := g.auth.Current(); ok {
		snap.User = &u
		snap.Rank = g.Board.Rank(u.UID)
	}
	return snap
}

package service

import (
	"maps"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/zappabad/stockbroker/internal/broker"
	brokerview "github.com/zappabad/stockbroker/internal/broker/view"
	"github.com/zappabad/stockbroker/internal/market"
)

// SessionGate reports whether trading is currently allowed.
type SessionGate interface {
	Active() bool
}

// BrokerService is the player's ledger: cash plus share counts.
type BrokerService struct {
	cfg  Config
	view *brokerview.TradeView
	gate SessionGate

	mu       sync.Mutex
	cash     decimal.Decimal
	holdings map[market.InstrumentID]int
}

// NewBrokerService creates a new BrokerService funded with cfg.StartingCash.
// A nil gate always allows trading.
func NewBrokerService(cfg Config, gate SessionGate) *BrokerService {
	if cfg.StartingCash <= 0 {
		cfg.StartingCash = DefaultConfig().StartingCash
	}
	if cfg.TradeCapacity <= 0 {
		cfg.TradeCapacity = DefaultConfig().TradeCapacity
	}

	return &BrokerService{
		cfg:      cfg,
		view:     brokerview.NewTradeView(cfg.TradeCapacity),
		gate:     gate,
		cash:     decimal.NewFromFloat(cfg.StartingCash),
		holdings: make(map[market.InstrumentID]int),
	}
}

func (s *BrokerService) active() bool {
	return s.gate == nil || s.gate.Active()
}

// Buy purchases one share of id at price.
func (s *BrokerService) Buy(id market.InstrumentID, price float64) (broker.Trade, error) {
	if !s.active() {
		return broker.Trade{}, broker.ErrSessionInactive
	}
	if price <= 0 {
		return broker.Trade{}, broker.ErrInvalidPrice
	}

	p := decimal.NewFromFloat(price)

	s.mu.Lock()
	if s.cash.LessThan(p) {
		s.mu.Unlock()
		return broker.Trade{}, broker.ErrInsufficientFunds
	}
	s.cash = s.cash.Sub(p)
	s.holdings[id]++
	tr := s.tradeLocked(id, broker.SideBuy, price)
	s.mu.Unlock()

	s.view.Add(tr)
	return tr, nil
}

// Sell sells one share of id at price.
func (s *BrokerService) Sell(id market.InstrumentID, price float64) (broker.Trade, error) {
	if !s.active() {
		return broker.Trade{}, broker.ErrSessionInactive
	}
	if price <= 0 {
		return broker.Trade{}, broker.ErrInvalidPrice
	}

	s.mu.Lock()
	if s.holdings[id] <= 0 {
		s.mu.Unlock()
		return broker.Trade{}, broker.ErrNoHoldings
	}
	s.cash = s.cash.Add(decimal.NewFromFloat(price))
	s.holdings[id]--
	if s.holdings[id] == 0 {
		delete(s.holdings, id)
	}
	tr := s.tradeLocked(id, broker.SideSell, price)
	s.mu.Unlock()

	s.view.Add(tr)
	return tr, nil
}

func (s *BrokerService) tradeLocked(id market.InstrumentID, side broker.Side, price float64) broker.Trade {
	cash, _ := s.cash.Round(2).Float64()
	return broker.Trade{
		ID:          broker.TradeID(ulid.Make().String()),
		Time:        time.Now().UnixNano(),
		Instrument:  id,
		Side:        side,
		Price:       price,
		CashAfter:   cash,
		SharesAfter: s.holdings[id],
	}
}

// Account returns a copy of the current cash and holdings.
func (s *BrokerService) Account() broker.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	cash, _ := s.cash.Round(2).Float64()
	return broker.Account{Cash: cash, Holdings: maps.Clone(s.holdings)}
}

// Cash returns the current balance.
func (s *BrokerService) Cash() float64 {
	return s.Account().Cash
}

// Shares returns the number of shares held in id.
func (s *BrokerService) Shares(id market.InstrumentID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holdings[id]
}

// NetWorth values the account at the given prices.
func (s *BrokerService) NetWorth(prices map[market.InstrumentID]float64) float64 {
	acct := s.Account()
	return broker.NetWorth(acct.Cash, acct.Holdings, prices)
}

// Restore replaces the ledger with a persisted account. Negative values are
// dropped so the ledger invariants hold.
func (s *BrokerService) Restore(acct broker.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cash := acct.Cash
	if cash < 0 {
		cash = 0
	}
	s.cash = decimal.NewFromFloat(cash)
	s.holdings = make(map[market.InstrumentID]int, len(acct.Holdings))
	for id, n := range acct.Holdings {
		if n > 0 {
			s.holdings[id] = n
		}
	}
}

// Reset empties the portfolio and restores the starting cash.
func (s *BrokerService) Reset() {
	s.mu.Lock()
	s.cash = decimal.NewFromFloat(s.cfg.StartingCash)
	s.holdings = make(map[market.InstrumentID]int)
	s.mu.Unlock()

	s.view.Clear()
}

// StartingCash returns the balance of a fresh session.
func (s *BrokerService) StartingCash() float64 {
	return s.cfg.StartingCash
}

// Trades returns the most recent n trades, oldest first.
func (s *BrokerService) Trades(n int) []broker.Trade {
	return s.view.Last(n)
}

package view

import (
	"sync"

	"github.com/zappabad/stockbroker/internal/broker"
)

// TradeView keeps the most recent trades of the session.
type TradeView struct {
	mu       sync.RWMutex
	trades   []broker.Trade
	capacity int
}

// NewTradeView creates a new TradeView with the given capacity.
func NewTradeView(capacity int) *TradeView {
	if capacity <= 0 {
		capacity = 100
	}
	return &TradeView{
		trades:   make([]broker.Trade, 0, capacity),
		capacity: capacity,
	}
}

// Add records a trade.
func (v *TradeView) Add(tr broker.Trade) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(v.trades) >= v.capacity {
		// Remove oldest
		v.trades = v.trades[1:]
	}
	v.trades = append(v.trades, tr)
}

// Trades returns a copy of all recorded trades, oldest first.
func (v *TradeView) Trades() []broker.Trade {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]broker.Trade, len(v.trades))
	copy(out, v.trades)
	return out
}

// Last returns up to n of the most recent trades, oldest first.
func (v *TradeView) Last(n int) []broker.Trade {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if n <= 0 || len(v.trades) == 0 {
		return nil
	}
	if n > len(v.trades) {
		n = len(v.trades)
	}
	out := make([]broker.Trade, n)
	copy(out, v.trades[len(v.trades)-n:])
	return out
}

// Clear drops all trades.
func (v *TradeView) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.trades = v.trades[:0]
}

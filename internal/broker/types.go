package broker

import (
	"errors"
	"maps"

	"github.com/shopspring/decimal"

	"github.com/zappabad/stockbroker/internal/market"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoHoldings        = errors.New("no shares to sell")
	ErrSessionInactive   = errors.New("trading session is not active")
	ErrInvalidPrice      = errors.New("invalid price")
)

// Side is the direction of a trade.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideBuy {
		return "BUY"
	}
	return "SELL"
}

// TradeID uniquely identifies a trade.
type TradeID string

// Trade is one executed single-share transaction.
type Trade struct {
	ID          TradeID
	Time        int64
	Instrument  market.InstrumentID
	Side        Side
	Price       float64
	CashAfter   float64
	SharesAfter int
}

// Account is a point-in-time copy of the ledger.
type Account struct {
	Cash     float64
	Holdings map[market.InstrumentID]int
}

// Shares returns the share count held in id.
func (a Account) Shares(id market.InstrumentID) int {
	return a.Holdings[id]
}

// Clone returns a deep copy.
func (a Account) Clone() Account {
	return Account{Cash: a.Cash, Holdings: maps.Clone(a.Holdings)}
}

func holdingsValue(holdings map[market.InstrumentID]int, prices map[market.InstrumentID]float64) decimal.Decimal {
	total := decimal.Zero
	for id, shares := range holdings {
		if shares <= 0 {
			continue
		}
		total = total.Add(decimal.NewFromFloat(prices[id]).Mul(decimal.NewFromInt(int64(shares))))
	}
	return total
}

// PortfolioValue is the mark-to-market value of all holdings. Instruments
// without a known price are valued at zero.
func PortfolioValue(holdings map[market.InstrumentID]int, prices map[market.InstrumentID]float64) float64 {
	f, _ := holdingsValue(holdings, prices).Round(2).Float64()
	return f
}

// NetWorth is cash plus the value of every holding at the given prices.
func NetWorth(cash float64, holdings map[market.InstrumentID]int, prices map[market.InstrumentID]float64) float64 {
	f, _ := decimal.NewFromFloat(cash).Add(holdingsValue(holdings, prices)).Round(2).Float64()
	return f
}

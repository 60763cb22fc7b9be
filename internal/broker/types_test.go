package broker

import (
	"testing"

	"github.com/zappabad/stockbroker/internal/market"
)

func TestNetWorth(t *testing.T) {
	holdings := map[market.InstrumentID]int{1: 2, 2: 1, 3: 4}
	prices := map[market.InstrumentID]float64{1: 101.11, 2: 55.55}

	// instrument 3 has no known price and counts as zero
	if got := NetWorth(1000, holdings, prices); got != 1257.77 {
		t.Errorf("expected 1257.77, got %v", got)
	}
	if got := PortfolioValue(holdings, prices); got != 257.77 {
		t.Errorf("expected 257.77, got %v", got)
	}
	if got := NetWorth(10000, nil, prices); got != 10000 {
		t.Errorf("expected cash only, got %v", got)
	}
}

func TestAccountClone(t *testing.T) {
	a := Account{Cash: 5, Holdings: map[market.InstrumentID]int{1: 1}}
	b := a.Clone()
	b.Holdings[1] = 9

	if a.Shares(1) != 1 {
		t.Error("clone shares holdings map")
	}
}

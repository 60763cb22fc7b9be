package service

import (
	"errors"
	"testing"

	"github.com/zappabad/stockbroker/internal/broker"
	"github.com/zappabad/stockbroker/internal/market"
)

type fakeGate struct{ active bool }

func (g *fakeGate) Active() bool { return g.active }

func TestBrokerBuySellRoundTrip(t *testing.T) {
	svc := NewBrokerService(DefaultConfig(), &fakeGate{active: true})

	tr, err := svc.Buy(1, 120)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Side != broker.SideBuy || tr.CashAfter != 9880 || tr.SharesAfter != 1 {
		t.Errorf("unexpected trade: %+v", tr)
	}
	if svc.Cash() != 9880 || svc.Shares(1) != 1 {
		t.Fatalf("expected cash 9880 and 1 share, got %v and %d", svc.Cash(), svc.Shares(1))
	}

	if _, err := svc.Sell(1, 130); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Cash() != 10010 || svc.Shares(1) != 0 {
		t.Errorf("expected cash 10010 and 0 shares, got %v and %d", svc.Cash(), svc.Shares(1))
	}

	if trades := svc.Trades(10); len(trades) != 2 {
		t.Errorf("expected 2 trades, got %d", len(trades))
	}
}

func TestBrokerBuyInsufficientFunds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartingCash = 100
	svc := NewBrokerService(cfg, nil)

	if _, err := svc.Buy(2, 100.01); !errors.Is(err, broker.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if svc.Cash() != 100 || svc.Shares(2) != 0 {
		t.Errorf("failed buy mutated ledger: cash %v shares %d", svc.Cash(), svc.Shares(2))
	}

	// Exactly affordable
	if _, err := svc.Buy(2, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Cash() != 0 {
		t.Errorf("expected cash 0, got %v", svc.Cash())
	}
}

func TestBrokerSellWithoutHoldings(t *testing.T) {
	svc := NewBrokerService(DefaultConfig(), nil)

	if _, err := svc.Sell(3, 50); !errors.Is(err, broker.ErrNoHoldings) {
		t.Fatalf("expected ErrNoHoldings, got %v", err)
	}
	if svc.Cash() != 10000 {
		t.Errorf("failed sell mutated cash: %v", svc.Cash())
	}
}

func TestBrokerInactiveSession(t *testing.T) {
	gate := &fakeGate{active: true}
	svc := NewBrokerService(DefaultConfig(), gate)

	if _, err := svc.Buy(1, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	gate.active = false
	if _, err := svc.Buy(1, 10); !errors.Is(err, broker.ErrSessionInactive) {
		t.Errorf("expected ErrSessionInactive on buy, got %v", err)
	}
	if _, err := svc.Sell(1, 10); !errors.Is(err, broker.ErrSessionInactive) {
		t.Errorf("expected ErrSessionInactive on sell, got %v", err)
	}
	if svc.Shares(1) != 1 || svc.Cash() != 9990 {
		t.Errorf("inactive session mutated ledger")
	}
}

func TestBrokerInvalidPrice(t *testing.T) {
	svc := NewBrokerService(DefaultConfig(), nil)

	if _, err := svc.Buy(1, 0); !errors.Is(err, broker.ErrInvalidPrice) {
		t.Errorf("expected ErrInvalidPrice, got %v", err)
	}
}

func TestBrokerDecimalCash(t *testing.T) {
	svc := NewBrokerService(DefaultConfig(), nil)

	for i := 0; i < 10; i++ {
		if _, err := svc.Buy(4, 0.1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if svc.Cash() != 9999 {
		t.Errorf("expected exact cash 9999, got %v", svc.Cash())
	}
}

func TestBrokerNetWorth(t *testing.T) {
	svc := NewBrokerService(DefaultConfig(), nil)

	svc.Buy(1, 100)
	svc.Buy(1, 100)
	svc.Buy(2, 50)

	prices := map[market.InstrumentID]float64{1: 110, 2: 40}
	if nw := svc.NetWorth(prices); nw != 9750+220+40 {
		t.Errorf("expected net worth 10010, got %v", nw)
	}
}

func TestBrokerRestoreAndReset(t *testing.T) {
	svc := NewBrokerService(DefaultConfig(), nil)

	svc.Restore(broker.Account{
		Cash:     1234.56,
		Holdings: map[market.InstrumentID]int{1: 3, 2: 0, 5: -1},
	})
	acct := svc.Account()
	if acct.Cash != 1234.56 || acct.Shares(1) != 3 {
		t.Errorf("unexpected restored account: %+v", acct)
	}
	if _, ok := acct.Holdings[5]; ok {
		t.Error("negative holdings must be dropped")
	}

	svc.Buy(1, 1)
	svc.Reset()
	acct = svc.Account()
	if acct.Cash != 10000 || len(acct.Holdings) != 0 {
		t.Errorf("expected fresh account after reset, got %+v", acct)
	}
	if len(svc.Trades(10)) != 0 {
		t.Error("expected trades cleared on reset")
	}
}

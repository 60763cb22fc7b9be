package service

import (
	"testing"
	"time"

	"github.com/zappabad/stockbroker/internal/market"
	marketview "github.com/zappabad/stockbroker/internal/market/view"
	"github.com/zappabad/stockbroker/internal/news"
)

type impactCall struct {
	target market.InstrumentID
	pct    float64
}

type recordingImpactor struct {
	calls []impactCall
}

func (r *recordingImpactor) ApplyImpact(target market.InstrumentID, pct float64) (marketview.MarketSnapshot, error) {
	r.calls = append(r.calls, impactCall{target, pct})
	return marketview.MarketSnapshot{}, nil
}

func newTestService(catalog []news.Event, imp PriceImpactor, display time.Duration) *NewsService {
	cfg := DefaultConfig()
	cfg.RandSeed = 7
	cfg.DisplayDuration = display
	return NewNewsService(cfg, catalog, market.DefaultInstruments(), imp, nil)
}

func TestNewsServiceStepAppliesImpact(t *testing.T) {
	imp := &recordingImpactor{}
	catalog := []news.Event{{Title: "SpaceNet rocket launch fails", Target: 3, Impact: -10}}
	svc := newTestService(catalog, imp, time.Second)
	defer svc.Close()

	item, err := svc.Step()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(imp.calls) != 1 || imp.calls[0].target != 3 || imp.calls[0].pct != -10 {
		t.Fatalf("unexpected impact calls: %+v", imp.calls)
	}
	if item.Company != "SpaceNet" {
		t.Errorf("expected company SpaceNet, got %q", item.Company)
	}
	if item.ID == "" || item.Time == 0 {
		t.Errorf("expected ID and Time to be set, got %+v", item)
	}

	// Wait for dispatcher
	time.Sleep(20 * time.Millisecond)

	cur, ok := svc.Current()
	if !ok || cur.ID != item.ID {
		t.Errorf("expected %s on display, got %+v (ok=%v)", item.ID, cur, ok)
	}
	if latest := svc.Latest(10); len(latest) != 1 {
		t.Errorf("expected 1 logged item, got %d", len(latest))
	}
}

func TestNewsServiceMarketWide(t *testing.T) {
	imp := &recordingImpactor{}
	catalog := []news.Event{{Title: "market rally boosts all stocks", Target: market.AllInstruments, Impact: 5}}
	svc := newTestService(catalog, imp, time.Second)
	defer svc.Close()

	item, err := svc.Step()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !item.IsMarketWide() || item.Company != "Market" {
		t.Errorf("expected market-wide item, got %+v", item)
	}
	if imp.calls[0].target != market.AllInstruments {
		t.Errorf("expected market-wide impact, got %v", imp.calls[0].target)
	}
}

func TestNewsServiceNoticeExpires(t *testing.T) {
	svc := newTestService(news.DefaultCatalog(), nil, 30*time.Millisecond)
	defer svc.Close()

	if _, err := svc.Step(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, ok := svc.Current(); !ok {
		t.Fatal("expected notice on display")
	}

	time.Sleep(60 * time.Millisecond)
	if _, ok := svc.Current(); ok {
		t.Error("expected notice to expire")
	}
	// The log keeps it
	if len(svc.Latest(5)) != 1 {
		t.Error("expected expired item to stay in the log")
	}
}

func TestNewsServiceUniformSelection(t *testing.T) {
	catalog := news.DefaultCatalog()
	svc := newTestService(catalog, nil, time.Second)
	defer svc.Close()

	seen := make(map[string]int)
	for i := 0; i < 1200; i++ {
		item, err := svc.Step()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen[item.Headline]++
	}
	if len(seen) != len(catalog) {
		t.Errorf("expected all %d events to be drawn, saw %d", len(catalog), len(seen))
	}
}

func TestNewsServiceEmptyCatalog(t *testing.T) {
	svc := newTestService(nil, nil, time.Second)
	defer svc.Close()

	if _, err := svc.Step(); err != ErrEmptyCatalog {
		t.Errorf("expected ErrEmptyCatalog, got %v", err)
	}
}

func TestNewsServiceEvents(t *testing.T) {
	svc := newTestService(news.DefaultCatalog(), nil, time.Second)
	defer svc.Close()

	item := svc.Publish(news.NewsItem{Headline: "Markets open higher"})

	select {
	case ev := <-svc.Events():
		if ev.Item.ID != item.ID {
			t.Errorf("expected %s, got %s", item.ID, ev.Item.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for news event")
	}
}

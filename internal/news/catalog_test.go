package news

import (
	"testing"

	"github.com/zappabad/stockbroker/internal/market"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	if len(catalog) != 12 {
		t.Fatalf("expected 12 events, got %d", len(catalog))
	}

	first := catalog[0]
	if first.Title != "releases new product" || first.Target != 1 || first.Impact != 10 {
		t.Errorf("unexpected first event %+v", first)
	}

	perTarget := make(map[market.InstrumentID][2]int)
	for _, ev := range catalog {
		c := perTarget[ev.Target]
		if ev.Impact > 0 {
			c[0]++
		} else {
			c[1]++
		}
		perTarget[ev.Target] = c
	}
	for id, c := range perTarget {
		if c != [2]int{1, 1} {
			t.Errorf("target %d: expected one good and one bad event, got %v", id, c)
		}
	}
	if len(perTarget) != 6 {
		t.Errorf("expected 5 companies plus market-wide, got %d targets", len(perTarget))
	}
}

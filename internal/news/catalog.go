package news

import "github.com/zappabad/stockbroker/internal/market"

// DefaultCatalog returns the static event catalog: one good and one bad event
// per company plus two market-wide ones. Titles read after the company name.
func DefaultCatalog() []Event {
	return []Event{
		{Title: "releases new product", Target: 1, Impact: 10},
		{Title: "announces breakthrough treatment", Target: 4, Impact: 8},
		{Title: "wins major contract", Target: 3, Impact: 12},
		{Title: "expands operations", Target: 2, Impact: 7},
		{Title: "launches new service", Target: 5, Impact: 6},
		{Title: "reports earnings miss", Target: 1, Impact: -8},
		{Title: "regulatory concerns raised", Target: 4, Impact: -6},
		{Title: "contract cancellation", Target: 3, Impact: -10},
		{Title: "environmental controversy", Target: 2, Impact: -7},
		{Title: "supply chain issues", Target: 5, Impact: -5},
		{Title: "market downturn affects all sectors", Target: market.AllInstruments, Impact: -5},
		{Title: "market rally boosts all stocks", Target: market.AllInstruments, Impact: 5},
	}
}

package news

import "github.com/zappabad/stockbroker/internal/market"

// NewsID uniquely identifies a news item.
type NewsID string

// Event is a catalog entry: a headline with a fixed signed price impact.
type Event struct {
	Title  string
	Target market.InstrumentID // market.AllInstruments means market-wide
	Impact float64             // percent, signed
}

// IsMarketWide reports whether the event moves every instrument.
func (e Event) IsMarketWide() bool {
	return e.Target == market.AllInstruments
}

// NewsItem represents an emitted news event.
type NewsItem struct {
	ID       NewsID
	Time     int64
	Target   market.InstrumentID // 0 means market-wide news
	Company  string
	Headline string
	Impact   float64
}

// IsMarketWide reports whether the item moved every instrument.
func (n NewsItem) IsMarketWide() bool {
	return n.Target == market.AllInstruments
}

// Positive reports whether the item pushed prices up.
func (n NewsItem) Positive() bool {
	return n.Impact > 0
}

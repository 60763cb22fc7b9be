package view

import (
	"sync"
	"time"

	"github.com/zappabad/stockbroker/internal/market"
)

// Quote is the price state of one instrument at a point in time.
type Quote struct {
	Instrument market.Instrument
	Price      float64
	Prev       float64
	History    []float64 // oldest first
}

// ChangePct returns the percent move from the previous price.
func (q Quote) ChangePct() float64 {
	if q.Prev == 0 {
		return 0
	}
	return (q.Price - q.Prev) / q.Prev * 100
}

// MarketSnapshot is a point-in-time snapshot of all instruments, in catalog order.
type MarketSnapshot struct {
	Quotes []Quote
	Time   int64
}

// Find returns the quote for id.
func (s MarketSnapshot) Find(id market.InstrumentID) (Quote, bool) {
	for _, q := range s.Quotes {
		if q.Instrument.ID == id {
			return q, true
		}
	}
	return Quote{}, false
}

// Prices returns the current price of every instrument in the snapshot.
func (s MarketSnapshot) Prices() map[market.InstrumentID]float64 {
	out := make(map[market.InstrumentID]float64, len(s.Quotes))
	for _, q := range s.Quotes {
		out[q.Instrument.ID] = q.Price
	}
	return out
}

type priceState struct {
	inst  market.Instrument
	price float64
	prev  float64
	hist  *PriceHistory
}

// PriceView maintains current, previous and recent prices per instrument.
type PriceView struct {
	mu     sync.RWMutex
	order  []market.InstrumentID
	states map[market.InstrumentID]*priceState
}

// NewPriceView creates a new PriceView keeping historySize samples per instrument.
func NewPriceView(instruments []market.Instrument, historySize int) *PriceView {
	v := &PriceView{
		order:  make([]market.InstrumentID, 0, len(instruments)),
		states: make(map[market.InstrumentID]*priceState, len(instruments)),
	}
	for _, inst := range instruments {
		v.order = append(v.order, inst.ID)
		v.states[inst.ID] = &priceState{inst: inst, hist: NewPriceHistory(historySize)}
	}
	return v
}

// Apply records a new price for id. Unknown ids are ignored.
func (v *PriceView) Apply(id market.InstrumentID, price float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	st, ok := v.states[id]
	if !ok {
		return
	}
	if st.hist.Count() == 0 {
		st.prev = price
	} else {
		st.prev = st.price
	}
	st.price = price
	st.hist.Append(price)
}

// Reset discards the history of id and starts over at price.
func (v *PriceView) Reset(id market.InstrumentID, price float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	st, ok := v.states[id]
	if !ok {
		return
	}
	st.hist.Clear()
	st.hist.Append(price)
	st.price = price
	st.prev = price
}

// Price returns the current price of id.
func (v *PriceView) Price(id market.InstrumentID) (float64, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	st, ok := v.states[id]
	if !ok {
		return 0, false
	}
	return st.price, true
}

// Instruments returns the tracked instruments in catalog order.
func (v *PriceView) Instruments() []market.Instrument {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]market.Instrument, 0, len(v.order))
	for _, id := range v.order {
		out = append(out, v.states[id].inst)
	}
	return out
}

// Snapshot returns a deep copy of the current price state.
func (v *PriceView) Snapshot() MarketSnapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()

	snap := MarketSnapshot{
		Quotes: make([]Quote, 0, len(v.order)),
		Time:   time.Now().UnixNano(),
	}
	for _, id := range v.order {
		st := v.states[id]
		snap.Quotes = append(snap.Quotes, Quote{
			Instrument: st.inst,
			Price:      st.price,
			Prev:       st.prev,
			History:    st.hist.All(),
		})
	}
	return snap
}

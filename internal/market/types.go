package market

import "math"

// InstrumentID uniquely identifies a tradable company.
type InstrumentID int64

// AllInstruments is the target used by market-wide events.
const AllInstruments InstrumentID = 0

// Instrument represents one of the simulated companies.
type Instrument struct {
	ID     InstrumentID
	Name   string
	Symbol string // ticker used for external quotes
}

// DefaultInstruments returns the five companies traded in a session.
func DefaultInstruments() []Instrument {
	return []Instrument{
		{ID: 1, Name: "Techify", Symbol: "AAPL"},
		{ID: 2, Name: "GreenCorp", Symbol: "NVDA"},
		{ID: 3, Name: "SpaceNet", Symbol: "NOC"},
		{ID: 4, Name: "Medico", Symbol: "JNJ"},
		{ID: 5, Name: "FoodZone", Symbol: "MCD"},
	}
}

// Round2 rounds a price to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

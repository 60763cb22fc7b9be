package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/zappabad/stockbroker/internal/market"
	marketview "github.com/zappabad/stockbroker/internal/market/view"
)

var ErrUnknownInstrument = errors.New("unknown instrument")

// QuoteSource supplies external prices. Instruments missing from the result
// fall back to the random walk for that tick.
type QuoteSource interface {
	Quotes(ctx context.Context, instruments []market.Instrument) (map[market.InstrumentID]float64, error)
}

// MarketService simulates prices for a fixed set of instruments.
type MarketService struct {
	cfg    Config
	view   *marketview.PriceView
	quotes QuoteSource
	logger *slog.Logger

	// mu serializes price mutations; a tick and a news impact never interleave
	// within one instrument, last write wins.
	mu  sync.Mutex
	rng *rand.Rand

	listenersMu sync.RWMutex
	listeners   map[int]func(marketview.MarketEvent)
	nextID      int

	closed    chan struct{}
	closeOnce sync.Once
}

// NewMarketService creates a new MarketService and seeds every instrument
// with a random price. quotes may be nil.
func NewMarketService(instruments []market.Instrument, cfg Config, quotes QuoteSource, logger *slog.Logger) *MarketService {
	def := DefaultConfig()
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.VolatilityPct <= 0 {
		cfg.VolatilityPct = def.VolatilityPct
	}
	if cfg.MinPrice <= 0 {
		cfg.MinPrice = def.MinPrice
	}
	if cfg.SeedMin <= 0 {
		cfg.SeedMin = def.SeedMin
	}
	if cfg.SeedMax <= cfg.SeedMin {
		cfg.SeedMax = cfg.SeedMin + (def.SeedMax - def.SeedMin)
	}
	if cfg.QuoteTimeout <= 0 {
		cfg.QuoteTimeout = def.QuoteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	seed := cfg.RandSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	s := &MarketService{
		cfg:       cfg,
		view:      marketview.NewPriceView(instruments, cfg.HistorySize),
		quotes:    quotes,
		logger:    logger.With("component", "market"),
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		listeners: make(map[int]func(marketview.MarketEvent)),
		closed:    make(chan struct{}),
	}
	s.seedLocked()
	return s
}

func (s *MarketService) seedLocked() {
	for _, inst := range s.view.Instruments() {
		p := s.cfg.SeedMin + s.rng.Float64()*(s.cfg.SeedMax-s.cfg.SeedMin)
		s.view.Reset(inst.ID, s.clamp(market.Round2(p)))
	}
}

func (s *MarketService) clamp(p float64) float64 {
	if p < s.cfg.MinPrice {
		return s.cfg.MinPrice
	}
	return p
}

// walk applies one random percentage step to price. Caller holds s.mu.
func (s *MarketService) walk(price float64) float64 {
	pct := (s.rng.Float64()*2 - 1) * s.cfg.VolatilityPct
	return s.clamp(market.Round2(price * (1 + pct/100)))
}

// Tick produces the next price for every instrument. External quotes win
// where available; everything else takes a random step.
func (s *MarketService) Tick(ctx context.Context) marketview.MarketSnapshot {
	if s.isClosed() {
		return s.view.Snapshot()
	}

	instruments := s.view.Instruments()

	var external map[market.InstrumentID]float64
	if s.quotes != nil {
		qctx, cancel := context.WithTimeout(ctx, s.cfg.QuoteTimeout)
		q, err := s.quotes.Quotes(qctx, instruments)
		cancel()
		if err != nil {
			s.logger.Debug("external quotes unavailable, using synthetic prices", "err", err)
		}
		external = q
	}

	s.mu.Lock()
	for _, inst := range instruments {
		next, ok := external[inst.ID]
		if ok && next > 0 && !math.IsInf(next, 0) {
			next = s.clamp(market.Round2(next))
		} else {
			cur, _ := s.view.Price(inst.ID)
			next = s.walk(cur)
		}
		s.view.Apply(inst.ID, next)
	}
	snap := s.view.Snapshot()
	s.mu.Unlock()

	s.notify(marketview.MarketEvent{Source: marketview.SourceTick, Snapshot: snap})
	return snap
}

// ApplyImpact moves the target instrument by pct percent. market.AllInstruments
// moves every instrument.
func (s *MarketService) ApplyImpact(target market.InstrumentID, pct float64) (marketview.MarketSnapshot, error) {
	s.mu.Lock()
	matched := false
	for _, inst := range s.view.Instruments() {
		if target != market.AllInstruments && inst.ID != target {
			continue
		}
		matched = true
		cur, _ := s.view.Price(inst.ID)
		s.view.Apply(inst.ID, s.clamp(market.Round2(cur*(1+pct/100))))
	}
	snap := s.view.Snapshot()
	s.mu.Unlock()

	if !matched {
		return snap, ErrUnknownInstrument
	}
	s.notify(marketview.MarketEvent{Source: marketview.SourceNews, Snapshot: snap})
	return snap, nil
}

// Restore sets prices from a persisted snapshot. Instruments without a saved
// price keep their current one.
func (s *MarketService) Restore(prices map[market.InstrumentID]float64) marketview.MarketSnapshot {
	s.mu.Lock()
	for id, p := range prices {
		if p <= 0 {
			continue
		}
		s.view.Reset(id, s.clamp(market.Round2(p)))
	}
	snap := s.view.Snapshot()
	s.mu.Unlock()

	s.notify(marketview.MarketEvent{Source: marketview.SourceRestore, Snapshot: snap})
	return snap
}

// Reseed draws fresh random seed prices and clears history.
func (s *MarketService) Reseed() marketview.MarketSnapshot {
	s.mu.Lock()
	s.seedLocked()
	snap := s.view.Snapshot()
	s.mu.Unlock()

	s.notify(marketview.MarketEvent{Source: marketview.SourceRestore, Snapshot: snap})
	return snap
}

// Price returns the current price of id.
func (s *MarketService) Price(id market.InstrumentID) (float64, error) {
	p, ok := s.view.Price(id)
	if !ok {
		return 0, ErrUnknownInstrument
	}
	return p, nil
}

// Prices returns the current price of every instrument.
func (s *MarketService) Prices() map[market.InstrumentID]float64 {
	return s.view.Snapshot().Prices()
}

// Snapshot returns the current market snapshot across all instruments.
func (s *MarketService) Snapshot() marketview.MarketSnapshot {
	return s.view.Snapshot()
}

// Instruments returns all registered instruments in catalog order.
func (s *MarketService) Instruments() []market.Instrument {
	return s.view.Instruments()
}

// OnUpdate registers fn to receive the full instrument list after every
// price change. The returned func unregisters it.
func (s *MarketService) OnUpdate(fn func(marketview.MarketEvent)) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *MarketService) notify(ev marketview.MarketEvent) {
	if s.isClosed() {
		return
	}
	s.listenersMu.RLock()
	fns := make([]func(marketview.MarketEvent), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func (s *MarketService) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// Close stops notifications and drops all listeners.
func (s *MarketService) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})

	s.listenersMu.Lock()
	clear(s.listeners)
	s.listenersMu.Unlock()
}

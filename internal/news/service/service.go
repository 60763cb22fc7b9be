package service

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/zappabad/stockbroker/internal/market"
	marketview "github.com/zappabad/stockbroker/internal/market/view"
	"github.com/zappabad/stockbroker/internal/news"
	newsview "github.com/zappabad/stockbroker/internal/news/view"
)

var ErrEmptyCatalog = errors.New("news catalog is empty")

// PriceImpactor applies a percentage move to one instrument or the whole market.
type PriceImpactor interface {
	ApplyImpact(target market.InstrumentID, pct float64) (marketview.MarketSnapshot, error)
}

// NewsService picks random catalog events, moves prices and keeps the news log.
type NewsService struct {
	cfg      Config
	view     *newsview.NewsView
	catalog  []news.Event
	names    map[market.InstrumentID]string
	impactor PriceImpactor
	logger   *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	timerMu sync.Mutex
	expiry  *time.Timer

	internalEvents chan newsview.NewsEvent
	externalEvents chan newsview.NewsEvent
	droppedEvents  atomic.Int64

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewNewsService creates a new NewsService. impactor may be nil, in which
// case events are published without moving prices.
func NewNewsService(cfg Config, catalog []news.Event, instruments []market.Instrument, impactor PriceImpactor, logger *slog.Logger) *NewsService {
	if cfg.LogSize <= 0 {
		cfg.LogSize = DefaultConfig().LogSize
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = DefaultConfig().SubscriberBuffer
	}
	if cfg.DisplayDuration <= 0 {
		cfg.DisplayDuration = DefaultConfig().DisplayDuration
	}
	if logger == nil {
		logger = slog.Default()
	}

	seed := cfg.RandSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	names := make(map[market.InstrumentID]string, len(instruments))
	for _, inst := range instruments {
		names[inst.ID] = inst.Name
	}

	s := &NewsService{
		cfg:            cfg,
		view:           newsview.NewNewsView(cfg.LogSize),
		catalog:        catalog,
		names:          names,
		impactor:       impactor,
		logger:         logger.With("component", "news"),
		rng:            rand.New(rand.NewPCG(seed, seed>>1|1)),
		internalEvents: make(chan newsview.NewsEvent, cfg.EventBuffer),
		externalEvents: make(chan newsview.NewsEvent, cfg.SubscriberBuffer),
		closed:         make(chan struct{}),
	}

	s.wg.Add(1)
	go s.runEventDispatcher()

	return s
}

func (s *NewsService) runEventDispatcher() {
	defer s.wg.Done()
	defer close(s.externalEvents)

	for {
		select {
		case <-s.closed:
			return
		case ev := <-s.internalEvents:
			s.view.Apply(ev)
			s.scheduleExpiry(ev.Item.ID)

			if s.cfg.BlockOnSlowSubscriber {
				select {
				case s.externalEvents <- ev:
				case <-s.closed:
					return
				}
			} else {
				select {
				case s.externalEvents <- ev:
				default:
					s.droppedEvents.Add(1)
				}
			}
		}
	}
}

// scheduleExpiry replaces the pending expiry with one for id.
func (s *NewsService) scheduleExpiry(id news.NewsID) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if s.expiry != nil {
		s.expiry.Stop()
	}
	s.expiry = time.AfterFunc(s.cfg.DisplayDuration, func() {
		s.view.Expire(id)
	})
}

// Step draws one event uniformly from the catalog, applies its impact to
// prices and publishes it. The price change is permanent; the notice is not.
func (s *NewsService) Step() (news.NewsItem, error) {
	if len(s.catalog) == 0 {
		return news.NewsItem{}, ErrEmptyCatalog
	}

	s.rngMu.Lock()
	ev := s.catalog[s.rng.IntN(len(s.catalog))]
	s.rngMu.Unlock()

	if s.impactor != nil {
		if _, err := s.impactor.ApplyImpact(ev.Target, ev.Impact); err != nil {
			return news.NewsItem{}, err
		}
	}

	item := news.NewsItem{
		Target:   ev.Target,
		Company:  s.companyName(ev.Target),
		Headline: ev.Title,
		Impact:   ev.Impact,
	}
	item = s.Publish(item)

	s.logger.Debug("news", "headline", item.Headline, "target", item.Company, "impact", item.Impact)
	return item, nil
}

func (s *NewsService) companyName(id market.InstrumentID) string {
	if id == market.AllInstruments {
		return "Market"
	}
	if name, ok := s.names[id]; ok {
		return name
	}
	return "Unknown"
}

// Publish publishes a news item without touching prices. Sets ID and Time if missing.
func (s *NewsService) Publish(item news.NewsItem) news.NewsItem {
	if item.ID == "" {
		item.ID = news.NewsID(ulid.Make().String())
	}
	if item.Time == 0 {
		item.Time = time.Now().UnixNano()
	}

	ev := newsview.NewsEvent{Item: item}

	select {
	case s.internalEvents <- ev:
	case <-s.closed:
	}
	return item
}

// Current returns the notice on display, if any.
func (s *NewsService) Current() (news.NewsItem, bool) {
	return s.view.Notice()
}

// Dismiss takes the current notice off display early.
func (s *NewsService) Dismiss() {
	if item, ok := s.view.Notice(); ok {
		s.view.Expire(item.ID)
	}
}

// Latest returns the last n news items (from view).
func (s *NewsService) Latest(n int) []news.NewsItem {
	return s.view.Latest(n)
}

// Reset clears the news log and any notice on display.
func (s *NewsService) Reset() {
	s.stopExpiry()
	s.view.Reset()
}

// Events returns the external events channel for subscribers.
func (s *NewsService) Events() <-chan newsview.NewsEvent {
	return s.externalEvents
}

// DroppedEvents returns the count of dropped external events.
func (s *NewsService) DroppedEvents() int64 {
	return s.droppedEvents.Load()
}

func (s *NewsService) stopExpiry() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()

	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
}

// Close shuts down the news service.
func (s *NewsService) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	s.wg.Wait()
	s.stopExpiry()
}

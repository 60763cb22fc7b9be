package quote

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/zappabad/stockbroker/internal/market"
)

// PriceFetcher returns the latest price for a ticker symbol.
type PriceFetcher interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// Source fetches quotes for a set of instruments within the limiter's budget.
type Source struct {
	fetcher PriceFetcher
	limiter *Limiter
	logger  *slog.Logger
}

// NewSource creates a Source. A nil limiter gets the default budget.
func NewSource(fetcher PriceFetcher, limiter *Limiter, logger *slog.Logger) *Source {
	if limiter == nil {
		limiter = NewLimiter(DefaultCallsPerWindow, DefaultWindow)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		fetcher: fetcher,
		limiter: limiter,
		logger:  logger.With("component", "quote"),
	}
}

// Quotes fetches every instrument concurrently. Instruments that were over
// budget or failed are left out of the result; ErrUnavailable is returned
// when nothing could be fetched.
func (s *Source) Quotes(ctx context.Context, instruments []market.Instrument) (map[market.InstrumentID]float64, error) {
	var (
		mu  sync.Mutex
		out = make(map[market.InstrumentID]float64, len(instruments))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, inst := range instruments {
		if inst.Symbol == "" {
			continue
		}
		if !s.limiter.Allow() {
			s.logger.Debug("quote budget exhausted", "symbol", inst.Symbol)
			break
		}
		g.Go(func() error {
			price, err := s.fetcher.Price(gctx, inst.Symbol)
			if err != nil {
				if errors.Is(err, ErrQuotaExceeded) {
					s.limiter.Exhaust()
				}
				s.logger.Debug("quote failed", "symbol", inst.Symbol, "err", err)
				// one bad symbol must not cancel the others
				return nil
			}
			mu.Lock()
			out[inst.ID] = price
			mu.Unlock()
			return nil
		})
	}
	// workers swallow their own failures
	g.Wait()

	if len(out) == 0 {
		return nil, ErrUnavailable
	}
	return out, nil
}

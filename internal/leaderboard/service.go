// Package leaderboard publishes players' net worth and keeps a live view of
// the top entries.
package leaderboard

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zappabad/stockbroker/internal/auth"
	"github.com/zappabad/stockbroker/internal/store"
)

var ErrOffline = errors.New("leaderboard: no remote store")

// Config holds configuration for the leaderboard Service.
type Config struct {
	// Size is how many top entries are watched.
	Size int
	// Timeout bounds each publish.
	Timeout time.Duration
	// SubscriberBuffer sizes each subscriber channel.
	SubscriberBuffer int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Size:             10,
		Timeout:          10 * time.Second,
		SubscriberBuffer: 8,
	}
}

// Service keeps the top entries in memory and fans changes out to subscribers.
type Service struct {
	cfg    Config
	store  store.DocumentStore
	logger *slog.Logger

	mu        sync.RWMutex
	entries   []store.LeaderboardEntry
	loading   bool
	published map[string]float64
	cancel    store.CancelFunc

	subsMu  sync.Mutex
	subs    map[int]chan []store.LeaderboardEntry
	nextSub int
	dropped atomic.Int64

	pubMu  sync.Mutex
	pubSeq atomic.Uint64
	wg     sync.WaitGroup
}

// NewService creates a Service. ds may be nil, in which case the service is offline.
func NewService(cfg Config, ds store.DocumentStore, logger *slog.Logger) *Service {
	if cfg.Size <= 0 {
		cfg.Size = DefaultConfig().Size
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.SubscriberBuffer <= 0 {
		cfg.SubscriberBuffer = DefaultConfig().SubscriberBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		cfg:       cfg,
		store:     ds,
		logger:    logger.With("component", "leaderboard"),
		loading:   true,
		published: make(map[string]float64),
		subs:      make(map[int]chan []store.LeaderboardEntry),
	}
}

// Online reports whether a remote store is configured.
func (s *Service) Online() bool {
	return s.store != nil
}

// Size returns how many entries are watched.
func (s *Service) Size() int {
	return s.cfg.Size
}

// Publish writes u's net worth. Zero and unchanged values are skipped; the
// returned bool reports whether a write happened.
func (s *Service) Publish(ctx context.Context, u auth.User, netWorth float64) (bool, error) {
	if s.store == nil {
		return false, ErrOffline
	}
	if netWorth == 0 {
		return false, nil
	}

	s.mu.RLock()
	last, ok := s.published[u.UID]
	s.mu.RUnlock()
	if ok && last == netWorth {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	err := s.store.UpsertLeaderboard(ctx, store.LeaderboardEntry{
		UID:       u.UID,
		Username:  u.Name(),
		NetWorth:  netWorth,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	s.published[u.UID] = netWorth
	s.mu.Unlock()
	return true, nil
}

// PublishAsync publishes in the background. Failures are logged. A publish
// superseded by a newer one before it starts is skipped.
func (s *Service) PublishAsync(u auth.User, netWorth float64) {
	if s.store == nil {
		return
	}

	seq := s.pubSeq.Add(1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.pubMu.Lock()
		defer s.pubMu.Unlock()

		if s.pubSeq.Load() != seq {
			return
		}
		if _, err := s.Publish(context.Background(), u, netWorth); err != nil {
			s.logger.Warn("publish failed", "uid", u.UID, "err", err)
		}
	}()
}

// Forget drops the last published value for uid so the next Publish writes.
func (s *Service) Forget(uid string) {
	s.mu.Lock()
	delete(s.published, uid)
	s.mu.Unlock()
}

// Start watches the top entries. Calling it again restarts the watch.
func (s *Service) Start(ctx context.Context) error {
	if s.store == nil {
		return ErrOffline
	}
	s.Stop()

	cancel, err := s.store.WatchLeaderboard(ctx, s.cfg.Size, s.onEntries)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("watching leaderboard", "size", s.cfg.Size)
	return nil
}

func (s *Service) onEntries(entries []store.LeaderboardEntry) {
	entries = slices.Clone(entries)

	s.mu.Lock()
	s.entries = entries
	s.loading = false
	s.mu.Unlock()

	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- slices.Clone(entries):
		default:
			s.dropped.Add(1)
		}
	}
}

// Stop cancels the watch. Entries are kept.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Entries returns the current top entries, best first.
func (s *Service) Entries() []store.LeaderboardEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries)
}

// Loading is true until the first result arrives.
func (s *Service) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Rank returns uid's 1-based position, or 0 when it is not on the board.
func (s *Service) Rank(uid string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, e := range s.entries {
		if e.UID == uid {
			return i + 1
		}
	}
	return 0
}

// Subscribe returns a channel receiving every new top list, and a cancel
// function that closes it. Slow subscribers miss updates.
func (s *Service) Subscribe() (<-chan []store.LeaderboardEntry, func()) {
	ch := make(chan []store.LeaderboardEntry, s.cfg.SubscriberBuffer)

	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, id)
			s.subsMu.Unlock()
			close(ch)
		})
	}
}

// DroppedUpdates returns how many subscriber sends were dropped.
func (s *Service) DroppedUpdates() int64 {
	return s.dropped.Load()
}

// Wait blocks until background publishes finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close stops the watch and drains background publishes.
func (s *Service) Close() {
	s.Stop()
	s.Wait()
}

// Package syncer mirrors the game snapshot to device storage and to the
// signed-in user's remote record.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zappabad/stockbroker/internal/auth"
	"github.com/zappabad/stockbroker/internal/store"
	"github.com/zappabad/stockbroker/internal/store/local"
)

// Config holds configuration for the Syncer.
type Config struct {
	// StartingCash seeds a remote record that does not exist yet.
	StartingCash float64
	// Timeout bounds each remote write.
	Timeout time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		StartingCash: 10000,
		Timeout:      10 * time.Second,
	}
}

// ApplyFunc receives a snapshot reconciled from the remote record.
type ApplyFunc func(store.GameState)

// Syncer writes every snapshot locally and pushes progress changes to the
// remote store in the background. remote may be nil for offline play.
type Syncer struct {
	cfg    Config
	local  local.Repository
	remote store.DocumentStore
	logger *slog.Logger

	mu         sync.Mutex
	last       store.GameState
	lastRemote *store.GameState
	// pending holds pushed states, oldest first, whose echo has not come back
	pending    []store.GameState
	user       *auth.User
	cancel     store.CancelFunc
	gen        uint64

	pushMu  sync.Mutex
	pushSeq atomic.Uint64
	pushes  atomic.Int64
	wg      sync.WaitGroup
}

// New creates a Syncer.
func New(cfg Config, repo local.Repository, remote store.DocumentStore, logger *slog.Logger) *Syncer {
	if cfg.StartingCash <= 0 {
		cfg.StartingCash = DefaultConfig().StartingCash
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Syncer{
		cfg:    cfg,
		local:  repo,
		remote: remote,
		logger: logger.With("component", "syncer"),
		last:   store.InitialState(cfg.StartingCash),
	}
}

// Online reports whether a remote store is configured.
func (s *Syncer) Online() bool {
	return s.remote != nil
}

// Load reads the local snapshot; ok is false when there is none.
func (s *Syncer) Load() (store.GameState, bool, error) {
	g, ok, err := s.local.Load()
	if err != nil || !ok {
		return g, ok, err
	}
	s.mu.Lock()
	s.last = g
	s.mu.Unlock()
	return g, true, nil
}

// Save writes g to device storage and, when a user is attached and its
// progress differs from the remote record, queues a remote write.
func (s *Syncer) Save(g store.GameState) error {
	if err := s.local.Save(g); err != nil {
		return fmt.Errorf("save local state: %w", err)
	}

	s.mu.Lock()
	s.last = g
	user := s.user
	push := user != nil && s.remote != nil && (s.lastRemote == nil || !g.SameProgress(*s.lastRemote))
	if push {
		s.track(g)
	}
	s.mu.Unlock()

	if push {
		s.enqueue(*user, g)
	}
	return nil
}

// Clear removes the local snapshot.
func (s *Syncer) Clear() error {
	return s.local.Clear()
}

// Attach subscribes to u's remote record. A present record is reconciled into
// local state through apply; an absent one is seeded with a fresh session,
// which is applied locally as well.
func (s *Syncer) Attach(ctx context.Context, u auth.User, apply ApplyFunc) error {
	s.Detach()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.user = &u
	s.lastRemote = nil
	s.pending = nil
	s.mu.Unlock()

	if s.remote == nil {
		return nil
	}

	cancel, err := s.remote.WatchUser(ctx, u.UID, func(rec store.UserRecord, found bool) {
		s.onRemote(gen, u, rec, found, apply)
	})
	if err != nil {
		return fmt.Errorf("watch user %s: %w", u.UID, err)
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		cancel()
		return nil
	}
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("attached", "uid", u.UID)
	return nil
}

func (s *Syncer) onRemote(gen uint64, u auth.User, rec store.UserRecord, found bool, apply ApplyFunc) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}

	if !found {
		seed := store.InitialState(s.cfg.StartingCash)
		seed.CompanyPrices = maps.Clone(s.last.CompanyPrices)
		s.track(seed)
		s.mu.Unlock()

		s.logger.Info("seeding remote record", "uid", u.UID)
		if apply != nil {
			apply(seed)
		}
		s.enqueue(u, seed)
		return
	}

	g := rec.Apply(s.last)
	if s.ackEcho(g) || (s.lastRemote != nil && g.SameProgress(*s.lastRemote)) {
		s.mu.Unlock()
		return
	}
	s.lastRemote = &g
	s.pending = nil
	s.mu.Unlock()

	s.logger.Debug("remote change", "uid", u.UID, "day", g.Day, "cash", g.Cash)
	if apply != nil {
		apply(g)
	}
}

// track records g as the newest pushed state. Callers hold s.mu.
func (s *Syncer) track(g store.GameState) {
	s.lastRemote = &g
	s.pending = append(s.pending, g)
}

// ackEcho reports whether g is one of our own pending writes coming back.
// The match and every older pending write are dropped, since the store has
// moved past them. Callers hold s.mu.
func (s *Syncer) ackEcho(g store.GameState) bool {
	for i, p := range s.pending {
		if g.SameProgress(p) {
			s.pending = s.pending[i+1:]
			return true
		}
	}
	return false
}

// Detach cancels the remote subscription and forgets the user.
func (s *Syncer) Detach() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.user = nil
	s.lastRemote = nil
	s.pending = nil
	s.gen++
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// User returns the attached user, if any.
func (s *Syncer) User() (auth.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return auth.User{}, false
	}
	return *s.user, true
}

// Pushes returns how many remote writes completed.
func (s *Syncer) Pushes() int64 {
	return s.pushes.Load()
}

// Wait blocks until queued remote writes finish.
func (s *Syncer) Wait() {
	s.wg.Wait()
}

// Close detaches and drains pending writes.
func (s *Syncer) Close() {
	s.Detach()
	s.Wait()
}

// enqueue pushes g in the background. Writes are serialized and a write
// superseded by a newer one before it starts is skipped.
func (s *Syncer) enqueue(u auth.User, g store.GameState) {
	seq := s.pushSeq.Add(1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.pushMu.Lock()
		defer s.pushMu.Unlock()

		if s.pushSeq.Load() != seq {
			return
		}
		if err := s.push(u, g); err != nil {
			s.logger.Warn("remote sync failed", "uid", u.UID, "err", err)
			return
		}
		s.pushes.Add(1)
	}()
}

func (s *Syncer) push(u auth.User, g store.GameState) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	rec := store.NewUserRecord(u.UID, u.Name(), g)

	_, err := s.remote.GetUser(ctx, u.UID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		err = s.remote.CreateUser(ctx, rec)
		if !errors.Is(err, store.ErrExists) {
			return err
		}
		// Lost a create race; fall through to a merge.
		return s.remote.UpdateUser(ctx, rec)
	case err != nil:
		return err
	default:
		return s.remote.UpdateUser(ctx, rec)
	}
}

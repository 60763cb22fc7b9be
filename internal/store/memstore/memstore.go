// Package memstore is an in-process DocumentStore. It backs offline play and tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/zappabad/stockbroker/internal/store"
)

type userWatch struct {
	uid string
	fn  store.UserWatcher
}

type boardWatch struct {
	limit int
	fn    store.LeaderboardWatcher
}

// Store keeps user records and leaderboard entries in memory. Watchers are
// invoked synchronously on the writing goroutine, after the lock is released.
type Store struct {
	mu     sync.RWMutex
	users  map[string]store.UserRecord
	board  map[string]store.LeaderboardEntry
	closed bool

	nextID       int
	userWatches  map[int]userWatch
	boardWatches map[int]boardWatch
}

var _ store.DocumentStore = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:        make(map[string]store.UserRecord),
		board:        make(map[string]store.LeaderboardEntry),
		userWatches:  make(map[int]userWatch),
		boardWatches: make(map[int]boardWatch),
	}
}

// GetUser returns the record for uid.
func (s *Store) GetUser(ctx context.Context, uid string) (store.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.UserRecord{}, store.ErrClosed
	}
	rec, ok := s.users[uid]
	if !ok {
		return store.UserRecord{}, store.ErrNotFound
	}
	return rec.Clone(), nil
}

// CreateUser stores a new record. It fails with ErrExists if one is present.
func (s *Store) CreateUser(ctx context.Context, rec store.UserRecord) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return store.ErrClosed
	}
	if _, ok := s.users[rec.UID]; ok {
		s.mu.Unlock()
		return store.ErrExists
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	s.users[rec.UID] = rec.Clone()
	s.mu.Unlock()

	s.notifyUser(rec.UID)
	return nil
}

// UpdateUser merges rec into the existing record. An empty Username keeps the stored one.
func (s *Store) UpdateUser(ctx context.Context, rec store.UserRecord) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return store.ErrClosed
	}
	cur, ok := s.users[rec.UID]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	if rec.Username == "" {
		rec.Username = cur.Username
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}
	s.users[rec.UID] = rec.Clone()
	s.mu.Unlock()

	s.notifyUser(rec.UID)
	return nil
}

// WatchUser calls fn with the current record of uid and after every change to it.
func (s *Store) WatchUser(ctx context.Context, uid string, fn store.UserWatcher) (store.CancelFunc, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, store.ErrClosed
	}
	id := s.nextID
	s.nextID++
	s.userWatches[id] = userWatch{uid: uid, fn: fn}
	rec, ok := s.users[uid]
	s.mu.Unlock()

	fn(rec.Clone(), ok)

	return s.cancelFunc(func() { delete(s.userWatches, id) }), nil
}

// UpsertLeaderboard stores e under its uid, replacing any previous entry.
func (s *Store) UpsertLeaderboard(ctx context.Context, e store.LeaderboardEntry) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return store.ErrClosed
	}
	if cur, ok := s.board[e.UID]; ok && e.Username == "" {
		e.Username = cur.Username
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	s.board[e.UID] = e
	s.mu.Unlock()

	s.notifyBoard()
	return nil
}

// TopLeaderboard returns up to limit entries ordered by net worth, best first.
func (s *Store) TopLeaderboard(ctx context.Context, limit int) ([]store.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrClosed
	}
	return s.topLocked(limit), nil
}

func (s *Store) topLocked(limit int) []store.LeaderboardEntry {
	out := make([]store.LeaderboardEntry, 0, len(s.board))
	for _, e := range s.board {
		out = append(out, e)
	}
	store.SortLeaderboard(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// WatchLeaderboard calls fn with the top entries now and after every change.
func (s *Store) WatchLeaderboard(ctx context.Context, limit int, fn store.LeaderboardWatcher) (store.CancelFunc, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, store.ErrClosed
	}
	id := s.nextID
	s.nextID++
	s.boardWatches[id] = boardWatch{limit: limit, fn: fn}
	top := s.topLocked(limit)
	s.mu.Unlock()

	fn(top)

	return s.cancelFunc(func() { delete(s.boardWatches, id) }), nil
}

func (s *Store) cancelFunc(remove func()) store.CancelFunc {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			remove()
			s.mu.Unlock()
		})
	}
}

func (s *Store) notifyUser(uid string) {
	s.mu.RLock()
	rec, ok := s.users[uid]
	var fns []store.UserWatcher
	for _, w := range s.userWatches {
		if w.uid == uid {
			fns = append(fns, w.fn)
		}
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(rec.Clone(), ok)
	}
}

func (s *Store) notifyBoard() {
	type call struct {
		fn  store.LeaderboardWatcher
		top []store.LeaderboardEntry
	}

	s.mu.RLock()
	calls := make([]call, 0, len(s.boardWatches))
	for _, w := range s.boardWatches {
		calls = append(calls, call{fn: w.fn, top: s.topLocked(w.limit)})
	}
	s.mu.RUnlock()

	for _, c := range calls {
		c.fn(c.top)
	}
}

// Close rejects further calls and drops all watchers.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	clear(s.userWatches)
	clear(s.boardWatches)
	return nil
}

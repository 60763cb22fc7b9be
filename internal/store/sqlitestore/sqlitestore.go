// Package sqlitestore is a DocumentStore on a local SQLite file. Watches poll
// the database, and writes through the same Store wake them immediately.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zappabad/stockbroker/internal/market"
	"github.com/zappabad/stockbroker/internal/store"
)

// Config holds configuration for the SQLite store.
type Config struct {
	// Path is the database file; ":memory:" is not supported across connections.
	Path string
	// PollInterval is how often watches re-read the database.
	PollInterval time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Path:         "stockbroker.db",
		PollInterval: time.Second,
	}
}

// Store implements store.DocumentStore on SQLite.
type Store struct {
	cfg    Config
	db     *sql.DB
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	wakers map[int]chan struct{}
	nextID int
}

var _ store.DocumentStore = (*Store)(nil)

// Open opens (or creates) the database and runs migrations.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultConfig().Path
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets watches read while the game writes
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		cfg:    cfg,
		db:     db,
		logger: logger.With("component", "sqlitestore"),
		ctx:    sctx,
		cancel: cancel,
		wakers: make(map[int]chan struct{}),
	}
	s.logger.Info("sqlite store opened", "path", cfg.Path)
	return s, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			uid            TEXT PRIMARY KEY,
			username       TEXT NOT NULL DEFAULT '',
			cash           REAL NOT NULL,
			portfolio      TEXT NOT NULL DEFAULT '{}',
			day            INTEGER NOT NULL,
			net_worth      REAL NOT NULL,
			game_complete  INTEGER NOT NULL,
			is_game_active INTEGER NOT NULL,
			updated_at     INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS leaderboard (
			uid       TEXT PRIMARY KEY,
			username  TEXT NOT NULL DEFAULT '',
			net_worth REAL NOT NULL,
			ts        INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leaderboard_net_worth ON leaderboard(net_worth DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) closed() bool {
	return s.ctx.Err() != nil
}

// wake nudges every watch to re-read now.
func (s *Store) wake() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.wakers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// GetUser returns the record for uid.
func (s *Store) GetUser(ctx context.Context, uid string) (store.UserRecord, error) {
	if s.closed() {
		return store.UserRecord{}, store.ErrClosed
	}

	var (
		rec       store.UserRecord
		portfolio string
		updated   int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT uid, username, cash, portfolio, day, net_worth, game_complete, is_game_active, updated_at
		FROM users WHERE uid = ?`, uid).
		Scan(&rec.UID, &rec.Username, &rec.Cash, &portfolio, &rec.Day, &rec.NetWorth,
			&rec.GameComplete, &rec.IsGameActive, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return store.UserRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.UserRecord{}, fmt.Errorf("get user %s: %w", uid, err)
	}

	if err := json.Unmarshal([]byte(portfolio), &rec.Portfolio); err != nil {
		return store.UserRecord{}, fmt.Errorf("decode portfolio of %s: %w", uid, err)
	}
	if rec.Portfolio == nil {
		rec.Portfolio = map[market.InstrumentID]int{}
	}
	rec.UpdatedAt = time.Unix(0, updated).UTC()
	return rec, nil
}

func encodePortfolio(p map[market.InstrumentID]int) (string, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode portfolio: %w", err)
	}
	return string(b), nil
}

func stamp(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().UnixNano()
}

// CreateUser stores a new record. It fails with ErrExists if one is present.
func (s *Store) CreateUser(ctx context.Context, rec store.UserRecord) error {
	if s.closed() {
		return store.ErrClosed
	}
	portfolio, err := encodePortfolio(rec.Portfolio)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (uid, username, cash, portfolio, day, net_worth, game_complete, is_game_active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO NOTHING`,
		rec.UID, rec.Username, rec.Cash, portfolio, rec.Day, rec.NetWorth,
		rec.GameComplete, rec.IsGameActive, stamp(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create user %s: %w", rec.UID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrExists
	}

	s.wake()
	return nil
}

// UpdateUser merges rec into the existing record. An empty Username keeps the stored one.
func (s *Store) UpdateUser(ctx context.Context, rec store.UserRecord) error {
	if s.closed() {
		return store.ErrClosed
	}
	portfolio, err := encodePortfolio(rec.Portfolio)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			username = CASE WHEN ? = '' THEN username ELSE ? END,
			cash = ?, portfolio = ?, day = ?, net_worth = ?,
			game_complete = ?, is_game_active = ?, updated_at = ?
		WHERE uid = ?`,
		rec.Username, rec.Username, rec.Cash, portfolio, rec.Day, rec.NetWorth,
		rec.GameComplete, rec.IsGameActive, stamp(rec.UpdatedAt), rec.UID)
	if err != nil {
		return fmt.Errorf("update user %s: %w", rec.UID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	s.wake()
	return nil
}

// UpsertLeaderboard stores e under its uid, replacing any previous entry.
func (s *Store) UpsertLeaderboard(ctx context.Context, e store.LeaderboardEntry) error {
	if s.closed() {
		return store.ErrClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leaderboard (uid, username, net_worth, ts) VALUES (?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			username = CASE WHEN excluded.username = '' THEN leaderboard.username ELSE excluded.username END,
			net_worth = excluded.net_worth,
			ts = excluded.ts`,
		e.UID, e.Username, e.NetWorth, stamp(e.Timestamp))
	if err != nil {
		return fmt.Errorf("upsert leaderboard %s: %w", e.UID, err)
	}

	s.wake()
	return nil
}

// TopLeaderboard returns up to limit entries ordered by net worth, best first.
func (s *Store) TopLeaderboard(ctx context.Context, limit int) ([]store.LeaderboardEntry, error) {
	if s.closed() {
		return nil, store.ErrClosed
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT uid, username, net_worth, ts FROM leaderboard
		ORDER BY net_worth DESC, ts ASC, uid ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []store.LeaderboardEntry
	for rows.Next() {
		var (
			e  store.LeaderboardEntry
			ts int64
		)
		if err := rows.Scan(&e.UID, &e.Username, &e.NetWorth, &ts); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// WatchUser calls fn with the current record of uid and after every change to it.
func (s *Store) WatchUser(ctx context.Context, uid string, fn store.UserWatcher) (store.CancelFunc, error) {
	type result struct {
		rec   store.UserRecord
		found bool
	}
	fetch := func(ctx context.Context) (result, error) {
		rec, err := s.GetUser(ctx, uid)
		if errors.Is(err, store.ErrNotFound) {
			return result{}, nil
		}
		if err != nil {
			return result{}, err
		}
		return result{rec: rec, found: true}, nil
	}
	return watch(ctx, s, fetch, func(r result) { fn(r.rec, r.found) })
}

// WatchLeaderboard calls fn with the top entries now and after every change.
func (s *Store) WatchLeaderboard(ctx context.Context, limit int, fn store.LeaderboardWatcher) (store.CancelFunc, error) {
	fetch := func(ctx context.Context) ([]store.LeaderboardEntry, error) {
		return s.TopLeaderboard(ctx, limit)
	}
	return watch(ctx, s, fetch, fn)
}

// watch emits the first fetch synchronously, then re-fetches on every poll
// or local write and emits only when the result changed.
func watch[T any](ctx context.Context, s *Store, fetch func(context.Context) (T, error), emit func(T)) (store.CancelFunc, error) {
	if s.closed() {
		return nil, store.ErrClosed
	}

	last, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	emit(last)

	wctx, cancel := context.WithCancel(s.ctx)
	waker := make(chan struct{}, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.wakers[id] = waker
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.wakers, id)
			s.mu.Unlock()
		}()

		ticker := time.NewTicker(s.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-wctx.Done():
				return
			case <-ticker.C:
			case <-waker:
			}

			cur, err := fetch(wctx)
			if err != nil {
				if wctx.Err() == nil {
					s.logger.Warn("watch poll failed", "err", err)
				}
				continue
			}
			if reflect.DeepEqual(cur, last) {
				continue
			}
			last = cur
			emit(cur)
		}
	}()

	return store.CancelFunc(cancel), nil
}

// Close stops all watches and closes the database.
func (s *Store) Close() error {
	s.cancel()
	s.wg.Wait()
	return s.db.Close()
}

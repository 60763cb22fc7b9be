// Package pgstore is a DocumentStore on PostgreSQL. Watches LISTEN on
// channels fed by row triggers, so every process sees every write.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zappabad/stockbroker/internal/market"
	"github.com/zappabad/stockbroker/internal/store"
)

const (
	usersChannel       = "stockbroker_users"
	leaderboardChannel = "stockbroker_leaderboard"
)

// Config holds configuration for the Postgres store.
type Config struct {
	DSN      string
	MinConns int
	MaxConns int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		MinConns: 1,
		MaxConns: 8,
	}
}

// Store implements store.DocumentStore on PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ store.DocumentStore = (*Store)(nil)

// Open connects, verifies the connection and runs migrations.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.DSN == "" {
		return nil, errors.New("pgstore: empty DSN")
	}
	if cfg.MinConns <= 0 {
		cfg.MinConns = DefaultConfig().MinConns
	}
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = DefaultConfig().MaxConns
	}
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	sctx, cancel := context.WithCancel(context.Background())
	return &Store{
		pool:   pool,
		logger: logger.With("component", "pgstore"),
		ctx:    sctx,
		cancel: cancel,
	}, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			uid            TEXT PRIMARY KEY,
			username       TEXT NOT NULL DEFAULT '',
			cash           DOUBLE PRECISION NOT NULL,
			portfolio      JSONB NOT NULL DEFAULT '{}'::jsonb,
			day            INTEGER NOT NULL,
			net_worth      DOUBLE PRECISION NOT NULL,
			game_complete  BOOLEAN NOT NULL,
			is_game_active BOOLEAN NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS leaderboard (
			uid       TEXT PRIMARY KEY,
			username  TEXT NOT NULL DEFAULT '',
			net_worth DOUBLE PRECISION NOT NULL,
			ts        TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leaderboard_net_worth ON leaderboard (net_worth DESC)`,
		`CREATE OR REPLACE FUNCTION stockbroker_notify_user() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify('` + usersChannel + `', NEW.uid);
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`,
		`CREATE OR REPLACE FUNCTION stockbroker_notify_leaderboard() RETURNS trigger AS $$
		BEGIN
			PERFORM pg_notify('` + leaderboardChannel + `', NEW.uid);
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS users_notify ON users`,
		`CREATE TRIGGER users_notify AFTER INSERT OR UPDATE ON users
			FOR EACH ROW EXECUTE FUNCTION stockbroker_notify_user()`,
		`DROP TRIGGER IF EXISTS leaderboard_notify ON leaderboard`,
		`CREATE TRIGGER leaderboard_notify AFTER INSERT OR UPDATE ON leaderboard
			FOR EACH ROW EXECUTE FUNCTION stockbroker_notify_leaderboard()`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) closed() bool {
	return s.ctx.Err() != nil
}

// GetUser returns the record for uid.
func (s *Store) GetUser(ctx context.Context, uid string) (store.UserRecord, error) {
	if s.closed() {
		return store.UserRecord{}, store.ErrClosed
	}

	var (
		rec       store.UserRecord
		portfolio []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT uid, username, cash, portfolio, day, net_worth, game_complete, is_game_active, updated_at
		FROM users WHERE uid = $1`, uid).
		Scan(&rec.UID, &rec.Username, &rec.Cash, &portfolio, &rec.Day, &rec.NetWorth,
			&rec.GameComplete, &rec.IsGameActive, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.UserRecord{}, store.ErrNotFound
	}
	if err != nil {
		return store.UserRecord{}, fmt.Errorf("get user %s: %w", uid, err)
	}

	if err := json.Unmarshal(portfolio, &rec.Portfolio); err != nil {
		return store.UserRecord{}, fmt.Errorf("decode portfolio of %s: %w", uid, err)
	}
	if rec.Portfolio == nil {
		rec.Portfolio = map[market.InstrumentID]int{}
	}
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

func encodePortfolio(p map[market.InstrumentID]int) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode portfolio: %w", err)
	}
	return b, nil
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
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

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO users (uid, username, cash, portfolio, day, net_worth, game_complete, is_game_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (uid) DO NOTHING`,
		rec.UID, rec.Username, rec.Cash, portfolio, rec.Day, rec.NetWorth,
		rec.GameComplete, rec.IsGameActive, stamp(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create user %s: %w", rec.UID, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrExists
	}
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

	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET
			username = COALESCE(NULLIF($2, ''), username),
			cash = $3, portfolio = $4, day = $5, net_worth = $6,
			game_complete = $7, is_game_active = $8, updated_at = $9
		WHERE uid = $1`,
		rec.UID, rec.Username, rec.Cash, portfolio, rec.Day, rec.NetWorth,
		rec.GameComplete, rec.IsGameActive, stamp(rec.UpdatedAt))
	if err != nil {
		return fmt.Errorf("update user %s: %w", rec.UID, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpsertLeaderboard stores e under its uid, replacing any previous entry.
func (s *Store) UpsertLeaderboard(ctx context.Context, e store.LeaderboardEntry) error {
	if s.closed() {
		return store.ErrClosed
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO leaderboard (uid, username, net_worth, ts) VALUES ($1, $2, $3, $4)
		ON CONFLICT (uid) DO UPDATE SET
			username = COALESCE(NULLIF(EXCLUDED.username, ''), leaderboard.username),
			net_worth = EXCLUDED.net_worth,
			ts = EXCLUDED.ts`,
		e.UID, e.Username, e.NetWorth, stamp(e.Timestamp))
	if err != nil {
		return fmt.Errorf("upsert leaderboard %s: %w", e.UID, err)
	}
	return nil
}

// TopLeaderboard returns up to limit entries ordered by net worth, best first.
func (s *Store) TopLeaderboard(ctx context.Context, limit int) ([]store.LeaderboardEntry, error) {
	if s.closed() {
		return nil, store.ErrClosed
	}

	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT uid, username, net_worth, ts FROM leaderboard
		ORDER BY net_worth DESC, ts ASC, uid ASC
		LIMIT $1`, lim)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []store.LeaderboardEntry
	for rows.Next() {
		var e store.LeaderboardEntry
		if err := rows.Scan(&e.UID, &e.Username, &e.NetWorth, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan leaderboard: %w", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

// WatchUser calls fn with the current record of uid and after every change to it.
func (s *Store) WatchUser(ctx context.Context, uid string, fn store.UserWatcher) (store.CancelFunc, error) {
	emit := func(ctx context.Context) error {
		rec, err := s.GetUser(ctx, uid)
		if errors.Is(err, store.ErrNotFound) {
			fn(store.UserRecord{}, false)
			return nil
		}
		if err != nil {
			return err
		}
		fn(rec, true)
		return nil
	}
	match := func(payload string) bool { return payload == uid }
	return s.listen(ctx, usersChannel, match, emit)
}

// WatchLeaderboard calls fn with the top entries now and after every change.
func (s *Store) WatchLeaderboard(ctx context.Context, limit int, fn store.LeaderboardWatcher) (store.CancelFunc, error) {
	emit := func(ctx context.Context) error {
		top, err := s.TopLeaderboard(ctx, limit)
		if err != nil {
			return err
		}
		fn(top)
		return nil
	}
	return s.listen(ctx, leaderboardChannel, func(string) bool { return true }, emit)
}

// listen holds a dedicated connection on channel and calls emit once up
// front and again for every matching notification.
func (s *Store) listen(ctx context.Context, channel string, match func(string) bool, emit func(context.Context) error) (store.CancelFunc, error) {
	if s.closed() {
		return nil, store.ErrClosed
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", channel, err)
	}
	// LISTEN first so nothing written after the initial read is missed
	if err := emit(ctx); err != nil {
		conn.Release()
		return nil, err
	}

	wctx, cancel := context.WithCancel(s.ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			// the connection may be mid-wait; drop it rather than reuse it
			conn.Conn().Close(context.Background())
			conn.Release()
		}()

		for {
			n, err := conn.Conn().WaitForNotification(wctx)
			if err != nil {
				if wctx.Err() == nil {
					s.logger.Warn("listener stopped", "channel", channel, "err", err)
				}
				return
			}
			if !match(n.Payload) {
				continue
			}
			if err := emit(wctx); err != nil && wctx.Err() == nil {
				s.logger.Warn("watch refresh failed", "channel", channel, "err", err)
			}
		}
	}()

	return store.CancelFunc(cancel), nil
}

// Close stops all watches and closes the pool.
func (s *Store) Close() error {
	s.cancel()
	s.wg.Wait()
	s.pool.Close()
	return nil
}

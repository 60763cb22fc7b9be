package leaderboard

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zappabad/stockbroker/internal/store"
)

// FeedMessage is the JSON frame sent to feed clients.
type FeedMessage struct {
	Type    string                   `json:"type"`
	Entries []store.LeaderboardEntry `json:"entries"`
}

const typeLeaderboard = "leaderboard"

// FeedConfig holds configuration for the websocket feed.
type FeedConfig struct {
	PingInterval time.Duration
	// ReadTimeout must exceed PingInterval; a pong extends it.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ClientBuffer int
}

// DefaultFeedConfig returns a FeedConfig with reasonable defaults.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		PingInterval: 30 * time.Second,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 10 * time.Second,
		ClientBuffer: 16,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	out  chan FeedMessage
	done chan struct{}
}

// Feed serves the top entries over websocket: once on connect and after every change.
type Feed struct {
	cfg    FeedConfig
	svc    *Service
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}

	unsubscribe func()
	closed      chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

// NewFeedHandler creates a Feed broadcasting svc's updates. Close it to stop.
func NewFeedHandler(svc *Service, cfg FeedConfig, logger *slog.Logger) *Feed {
	def := DefaultFeedConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.ReadTimeout <= cfg.PingInterval {
		cfg.ReadTimeout = 2 * cfg.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.ClientBuffer <= 0 {
		cfg.ClientBuffer = def.ClientBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}

	updates, unsubscribe := svc.Subscribe()
	f := &Feed{
		cfg:         cfg,
		svc:         svc,
		logger:      logger.With("component", "feed"),
		clients:     make(map[*client]struct{}),
		unsubscribe: unsubscribe,
		closed:      make(chan struct{}),
	}

	f.wg.Add(1)
	go f.run(updates)

	return f
}

func (f *Feed) run(updates <-chan []store.LeaderboardEntry) {
	defer f.wg.Done()
	for {
		select {
		case <-f.closed:
			return
		case entries, ok := <-updates:
			if !ok {
				return
			}
			f.broadcast(FeedMessage{Type: typeLeaderboard, Entries: entries})
		}
	}
}

func (f *Feed) broadcast(msg FeedMessage) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for c := range f.clients {
		select {
		case c.out <- msg:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (f *Feed) Clients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// ServeHTTP upgrades the connection and streams leaderboard frames until the
// client goes away or the feed closes.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Debug("upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	cl := &client{
		conn: conn,
		out:  make(chan FeedMessage, f.cfg.ClientBuffer),
		done: make(chan struct{}),
	}
	cl.out <- FeedMessage{Type: typeLeaderboard, Entries: f.entries()}

	f.mu.Lock()
	f.clients[cl] = struct{}{}
	f.mu.Unlock()
	f.logger.Debug("client connected", "remote", r.RemoteAddr)

	defer func() {
		f.mu.Lock()
		delete(f.clients, cl)
		f.mu.Unlock()
		close(cl.done)
	}()

	go f.writer(cl)

	// Reader: only pongs and close frames matter.
	_ = conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(f.cfg.ReadTimeout))
	})
	go func() {
		select {
		case <-f.closed:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(f.cfg.WriteTimeout))
			conn.Close()
		case <-cl.done:
		}
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *Feed) entries() []store.LeaderboardEntry {
	entries := f.svc.Entries()
	if entries == nil {
		entries = []store.LeaderboardEntry{}
	}
	return entries
}

func (f *Feed) writer(cl *client) {
	ping := time.NewTicker(f.cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case msg := <-cl.out:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout))
			if err := cl.conn.WriteJSON(msg); err != nil {
				cl.conn.Close()
				return
			}
		case <-ping.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cl.conn.Close()
				return
			}
		case <-cl.done:
			return
		}
	}
}

// Close disconnects every client and stops broadcasting.
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		close(f.closed)
		f.unsubscribe()
	})
	f.wg.Wait()
}

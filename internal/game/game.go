package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zappabad/stockbroker/internal/auth"
	"github.com/zappabad/stockbroker/internal/broker"
	brokerservice "github.com/zappabad/stockbroker/internal/broker/service"
	"github.com/zappabad/stockbroker/internal/leaderboard"
	"github.com/zappabad/stockbroker/internal/market"
	marketservice "github.com/zappabad/stockbroker/internal/market/service"
	marketview "github.com/zappabad/stockbroker/internal/market/view"
	"github.com/zappabad/stockbroker/internal/news"
	newsservice "github.com/zappabad/stockbroker/internal/news/service"
	"github.com/zappabad/stockbroker/internal/scheduler"
	"github.com/zappabad/stockbroker/internal/session"
	"github.com/zappabad/stockbroker/internal/store"
	"github.com/zappabad/stockbroker/internal/store/local"
	"github.com/zappabad/stockbroker/internal/syncer"
)

const (
	recentNews   = 5
	recentTrades = 8

	jobPrices = "prices"
	jobNews   = "news"
	jobDay    = "day"
)

var ErrClosed = errors.New("game closed")

// Authenticator is an auth.Provider that can restore a saved user.
type Authenticator interface {
	auth.Provider
	Restore(u auth.User) error
}

// Deps are the collaborators a Game is built from. Only Local is required.
type Deps struct {
	// Local is device storage for the snapshot and settings.
	Local local.Repository
	// Remote holds user records and the leaderboard. Nil plays offline.
	Remote store.DocumentStore
	// Quotes supplies external prices. Nil uses the random walk only.
	Quotes marketservice.QuoteSource
	// Auth signs players in. Nil uses a LocalProvider accepting any address.
	Auth Authenticator
	// Catalog overrides the news catalog.
	Catalog []news.Event
	Logger  *slog.Logger
}

// Game owns all the game subsystems and manages their lifecycle.
type Game struct {
	Market *marketservice.MarketService
	News   *newsservice.NewsService
	Broker *brokerservice.BrokerService
	Clock  *session.Clock
	Sync   *syncer.Syncer
	Board  *leaderboard.Service

	cfg    Config
	auth   Authenticator
	local  local.Repository
	sched  *scheduler.Scheduler
	logger *slog.Logger

	// mu serializes state transitions with the snapshot written for them.
	mu sync.Mutex

	tickMu  sync.Mutex
	ticking bool

	settingsMu sync.Mutex
	settings   store.Settings

	alertMu    sync.Mutex
	alert      *Alert
	alertSeq   uint64
	alertTimer *time.Timer

	subsMu  sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
	dropped atomic.Int64

	ctx         context.Context
	cancel      context.CancelFunc
	unsubMarket func()
	unsubBoard  func()
	started     atomic.Bool
	closed      chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
}

// New creates a Game with the given configuration. Nothing runs until Start.
func New(cfg Config, deps Deps) (*Game, error) {
	if deps.Local == nil {
		return nil, errors.New("game: local repository is required")
	}
	def := DefaultConfig()
	if len(cfg.Instruments) == 0 {
		cfg.Instruments = def.Instruments
	}
	if cfg.MaxDays <= 0 {
		cfg.MaxDays = def.MaxDays
	}
	if cfg.PriceInterval <= 0 {
		cfg.PriceInterval = def.PriceInterval
	}
	if cfg.NewsInterval <= 0 {
		cfg.NewsInterval = def.NewsInterval
	}
	if cfg.DayInterval <= 0 {
		cfg.DayInterval = def.DayInterval
	}
	if cfg.AlertDuration <= 0 {
		cfg.AlertDuration = def.AlertDuration
	}
	if cfg.BrokerConfig.StartingCash <= 0 {
		cfg.BrokerConfig.StartingCash = def.BrokerConfig.StartingCash
	}
	cfg.SyncerConfig.StartingCash = cfg.BrokerConfig.StartingCash

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	catalog := deps.Catalog
	if len(catalog) == 0 {
		catalog = news.DefaultCatalog()
	}
	authn := deps.Auth
	if authn == nil {
		authn = auth.NewLocalProvider(true, nil)
	}

	g := &Game{
		cfg:      cfg,
		auth:     authn,
		local:    deps.Local,
		logger:   logger.With("component", "game"),
		settings: store.Settings{Theme: store.DefaultTheme},
		subs:     make(map[int]chan struct{}),
		closed:   make(chan struct{}),
	}
	g.ctx, g.cancel = context.WithCancel(context.Background())

	// Create session clock
	g.Clock = session.NewClock(cfg.MaxDays)

	// Create market service
	g.Market = marketservice.NewMarketService(cfg.Instruments, cfg.MarketConfig, deps.Quotes, logger)

	// Create news service; it moves prices through the market
	g.News = newsservice.NewNewsService(cfg.NewsConfig, catalog, cfg.Instruments, g.Market, logger)

	// Create broker gated by the session clock
	g.Broker = brokerservice.NewBrokerService(cfg.BrokerConfig, g.Clock)

	g.Sync = syncer.New(cfg.SyncerConfig, deps.Local, deps.Remote, logger)
	g.Board = leaderboard.NewService(cfg.LeaderboardConfig, deps.Remote, logger)
	g.sched = scheduler.New(logger)

	return g, nil
}

// Start restores saved state, resumes a saved sign-in and starts the
// scheduled ticks while the session is active.
func (g *Game) Start(ctx context.Context) error {
	if g.isClosed() {
		return ErrClosed
	}
	if !g.started.CompareAndSwap(false, true) {
		return nil
	}

	settings, err := g.local.LoadSettings()
	if err != nil {
		g.logger.Warn("load settings", "err", err)
	}
	g.settingsMu.Lock()
	g.settings = settings
	if g.settings.Theme == "" {
		g.settings.Theme = store.DefaultTheme
	}
	g.settingsMu.Unlock()

	st, ok, err := g.Sync.Load()
	if err != nil {
		g.logger.Warn("load game state, starting fresh", "err", err)
	}

	g.mu.Lock()
	if ok {
		g.Market.Restore(st.CompanyPrices)
		g.Broker.Restore(st.Account())
		g.Clock.Restore(st.Session())
		g.logger.Info("restored game", "day", st.Day, "cash", st.Cash)
	}
	g.persistLocked()
	g.mu.Unlock()

	g.unsubMarket = g.Market.OnUpdate(g.onMarket)

	// Forward news to subscribers
	g.wg.Add(1)
	go g.drainNews()

	if g.Board.Online() {
		updates, unsub := g.Board.Subscribe()
		g.unsubBoard = unsub
		g.wg.Add(1)
		go g.drainBoard(updates)

		if err := g.Board.Start(ctx); err != nil {
			g.logger.Warn("leaderboard unavailable", "err", err)
		}
	}

	if settings.User != nil {
		if err := g.auth.Restore(*settings.User); err != nil {
			g.logger.Warn("restore sign-in", "err", err)
		} else if err := g.Sync.Attach(ctx, *settings.User, g.applyRemote); err != nil {
			g.logger.Warn("attach remote", "err", err)
		}
	}

	g.sched.Start()
	g.syncTicks(g.Clock.Active())
	g.notify()
	return nil
}

func (g *Game) drainNews() {
	defer g.wg.Done()
	for range g.News.Events() {
		g.notify()
	}
}

func (g *Game) drainBoard(updates <-chan []store.LeaderboardEntry) {
	defer g.wg.Done()
	for range updates {
		g.notify()
	}
}

// onMarket persists every price move. Restores and reseeds are persisted by
// their callers.
func (g *Game) onMarket(ev marketview.MarketEvent) {
	if ev.Source == marketview.SourceRestore {
		return
	}
	g.persist()
	g.notify()
}

// stateLocked builds the persisted snapshot. Caller holds g.mu.
func (g *Game) stateLocked() store.GameState {
	acct := g.Broker.Account()
	cs := g.Clock.State()
	if acct.Holdings == nil {
		acct.Holdings = map[market.InstrumentID]int{}
	}
	return store.GameState{
		Cash:          acct.Cash,
		Portfolio:     acct.Holdings,
		Day:           cs.Day,
		GameComplete:  cs.Complete,
		IsGameActive:  cs.Active,
		CompanyPrices: g.Market.Prices(),
	}
}

func (g *Game) persistLocked() store.GameState {
	st := g.stateLocked()
	if err := g.Sync.Save(st); err != nil {
		g.logger.Error("save game state", "err", err)
	}
	return st
}

// persist saves the current state and republishes net worth.
func (g *Game) persist() {
	g.mu.Lock()
	st := g.persistLocked()
	g.mu.Unlock()

	if u, ok := g.auth.Current(); ok {
		g.Board.PublishAsync(u, st.NetWorth())
	}
}

// State returns the snapshot that would be persisted now.
func (g *Game) State() store.GameState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stateLocked()
}

// applyRemote reconciles local state from the remote record.
func (g *Game) applyRemote(st store.GameState) {
	if g.isClosed() {
		return
	}

	g.mu.Lock()
	g.Broker.Restore(st.Account())
	cs := g.Clock.Restore(st.Session())
	g.persistLocked()
	g.mu.Unlock()

	g.syncTicks(cs.Active)
	g.notify()
}

func (g *Game) syncTicks(active bool) {
	if active {
		g.startTicks()
	} else {
		g.stopTicks()
	}
}

func (g *Game) startTicks() {
	g.tickMu.Lock()
	defer g.tickMu.Unlock()

	if g.ticking || g.isClosed() {
		return
	}
	jobs := []struct {
		name     string
		interval time.Duration
		fn       func()
	}{
		{jobPrices, g.cfg.PriceInterval, func() { g.TickPrices(g.ctx) }},
		{jobNews, g.cfg.NewsInterval, func() { g.StepNews() }},
		{jobDay, g.cfg.DayInterval, func() { g.AdvanceDay() }},
	}
	for _, j := range jobs {
		if err := g.sched.Every(j.name, j.interval, j.fn); err != nil {
			g.logger.Error("schedule job", "job", j.name, "err", err)
		}
	}
	g.ticking = true
}

func (g *Game) stopTicks() {
	g.tickMu.Lock()
	defer g.tickMu.Unlock()

	if !g.ticking {
		return
	}
	g.sched.Remove(jobPrices)
	g.sched.Remove(jobNews)
	g.sched.Remove(jobDay)
	g.ticking = false
}

// Ticking reports whether scheduled ticks are running.
func (g *Game) Ticking() bool {
	g.tickMu.Lock()
	defer g.tickMu.Unlock()
	return g.ticking
}

// TickPrices moves every price once. The market callback persists the result.
func (g *Game) TickPrices(ctx context.Context) marketview.MarketSnapshot {
	if !g.Clock.Active() {
		return g.Market.Snapshot()
	}
	return g.Market.Tick(ctx)
}

// StepNews fires one random news event.
func (g *Game) StepNews() (news.NewsItem, error) {
	if !g.Clock.Active() {
		return news.NewsItem{}, broker.ErrSessionInactive
	}
	item, err := g.News.Step()
	if err != nil {
		g.logger.Warn("news step", "err", err)
	}
	return item, err
}

// AdvanceDay moves the session one day forward. After the last day the
// session completes and every scheduled tick stops.
func (g *Game) AdvanceDay() session.State {
	g.mu.Lock()
	cs, changed := g.Clock.Advance()
	var st store.GameState
	if changed {
		st = g.persistLocked()
	}
	g.mu.Unlock()

	if !changed {
		return cs
	}
	if u, ok := g.auth.Current(); ok {
		g.Board.PublishAsync(u, st.NetWorth())
	}

	if cs.Complete {
		g.stopTicks()
		g.logger.Info("session complete", "net_worth", st.NetWorth())
		g.showAlert(AlertSuccess, fmt.Sprintf("Game complete! Final net worth: $%.2f", st.NetWorth()))
		return cs
	}
	g.logger.Debug("day advanced", "day", cs.Day)
	g.notify()
	return cs
}

// Buy purchases one share of id at its current price.
func (g *Game) Buy(id market.InstrumentID) (broker.Trade, error) {
	return g.trade(id, broker.SideBuy)
}

// Sell sells one share of id at its current price.
func (g *Game) Sell(id market.InstrumentID) (broker.Trade, error) {
	return g.trade(id, broker.SideSell)
}

func (g *Game) trade(id market.InstrumentID, side broker.Side) (broker.Trade, error) {
	if g.isClosed() {
		return broker.Trade{}, ErrClosed
	}

	g.mu.Lock()
	tr, err := g.tradeLocked(id, side)
	var st store.GameState
	if err == nil {
		st = g.persistLocked()
	}
	g.mu.Unlock()

	if err != nil {
		g.showAlert(AlertError, tradeMessage(side, err))
		return broker.Trade{}, err
	}

	if u, ok := g.auth.Current(); ok {
		g.Board.PublishAsync(u, st.NetWorth())
	}
	g.logger.Debug("trade", "side", side, "instrument", id, "price", tr.Price, "cash", tr.CashAfter)
	g.showAlert(AlertSuccess, tradeMessage(side, nil))
	return tr, nil
}

func (g *Game) tradeLocked(id market.InstrumentID, side broker.Side) (broker.Trade, error) {
	price, err := g.Market.Price(id)
	if err != nil {
		return broker.Trade{}, err
	}
	if side == broker.SideBuy {
		return g.Broker.Buy(id, price)
	}
	return g.Broker.Sell(id, price)
}

// Reset starts a new session: starting cash, empty portfolio, day 1, fresh
// prices. Local state is cleared and the initial values are pushed to the
// remote record.
func (g *Game) Reset(ctx context.Context) error {
	if g.isClosed() {
		return ErrClosed
	}

	g.mu.Lock()
	g.Broker.Reset()
	g.Clock.Reset()
	g.Market.Reseed()
	g.News.Reset()
	if err := g.Sync.Clear(); err != nil {
		g.logger.Warn("clear local state", "err", err)
	}
	st := g.persistLocked()
	g.mu.Unlock()

	if u, ok := g.auth.Current(); ok {
		g.Board.PublishAsync(u, st.NetWorth())
	}

	g.syncTicks(true)
	g.logger.Info("game reset")
	g.showAlert(AlertInfo, "Game reset! All progress has been cleared.")
	return nil
}

// SignIn authenticates the player, remembers them on this device and starts
// syncing with their remote record.
func (g *Game) SignIn(ctx context.Context, creds auth.Credentials) (auth.User, error) {
	if g.isClosed() {
		return auth.User{}, ErrClosed
	}

	u, err := g.auth.SignIn(ctx, creds)
	if err != nil {
		g.logger.Info("sign-in failed", "err", err)
		g.showAlert(AlertError, auth.Message(err))
		return auth.User{}, err
	}

	g.updateSettings(func(s *store.Settings) { s.User = &u })

	if err := g.Sync.Attach(ctx, u, g.applyRemote); err != nil {
		g.logger.Warn("attach remote", "uid", u.UID, "err", err)
	}
	g.Board.Forget(u.UID)
	g.Board.PublishAsync(u, g.State().NetWorth())

	g.logger.Info("signed in", "uid", u.UID)
	g.showAlert(AlertSuccess, fmt.Sprintf("Welcome, %s!", u.Name()))
	return u, nil
}

// SignOut stops syncing and forgets the user on this device. Local progress is kept.
func (g *Game) SignOut(ctx context.Context) error {
	if err := g.auth.SignOut(ctx); err != nil {
		g.showAlert(AlertError, "Failed to sign out. Please try again.")
		return err
	}

	g.Sync.Detach()
	g.updateSettings(func(s *store.Settings) { s.User = nil })

	g.logger.Info("signed out")
	g.showAlert(AlertInfo, "Signed out successfully")
	return nil
}

// User returns the signed-in player.
func (g *Game) User() (auth.User, bool) {
	return g.auth.Current()
}

// Theme returns the current theme name.
func (g *Game) Theme() string {
	g.settingsMu.Lock()
	defer g.settingsMu.Unlock()
	return g.settings.Theme
}

// ToggleTheme switches between the dark and light themes and persists the choice.
func (g *Game) ToggleTheme() string {
	var theme string
	g.updateSettings(func(s *store.Settings) {
		if s.Theme == "light" {
			s.Theme = "dark"
		} else {
			s.Theme = "light"
		}
		theme = s.Theme
	})
	g.notify()
	return theme
}

func (g *Game) updateSettings(fn func(*store.Settings)) {
	g.settingsMu.Lock()
	fn(&g.settings)
	s := g.settings
	g.settingsMu.Unlock()

	if err := g.local.SaveSettings(s); err != nil {
		g.logger.Error("save settings", "err", err)
	}
}

// Subscribe returns a channel signalled after every visible change. Signals
// coalesce; call Snapshot to read the new state.
func (g *Game) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	g.subsMu.Lock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = ch
	g.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			g.subsMu.Lock()
			delete(g.subs, id)
			g.subsMu.Unlock()
		})
	}
}

func (g *Game) notify() {
	g.subsMu.Lock()
	defer g.subsMu.Unlock()
	for _, ch := range g.subs {
		select {
		case ch <- struct{}{}:
		default:
			g.dropped.Add(1)
		}
	}
}

// DroppedNotifications returns how many signals were coalesced away.
func (g *Game) DroppedNotifications() int64 {
	return g.dropped.Load()
}

func (g *Game) isClosed() bool {
	select {
	case <-g.closed:
		return true
	default:
		return false
	}
}

// Close shuts down all game subsystems in reverse dependency order.
func (g *Game) Close() {
	g.closeOnce.Do(func() {
		close(g.closed)

		// Stop ticks first and wait for running jobs
		g.stopTicks()
		g.sched.Stop()
		g.cancel()

		if g.unsubMarket != nil {
			g.unsubMarket()
		}

		g.Board.Close()
		if g.unsubBoard != nil {
			g.unsubBoard()
		}
		g.Sync.Close()

		g.News.Close()
		g.Market.Close()

		g.alertMu.Lock()
		if g.alertTimer != nil {
			g.alertTimer.Stop()
		}
		g.alertMu.Unlock()

		g.wg.Wait()
		g.logger.Info("game closed")
	})
}

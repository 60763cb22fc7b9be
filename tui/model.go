package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/stockbroker/internal/game"
	"github.com/zappabad/stockbroker/tui/panels"
	"github.com/zappabad/stockbroker/tui/styles"
)

// PanelFocus represents which panel is currently focused.
type PanelFocus int

const (
	FocusMarket PanelFocus = iota
	FocusPortfolio
	FocusNews
	FocusLeaderboard
	focusCount
)

// actionTimeout bounds sign-in and reset, which may talk to the remote store.
const actionTimeout = 15 * time.Second

// keyMap lists the global bindings shown in the status bar.
type keyMap struct {
	Buy     key.Binding
	Sell    key.Binding
	Focus   key.Binding
	Theme   key.Binding
	Reset   key.Binding
	SignIn  key.Binding
	SignOut key.Binding
	Dismiss key.Binding
	Quit    key.Binding
	Confirm key.Binding
}

var keys = keyMap{
	Buy:     key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "buy")),
	Sell:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sell")),
	Focus:   key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "panels")),
	Theme:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
	Reset:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
	SignIn:  key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "sign in")),
	SignOut: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sign out")),
	Dismiss: key.NewBinding(key.WithKeys("esc", "n"), key.WithHelp("n", "dismiss")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Confirm: key.NewBinding(key.WithKeys("y", "Y")),
}

// Model is the main TUI application model.
type Model struct {
	game *game.Game
	snap game.Snapshot

	updates <-chan struct{}
	unsub   func()
	done    chan struct{}

	// Panels
	marketPanel      *panels.MarketPanel
	chartPanel       *panels.ChartPanel
	portfolioPanel   *panels.PortfolioPanel
	newsPanel        *panels.NewsPanel
	leaderboardPanel *panels.LeaderboardPanel
	signInPanel      *panels.SignInPanel

	// Focus management
	focusedPanel PanelFocus
	signingIn    bool
	confirmReset bool

	// Window dimensions
	width  int
	height int

	ready bool
}

// NewModel creates a new TUI model drawing g.
func NewModel(g *game.Game) *Model {
	updates, unsub := g.Subscribe()
	m := &Model{
		game:             g,
		updates:          updates,
		unsub:            unsub,
		done:             make(chan struct{}),
		marketPanel:      panels.NewMarketPanel(),
		chartPanel:       panels.NewChartPanel(),
		portfolioPanel:   panels.NewPortfolioPanel(),
		newsPanel:        panels.NewNewsPanel(),
		leaderboardPanel: panels.NewLeaderboardPanel(),
		signInPanel:      panels.NewSignInPanel(),
		focusedPanel:     FocusMarket,
	}
	m.refresh()
	return m
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.leaderboardPanel.Init(),
		m.signInPanel.Init(),
		m.listenGame(),
		m.tickRefresh(),
	)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		if m.signingIn {
			var cmd tea.Cmd
			m.signInPanel, cmd = m.signInPanel.Update(msg)
			return m, cmd
		}
		if m.confirmReset {
			m.confirmReset = false
			if key.Matches(msg, keys.Confirm) {
				return m, m.reset()
			}
			return m, nil
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.leaderboardPanel, cmd = m.leaderboardPanel.Update(msg)
		return m, cmd

	case panels.InstrumentSelectedMsg:
		m.refresh()

	case panels.SignInSubmitMsg:
		m.signingIn = false
		m.signInPanel.SetFocus(false)
		return m, m.signIn(msg)

	case gameUpdateMsg:
		m.refresh()
		cmds = append(cmds, m.listenGame())

	case actionDoneMsg:
		m.refresh()

	case tickMsg:
		m.refresh()
		cmds = append(cmds, m.tickRefresh())
	}

	m.updateFocusedPanel(msg, &cmds)

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m.quit(), true
	case msg.String() == "tab":
		m.focusedPanel = (m.focusedPanel + 1) % focusCount
	case msg.String() == "shift+tab":
		m.focusedPanel = (m.focusedPanel + focusCount - 1) % focusCount
	case key.Matches(msg, keys.Buy):
		return m.trade(true), true
	case key.Matches(msg, keys.Sell):
		return m.trade(false), true
	case key.Matches(msg, keys.Theme):
		styles.Apply(m.game.ToggleTheme())
	case key.Matches(msg, keys.Reset):
		m.confirmReset = true
	case key.Matches(msg, keys.SignIn):
		if m.snap.User == nil {
			m.signingIn = true
			m.signInPanel.Reset()
			m.signInPanel.SetFocus(true)
		}
	case key.Matches(msg, keys.SignOut):
		if m.snap.User != nil {
			return m.signOut(), true
		}
	case key.Matches(msg, keys.Dismiss):
		m.game.DismissAlert()
		m.game.News.Dismiss()
		m.refresh()
	default:
		return nil, false
	}
	return nil, true
}

func (m *Model) updateFocusedPanel(msg tea.Msg, cmds *[]tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); !ok {
		return
	}

	m.applyFocus()

	var cmd tea.Cmd
	switch m.focusedPanel {
	case FocusMarket:
		m.marketPanel, cmd = m.marketPanel.Update(msg)
	case FocusPortfolio:
		m.portfolioPanel, cmd = m.portfolioPanel.Update(msg)
	case FocusNews:
		m.newsPanel, cmd = m.newsPanel.Update(msg)
	case FocusLeaderboard:
		m.leaderboardPanel, cmd = m.leaderboardPanel.Update(msg)
	}

	if cmd != nil {
		*cmds = append(*cmds, cmd)
	}
}

func (m *Model) applyFocus() {
	m.marketPanel.SetFocus(m.focusedPanel == FocusMarket && !m.signingIn)
	m.portfolioPanel.SetFocus(m.focusedPanel == FocusPortfolio && !m.signingIn)
	m.newsPanel.SetFocus(m.focusedPanel == FocusNews && !m.signingIn)
	m.leaderboardPanel.SetFocus(m.focusedPanel == FocusLeaderboard && !m.signingIn)
}

// refresh pulls a fresh snapshot from the game into every panel.
func (m *Model) refresh() {
	snap := m.game.Snapshot()
	m.snap = snap

	if snap.Theme != styles.Current() {
		styles.Apply(snap.Theme)
	}

	m.marketPanel.SetSnapshot(snap.Market, snap.Holdings)
	if q, ok := snap.Market.Find(m.marketPanel.Selected().ID); ok {
		m.chartPanel.SetQuote(q)
	}
	m.portfolioPanel.SetSnapshot(snap)
	m.newsPanel.SetNews(snap.News, snap.RecentNews)
	m.leaderboardPanel.SetEntries(snap.Leaderboard, snap.LeaderboardLoading, snap.Online)
	m.leaderboardPanel.SetUser(snap.User, snap.Rank)
}

// View renders the UI.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	m.applyFocus()

	// Layout:
	// ┌──────────────────────────────────────────────┐
	// │ header: day, player, alert                   │
	// ├───────────────┬───────────────┬──────────────┤
	// │    Market     │     Chart     │ Leaderboard  │
	// ├───────────────┼───────────────┴──────────────┤
	// │     News      │          Portfolio           │
	// └───────────────┴──────────────────────────────┘

	header := m.renderHeader()
	statusBar := m.renderStatusBar()
	body := m.height - lipgloss.Height(header) - lipgloss.Height(statusBar)

	leftWidth := m.width * 2 / 5
	middleWidth := m.width * 3 / 10
	rightWidth := m.width - leftWidth - middleWidth

	topHeight := body / 2
	bottomHeight := body - topHeight

	m.marketPanel.SetSize(leftWidth, topHeight)
	m.chartPanel.SetSize(middleWidth, topHeight)

	var right string
	if m.signingIn {
		m.signInPanel.SetSize(rightWidth, topHeight)
		right = m.signInPanel.View()
	} else {
		m.leaderboardPanel.SetSize(rightWidth, topHeight)
		right = m.leaderboardPanel.View()
	}

	topRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.marketPanel.View(),
		m.chartPanel.View(),
		right,
	)

	m.newsPanel.SetSize(leftWidth, bottomHeight)
	m.portfolioPanel.SetSize(m.width-leftWidth, bottomHeight)

	bottomRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.newsPanel.View(),
		m.portfolioPanel.View(),
	)

	return lipgloss.JoinVertical(lipgloss.Left, header, topRow, bottomRow, statusBar)
}

func (m *Model) renderHeader() string {
	s := m.snap

	day := fmt.Sprintf("Day %d/%d", s.Session.Day, s.MaxDays)
	player := "Guest"
	if s.User != nil {
		player = s.User.Name()
	}
	left := styles.TitleStyle.Render("StockBroker") +
		styles.LabelStyle.Render(fmt.Sprintf("  %s  ·  %s  ·  Net worth %s", day, player, styles.FormatMoney(s.NetWorth)))

	right := ""
	switch {
	case m.confirmReset:
		right = styles.AlertErrorStyle.Render("Reset game? All progress will be lost. (y/n)")
	case s.Alert != nil:
		right = alertStyle(s.Alert.Kind).Render(s.Alert.Message)
	}

	line := lipgloss.JoinHorizontal(lipgloss.Center, left, "  ", right)
	if !s.Session.Complete {
		return line
	}

	banner := styles.BannerStyle.Width(m.width).Render(fmt.Sprintf(
		"Game complete! Final net worth %s (%s). Press r to play again.",
		styles.FormatMoney(s.NetWorth), styles.FormatChange(pctOf(s.ProfitLoss(), s.StartingCash))))
	return lipgloss.JoinVertical(lipgloss.Left, line, banner)
}

func alertStyle(kind game.AlertKind) lipgloss.Style {
	switch kind {
	case game.AlertSuccess:
		return styles.AlertSuccessStyle
	case game.AlertError:
		return styles.AlertErrorStyle
	default:
		return styles.AlertInfoStyle
	}
}

func pctOf(v, base float64) float64 {
	if base == 0 {
		return 0
	}
	return v / base * 100
}

func (m *Model) renderStatusBar() string {
	bindings := []key.Binding{keys.Buy, keys.Sell, keys.Focus, keys.Theme, keys.Reset, keys.SignIn, keys.Dismiss, keys.Quit}
	if m.snap.User != nil {
		bindings[5] = keys.SignOut
	}

	var help []string
	for _, b := range bindings {
		h := b.Help()
		help = append(help, styles.StatusBarKeyStyle.Render(h.Key)+styles.StatusBarDescStyle.Render(" "+h.Desc))
	}

	helpStr := help[0]
	for _, h := range help[1:] {
		helpStr = lipgloss.JoinHorizontal(lipgloss.Center, helpStr, " │ ", h)
	}

	status := ""
	if !m.snap.Online {
		status = " │ offline"
	}
	return styles.StatusBarStyle.Width(m.width).Render(helpStr + status)
}

func (m *Model) trade(buy bool) tea.Cmd {
	inst := m.marketPanel.Selected()
	if inst.ID == 0 {
		return nil
	}
	return func() tea.Msg {
		var err error
		if buy {
			_, err = m.game.Buy(inst.ID)
		} else {
			_, err = m.game.Sell(inst.ID)
		}
		return actionDoneMsg{err: err}
	}
}

func (m *Model) reset() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{err: m.game.Reset(ctx)}
	}
}

func (m *Model) signIn(msg panels.SignInSubmitMsg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		_, err := m.game.SignIn(ctx, msg.Credentials)
		return actionDoneMsg{err: err}
	}
}

func (m *Model) signOut() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{err: m.game.SignOut(ctx)}
	}
}

func (m *Model) quit() tea.Cmd {
	select {
	case <-m.done:
	default:
		close(m.done)
		m.unsub()
	}
	return tea.Quit
}

// listenGame waits for the next change signalled by the game.
func (m *Model) listenGame() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.updates:
			return gameUpdateMsg{}
		case <-m.done:
			return nil
		}
	}
}

// tickMsg is sent periodically to refresh data.
type tickMsg struct{}

func (m *Model) tickRefresh() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg{}
	})
}

// gameUpdateMsg is sent when the game signals a change.
type gameUpdateMsg struct{}

// actionDoneMsg is sent after a player action completes. Failures are
// surfaced to the player through game alerts.
type actionDoneMsg struct {
	err error
}

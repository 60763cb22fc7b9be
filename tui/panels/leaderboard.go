package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/stockbroker/internal/auth"
	"github.com/zappabad/stockbroker/internal/store"
	"github.com/zappabad/stockbroker/tui/styles"
)

// LeaderboardPanel shows the top players by net worth.
type LeaderboardPanel struct {
	entries []store.LeaderboardEntry
	loading bool
	online  bool
	user    *auth.User
	rank    int
	spinner spinner.Model

	focused bool
	width   int
	height  int
}

// NewLeaderboardPanel creates a new leaderboard panel.
func NewLeaderboardPanel() *LeaderboardPanel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &LeaderboardPanel{spinner: sp}
}

// Init starts the loading spinner.
func (p *LeaderboardPanel) Init() tea.Cmd {
	return p.spinner.Tick
}

// Update advances the spinner. It must see every message, focused or not.
func (p *LeaderboardPanel) Update(msg tea.Msg) (*LeaderboardPanel, tea.Cmd) {
	if _, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd
	}
	return p, nil
}

// View renders the panel.
func (p *LeaderboardPanel) View() string {
	var content strings.Builder

	switch {
	case !p.online:
		content.WriteString(styles.MutedStyle.Render("Leaderboard offline"))
	case p.loading:
		content.WriteString(p.spinner.View() + " Loading leaderboard...")
	case len(p.entries) == 0:
		content.WriteString(styles.MutedStyle.Render("No scores yet"))
	default:
		content.WriteString(styles.HeaderStyle.Render(fmt.Sprintf("%-4s %-14s %14s", "#", "Player", "Net worth")))
		for i, e := range p.entries {
			row := fmt.Sprintf("%-4d %-14s %14s", i+1, truncate(e.Username, 14), styles.FormatMoney(e.NetWorth))
			style := styles.RowStyle
			if p.user != nil && e.UID == p.user.UID {
				style = styles.SelectedRowStyle
			}
			content.WriteString("\n")
			content.WriteString(style.Render(row))
		}
	}

	content.WriteString("\n\n")
	switch {
	case p.user == nil:
		content.WriteString(styles.MutedStyle.Render("Press l to sign in and compete"))
	case p.rank > 0:
		content.WriteString(styles.LabelStyle.Render(fmt.Sprintf("%s, you are #%d", p.user.Name(), p.rank)))
	default:
		content.WriteString(styles.LabelStyle.Render(fmt.Sprintf("Signed in as %s", p.user.Name())))
	}

	title := styles.RenderTitle("🏆 Leaderboard", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return styles.Panel(p.focused).Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// SetFocus sets the focus state of the panel.
func (p *LeaderboardPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *LeaderboardPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetEntries replaces the board contents.
func (p *LeaderboardPanel) SetEntries(entries []store.LeaderboardEntry, loading, online bool) {
	p.entries = entries
	p.loading = loading
	p.online = online
}

// SetUser sets the signed-in player and their rank, 0 when unranked.
func (p *LeaderboardPanel) SetUser(u *auth.User, rank int) {
	p.user = u
	p.rank = rank
}

package panels

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/stockbroker/internal/broker"
	"github.com/zappabad/stockbroker/internal/game"
	"github.com/zappabad/stockbroker/internal/market"
	"github.com/zappabad/stockbroker/tui/styles"
)

// PortfolioPanel shows the account summary, current holdings and recent trades.
type PortfolioPanel struct {
	snap         game.Snapshot
	names        map[market.InstrumentID]string
	scrollOffset int
	focused      bool
	width        int
	height       int
}

// NewPortfolioPanel creates a new portfolio panel.
func NewPortfolioPanel() *PortfolioPanel {
	return &PortfolioPanel{names: make(map[market.InstrumentID]string)}
}

// Init initializes the panel.
func (p *PortfolioPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *PortfolioPanel) Update(msg tea.Msg) (*PortfolioPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if p.scrollOffset > 0 {
				p.scrollOffset--
			}
		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if p.scrollOffset < len(p.snap.Trades)-1 {
				p.scrollOffset++
			}
		}
	}
	return p, nil
}

// View renders the panel.
func (p *PortfolioPanel) View() string {
	var content strings.Builder
	s := p.snap

	content.WriteString(p.summaryLine("Cash", styles.PriceStyle.Render(styles.FormatMoney(s.Cash))))
	content.WriteString(p.summaryLine("Portfolio", styles.PriceStyle.Render(styles.FormatMoney(s.PortfolioValue))))
	content.WriteString(p.summaryLine("Net worth", styles.PriceStyle.Bold(true).Render(styles.FormatMoney(s.NetWorth))))
	pl := s.ProfitLoss()
	content.WriteString(p.summaryLine("P/L", styles.ChangeStyle(pl).Render(signedMoney(pl))))
	content.WriteString("\n")

	content.WriteString(styles.HeaderStyle.Render(fmt.Sprintf("%-10s %6s %12s", "Holding", "Shares", "Value")))
	content.WriteString("\n")
	held := 0
	for _, q := range s.Market.Quotes {
		n := s.Holdings[q.Instrument.ID]
		if n == 0 {
			continue
		}
		held++
		row := fmt.Sprintf("%-10s %6d %12s", truncate(q.Instrument.Name, 10), n, styles.FormatMoney(float64(n)*q.Price))
		content.WriteString(styles.RowStyle.Render(row))
		content.WriteString("\n")
	}
	if held == 0 {
		content.WriteString(styles.MutedStyle.Render("No shares held"))
		content.WriteString("\n")
	}

	content.WriteString("\n")
	content.WriteString(styles.HeaderStyle.Render("Recent trades"))
	content.WriteString("\n")
	content.WriteString(p.renderTrades())

	title := styles.RenderTitle("💼 Portfolio", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return styles.Panel(p.focused).Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func (p *PortfolioPanel) summaryLine(label, value string) string {
	return styles.LabelStyle.Render(fmt.Sprintf("%-10s ", label)) + value + "\n"
}

func (p *PortfolioPanel) renderTrades() string {
	trades := p.snap.Trades
	if len(trades) == 0 {
		return styles.MutedStyle.Render("No trades yet")
	}

	var b strings.Builder
	// newest first
	for i := len(trades) - 1 - p.scrollOffset; i >= 0; i-- {
		tr := trades[i]
		side := styles.BuyStyle.Render("BUY ")
		if tr.Side == broker.SideSell {
			side = styles.SellStyle.Render("SELL")
		}
		ts := styles.TimeStyle.Render(time.Unix(0, tr.Time).Format("15:04:05"))
		fmt.Fprintf(&b, "%s %s %-10s %s", ts, side, truncate(p.names[tr.Instrument], 10), styles.PriceStyle.Render(styles.FormatPrice(tr.Price)))
		if i > 0 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// SetFocus sets the focus state of the panel.
func (p *PortfolioPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *PortfolioPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetSnapshot replaces the data the panel draws.
func (p *PortfolioPanel) SetSnapshot(snap game.Snapshot) {
	p.snap = snap
	for _, q := range snap.Market.Quotes {
		p.names[q.Instrument.ID] = q.Instrument.Name
	}
	if p.scrollOffset >= len(snap.Trades) {
		p.scrollOffset = max(len(snap.Trades)-1, 0)
	}
}

func signedMoney(v float64) string {
	if v > 0 {
		return "+" + styles.FormatMoney(v)
	}
	return styles.FormatMoney(v)
}

package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/stockbroker/internal/market"
	marketview "github.com/zappabad/stockbroker/internal/market/view"
	"github.com/zappabad/stockbroker/tui/styles"
)

// MarketPanel lists every company with its price, last move and shares held.
type MarketPanel struct {
	quotes        []marketview.Quote
	holdings      map[market.InstrumentID]int
	selectedIndex int
	focused       bool
	width         int
	height        int
}

// NewMarketPanel creates a new market panel.
func NewMarketPanel() *MarketPanel {
	return &MarketPanel{}
}

// Init initializes the panel.
func (p *MarketPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *MarketPanel) Update(msg tea.Msg) (*MarketPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		prev := p.selectedIndex
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if p.selectedIndex > 0 {
				p.selectedIndex--
			}
		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if p.selectedIndex < len(p.quotes)-1 {
				p.selectedIndex++
			}
		}
		if p.selectedIndex != prev {
			inst := p.Selected()
			return p, func() tea.Msg { return InstrumentSelectedMsg{Instrument: inst} }
		}
	}
	return p, nil
}

// View renders the panel.
func (p *MarketPanel) View() string {
	var content strings.Builder

	header := fmt.Sprintf("%-10s %-5s %10s %8s %5s", "Company", "Sym", "Price", "Chg", "Held")
	content.WriteString(styles.HeaderStyle.Render(header))
	content.WriteString("\n")

	for i, q := range p.quotes {
		name := fmt.Sprintf("%-10s %-5s %10s ", truncate(q.Instrument.Name, 10), q.Instrument.Symbol, styles.FormatPrice(q.Price))
		change := styles.ChangeStyle(q.Price - q.Prev).Render(fmt.Sprintf("%8s", styles.FormatChange(q.ChangePct())))
		held := fmt.Sprintf(" %5d", p.holdings[q.Instrument.ID])

		style := styles.RowStyle
		if i == p.selectedIndex {
			style = styles.SelectedRowStyle
		}
		content.WriteString(style.Render(name) + change + style.Render(held))
		if i < len(p.quotes)-1 {
			content.WriteString("\n")
		}
	}

	title := styles.RenderTitle("📈 Market", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return styles.Panel(p.focused).Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// SetFocus sets the focus state of the panel.
func (p *MarketPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *MarketPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetSnapshot replaces the quotes and the share counts shown next to them.
func (p *MarketPanel) SetSnapshot(snap marketview.MarketSnapshot, holdings map[market.InstrumentID]int) {
	p.quotes = snap.Quotes
	p.holdings = holdings
	if p.selectedIndex >= len(p.quotes) {
		p.selectedIndex = max(len(p.quotes)-1, 0)
	}
}

// Selected returns the highlighted company.
func (p *MarketPanel) Selected() market.Instrument {
	if p.selectedIndex >= 0 && p.selectedIndex < len(p.quotes) {
		return p.quotes[p.selectedIndex].Instrument
	}
	return market.Instrument{}
}

// InstrumentSelectedMsg is sent when the highlighted company changes.
type InstrumentSelectedMsg struct {
	Instrument market.Instrument
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

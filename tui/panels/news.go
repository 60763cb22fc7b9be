package panels

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/stockbroker/internal/news"
	"github.com/zappabad/stockbroker/tui/styles"
)

// NewsPanel shows the notice on display and the recent news log.
type NewsPanel struct {
	current       *news.NewsItem
	news          []news.NewsItem // newest first
	selectedIndex int
	scrollOffset  int
	focused       bool
	width         int
	height        int
}

// NewNewsPanel creates a new news panel.
func NewNewsPanel() *NewsPanel {
	return &NewsPanel{}
}

// Init initializes the panel.
func (p *NewsPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *NewsPanel) Update(msg tea.Msg) (*NewsPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if p.selectedIndex > 0 {
				p.selectedIndex--
				if p.selectedIndex < p.scrollOffset {
					p.scrollOffset = p.selectedIndex
				}
			}
		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if p.selectedIndex < len(p.news)-1 {
				p.selectedIndex++
				visibleItems := p.visibleItems()
				if p.selectedIndex >= p.scrollOffset+visibleItems {
					p.scrollOffset = p.selectedIndex - visibleItems + 1
				}
			}
		}
	}
	return p, nil
}

func (p *NewsPanel) visibleItems() int {
	// title, notice line, borders
	return max(p.height-5, 1)
}

// View renders the panel.
func (p *NewsPanel) View() string {
	var content strings.Builder

	if p.current != nil {
		content.WriteString(styles.NewsImportantStyle.Render("BREAKING "))
		content.WriteString(p.headline(*p.current, p.width-16))
	} else {
		content.WriteString(styles.MutedStyle.Render("No breaking news"))
	}
	content.WriteString("\n")

	if len(p.news) == 0 {
		content.WriteString(styles.MutedStyle.Render("No news yet"))
	} else {
		visibleItems := p.visibleItems()
		start := p.scrollOffset
		end := min(start+visibleItems, len(p.news))

		for i := start; i < end; i++ {
			item := p.news[i]
			ts := styles.TimeStyle.Render(time.Unix(0, item.Time).Format("15:04:05"))
			line := fmt.Sprintf("%s %s", ts, p.headline(item, p.width-22))
			if i == p.selectedIndex && p.focused {
				line = styles.SelectedRowStyle.Render(line)
			}
			content.WriteString(line)
			if i < end-1 {
				content.WriteString("\n")
			}
		}
	}

	title := styles.RenderTitle("📰 News", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return styles.Panel(p.focused).Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// headline renders "Company: title (+x.x%)" clipped to width.
func (p *NewsPanel) headline(item news.NewsItem, width int) string {
	impact := styles.ChangeStyle(item.Impact).Render(fmt.Sprintf("(%+.1f%%)", item.Impact))
	text := truncate(fmt.Sprintf("%s: %s", item.Company, item.Headline), max(width-9, 10))
	return styles.NewsNormalStyle.Render(text) + " " + impact
}

// SetFocus sets the focus state of the panel.
func (p *NewsPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *NewsPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetNews sets the notice on display and the log, given oldest first.
func (p *NewsPanel) SetNews(current *news.NewsItem, items []news.NewsItem) {
	p.current = current
	p.news = make([]news.NewsItem, len(items))
	for i, item := range items {
		p.news[len(items)-1-i] = item
	}
	if p.selectedIndex >= len(p.news) {
		p.selectedIndex = max(len(p.news)-1, 0)
	}
	if p.scrollOffset > p.selectedIndex {
		p.scrollOffset = p.selectedIndex
	}
}

// SelectedNews returns the currently selected news item.
func (p *NewsPanel) SelectedNews() *news.NewsItem {
	if p.selectedIndex >= 0 && p.selectedIndex < len(p.news) {
		return &p.news[p.selectedIndex]
	}
	return nil
}

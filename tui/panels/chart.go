package panels

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/stockbroker/internal/market"
	marketview "github.com/zappabad/stockbroker/internal/market/view"
	"github.com/zappabad/stockbroker/tui/styles"
)

// ChartPanel plots the recent price history of one company.
type ChartPanel struct {
	instrument market.Instrument
	history    []float64

	focused bool
	width   int
	height  int
}

// NewChartPanel creates a new chart panel.
func NewChartPanel() *ChartPanel {
	return &ChartPanel{}
}

// Init initializes the panel.
func (p *ChartPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *ChartPanel) Update(msg tea.Msg) (*ChartPanel, tea.Cmd) {
	return p, nil
}

// View renders the panel.
func (p *ChartPanel) View() string {
	name := "No company"
	if p.instrument.Name != "" {
		name = p.instrument.Name
	}

	var content strings.Builder
	if len(p.history) < 2 {
		content.WriteString(styles.MutedStyle.Render("Waiting for price moves..."))
	} else {
		content.WriteString(p.renderChart(p.width-4, p.height-4, p.history))
	}

	title := styles.RenderTitle(fmt.Sprintf("📉 Chart - %s", name), p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return styles.Panel(p.focused).Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func (p *ChartPanel) renderChart(width, height int, samples []float64) string {
	// 9 chars for the price axis, 1 for the separator, 3 per sample
	columns := max((width-10)/3, 1)
	if len(samples) > columns {
		samples = samples[len(samples)-columns:]
	}

	minPrice, maxPrice := samples[0], samples[0]
	for _, v := range samples {
		minPrice = min(minPrice, v)
		maxPrice = max(maxPrice, v)
	}
	padding := (maxPrice - minPrice) * 0.1
	if padding < 0.01 {
		padding = 0.01
	}
	minPrice -= padding
	maxPrice += padding

	chartHeight := max(height-2, 3)

	rows := make([]int, len(samples))
	for i, v := range samples {
		rows[i] = priceToY(v, minPrice, maxPrice, chartHeight)
	}

	var result strings.Builder
	for row := 0; row < chartHeight; row++ {
		label := styles.FormatPrice(yToPrice(row, minPrice, maxPrice, chartHeight))
		result.WriteString(styles.ChartAxisStyle.Render(fmt.Sprintf("%8s │", label)))

		for i, v := range samples {
			style := styles.CandleUpStyle
			if i > 0 && v < samples[i-1] {
				style = styles.CandleDownStyle
			}
			result.WriteString(" ")
			result.WriteString(style.Render(string(sampleChar(rows, i, row))))
			result.WriteString(" ")
		}
		result.WriteString("\n")
	}

	result.WriteString(styles.ChartAxisStyle.Render("─────────┴" + strings.Repeat("───", len(samples))))
	result.WriteString("\n")
	last := samples[len(samples)-1]
	result.WriteString(styles.ChartLabelStyle.Render(fmt.Sprintf("          last %s over %d samples", styles.FormatPrice(last), len(samples))))

	return result.String()
}

// sampleChar draws sample i at row, joining it to the previous sample with a
// vertical stroke.
func sampleChar(rows []int, i, row int) rune {
	y := rows[i]
	if row == y {
		return '●'
	}
	if i == 0 {
		return ' '
	}
	prev := rows[i-1]
	lo, hi := min(prev, y), max(prev, y)
	if row > lo && row < hi {
		return '│'
	}
	return ' '
}

func priceToY(price, minPrice, maxPrice float64, height int) int {
	if maxPrice == minPrice {
		return height / 2
	}
	ratio := (maxPrice - price) / (maxPrice - minPrice)
	y := int(ratio*float64(height-1) + 0.5)
	if y < 0 {
		y = 0
	}
	if y >= height {
		y = height - 1
	}
	return y
}

func yToPrice(y int, minPrice, maxPrice float64, height int) float64 {
	if height <= 1 {
		return minPrice
	}
	ratio := float64(y) / float64(height-1)
	return maxPrice - ratio*(maxPrice-minPrice)
}

// SetFocus sets the focus state of the panel.
func (p *ChartPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *ChartPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetQuote shows the history carried by q.
func (p *ChartPanel) SetQuote(q marketview.Quote) {
	p.instrument = q.Instrument
	p.history = q.History
}

// Instrument returns the company being charted.
func (p *ChartPanel) Instrument() market.Instrument {
	return p.instrument
}

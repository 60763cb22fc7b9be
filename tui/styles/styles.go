package styles

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Palette is the set of colors a theme is drawn with.
type Palette struct {
	Primary   lipgloss.Color
	Accent    lipgloss.Color
	Up        lipgloss.Color
	Down      lipgloss.Color
	Neutral   lipgloss.Color
	Bar       lipgloss.Color
	Selected  lipgloss.Color
	Border    lipgloss.Color
	Focus     lipgloss.Color
	Text      lipgloss.Color
	Secondary lipgloss.Color
	Muted     lipgloss.Color
}

// Theme names accepted by Apply.
const (
	ThemeDark  = "dark"
	ThemeLight = "light"
)

// Dark is the default palette.
var Dark = Palette{
	Primary:   lipgloss.Color("#7C3AED"), // Purple
	Accent:    lipgloss.Color("#F59E0B"), // Amber
	Up:        lipgloss.Color("#10B981"), // Green
	Down:      lipgloss.Color("#EF4444"), // Red
	Neutral:   lipgloss.Color("#6B7280"), // Gray
	Bar:       lipgloss.Color("#1F2937"),
	Selected:  lipgloss.Color("#374151"),
	Border:    lipgloss.Color("#374151"),
	Focus:     lipgloss.Color("#7C3AED"),
	Text:      lipgloss.Color("#F9FAFB"),
	Secondary: lipgloss.Color("#9CA3AF"),
	Muted:     lipgloss.Color("#6B7280"),
}

// Light is the palette for bright terminals.
var Light = Palette{
	Primary:   lipgloss.Color("#6D28D9"),
	Accent:    lipgloss.Color("#B45309"),
	Up:        lipgloss.Color("#047857"),
	Down:      lipgloss.Color("#B91C1C"),
	Neutral:   lipgloss.Color("#6B7280"),
	Bar:       lipgloss.Color("#E5E7EB"),
	Selected:  lipgloss.Color("#DDD6FE"),
	Border:    lipgloss.Color("#D1D5DB"),
	Focus:     lipgloss.Color("#6D28D9"),
	Text:      lipgloss.Color("#111827"),
	Secondary: lipgloss.Color("#374151"),
	Muted:     lipgloss.Color("#9CA3AF"),
}

var current = ThemeDark

// Panel styles
var (
	PanelStyle        lipgloss.Style
	FocusedPanelStyle lipgloss.Style
	TitleStyle        lipgloss.Style
	HeaderStyle       lipgloss.Style
	RowStyle          lipgloss.Style
	SelectedRowStyle  lipgloss.Style
)

// Text styles
var (
	BuyStyle           lipgloss.Style
	SellStyle          lipgloss.Style
	PriceStyle         lipgloss.Style
	PriceUpStyle       lipgloss.Style
	PriceDownStyle     lipgloss.Style
	SizeStyle          lipgloss.Style
	TimeStyle          lipgloss.Style
	MutedStyle         lipgloss.Style
	NewsNormalStyle    lipgloss.Style
	NewsImportantStyle lipgloss.Style
	BannerStyle        lipgloss.Style
)

// Input styles
var (
	InputStyle        lipgloss.Style
	FocusedInputStyle lipgloss.Style
	LabelStyle        lipgloss.Style
	PlaceholderStyle  lipgloss.Style
)

// Chart styles
var (
	CandleUpStyle   lipgloss.Style
	CandleDownStyle lipgloss.Style
	ChartAxisStyle  lipgloss.Style
	ChartLabelStyle lipgloss.Style
)

// Status bar and alert styles
var (
	StatusBarStyle     lipgloss.Style
	StatusBarKeyStyle  lipgloss.Style
	StatusBarDescStyle lipgloss.Style
	AlertInfoStyle     lipgloss.Style
	AlertSuccessStyle  lipgloss.Style
	AlertErrorStyle    lipgloss.Style
)

func init() {
	build(Dark)
}

// Apply switches every style to the named theme. Unknown names fall back to dark.
// It must be called from the UI goroutine.
func Apply(theme string) {
	p := Dark
	current = ThemeDark
	if strings.EqualFold(theme, ThemeLight) {
		p = Light
		current = ThemeLight
	}
	build(p)
}

// Current returns the theme last passed to Apply.
func Current() string {
	return current
}

func build(p Palette) {
	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Padding(0, 1)
	FocusedPanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Focus).
		Padding(0, 1)
	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Primary).
		Padding(0, 1)
	HeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Secondary)
	RowStyle = lipgloss.NewStyle().
		Foreground(p.Text)
	SelectedRowStyle = lipgloss.NewStyle().
		Foreground(p.Text).
		Background(p.Selected)

	BuyStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Up)
	SellStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Down)
	PriceStyle = lipgloss.NewStyle().
		Foreground(p.Text)
	PriceUpStyle = lipgloss.NewStyle().
		Foreground(p.Up)
	PriceDownStyle = lipgloss.NewStyle().
		Foreground(p.Down)
	SizeStyle = lipgloss.NewStyle().
		Foreground(p.Secondary)
	TimeStyle = lipgloss.NewStyle().
		Foreground(p.Muted)
	MutedStyle = lipgloss.NewStyle().
		Foreground(p.Muted).
		Italic(true)
	NewsNormalStyle = lipgloss.NewStyle().
		Foreground(p.Text)
	NewsImportantStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Accent)
	BannerStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Text).
		Background(p.Primary).
		Padding(0, 2)

	InputStyle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(p.Border).
		Padding(0, 1)
	FocusedInputStyle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(p.Focus).
		Padding(0, 1)
	LabelStyle = lipgloss.NewStyle().
		Foreground(p.Secondary)
	PlaceholderStyle = lipgloss.NewStyle().
		Foreground(p.Muted)

	CandleUpStyle = lipgloss.NewStyle().
		Foreground(p.Up)
	CandleDownStyle = lipgloss.NewStyle().
		Foreground(p.Down)
	ChartAxisStyle = lipgloss.NewStyle().
		Foreground(p.Muted)
	ChartLabelStyle = lipgloss.NewStyle().
		Foreground(p.Secondary)

	StatusBarStyle = lipgloss.NewStyle().
		Background(p.Bar).
		Foreground(p.Secondary).
		Padding(0, 1)
	StatusBarKeyStyle = lipgloss.NewStyle().
		Foreground(p.Primary).
		Bold(true)
	StatusBarDescStyle = lipgloss.NewStyle().
		Foreground(p.Secondary)
	AlertInfoStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Text).
		Background(p.Neutral).
		Padding(0, 1)
	AlertSuccessStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(p.Up).
		Padding(0, 1)
	AlertErrorStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(p.Down).
		Padding(0, 1)
}

// RenderTitle renders a title bar for a panel.
func RenderTitle(title string, focused bool) string {
	style := TitleStyle
	if focused {
		style = style.Foreground(FocusedPanelStyle.GetBorderTopForeground())
	}
	return style.Render(title)
}

// Panel returns the frame style for a panel in the given focus state.
func Panel(focused bool) lipgloss.Style {
	if focused {
		return FocusedPanelStyle
	}
	return PanelStyle
}

// FormatPrice formats a price with two decimals.
func FormatPrice(price float64) string {
	return fmt.Sprintf("%.2f", price)
}

// FormatMoney formats an amount as dollars with thousands separators.
func FormatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := fmt.Sprintf("%.2f", v)
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}

// FormatChange formats a percent move with an explicit sign.
func FormatChange(pct float64) string {
	return fmt.Sprintf("%+.2f%%", pct)
}

// ChangeStyle picks the up, down or flat style for a signed value.
func ChangeStyle(v float64) lipgloss.Style {
	switch {
	case v > 0:
		return PriceUpStyle
	case v < 0:
		return PriceDownStyle
	default:
		return PriceStyle
	}
}

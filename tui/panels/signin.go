package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/stockbroker/internal/auth"
	"github.com/zappabad/stockbroker/tui/styles"
)

// SignInField represents the currently focused form field.
type SignInField int

const (
	FieldName SignInField = iota
	FieldEmail
	FieldSubmit
)

// SignInPanel collects a display name and email address.
type SignInPanel struct {
	nameInput    textinput.Model
	emailInput   textinput.Model
	currentField SignInField

	focused bool
	width   int
	height  int
}

// NewSignInPanel creates a new sign-in form.
func NewSignInPanel() *SignInPanel {
	nameInput := textinput.New()
	nameInput.Placeholder = "Display name"
	nameInput.Width = 24
	nameInput.CharLimit = 32

	emailInput := textinput.New()
	emailInput.Placeholder = "you@example.com"
	emailInput.Width = 24
	emailInput.CharLimit = 64

	return &SignInPanel{
		nameInput:  nameInput,
		emailInput: emailInput,
	}
}

// Init initializes the panel.
func (p *SignInPanel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the panel.
func (p *SignInPanel) Update(msg tea.Msg) (*SignInPanel, tea.Cmd) {
	if !p.focused {
		return p, nil
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("esc"))):
			return p, submit(auth.Credentials{Canceled: true})
		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "tab"))):
			p.nextField()
			return p, nil
		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "shift+tab"))):
			p.prevField()
			return p, nil
		case key.Matches(msg, key.NewBinding(key.WithKeys("enter"))):
			if p.currentField == FieldSubmit {
				return p, submit(p.Credentials())
			}
			p.nextField()
			return p, nil
		}
	}

	var cmd tea.Cmd
	switch p.currentField {
	case FieldName:
		p.nameInput, cmd = p.nameInput.Update(msg)
	case FieldEmail:
		p.emailInput, cmd = p.emailInput.Update(msg)
	}
	return p, cmd
}

func submit(creds auth.Credentials) tea.Cmd {
	return func() tea.Msg {
		return SignInSubmitMsg{Credentials: creds}
	}
}

// View renders the panel.
func (p *SignInPanel) View() string {
	var content strings.Builder

	content.WriteString(p.renderField("Name", FieldName, p.nameInput.View()))
	content.WriteString("\n")
	content.WriteString(p.renderField("Email", FieldEmail, p.emailInput.View()))
	content.WriteString("\n\n")

	submitStyle := styles.InputStyle
	if p.currentField == FieldSubmit && p.focused {
		submitStyle = styles.FocusedInputStyle.Bold(true)
	}
	content.WriteString(submitStyle.Render("  [Sign in]  "))
	content.WriteString("\n\n")
	content.WriteString(styles.MutedStyle.Render("enter next/submit · esc cancel"))

	title := styles.RenderTitle("🔑 Sign in", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return styles.Panel(p.focused).Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func (p *SignInPanel) renderField(label string, field SignInField, inputView string) string {
	labelStyle := styles.LabelStyle
	inputStyle := styles.InputStyle
	if p.currentField == field && p.focused {
		labelStyle = labelStyle.Bold(true)
		inputStyle = styles.FocusedInputStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Center,
		labelStyle.Render(fmt.Sprintf("%-7s", label)),
		inputStyle.Render(inputView),
	)
}

func (p *SignInPanel) nextField() {
	if p.currentField < FieldSubmit {
		p.currentField++
	}
	p.syncFocus()
}

func (p *SignInPanel) prevField() {
	if p.currentField > FieldName {
		p.currentField--
	}
	p.syncFocus()
}

func (p *SignInPanel) syncFocus() {
	p.nameInput.Blur()
	p.emailInput.Blur()
	if !p.focused {
		return
	}
	switch p.currentField {
	case FieldName:
		p.nameInput.Focus()
	case FieldEmail:
		p.emailInput.Focus()
	}
}

// Credentials returns the values entered so far.
func (p *SignInPanel) Credentials() auth.Credentials {
	return auth.Credentials{
		DisplayName: strings.TrimSpace(p.nameInput.Value()),
		Email:       strings.TrimSpace(p.emailInput.Value()),
	}
}

// SetFocus sets the focus state of the panel.
func (p *SignInPanel) SetFocus(focused bool) {
	p.focused = focused
	p.syncFocus()
}

// SetSize sets the panel dimensions.
func (p *SignInPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// Reset clears the form.
func (p *SignInPanel) Reset() {
	p.nameInput.SetValue("")
	p.emailInput.SetValue("")
	p.currentField = FieldName
	p.syncFocus()
}

// SignInSubmitMsg is sent when the form is submitted or canceled.
type SignInSubmitMsg struct {
	Credentials auth.Credentials
}

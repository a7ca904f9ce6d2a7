package view

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/linanwx/companion/message"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// SettingsPanel shows provider and version information.
type SettingsPanel struct {
	state         message.State
	width, height int
}

func NewSettingsPanel() *SettingsPanel {
	return &SettingsPanel{}
}

func (p *SettingsPanel) Update(msg tea.Msg) (Panel, tea.Cmd) {
	if msg, ok := msg.(stateMsg); ok {
		p.state = msg.State
	}
	return p, nil
}

func (p *SettingsPanel) View() string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("Settings"))
	b.WriteString("\n\n")

	provider := p.state.APIProvider
	if provider == "" {
		provider = "not configured"
	}
	fmt.Fprintf(&b, "API provider:   %s\n", provider)

	key := missingStyle.Render("missing (run `companion onboard` or sign in with OpenRouter)")
	if p.state.HasOpenRouterKey {
		key = okStyle.Render("stored")
	}
	fmt.Fprintf(&b, "OpenRouter key: %s\n", key)

	if p.state.Version != "" {
		fmt.Fprintf(&b, "Version:        %s\n", p.state.Version)
	}
	return lipgloss.NewStyle().Width(p.width).MaxHeight(p.height).Render(b.String())
}

func (p *SettingsPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

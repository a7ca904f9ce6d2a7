package view

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// InputPanel is the single-line task input under the chat.
type InputPanel struct {
	input textinput.Model
}

// NewInputPanel creates a focused input panel with the given prompt.
func NewInputPanel(prompt string) *InputPanel {
	ti := textinput.New()
	ti.Prompt = prompt
	ti.Placeholder = "Type a task..."
	ti.Focus()
	return &InputPanel{input: ti}
}

func (p *InputPanel) Update(msg tea.Msg) (Panel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEnter {
		text := strings.TrimSpace(p.input.Value())
		if text == "" {
			return p, nil
		}
		p.input.Reset()
		return p, func() tea.Msg { return InputSubmitMsg{Text: text} }
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p *InputPanel) View() string {
	return p.input.View()
}

func (p *InputPanel) SetSize(width, _ int) {
	p.input.Width = max(width-lipgloss.Width(p.input.Prompt)-1, 1)
}

package view

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const chatHint = "Describe a task below and press enter."

var (
	taskStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	chatHintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

// ChatPanel is the task transcript of the chat route. Tasks the user starts
// are prefixed with "> "; replies are shown as sent.
type ChatPanel struct {
	sb scrollback
}

func NewChatPanel() *ChatPanel {
	return &ChatPanel{sb: newScrollback(0, chatHintStyle.Render(chatHint))}
}

func (p *ChatPanel) Update(msg tea.Msg) (Panel, tea.Cmd) {
	if msg, ok := msg.(ChatMsg); ok {
		if msg.IsUser {
			p.sb.push(taskStyle.Render("> " + msg.Text))
		} else {
			p.sb.push(msg.Text)
		}
		return p, nil
	}
	return p, p.sb.update(msg)
}

func (p *ChatPanel) View() string { return p.sb.vp.View() }

func (p *ChatPanel) SetSize(width, height int) { p.sb.resize(width, height) }

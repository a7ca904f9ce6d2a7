package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/linanwx/companion/message"
)

var timeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

// HistoryPanel lists past tasks, newest first.
type HistoryPanel struct {
	viewport viewport.Model
}

func NewHistoryPanel() *HistoryPanel {
	vp := viewport.New(0, 0)
	vp.SetContent(renderHistory(nil))
	return &HistoryPanel{viewport: vp}
}

func (p *HistoryPanel) Update(msg tea.Msg) (Panel, tea.Cmd) {
	if msg, ok := msg.(stateMsg); ok {
		p.viewport.SetContent(renderHistory(msg.State.TaskHistory))
		p.viewport.GotoTop()
		return p, nil
	}
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *HistoryPanel) View() string {
	return p.viewport.View()
}

func (p *HistoryPanel) SetSize(width, height int) {
	p.viewport.Width = width
	p.viewport.Height = height
}

func renderHistory(items []message.HistoryItem) string {
	var b strings.Builder
	b.WriteString(headingStyle.Render("History"))
	b.WriteString("\n\n")
	if len(items) == 0 {
		b.WriteString("No tasks yet.")
		return b.String()
	}
	for i := len(items) - 1; i >= 0; i-- {
		ts := time.UnixMilli(items[i].TS).Format("Jan 2 15:04")
		fmt.Fprintf(&b, "%s  %s\n", timeStyle.Render(ts), items[i].Task)
	}
	return strings.TrimRight(b.String(), "\n")
}

package view

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxLogLines = 500

var (
	logDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	logWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	logErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// LogPanel tails the editor side's log when the panel shares its terminal,
// since the log can no longer go to stdout.
type LogPanel struct {
	sb scrollback
}

func NewLogPanel() *LogPanel {
	return &LogPanel{sb: newScrollback(maxLogLines, "")}
}

func (p *LogPanel) Update(msg tea.Msg) (Panel, tea.Cmd) {
	if msg, ok := msg.(LogLineMsg); ok {
		line := strings.TrimRight(msg.Line, "\n")
		p.sb.push(logLineStyle(line).Render(line))
		return p, nil
	}
	return p, p.sb.update(msg)
}

func (p *LogPanel) View() string { return p.sb.vp.View() }

func (p *LogPanel) SetSize(width, height int) { p.sb.resize(width, height) }

// logLineStyle picks a color from the level of a text or json slog record.
func logLineStyle(line string) lipgloss.Style {
	switch {
	case strings.Contains(line, "level=ERROR"), strings.Contains(line, `"level":"ERROR"`):
		return logErrorStyle
	case strings.Contains(line, "level=WARN"), strings.Contains(line, `"level":"WARN"`):
		return logWarnStyle
	default:
		return logDimStyle
	}
}

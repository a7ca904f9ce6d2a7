package view

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// scrollback is a viewport that keeps at most limit lines and follows the
// newest one unless the user has scrolled up. A zero limit keeps everything.
type scrollback struct {
	vp    viewport.Model
	lines []string
	limit int
	empty string
}

func newScrollback(limit int, empty string) scrollback {
	sb := scrollback{vp: viewport.New(0, 0), limit: limit, empty: empty}
	sb.vp.SetContent(empty)
	return sb
}

func (sb *scrollback) push(line string) {
	follow := len(sb.lines) == 0 || sb.vp.AtBottom()
	sb.lines = append(sb.lines, line)
	if sb.limit > 0 && len(sb.lines) > sb.limit {
		sb.lines = sb.lines[len(sb.lines)-sb.limit:]
	}
	sb.vp.SetContent(strings.Join(sb.lines, "\n"))
	if follow {
		sb.vp.GotoBottom()
	}
}

func (sb *scrollback) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	sb.vp, cmd = sb.vp.Update(msg)
	return cmd
}

func (sb *scrollback) resize(width, height int) {
	sb.vp.Width = width
	sb.vp.Height = height
	if len(sb.lines) > 0 {
		sb.vp.GotoBottom()
	}
}

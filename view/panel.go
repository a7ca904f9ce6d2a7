// Package view is the panel's user interface: a bubbletea program that
// hydrates from editor state, follows navigation actions posted by the
// editor and sends the user's input back.
package view

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/linanwx/companion/message"
)

// Panel is a composable TUI region with its own state, update logic, and view.
// The root App model orchestrates panels without knowing their internals.
type Panel interface {
	Update(tea.Msg) (Panel, tea.Cmd)
	View() string
	SetSize(width, height int)
}

// InboundMsg carries one frame posted by the editor side.
type InboundMsg struct{ Frame []byte }

// LogLineMsg carries a single log line from the logger writer.
type LogLineMsg struct{ Line string }

// ChatMsg carries a chat message to display in the conversation panel.
type ChatMsg struct {
	Text   string
	IsUser bool
}

// InputSubmitMsg is emitted when the user presses Enter in the input panel.
type InputSubmitMsg struct{ Text string }

// stateMsg tells state-driven panels the snapshot changed.
type stateMsg struct{ State message.State }

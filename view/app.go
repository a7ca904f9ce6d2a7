package view

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/linanwx/companion/message"
)

const defaultLogRatio = 0.3

// Keys the host binds to editor commands through Config.Chrome.
const (
	KeySettings = "ctrl+s"
	KeyHistory  = "ctrl+y"
	KeyChat     = "ctrl+t"
	KeyToggle   = "ctrl+p"
)

var chromeHints = []struct{ key, label string }{
	{KeySettings, "settings"},
	{KeyHistory, "history"},
	{KeyChat, "chat"},
	{KeyToggle, "close"},
}

var (
	separatorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Config configures an App.
type Config struct {
	// Post sends a frame to the editor side. It must not block.
	Post func(frame []byte)

	// State mirrors editor state. Defaults to a fresh ExtensionState.
	State StateContext

	Title  string
	Prompt string

	// Chrome maps keys to editor commands, the terminal's stand-in for
	// title-bar buttons. They run outside the update loop.
	Chrome map[string]func()

	// ShowLogs reserves the top of the screen for a log panel.
	ShowLogs bool
}

// App is the root bubbletea model that orchestrates panels and layout.
type App struct {
	cfg   Config
	state StateContext
	nav   Navigation

	logPanel      Panel
	chatPanel     Panel
	inputPanel    Panel
	settingsPanel Panel
	historyPanel  Panel

	width, height int
	logRatio      float64
}

// NewApp creates the root model.
func NewApp(cfg Config) *App {
	if cfg.State == nil {
		cfg.State = NewExtensionState()
	}
	if cfg.Title == "" {
		cfg.Title = "Companion"
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "> "
	}
	return &App{
		cfg:           cfg,
		state:         cfg.State,
		logPanel:      NewLogPanel(),
		chatPanel:     NewChatPanel(),
		inputPanel:    NewInputPanel(cfg.Prompt),
		settingsPanel: NewSettingsPanel(),
		historyPanel:  NewHistoryPanel(),
		logRatio:      defaultLogRatio,
	}
}

// Navigation returns the current screen selection.
func (m *App) Navigation() Navigation { return m.nav }

// Init tells the editor side the view is ready for state.
func (m *App) Init() tea.Cmd {
	m.post(message.WebviewDidLaunch{})
	return textinput.Blink
}

func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		return m, nil

	case InboundMsg:
		decoded, err := message.Decode(msg.Frame)
		if err != nil {
			return m, nil
		}
		return m, m.apply(decoded)

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "ctrl+c":
			return m, tea.Quit
		case "ctrl+o":
			m.nav = m.nav.ShowHistoryView()
			return m, nil
		case "esc":
			if m.nav.ChatHidden() {
				m.nav = m.nav.ShowChat()
				return m, nil
			}
		}
		if fn, ok := m.cfg.Chrome[key]; ok {
			return m, func() tea.Msg {
				fn()
				return nil
			}
		}
		p, cmd := m.activePanel().Update(msg)
		m.setActivePanel(p)
		cmds = append(cmds, cmd)

	case InputSubmitMsg:
		p, cmd := m.chatPanel.Update(ChatMsg{Text: msg.Text, IsUser: true})
		m.chatPanel = p
		cmds = append(cmds, cmd)
		m.post(message.NewTask{Text: msg.Text})

	case LogLineMsg:
		p, cmd := m.logPanel.Update(msg)
		m.logPanel = p
		cmds = append(cmds, cmd)

	case ChatMsg:
		p, cmd := m.chatPanel.Update(msg)
		m.chatPanel = p
		cmds = append(cmds, cmd)

	default:
		// Broadcast unknown messages to input panel (e.g. blink cursor).
		p, cmd := m.inputPanel.Update(msg)
		m.inputPanel = p
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// apply lets the state context and the navigation consume an editor
// message. Anything neither understands is ignored.
func (m *App) apply(msg message.Message) tea.Cmd {
	if m.state.Handle(msg) {
		st := stateMsg{State: m.state.State()}
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.settingsPanel, cmd = m.settingsPanel.Update(st)
		cmds = append(cmds, cmd)
		m.historyPanel, cmd = m.historyPanel.Update(st)
		cmds = append(cmds, cmd)
		return tea.Batch(cmds...)
	}
	m.nav, _ = m.nav.Apply(msg)
	return nil
}

func (m *App) post(msg message.Message) {
	if m.cfg.Post == nil {
		return
	}
	frame, err := message.Encode(msg)
	if err != nil {
		return
	}
	m.cfg.Post(frame)
}

func (m *App) activePanel() Panel {
	switch {
	case m.nav.ShowSettings:
		return m.settingsPanel
	case m.nav.ShowHistory:
		return m.historyPanel
	default:
		return m.inputPanel
	}
}

func (m *App) setActivePanel(p Panel) {
	switch {
	case m.nav.ShowSettings:
		m.settingsPanel = p
	case m.nav.ShowHistory:
		m.historyPanel = p
	default:
		m.inputPanel = p
	}
}

func (m *App) View() string {
	if !m.state.DidHydrateState() {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "initializing..."
	}

	sep := separatorStyle.Render(strings.Repeat("─", m.width))

	var parts []string
	if m.cfg.ShowLogs {
		parts = append(parts, m.logPanel.View(), sep)
	}
	parts = append(parts, m.header(), sep)
	switch {
	case m.nav.ShowSettings:
		parts = append(parts, m.settingsPanel.View())
	case m.nav.ShowHistory:
		parts = append(parts, m.historyPanel.View())
	default:
		parts = append(parts, m.chatPanel.View(), sep, m.inputPanel.View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *App) header() string {
	hints := "ctrl+o history"
	if m.nav.ChatHidden() {
		hints = "esc back to chat"
	}
	for _, h := range chromeHints {
		if _, ok := m.cfg.Chrome[h.key]; ok {
			hints += " · " + h.key + " " + h.label
		}
	}
	return titleStyle.Render(m.cfg.Title) + "  " + hintStyle.Render(hints)
}

func (m *App) recalcLayout() {
	const headerH = 1
	const inputH = 1

	seps := 2 // below header, above input
	if m.cfg.ShowLogs {
		seps++
	}
	usable := max(m.height-headerH-inputH-seps, 2)

	logH := 0
	if m.cfg.ShowLogs {
		logH = max(int(float64(usable)*m.logRatio), 1)
	}
	mainH := max(usable-logH, 1)

	m.logPanel.SetSize(m.width, logH)
	m.chatPanel.SetSize(m.width, mainH)
	m.inputPanel.SetSize(m.width, inputH)
	// Settings and history reuse the input line.
	m.settingsPanel.SetSize(m.width, mainH+inputH+1)
	m.historyPanel.SetSize(m.width, mainH+inputH+1)
}

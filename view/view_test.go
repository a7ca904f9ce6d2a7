package view

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linanwx/companion/message"
	"github.com/linanwx/companion/surface"
)

func action(a message.Action) message.Message {
	return message.ActionNotification{Action: a}
}

func TestNavigationApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		action message.Action
		want   Navigation
	}{
		{message.ActionSettingsButtonClicked, Navigation{ShowSettings: true}},
		{message.ActionHistoryButtonClicked, Navigation{ShowHistory: true}},
		{message.ActionChatButtonClicked, Navigation{}},
	}
	starts := []Navigation{{}, {ShowSettings: true}, {ShowHistory: true}}
	for _, tt := range tests {
		for _, start := range starts {
			got, ok := start.Apply(action(tt.action))
			assert.True(t, ok)
			assert.Equal(t, tt.want, got, "%s from %+v", tt.action, start)

			// Applying the same action twice changes nothing more.
			again, _ := got.Apply(action(tt.action))
			assert.Equal(t, got, again)
			assert.False(t, got.ShowSettings && got.ShowHistory)
		}
	}
}

func TestNavigationIgnoresUnknown(t *testing.T) {
	t.Parallel()

	start := Navigation{ShowSettings: true}
	for _, msg := range []message.Message{
		action("dance"),
		message.Unknown{Kind: "partialMessage", Raw: []byte(`{"type":"partialMessage"}`)},
		message.StateSnapshot{},
	} {
		got, ok := start.Apply(msg)
		assert.False(t, ok)
		assert.Equal(t, start, got)
	}
}

func TestShowHistoryViewMatchesAction(t *testing.T) {
	t.Parallel()

	for _, start := range []Navigation{{}, {ShowSettings: true}, {ShowHistory: true}} {
		viaAction, _ := start.Apply(action(message.ActionHistoryButtonClicked))
		assert.Equal(t, viaAction, start.ShowHistoryView())
	}
}

func TestExtensionState(t *testing.T) {
	t.Parallel()

	s := NewExtensionState()
	assert.False(t, s.DidHydrateState())
	assert.False(t, s.Handle(action(message.ActionChatButtonClicked)))
	assert.False(t, s.DidHydrateState())

	assert.True(t, s.Handle(message.StateSnapshot{State: message.State{Version: "1"}}))
	assert.True(t, s.DidHydrateState())
	assert.Equal(t, "1", s.State().Version)
}

type postRecorder struct {
	mu     sync.Mutex
	frames []string
}

func (p *postRecorder) post(frame []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, string(frame))
}

func (p *postRecorder) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.frames...)
}

func inbound(t *testing.T, m message.Message) InboundMsg {
	t.Helper()
	frame, err := message.Encode(m)
	require.NoError(t, err)
	return InboundMsg{Frame: frame}
}

func hydrated(t *testing.T, cfg Config) *App {
	t.Helper()
	app := NewApp(cfg)
	app.Init()
	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	app.Update(inbound(t, message.StateSnapshot{State: message.State{Version: "0.1.0"}}))
	return app
}

func TestAppRendersNothingUntilHydrated(t *testing.T) {
	t.Parallel()

	rec := &postRecorder{}
	app := NewApp(Config{Post: rec.post})
	app.Init()
	require.Len(t, rec.all(), 1)
	assert.JSONEq(t, `{"type":"webviewDidLaunch"}`, rec.all()[0])

	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	app.Update(inbound(t, action(message.ActionSettingsButtonClicked)))
	assert.Empty(t, app.View())
	// Navigation still tracks actions before hydration.
	assert.True(t, app.Navigation().ShowSettings)

	app.Update(inbound(t, message.StateSnapshot{State: message.State{Version: "0.1.0"}}))
	out := app.View()
	assert.Contains(t, out, "Settings")
	assert.Contains(t, out, "0.1.0")
}

func TestAppFollowsEditorActions(t *testing.T) {
	t.Parallel()

	app := hydrated(t, Config{})

	app.Update(inbound(t, action(message.ActionHistoryButtonClicked)))
	assert.Equal(t, Navigation{ShowHistory: true}, app.Navigation())
	assert.Contains(t, app.View(), "No tasks yet.")

	app.Update(InboundMsg{Frame: []byte(`{"type":"action","action":"dance"}`)})
	app.Update(InboundMsg{Frame: []byte(`{"type":"somethingElse"}`)})
	app.Update(InboundMsg{Frame: []byte(`garbage`)})
	assert.Equal(t, Navigation{ShowHistory: true}, app.Navigation())

	app.Update(inbound(t, action(message.ActionChatButtonClicked)))
	assert.Equal(t, Navigation{}, app.Navigation())
}

func TestAppLocalNavigation(t *testing.T) {
	t.Parallel()

	app := hydrated(t, Config{})
	app.Update(inbound(t, action(message.ActionSettingsButtonClicked)))

	app.Update(tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.Equal(t, Navigation{ShowHistory: true}, app.Navigation())

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, Navigation{}, app.Navigation())
}

func TestAppSubmitPostsNewTask(t *testing.T) {
	t.Parallel()

	rec := &postRecorder{}
	app := hydrated(t, Config{Post: rec.post})
	app.Update(InputSubmitMsg{Text: "refactor the parser"})

	frames := rec.all()
	require.Len(t, frames, 2)
	assert.JSONEq(t, `{"type":"newTask","text":"refactor the parser"}`, frames[1])
	assert.Contains(t, app.View(), "refactor the parser")
}

func TestAppHistoryFromState(t *testing.T) {
	t.Parallel()

	app := hydrated(t, Config{})
	app.Update(inbound(t, message.StateSnapshot{State: message.State{
		TaskHistory: []message.HistoryItem{
			{ID: "1", Task: "first task", TS: 1},
			{ID: "2", Task: "second task", TS: 2},
		},
	}}))
	app.Update(tea.KeyMsg{Type: tea.KeyCtrlO})

	out := app.View()
	require.Contains(t, out, "first task")
	assert.Less(t, strings.Index(out, "second task"), strings.Index(out, "first task"))
}

func TestAppChromeKeysRunOutsideUpdate(t *testing.T) {
	t.Parallel()

	ran := 0
	app := hydrated(t, Config{Chrome: map[string]func(){
		KeySettings: func() { ran++ },
	}})

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Equal(t, 0, ran)
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, 1, ran)
	assert.Contains(t, app.View(), "ctrl+s settings")
}

func TestRunClientAgainstWSHost(t *testing.T) {
	t.Parallel()

	host := surface.NewWSHost("")
	srv := httptest.NewServer(host.Handler())
	defer srv.Close()
	host.SetBaseURL("ws" + strings.TrimPrefix(srv.URL, "http"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := host.CreateSurface(ctx, surface.Options{ViewType: "companion"})
	require.NoError(t, err)
	launched := make(chan string, 1)
	s.OnDidReceiveMessage(func(frame []byte) { launched <- string(frame) })

	done := make(chan error, 1)
	go func() {
		done <- RunClient(ctx, host.URL(s.ID()), Config{},
			tea.WithInput(nil), tea.WithOutput(io.Discard), tea.WithoutSignalHandler(), tea.WithoutRenderer())
	}()

	select {
	case f := <-launched:
		assert.JSONEq(t, `{"type":"webviewDidLaunch"}`, f)
	case <-ctx.Done():
		t.Fatal("view never launched")
	}

	// Closing the panel from the editor side ends the client.
	s.Dispose()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("client kept running after dispose")
	}
}

func TestChatPanelHintGivesWayToTasks(t *testing.T) {
	t.Parallel()

	p := NewChatPanel()
	p.SetSize(60, 5)
	assert.Contains(t, p.View(), chatHint)

	p.Update(ChatMsg{Text: "add tests", IsUser: true})
	p.Update(ChatMsg{Text: "on it"})
	view := p.View()
	assert.NotContains(t, view, chatHint)
	assert.Contains(t, view, "> add tests")
	assert.Contains(t, view, "on it")
}

func TestLogPanelKeepsNewestLines(t *testing.T) {
	t.Parallel()

	p := NewLogPanel()
	p.SetSize(80, 3)
	for i := 0; i < maxLogLines+20; i++ {
		p.Update(LogLineMsg{Line: "level=INFO msg=line" + strings.Repeat("x", i%3) + "\n"})
	}
	p.Update(LogLineMsg{Line: "level=ERROR msg=last\n"})

	assert.Len(t, p.sb.lines, maxLogLines)
	assert.Contains(t, p.View(), "msg=last")
}

func TestLogLineStyleByLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, logErrorStyle, logLineStyle(`time=now level=ERROR msg=boom`))
	assert.Equal(t, logWarnStyle, logLineStyle(`{"level":"WARN","msg":"slow"}`))
	assert.Equal(t, logDimStyle, logLineStyle(`level=DEBUG msg=quiet`))
}

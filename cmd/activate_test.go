package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linanwx/companion/commands"
	"github.com/linanwx/companion/config"
	"github.com/linanwx/companion/content"
	"github.com/linanwx/companion/internal/health"
	"github.com/linanwx/companion/message"
	"github.com/linanwx/companion/surface"
	"github.com/linanwx/companion/view"
)

type stubExchanger struct{}

func (stubExchanger) ExchangeCode(_ context.Context, code string) (string, error) {
	return "sk-or-" + code, nil
}

type memKeys struct {
	mu  sync.Mutex
	key string
}

func (k *memKeys) SaveOpenRouterKey(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.key = key
	return nil
}

func (k *memKeys) HasOpenRouterKey() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.key != ""
}

func (k *memKeys) APIProvider() string {
	if k.HasOpenRouterKey() {
		return "openrouter"
	}
	return ""
}

func (k *memKeys) get() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.key
}

func activateWS(t *testing.T) (*Extension, *memKeys) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Callback.Addr = "127.0.0.1:0"
	keys := &memKeys{}

	ext, err := Activate(context.Background(), Deps{
		Config:    cfg,
		Version:   "test",
		NewHost:   func(*Extension) surface.Host { return surface.NewWSHost("") },
		Exchanger: stubExchanger{},
		Keys:      keys,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ext.Deactivate(ctx)
	})
	return ext, keys
}

func activateTUI(t *testing.T) *Extension {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Callback.Addr = "127.0.0.1:0"

	ext, err := Activate(context.Background(), Deps{
		Config:  cfg,
		Version: "test",
		NewHost: func(*Extension) surface.Host {
			return surface.NewTUIHost(surface.TUIConfig{
				NewModel: func(post func([]byte)) tea.Model {
					return view.NewApp(view.Config{Post: post, Title: cfg.Panel.Title})
				},
				Inbound: func(frame []byte) tea.Msg { return view.InboundMsg{Frame: frame} },
				ProgramOptions: []tea.ProgramOption{
					tea.WithInput(nil),
					tea.WithOutput(io.Discard),
					tea.WithoutSignalHandler(),
					tea.WithoutRenderer(),
				},
			})
		},
		Exchanger: stubExchanger{},
		Keys:      &memKeys{},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ext.Deactivate(ctx)
	})
	return ext
}

func readMessage(ctx context.Context, t *testing.T, conn *websocket.Conn) message.Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	msg, err := message.Decode(data)
	require.NoError(t, err)
	return msg
}

func TestActivateOpensPanel(t *testing.T) {
	ext, _ := activateWS(t)

	assert.True(t, ext.Panel.IsOpen())
	assert.Equal(t, 1, ext.Instances.Len())
	assert.Equal(t, []string{
		commands.ChatButtonClicked,
		commands.HistoryButtonClicked,
		commands.SettingsButtonClicked,
		commands.TogglePanel,
		commands.LockEditorGroup,
	}, ext.Commands.Names())
	assert.True(t, strings.HasSuffix(ext.CallbackURL(), "/openrouter"))

	s, ok := ext.Panel.Current()
	require.True(t, ok)
	ws := ext.Host.(*surface.WSHost)
	require.Eventually(t, func() bool { return ws.Locked(s.ID()) }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, ext.Commands.Execute(context.Background(), commands.TogglePanel))
	assert.False(t, ext.Panel.IsOpen())
	require.Eventually(t, func() bool { return ext.Instances.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestTUIPanelTogglesBackToBack(t *testing.T) {
	ext := activateTUI(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.True(t, ext.Panel.IsOpen())

	// Close then reopen with no pause in between, several times over.
	for i := 0; i < 3; i++ {
		require.NoError(t, ext.Commands.Execute(ctx, commands.TogglePanel), "close %d", i)
		assert.False(t, ext.Panel.IsOpen())
		assert.Equal(t, 0, ext.Instances.Len())

		require.NoError(t, ext.Commands.Execute(ctx, commands.TogglePanel), "reopen %d", i)
		assert.True(t, ext.Panel.IsOpen())
		assert.Equal(t, 1, ext.Instances.Len())
	}
}

func TestNavigationAfterPanelClosed(t *testing.T) {
	ext := activateTUI(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, ext.Commands.Execute(ctx, commands.TogglePanel))
	require.False(t, ext.Panel.IsOpen())

	for _, name := range []string{
		commands.ChatButtonClicked,
		commands.HistoryButtonClicked,
		commands.SettingsButtonClicked,
	} {
		require.NoError(t, ext.Commands.Execute(ctx, name), name)
	}
}

func TestWSPanelCloseDropsInstance(t *testing.T) {
	ext, _ := activateWS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, ext.Commands.Execute(ctx, commands.TogglePanel))
	assert.Equal(t, 0, ext.Instances.Len())
	require.NoError(t, ext.Commands.Execute(ctx, commands.SettingsButtonClicked))

	require.NoError(t, ext.Commands.Execute(ctx, commands.TogglePanel))
	assert.True(t, ext.Panel.IsOpen())
	assert.Equal(t, 1, ext.Instances.Len())
}

func TestActivateEndToEnd(t *testing.T) {
	ext, keys := activateWS(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url, ok := panelURL(ext)
	require.True(t, ok)
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	// The view hydrates on launch.
	launch, err := message.Encode(message.WebviewDidLaunch{})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, launch))
	snap, ok := readMessage(ctx, t, conn).(message.StateSnapshot)
	require.True(t, ok)
	assert.Equal(t, "test", snap.State.Version)
	assert.False(t, snap.State.HasOpenRouterKey)

	// A title-bar command reaches the visible view.
	require.NoError(t, ext.Commands.Execute(ctx, commands.HistoryButtonClicked))
	action, ok := readMessage(ctx, t, conn).(message.ActionNotification)
	require.True(t, ok)
	assert.Equal(t, message.ActionHistoryButtonClicked, action.Action)

	// The browser returns from OpenRouter.
	resp, err := http.Get(ext.CallbackURL() + "?code=abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "sk-or-abc", keys.get())

	snap, ok = readMessage(ctx, t, conn).(message.StateSnapshot)
	require.True(t, ok)
	assert.True(t, snap.State.HasOpenRouterKey)
	assert.Equal(t, "openrouter", snap.State.APIProvider)
}

func TestHealthEndpoint(t *testing.T) {
	ext, _ := activateWS(t)

	resp, err := http.Get(ext.Server.URL() + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap health.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.True(t, snap.Panel.Open)
	assert.Equal(t, 1, snap.Panel.Instances)
	assert.Equal(t, "test", snap.Version)
	assert.Equal(t, []string{content.DiffViewScheme}, snap.Schemes)
}

func TestActivateRequiresHost(t *testing.T) {
	_, err := Activate(context.Background(), Deps{Config: config.DefaultConfig()})
	require.Error(t, err)
}

func TestConsoleCommands(t *testing.T) {
	ext, _ := activateWS(t)

	in := strings.NewReader("help\ntoggle\nstatus\nbogus\ndiff a.txt one | two\nquit\nstatus\n")
	var out bytes.Buffer
	require.NoError(t, newConsole(ext, in, &out).run(context.Background()))

	got := out.String()
	assert.Contains(t, got, "Commands:")
	assert.Contains(t, got, "panel closed")
	assert.Contains(t, got, `unknown command "bogus"`)
	assert.Contains(t, got, "-one\n+two\n")
	assert.Contains(t, got, "Goodbye!")
	assert.Equal(t, 1, strings.Count(got, "panel closed"))
	assert.False(t, ext.Panel.IsOpen())
}

func TestCallbackTarget(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"companion://auth/openrouter?code=a+b", "http://127.0.0.1:1/openrouter?code=a+b"},
		{"/openrouter?code=x", "http://127.0.0.1:1/openrouter?code=x"},
		{"companion://auth", "http://127.0.0.1:1/"},
	}
	for _, tt := range tests {
		got, err := callbackTarget("http://127.0.0.1:1/", tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, err := callbackTarget("http://127.0.0.1:1", "  ")
	require.Error(t, err)
}

func TestResolveHost(t *testing.T) {
	host, err := resolveHost("ws", "auto", false)
	require.NoError(t, err)
	assert.Equal(t, "ws", host)

	host, err = resolveHost("ws", "tui", true)
	require.NoError(t, err)
	assert.Equal(t, "tui", host)

	_, err = resolveHost("auto", "carrier-pigeon", true)
	require.Error(t, err)
}

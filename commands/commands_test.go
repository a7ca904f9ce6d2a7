package commands

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linanwx/companion/bus"
	"github.com/linanwx/companion/instance"
	"github.com/linanwx/companion/message"
	"github.com/linanwx/companion/surface"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	b := bus.NewBus(16)
	t.Cleanup(b.Close)
	return NewRegistry(b)
}

func TestRegisterAndExecute(t *testing.T) {
	t.Parallel()

	r := newRegistry(t)
	calls := 0
	require.NoError(t, r.Register(TogglePanel, func(context.Context) error {
		calls++
		return nil
	}))
	require.ErrorIs(t, r.Register(TogglePanel, func(context.Context) error { return nil }), ErrDuplicateCommand)

	require.NoError(t, r.Execute(context.Background(), TogglePanel))
	require.NoError(t, r.Execute(context.Background(), TogglePanel))
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{TogglePanel}, r.Names())
}

func TestExecuteUnknown(t *testing.T) {
	t.Parallel()

	r := newRegistry(t)
	assert.ErrorIs(t, r.Execute(context.Background(), "nope"), ErrUnknownCommand)
}

func TestExecuteReturnsCommandError(t *testing.T) {
	t.Parallel()

	r := newRegistry(t)
	boom := errors.New("boom")
	require.NoError(t, r.Register(LockEditorGroup, func(context.Context) error { return boom }))
	assert.ErrorIs(t, r.Execute(context.Background(), LockEditorGroup), boom)
}

func TestCommandsMayExecuteCommands(t *testing.T) {
	t.Parallel()

	r := newRegistry(t)
	var order []string
	require.NoError(t, r.Register(LockEditorGroup, func(context.Context) error {
		order = append(order, "lock")
		return nil
	}))
	require.NoError(t, r.Register(TogglePanel, func(ctx context.Context) error {
		order = append(order, "toggle")
		return r.Execute(ctx, LockEditorGroup)
	}))

	require.NoError(t, r.Execute(context.Background(), TogglePanel))
	assert.Equal(t, []string{"toggle", "lock"}, order)
}

type postedSurface struct {
	mu     sync.Mutex
	frames []string
}

func (s *postedSurface) ID() string { return "s1" }
func (s *postedSurface) PostMessage(_ context.Context, frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, string(frame))
	return nil
}
func (s *postedSurface) OnDidReceiveMessage(func([]byte))     {}
func (s *postedSurface) OnDidDispose(func())                  {}
func (s *postedSurface) SetPresentation(surface.Presentation) {}
func (s *postedSurface) Dispose()                             {}

type noAssistant struct{}

func (noAssistant) HandleViewMessage(context.Context, *instance.Instance, message.Message) error {
	return nil
}
func (noAssistant) HandleOpenRouterCallback(context.Context, *instance.Instance, string) error {
	return nil
}

func TestNavigationCommands(t *testing.T) {
	t.Parallel()

	r := newRegistry(t)
	instances := instance.NewRegistry()
	require.NoError(t, RegisterNavigation(r, instances))
	ctx := context.Background()

	// No visible panel: every navigation command is a silent no-op.
	for _, name := range []string{SettingsButtonClicked, HistoryButtonClicked, ChatButtonClicked} {
		require.NoError(t, r.Execute(ctx, name))
	}

	s := &postedSurface{}
	instances.Add(instance.New(s, noAssistant{}))

	require.NoError(t, r.Execute(ctx, SettingsButtonClicked))
	require.NoError(t, r.Execute(ctx, HistoryButtonClicked))
	require.NoError(t, r.Execute(ctx, ChatButtonClicked))

	require.Len(t, s.frames, 3)
	assert.JSONEq(t, `{"type":"action","action":"settingsButtonClicked"}`, s.frames[0])
	assert.JSONEq(t, `{"type":"action","action":"historyButtonClicked"}`, s.frames[1])
	assert.JSONEq(t, `{"type":"action","action":"chatButtonClicked"}`, s.frames[2])
}

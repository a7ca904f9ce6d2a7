// Package commands is the editor command table. Every command runs on the
// bus loop, so command bodies never race with surface or callback handlers.
package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/linanwx/companion/bus"
	"github.com/linanwx/companion/instance"
	"github.com/linanwx/companion/logger"
	"github.com/linanwx/companion/message"
)

// Command names.
const (
	TogglePanel           = "companion.togglePanel"
	SettingsButtonClicked = "companion.settingsButtonClicked"
	HistoryButtonClicked  = "companion.historyButtonClicked"
	ChatButtonClicked     = "companion.chatButtonClicked"

	// LockEditorGroup is provided by the host rather than by this module.
	LockEditorGroup = "workbench.action.lockEditorGroup"
)

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrDuplicateCommand = errors.New("command already registered")
)

// Func is a command body.
type Func func(ctx context.Context) error

// Registry maps command names to bodies.
type Registry struct {
	bus *bus.Bus

	mu       sync.RWMutex
	commands map[string]Func
}

// NewRegistry creates a registry executing commands on b.
func NewRegistry(b *bus.Bus) *Registry {
	r := &Registry{bus: b, commands: make(map[string]Func)}
	b.Subscribe(bus.EventCommandExecute, r.handle)
	return r
}

// Register adds a command. Names are unique.
func (r *Registry) Register(name string, fn Func) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.commands[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
	}
	r.commands[name] = fn
	return nil
}

// Execute runs the named command on the bus loop and returns its error.
func (r *Registry) Execute(ctx context.Context, name string) error {
	if !r.has(name) {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	ev, err := bus.NewEvent(bus.EventCommandExecute, "commands", bus.CommandData{Name: name})
	if err != nil {
		return err
	}
	return r.bus.Request(ctx, ev)
}

// Names returns the registered command names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.commands[name]
	return ok
}

func (r *Registry) handle(ctx context.Context, ev *bus.Event) error {
	var data bus.CommandData
	if err := ev.ParseData(&data); err != nil {
		return err
	}
	r.mu.RLock()
	fn, ok := r.commands[data.Name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, data.Name)
	}

	logger.Debug("command executing", "command", data.Name)
	if err := fn(ctx); err != nil {
		return fmt.Errorf("command %s: %w", data.Name, err)
	}
	return nil
}

// RegisterNavigation registers the three navigation commands. Each posts its
// action to the visible instance, or does nothing when none is visible.
func RegisterNavigation(r *Registry, instances *instance.Registry) error {
	for name, action := range map[string]message.Action{
		SettingsButtonClicked: message.ActionSettingsButtonClicked,
		HistoryButtonClicked:  message.ActionHistoryButtonClicked,
		ChatButtonClicked:     message.ActionChatButtonClicked,
	} {
		if err := r.Register(name, func(ctx context.Context) error {
			return instance.PostAction(ctx, instances, action)
		}); err != nil {
			return err
		}
	}
	return nil
}

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/linanwx/companion/bus"
	"github.com/linanwx/companion/commands"
	"github.com/linanwx/companion/config"
	"github.com/linanwx/companion/content"
	"github.com/linanwx/companion/instance"
	"github.com/linanwx/companion/internal/health"
	"github.com/linanwx/companion/logger"
	"github.com/linanwx/companion/panel"
	"github.com/linanwx/companion/provider"
	"github.com/linanwx/companion/router"
	"github.com/linanwx/companion/surface"
)

const busBufferSize = 64

// Deps are the inputs of Activate.
type Deps struct {
	Config  *config.Config
	Version string

	// NewHost builds the surface host. It runs after the bus and command
	// registry exist, so host chrome can execute commands.
	NewHost func(ext *Extension) surface.Host

	// Clock drives the panel settle delay. Defaults to the real clock.
	Clock clockwork.Clock

	// Exchanger and Keys default to the OpenRouter API and the config file.
	Exchanger instance.CodeExchanger
	Keys      instance.KeyStore
}

// Extension is the activated editor side.
type Extension struct {
	Version string

	Bus       *bus.Bus
	Commands  *commands.Registry
	Content   *content.Registry
	Instances *instance.Registry
	Assistant *instance.DefaultAssistant
	Panel     *panel.Controller
	Router    *router.Router
	Server    *router.Server
	Host      surface.Host
	Auth      *provider.OpenRouterAuth
}

// Activate wires every component, starts the callback server and opens the
// panel once. A failure to open the panel is logged; the extension stays
// usable and the panel can be toggled later.
func Activate(ctx context.Context, deps Deps) (*Extension, error) {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if deps.NewHost == nil {
		return nil, errors.New("activate: no surface host")
	}

	ext := &Extension{
		Version:   deps.Version,
		Bus:       bus.NewBus(busBufferSize),
		Content:   content.NewRegistry(),
		Instances: instance.NewRegistry(),
		Auth:      provider.NewOpenRouterAuth(cfg.APIBase(provider.OpenRouter)),
	}
	ext.Commands = commands.NewRegistry(ext.Bus)

	if err := ext.Content.Register(content.DiffViewScheme, content.DiffProvider); err != nil {
		ext.Bus.Close()
		return nil, err
	}

	exchanger := deps.Exchanger
	if exchanger == nil {
		exchanger = ext.Auth
	}
	keys := deps.Keys
	if keys == nil {
		keys = config.NewKeyStore(cfg, "")
	}
	ext.Assistant = instance.NewDefaultAssistant(instance.AssistantConfig{
		Version:   deps.Version,
		Exchanger: exchanger,
		Keys:      keys,
		Clock:     deps.Clock,
	})
	factory := instance.NewFactory(ext.Bus, ext.Instances, ext.Assistant)

	ext.Host = deps.NewHost(ext)

	ext.Panel = panel.New(panel.Config{
		Host:        ext.Host,
		Factory:     factory,
		Bus:         ext.Bus,
		Clock:       deps.Clock,
		SettleDelay: cfg.SettleDelay(),
		Presentation: surface.Presentation{
			Title:     cfg.Panel.Title,
			IconLight: cfg.Panel.IconLight,
			IconDark:  cfg.Panel.IconDark,
		},
		Lock: func(ctx context.Context) error {
			return ext.Commands.Execute(ctx, commands.LockEditorGroup)
		},
	})

	if err := ext.registerCommands(); err != nil {
		ext.Bus.Close()
		return nil, err
	}

	ext.Router = router.New(ext.Instances)
	ext.Router.Subscribe(ext.Bus)
	ext.Server = router.NewServer(cfg.Callback.Addr, ext.Bus)

	ext.Server.Handle("GET /healthz", http.HandlerFunc(ext.serveHealth))
	ws, isWS := ext.Host.(*surface.WSHost)
	if isWS {
		ext.Server.Handle("/surface/", ws.Handler())
	}
	if err := ext.Server.Start(ctx); err != nil {
		ext.Bus.Close()
		return nil, fmt.Errorf("start callback server: %w", err)
	}
	if isWS && strings.TrimSpace(cfg.Surface.PublicURL) == "" {
		ws.SetBaseURL("ws://" + ext.Server.Addr())
	} else if isWS {
		ws.SetBaseURL(cfg.Surface.PublicURL)
	}

	if err := ext.Commands.Execute(ctx, commands.TogglePanel); err != nil {
		logger.Error("initial panel toggle failed", "err", err)
	}

	logger.Info("companion activated", "callback", ext.CallbackURL(), "commands", len(ext.Commands.Names()))
	return ext, nil
}

func (e *Extension) registerCommands() error {
	if err := e.Commands.Register(commands.TogglePanel, e.Panel.Toggle); err != nil {
		return err
	}
	if err := e.Commands.Register(commands.LockEditorGroup, e.lockEditorGroup); err != nil {
		return err
	}
	return commands.RegisterNavigation(e.Commands, e.Instances)
}

func (e *Extension) lockEditorGroup(ctx context.Context) error {
	locker, ok := e.Host.(surface.Locker)
	if !ok {
		logger.Debug("surface host cannot lock editor groups")
		return nil
	}
	return locker.LockEditorGroup(ctx)
}

// CallbackURL is the redirect target handed to OpenRouter.
func (e *Extension) CallbackURL() string {
	return e.Server.URL() + router.PathOpenRouter
}

// Health reports the running extension.
func (e *Extension) Health() health.Snapshot {
	opts := health.Options{
		Version:     e.Version,
		CallbackURL: e.CallbackURL(),
		Instances:   e.Instances.Len(),
		Commands:    e.Commands.Names(),
		Schemes:     e.Content.Schemes(),
	}
	if s, ok := e.Panel.Current(); ok {
		opts.PanelOpen = true
		opts.PanelID = s.ID()
	}
	return health.Collect(opts)
}

func (e *Extension) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(e.Health()); err != nil {
		logger.Warn("health encode failed", "err", err)
	}
}

// Deactivate closes the panel, stops the callback server and drains the
// bus.
func (e *Extension) Deactivate(ctx context.Context) error {
	if s, ok := e.Panel.Current(); ok {
		s.Dispose()
	}
	err := e.Server.Stop(ctx)
	e.Bus.Close()
	logger.Info("companion deactivated")
	return err
}

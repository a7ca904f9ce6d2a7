package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/linanwx/companion/commands"
	"github.com/linanwx/companion/config"
	"github.com/linanwx/companion/logger"
	"github.com/linanwx/companion/surface"
	"github.com/linanwx/companion/view"
)

const deactivateTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Activate companion and open the assistant panel",
	Long: `Activate companion: start the callback endpoint and open the assistant panel.

Surface hosts:
  - tui: the panel takes over this terminal (default when stdin is a terminal)
  - ws:  the panel is served over a websocket; attach with 'companion view'

Examples:
  companion serve              # Pick the host automatically
  companion serve --host ws    # Serve the panel to a separate view process
  companion serve --addr 127.0.0.1:0`,
	RunE: runServe,
}

var (
	serveHost string
	serveAddr string
)

// chromeCommands maps the terminal's title-bar keys to editor commands.
var chromeCommands = map[string]string{
	view.KeySettings: commands.SettingsButtonClicked,
	view.KeyHistory:  commands.HistoryButtonClicked,
	view.KeyChat:     commands.ChatButtonClicked,
	view.KeyToggle:   commands.TogglePanel,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "auto", "Surface host: auto, tui or ws")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Callback listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if addr := strings.TrimSpace(serveAddr); addr != "" {
		cfg.Callback.Addr = addr
	}

	host, err := resolveHost(cfg.Surface.Host, serveHost, cmd.Flags().Changed("host"))
	if err != nil {
		return err
	}

	deps := Deps{Config: cfg, Version: Version}
	switch host {
	case "tui":
		deps.NewHost = newTUIHost(cfg)
	default:
		deps.NewHost = func(*Extension) surface.Host { return surface.NewWSHost("") }
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			logger.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	ext, err := Activate(ctx, deps)
	if err != nil {
		return err
	}

	if host == "tui" {
		// The terminal belongs to the panel; the service lives as long as it does.
		if err := ext.Panel.WaitClosed(ctx); err != nil {
			logger.Info("serve interrupted", "err", err)
		}
	} else {
		printWSBanner(ext)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := newConsole(ext, os.Stdin, os.Stdout).run(ctx); err != nil {
				logger.Warn("console stopped", "err", err)
			}
		}()
		select {
		case <-ctx.Done():
		case <-done:
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), deactivateTimeout)
	defer stopCancel()
	return ext.Deactivate(stopCtx)
}

func resolveHost(configured, flag string, flagChanged bool) (string, error) {
	host := strings.TrimSpace(configured)
	if flagChanged || host == "" {
		host = strings.TrimSpace(flag)
	}
	switch host {
	case "tui", "ws":
		return host, nil
	case "auto", "":
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return "tui", nil
		}
		return "ws", nil
	}
	return "", fmt.Errorf("unknown surface host %q; use auto, tui or ws", host)
}

func newTUIHost(cfg *config.Config) func(*Extension) surface.Host {
	return func(ext *Extension) surface.Host {
		chrome := make(map[string]func(), len(chromeCommands))
		for key, name := range chromeCommands {
			chrome[key] = func() {
				if err := ext.Commands.Execute(context.Background(), name); err != nil {
					logger.Warn("chrome command failed", "command", name, "err", err)
				}
			}
		}
		return surface.NewTUIHost(surface.TUIConfig{
			NewModel: func(post func([]byte)) tea.Model {
				return view.NewApp(view.Config{
					Post:     post,
					Title:    cfg.Panel.Title,
					Chrome:   chrome,
					ShowLogs: true,
				})
			},
			Inbound:        func(frame []byte) tea.Msg { return view.InboundMsg{Frame: frame} },
			LogLine:        func(line string) tea.Msg { return view.LogLineMsg{Line: line} },
			InterceptLogs:  true,
			ProgramOptions: []tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion()},
		})
	}
}

func printWSBanner(ext *Extension) {
	fmt.Println("companion is running. Type 'help' for commands, Ctrl+C to stop.")
	fmt.Println("  Callback:", ext.CallbackURL())
	if url, ok := panelURL(ext); ok {
		fmt.Println("  Panel:   ", "companion view "+url)
	}
}

// panelURL returns the websocket address of the open panel.
func panelURL(ext *Extension) (string, bool) {
	ws, ok := ext.Host.(*surface.WSHost)
	if !ok {
		return "", false
	}
	s, ok := ext.Panel.Current()
	if !ok {
		return "", false
	}
	return ws.URL(s.ID()), true
}

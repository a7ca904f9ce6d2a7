package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/linanwx/companion/config"
	"github.com/linanwx/companion/view"
)

var viewCmd = &cobra.Command{
	Use:   "view <url>",
	Short: "Attach a view to a panel served by 'companion serve --host ws'",
	Args:  cobra.ExactArgs(1),
	RunE:  runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)
}

func runView(_ *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return view.RunClient(ctx, args[0], view.Config{Title: cfg.Panel.Title}, tea.WithAltScreen())
}

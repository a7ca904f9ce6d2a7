// Package cmd implements the companion command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linanwx/companion/config"
)

// Version is set at build time.
var Version = "dev"

var configDir string

var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "Editor assistant panel",
	Long: `companion hosts an assistant panel next to your editor.

It owns the panel lifecycle, routes sign-in callbacks to the visible panel
and serves read-only virtual documents such as diffs.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if configDir != "" {
			config.SetConfigDir(configDir)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Config directory (default: ~/.companion)")
	rootCmd.AddGroup(&cobra.Group{ID: "internal", Title: "Internal Commands:"})
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

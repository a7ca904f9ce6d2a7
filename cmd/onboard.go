package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/linanwx/companion/config"
	"github.com/linanwx/companion/provider"
	"github.com/linanwx/companion/router"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize companion configuration",
	Long:  `Choose an API provider and create the companion config file.`,
	RunE:  runOnboard,
}

func init() {
	rootCmd.AddCommand(onboardCmd)
}

func runOnboard(_ *cobra.Command, _ []string) error {
	configPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(configPath); err == nil {
		fmt.Println("Config already exists at:", configPath)
		fmt.Println("To reconfigure, edit the file directly or delete it first.")
		return nil
	}

	var (
		selectedProvider string
		useBrowser       bool
		apiKey           string
	)

	// Step 1: select provider
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Choose your API provider").
				Description("OpenRouter can be connected from the browser without copying a key.").
				Options(buildProviderOptions()...).
				Value(&selectedProvider),
		),
	).Run()
	if err != nil {
		return err
	}

	cfg := config.DefaultConfig()

	// Step 2: OpenRouter may sign in through the callback endpoint instead.
	if selectedProvider == provider.OpenRouter {
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title("Sign in with OpenRouter in the browser?").
					Description("The key is stored when the browser returns to companion.").
					Value(&useBrowser),
			),
		).Run()
		if err != nil {
			return err
		}
	}

	// Step 3: API key
	if !useBrowser {
		reg, _ := provider.Lookup(selectedProvider)
		err = huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Enter your " + selectedProvider + " API key").
					Description("Create one at " + reg.KeyURL).
					EchoMode(huh.EchoModePassword).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return errors.New("API key is required")
						}
						return nil
					}).
					Value(&apiKey),
			),
		).Run()
		if err != nil {
			return err
		}
		cfg.SetProvider(selectedProvider, &config.ProviderConfig{APIKey: strings.TrimSpace(apiKey)})
		cfg.Providers.APIProvider = selectedProvider
	}

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("companion initialized successfully!")
	fmt.Println()
	fmt.Println("  Config:", configPath)
	fmt.Println("  Provider:", selectedProvider)
	if useBrowser {
		callback := "http://" + cfg.Callback.Addr + router.PathOpenRouter
		fmt.Println()
		fmt.Println("Run 'companion serve', then open:")
		fmt.Println("  " + provider.NewOpenRouterAuth(cfg.APIBase(provider.OpenRouter)).AuthURL(callback))
		return nil
	}
	fmt.Println()
	fmt.Println("Run 'companion serve' to start.")
	return nil
}

func buildProviderOptions() []huh.Option[string] {
	names := provider.SupportedProviders()
	// Put openrouter first.
	sorted := make([]string, 0, len(names))
	for _, n := range names {
		if n == provider.OpenRouter {
			sorted = append([]string{n}, sorted...)
		} else {
			sorted = append(sorted, n)
		}
	}
	options := make([]huh.Option[string], 0, len(sorted))
	for _, name := range sorted {
		label := name
		if name == provider.OpenRouter {
			label += " [Recommended]"
		}
		options = append(options, huh.NewOption(label, name))
	}
	return options
}

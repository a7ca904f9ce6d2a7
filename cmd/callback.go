package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/linanwx/companion/config"
	"github.com/linanwx/companion/router"
)

const callbackTimeout = 45 * time.Second

var callbackCmd = &cobra.Command{
	Use:   "callback <uri>",
	Short: "Deliver a callback URI to a running companion",
	Long: `Deliver a callback URI to the running companion's callback endpoint, the
way an OS URL handler would.

Examples:
  companion callback "companion://auth/openrouter?code=abc"
  companion callback "/openrouter?code=abc"`,
	GroupID: "internal",
	Args:    cobra.ExactArgs(1),
	RunE:    runCallback,
}

var callbackAddr string

func init() {
	callbackCmd.Flags().StringVar(&callbackAddr, "addr", "", "Callback server address (overrides config)")
	rootCmd.AddCommand(callbackCmd)
}

func runCallback(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	addr := cfg.Callback.Addr
	if a := strings.TrimSpace(callbackAddr); a != "" {
		addr = a
	}

	target, err := callbackTarget("http://"+addr, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), callbackTimeout)
	defer cancel()
	if err := deliverCallback(ctx, target); err != nil {
		return err
	}
	fmt.Println("Callback delivered.")
	return nil
}

// callbackTarget turns a callback URI into a request URL on the callback
// server at base. The raw query is kept as is.
func callbackTarget(base, raw string) (string, error) {
	u, err := router.ParseURI(raw)
	if err != nil {
		return "", err
	}
	target := strings.TrimRight(base, "/") + u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	if _, err := url.Parse(target); err != nil {
		return "", fmt.Errorf("build callback url: %w", err)
	}
	return target, nil
}

func deliverCallback(ctx context.Context, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("callback server unreachable (is 'companion serve' running?): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("callback rejected: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

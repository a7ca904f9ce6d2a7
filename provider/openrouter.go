package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/linanwx/companion/logger"
)

const (
	openRouterAPIBase  = "https://openrouter.ai/api/v1"
	openRouterAuthPage = "https://openrouter.ai/auth"
)

// OpenRouterAuth completes OpenRouter's sign-in flow: the browser is sent
// to AuthURL, OpenRouter redirects back with a code, and ExchangeCode trades
// the code for an API key.
type OpenRouterAuth struct {
	apiBase    string
	authPage   string
	httpClient *http.Client
}

// NewOpenRouterAuth creates an exchanger for apiBase. Empty uses the public
// API.
func NewOpenRouterAuth(apiBase string) *OpenRouterAuth {
	if apiBase == "" {
		apiBase = openRouterAPIBase
	}
	return &OpenRouterAuth{
		apiBase:    strings.TrimRight(apiBase, "/"),
		authPage:   openRouterAuthPage,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// AuthURL returns the page that starts sign-in and redirects to
// callbackURL when done.
func (a *OpenRouterAuth) AuthURL(callbackURL string) string {
	return a.authPage + "?" + url.Values{"callback_url": {callbackURL}}.Encode()
}

type openRouterKeyResponse struct {
	Key   string `json:"key"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ExchangeCode trades an authorization code for an API key.
func (a *OpenRouterAuth) ExchangeCode(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", errors.New("empty authorization code")
	}
	start := time.Now()

	body, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBase+"/auth/keys", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Title", "companion")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		logger.Error("openrouter key exchange send error", "provider", OpenRouter, "err", err)
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var out openRouterKeyResponse
	if err := json.Unmarshal(respBody, &out); err != nil && resp.StatusCode < 300 {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(respBody))
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		logger.Error("openrouter key exchange failed", "provider", OpenRouter, "status", resp.StatusCode)
		return "", fmt.Errorf("key exchange failed: %s: %s", resp.Status, msg)
	}
	if out.Key == "" {
		return "", errors.New("key exchange returned no key")
	}

	logger.Info("openrouter key exchanged", "provider", OpenRouter, "latencyMs", time.Since(start).Milliseconds())
	return out.Key, nil
}

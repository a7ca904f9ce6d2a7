// Package provider describes the model API providers the assistant can be
// configured with and implements the OpenRouter sign-in exchange.
package provider

import (
	"os"
	"sort"
	"strings"
)

// Provider names.
const (
	OpenRouter = "openrouter"
	Anthropic  = "anthropic"
	OpenAI     = "openai"
)

// Registration defines metadata for a provider.
type Registration struct {
	// EnvKey names the environment variable that overrides the stored key.
	EnvKey  string
	EnvBase string
	APIBase string
	// KeyURL is where a user creates an API key by hand.
	KeyURL string
}

var providerRegistry = map[string]Registration{}

// RegisterProvider registers provider metadata.
func RegisterProvider(name string, reg Registration) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	reg.EnvKey = strings.TrimSpace(reg.EnvKey)
	reg.EnvBase = strings.TrimSpace(reg.EnvBase)
	providerRegistry[name] = reg
}

// Lookup returns the registration for name.
func Lookup(name string) (Registration, bool) {
	reg, ok := providerRegistry[name]
	return reg, ok
}

// SupportedProviders returns all supported provider names in sorted order.
func SupportedProviders() []string {
	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnvAPIKey returns the key set in the provider's environment variable.
func EnvAPIKey(name string) string {
	reg, ok := providerRegistry[name]
	if !ok || reg.EnvKey == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(reg.EnvKey))
}

// EnvAPIBase returns the base URL set in the provider's environment
// variable, or its default.
func EnvAPIBase(name string) string {
	reg, ok := providerRegistry[name]
	if !ok {
		return ""
	}
	if reg.EnvBase != "" {
		if v := strings.TrimSpace(os.Getenv(reg.EnvBase)); v != "" {
			return v
		}
	}
	return reg.APIBase
}

func init() {
	RegisterProvider(OpenRouter, Registration{
		EnvKey:  "OPENROUTER_API_KEY",
		EnvBase: "OPENROUTER_API_BASE",
		APIBase: openRouterAPIBase,
		KeyURL:  "https://openrouter.ai/keys",
	})
	RegisterProvider(Anthropic, Registration{
		EnvKey:  "ANTHROPIC_API_KEY",
		EnvBase: "ANTHROPIC_BASE_URL",
		APIBase: "https://api.anthropic.com",
		KeyURL:  "https://console.anthropic.com/settings/keys",
	})
	RegisterProvider(OpenAI, Registration{
		EnvKey:  "OPENAI_API_KEY",
		EnvBase: "OPENAI_BASE_URL",
		APIBase: "https://api.openai.com/v1",
		KeyURL:  "https://platform.openai.com/api-keys",
	})
}

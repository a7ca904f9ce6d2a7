// Package config handles configuration loading and saving.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/linanwx/companion/logger"
	"github.com/linanwx/companion/provider"
)

const (
	configFileName = "config.yaml"
	configDirEnv   = "COMPANION_CONFIG_DIR"
	defaultDirName = ".companion"
)

var configDirOverride string

// SetConfigDir overrides the config directory for the current process.
// Empty value clears the override.
func SetConfigDir(dir string) {
	configDirOverride = strings.TrimSpace(dir)
}

// Config is the root configuration structure.
type Config struct {
	Panel     PanelConfig     `json:"panel" yaml:"panel"`
	Callback  CallbackConfig  `json:"callback" yaml:"callback"`
	Surface   SurfaceConfig   `json:"surface" yaml:"surface"`
	Providers ProvidersConfig `json:"providers" yaml:"providers"`
	Logging   LoggingConfig   `json:"logging,omitempty" yaml:"logging,omitempty"`
}

// PanelConfig controls the assistant panel.
type PanelConfig struct {
	Title         string `json:"title,omitempty" yaml:"title,omitempty"`
	SettleDelayMs int    `json:"settleDelayMs,omitempty" yaml:"settleDelayMs,omitempty"` // wait before locking the panel's column
	IconLight     string `json:"iconLight,omitempty" yaml:"iconLight,omitempty"`
	IconDark      string `json:"iconDark,omitempty" yaml:"iconDark,omitempty"`
}

// CallbackConfig controls the local endpoint redirects land on.
type CallbackConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"` // default: 127.0.0.1:52987
}

// SurfaceConfig selects where the panel is shown.
type SurfaceConfig struct {
	Host      string `json:"host,omitempty" yaml:"host,omitempty"`           // auto, tui or ws
	PublicURL string `json:"publicUrl,omitempty" yaml:"publicUrl,omitempty"` // ws base URL advertised to views
}

// ProvidersConfig contains provider API configurations.
type ProvidersConfig struct {
	APIProvider string          `json:"apiProvider,omitempty" yaml:"apiProvider,omitempty"` // openrouter, anthropic, openai
	OpenRouter  *ProviderConfig `json:"openrouter,omitempty" yaml:"openrouter,omitempty"`
	Anthropic   *ProviderConfig `json:"anthropic,omitempty" yaml:"anthropic,omitempty"`
	OpenAI      *ProviderConfig `json:"openai,omitempty" yaml:"openai,omitempty"`
}

// ProviderConfig contains API credentials for a provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey" yaml:"apiKey"`
	APIBase string `json:"apiBase,omitempty" yaml:"apiBase,omitempty"` // optional custom base URL
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Enabled *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Level   string `json:"level,omitempty" yaml:"level,omitempty"`   // debug, info, warn, error
	Format  string `json:"format,omitempty" yaml:"format,omitempty"` // text or json
	Stdout  bool   `json:"stdout,omitempty" yaml:"stdout,omitempty"` // log to stderr while no panel owns the terminal
	File    string `json:"file,omitempty" yaml:"file,omitempty"`     // log file path, relative to the config dir
}

// ConfigDir returns the directory holding config.yaml.
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	if dir := strings.TrimSpace(os.Getenv(configDirEnv)); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, defaultDirName), nil
}

// ConfigPath returns the path of config.yaml.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Provider returns the stored settings of the named provider, or nil.
func (c *Config) Provider(name string) *ProviderConfig {
	switch name {
	case provider.OpenRouter:
		return c.Providers.OpenRouter
	case provider.Anthropic:
		return c.Providers.Anthropic
	case provider.OpenAI:
		return c.Providers.OpenAI
	}
	return nil
}

// SetProvider stores settings for the named provider.
func (c *Config) SetProvider(name string, pc *ProviderConfig) bool {
	switch name {
	case provider.OpenRouter:
		c.Providers.OpenRouter = pc
	case provider.Anthropic:
		c.Providers.Anthropic = pc
	case provider.OpenAI:
		c.Providers.OpenAI = pc
	default:
		return false
	}
	return true
}

// APIKey returns the key for the named provider. The provider's environment
// variable wins over the stored key.
func (c *Config) APIKey(name string) string {
	if key := provider.EnvAPIKey(name); key != "" {
		return key
	}
	if pc := c.Provider(name); pc != nil {
		return strings.TrimSpace(pc.APIKey)
	}
	return ""
}

// APIBase returns the base URL for the named provider.
func (c *Config) APIBase(name string) string {
	if pc := c.Provider(name); pc != nil && strings.TrimSpace(pc.APIBase) != "" {
		return strings.TrimSpace(pc.APIBase)
	}
	return provider.EnvAPIBase(name)
}

// BuildLoggerConfig converts the logging section for logger.Init.
func (c *Config) BuildLoggerConfig() logger.Config {
	enabled := true
	if c.Logging.Enabled != nil {
		enabled = *c.Logging.Enabled
	}
	return logger.Config{
		Enabled: enabled,
		Level:   c.Logging.Level,
		Format:  c.Logging.Format,
		Stdout:  c.Logging.Stdout,
		File:    c.Logging.File,
	}
}

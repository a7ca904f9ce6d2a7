package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/linanwx/companion/provider"
)

// Load reads config.yaml. A missing file yields the defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config to config.yaml.
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveFile(path)
}

// SaveFile writes the config to path. The file holds API keys, so it is
// only readable by its owner.
func (c *Config) SaveFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// KeyStore persists provider keys obtained at runtime.
type KeyStore struct {
	mu   sync.Mutex
	cfg  *Config
	path string
}

// NewKeyStore stores keys into cfg and saves it to path. Empty path uses
// ConfigPath.
func NewKeyStore(cfg *Config, path string) *KeyStore {
	return &KeyStore{cfg: cfg, path: path}
}

// SaveOpenRouterKey stores key and selects OpenRouter as the API provider.
func (k *KeyStore) SaveOpenRouterKey(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	pc := k.cfg.Providers.OpenRouter
	if pc == nil {
		pc = &ProviderConfig{}
		k.cfg.Providers.OpenRouter = pc
	}
	pc.APIKey = key
	k.cfg.Providers.APIProvider = provider.OpenRouter

	if k.path != "" {
		return k.cfg.SaveFile(k.path)
	}
	return k.cfg.Save()
}

// HasOpenRouterKey reports whether an OpenRouter key is available.
func (k *KeyStore) HasOpenRouterKey() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cfg.APIKey(provider.OpenRouter) != ""
}

// APIProvider returns the selected provider.
func (k *KeyStore) APIProvider() string {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cfg.Providers.APIProvider
}

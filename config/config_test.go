package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Callback.Addr != defaultCallbackAddr {
		t.Fatalf("callback addr = %q", cfg.Callback.Addr)
	}
	if cfg.SettleDelay() != 100*time.Millisecond {
		t.Fatalf("settle delay = %v", cfg.SettleDelay())
	}
	if cfg.Surface.Host != "auto" {
		t.Fatalf("surface host = %q", cfg.Surface.Host)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("panel:\n  title: Pair\nsurface:\n  host: bogus\nlogging:\n  level: debug\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Panel.Title != "Pair" {
		t.Fatalf("title = %q", cfg.Panel.Title)
	}
	if cfg.Panel.SettleDelayMs != defaultSettleDelayMs {
		t.Fatalf("settle delay = %d", cfg.Panel.SettleDelayMs)
	}
	if cfg.Surface.Host != "auto" {
		t.Fatalf("invalid host not reset: %q", cfg.Surface.Host)
	}

	lc := cfg.BuildLoggerConfig()
	if !lc.Enabled || lc.Level != "debug" || !lc.Stdout || lc.Format != "text" {
		t.Fatalf("logger config = %+v", lc)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("panel: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestKeyStorePersists(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	dir := t.TempDir()
	SetConfigDir(dir)
	t.Cleanup(func() { SetConfigDir("") })

	cfg := DefaultConfig()
	ks := NewKeyStore(cfg, "")
	if ks.HasOpenRouterKey() {
		t.Fatal("fresh config should have no key")
	}
	if err := ks.SaveOpenRouterKey("sk-or-1"); err != nil {
		t.Fatalf("SaveOpenRouterKey: %v", err)
	}
	if !ks.HasOpenRouterKey() || ks.APIProvider() != "openrouter" {
		t.Fatal("key not recorded")
	}

	path := filepath.Join(dir, configFileName)
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("config mode = %v", info.Mode().Perm())
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := loaded.APIKey("openrouter"); got != "sk-or-1" {
		t.Fatalf("reloaded key = %q", got)
	}
}

func TestAPIKeyPrefersEnvironment(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "from-env")

	cfg := DefaultConfig()
	cfg.SetProvider("anthropic", &ProviderConfig{APIKey: "from-file"})
	if got := cfg.APIKey("anthropic"); got != "from-env" {
		t.Fatalf("APIKey = %q", got)
	}
	if cfg.SetProvider("nope", &ProviderConfig{}) {
		t.Fatal("unknown provider accepted")
	}
}

func TestConfigDirFromEnvironment(t *testing.T) {
	t.Setenv(configDirEnv, "/tmp/companion-test")
	SetConfigDir("")

	dir, err := ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != "/tmp/companion-test" {
		t.Fatalf("ConfigDir = %q", dir)
	}
}

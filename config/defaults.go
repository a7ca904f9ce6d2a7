package config

import "time"

const (
	defaultPanelTitle    = "Companion"
	defaultSettleDelayMs = 100
	defaultCallbackAddr  = "127.0.0.1:52987"
	defaultSurfaceHost   = "auto"
	defaultIconLight     = "assets/icons/robot_panel_light.png"
	defaultIconDark      = "assets/icons/robot_panel_dark.png"
)

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Panel: PanelConfig{
			Title:         defaultPanelTitle,
			SettleDelayMs: defaultSettleDelayMs,
			IconLight:     defaultIconLight,
			IconDark:      defaultIconDark,
		},
		Callback: CallbackConfig{
			Addr: defaultCallbackAddr,
		},
		Surface: SurfaceConfig{
			Host: defaultSurfaceHost,
		},
		Logging: defaultLoggingConfig(),
	}
}

func defaultLoggingConfig() LoggingConfig {
	enabled := true
	return LoggingConfig{
		Enabled: &enabled,
		Level:   "info",
		Format:  "text",
		Stdout:  true,
		File:    "logs/companion.log",
	}
}

// SettleDelay returns the panel settle delay as a duration.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Panel.SettleDelayMs) * time.Millisecond
}

func (c *Config) applyDefaults() {
	if c.Panel.Title == "" {
		c.Panel.Title = defaultPanelTitle
	}
	if c.Panel.SettleDelayMs <= 0 {
		c.Panel.SettleDelayMs = defaultSettleDelayMs
	}
	if c.Panel.IconLight == "" {
		c.Panel.IconLight = defaultIconLight
	}
	if c.Panel.IconDark == "" {
		c.Panel.IconDark = defaultIconDark
	}
	if c.Callback.Addr == "" {
		c.Callback.Addr = defaultCallbackAddr
	}
	switch c.Surface.Host {
	case "auto", "tui", "ws":
	default:
		c.Surface.Host = defaultSurfaceHost
	}

	def := defaultLoggingConfig()
	if c.Logging == (LoggingConfig{}) {
		c.Logging = def
		return
	}

	hasAny := c.Logging.Level != "" || c.Logging.File != "" || c.Logging.Stdout
	if c.Logging.Enabled == nil && hasAny {
		enabled := true
		c.Logging.Enabled = &enabled
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Format
	}
	if !c.Logging.Stdout && c.Logging.File == "" {
		c.Logging.Stdout = def.Stdout
	}
	if c.Logging.Enabled == nil {
		c.Logging.Enabled = def.Enabled
	}
}

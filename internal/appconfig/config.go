package appconfig

import (
	"os"
	"path/filepath"
	"time"

	"pkt.systems/chatdeck/schema"
)

// Config is the top-level application configuration.
type Config struct {
	ConfigVersion int              `mapstructure:"config_version" yaml:"config_version"`
	StateDir      string           `mapstructure:"state_dir" yaml:"state_dir"`
	App           AppConfig        `mapstructure:"app" yaml:"app"`
	QuickEntry    QuickEntryConfig `mapstructure:"quick_entry" yaml:"quick_entry"`
	TitleSync     TitleSyncConfig  `mapstructure:"title_sync" yaml:"title_sync"`
	Frames        FramesConfig     `mapstructure:"frames" yaml:"frames"`
	HTTP          HTTPConfig       `mapstructure:"http" yaml:"http"`
}

// CurrentConfigVersion marks the supported config version.
const CurrentConfigVersion = 1

// AppConfig pins the embedded web application.
type AppConfig struct {
	URL            string   `mapstructure:"url" yaml:"url"`
	AllowedDomains []string `mapstructure:"allowed_domains" yaml:"allowed_domains"`
}

// QuickEntryConfig controls the quick-entry coordinator.
type QuickEntryConfig struct {
	TTLSeconds         int  `mapstructure:"ttl_seconds" yaml:"ttl_seconds"`
	DisableAutoSubmit  bool `mapstructure:"disable_auto_submit" yaml:"disable_auto_submit"`
	DeterministicReady bool `mapstructure:"deterministic_ready" yaml:"deterministic_ready"`
}

// TitleSyncConfig controls the title sync poller.
type TitleSyncConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds" yaml:"interval_seconds"`
}

// FramesConfig configures the browser host.
type FramesConfig struct {
	NamePrefix   string `mapstructure:"name_prefix" yaml:"name_prefix"`
	ChromePath   string `mapstructure:"chrome_path" yaml:"chrome_path"`
	Headless     bool   `mapstructure:"headless" yaml:"headless"`
	UserDataDir  string `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	WindowWidth  int    `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight int    `mapstructure:"window_height" yaml:"window_height"`
}

// HTTPConfig configures the local control API.
type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() (Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		ConfigVersion: CurrentConfigVersion,
		StateDir:      filepath.Join(home, ".chatdeck", "state"),
		App: AppConfig{
			URL: "https://chatgpt.com/",
		},
		QuickEntry: QuickEntryConfig{
			TTLSeconds: int(schema.DefaultQuickEntryTTL / time.Second),
		},
		TitleSync: TitleSyncConfig{
			IntervalSeconds: int(schema.DefaultTitlePollInterval / time.Second),
		},
		Frames: FramesConfig{
			NamePrefix:   schema.DefaultFramePrefix,
			ChromePath:   "",
			Headless:     false,
			UserDataDir:  filepath.Join(home, ".chatdeck", "profile"),
			WindowWidth:  1280,
			WindowHeight: 900,
		},
		HTTP: HTTPConfig{
			Addr: "127.0.0.1:27490",
		},
	}, nil
}

// DefaultConfigPath returns the standard config path.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".chatdeck", "config.yaml"), nil
}

// ShellConfig converts the file-level settings into the service config.
func (c Config) ShellConfig() schema.ShellConfig {
	return schema.ShellConfig{
		AppURL:             c.App.URL,
		AllowedDomains:     c.App.AllowedDomains,
		QuickEntryTTL:      time.Duration(c.QuickEntry.TTLSeconds) * time.Second,
		TitlePollInterval:  time.Duration(c.TitleSync.IntervalSeconds) * time.Second,
		FramePrefix:        c.Frames.NamePrefix,
		DisableAutoSubmit:  c.QuickEntry.DisableAutoSubmit,
		DeterministicReady: c.QuickEntry.DeterministicReady,
	}
}

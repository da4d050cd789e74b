package appconfig

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the provided path. If path is empty, uses DefaultConfigPath.
func Load(path string) (Config, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("config_version", cfg.ConfigVersion)
	v.SetDefault("state_dir", cfg.StateDir)
	v.SetDefault("app.url", cfg.App.URL)
	v.SetDefault("app.allowed_domains", cfg.App.AllowedDomains)
	v.SetDefault("quick_entry.ttl_seconds", cfg.QuickEntry.TTLSeconds)
	v.SetDefault("quick_entry.disable_auto_submit", cfg.QuickEntry.DisableAutoSubmit)
	v.SetDefault("quick_entry.deterministic_ready", cfg.QuickEntry.DeterministicReady)
	v.SetDefault("title_sync.interval_seconds", cfg.TitleSync.IntervalSeconds)
	v.SetDefault("frames.name_prefix", cfg.Frames.NamePrefix)
	v.SetDefault("frames.chrome_path", cfg.Frames.ChromePath)
	v.SetDefault("frames.headless", cfg.Frames.Headless)
	v.SetDefault("frames.user_data_dir", cfg.Frames.UserDataDir)
	v.SetDefault("frames.window_width", cfg.Frames.WindowWidth)
	v.SetDefault("frames.window_height", cfg.Frames.WindowHeight)
	v.SetDefault("http.addr", cfg.HTTP.Addr)

	configLoaded := false
	if err := v.ReadInConfig(); err != nil {
		// A missing file falls back to pure defaults.
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !os.IsNotExist(err) {
			return Config{}, err
		}
	} else {
		configLoaded = true
	}

	if configLoaded {
		if !v.IsSet("config_version") {
			return Config{}, fmt.Errorf("config_version is required; expected %d", CurrentConfigVersion)
		}
		if v.GetInt("config_version") != CurrentConfigVersion {
			return Config{}, fmt.Errorf("unsupported config_version %d; expected %d", v.GetInt("config_version"), CurrentConfigVersion)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	expandConfigEnv(&cfg)
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	appURL := strings.TrimSpace(cfg.App.URL)
	parsed, err := url.Parse(appURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("app.url must include scheme and host (e.g. https://chatgpt.com/)")
	}
	if cfg.QuickEntry.TTLSeconds <= 0 {
		return fmt.Errorf("quick_entry.ttl_seconds must be positive")
	}
	if cfg.TitleSync.IntervalSeconds <= 0 {
		return fmt.Errorf("title_sync.interval_seconds must be positive")
	}
	if strings.TrimSpace(cfg.StateDir) == "" {
		return fmt.Errorf("state_dir must not be empty")
	}
	return nil
}

func expandConfigEnv(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StateDir = expandEnv(cfg.StateDir)
	cfg.Frames.ChromePath = expandEnv(cfg.Frames.ChromePath)
	cfg.Frames.UserDataDir = expandEnv(cfg.Frames.UserDataDir)
}

func expandEnv(value string) string {
	if value == "" {
		return value
	}
	return os.Expand(value, func(key string) string {
		if key == "" {
			return ""
		}
		if val, ok := lookupEnv(key); ok {
			return val
		}
		return "$" + key
	})
}

func lookupEnv(key string) (string, bool) {
	if val, ok := os.LookupEnv(key); ok {
		return val, true
	}
	switch key {
	case "UID":
		return fmt.Sprintf("%d", os.Getuid()), true
	case "GID":
		return fmt.Sprintf("%d", os.Getgid()), true
	}
	return "", false
}

// WriteDefault writes the default config to the target path.
func WriteDefault(path string, overwrite bool) (string, error) {
	if path == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = defaultPath
	}

	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	}

	cfg, err := DefaultConfig()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

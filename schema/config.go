package schema

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// ShellConfig defines defaults and limits for the shell service.
type ShellConfig struct {
	// AppURL is the fixed application entry URL every tab points at.
	AppURL string
	// AllowedDomains is the host allowlist checked before any privileged
	// frame operation. Defaults to the AppURL host.
	AllowedDomains []string
	// QuickEntryTTL bounds the age of pending quick-entry requests.
	QuickEntryTTL time.Duration
	// TitlePollInterval is the title sync cadence.
	TitlePollInterval time.Duration
	// FramePrefix prefixes tab ids to form frame names.
	FramePrefix string
	// DisableAutoSubmit stops injection from submitting the composed message.
	DisableAutoSubmit bool
	// DeterministicReady buffers ready signals for explicit replay. Test
	// mode only.
	DeterministicReady bool
}

// DefaultQuickEntryTTL bounds how long a submit waits for its ready signal.
const DefaultQuickEntryTTL = 120 * time.Second

// DefaultTitlePollInterval is the title sync cadence.
const DefaultTitlePollInterval = 3 * time.Second

// DefaultFramePrefix names frames as prefix+tabID.
const DefaultFramePrefix = "tabframe-"

// NormalizeShellConfig applies defaults and validates the config.
func NormalizeShellConfig(cfg ShellConfig) (ShellConfig, error) {
	cfg.AppURL = strings.TrimSpace(cfg.AppURL)
	if cfg.AppURL == "" {
		return ShellConfig{}, errors.New("app url is required")
	}
	parsed, err := url.Parse(cfg.AppURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return ShellConfig{}, errors.New("app url must be an absolute http(s) url")
	}
	if len(cfg.AllowedDomains) == 0 {
		cfg.AllowedDomains = []string{parsed.Hostname()}
	}
	trimmed := make([]string, 0, len(cfg.AllowedDomains))
	for _, domain := range cfg.AllowedDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain != "" {
			trimmed = append(trimmed, domain)
		}
	}
	if len(trimmed) == 0 {
		return ShellConfig{}, errors.New("allowed domains must not be empty")
	}
	cfg.AllowedDomains = trimmed
	if cfg.QuickEntryTTL <= 0 {
		cfg.QuickEntryTTL = DefaultQuickEntryTTL
	}
	if cfg.TitlePollInterval <= 0 {
		cfg.TitlePollInterval = DefaultTitlePollInterval
	}
	if strings.TrimSpace(cfg.FramePrefix) == "" {
		cfg.FramePrefix = DefaultFramePrefix
	}
	return cfg, nil
}

// FrameName derives the deterministic frame name for a tab.
func (c ShellConfig) FrameName(tabID TabID) string {
	return c.FramePrefix + string(tabID)
}

// IsAllowedDomain reports whether rawURL points at an allowlisted host.
// Matching is exact host or subdomain. Frames can navigate away from the
// application origin (auth redirects); every privileged frame operation
// checks this first.
func (c ShellConfig) IsAllowedDomain(rawURL string) bool {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}
	for _, domain := range c.AllowedDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// Package config holds the debate tool's configuration: which targets to
// query, where browser profiles live, how the backend attaches to Chrome,
// and the timing knobs of the prompt pipeline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration, loaded from YAML.
type Config struct {
	// Targets lists the target IDs to debate across. Empty means all
	// registered targets.
	Targets []string `yaml:"targets"`

	// TriageTarget is the target whose client runs the synthesis round.
	TriageTarget string `yaml:"triage_target"`

	Browser BrowserConfig `yaml:"browser"`
	Prompt  PromptConfig  `yaml:"prompt"`
	Server  ServerConfig  `yaml:"server"`
}

// BrowserConfig configures session acquisition.
type BrowserConfig struct {
	// Backend selects how sessions are acquired: "launch" starts one
	// Chrome per target with a persistent profile; "attach" shares an
	// already-running Chrome over its DevTools URL.
	Backend string `yaml:"backend"`

	// DataDir is the root for per-target profiles and cookie stores.
	DataDir string `yaml:"data_dir"`

	// ControlURL is the DevTools websocket URL for the attach backend.
	ControlURL string `yaml:"control_url"`

	// Headless runs Chrome without a window. Auth setup needs this off.
	Headless bool `yaml:"headless"`

	// UserAgent overrides the browser user agent.
	UserAgent string `yaml:"user_agent"`
}

// PromptConfig tunes the prompt pipeline and streaming loop.
type PromptConfig struct {
	// ResponseTimeoutMs bounds one streamed response, per target.
	ResponseTimeoutMs int `yaml:"response_timeout_ms"`
	// NavigationTimeoutMs bounds each page navigation.
	NavigationTimeoutMs int `yaml:"navigation_timeout_ms"`
	// PollIntervalMs is the streaming loop tick.
	PollIntervalMs int `yaml:"poll_interval_ms"`
	// StableTicks is how many unchanged polls count as completion when the
	// page offers no explicit signal.
	StableTicks int `yaml:"stable_ticks"`
	// MaxRetries is the total attempt count for one prompt.
	MaxRetries int `yaml:"max_retries"`
	// RetryDelayBaseMs is the first retry backoff; it doubles per attempt.
	RetryDelayBaseMs int `yaml:"retry_delay_base_ms"`
}

// ServerConfig configures the local streaming server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DefaultConfig returns sensible defaults: all targets, launch backend with
// profiles under ~/.debate/browser-data, triage through claude.
func DefaultConfig() Config {
	return Config{
		Targets:      nil, // all registered
		TriageTarget: "claude",
		Browser: BrowserConfig{
			Backend:  "launch",
			Headless: false,
		},
		Prompt: PromptConfig{
			ResponseTimeoutMs:   120000,
			NavigationTimeoutMs: 30000,
			PollIntervalMs:      100,
			StableTicks:         30,
			MaxRetries:          3,
			RetryDelayBaseMs:    2000,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8765,
		},
	}
}

// Load reads config from path, layered over defaults. A missing file is not
// an error; the defaults stand.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// DataDir returns the browser data directory, defaulting to
// ~/.debate/browser-data.
func (c Config) DataDir() string {
	if c.Browser.DataDir != "" {
		return c.Browser.DataDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".debate", "browser-data")
	}
	return filepath.Join(home, ".debate", "browser-data")
}

// ResponseTimeout returns the per-target streaming budget.
func (c Config) ResponseTimeout() time.Duration {
	if c.Prompt.ResponseTimeoutMs == 0 {
		return 120 * time.Second
	}
	return time.Duration(c.Prompt.ResponseTimeoutMs) * time.Millisecond
}

// NavigationTimeout returns the per-navigation bound.
func (c Config) NavigationTimeout() time.Duration {
	if c.Prompt.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Prompt.NavigationTimeoutMs) * time.Millisecond
}

// PollInterval returns the streaming loop tick.
func (c Config) PollInterval() time.Duration {
	if c.Prompt.PollIntervalMs == 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(c.Prompt.PollIntervalMs) * time.Millisecond
}

// RetryDelayBase returns the first retry backoff.
func (c Config) RetryDelayBase() time.Duration {
	if c.Prompt.RetryDelayBaseMs == 0 {
		return 2 * time.Second
	}
	return time.Duration(c.Prompt.RetryDelayBaseMs) * time.Millisecond
}

// Addr returns the server listen address.
func (c Config) Addr() string {
	host := c.Server.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := c.Server.Port
	if port == 0 {
		port = 8765
	}
	return fmt.Sprintf("%s:%d", host, port)
}

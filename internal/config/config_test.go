package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
targets: [claude, gemini]
triage_target: gemini
browser:
  backend: attach
  control_url: ws://127.0.0.1:9222
  headless: true
prompt:
  response_timeout_ms: 60000
  stable_ticks: 50
server:
  port: 9000
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"claude", "gemini"}, cfg.Targets)
	assert.Equal(t, "gemini", cfg.TriageTarget)
	assert.Equal(t, "attach", cfg.Browser.Backend)
	assert.Equal(t, "ws://127.0.0.1:9222", cfg.Browser.ControlURL)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, time.Minute, cfg.ResponseTimeout())
	assert.Equal(t, 50, cfg.Prompt.StableTicks)
	// Untouched sections keep their defaults.
	assert.Equal(t, 3, cfg.Prompt.MaxRetries)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("targets: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestDurationGetters(t *testing.T) {
	var zero Config
	assert.Equal(t, 120*time.Second, zero.ResponseTimeout())
	assert.Equal(t, 30*time.Second, zero.NavigationTimeout())
	assert.Equal(t, 100*time.Millisecond, zero.PollInterval())
	assert.Equal(t, 2*time.Second, zero.RetryDelayBase())
	assert.Equal(t, "127.0.0.1:8765", zero.Addr())

	cfg := Config{Prompt: PromptConfig{ResponseTimeoutMs: 500, PollIntervalMs: 10}}
	assert.Equal(t, 500*time.Millisecond, cfg.ResponseTimeout())
	assert.Equal(t, 10*time.Millisecond, cfg.PollInterval())
}

func TestDataDir(t *testing.T) {
	cfg := Config{Browser: BrowserConfig{DataDir: "/tmp/profiles"}}
	assert.Equal(t, "/tmp/profiles", cfg.DataDir())

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".debate", "browser-data"), Config{}.DataDir())
}

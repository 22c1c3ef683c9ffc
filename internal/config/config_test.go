package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmdmdm-nz/trafficlightd/internal/light"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trafficlightd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FullFile(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
api:
  host: 0.0.0.0
  port: 8080
announce:
  enabled: true
  instance: crossing-1
light:
  poll_interval: 5ms
  min_cycle: 2s
  max_cycle: 3s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "0.0.0.0", cfg.API.Host)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.True(t, cfg.Announce.Enabled)
	assert.Equal(t, "crossing-1", cfg.Announce.Instance)
	assert.Equal(t, 5*time.Millisecond, cfg.Light.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.Light.MinCycle)
	assert.Equal(t, 3*time.Second, cfg.Light.MaxCycle)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  port: 9000
light:
  max_cycle: 7s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultHost, cfg.API.Host)
	assert.Equal(t, 9000, cfg.API.Port)
	assert.False(t, cfg.Announce.Enabled)
	assert.Equal(t, DefaultInstance, cfg.Announce.Instance)
	assert.Equal(t, light.DefaultPollInterval, cfg.Light.PollInterval)
	assert.Equal(t, light.DefaultMinCycle, cfg.Light.MinCycle)
	assert.Equal(t, 7*time.Second, cfg.Light.MaxCycle)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "api: [unterminated\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"port too large", func(c *Config) { c.API.Port = 70000 }},
		{"negative port", func(c *Config) { c.API.Port = -1 }},
		{"announce without instance", func(c *Config) { c.Announce.Enabled = true; c.Announce.Instance = "" }},
		{"max below min", func(c *Config) { c.Light.MaxCycle = time.Second }},
		{"negative poll interval", func(c *Config) { c.Light.PollInterval = -time.Millisecond }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestValidate_WrapsLightError(t *testing.T) {
	cfg := Default()
	cfg.Light.MinCycle = -time.Second

	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, light.ErrInvalidConfig)
}

func TestLightConfig(t *testing.T) {
	cfg := Default()
	lc := cfg.LightConfig()

	assert.Equal(t, light.DefaultConfig().PollInterval, lc.PollInterval)
	assert.Equal(t, light.DefaultConfig().MinCycle, lc.MinCycle)
	assert.Equal(t, light.DefaultConfig().MaxCycle, lc.MaxCycle)
	assert.Nil(t, lc.NextDuration)
}

func TestConfig_String(t *testing.T) {
	s := Default().String()
	assert.Contains(t, s, "Host: 127.0.0.1")
	assert.Contains(t, s, "Port: 60110")
	assert.Contains(t, s, "Cycle: 4s-6s")
}

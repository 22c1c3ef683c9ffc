package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/trafficlightd/internal/light"
)

const (
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 60110
	DefaultLogLevel = "info"
	DefaultInstance = "trafficlightd"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	LogLevel string          `yaml:"log_level"`
	API      *APIConfig      `yaml:"api"`
	Announce *AnnounceConfig `yaml:"announce"`
	Light    *LightConfig    `yaml:"light"`
}

type APIConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type AnnounceConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"`
}

type LightConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	MinCycle     time.Duration `yaml:"min_cycle"`
	MaxCycle     time.Duration `yaml:"max_cycle"`
}

func Default() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		API: &APIConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Announce: &AnnounceConfig{
			Instance: DefaultInstance,
		},
		Light: &LightConfig{
			PollInterval: light.DefaultPollInterval,
			MinCycle:     light.DefaultMinCycle,
			MaxCycle:     light.DefaultMaxCycle,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := Parse(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Keys the document omits or leaves zero fall
// back to the defaults.
func Parse(b []byte, cfg *Config) error {
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return err
	}
	cfg.applyDefaults()
	return nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.API == nil {
		c.API = def.API
	}
	if c.API.Host == "" {
		c.API.Host = def.API.Host
	}
	if c.API.Port == 0 {
		c.API.Port = def.API.Port
	}
	if c.Announce == nil {
		c.Announce = def.Announce
	}
	if c.Announce.Instance == "" {
		c.Announce.Instance = def.Announce.Instance
	}
	if c.Light == nil {
		c.Light = def.Light
	}
	if c.Light.PollInterval == 0 {
		c.Light.PollInterval = def.Light.PollInterval
	}
	if c.Light.MinCycle == 0 {
		c.Light.MinCycle = def.Light.MinCycle
	}
	if c.Light.MaxCycle == 0 {
		c.Light.MaxCycle = def.Light.MaxCycle
	}
}

func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalid, err)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("%w: api.port %d out of range", ErrInvalid, c.API.Port)
	}
	if c.Announce.Enabled && c.Announce.Instance == "" {
		return fmt.Errorf("%w: announce.instance is required when announce is enabled", ErrInvalid)
	}
	if err := c.LightConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

func (c *Config) LightConfig() light.Config {
	return light.Config{
		PollInterval: c.Light.PollInterval,
		MinCycle:     c.Light.MinCycle,
		MaxCycle:     c.Light.MaxCycle,
	}
}

// String returns a string representation of the Config
func (c *Config) String() string {
	return fmt.Sprintf("Host: %s, Port: %d, LogLevel: %s, Announce: %t, PollInterval: %s, Cycle: %s-%s",
		c.API.Host, c.API.Port, c.LogLevel, c.Announce.Enabled,
		c.Light.PollInterval, c.Light.MinCycle, c.Light.MaxCycle)
}

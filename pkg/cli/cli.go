package cli

import (
	"fmt"
	"time"

	"github.com/alecthomas/kong"

	"github.com/dmdmdm-nz/trafficlightd/internal/config"
	"github.com/dmdmdm-nz/trafficlightd/pkg/version"
)

// CLI holds the command line flags. Zero values mean "not set" and leave the
// configuration file untouched.
type CLI struct {
	Config       string        `help:"Config file path (YAML)" short:"c" type:"path"`
	Host         string        `help:"Host to bind the API to"`
	Port         int           `help:"Port to listen on"`
	LogLevel     string        `help:"Log level (trace, debug, info, warn, error)"`
	Announce     bool          `help:"Advertise the API over mDNS"`
	PollInterval time.Duration `help:"How often the light checks whether its phase is over"`
	MinCycle     time.Duration `help:"Shortest phase duration"`
	MaxCycle     time.Duration `help:"Longest phase duration"`

	Version kong.VersionFlag `help:"Show version information"`
}

func options(extra ...kong.Option) []kong.Option {
	return append([]kong.Option{
		kong.Name("trafficlightd"),
		kong.Description("A traffic light that cycles between red and green and lets clients wait for green."),
		kong.Vars{"version": fmt.Sprintf("trafficlightd version %s", version.String())},
	}, extra...)
}

// ParseFlags parses os.Args, exiting on error or --version.
func ParseFlags() *CLI {
	c := &CLI{}
	kong.Parse(c, options()...)
	return c
}

// ParseArgs parses args without touching os.Args.
func ParseArgs(args []string, extra ...kong.Option) (*CLI, error) {
	c := &CLI{}
	parser, err := kong.New(c, options(extra...)...)
	if err != nil {
		return nil, err
	}
	if _, err := parser.Parse(args); err != nil {
		return nil, err
	}
	return c, nil
}

// Apply overlays the flags that were set onto cfg.
func (c *CLI) Apply(cfg *config.Config) {
	if c.Host != "" {
		cfg.API.Host = c.Host
	}
	if c.Port != 0 {
		cfg.API.Port = c.Port
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	if c.Announce {
		cfg.Announce.Enabled = true
	}
	if c.PollInterval != 0 {
		cfg.Light.PollInterval = c.PollInterval
	}
	if c.MinCycle != 0 {
		cfg.Light.MinCycle = c.MinCycle
	}
	if c.MaxCycle != 0 {
		cfg.Light.MaxCycle = c.MaxCycle
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/trafficlightd/internal/announce"
	"github.com/dmdmdm-nz/trafficlightd/internal/api"
	"github.com/dmdmdm-nz/trafficlightd/internal/config"
	"github.com/dmdmdm-nz/trafficlightd/internal/light"
	"github.com/dmdmdm-nz/trafficlightd/internal/runtime"
	"github.com/dmdmdm-nz/trafficlightd/pkg/cli"
	"github.com/dmdmdm-nz/trafficlightd/pkg/version"
)

func main() {
	// Parse command line flags
	flags := cli.ParseFlags()

	cfg, err := config.Load(flags.Config)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	flags.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	// Configure logging
	setLogLevel(cfg.LogLevel)
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		FullTimestamp:   true,
	})

	log.Infof("Version: %s", version.String())
	log.Infof("Config: %s", cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tl, err := light.NewTrafficLight(cfg.LightConfig())
	if err != nil {
		log.WithError(err).Fatal("Failed to create traffic light")
	}

	apiSvc := api.NewService(cfg.API.Host, cfg.API.Port)
	apiSvc.AttachLight(tl)

	// Start in dependency order: light → api → announce
	super := runtime.NewSupervisor()
	super.Add("light", func(ctx context.Context) error {
		if err := tl.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	}, tl.Stop)
	super.Add("api", apiSvc.Start, apiSvc.Close)

	if cfg.Announce.Enabled {
		announcer := announce.NewService(cfg.Announce.Instance, cfg.API.Port, tl.ID().String(), version.Version)
		super.Add("announce", announcer.Start, announcer.Close)
	}

	if err := super.Start(ctx); err != nil {
		log.WithError(err).Error("Supervisor start failed")
		os.Exit(1)
	}
	if err := super.Wait(ctx); err != nil {
		log.WithError(err).Error("Supervisor wait failed")
		os.Exit(1)
	}
}

func setLogLevel(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

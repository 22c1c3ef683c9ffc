package announce

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmdmdm-nz/zeroconf"
	log "github.com/sirupsen/logrus"
)

const (
	ServiceType = "_trafficlight._tcp"
	Domain      = "local."
)

// Service advertises the API over mDNS / DNS-SD.
type Service struct {
	instance string
	port     int
	text     []string

	mu     sync.Mutex
	server *zeroconf.Server
	closed bool
}

func NewService(instance string, port int, lightID, version string) *Service {
	return &Service{
		instance: instance,
		port:     port,
		text:     TXTRecords(lightID, version),
	}
}

// TXTRecords builds the key=value pairs published with the service.
func TXTRecords(lightID, version string) []string {
	return []string{
		fmt.Sprintf("id=%s", lightID),
		fmt.Sprintf("version=%s", version),
	}
}

// Start registers the service and blocks until ctx ends.
func (s *Service) Start(ctx context.Context) error {
	server, err := zeroconf.Register(s.instance, ServiceType, Domain, s.port, s.text, nil)
	if err != nil {
		return fmt.Errorf("register mdns service %s: %w", s.instance, err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		server.Shutdown()
		return nil
	}
	s.server = server
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"instance": s.instance,
		"service":  ServiceType,
		"port":     s.port,
	}).Info("Advertising API over mDNS")

	<-ctx.Done()
	return s.Close()
}

func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.server != nil {
		s.server.Shutdown()
		s.server = nil
		log.WithField("instance", s.instance).Info("Stopped mDNS advertisement")
	}
	return nil
}

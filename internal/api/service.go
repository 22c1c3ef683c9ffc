package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/trafficlightd/internal/light"
	"github.com/dmdmdm-nz/trafficlightd/pkg/version"
)

const shutdownTimeout = 5 * time.Second

var ErrNoLight = errors.New("api: no light attached")

// PhaseSource is the part of a traffic light the API serves.
type PhaseSource interface {
	ID() uuid.UUID
	Snapshot() light.PhaseEvent
	Subscribe() (<-chan light.PhaseEvent, func())
	NextTransition(ctx context.Context, target light.Phase) (light.PhaseEvent, error)
	WaitForGreen(ctx context.Context) error
}

// Service represents the HTTP server for the API
type Service struct {
	address string
	port    int

	light PhaseSource

	mu     sync.Mutex
	server *http.Server
	closed bool
}

func NewService(host string, port int) *Service {
	return &Service{
		address: host,
		port:    port,
	}
}

// AttachLight wires the light to serve (must be called before Start).
func (s *Service) AttachLight(src PhaseSource) {
	s.light = src
}

// Start serves the API until ctx ends.
func (s *Service) Start(ctx context.Context) error {
	if s.light == nil {
		return ErrNoLight
	}

	addr := net.JoinHostPort(s.address, fmt.Sprintf("%d", s.port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.server = srv
	s.mu.Unlock()

	log.Infof("Starting trafficlightd API service at %s", addr)
	defer log.Info("Stopping trafficlightd API service")

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api listen on %s: %w", addr, err)
	case <-ctx.Done():
		return s.shutdown()
	}
}

func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.shutdown()
}

func (s *Service) shutdown() error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler returns the API routes.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, version.Current())
	})
	mux.HandleFunc("GET /phase", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.light.Snapshot())
	})
	mux.HandleFunc("GET /wait", s.waitForPhase)
	mux.HandleFunc("GET /ws/phases", s.streamPhases)
	return mux
}

// waitForPhase blocks until the next transition to ?phase= (default green),
// bounded by the request context and an optional ?timeout=. With ?mode=queue
// it takes a Green from the light's queue instead, so concurrent callers
// compete for each transition.
func (s *Service) waitForPhase(w http.ResponseWriter, r *http.Request) {
	queued := false
	switch m := r.URL.Query().Get("mode"); m {
	case "", "broadcast":
	case "queue":
		queued = true
	default:
		http.Error(w, fmt.Sprintf("invalid mode %q", m), http.StatusBadRequest)
		return
	}

	target := light.Green
	if q := r.URL.Query().Get("phase"); q != "" {
		p, err := light.ParsePhase(q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		target = p
	}
	if queued && target != light.Green {
		http.Error(w, "mode=queue only waits for green", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if q := r.URL.Query().Get("timeout"); q != "" {
		d, err := time.ParseDuration(q)
		if err != nil || d <= 0 {
			http.Error(w, fmt.Sprintf("invalid timeout %q", q), http.StatusBadRequest)
			return
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	var ev light.PhaseEvent
	var err error
	if queued {
		if err = s.light.WaitForGreen(ctx); err == nil {
			ev = s.light.Snapshot()
		}
	} else {
		ev, err = s.light.NextTransition(ctx, target)
	}

	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, ev)
	case errors.Is(err, context.DeadlineExceeded):
		http.Error(w, fmt.Sprintf("timed out waiting for %s", target), http.StatusGatewayTimeout)
	case errors.Is(err, light.ErrStopped):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, context.Canceled):
		log.WithField("phase", target.String()).Debug("Client went away while waiting for phase")
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

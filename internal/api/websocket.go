package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/dmdmdm-nz/trafficlightd/pkg/version"
)

func accept(w http.ResponseWriter, r *http.Request) (*websocket.Conn, context.Context, error) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return nil, nil, err
	}
	return c, r.Context(), nil
}

// streamPhases pushes the current phase followed by every change as JSON
// text messages until the client disconnects or the light stops.
func (s *Service) streamPhases(w http.ResponseWriter, r *http.Request) {
	if cv := r.URL.Query().Get("client_version"); cv != "" {
		if err := version.Compatible(cv); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	c, ctx, err := accept(w, r)
	if err != nil {
		log.WithError(err).Error("Failed to accept websocket client")
		return
	}
	defer c.Close(websocket.StatusNormalClosure, "closing")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Clients never send; a read error means they went away.
	go func() {
		for {
			if _, _, err := c.Read(ctx); err != nil {
				cancel()
				return
			}
		}
	}()

	events, unsub := s.light.Subscribe()
	defer unsub()

	logger := log.WithFields(log.Fields{
		"light":  s.light.ID().String(),
		"remote": r.RemoteAddr,
	})
	logger.Debug("Phase stream opened")
	defer logger.Debug("Phase stream closed")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = c.Close(websocket.StatusGoingAway, "light stopped")
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				logger.WithError(err).Warn("Failed to encode phase event")
				continue
			}
			if err := c.Write(ctx, websocket.MessageText, b); err != nil {
				return
			}
		}
	}
}

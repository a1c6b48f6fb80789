package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// pingInterval keeps idle watch connections alive through proxies.
const pingInterval = 30 * time.Second

// handleAdminWatch streams registration events to the admin dashboard
// over a websocket, replacing dashboard polling.
func (s *Server) handleAdminWatch(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "watch not available", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	events, cancel := s.hub.Subscribe()
	defer cancel()

	slog.Info("admin watch connected", "remote_addr", r.RemoteAddr, "watchers", s.hub.Subscribers())

	// Drain the read side so close frames are processed; the watch
	// stream is one-way.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			slog.Info("admin watch disconnected", "remote_addr", r.RemoteAddr)
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				slog.Debug("failed to send watch event", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

package http

import (
	"net/http"

	"github.com/gorilla/websocket"

	"ecoloquiz-service/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type outboundMessage struct {
	Type    string             `json:"type"`
	Payload domain.Leaderboard `json:"payload"`
}

// serveLeaderboardWS streams leaderboard snapshots to display screens.
// The subscription primes with the current standing and pushes an update
// after every point change.
func (h *Handler) serveLeaderboardWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel, err := h.hub.Subscribe(r.Context())
	if err != nil {
		h.log.WithError(err).Warn("leaderboard subscribe failed")
		return
	}
	defer cancel()

	// Reader goroutine: its only job is to notice the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage{Type: "leaderboard", Payload: update}); err != nil {
				h.log.WithError(err).Debug("ws write error")
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

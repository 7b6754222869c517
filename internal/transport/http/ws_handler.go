package http

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"ramadan-quiz-service/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsMessage struct {
	Type    string                    `json:"type"`
	Payload []domain.LeaderboardEntry `json:"payload"`
}

// serveLeaderboardWS streams leaderboard snapshots over a websocket. The
// token travels as a query parameter because browsers cannot set headers on
// websocket upgrades.
func (a *API) serveLeaderboardWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	user, err := a.auth.Verify(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	if user.Banned {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := a.hub.Subscribe()
	defer cancel()

	// Prime new subscribers with a snapshot even before any score changes.
	if entries, err := a.quiz.Leaderboard(r.Context(), 50); err == nil {
		if err := conn.WriteJSON(wsMessage{Type: "leaderboard", Payload: entries}); err != nil {
			return
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		// drain inbound frames to detect the close handshake
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case entries, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(wsMessage{Type: "leaderboard", Payload: entries}); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ramadan-quiz-service/internal/domain"
)

func TestLeaderboardWebSocketStreamsUpdates(t *testing.T) {
	server, _ := newTestServer(t, seedQuestions())
	watcherToken := register(t, server, "watcher@example.com", "Watcher")
	playerToken := register(t, server, "player@example.com", "Player")

	wsURL := "ws" + server.URL[len("http"):] + "/ws/leaderboard?token=" + watcherToken
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial snapshot arrives before any score changes.
	msg := readLeaderboard(t, conn)
	if msg.Type != "leaderboard" {
		t.Fatalf("expected a leaderboard frame, got %s", msg.Type)
	}

	resp := doJSON(t, http.MethodPost, server.URL+"/api/quiz/start", playerToken, nil)
	resp.Body.Close()
	resp = doJSON(t, http.MethodPost, server.URL+"/api/quiz/answer", playerToken, map[string]interface{}{
		"questionId": "e1", "chosenIndex": 0,
	})
	resp.Body.Close()

	msg = readLeaderboard(t, conn)
	if len(msg.Payload) != 1 || msg.Payload[0].Total != 5 {
		t.Fatalf("expected the player's 5 points, got %+v", msg.Payload)
	}
}

func TestLeaderboardWebSocketRejectsBadToken(t *testing.T) {
	server, _ := newTestServer(t, seedQuestions())

	wsURL := "ws" + server.URL[len("http"):] + "/ws/leaderboard?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("expected the upgrade to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func readLeaderboard(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	var msg wsFrame
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg
}

type wsFrame struct {
	Type    string                    `json:"type"`
	Payload []domain.LeaderboardEntry `json:"payload"`
}

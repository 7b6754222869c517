package app_test

import (
	"context"
	"testing"

	"ramadan-quiz-service/internal/app"
	"ramadan-quiz-service/internal/domain"
)

func TestHubSubscribeReceivesUpdates(t *testing.T) {
	hub := app.NewLeaderboardHub()

	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish([]domain.LeaderboardEntry{{Rank: 1, UserID: "u1", Name: "Aisha", Total: 30}})

	update := <-ch
	if len(update) != 1 || update[0].UserID != "u1" {
		t.Fatalf("expected the published snapshot, got %+v", update)
	}
}

func TestHubPrimesLateSubscribers(t *testing.T) {
	hub := app.NewLeaderboardHub()
	hub.Publish([]domain.LeaderboardEntry{{Rank: 1, UserID: "u1", Total: 30}})

	ch, cancel := hub.Subscribe()
	defer cancel()

	snapshot := <-ch
	if len(snapshot) != 1 || snapshot[0].Total != 30 {
		t.Fatalf("late subscribers must get the last snapshot, got %+v", snapshot)
	}
}

func TestHubDropsStaleSnapshotsForSlowConsumers(t *testing.T) {
	hub := app.NewLeaderboardHub()
	ch, cancel := hub.Subscribe()
	defer cancel()

	// Flood past the channel buffer; the publisher must never block.
	for i := 0; i < 50; i++ {
		hub.Publish([]domain.LeaderboardEntry{{Rank: 1, UserID: "u1", Total: i}})
	}

	var last []domain.LeaderboardEntry
	for {
		select {
		case snap := <-ch:
			last = snap
			continue
		default:
		}
		break
	}
	if len(last) != 1 || last[0].Total != 49 {
		t.Fatalf("the newest snapshot must survive, got %+v", last)
	}
}

func TestScoreChangePublishesLeaderboard(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, standardSeed())
	hub := app.NewLeaderboardHub()
	env.svc.WithHub(hub)

	ch, cancel := hub.Subscribe()
	defer cancel()

	if _, err := env.svc.StartSession(ctx, "u1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := env.svc.SubmitAnswer(ctx, "u1", "e1", 0); err != nil {
		t.Fatalf("answer failed: %v", err)
	}

	update := <-ch
	if len(update) != 1 || update[0].Total != 5 {
		t.Fatalf("expected a snapshot with 5 points, got %+v", update)
	}
}

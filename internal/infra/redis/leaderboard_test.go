package redis

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestLeaderboardTopOrdersByTotal(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	lb := NewLeaderboard(newClient(mr))

	lb.IncrTotal(ctx, "u1", 5)
	lb.IncrTotal(ctx, "u2", 30)
	lb.IncrTotal(ctx, "u1", 15)

	top, err := lb.Top(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(top))
	}
	if top[0].UserID != "u2" || top[0].Total != 30 || top[0].Rank != 1 {
		t.Fatalf("expected u2 leading with 30, got %+v", top[0])
	}
	if top[1].UserID != "u1" || top[1].Total != 20 {
		t.Fatalf("expected u1 summed to 20, got %+v", top[1])
	}
}

func TestLeaderboardTopHonorsLimit(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	lb := NewLeaderboard(newClient(mr))
	lb.IncrTotal(ctx, "u1", 10)
	lb.IncrTotal(ctx, "u2", 20)
	lb.IncrTotal(ctx, "u3", 30)

	top, err := lb.Top(ctx, 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].UserID != "u3" {
		t.Fatalf("expected the top 2, got %+v", top)
	}
}

package app_test

import (
	"context"
	"testing"

	"ramadan-quiz-service/internal/domain"
)

// seedCompletedSession inserts a finished session n days before the test
// clock's today.
func seedCompletedSession(t *testing.T, env *testEnv, daysAgo int, score int) {
	t.Helper()
	date := domain.DateOf(env.clock.Now().AddDate(0, 0, -daysAgo))
	if err := env.store.CreateSession(context.Background(), domain.Session{
		ID:           "sess-" + date,
		UserID:       "u1",
		Date:         date,
		QuestionIDs:  []string{"e1", "m1", "h1"},
		CurrentIndex: 3,
		TotalScore:   score,
		Completed:    true,
	}); err != nil {
		t.Fatalf("seed session %s: %v", date, err)
	}
	if err := env.store.UpsertAttempt(context.Background(), "u1", date, score); err != nil {
		t.Fatalf("seed attempt %s: %v", date, err)
	}
}

func TestStreakCountsConsecutiveDays(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, standardSeed())

	seedCompletedSession(t, env, 0, 30)
	seedCompletedSession(t, env, 1, 20)
	seedCompletedSession(t, env, 2, 15)
	seedCompletedSession(t, env, 4, 30) // gap at day 3

	streak, err := env.svc.Streak(ctx, "u1")
	if err != nil {
		t.Fatalf("streak failed: %v", err)
	}
	if streak != 3 {
		t.Fatalf("expected a 3-day streak, got %d", streak)
	}
}

func TestStreakAnchorsOnYesterday(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, standardSeed())

	// Yesterday and the day before are done, today is still open.
	seedCompletedSession(t, env, 1, 20)
	seedCompletedSession(t, env, 2, 25)

	streak, err := env.svc.Streak(ctx, "u1")
	if err != nil {
		t.Fatalf("streak failed: %v", err)
	}
	if streak != 2 {
		t.Fatalf("an open today must not break the streak, got %d", streak)
	}
}

func TestStreakResetsAfterMissedDay(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, standardSeed())

	seedCompletedSession(t, env, 3, 30)
	seedCompletedSession(t, env, 4, 30)

	streak, err := env.svc.Streak(ctx, "u1")
	if err != nil {
		t.Fatalf("streak failed: %v", err)
	}
	if streak != 0 {
		t.Fatalf("a stale run must not count, got %d", streak)
	}
}

func TestStreakEmptyHistory(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, standardSeed())

	streak, err := env.svc.Streak(ctx, "u1")
	if err != nil {
		t.Fatalf("streak failed: %v", err)
	}
	if streak != 0 {
		t.Fatalf("expected no streak, got %d", streak)
	}
}

func TestDashboardSummarizesToday(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, standardSeed())

	seedCompletedSession(t, env, 0, 25)
	seedCompletedSession(t, env, 1, 30)

	dash, err := env.svc.Dashboard(ctx, "u1")
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if dash.TodayScore != 25 || !dash.TodayCompleted {
		t.Fatalf("expected today's 25 completed, got %+v", dash)
	}
	if dash.Streak != 2 || !dash.QuizEnabled {
		t.Fatalf("unexpected dashboard: %+v", dash)
	}
}

func TestLeaderboardRanksLifetimeTotals(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, standardSeed())

	for _, u := range []domain.User{
		{ID: "u2", Email: "u2@example.com", Name: "Bilal"},
		{ID: "u3", Email: "u3@example.com", Name: "Amina"},
	} {
		if err := env.store.CreateUser(ctx, u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	env.store.UpsertAttempt(ctx, "u1", "2026-03-01", 30)
	env.store.UpsertAttempt(ctx, "u1", "2026-03-02", 10)
	env.store.UpsertAttempt(ctx, "u2", "2026-03-01", 50)
	env.store.UpsertAttempt(ctx, "u3", "2026-03-02", 50)

	entries, err := env.svc.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	// Equal totals break the tie by name.
	if entries[0].Name != "Amina" || entries[1].Name != "Bilal" {
		t.Fatalf("unexpected order: %+v", entries)
	}
	if entries[2].UserID != "u1" || entries[2].Total != 40 || entries[2].Rank != 3 {
		t.Fatalf("expected u1 summed to 40 at rank 3, got %+v", entries[2])
	}

	top1, err := env.svc.Leaderboard(ctx, 1)
	if err != nil {
		t.Fatalf("leaderboard limit failed: %v", err)
	}
	if len(top1) != 1 {
		t.Fatalf("limit must truncate, got %d", len(top1))
	}
}

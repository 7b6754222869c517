package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ramadan-quiz-service/internal/domain"
)

func seedWithBonus() []domain.Question {
	return append(standardSeed(), bonusQuestion("b1", domain.DateOf(day1)))
}

func TestBonusOfferedAfterCompletion(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, seedWithBonus())

	completeToday(t, env)
	view, err := env.svc.Enter(ctx, "u1")
	if err != nil {
		t.Fatalf("enter failed: %v", err)
	}
	if view.State != domain.StateBonusOffered || view.Question.ID != "b1" {
		t.Fatalf("expected the bonus offer, got %+v", view)
	}
	if view.RemainingSeconds != 25 {
		t.Fatalf("bonus must run on a fresh clock, got %d", view.RemainingSeconds)
	}

	out, err := env.svc.SubmitBonus(ctx, "u1", "b1", 3)
	if err != nil {
		t.Fatalf("bonus answer failed: %v", err)
	}
	if !out.Correct || out.Awarded != 20 || out.TotalScore != 50 {
		t.Fatalf("expected 20 bonus points on top of 30, got %+v", out)
	}
	if out.Next.State != domain.StateBonusDone {
		t.Fatalf("expected bonus_done, got %s", out.Next.State)
	}

	attempts, _ := env.store.AttemptsByUser(ctx, "u1")
	if len(attempts) != 1 || attempts[0].Score != 50 {
		t.Fatalf("attempt must track the bonus total, got %+v", attempts)
	}
	user, _ := env.store.UserByID(ctx, "u1")
	if user.DaysParticipated != 1 {
		t.Fatalf("bonus must not bump participation again, got %d", user.DaysParticipated)
	}

	if _, err := env.svc.SubmitBonus(ctx, "u1", "b1", 3); !errors.Is(err, domain.ErrBonusAnswered) {
		t.Fatalf("expected ErrBonusAnswered on a repeat, got %v", err)
	}
}

func TestBonusWrongAnswerStillCloses(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, seedWithBonus())

	completeToday(t, env)
	out, err := env.svc.SubmitBonus(ctx, "u1", "b1", 0)
	if err != nil {
		t.Fatalf("bonus answer failed: %v", err)
	}
	if out.Correct || out.Awarded != 0 || out.TotalScore != 30 {
		t.Fatalf("wrong bonus must award nothing, got %+v", out)
	}

	view, err := env.svc.Enter(ctx, "u1")
	if err != nil {
		t.Fatalf("enter failed: %v", err)
	}
	if view.State != domain.StateBonusDone {
		t.Fatalf("bonus gate must stay closed, got %s", view.State)
	}
}

func TestBonusTimesOutOnReload(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, seedWithBonus())

	completeToday(t, env)
	if _, err := env.svc.Enter(ctx, "u1"); err != nil {
		t.Fatalf("enter failed: %v", err)
	}
	env.clock.Advance(26 * time.Second)

	view, err := env.svc.Enter(ctx, "u1")
	if err != nil {
		t.Fatalf("enter after expiry failed: %v", err)
	}
	if view.State != domain.StateBonusDone || view.TotalScore != 30 {
		t.Fatalf("expired bonus must resolve to a scoreless timeout, got %+v", view)
	}

	sess, _ := env.store.FindSession(ctx, "u1", domain.DateOf(day1))
	answers, _ := env.store.ListAnswers(ctx, sess.ID)
	var bonusAnswer *domain.Answer
	for i := range answers {
		if answers[i].QuestionID == "b1" {
			bonusAnswer = &answers[i]
		}
	}
	if bonusAnswer == nil || bonusAnswer.ChosenOption != domain.TimeoutOption {
		t.Fatalf("expected a timeout record for the bonus, got %+v", answers)
	}
}

func TestBonusGateRequiresCompletion(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, seedWithBonus())

	if _, err := env.svc.StartSession(ctx, "u1"); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if _, err := env.svc.SubmitBonus(ctx, "u1", "b1", 0); !errors.Is(err, domain.ErrSessionNotCompleted) {
		t.Fatalf("expected ErrSessionNotCompleted, got %v", err)
	}
}

func TestNoBonusScheduledToday(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, standardSeed())

	completeToday(t, env)
	if _, err := env.svc.SubmitBonus(ctx, "u1", "b1", 0); !errors.Is(err, domain.ErrNoBonusToday) {
		t.Fatalf("expected ErrNoBonusToday, got %v", err)
	}
	view, err := env.svc.Enter(ctx, "u1")
	if err != nil {
		t.Fatalf("enter failed: %v", err)
	}
	if view.State != domain.StateCompleted {
		t.Fatalf("expected completed with no bonus, got %s", view.State)
	}
}

func TestBonusRejectsWrongQuestionID(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, seedWithBonus())

	completeToday(t, env)
	if _, err := env.svc.SubmitBonus(ctx, "u1", "e1", 0); !errors.Is(err, domain.ErrStaleSubmission) {
		t.Fatalf("expected ErrStaleSubmission, got %v", err)
	}
}

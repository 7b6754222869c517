package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ramadan-quiz-service/internal/app"
	"ramadan-quiz-service/internal/domain"
)

func TestSessionUniquePerUserAndDate(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	sess := domain.Session{ID: "s1", UserID: "u1", Date: "2026-03-01", QuestionIDs: []string{"q1"}}
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := domain.Session{ID: "s2", UserID: "u1", Date: "2026-03-01"}
	if err := store.CreateSession(ctx, dup); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	found, err := store.FindSession(ctx, "u1", "2026-03-01")
	if err != nil || found.ID != "s1" {
		t.Fatalf("expected s1, got %+v %v", found, err)
	}
	if _, err := store.FindSession(ctx, "u1", "2026-03-02"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestUpdateSessionPatch(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sess := domain.Session{ID: "s1", UserID: "u1", Date: "2026-03-01", QuestionStartedAt: &started}
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}

	idx, total, done := 1, 5, true
	if err := store.UpdateSession(ctx, "s1", app.SessionPatch{
		CurrentIndex:   &idx,
		TotalScore:     &total,
		Completed:      &done,
		ClearStartedAt: true,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := store.FindSession(ctx, "u1", "2026-03-01")
	if got.CurrentIndex != 1 || got.TotalScore != 5 || !got.Completed {
		t.Fatalf("patch not applied: %+v", got)
	}
	if got.QuestionStartedAt != nil {
		t.Fatalf("started-at must be cleared")
	}

	if err := store.UpdateSession(ctx, "missing", app.SessionPatch{}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestInsertAnswerConflict(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	a := domain.Answer{SessionID: "s1", QuestionID: "q1", ChosenOption: 0, Correct: true, Score: 5}
	if err := store.InsertAnswer(ctx, a); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := store.InsertAnswer(ctx, a); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	answers, _ := store.ListAnswers(ctx, "s1")
	if len(answers) != 1 {
		t.Fatalf("expected one answer, got %d", len(answers))
	}
}

func TestAnsweredQuestionIDsSpanSessions(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	store.CreateSession(ctx, domain.Session{ID: "s1", UserID: "u1", Date: "2026-03-01"})
	store.CreateSession(ctx, domain.Session{ID: "s2", UserID: "u1", Date: "2026-03-02"})
	store.CreateSession(ctx, domain.Session{ID: "s3", UserID: "u2", Date: "2026-03-01"})
	store.InsertAnswer(ctx, domain.Answer{SessionID: "s1", QuestionID: "q1"})
	store.InsertAnswer(ctx, domain.Answer{SessionID: "s2", QuestionID: "q2"})
	store.InsertAnswer(ctx, domain.Answer{SessionID: "s3", QuestionID: "q3"})

	ids, err := store.AnsweredQuestionIDs(ctx, "u1")
	if err != nil {
		t.Fatalf("answered ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected q1 and q2 only, got %v", ids)
	}
	for _, id := range ids {
		if id == "q3" {
			t.Fatalf("another user's answers leaked: %v", ids)
		}
	}
}

func TestUpsertAttemptOverwritesScore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	store.UpsertAttempt(ctx, "u1", "2026-03-01", 5)
	store.UpsertAttempt(ctx, "u1", "2026-03-01", 20)
	store.UpsertAttempt(ctx, "u1", "2026-03-02", 10)

	attempts, err := store.AttemptsByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if len(attempts) != 2 || attempts[0].Score != 20 {
		t.Fatalf("expected the upserted score first, got %+v", attempts)
	}
}

func TestCompletedDatesNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	store.CreateSession(ctx, domain.Session{ID: "s1", UserID: "u1", Date: "2026-03-01", Completed: true})
	store.CreateSession(ctx, domain.Session{ID: "s2", UserID: "u1", Date: "2026-03-03", Completed: true})
	store.CreateSession(ctx, domain.Session{ID: "s3", UserID: "u1", Date: "2026-03-02"})

	dates, err := store.CompletedDates(ctx, "u1")
	if err != nil {
		t.Fatalf("dates: %v", err)
	}
	if len(dates) != 2 || dates[0] != "2026-03-03" || dates[1] != "2026-03-01" {
		t.Fatalf("expected completed dates newest first, got %v", dates)
	}
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	u := domain.User{ID: "u1", Email: "a@example.com", Name: "Aisha"}
	if err := store.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateUser(ctx, domain.User{ID: "u2", Email: "a@example.com"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict on a duplicate email, got %v", err)
	}

	byEmail, err := store.UserByEmail(ctx, "a@example.com")
	if err != nil || byEmail.ID != "u1" {
		t.Fatalf("lookup by email: %+v %v", byEmail, err)
	}

	store.IncrementParticipationDays(ctx, "u1")
	store.IncrementParticipationDays(ctx, "u1")
	got, _ := store.UserByID(ctx, "u1")
	if got.DaysParticipated != 2 {
		t.Fatalf("expected 2 participation days, got %d", got.DaysParticipated)
	}
}

func TestInTxConflictLeavesPriorWritesVisible(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.CreateSession(ctx, domain.Session{ID: "s1", UserID: "u1", Date: "2026-03-01"})
	store.InsertAnswer(ctx, domain.Answer{SessionID: "s1", QuestionID: "q1"})

	// The answer insert is the first write in the service's transaction, so a
	// conflict aborts before anything else mutates.
	err := store.InTx(ctx, func(tx app.SessionStore) error {
		return tx.InsertAnswer(ctx, domain.Answer{SessionID: "s1", QuestionID: "q1"})
	})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict through InTx, got %v", err)
	}
}

package app

import (
	"context"
	"time"

	"ramadan-quiz-service/internal/domain"
)

// SessionStore abstracts how sessions, answers and attempts are persisted
// (in-memory, Postgres). Uniqueness duties: one session per (user, date), one
// answer per (session, question), one attempt per (user, date); violations
// surface as domain.ErrConflict.
type SessionStore interface {
	FindSession(ctx context.Context, userID, date string) (domain.Session, error)
	CreateSession(ctx context.Context, s domain.Session) error
	UpdateSession(ctx context.Context, id string, patch SessionPatch) error
	InsertAnswer(ctx context.Context, a domain.Answer) error
	ListAnswers(ctx context.Context, sessionID string) ([]domain.Answer, error)
	// AnsweredQuestionIDs spans every session the user ever had, not just today's.
	AnsweredQuestionIDs(ctx context.Context, userID string) ([]string, error)
	// CompletedDates returns the dates of completed sessions, most recent first.
	CompletedDates(ctx context.Context, userID string) ([]string, error)
	UpsertAttempt(ctx context.Context, userID, date string, score int) error
	ListAttempts(ctx context.Context) ([]domain.Attempt, error)
	AttemptsByUser(ctx context.Context, userID string) ([]domain.Attempt, error)
	IncrementParticipationDays(ctx context.Context, userID string) error
	// InTx runs fn against a store bound to a single transaction. The answer
	// submission sequence runs inside one so a retry after a partial failure
	// always lands on a consistent row set.
	InTx(ctx context.Context, fn func(tx SessionStore) error) error
}

// SessionPatch is a partial update of the session row. Nil fields are left
// untouched; ClearStartedAt nulls the start instant (takes precedence over
// StartedAt).
type SessionPatch struct {
	CurrentIndex   *int
	TotalScore     *int
	Completed      *bool
	BonusAnswered  *bool
	StartedAt      *time.Time
	ClearStartedAt bool
}

// QuestionBank serves question content. FindQuestions never returns bonus
// questions; BonusQuestion returns domain.ErrQuestionNotFound when no bonus is
// scheduled for the date.
type QuestionBank interface {
	Question(ctx context.Context, id string) (domain.Question, error)
	FindQuestions(ctx context.Context, tier domain.Tier, excludeIDs []string, limit int) ([]domain.Question, error)
	BonusQuestion(ctx context.Context, date string) (domain.Question, error)
}

// QuestionAdmin is the admin-owned write side of the question bank.
type QuestionAdmin interface {
	CreateQuestion(ctx context.Context, q domain.Question) error
	DeleteQuestion(ctx context.Context, id string) error
	ListQuestions(ctx context.Context) ([]domain.Question, error)
}

// UserStore persists accounts. CreateUser returns domain.ErrConflict on a
// duplicate email.
type UserStore interface {
	CreateUser(ctx context.Context, u domain.User) error
	UserByID(ctx context.Context, id string) (domain.User, error)
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	SetBanned(ctx context.Context, id string, banned bool) error
	TouchLastActive(ctx context.Context, id string, at time.Time) error
}

// SettingStore holds the app_settings flags; only quiz_enabled matters here.
type SettingStore interface {
	QuizEnabled(ctx context.Context) (bool, error)
	SetQuizEnabled(ctx context.Context, enabled bool) error
}

// ScoreProjector mirrors leaderboard totals into a fast ranking structure
// (Redis ZSet). Best-effort: the attempts table remains the source of truth.
type ScoreProjector interface {
	IncrTotal(ctx context.Context, userID string, delta int) error
	Top(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

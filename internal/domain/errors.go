package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when no session row exists for (user, date).
	ErrSessionNotFound = errors.New("session not found")
	// ErrQuestionNotFound indicates a question ID has no row in the bank.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrUserNotFound indicates an unknown user ID or email.
	ErrUserNotFound = errors.New("user not found")
	// ErrConflict signals a uniqueness violation (duplicate session, answer,
	// bonus date or email). Callers resolve it by re-fetching, never by failing.
	ErrConflict = errors.New("conflict")
	// ErrSessionCompleted rejects answer submissions after the third question.
	ErrSessionCompleted = errors.New("session already completed")
	// ErrStaleSubmission rejects an answer for a question the session has
	// already moved past.
	ErrStaleSubmission = errors.New("stale submission for an advanced question")
	// ErrInvalidOption rejects a chosen index outside the question's options.
	ErrInvalidOption = errors.New("invalid option index")
	// ErrNoBonusToday is returned when no bonus question is scheduled for the date.
	ErrNoBonusToday = errors.New("no bonus question today")
	// ErrBonusAnswered is returned when today's bonus was already submitted.
	ErrBonusAnswered = errors.New("bonus question already answered")
	// ErrSessionNotCompleted gates the bonus behind the three required questions.
	ErrSessionNotCompleted = errors.New("session not completed yet")
	// ErrQuizDisabled is returned while the quiz_enabled setting is off.
	ErrQuizDisabled = errors.New("quiz is disabled")
	// ErrBanned blocks banned users from session-bearing routes.
	ErrBanned = errors.New("user is banned")
	// ErrUnauthorized blocks non-admins from admin routes.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// TierShortage records how many eligible questions a tier could offer when the
// selector needed at least one.
type TierShortage struct {
	Tier  Tier `json:"tier"`
	Found int  `json:"found"`
}

// InsufficientQuestionsError is returned when the selector cannot fill every
// required tier. The session row is never created in that case.
type InsufficientQuestionsError struct {
	Shortages []TierShortage
}

func (e *InsufficientQuestionsError) Error() string {
	return fmt.Sprintf("insufficient questions: %v", e.Shortages)
}

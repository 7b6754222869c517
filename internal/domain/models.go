package domain

import "time"

// Role distinguishes regular participants from administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a registered participant. Ban flag and role are admin-owned; the
// participation counter and last-active instant are owned by the quiz service.
type User struct {
	ID               string
	Email            string
	Name             string
	Role             Role
	Banned           bool
	PasswordHash     string
	LastActive       time.Time
	DaysParticipated int
	CreatedAt        time.Time
}

// Question is a four-option MCQ. Bonus questions carry the single calendar
// date (YYYY-MM-DD) on which they may be offered; regular questions never do.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
	Difficulty    Tier     `json:"difficulty"`
	Bonus         bool     `json:"bonus"`
	BonusDate     string   `json:"bonusDate,omitempty"`
}

// Session is the per-(user, date) quiz attempt. QuestionStartedAt is the
// persisted start instant of the currently timed question; nil means nothing
// is on the clock (session finished, or between questions).
type Session struct {
	ID                string
	UserID            string
	Date              string
	QuestionIDs       []string
	CurrentIndex      int
	TotalScore        int
	Completed         bool
	BonusAnswered     bool
	QuestionStartedAt *time.Time
}

// RequiredQuestions is the number of questions in every daily session.
const RequiredQuestions = 3

// Answer is the append-only record of one submission. ChosenOption is
// TimeoutOption when the clock ran out before an answer arrived.
type Answer struct {
	SessionID    string
	QuestionID   string
	ChosenOption int
	Correct      bool
	Score        int
	AnsweredAt   time.Time
}

// TimeoutOption marks an answer recorded because the question timed out.
const TimeoutOption = -1

// Attempt is the denormalized per-(user, date) score projection the
// leaderboard sums across dates.
type Attempt struct {
	UserID string `json:"userId"`
	Date   string `json:"date"`
	Score  int    `json:"score"`
}

// LeaderboardEntry is one ranked row of the lifetime leaderboard.
type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Total  int    `json:"total"`
}

// State names where a user's daily session currently sits.
type State string

const (
	// StateAwaitingConfirmation: no session row yet; an explicit ack creates one.
	StateAwaitingConfirmation State = "awaiting_confirmation"
	// StateQuestionActive: one of the three required questions is on the clock.
	StateQuestionActive State = "question_active"
	// StateCompleted: all required questions answered, no bonus on offer today.
	StateCompleted State = "completed"
	// StateBonusOffered: today's bonus question is available and unanswered.
	StateBonusOffered State = "bonus_offered"
	// StateBonusDone: the bonus question has been answered as well.
	StateBonusDone State = "bonus_done"
)

// DateFormat is the calendar-date layout used for session and bonus dates.
const DateFormat = "2006-01-02"

// DateOf truncates an instant to its calendar date string.
func DateOf(t time.Time) string {
	return t.Format(DateFormat)
}

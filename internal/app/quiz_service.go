package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ramadan-quiz-service/internal/domain"
)

// QuizService is the daily-session state machine. It owns every session and
// answer mutation: entry recovery, question timing, scoring, completion and
// the bonus gate. Store and auth handles are injected so tests can substitute
// fakes deterministically.
type QuizService struct {
	sessions  SessionStore
	bank      QuestionBank
	users     UserStore
	settings  SettingStore
	selector  *Selector
	timer     Timer
	projector ScoreProjector
	hub       *LeaderboardHub
	now       func() time.Time
}

func NewQuizService(sessions SessionStore, bank QuestionBank, users UserStore, settings SettingStore) *QuizService {
	return &QuizService{
		sessions: sessions,
		bank:     bank,
		users:    users,
		settings: settings,
		selector: NewSelector(bank),
		timer:    NewTimer(),
		now:      time.Now,
	}
}

// WithClock makes timestamps deterministic in tests.
func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.now = now
	return s
}

// WithSelector substitutes a selector, e.g. one seeded for tests.
func (s *QuizService) WithSelector(sel *Selector) *QuizService {
	s.selector = sel
	return s
}

// WithProjector mirrors score deltas into a ranking cache (best-effort).
func (s *QuizService) WithProjector(p ScoreProjector) *QuizService {
	s.projector = p
	return s
}

// WithHub streams leaderboard snapshots to websocket subscribers.
func (s *QuizService) WithHub(h *LeaderboardHub) *QuizService {
	s.hub = h
	return s
}

// QuestionView is a question as shown to the player: the correct index never
// leaves the server.
type QuestionView struct {
	ID         string      `json:"id"`
	Text       string      `json:"text"`
	Options    []string    `json:"options"`
	Difficulty domain.Tier `json:"difficulty"`
	Bonus      bool        `json:"bonus"`
}

func viewOf(q domain.Question) *QuestionView {
	return &QuestionView{
		ID:         q.ID,
		Text:       q.Text,
		Options:    q.Options,
		Difficulty: q.Difficulty,
		Bonus:      q.Bonus,
	}
}

// AnswerView is one already-recorded answer, for progress display.
type AnswerView struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
	Score      int    `json:"score"`
	TimedOut   bool   `json:"timedOut"`
}

// QuizView is the player-facing snapshot of the state machine.
type QuizView struct {
	State            domain.State  `json:"state"`
	SessionID        string        `json:"sessionId,omitempty"`
	QuestionNumber   int           `json:"questionNumber,omitempty"` // 1-based
	TotalScore       int           `json:"totalScore"`
	RemainingSeconds int           `json:"remainingSeconds,omitempty"`
	Question         *QuestionView `json:"question,omitempty"`
	Answers          []AnswerView  `json:"answers,omitempty"`
}

// AnswerOutcome reports one answer transition, including the state the session
// landed in afterwards.
type AnswerOutcome struct {
	QuestionID    string   `json:"questionId"`
	TimedOut      bool     `json:"timedOut"`
	Correct       bool     `json:"correct"`
	CorrectOption int      `json:"correctOption"`
	Awarded       int      `json:"awarded"`
	TotalScore    int      `json:"totalScore"`
	Completed     bool     `json:"completed"`
	Next          QuizView `json:"next"`
}

// guard loads the user and enforces quiz-route access: banned users and a
// disabled quiz flag both block entry.
func (s *QuizService) guard(ctx context.Context, userID string) (domain.User, error) {
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user.Banned {
		return domain.User{}, domain.ErrBanned
	}
	enabled, err := s.settings.QuizEnabled(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if !enabled {
		return domain.User{}, domain.ErrQuizDisabled
	}
	return user, nil
}

// Enter recovers today's state: no session row means the user must confirm a
// start; an active row resumes exactly where it was left, including an
// immediate timeout when the persisted clock already ran out while away.
func (s *QuizService) Enter(ctx context.Context, userID string) (QuizView, error) {
	if _, err := s.guard(ctx, userID); err != nil {
		return QuizView{}, err
	}

	sess, err := s.sessions.FindSession(ctx, userID, domain.DateOf(s.now()))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return QuizView{State: domain.StateAwaitingConfirmation}, nil
		}
		return QuizView{}, err
	}
	return s.viewFor(ctx, sess)
}

// StartSession is the confirmation ack: it runs the selector and creates the
// session row. A concurrent duplicate creation is resolved by loading the
// existing row, never surfaced as an error.
func (s *QuizService) StartSession(ctx context.Context, userID string) (QuizView, error) {
	if _, err := s.guard(ctx, userID); err != nil {
		return QuizView{}, err
	}
	today := domain.DateOf(s.now())

	existing, err := s.sessions.FindSession(ctx, userID, today)
	if err == nil {
		return s.viewFor(ctx, existing)
	}
	if !errors.Is(err, domain.ErrSessionNotFound) {
		return QuizView{}, err
	}

	answered, err := s.sessions.AnsweredQuestionIDs(ctx, userID)
	if err != nil {
		return QuizView{}, err
	}
	questions, err := s.selector.Select(ctx, answered)
	if err != nil {
		return QuizView{}, err
	}
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}

	started := s.now()
	sess := domain.Session{
		ID:                uuid.NewString(),
		UserID:            userID,
		Date:              today,
		QuestionIDs:       ids,
		QuestionStartedAt: &started,
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			existing, ferr := s.sessions.FindSession(ctx, userID, today)
			if ferr != nil {
				return QuizView{}, ferr
			}
			return s.viewFor(ctx, existing)
		}
		return QuizView{}, err
	}
	_ = s.users.TouchLastActive(ctx, userID, s.now())

	return QuizView{
		State:            domain.StateQuestionActive,
		SessionID:        sess.ID,
		QuestionNumber:   1,
		RemainingSeconds: s.timer.RemainingSeconds(sess.QuestionStartedAt, s.now()),
		Question:         viewOf(questions[0]),
	}, nil
}

// SubmitAnswer applies the QuestionActive(i) -> AnswerRevealed(i) transition
// for one of the three required questions. chosen == domain.TimeoutOption, or
// an expired persisted clock, records a timeout.
func (s *QuizService) SubmitAnswer(ctx context.Context, userID, questionID string, chosen int) (AnswerOutcome, error) {
	if _, err := s.guard(ctx, userID); err != nil {
		return AnswerOutcome{}, err
	}

	sess, err := s.sessions.FindSession(ctx, userID, domain.DateOf(s.now()))
	if err != nil {
		return AnswerOutcome{}, err
	}
	if sess.Completed {
		return AnswerOutcome{}, domain.ErrSessionCompleted
	}
	if sess.QuestionIDs[sess.CurrentIndex] != questionID {
		return AnswerOutcome{}, domain.ErrStaleSubmission
	}
	question, err := s.bank.Question(ctx, questionID)
	if err != nil {
		return AnswerOutcome{}, err
	}

	timedOut := chosen == domain.TimeoutOption || s.timer.Expired(sess.QuestionStartedAt, s.now())
	if !timedOut && (chosen < 0 || chosen >= len(question.Options)) {
		return AnswerOutcome{}, domain.ErrInvalidOption
	}
	return s.applyAnswer(ctx, sess, question, chosen, timedOut)
}

// applyAnswer runs the persistence sequence of an answer transition as one
// transaction: re-read the authoritative row, append the answer, advance the
// session, project the attempt and bump the participation counter on
// completion. A duplicate answer insert aborts the transaction and resolves
// to the already-recorded outcome instead of double-scoring.
func (s *QuizService) applyAnswer(ctx context.Context, sess domain.Session, question domain.Question, chosen int, timedOut bool) (AnswerOutcome, error) {
	correct := !timedOut && chosen == question.CorrectOption
	awarded := 0
	if correct {
		awarded = domain.PointsFor(question.Difficulty)
	}
	recorded := chosen
	if timedOut {
		recorded = domain.TimeoutOption
	}

	var newTotal int
	var completed bool
	err := s.sessions.InTx(ctx, func(tx SessionStore) error {
		fresh, err := tx.FindSession(ctx, sess.UserID, sess.Date)
		if err != nil {
			return err
		}
		if fresh.Completed || fresh.CurrentIndex >= len(fresh.QuestionIDs) {
			return domain.ErrSessionCompleted
		}
		if fresh.QuestionIDs[fresh.CurrentIndex] != question.ID {
			return domain.ErrStaleSubmission
		}

		if err := tx.InsertAnswer(ctx, domain.Answer{
			SessionID:    fresh.ID,
			QuestionID:   question.ID,
			ChosenOption: recorded,
			Correct:      correct,
			Score:        awarded,
			AnsweredAt:   s.now(),
		}); err != nil {
			return err
		}

		nextIndex := fresh.CurrentIndex + 1
		newTotal = fresh.TotalScore + awarded
		completed = nextIndex >= domain.RequiredQuestions

		patch := SessionPatch{
			CurrentIndex: &nextIndex,
			TotalScore:   &newTotal,
			Completed:    &completed,
		}
		if completed {
			patch.ClearStartedAt = true
		} else {
			next := s.now()
			patch.StartedAt = &next
		}
		if err := tx.UpdateSession(ctx, fresh.ID, patch); err != nil {
			return err
		}
		if err := tx.UpsertAttempt(ctx, fresh.UserID, fresh.Date, newTotal); err != nil {
			return err
		}
		if completed {
			return tx.IncrementParticipationDays(ctx, fresh.UserID)
		}
		return nil
	})
	if errors.Is(err, domain.ErrConflict) {
		return s.recordedOutcome(ctx, sess, question)
	}
	if err != nil {
		return AnswerOutcome{}, fmt.Errorf("apply answer: %w", err)
	}

	s.afterScoreChange(ctx, sess.UserID, awarded)
	if completed {
		_ = s.users.TouchLastActive(ctx, sess.UserID, s.now())
	}

	next, err := s.viewAfterAnswer(ctx, sess.UserID, sess.Date)
	if err != nil {
		return AnswerOutcome{}, err
	}
	return AnswerOutcome{
		QuestionID:    question.ID,
		TimedOut:      timedOut,
		Correct:       correct,
		CorrectOption: question.CorrectOption,
		Awarded:       awarded,
		TotalScore:    newTotal,
		Completed:     completed,
		Next:          next,
	}, nil
}

// recordedOutcome resolves a duplicate submission to whatever the first one
// persisted. Nothing is re-scored.
func (s *QuizService) recordedOutcome(ctx context.Context, sess domain.Session, question domain.Question) (AnswerOutcome, error) {
	answers, err := s.sessions.ListAnswers(ctx, sess.ID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	var rec *domain.Answer
	for i := range answers {
		if answers[i].QuestionID == question.ID {
			rec = &answers[i]
			break
		}
	}
	if rec == nil {
		return AnswerOutcome{}, domain.ErrStaleSubmission
	}
	fresh, err := s.sessions.FindSession(ctx, sess.UserID, sess.Date)
	if err != nil {
		return AnswerOutcome{}, err
	}
	next, err := s.viewFor(ctx, fresh)
	if err != nil {
		return AnswerOutcome{}, err
	}
	return AnswerOutcome{
		QuestionID:    question.ID,
		TimedOut:      rec.ChosenOption == domain.TimeoutOption,
		Correct:       rec.Correct,
		CorrectOption: question.CorrectOption,
		Awarded:       rec.Score,
		TotalScore:    fresh.TotalScore,
		Completed:     fresh.Completed,
		Next:          next,
	}, nil
}

// SubmitBonus applies the bonus transition: same score/persist sequence as a
// required answer but at the bonus tier, without touching the question index
// or the participation counter.
func (s *QuizService) SubmitBonus(ctx context.Context, userID, questionID string, chosen int) (AnswerOutcome, error) {
	if _, err := s.guard(ctx, userID); err != nil {
		return AnswerOutcome{}, err
	}
	sess, err := s.sessions.FindSession(ctx, userID, domain.DateOf(s.now()))
	if err != nil {
		return AnswerOutcome{}, err
	}
	if !sess.Completed {
		return AnswerOutcome{}, domain.ErrSessionNotCompleted
	}
	bonus, exists, answered, err := bonusFor(ctx, s.bank, s.sessions, sess)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if !exists {
		return AnswerOutcome{}, domain.ErrNoBonusToday
	}
	if answered {
		return AnswerOutcome{}, domain.ErrBonusAnswered
	}
	if bonus.ID != questionID {
		return AnswerOutcome{}, domain.ErrStaleSubmission
	}

	timedOut := chosen == domain.TimeoutOption || s.timer.Expired(sess.QuestionStartedAt, s.now())
	if !timedOut && (chosen < 0 || chosen >= len(bonus.Options)) {
		return AnswerOutcome{}, domain.ErrInvalidOption
	}
	return s.applyBonus(ctx, sess, bonus, chosen, timedOut)
}

func (s *QuizService) applyBonus(ctx context.Context, sess domain.Session, bonus domain.Question, chosen int, timedOut bool) (AnswerOutcome, error) {
	correct := !timedOut && chosen == bonus.CorrectOption
	awarded := 0
	if correct {
		awarded = domain.PointsFor(domain.TierBonus)
	}
	recorded := chosen
	if timedOut {
		recorded = domain.TimeoutOption
	}

	var newTotal int
	err := s.sessions.InTx(ctx, func(tx SessionStore) error {
		fresh, err := tx.FindSession(ctx, sess.UserID, sess.Date)
		if err != nil {
			return err
		}
		if fresh.BonusAnswered {
			return domain.ErrConflict
		}

		if err := tx.InsertAnswer(ctx, domain.Answer{
			SessionID:    fresh.ID,
			QuestionID:   bonus.ID,
			ChosenOption: recorded,
			Correct:      correct,
			Score:        awarded,
			AnsweredAt:   s.now(),
		}); err != nil {
			return err
		}

		newTotal = fresh.TotalScore + awarded
		done := true
		patch := SessionPatch{
			TotalScore:     &newTotal,
			BonusAnswered:  &done,
			ClearStartedAt: true,
		}
		if err := tx.UpdateSession(ctx, fresh.ID, patch); err != nil {
			return err
		}
		return tx.UpsertAttempt(ctx, fresh.UserID, fresh.Date, newTotal)
	})
	if errors.Is(err, domain.ErrConflict) {
		return s.recordedOutcome(ctx, sess, bonus)
	}
	if err != nil {
		return AnswerOutcome{}, fmt.Errorf("apply bonus: %w", err)
	}

	s.afterScoreChange(ctx, sess.UserID, awarded)

	return AnswerOutcome{
		QuestionID:    bonus.ID,
		TimedOut:      timedOut,
		Correct:       correct,
		CorrectOption: bonus.CorrectOption,
		Awarded:       awarded,
		TotalScore:    newTotal,
		Completed:     true,
		Next: QuizView{
			State:      domain.StateBonusDone,
			SessionID:  sess.ID,
			TotalScore: newTotal,
		},
	}, nil
}

// afterScoreChange mirrors the delta into the ranking cache and notifies
// websocket subscribers. Both are best-effort projections of the attempts
// table.
func (s *QuizService) afterScoreChange(ctx context.Context, userID string, awarded int) {
	if awarded > 0 && s.projector != nil {
		_ = s.projector.IncrTotal(ctx, userID, awarded)
	}
	s.publishLeaderboard(ctx)
}

// viewAfterAnswer rebuilds the post-transition view from persisted state.
func (s *QuizService) viewAfterAnswer(ctx context.Context, userID, date string) (QuizView, error) {
	fresh, err := s.sessions.FindSession(ctx, userID, date)
	if err != nil {
		return QuizView{}, err
	}
	return s.viewFor(ctx, fresh)
}

// viewFor maps a persisted session row onto the state machine, resolving any
// already-expired clock to its timeout transition on the way.
func (s *QuizService) viewFor(ctx context.Context, sess domain.Session) (QuizView, error) {
	if sess.Completed {
		return s.completedView(ctx, sess)
	}

	questionID := sess.QuestionIDs[sess.CurrentIndex]
	question, err := s.bank.Question(ctx, questionID)
	if err != nil {
		return QuizView{}, err
	}

	// A missing start instant must be locked in before the countdown can be
	// trusted, or repeated reloads would reset the timer forever.
	if sess.QuestionStartedAt == nil {
		started := s.now()
		if err := s.sessions.UpdateSession(ctx, sess.ID, SessionPatch{StartedAt: &started}); err != nil {
			return QuizView{}, err
		}
		sess.QuestionStartedAt = &started
	}

	if s.timer.Expired(sess.QuestionStartedAt, s.now()) {
		outcome, err := s.applyAnswer(ctx, sess, question, domain.TimeoutOption, true)
		if err != nil {
			return QuizView{}, err
		}
		return outcome.Next, nil
	}

	answers, err := s.answerViews(ctx, sess.ID)
	if err != nil {
		return QuizView{}, err
	}
	return QuizView{
		State:            domain.StateQuestionActive,
		SessionID:        sess.ID,
		QuestionNumber:   sess.CurrentIndex + 1,
		TotalScore:       sess.TotalScore,
		RemainingSeconds: s.timer.RemainingSeconds(sess.QuestionStartedAt, s.now()),
		Question:         viewOf(question),
		Answers:          answers,
	}, nil
}

func (s *QuizService) completedView(ctx context.Context, sess domain.Session) (QuizView, error) {
	answers, err := s.answerViews(ctx, sess.ID)
	if err != nil {
		return QuizView{}, err
	}
	view := QuizView{
		SessionID:  sess.ID,
		TotalScore: sess.TotalScore,
		Answers:    answers,
	}

	bonus, exists, answered, err := bonusFor(ctx, s.bank, s.sessions, sess)
	if err != nil {
		return QuizView{}, err
	}
	switch {
	case !exists:
		view.State = domain.StateCompleted
		return view, nil
	case answered:
		view.State = domain.StateBonusDone
		return view, nil
	}

	// Offer the bonus on a fresh clock, locked in before it is trusted.
	if sess.QuestionStartedAt == nil {
		started := s.now()
		if err := s.sessions.UpdateSession(ctx, sess.ID, SessionPatch{StartedAt: &started}); err != nil {
			return QuizView{}, err
		}
		sess.QuestionStartedAt = &started
	}
	if s.timer.Expired(sess.QuestionStartedAt, s.now()) {
		outcome, err := s.applyBonus(ctx, sess, bonus, domain.TimeoutOption, true)
		if err != nil {
			return QuizView{}, err
		}
		return outcome.Next, nil
	}

	view.State = domain.StateBonusOffered
	view.Question = viewOf(bonus)
	view.RemainingSeconds = s.timer.RemainingSeconds(sess.QuestionStartedAt, s.now())
	return view, nil
}

func (s *QuizService) answerViews(ctx context.Context, sessionID string) ([]AnswerView, error) {
	answers, err := s.sessions.ListAnswers(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	views := make([]AnswerView, 0, len(answers))
	for _, a := range answers {
		views = append(views, AnswerView{
			QuestionID: a.QuestionID,
			Correct:    a.Correct,
			Score:      a.Score,
			TimedOut:   a.ChosenOption == domain.TimeoutOption,
		})
	}
	return views, nil
}

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ramadan-quiz-service/internal/app"
	"ramadan-quiz-service/internal/domain"
)

// Store is an in-memory implementation of the app stores, used for tests and
// for running without Postgres. Transactions degrade to serialized execution;
// the service orders its writes so that the first conflicting write aborts
// before anything else mutated.
type Store struct {
	txMu sync.Mutex

	mu          sync.RWMutex
	sessions    map[string]domain.Session  // by session ID
	byUserDate  map[string]string          // user|date -> session ID
	answers     map[string][]domain.Answer // by session ID
	answerKeys  map[string]struct{}        // session|question
	attempts    map[string]domain.Attempt  // user|date
	users       map[string]domain.User     // by user ID
	byEmail     map[string]string
	quizEnabled bool
}

func NewStore() *Store {
	return &Store{
		sessions:    make(map[string]domain.Session),
		byUserDate:  make(map[string]string),
		answers:     make(map[string][]domain.Answer),
		answerKeys:  make(map[string]struct{}),
		attempts:    make(map[string]domain.Attempt),
		users:       make(map[string]domain.User),
		byEmail:     make(map[string]string),
		quizEnabled: true,
	}
}

func key2(a, b string) string { return a + "|" + b }

func (s *Store) FindSession(_ context.Context, userID, date string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUserDate[key2(userID, date)]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return s.sessions[id], nil
}

func (s *Store) CreateSession(_ context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key2(sess.UserID, sess.Date)
	if _, ok := s.byUserDate[k]; ok {
		return domain.ErrConflict
	}
	s.byUserDate[k] = sess.ID
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) UpdateSession(_ context.Context, id string, patch app.SessionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if patch.CurrentIndex != nil {
		sess.CurrentIndex = *patch.CurrentIndex
	}
	if patch.TotalScore != nil {
		sess.TotalScore = *patch.TotalScore
	}
	if patch.Completed != nil {
		sess.Completed = *patch.Completed
	}
	if patch.BonusAnswered != nil {
		sess.BonusAnswered = *patch.BonusAnswered
	}
	if patch.ClearStartedAt {
		sess.QuestionStartedAt = nil
	} else if patch.StartedAt != nil {
		at := *patch.StartedAt
		sess.QuestionStartedAt = &at
	}
	s.sessions[id] = sess
	return nil
}

func (s *Store) InsertAnswer(_ context.Context, a domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key2(a.SessionID, a.QuestionID)
	if _, ok := s.answerKeys[k]; ok {
		return domain.ErrConflict
	}
	s.answerKeys[k] = struct{}{}
	s.answers[a.SessionID] = append(s.answers[a.SessionID], a)
	return nil
}

func (s *Store) ListAnswers(_ context.Context, sessionID string) ([]domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Answer(nil), s.answers[sessionID]...), nil
}

func (s *Store) AnsweredQuestionIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, sess := range s.sessions {
		if sess.UserID != userID {
			continue
		}
		for _, a := range s.answers[sess.ID] {
			ids = append(ids, a.QuestionID)
		}
	}
	return ids, nil
}

func (s *Store) CompletedDates(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var dates []string
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.Completed {
			dates = append(dates, sess.Date)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func (s *Store) UpsertAttempt(_ context.Context, userID, date string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[key2(userID, date)] = domain.Attempt{UserID: userID, Date: date, Score: score}
	return nil
}

func (s *Store) ListAttempts(_ context.Context) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Attempt, 0, len(s.attempts))
	for _, a := range s.attempts {
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) AttemptsByUser(_ context.Context, userID string) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Attempt
	for _, a := range s.attempts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *Store) IncrementParticipationDays(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.DaysParticipated++
	s.users[userID] = u
	return nil
}

func (s *Store) InTx(ctx context.Context, fn func(tx app.SessionStore) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(s)
}

func (s *Store) CreateUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return domain.ErrConflict
	}
	s.byEmail[u.Email] = u.ID
	s.users[u.ID] = u
	return nil
}

func (s *Store) UserByID(_ context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.users[id], nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SetBanned(_ context.Context, id string, banned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Banned = banned
	s.users[id] = u
	return nil
}

func (s *Store) TouchLastActive(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.LastActive = at
	s.users[id] = u
	return nil
}

func (s *Store) QuizEnabled(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quizEnabled, nil
}

func (s *Store) SetQuizEnabled(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizEnabled = enabled
	return nil
}

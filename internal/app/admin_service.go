package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ramadan-quiz-service/internal/domain"
)

// AdminService covers the admin-owned surfaces: the question bank, user
// moderation, the quiz flag and submission summaries.
type AdminService struct {
	questions QuestionAdmin
	users     UserStore
	settings  SettingStore
	sessions  SessionStore
	now       func() time.Time
}

func NewAdminService(questions QuestionAdmin, users UserStore, settings SettingStore, sessions SessionStore) *AdminService {
	return &AdminService{
		questions: questions,
		users:     users,
		settings:  settings,
		sessions:  sessions,
		now:       time.Now,
	}
}

// CreateQuestion validates and stores a new question. Bonus questions must
// carry an eligibility date (and the bank enforces at most one per date);
// regular questions must not.
func (s *AdminService) CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	if len(q.Options) != 4 {
		return domain.Question{}, fmt.Errorf("question needs exactly 4 options, got %d", len(q.Options))
	}
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		return domain.Question{}, domain.ErrInvalidOption
	}
	if q.Bonus {
		if _, err := time.Parse(domain.DateFormat, q.BonusDate); err != nil {
			return domain.Question{}, fmt.Errorf("bonus question needs a valid date: %w", err)
		}
		q.Difficulty = domain.TierBonus
	} else {
		if q.BonusDate != "" {
			return domain.Question{}, fmt.Errorf("non-bonus question must not carry a bonus date")
		}
		switch q.Difficulty {
		case domain.TierEasy, domain.TierMedium, domain.TierHard:
		default:
			return domain.Question{}, fmt.Errorf("unknown difficulty %q", q.Difficulty)
		}
	}

	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	if err := s.questions.CreateQuestion(ctx, q); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

func (s *AdminService) DeleteQuestion(ctx context.Context, id string) error {
	return s.questions.DeleteQuestion(ctx, id)
}

func (s *AdminService) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	return s.questions.ListQuestions(ctx)
}

func (s *AdminService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.ListUsers(ctx)
}

// SetBanned toggles a user's ban flag.
func (s *AdminService) SetBanned(ctx context.Context, userID string, banned bool) error {
	return s.users.SetBanned(ctx, userID, banned)
}

func (s *AdminService) QuizEnabled(ctx context.Context) (bool, error) {
	return s.settings.QuizEnabled(ctx)
}

func (s *AdminService) SetQuizEnabled(ctx context.Context, enabled bool) error {
	return s.settings.SetQuizEnabled(ctx, enabled)
}

// UserSubmissions is the per-user attempt history shown on the admin
// submissions screen.
type UserSubmissions struct {
	User     domain.User      `json:"-"`
	UserID   string           `json:"userId"`
	Name     string           `json:"name"`
	Total    int              `json:"total"`
	Attempts []domain.Attempt `json:"attempts"`
}

func (s *AdminService) Submissions(ctx context.Context, userID string) (UserSubmissions, error) {
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return UserSubmissions{}, err
	}
	attempts, err := s.sessions.AttemptsByUser(ctx, userID)
	if err != nil {
		return UserSubmissions{}, err
	}
	total := 0
	for _, a := range attempts {
		total += a.Score
	}
	return UserSubmissions{
		User:     user,
		UserID:   user.ID,
		Name:     user.Name,
		Total:    total,
		Attempts: attempts,
	}, nil
}

package memory

import (
	"context"
	"sort"
	"sync"

	"ramadan-quiz-service/internal/domain"
)

// QuestionBank holds the question bank in memory. It enforces the same write
// constraints as the Postgres bank: at most one bonus question per date.
type QuestionBank struct {
	mu        sync.RWMutex
	questions map[string]domain.Question
}

func NewQuestionBank(seed []domain.Question) *QuestionBank {
	b := &QuestionBank{questions: make(map[string]domain.Question, len(seed))}
	for _, q := range seed {
		b.questions[q.ID] = q
	}
	return b
}

func (b *QuestionBank) Question(_ context.Context, id string) (domain.Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	q, ok := b.questions[id]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}

func (b *QuestionBank) FindQuestions(_ context.Context, tier domain.Tier, excludeIDs []string, limit int) ([]domain.Question, error) {
	exclude := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		exclude[id] = struct{}{}
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []domain.Question
	for _, q := range b.questions {
		if q.Bonus || q.Difficulty != tier {
			continue
		}
		if _, skip := exclude[q.ID]; skip {
			continue
		}
		out = append(out, q)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (b *QuestionBank) BonusQuestion(_ context.Context, date string) (domain.Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, q := range b.questions {
		if q.Bonus && q.BonusDate == date {
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (b *QuestionBank) CreateQuestion(_ context.Context, q domain.Question) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.questions[q.ID]; ok {
		return domain.ErrConflict
	}
	if q.Bonus {
		for _, existing := range b.questions {
			if existing.Bonus && existing.BonusDate == q.BonusDate {
				return domain.ErrConflict
			}
		}
	}
	b.questions[q.ID] = q
	return nil
}

func (b *QuestionBank) DeleteQuestion(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.questions[id]; !ok {
		return domain.ErrQuestionNotFound
	}
	delete(b.questions, id)
	return nil
}

func (b *QuestionBank) ListQuestions(_ context.Context) ([]domain.Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Question, 0, len(b.questions))
	for _, q := range b.questions {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

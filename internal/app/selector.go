package app

import (
	"context"
	"math/rand"
	"time"

	"ramadan-quiz-service/internal/domain"
)

// SelectorPoolSize caps how many eligible candidates are fetched per tier
// before one is drawn at random.
const SelectorPoolSize = 20

// Selector builds a day's question set: one unseen non-bonus question per
// required tier, drawn uniformly from a bounded candidate pool. A question a
// user has ever answered is never served to them again.
type Selector struct {
	bank QuestionBank
	pool int
	rnd  *rand.Rand
}

func NewSelector(bank QuestionBank) *Selector {
	return &Selector{
		bank: bank,
		pool: SelectorPoolSize,
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewSelectorWithRand allows a deterministic source in tests.
func NewSelectorWithRand(bank QuestionBank, rnd *rand.Rand) *Selector {
	return &Selector{bank: bank, pool: SelectorPoolSize, rnd: rnd}
}

// Select returns one question per required tier, in tier order. If any tier
// has no eligible candidate it fails with InsufficientQuestionsError listing
// every short tier; a partial session is never produced.
func (s *Selector) Select(ctx context.Context, answeredIDs []string) ([]domain.Question, error) {
	picked := make([]domain.Question, 0, len(domain.RequiredTiers))
	var short []domain.TierShortage

	for _, tier := range domain.RequiredTiers {
		candidates, err := s.bank.FindQuestions(ctx, tier, answeredIDs, s.pool)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			short = append(short, domain.TierShortage{Tier: tier, Found: 0})
			continue
		}
		picked = append(picked, candidates[s.rnd.Intn(len(candidates))])
	}

	if len(short) > 0 {
		return nil, &domain.InsufficientQuestionsError{Shortages: short}
	}
	return picked, nil
}

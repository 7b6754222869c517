package app

import (
	"context"
	"errors"

	"ramadan-quiz-service/internal/domain"
)

// bonusFor checks today's bonus gate for a completed session: exists reports
// whether a bonus question is scheduled on the session's date, answered
// whether an answer record for it already exists. At most one bonus question
// exists per date, enforced at write time by the bank.
func bonusFor(ctx context.Context, bank QuestionBank, sessions SessionStore, sess domain.Session) (bonus domain.Question, exists, answered bool, err error) {
	bonus, err = bank.BonusQuestion(ctx, sess.Date)
	if err != nil {
		if errors.Is(err, domain.ErrQuestionNotFound) {
			return domain.Question{}, false, false, nil
		}
		return domain.Question{}, false, false, err
	}

	if sess.BonusAnswered {
		return bonus, true, true, nil
	}
	answers, err := sessions.ListAnswers(ctx, sess.ID)
	if err != nil {
		return domain.Question{}, false, false, err
	}
	for _, a := range answers {
		if a.QuestionID == bonus.ID {
			return bonus, true, true, nil
		}
	}
	return bonus, true, false, nil
}

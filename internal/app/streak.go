package app

import (
	"context"
	"errors"
	"time"

	"ramadan-quiz-service/internal/domain"
)

// Streak counts consecutive calendar days with a completed session, ending
// today or yesterday. It is derived from session history, never stored.
func (s *QuizService) Streak(ctx context.Context, userID string) (int, error) {
	dates, err := s.sessions.CompletedDates(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(dates) == 0 {
		return 0, nil
	}

	now := s.now()
	today := domain.DateOf(now)
	yesterday := domain.DateOf(now.AddDate(0, 0, -1))
	if dates[0] != today && dates[0] != yesterday {
		return 0, nil
	}

	check, err := time.Parse(domain.DateFormat, dates[0])
	if err != nil {
		return 0, err
	}
	streak := 0
	for _, d := range dates {
		if d != domain.DateOf(check) {
			break
		}
		streak++
		check = check.AddDate(0, 0, -1)
	}
	return streak, nil
}

// DashboardView is the landing-page summary.
type DashboardView struct {
	TodayScore       int  `json:"todayScore"`
	TodayCompleted   bool `json:"todayCompleted"`
	Streak           int  `json:"streak"`
	DaysParticipated int  `json:"daysParticipated"`
	QuizEnabled      bool `json:"quizEnabled"`
}

// Dashboard assembles today's score, the streak and the quiz flag. Unlike
// quiz routes it stays readable while the quiz is disabled.
func (s *QuizService) Dashboard(ctx context.Context, userID string) (DashboardView, error) {
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return DashboardView{}, err
	}
	if user.Banned {
		return DashboardView{}, domain.ErrBanned
	}

	view := DashboardView{DaysParticipated: user.DaysParticipated}

	view.QuizEnabled, err = s.settings.QuizEnabled(ctx)
	if err != nil {
		return DashboardView{}, err
	}
	view.Streak, err = s.Streak(ctx, userID)
	if err != nil {
		return DashboardView{}, err
	}

	sess, err := s.sessions.FindSession(ctx, userID, domain.DateOf(s.now()))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return view, nil
		}
		return DashboardView{}, err
	}
	view.TodayScore = sess.TotalScore
	view.TodayCompleted = sess.Completed
	return view, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"ramadan-quiz-service/internal/app"
	"ramadan-quiz-service/internal/domain"
)

type sessionRow struct {
	bun.BaseModel `bun:"table:daily_sessions"`

	ID                string     `bun:"id,pk"`
	UserID            string     `bun:"user_id"`
	Date              string     `bun:"session_date"`
	QuestionIDs       []string   `bun:"question_ids,array"`
	CurrentIndex      int        `bun:"current_question_index"`
	TotalScore        int        `bun:"total_score"`
	Completed         bool       `bun:"completed"`
	BonusAnswered     bool       `bun:"bonus_answered"`
	QuestionStartedAt *time.Time `bun:"question_started_at"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:user_answers"`

	SessionID    string    `bun:"session_id"`
	QuestionID   string    `bun:"question_id"`
	ChosenOption int       `bun:"chosen_option"`
	Correct      bool      `bun:"is_correct"`
	Score        int       `bun:"score"`
	AnsweredAt   time.Time `bun:"answered_at"`
}

type attemptRow struct {
	bun.BaseModel `bun:"table:attempts"`

	UserID string `bun:"user_id"`
	Date   string `bun:"attempt_date"`
	Score  int    `bun:"score"`
}

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID               string    `bun:"id,pk"`
	Email            string    `bun:"email"`
	Name             string    `bun:"name"`
	Role             string    `bun:"role"`
	Banned           bool      `bun:"is_banned"`
	PasswordHash     string    `bun:"password_hash"`
	LastActive       time.Time `bun:"last_active"`
	DaysParticipated int       `bun:"days_participated"`
	CreatedAt        time.Time `bun:"created_at"`
}

type settingRow struct {
	bun.BaseModel `bun:"table:app_settings"`

	Key   string `bun:"key,pk"`
	Value bool   `bun:"value"`
}

// Store persists sessions, answers, attempts, users and settings through bun.
// The schema's unique constraints back the state machine's anti-replay
// guarantees; violations surface as domain.ErrConflict.
type Store struct {
	db bun.IDB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// isConflict reports a Postgres unique_violation.
func isConflict(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}

func (s *Store) FindSession(ctx context.Context, userID, date string) (domain.Session, error) {
	row := new(sessionRow)
	err := s.db.NewSelect().Model(row).
		Where("user_id = ?", userID).
		Where("session_date = ?", date).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("find session: %w", err)
	}
	return sessionFromRow(row), nil
}

func sessionFromRow(row *sessionRow) domain.Session {
	return domain.Session{
		ID:                row.ID,
		UserID:            row.UserID,
		Date:              row.Date,
		QuestionIDs:       row.QuestionIDs,
		CurrentIndex:      row.CurrentIndex,
		TotalScore:        row.TotalScore,
		Completed:         row.Completed,
		BonusAnswered:     row.BonusAnswered,
		QuestionStartedAt: row.QuestionStartedAt,
	}
}

func (s *Store) CreateSession(ctx context.Context, sess domain.Session) error {
	row := &sessionRow{
		ID:                sess.ID,
		UserID:            sess.UserID,
		Date:              sess.Date,
		QuestionIDs:       sess.QuestionIDs,
		CurrentIndex:      sess.CurrentIndex,
		TotalScore:        sess.TotalScore,
		Completed:         sess.Completed,
		BonusAnswered:     sess.BonusAnswered,
		QuestionStartedAt: sess.QuestionStartedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isConflict(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, id string, patch app.SessionPatch) error {
	q := s.db.NewUpdate().Model((*sessionRow)(nil)).Where("id = ?", id)
	if patch.CurrentIndex != nil {
		q = q.Set("current_question_index = ?", *patch.CurrentIndex)
	}
	if patch.TotalScore != nil {
		q = q.Set("total_score = ?", *patch.TotalScore)
	}
	if patch.Completed != nil {
		q = q.Set("completed = ?", *patch.Completed)
	}
	if patch.BonusAnswered != nil {
		q = q.Set("bonus_answered = ?", *patch.BonusAnswered)
	}
	if patch.ClearStartedAt {
		q = q.Set("question_started_at = NULL")
	} else if patch.StartedAt != nil {
		q = q.Set("question_started_at = ?", *patch.StartedAt)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Store) InsertAnswer(ctx context.Context, a domain.Answer) error {
	row := &answerRow{
		SessionID:    a.SessionID,
		QuestionID:   a.QuestionID,
		ChosenOption: a.ChosenOption,
		Correct:      a.Correct,
		Score:        a.Score,
		AnsweredAt:   a.AnsweredAt,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isConflict(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

func (s *Store) ListAnswers(ctx context.Context, sessionID string) ([]domain.Answer, error) {
	var rows []answerRow
	err := s.db.NewSelect().Model(&rows).
		Where("session_id = ?", sessionID).
		Order("answered_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	answers := make([]domain.Answer, len(rows))
	for i, r := range rows {
		answers[i] = domain.Answer{
			SessionID:    r.SessionID,
			QuestionID:   r.QuestionID,
			ChosenOption: r.ChosenOption,
			Correct:      r.Correct,
			Score:        r.Score,
			AnsweredAt:   r.AnsweredAt,
		}
	}
	return answers, nil
}

func (s *Store) AnsweredQuestionIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.NewSelect().
		ColumnExpr("a.question_id").
		TableExpr("user_answers AS a").
		Join("JOIN daily_sessions AS d ON d.id = a.session_id").
		Where("d.user_id = ?", userID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("answered question ids: %w", err)
	}
	return ids, nil
}

func (s *Store) CompletedDates(ctx context.Context, userID string) ([]string, error) {
	var dates []string
	err := s.db.NewSelect().Model((*sessionRow)(nil)).
		Column("session_date").
		Where("user_id = ?", userID).
		Where("completed").
		Order("session_date DESC").
		Scan(ctx, &dates)
	if err != nil {
		return nil, fmt.Errorf("completed dates: %w", err)
	}
	return dates, nil
}

func (s *Store) UpsertAttempt(ctx context.Context, userID, date string, score int) error {
	row := &attemptRow{UserID: userID, Date: date, Score: score}
	_, err := s.db.NewInsert().Model(row).
		On("CONFLICT (user_id, attempt_date) DO UPDATE").
		Set("score = EXCLUDED.score").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert attempt: %w", err)
	}
	return nil
}

func (s *Store) ListAttempts(ctx context.Context) ([]domain.Attempt, error) {
	var rows []attemptRow
	if err := s.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return attemptsFromRows(rows), nil
}

func (s *Store) AttemptsByUser(ctx context.Context, userID string) ([]domain.Attempt, error) {
	var rows []attemptRow
	err := s.db.NewSelect().Model(&rows).
		Where("user_id = ?", userID).
		Order("attempt_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("attempts by user: %w", err)
	}
	return attemptsFromRows(rows), nil
}

func attemptsFromRows(rows []attemptRow) []domain.Attempt {
	attempts := make([]domain.Attempt, len(rows))
	for i, r := range rows {
		attempts[i] = domain.Attempt{UserID: r.UserID, Date: r.Date, Score: r.Score}
	}
	return attempts
}

func (s *Store) IncrementParticipationDays(ctx context.Context, userID string) error {
	_, err := s.db.NewUpdate().Model((*userRow)(nil)).
		Set("days_participated = days_participated + 1").
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("increment participation: %w", err)
	}
	return nil
}

func (s *Store) InTx(ctx context.Context, fn func(tx app.SessionStore) error) error {
	db, ok := s.db.(*bun.DB)
	if !ok {
		// already inside a transaction
		return fn(s)
	}
	return db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	row := &userRow{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Role:             string(u.Role),
		Banned:           u.Banned,
		PasswordHash:     u.PasswordHash,
		LastActive:       u.LastActive,
		DaysParticipated: u.DaysParticipated,
		CreatedAt:        u.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isConflict(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func userFromRow(row *userRow) domain.User {
	return domain.User{
		ID:               row.ID,
		Email:            row.Email,
		Name:             row.Name,
		Role:             domain.Role(row.Role),
		Banned:           row.Banned,
		PasswordHash:     row.PasswordHash,
		LastActive:       row.LastActive,
		DaysParticipated: row.DaysParticipated,
		CreatedAt:        row.CreatedAt,
	}
}

func (s *Store) UserByID(ctx context.Context, id string) (domain.User, error) {
	row := new(userRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("user by id: %w", err)
	}
	return userFromRow(row), nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := new(userRow)
	err := s.db.NewSelect().Model(row).Where("email = ?", email).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("user by email: %w", err)
	}
	return userFromRow(row), nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := s.db.NewSelect().Model(&rows).Order("name ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users := make([]domain.User, len(rows))
	for i := range rows {
		users[i] = userFromRow(&rows[i])
	}
	return users, nil
}

func (s *Store) SetBanned(ctx context.Context, id string, banned bool) error {
	res, err := s.db.NewUpdate().Model((*userRow)(nil)).
		Set("is_banned = ?", banned).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set banned: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.NewUpdate().Model((*userRow)(nil)).
		Set("last_active = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("touch last active: %w", err)
	}
	return nil
}

func (s *Store) QuizEnabled(ctx context.Context) (bool, error) {
	row := new(settingRow)
	err := s.db.NewSelect().Model(row).Where("key = ?", "quiz_enabled").Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// flag unset means enabled
			return true, nil
		}
		return false, fmt.Errorf("quiz enabled: %w", err)
	}
	return row.Value, nil
}

func (s *Store) SetQuizEnabled(ctx context.Context, enabled bool) error {
	row := &settingRow{Key: "quiz_enabled", Value: enabled}
	_, err := s.db.NewInsert().Model(row).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set quiz enabled: %w", err)
	}
	return nil
}

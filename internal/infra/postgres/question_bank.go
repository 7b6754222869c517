package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ramadan-quiz-service/internal/domain"
)

// QuestionBank serves the question bank from Postgres over a pgx pool. The
// partial unique index on bonus_date backs the one-bonus-per-date invariant.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

const questionColumns = `id, question_text, options, correct_option, difficulty, is_bonus, COALESCE(bonus_date::text, '')`

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var q domain.Question
	var difficulty string
	err := row.Scan(&q.ID, &q.Text, &q.Options, &q.CorrectOption, &difficulty, &q.Bonus, &q.BonusDate)
	if err != nil {
		return domain.Question{}, err
	}
	q.Difficulty = domain.Tier(difficulty)
	return q, nil
}

func (b *QuestionBank) Question(ctx context.Context, id string) (domain.Question, error) {
	q, err := scanQuestion(b.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, domain.ErrQuestionNotFound
		}
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	return q, nil
}

func (b *QuestionBank) FindQuestions(ctx context.Context, tier domain.Tier, excludeIDs []string, limit int) ([]domain.Question, error) {
	if excludeIDs == nil {
		excludeIDs = []string{}
	}
	rows, err := b.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions
		 WHERE difficulty = $1 AND NOT is_bonus AND NOT (id = ANY($2))
		 LIMIT $3`,
		string(tier), excludeIDs, limit)
	if err != nil {
		return nil, fmt.Errorf("find questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (b *QuestionBank) BonusQuestion(ctx context.Context, date string) (domain.Question, error) {
	q, err := scanQuestion(b.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE is_bonus AND bonus_date = $1::date`, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, domain.ErrQuestionNotFound
		}
		return domain.Question{}, fmt.Errorf("load bonus question: %w", err)
	}
	return q, nil
}

func (b *QuestionBank) CreateQuestion(ctx context.Context, q domain.Question) error {
	_, err := b.pool.Exec(ctx,
		`INSERT INTO questions (id, question_text, options, correct_option, difficulty, is_bonus, bonus_date)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::date)`,
		q.ID, q.Text, q.Options, q.CorrectOption, string(q.Difficulty), q.Bonus, q.BonusDate)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrConflict
		}
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

func (b *QuestionBank) DeleteQuestion(ctx context.Context, id string) error {
	tag, err := b.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (b *QuestionBank) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions ORDER BY difficulty, id`)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

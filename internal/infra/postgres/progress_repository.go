package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"ecoloquiz-service/internal/domain"
)

// ProgressRepository stores answer events in Postgres. The unique
// (player_id, question_id) index makes duplicate submissions a no-op
// insert, reported as domain.ErrAlreadyAnswered.
type ProgressRepository struct {
	pool *pgxpool.Pool
}

func NewProgressRepository(pool *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

func (r *ProgressRepository) RecordAnswer(ctx context.Context, ev domain.AnswerEvent) error {
	optionIDs := ev.OptionIDs
	if optionIDs == nil {
		optionIDs = []string{}
	}
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO answer_events (id, player_id, quiz_id, question_id, status, option_ids, points, answered_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (player_id, question_id) DO NOTHING`,
		ev.ID, ev.PlayerID, ev.QuizID, ev.QuestionID, ev.Status, optionIDs, ev.Points, ev.AnsweredAt)
	if err != nil {
		return fmt.Errorf("record answer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyAnswered
	}
	return nil
}

func (r *ProgressRepository) History(ctx context.Context, playerID, quizID string) (map[string]domain.AnswerStatus, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_id, status FROM answer_events WHERE player_id=$1 AND quiz_id=$2`,
		playerID, quizID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.AnswerStatus)
	for rows.Next() {
		var (
			questionID string
			status     domain.AnswerStatus
		)
		if err := rows.Scan(&questionID, &status); err != nil {
			return nil, err
		}
		out[questionID] = status
	}
	return out, rows.Err()
}

func (r *ProgressRepository) VisitedCounts(ctx context.Context, playerID string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT quiz_id, count(*) FROM answer_events WHERE player_id=$1 GROUP BY quiz_id`, playerID)
	if err != nil {
		return nil, fmt.Errorf("load visited counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			quizID string
			n      int
		)
		if err := rows.Scan(&quizID, &n); err != nil {
			return nil, err
		}
		out[quizID] = n
	}
	return out, rows.Err()
}

func (r *ProgressRepository) CountAnswers(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM answer_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count answers: %w", err)
	}
	return n, nil
}

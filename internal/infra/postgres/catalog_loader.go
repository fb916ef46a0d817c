package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ecoloquiz-service/internal/domain"
)

// CatalogLoader loads quiz content from Postgres. Quiz bodies (questions
// and options) live as JSONB next to the relational theme/level columns.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		quiz domain.Quiz
		raw  []byte
	)
	err := l.pool.QueryRow(ctx,
		`SELECT id, theme_id, COALESCE(level_id, ''), position, data FROM quizzes WHERE id=$1`,
		quizID,
	).Scan(&quiz.ID, &quiz.ThemeID, &quiz.LevelID, &quiz.Position, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	if err := json.Unmarshal(raw, &quiz.Questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func (l *CatalogLoader) LoadQuizzesByTheme(ctx context.Context, themeID string) ([]domain.Quiz, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, theme_id, COALESCE(level_id, ''), position, data FROM quizzes WHERE theme_id=$1 ORDER BY position`,
		themeID,
	)
	if err != nil {
		return nil, fmt.Errorf("load theme quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		var (
			quiz domain.Quiz
			raw  []byte
		)
		if err := rows.Scan(&quiz.ID, &quiz.ThemeID, &quiz.LevelID, &quiz.Position, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &quiz.Questions); err != nil {
			return nil, fmt.Errorf("unmarshal quiz %s: %w", quiz.ID, err)
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

func (l *CatalogLoader) LoadTheme(ctx context.Context, themeID string) (domain.Theme, error) {
	var theme domain.Theme
	err := l.pool.QueryRow(ctx, `SELECT id, name FROM themes WHERE id=$1`, themeID).
		Scan(&theme.ID, &theme.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Theme{}, domain.ErrThemeNotFound
	}
	if err != nil {
		return domain.Theme{}, fmt.Errorf("load theme: %w", err)
	}
	return theme, nil
}

func (l *CatalogLoader) LoadThemes(ctx context.Context) ([]domain.Theme, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, name FROM themes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("load themes: %w", err)
	}
	defer rows.Close()

	var themes []domain.Theme
	for rows.Next() {
		var theme domain.Theme
		if err := rows.Scan(&theme.ID, &theme.Name); err != nil {
			return nil, err
		}
		themes = append(themes, theme)
	}
	return themes, rows.Err()
}

func (l *CatalogLoader) LoadLevels(ctx context.Context) ([]domain.Level, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, name, rank, min_points FROM levels ORDER BY rank`)
	if err != nil {
		return nil, fmt.Errorf("load levels: %w", err)
	}
	defer rows.Close()

	var levels []domain.Level
	for rows.Next() {
		var level domain.Level
		if err := rows.Scan(&level.ID, &level.Name, &level.Rank, &level.MinPoints); err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, rows.Err()
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ecoloquiz-service/internal/domain"
)

// PlayerRepository stores players in Postgres. Point totals and the
// milestone watermark move only through guarded single-statement updates
// so concurrent submissions cannot lose deltas or double-claim.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

const playerColumns = `id, user_id, email, display_name, zone, COALESCE(level_id, ''), points, last_milestone, created_at`

func (r *PlayerRepository) GetPlayer(ctx context.Context, playerID string) (domain.Player, error) {
	return r.scanPlayer(r.pool.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id=$1`, playerID))
}

func (r *PlayerRepository) GetPlayerByUser(ctx context.Context, userID string) (domain.Player, error) {
	return r.scanPlayer(r.pool.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE user_id=$1`, userID))
}

func (r *PlayerRepository) scanPlayer(row pgx.Row) (domain.Player, error) {
	var p domain.Player
	err := row.Scan(&p.ID, &p.UserID, &p.Email, &p.DisplayName, &p.Zone, &p.LevelID, &p.Points, &p.LastMilestone, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	if err != nil {
		return domain.Player{}, fmt.Errorf("scan player: %w", err)
	}
	return p, nil
}

func (r *PlayerRepository) CreatePlayer(ctx context.Context, p domain.Player) error {
	var levelID interface{}
	if p.LevelID != "" {
		levelID = p.LevelID
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO players (id, user_id, email, display_name, zone, level_id, points, last_milestone, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.UserID, p.Email, p.DisplayName, p.Zone, levelID, p.Points, p.LastMilestone, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create player: %w", err)
	}
	return nil
}

func (r *PlayerRepository) AddPoints(ctx context.Context, playerID string, delta int) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`UPDATE players SET points = points + $2 WHERE id=$1 RETURNING points`,
		playerID, delta,
	).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrPlayerNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("add points: %w", err)
	}
	return total, nil
}

func (r *PlayerRepository) ClaimMilestone(ctx context.Context, playerID string, milestone int) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE players SET last_milestone = $2 WHERE id=$1 AND last_milestone < $2`,
		playerID, milestone)
	if err != nil {
		return false, fmt.Errorf("claim milestone: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PlayerRepository) TopPlayers(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, display_name, points FROM players ORDER BY points DESC, display_name LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top players: %w", err)
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.PlayerID, &e.DisplayName, &e.Points); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *PlayerRepository) CountPlayers(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM players`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return n, nil
}

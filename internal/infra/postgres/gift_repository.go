package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"ecoloquiz-service/internal/domain"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations.
const pgUniqueViolation = "23505"

// GiftRepository stores gifts and allocations in Postgres. Allocate runs
// the compare-and-decrement on stock and the allocation insert in one
// transaction: the guarded UPDATE's affected-row count decides the race,
// so a gift can never be oversold.
type GiftRepository struct {
	pool *pgxpool.Pool
}

func NewGiftRepository(pool *pgxpool.Pool) *GiftRepository {
	return &GiftRepository{pool: pool}
}

const giftColumns = `id, name, company, description, total_quantity, won_count, remaining_count, valid_from, valid_until, zone, COALESCE(level_id, '')`

func (r *GiftRepository) ListEligible(ctx context.Context, now time.Time, zone, levelID string) ([]domain.Gift, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+giftColumns+` FROM gifts
		 WHERE remaining_count > 0
		   AND (valid_from IS NULL OR valid_from <= $1)
		   AND (valid_until IS NULL OR valid_until >= $1)
		   AND (zone = '' OR zone = $2)
		   AND (level_id IS NULL OR level_id = $3)`,
		now, zone, levelID)
	if err != nil {
		return nil, fmt.Errorf("list eligible gifts: %w", err)
	}
	defer rows.Close()
	return scanGifts(rows)
}

func (r *GiftRepository) Allocate(ctx context.Context, alloc domain.Allocation) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin allocation: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE gifts SET remaining_count = remaining_count - 1, won_count = won_count + 1
		 WHERE id=$1 AND remaining_count > 0`,
		alloc.GiftID)
	if err != nil {
		return fmt.Errorf("decrement gift stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrGiftExhausted
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO allocations (id, player_id, gift_id, milestone, status, allocated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		alloc.ID, alloc.PlayerID, alloc.GiftID, alloc.Milestone, alloc.Status, alloc.AllocatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrMilestoneAlreadyClaimed
		}
		return fmt.Errorf("insert allocation: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *GiftRepository) ListGifts(ctx context.Context) ([]domain.Gift, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+giftColumns+` FROM gifts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list gifts: %w", err)
	}
	defer rows.Close()
	return scanGifts(rows)
}

func (r *GiftRepository) CountAllocations(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM allocations`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count allocations: %w", err)
	}
	return n, nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanGifts(rows pgxRows) ([]domain.Gift, error) {
	var gifts []domain.Gift
	for rows.Next() {
		var g domain.Gift
		if err := rows.Scan(&g.ID, &g.Name, &g.Company, &g.Description, &g.TotalQuantity, &g.WonCount,
			&g.RemainingCount, &g.ValidFrom, &g.ValidUntil, &g.Zone, &g.LevelID); err != nil {
			return nil, err
		}
		gifts = append(gifts, g)
	}
	return gifts, rows.Err()
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ecoloquiz-service/internal/domain"
)

// UserRepository stores authentication principals in Postgres.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) CreateUser(ctx context.Context, u domain.User) error {
	capabilities := u.Capabilities
	if capabilities == nil {
		capabilities = []string{}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, capabilities, created_at)
		 VALUES ($1, lower($2), $3, $4, $5)`,
		u.ID, u.Email, u.PasswordHash, capabilities, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, capabilities, created_at FROM users WHERE email=lower($1)`,
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Capabilities, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

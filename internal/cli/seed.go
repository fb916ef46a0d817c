package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"ecoloquiz-service/internal/app"
	"ecoloquiz-service/internal/config"
)

// NewSeedCmd loads the demo catalog, gifts and an admin account into
// Postgres for local development.
func NewSeedCmd(configPath *string) *cobra.Command {
	var adminEmail, adminPassword string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with demo content",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, adminEmail, adminPassword)
		},
	}
	cmd.Flags().StringVar(&adminEmail, "admin-email", "admin@ecoloquiz.local", "email of the seeded admin account")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "password of the seeded admin account (required)")
	_ = cmd.MarkFlagRequired("admin-password")
	return cmd
}

func runSeed(ctx context.Context, configPath, adminEmail, adminPassword string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	for _, theme := range sampleThemes() {
		if _, err := pool.Exec(ctx,
			`INSERT INTO themes (id, name) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name`,
			theme.ID, theme.Name); err != nil {
			return fmt.Errorf("seed theme %s: %w", theme.ID, err)
		}
	}

	for _, level := range sampleLevels() {
		if _, err := pool.Exec(ctx,
			`INSERT INTO levels (id, name, rank, min_points) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, rank=EXCLUDED.rank, min_points=EXCLUDED.min_points`,
			level.ID, level.Name, level.Rank, level.MinPoints); err != nil {
			return fmt.Errorf("seed level %s: %w", level.ID, err)
		}
	}

	for _, quiz := range sampleQuizzes() {
		data, err := json.Marshal(quiz.Questions)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx,
			`INSERT INTO quizzes (id, theme_id, level_id, position, data) VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`,
			quiz.ID, quiz.ThemeID, quiz.LevelID, quiz.Position, data); err != nil {
			return fmt.Errorf("seed quiz %s: %w", quiz.ID, err)
		}
	}

	for _, gift := range sampleGifts() {
		if _, err := pool.Exec(ctx,
			`INSERT INTO gifts (id, name, company, description, total_quantity, won_count, remaining_count, valid_from, valid_until, zone, level_id)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''))
			 ON CONFLICT (id) DO NOTHING`,
			gift.ID, gift.Name, gift.Company, gift.Description, gift.TotalQuantity, gift.WonCount,
			gift.RemainingCount, gift.ValidFrom, gift.ValidUntil, gift.Zone, gift.LevelID); err != nil {
			return fmt.Errorf("seed gift %s: %w", gift.ID, err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	caps := []string{app.CapabilityPlayer, "gifts.read", "stats.read"}
	userID := uuid.NewString()
	tag, err := pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, capabilities, created_at)
		 VALUES ($1, lower($2), $3, $4, $5) ON CONFLICT (email) DO NOTHING`,
		userID, adminEmail, string(hash), caps, time.Now())
	if err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}
	if tag.RowsAffected() == 1 {
		if _, err := pool.Exec(ctx,
			`INSERT INTO players (id, user_id, email, display_name, created_at) VALUES ($1, $2, lower($3), $4, $5)`,
			uuid.NewString(), userID, adminEmail, "Admin", time.Now()); err != nil {
			return fmt.Errorf("seed admin player: %w", err)
		}
	}

	logrus.WithField("admin", adminEmail).Info("seed data applied")
	return nil
}

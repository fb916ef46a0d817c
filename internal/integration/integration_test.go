package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"ecoloquiz-service/internal/app"
	"ecoloquiz-service/internal/domain"
	"ecoloquiz-service/internal/infra/memory"
	"ecoloquiz-service/internal/infra/postgres"
	pgmigrations "ecoloquiz-service/internal/infra/postgres/migrations"
	infraredis "ecoloquiz-service/internal/infra/redis"
)

func TestMilestoneGiftEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedCatalog(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	users := postgres.NewUserRepository(pool)
	players := postgres.NewPlayerRepository(pool)
	progress := postgres.NewProgressRepository(pool)
	gifts := postgres.NewGiftRepository(pool)
	catalog := infraredis.NewCatalog(redisClient, postgres.NewCatalogLoader(pool), 5*time.Minute)
	games := infraredis.NewGameStateStore(redisClient, 5*time.Minute)

	auth := app.NewAuthService(users, players, catalog, []byte("it-secret"), time.Hour, log)
	allocator := app.NewGiftAllocator(gifts, app.NewUniformDraw(7), log)
	service := app.NewPlayerService(catalog, players, progress, games, allocator, app.NewLogNotifier(log), nil, log)

	reg, err := auth.Register(ctx, app.RegisterInput{
		Email:       "alice@example.com",
		Password:    "secret-pass",
		DisplayName: "Alice",
		Zone:        "sud",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// put the player two points under the first milestone
	if _, err := players.AddPoints(ctx, reg.PlayerID, 98); err != nil {
		t.Fatalf("add points: %v", err)
	}

	res, err := service.ValidateAnswer(ctx, reg.PlayerID, "quiz-1", domain.AnswerSubmission{
		QuestionID: "q1",
		OptionIDs:  []string{"q1-vrai"},
	})
	if err != nil {
		t.Fatalf("validate answer: %v", err)
	}
	if !res.IsCorrect || res.NewTotalPoints != 103 {
		t.Fatalf("expected correct answer totalling 103, got correct=%v total=%d", res.IsCorrect, res.NewTotalPoints)
	}
	if res.WonGift == nil || res.WonGift.Milestone != 100 {
		t.Fatalf("expected a gift at milestone 100, got %+v", res.WonGift)
	}

	inventory, err := gifts.ListGifts(ctx)
	if err != nil {
		t.Fatalf("list gifts: %v", err)
	}
	if len(inventory) != 1 || inventory[0].RemainingCount != 1 || inventory[0].WonCount != 1 {
		t.Fatalf("expected stock 1/1 after the win, got %+v", inventory)
	}

	// resubmitting the same question is rejected and moves nothing
	if _, err := service.ValidateAnswer(ctx, reg.PlayerID, "quiz-1", domain.AnswerSubmission{
		QuestionID: "q1",
		OptionIDs:  []string{"q1-faux"},
	}); !errors.Is(err, domain.ErrAlreadyAnswered) {
		t.Fatalf("expected ErrAlreadyAnswered, got %v", err)
	}
	player, err := players.GetPlayer(ctx, reg.PlayerID)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if player.Points != 103 || player.LastMilestone != 100 {
		t.Fatalf("expected points=103 milestone=100, got points=%d milestone=%d", player.Points, player.LastMilestone)
	}

	// the game marker survived in redis
	game, err := service.CurrentGame(ctx, reg.PlayerID)
	if err != nil {
		t.Fatalf("current game: %v", err)
	}
	if !game.HasGameInProgress || game.ThemeID != "theme-1" {
		t.Fatalf("expected resumable theme-1, got %+v", game)
	}
}

func TestLastGiftUnitEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()

	seedCatalog(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	// drain the stock to one unit
	if _, err := pool.Exec(ctx, `UPDATE gifts SET remaining_count = 1, won_count = total_quantity - 1`); err != nil {
		t.Fatalf("drain stock: %v", err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	players := postgres.NewPlayerRepository(pool)
	users := postgres.NewUserRepository(pool)
	gifts := postgres.NewGiftRepository(pool)
	catalog := memory.NewCatalog(postgres.NewCatalogLoader(pool), time.Minute)
	auth := app.NewAuthService(users, players, catalog, []byte("it-secret"), time.Hour, log)
	allocator := app.NewGiftAllocator(gifts, app.NewUniformDraw(7), log)

	var ids []string
	for _, name := range []string{"alice", "bob"} {
		reg, err := auth.Register(ctx, app.RegisterInput{
			Email:       name + "@example.com",
			Password:    "secret-pass",
			DisplayName: name,
		})
		if err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
		ids = append(ids, reg.PlayerID)
	}

	type result struct {
		win *domain.GiftWin
		err error
	}
	results := make(chan result, len(ids))
	for _, id := range ids {
		go func(id string) {
			win, err := allocator.Allocate(ctx, domain.Player{ID: id}, 100)
			results <- result{win: win, err: err}
		}(id)
	}

	winners := 0
	for range ids {
		r := <-results
		if r.err != nil {
			t.Fatalf("allocate: %v", r.err)
		}
		if r.win != nil {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner for the last unit, got %d", winners)
	}

	inventory, err := gifts.ListGifts(ctx)
	if err != nil {
		t.Fatalf("list gifts: %v", err)
	}
	g := inventory[0]
	if g.RemainingCount != 0 || g.RemainingCount+g.WonCount != g.TotalQuantity {
		t.Fatalf("stock invariant broken: %+v", g)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedCatalog(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO themes (id, name) VALUES ('theme-1', 'Recyclage')`); err != nil {
		t.Fatalf("insert theme: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO levels (id, name, rank, min_points) VALUES ('lvl-1', 'Débutant', 1, 0)`); err != nil {
		t.Fatalf("insert level: %v", err)
	}

	quiz := domain.Quiz{
		ID:      "quiz-1",
		ThemeID: "theme-1",
		LevelID: "lvl-1",
		Questions: []domain.Question{
			{
				ID:   "q1",
				Text: "Le verre se recycle indéfiniment.",
				Type: domain.QuestionTypeTrueFalse,
				Options: []domain.Option{
					{ID: "q1-vrai", Text: "Vrai", Correct: true},
					{ID: "q1-faux", Text: "Faux", Correct: false},
				},
			},
		},
	}
	data, err := json.Marshal(quiz.Questions)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, theme_id, level_id, position, data) VALUES (?, ?, ?, 0, ?::jsonb)`,
		quiz.ID, quiz.ThemeID, quiz.LevelID, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO gifts (id, name, company, total_quantity, won_count, remaining_count) VALUES ('gift-1', 'Gourde isotherme', 'EcoloShop', 2, 0, 2)`); err != nil {
		t.Fatalf("insert gift: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

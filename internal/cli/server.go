package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ecoloquiz-service/internal/app"
	"ecoloquiz-service/internal/config"
	"ecoloquiz-service/internal/infra/memory"
	pginfra "ecoloquiz-service/internal/infra/postgres"
	redisinfra "ecoloquiz-service/internal/infra/redis"
	transport "ecoloquiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the EcoloQuiz API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := newLogger(cfg.Log.Level)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	// Catalog: Postgres-backed when configured, demo data otherwise;
	// cached in Redis when available, in process memory when not.
	var loader memory.CatalogLoader = memory.NewStaticCatalogLoader(sampleThemes(), sampleLevels(), sampleQuizzes())
	if pool != nil {
		loader = pginfra.NewCatalogLoader(pool)
	}
	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var catalog app.CatalogRepository
	if redisClient != nil {
		catalog = redisinfra.NewCatalog(redisClient, loader, quizTTL)
	} else {
		catalog = memory.NewCatalog(loader, quizTTL)
	}

	var (
		players  app.PlayerRepository
		progress app.ProgressRepository
		gifts    app.GiftRepository
		users    app.UserRepository
	)
	if pool != nil {
		players = pginfra.NewPlayerRepository(pool)
		progress = pginfra.NewProgressRepository(pool)
		gifts = pginfra.NewGiftRepository(pool)
		users = pginfra.NewUserRepository(pool)
	} else {
		players = memory.NewPlayerRepository()
		progress = memory.NewProgressRepository()
		gifts = memory.NewGiftRepository(sampleGifts()...)
		users = memory.NewUserRepository()
		log.Warn("no postgres configured, running with in-memory demo data")
	}

	gameTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)
	var games app.GameStateStore
	if redisClient != nil {
		games = redisinfra.NewGameStateStore(redisClient, gameTTL)
	} else {
		games = memory.NewGameStateStore()
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		secret = "dev-only-secret"
		log.Warn("auth.secret not set, using the development secret")
	}
	tokenTTL := config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour)

	hub := app.NewLeaderboardHub(players, 10)
	allocator := app.NewGiftAllocator(gifts, app.NewUniformDraw(cfg.Gifts.DrawSeed), log)
	notifier := app.NewLogNotifier(log)
	playerSvc := app.NewPlayerService(catalog, players, progress, games, allocator, notifier, hub, log)
	authSvc := app.NewAuthService(users, players, catalog, []byte(secret), tokenTTL, log)
	adminSvc := app.NewAdminService(players, progress, gifts)

	handler := transport.NewHandler(authSvc, playerSvc, adminSvc, hub, log)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.WithField("port", finalPort).Info("starting ecoloquiz service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if parsed, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(parsed)
	}
	return log
}

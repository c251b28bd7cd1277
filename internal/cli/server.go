package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"mc-test-service/internal/app"
	"mc-test-service/internal/config"
	"mc-test-service/internal/infra/csvlog"
	filesource "mc-test-service/internal/infra/file"
	"mc-test-service/internal/infra/memory"
	pgloader "mc-test-service/internal/infra/postgres"
	redisinfra "mc-test-service/internal/infra/redis"
	transport "mc-test-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the MC test server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	fileLoader := filesource.NewQuestionLoader(cfg.Questions.Dir)
	var loader memory.QuestionSetLoader = fileLoader
	if pool != nil {
		loader = pgloader.NewQuestionLoader(pool)
	}

	var questions app.QuestionRepository
	if redisClient != nil {
		questions = redisinfra.NewQuestionCache(redisClient, loader, questionTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	store := csvlog.New(cfg.Store.AnswersPath, config.TTLDuration(cfg.Store.LockTimeout, 5*time.Second))
	settings := config.LoadSettings(cfg.Settings.Path)
	hub := app.NewLeaderboardHub()

	service := app.NewQuizService(sessions, questions, store, settings, hub).
		WithTimeLimit(config.TTLDuration(cfg.Quiz.TimeLimit, app.DefaultTimeLimit)).
		WithRetryPolicy(cfg.Store.Retries, config.TTLDuration(cfg.Store.RetryBackoff, 100*time.Millisecond))

	handler := transport.NewHandler(service, fileLoader, cfg.Admin.User, cfg.Admin.Key)
	wsHandler := transport.NewWSHandler(hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/leaderboard", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting mc-test service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// loadConfig falls back to built-in defaults when the config file is absent,
// so the service runs out of the box against the local data directory.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("config %s not found, using defaults", path)
			return config.Default(), nil
		}
		return config.Config{}, err
	}
	return cfg, nil
}

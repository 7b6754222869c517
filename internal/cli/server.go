package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"golang.org/x/crypto/bcrypt"

	"ramadan-quiz-service/internal/app"
	"ramadan-quiz-service/internal/config"
	"ramadan-quiz-service/internal/domain"
	"ramadan-quiz-service/internal/infra/memory"
	"ramadan-quiz-service/internal/infra/postgres"
	infraredis "ramadan-quiz-service/internal/infra/redis"
	transport "ramadan-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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

	var redisClient *goredis.Client
	if cfg.Redis.Addr != "" {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	cacheTTL := config.TTLDuration(cfg.Quiz.QuestionCacheTTL, 10*time.Minute)

	var (
		sessions  app.SessionStore
		users     app.UserStore
		settings  app.SettingStore
		bank      app.QuestionBank
		questions app.QuestionAdmin
	)
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		bunDB := bun.NewDB(sqldb, pgdialect.New())
		store := postgres.NewStore(bunDB)

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		pgBank := postgres.NewQuestionBank(pool)

		sessions, users, settings = store, store, store
		bank, questions = pgBank, pgBank
	} else {
		store := memory.NewStore()
		memBank := memory.NewQuestionBank(sampleQuestions())
		seedAdmin(ctx, store)

		sessions, users, settings = store, store, store
		bank, questions = memBank, memBank
	}

	if redisClient != nil {
		bank = infraredis.NewQuestionCache(redisClient, bank, cacheTTL)
	} else {
		bank = memory.NewQuestionCache(bank, cacheTTL)
	}

	hub := app.NewLeaderboardHub()
	quiz := app.NewQuizService(sessions, bank, users, settings).WithHub(hub)
	if redisClient != nil {
		quiz = quiz.WithProjector(infraredis.NewLeaderboard(redisClient))
	}
	admin := app.NewAdminService(questions, users, settings, sessions)

	secret := cfg.Auth.Secret
	if secret == "" {
		log.Printf("auth secret not configured, issued tokens will not survive restarts")
		secret = uuid.NewString()
	}
	tokenTTL := config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour)
	auth := app.NewAuthService(users, secret, tokenTTL)

	api := transport.NewAPI(quiz, admin, auth, hub)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      api.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting ramadan quiz service on :%s", finalPort)
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

// seedAdmin provisions a default admin account for in-memory runs.
func seedAdmin(ctx context.Context, store *memory.Store) {
	hash, err := bcrypt.GenerateFromPassword([]byte("change-me-now"), bcrypt.DefaultCost)
	if err != nil {
		return
	}
	_ = store.CreateUser(ctx, domain.User{
		ID:           "admin",
		Email:        "admin@example.com",
		Name:         "Admin",
		Role:         domain.RoleAdmin,
		PasswordHash: string(hash),
		LastActive:   time.Now(),
		CreatedAt:    time.Now(),
	})
}

// sampleQuestions provides a minimal bank for in-memory runs; production uses
// the Postgres bank filled through the admin API.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            "easy-1",
			Text:          "How many days does fasting last in Ramadan at most?",
			Options:       []string{"28", "29", "30", "31"},
			CorrectOption: 2,
			Difficulty:    domain.TierEasy,
		},
		{
			ID:            "medium-1",
			Text:          "Which meal is taken before dawn during Ramadan?",
			Options:       []string{"Iftar", "Suhoor", "Qiyam", "Witr"},
			CorrectOption: 1,
			Difficulty:    domain.TierMedium,
		},
		{
			ID:            "hard-1",
			Text:          "In which month of the Hijri calendar does Ramadan fall?",
			Options:       []string{"Eighth", "Ninth", "Tenth", "Eleventh"},
			CorrectOption: 1,
			Difficulty:    domain.TierHard,
		},
	}
}

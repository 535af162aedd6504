package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/classquiz/attempt-service/internal/cache"
	"github.com/classquiz/attempt-service/internal/config"
	"github.com/classquiz/attempt-service/internal/handlers"
	"github.com/classquiz/attempt-service/internal/models"
	"github.com/classquiz/attempt-service/internal/repositories/postgres"
	"github.com/classquiz/attempt-service/internal/services"
	"github.com/classquiz/attempt-service/internal/utils"
	"github.com/classquiz/attempt-service/internal/validator"
	"github.com/classquiz/attempt-service/pkg"
)

// sweepInterval bounds how stale a timed-out attempt can stay in_progress
// when no client ever reports back.
const sweepInterval = 30 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	var slogger *slog.Logger
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
		slogger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	} else {
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	slog.SetDefault(slogger)
	appLogger := utils.NewSlogLogger(slogger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		slogger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if cfg.Environment != "production" {
		// Options live in the quiz_items.options jsonb column, so ItemOption
		// has no table of its own.
		if err := db.AutoMigrate(
			&models.Quiz{},
			&models.QuizItem{},
			&models.CrosswordEntry{},
			&models.Attempt{},
		); err != nil {
			slogger.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	var attemptCache cache.AttemptCache
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		// Degrade rather than refuse to start: the database stays
		// authoritative for time remaining and active attempts.
		slogger.Warn("Redis unavailable, running without attempt cache", "error", err)
		attemptCache = cache.NoopAttemptCache{}
	} else {
		defer redisClient.Close()
		attemptCache = cache.NewAttemptCache(redisClient, slogger)
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		slogger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)
	attemptService := services.NewAttemptService(repo, attemptCache, publisher, slogger, validator.New())
	quizService := services.NewQuizService(repo, slogger)

	if cfg.Environment != "production" {
		if created, err := quizService.Seed(context.Background(), demoQuizzes()); err != nil {
			slogger.Warn("Quiz seeding failed", "error", err)
		} else if created > 0 {
			slogger.Info("Seeded demo quizzes", "count", created)
		}
	}

	router := gin.New()
	router.Use(utils.LoggerMiddleware(appLogger), gin.Recovery())
	handlers.NewHandlerManager(attemptService, quizService, appLogger).SetupRoutes(router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepExpiredAttempts(ctx, attemptService, slogger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slogger.Info("Attempt service listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slogger.Error("Graceful shutdown failed", "error", err)
	}
}

// demoQuizzes returns the snapshots seeded into local environments so the
// service is playable without an upstream authoring service.
func demoQuizzes() []*models.Quiz {
	return []*models.Quiz{
		{
			ID:             "7a1d2e3f-4b5c-4d6e-8f90-1a2b3c4d5e6f",
			Name:           "Fractions warm-up",
			Type:           models.QuizTypeBasic,
			TotalTimeLimit: 600,
			CreatedBy:      "demo-teacher",
			Items: []models.QuizItem{
				{
					ID:     "0c9b8a7d-6e5f-4a3b-9c2d-1e0f9a8b7c6d",
					Kind:   models.ItemKindChoice,
					Order:  1,
					Prompt: "Which fraction equals one half?",
					Points: 1,
					Options: mustJSON([]models.ItemOption{
						{ID: "opt-a", Text: "2/4"},
						{ID: "opt-b", Text: "2/3"},
						{ID: "opt-c", Text: "3/4"},
					}),
					CorrectAnswer: mustJSON([]string{"opt-a"}),
				},
				{
					ID:            "1d0c9b8e-7f6a-4b5c-8d3e-2f1a0b9c8d7e",
					Kind:          models.ItemKindText,
					Order:         2,
					Prompt:        "Write three quarters as a decimal.",
					Points:        1,
					CorrectAnswer: mustJSON("0.75"),
				},
			},
		},
		{
			ID:        "8b2e3f4a-5c6d-4e7f-9a01-2b3c4d5e6f70",
			Name:      "Animals crossword",
			Type:      models.QuizTypeCrossword,
			CreatedBy: "demo-teacher",
			Entries: []models.CrosswordEntry{
				{
					ID:        "2e1d0c9f-8a7b-4c6d-9e4f-3a2b1c0d9e8f",
					Number:    1,
					Clue:      "Purrs when happy",
					Row:       0,
					Col:       0,
					Direction: models.DirectionAcross,
					Length:    3,
					Solution:  "CAT",
				},
				{
					ID:        "3f2e1d0a-9b8c-4d7e-8f5a-4b3c2d1e0f9a",
					Number:    2,
					Clue:      "Gives us milk",
					Row:       0,
					Col:       0,
					Direction: models.DirectionDown,
					Length:    3,
					Solution:  "COW",
				},
			},
		},
	}
}

func mustJSON(v interface{}) datatypes.JSON {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return datatypes.JSON(raw)
}

// sweepExpiredAttempts periodically times out attempts whose deadline passed
// without a client-side finish, so abandoned attempts still get scored.
func sweepExpiredAttempts(ctx context.Context, svc services.AttemptService, logger *slog.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			count, err := svc.SweepExpired(ctx, now)
			if err != nil {
				logger.Error("Expired attempt sweep failed", "error", err)
				continue
			}
			if count > 0 {
				logger.Info("Timed out expired attempts", "count", count)
			}
		}
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/skilltest-backend/internal/config"
	"github.com/stemsi/skilltest-backend/internal/database"
	"github.com/stemsi/skilltest-backend/internal/handler"
	"github.com/stemsi/skilltest-backend/internal/logger"
	"github.com/stemsi/skilltest-backend/internal/repository"
	"github.com/stemsi/skilltest-backend/internal/router"
	"github.com/stemsi/skilltest-backend/internal/service"
	"github.com/stemsi/skilltest-backend/internal/textgen"
	"github.com/stemsi/skilltest-backend/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting skill-test backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	skillRepo := repository.NewSkillRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	sessionRepo := repository.NewExamSessionRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	generator := textgen.New(cfg.AI)
	if !generator.IsAvailable() {
		log.Warn().Msg("AI_API_KEY not set; explanation and suggestion endpoints will return 503")
	}

	authService := service.NewAuthService(cfg, userRepo, rdb)
	examGenerator := service.NewExamGeneratorService(userRepo, questionRepo, sessionRepo, service.NewSampler(nil), cfg.Exam)
	sessionService := service.NewExamSessionService(sessionRepo, questionRepo)
	scoringService := service.NewScoringService(sessionRepo)
	dashboardService := service.NewDashboardService(dashboardRepo, skillRepo)
	aiService := service.NewAIService(sessionRepo, questionRepo, generator, rdb, cfg.AI.CacheTTL)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Exam:      handler.NewExamHandler(examGenerator, sessionService, scoringService),
		AI:        handler.NewAIHandler(aiService, sessionService),
		Dashboard: handler.NewDashboardHandler(dashboardService),
		System: handler.NewSystemHandler(map[string]handler.Pinger{
			"postgres": pool,
			"redis":    handler.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		}),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, rdb, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// In-flight generation calls may run for up to the AI timeout.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.AI.Timeout+5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

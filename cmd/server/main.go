package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/prepwise-backend/internal/config"
	"github.com/stemsi/prepwise-backend/internal/database"
	"github.com/stemsi/prepwise-backend/internal/handler"
	"github.com/stemsi/prepwise-backend/internal/interview"
	"github.com/stemsi/prepwise-backend/internal/logger"
	"github.com/stemsi/prepwise-backend/internal/repository"
	"github.com/stemsi/prepwise-backend/internal/router"
	"github.com/stemsi/prepwise-backend/internal/service"
	"github.com/stemsi/prepwise-backend/internal/validator"
	"github.com/stemsi/prepwise-backend/internal/worker"
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
		Msg("Starting Prepwise Backend")

	interviewCfg, err := config.LoadInterview(cfg.InterviewConfigPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.InterviewConfigPath).Msg("Invalid interview config")
	}

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
	questionRepo := repository.NewQuestionRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	progressRepo := repository.NewProgressRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg)
	questionService := service.NewQuestionService(questionRepo, rdb, interviewCfg, log)
	submissionService := service.NewSubmissionService(submissionRepo, rdb, log)
	progressService := service.NewProgressService(progressRepo, submissionRepo, rdb, log)
	strikeService := service.NewStrikeService(rdb)
	scorer := interview.NewScorer(interviewCfg.FillerWords)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Interview: handler.NewInterviewWSHandler(ctx, rdb, handler.InterviewServices{
			Questions:   questionService,
			Submissions: submissionService,
			Progress:    progressService,
			Strikes:     strikeService,
		}, interviewCfg, scorer, log, cfg.AllowedOrigins),
		Score:    handler.NewScoreHandler(scorer),
		Progress: handler.NewProgressHandler(progressService, submissionService, log),
		System:   handler.NewSystemHandler(database.Pinger{DB: pool, Redis: rdb}, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	for _, w := range []interface{ Start(context.Context) }{
		worker.NewStrikeWorker(pool, rdb, log),
		worker.NewAttemptWorker(pool, rdb, log),
		worker.NewProgressWorker(pool, rdb, log),
	} {
		workers.Add(1)
		go func() {
			defer workers.Done()
			w.Start(workerCtx)
		}()
	}

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Question pools are loaded before accepting traffic so the first
	// burst of sessions does not stampede Postgres.
	if err := questionService.Prewarm(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg, log)

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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer shutdownCancel()

	// 1. Stop accepting new HTTP requests.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Close live interview streams. Hijacked connections are not tracked
	// by Shutdown; cancelling ctx ends every session controller. Streams
	// return only after their finalized submissions are delivered, so wait
	// for them before the workers, Postgres and Redis go away.
	cancel()
	if err := handlers.Interview.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Interview streams did not finish before shutdown deadline")
	}

	// 3. Stop background workers and wait for their final flush.
	workerCancel()
	drained := make(chan struct{})
	go func() {
		workers.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Workers did not drain before shutdown deadline")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

package main

import (
	"context"
	"flag"
	"time"

	"github.com/stemsi/prepwise-backend/internal/config"
	"github.com/stemsi/prepwise-backend/internal/database"
	"github.com/stemsi/prepwise-backend/internal/logger"
	"github.com/stemsi/prepwise-backend/internal/repository"
	"github.com/stemsi/prepwise-backend/internal/service"
)

func main() {
	file := flag.String("file", "config/questions.yaml", "question bank YAML file")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	bank, err := config.LoadQuestionBank(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("Invalid question bank")
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	questionRepo := repository.NewQuestionRepository(pool)
	inserted, err := questionRepo.BulkInsert(ctx, bank.Questions)
	if err != nil {
		log.Fatal().Err(err).Int("inserted", inserted).Msg("Seed failed")
	}
	log.Info().
		Int("inserted", inserted).
		Int("skipped", len(bank.Questions)-inserted).
		Msg("Questions seeded")

	if inserted == 0 {
		return
	}

	// Running servers would keep serving the old pools until TTL; drop them.
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, cached question pools not invalidated")
		return
	}
	defer rdb.Close()

	interviewCfg, err := config.LoadInterview(cfg.InterviewConfigPath)
	if err != nil {
		log.Warn().Err(err).Msg("Invalid interview config, using defaults for cache invalidation")
		interviewCfg = config.DefaultInterview()
	}
	questionService := service.NewQuestionService(questionRepo, rdb, interviewCfg, log)
	for category := range bank.Counts() {
		if err := questionService.Invalidate(ctx, category); err != nil {
			log.Warn().Err(err).Str("category", string(category)).Msg("Failed to invalidate question pool")
		}
	}
	log.Info().Msg("Cached question pools invalidated")
}


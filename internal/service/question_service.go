package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepwise-backend/internal/config"
	"github.com/stemsi/prepwise-backend/internal/interview"
	"github.com/stemsi/prepwise-backend/internal/model"
)

// QuestionStore is the persistent question bank.
type QuestionStore interface {
	ListByCategory(ctx context.Context, category model.QuestionCategory) ([]model.InterviewQuestion, error)
}

// QuestionService draws the question set for each session. Whole category
// pools are cached in Redis so starting a session never touches Postgres on
// the hot path.
type QuestionService struct {
	store QuestionStore
	rdb   *redis.Client
	cfg   *config.InterviewConfig
	log   zerolog.Logger

	shuffle func(n int, swap func(i, j int))
}

func NewQuestionService(store QuestionStore, rdb *redis.Client, cfg *config.InterviewConfig, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		store:   store,
		rdb:     rdb,
		cfg:     cfg,
		log:     log.With().Str("component", "question_service").Logger(),
		shuffle: rand.Shuffle,
	}
}

// FetchQuestions samples the configured mix for kind. Categories are drawn
// in mix order, so a mock interview opens with its technical block.
func (s *QuestionService) FetchQuestions(ctx context.Context, kind model.InterviewKind) ([]model.InterviewQuestion, error) {
	kc, ok := s.cfg.Kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown interview kind %q", kind)
	}

	questions := make([]model.InterviewQuestion, 0, kc.TotalQuestions())
	for _, mix := range kc.Mix {
		pool, err := s.pool(ctx, mix.Category)
		if err != nil {
			return nil, fmt.Errorf("load %s questions: %w", mix.Category, err)
		}
		questions = append(questions, s.sample(pool, mix.Count)...)
	}

	if len(questions) == 0 {
		return nil, interview.ErrNoQuestions
	}
	return questions, nil
}

// Prewarm loads every configured category into Redis. Called once at boot.
func (s *QuestionService) Prewarm(ctx context.Context) error {
	seen := make(map[model.QuestionCategory]bool)
	for _, kc := range s.cfg.Kinds {
		for _, mix := range kc.Mix {
			if seen[mix.Category] {
				continue
			}
			seen[mix.Category] = true

			pool, err := s.warm(ctx, mix.Category)
			if err != nil {
				return fmt.Errorf("prewarm %s: %w", mix.Category, err)
			}
			s.log.Info().Str("category", string(mix.Category)).Int("count", len(pool)).Msg("Question pool cached")
		}
	}
	return nil
}

// Invalidate drops a cached pool, e.g. after seeding new questions.
func (s *QuestionService) Invalidate(ctx context.Context, category model.QuestionCategory) error {
	return s.rdb.Del(ctx, config.CacheKey.QuestionPoolKey(string(category))).Err()
}

// pool returns the cached pool for category, reloading it from Postgres on a
// miss. A Redis outage degrades to reading Postgres directly.
func (s *QuestionService) pool(ctx context.Context, category model.QuestionCategory) ([]model.InterviewQuestion, error) {
	key := config.CacheKey.QuestionPoolKey(string(category))

	data, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var pool []model.InterviewQuestion
		if err := json.Unmarshal(data, &pool); err == nil {
			return pool, nil
		}
		s.log.Warn().Str("key", key).Msg("Corrupt question pool in cache, reloading")
	case errors.Is(err, redis.Nil):
		s.log.Debug().Str("key", key).Msg("Question pool cache miss")
	default:
		s.log.Warn().Err(err).Str("key", key).Msg("Redis unavailable, reading questions from database")
		return s.store.ListByCategory(ctx, category)
	}

	return s.warm(ctx, category)
}

func (s *QuestionService) warm(ctx context.Context, category model.QuestionCategory) ([]model.InterviewQuestion, error) {
	pool, err := s.store.ListByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return pool, nil
	}

	data, err := json.Marshal(pool)
	if err != nil {
		return nil, fmt.Errorf("marshal pool: %w", err)
	}
	ttl := s.cfg.QuestionCacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	if err := s.rdb.Set(ctx, config.CacheKey.QuestionPoolKey(string(category)), data, ttl).Err(); err != nil {
		s.log.Warn().Err(err).Str("category", string(category)).Msg("Failed to cache question pool")
	}
	return pool, nil
}

// sample returns up to n questions from pool in random order. pool is not
// modified.
func (s *QuestionService) sample(pool []model.InterviewQuestion, n int) []model.InterviewQuestion {
	picked := make([]model.InterviewQuestion, len(pool))
	copy(picked, pool)
	s.shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	if n < len(picked) {
		picked = picked[:n]
	}
	return picked
}

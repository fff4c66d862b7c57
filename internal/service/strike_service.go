package service

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/prepwise-backend/internal/config"
	"github.com/stemsi/prepwise-backend/internal/model"
)

// StrikeService hands integrity strikes to the strike worker.
type StrikeService struct {
	rdb *redis.Client
}

func NewStrikeService(rdb *redis.Client) *StrikeService {
	return &StrikeService{rdb: rdb}
}

func (s *StrikeService) ReportStrike(ctx context.Context, strike *model.IntegrityStrike) error {
	return enqueue(ctx, s.rdb, config.WorkerKey.PersistStrikesQueue, strike)
}

package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepwise-backend/internal/config"
	"github.com/stemsi/prepwise-backend/internal/response"
)

const healthTimeout = 2 * time.Second

// Pinger checks the backing stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler reports service health and worker backlog.
type SystemHandler struct {
	pinger    Pinger
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(pinger Pinger, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pinger:    pinger,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type queueDepths struct {
	Strikes  int64 `json:"strikes"`
	Attempts int64 `json:"attempts"`
	Progress int64 `json:"progress"`
}

type healthStatus struct {
	Status     string       `json:"status"`
	Uptime     string       `json:"uptime"`
	Goroutines int          `json:"goroutines"`
	Queues     *queueDepths `json:"queues,omitempty"`
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Health check failed")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrServiceOffline)
		return
	}

	response.Success(c, http.StatusOK, healthStatus{
		Status:     "ok",
		Uptime:     formatDuration(time.Since(h.startTime)),
		Goroutines: runtime.NumGoroutine(),
		Queues:     h.queues(ctx),
	})
}

// queues reads worker backlog in one pipelined round trip.
func (h *SystemHandler) queues(ctx context.Context) *queueDepths {
	if h.rdb == nil {
		return nil
	}
	pipe := h.rdb.Pipeline()
	strikes := pipe.LLen(ctx, config.WorkerKey.PersistStrikesQueue)
	attempts := pipe.LLen(ctx, config.WorkerKey.PersistAttemptsQueue)
	progress := pipe.LLen(ctx, config.WorkerKey.PersistProgressQueue)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil
	}
	return &queueDepths{Strikes: strikes.Val(), Attempts: attempts.Val(), Progress: progress.Val()}
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepwise-backend/internal/config"
	"github.com/stemsi/prepwise-backend/internal/interview"
	"github.com/stemsi/prepwise-backend/internal/middleware"
	"github.com/stemsi/prepwise-backend/internal/model"
	"github.com/stemsi/prepwise-backend/internal/response"
	ws "github.com/stemsi/prepwise-backend/internal/websocket"
)

// sessionLockTTL bounds how long a crashed server can hold a user's slot.
// The pinger refreshes the lock well before it lapses.
const sessionLockTTL = 2 * time.Minute

var (
	// Only the owner of the lock may refresh or release it.
	refreshLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// InterviewServices are the collaborators each session controller gets.
type InterviewServices struct {
	Questions   interview.QuestionSource
	Submissions interview.SubmissionSink
	Progress    interview.ProgressTracker
	Strikes     interview.StrikeReporter
}

// InterviewWSHandler runs one interview session per WebSocket connection.
type InterviewWSHandler struct {
	base     context.Context
	rdb      *redis.Client
	services InterviewServices
	cfg      *config.InterviewConfig
	scorer   *interview.Scorer
	log      zerolog.Logger
	upgrader websocket.Upgrader
	sessions sync.WaitGroup
}

// NewInterviewWSHandler creates the handler. Sessions are cancelled when base
// is done, which lets the server close every stream on shutdown.
func NewInterviewWSHandler(
	base context.Context,
	rdb *redis.Client,
	services InterviewServices,
	cfg *config.InterviewConfig,
	scorer *interview.Scorer,
	log zerolog.Logger,
	allowedOrigins []string,
) *InterviewWSHandler {
	return &InterviewWSHandler{
		base:     base,
		rdb:      rdb,
		services: services,
		cfg:      cfg,
		scorer:   scorer,
		log:      log.With().Str("component", "interview_ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// InterviewStream godoc
// WS /ws/v1/interviews/:kind/stream
// Upgrades to WebSocket and drives a timed interview session.
func (h *InterviewWSHandler) InterviewStream(c *gin.Context) {
	defer h.track()()

	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	kind := model.InterviewKind(c.Param("kind"))
	kc, ok := h.cfg.Kinds[kind]
	if !kind.Valid() || !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidKind)
		return
	}

	// One live stream per user and kind.
	lockKey := config.CacheKey.UserActiveSessionKey(claims.UserID, string(kind))
	lockToken := uuid.NewString()
	acquired, err := h.rdb.SetNX(c.Request.Context(), lockKey, lockToken, sessionLockTTL).Result()
	if err != nil {
		h.log.Error().Err(err).Int("user_id", claims.UserID).Msg("Session lock unavailable")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrServiceOffline)
		return
	}
	if !acquired {
		response.Fail(c, http.StatusConflict, response.ErrSessionActive)
		return
	}
	defer h.releaseLock(lockKey, lockToken)

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.NewConn(raw)
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", claims.UserID).
		Str("kind", string(kind)).
		Logger()
	wsLog.Info().Msg("Candidate connected")

	ctx, cancel := context.WithCancel(h.base)
	defer cancel()

	settings := interview.Settings{
		Kind:             kind,
		QuestionSeconds:  kc.QuestionSeconds,
		IntegrityEnabled: kc.IntegrityEnabled,
		StrikeThreshold:  kc.StrikeThreshold,
		ScoreAnswers:     kc.ScoreAnswers,
	}
	ctrl := interview.NewController(claims.UserID, settings, h.scorer, interview.Deps{
		Questions:   h.services.Questions,
		Submissions: h.services.Submissions,
		Progress:    h.services.Progress,
		Strikes:     h.services.Strikes,
	}, wsLog)
	go ctrl.Run(ctx)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		var writeErr error
		// Keep draining after a failed write so the controller never blocks.
		for ev := range ctrl.Events() {
			if writeErr != nil {
				continue
			}
			if writeErr = conn.WriteTyped(ev); writeErr != nil {
				wsLog.Debug().Err(writeErr).Msg("Write failed, discarding further events")
			}
		}
	}()

	go h.keepAlive(ctx, conn, lockKey, lockToken, wsLog)

	for {
		req, err := conn.ReadRequest()
		if err != nil {
			var perr *ws.PayloadError
			if errors.As(err, &perr) {
				_ = conn.WriteError(string(response.ErrInvalidPayload), perr.Error())
				continue
			}
			if ws.IsUnexpectedClose(err) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		if err := h.dispatch(ctx, conn, ctrl, req); err != nil {
			wsLog.Debug().Err(err).Str("action", string(req.Action)).Msg("Controller stopped")
			break
		}
	}

	cancel()
	<-writerDone
	wsLog.Info().Msg("Candidate disconnected")
}

// track counts a running stream until the returned func is called.
func (h *InterviewWSHandler) track() func() {
	h.sessions.Add(1)
	return h.sessions.Done
}

// Wait blocks until every stream has returned, which includes delivering
// any submission its session finalized, or until ctx is done.
func (h *InterviewWSHandler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch forwards one client action to the controller. Session-level
// rejections come back as events; only a stopped controller is an error.
func (h *InterviewWSHandler) dispatch(ctx context.Context, conn *ws.Conn, ctrl *interview.Controller, req *ws.Request) error {
	switch req.Action {
	case ws.ActionStart:
		return ctrl.Start(ctx)
	case ws.ActionDraft:
		return ctrl.SetDraft(ctx, req.Index, req.Text)
	case ws.ActionTranscript:
		return ctrl.AppendTranscript(ctx, req.Index, req.Text)
	case ws.ActionAnswer:
		return ctrl.Submit(ctx, req.Index, req.Text)
	case ws.ActionFocusLost:
		return ctrl.FocusLost(ctx)
	case ws.ActionCancel:
		return ctrl.Cancel(ctx)
	case ws.ActionPing:
		_ = conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
		return nil
	default:
		_ = conn.WriteError(string(response.ErrUnknownAction), "unknown action: "+string(req.Action))
		return nil
	}
}

// keepAlive pings the client and refreshes the session lock until ctx ends,
// then closes conn to unblock the read loop during server shutdown.
func (h *InterviewWSHandler) keepAlive(ctx context.Context, conn *ws.Conn, lockKey, lockToken string, log zerolog.Logger) {
	ticker := time.NewTicker(ws.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return
		case <-ticker.C:
			if err := conn.Ping(); err != nil {
				log.Debug().Err(err).Msg("Ping failed")
			}
			err := refreshLockScript.Run(ctx, h.rdb, []string{lockKey}, lockToken, sessionLockTTL.Milliseconds()).Err()
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Warn().Err(err).Msg("Failed to refresh session lock")
			}
		}
	}
}

func (h *InterviewWSHandler) releaseLock(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := releaseLockScript.Run(ctx, h.rdb, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		h.log.Warn().Err(err).Str("key", key).Msg("Failed to release session lock")
	}
}

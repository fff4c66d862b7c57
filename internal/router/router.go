package router

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepwise-backend/internal/config"
	"github.com/stemsi/prepwise-backend/internal/handler"
	"github.com/stemsi/prepwise-backend/internal/middleware"
	"github.com/stemsi/prepwise-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Interview *handler.InterviewWSHandler
	Score     *handler.ScoreHandler
	Progress  *handler.ProgressHandler
	System    *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background middleware state such as the rate limiter sweep.
func SetupRouter(
	ctx context.Context,
	auth middleware.TokenValidator,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request ID first so the access log can carry it.
	router.Use(response.RequestIDMiddleware())
	router.Use(response.AccessLog(log))

	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		Quality:   middleware.DefaultBrotliConfig.Quality,
		MinLength: middleware.DefaultBrotliConfig.MinLength,
		Skipper: func(c *gin.Context) bool {
			return c.Request.URL.Path == "/health"
		},
	}))

	router.GET("/health", handlers.System.Health)

	// ─── 1. HR Practice (JWT, Rate Limited) ────────────────────────────
	scoreLimiter := middleware.NewRateLimiter(ctx, cfg.ScoreRateLimit, time.Minute)
	hr := router.Group("/api/v1/hr")
	hr.Use(middleware.RequireUserJWT(auth), scoreLimiter.Middleware())
	{
		hr.POST("/score", handlers.Score.ScoreTranscript)
	}

	// ─── 2. Candidate Self-Service (JWT, never cached) ─────────────────
	me := router.Group("/api/v1/me")
	me.Use(middleware.RequireUserJWT(auth), middleware.NoStore())
	{
		me.GET("/progress", handlers.Progress.GetProgress)
		me.GET("/submissions", handlers.Progress.ListSubmissions)
	}

	// ─── 3. WebSocket Group (Query Token Auth) ─────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireUserWSAuth(auth))
	{
		ws.GET("/interviews/:kind/stream", handlers.Interview.InterviewStream)
	}

	return router
}

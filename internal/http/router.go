// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging, panic recovery, metrics, CORS,
// security headers, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-habit-backend/internal/config"
	"github.com/tbourn/go-habit-backend/internal/domain"
	"github.com/tbourn/go-habit-backend/internal/http/handlers"
	"github.com/tbourn/go-habit-backend/internal/http/middleware"
	"github.com/tbourn/go-habit-backend/internal/repo"
	"github.com/tbourn/go-habit-backend/internal/scheduler"
	"github.com/tbourn/go-habit-backend/internal/services"
)

// routineRepoShim adapts the repository free functions to the
// services.RoutineRepo interface expected by the RoutineService. This keeps
// services decoupled from the concrete repo package while reusing existing
// functions.
type routineRepoShim struct{}

// CreateRoutine proxies repo.CreateRoutine.
func (routineRepoShim) CreateRoutine(ctx context.Context, db *gorm.DB, r *domain.Routine) error {
	return repo.CreateRoutine(ctx, db, r)
}

// ListRoutines proxies repo.ListRoutines.
func (routineRepoShim) ListRoutines(ctx context.Context, db *gorm.DB, userID string) ([]domain.Routine, error) {
	return repo.ListRoutines(ctx, db, userID)
}

// GetRoutine proxies repo.GetRoutine.
func (routineRepoShim) GetRoutine(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Routine, error) {
	return repo.GetRoutine(ctx, db, id, userID)
}

// SaveRoutine proxies repo.SaveRoutine.
func (routineRepoShim) SaveRoutine(ctx context.Context, db *gorm.DB, r *domain.Routine) error {
	return repo.SaveRoutine(ctx, db, r)
}

// DeleteRoutine proxies repo.DeleteRoutine.
func (routineRepoShim) DeleteRoutine(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteRoutine(ctx, db, id, userID)
}

// CountRoutines proxies repo.CountRoutines (pagination support).
func (routineRepoShim) CountRoutines(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountRoutines(ctx, db, userID)
}

// ListRoutinesPage proxies repo.ListRoutinesPage (pagination support).
func (routineRepoShim) ListRoutinesPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Routine, error) {
	return repo.ListRoutinesPage(ctx, db, userID, offset, limit)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), compression and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the versioned public API under /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Structured request logging
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Response compression
//  7. Metrics
//  8. Rate limiter (per user/IP)
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured request logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 9) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs (optional)
	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db
	eventSvc := &services.EventService{DB: db}
	streakSvc := &services.StreakService{DB: db, MaxRetries: cfg.Cron.StreakMaxRetries}
	routineSvc := services.NewRoutineService(db, routineRepoShim{})
	checkinSvc := &services.CheckinService{DB: db, Streaks: streakSvc, Events: eventSvc}
	analyticsSvc := &services.AnalyticsService{DB: db}
	gen := &scheduler.Generator{DB: db, Events: eventSvc}

	// Config validation already vetted the zone name; a load failure here
	// only happens with a broken tzdata install, so fall back to UTC.
	loc, err := time.LoadLocation(cfg.Cron.Timezone)
	if err != nil {
		loc = time.UTC
	}

	h := handlers.New(routineSvc, checkinSvc, streakSvc, analyticsSvc, gen, loc)

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Routines
		api.POST("/routines", h.CreateRoutine)
		api.GET("/routines", h.ListRoutines)
		api.GET("/routines/:id", h.GetRoutine)
		api.PATCH("/routines/:id", h.UpdateRoutine)
		api.DELETE("/routines/:id", h.DeleteRoutine)

		// Check-ins
		api.GET("/checkins", h.ListCheckins)
		api.GET("/routines/:id/checkins", h.ListRoutineCheckins)
		api.POST("/routines/:id/checkins", h.CreateCheckin)
		api.POST("/checkins/:id/done", h.MarkCheckinDone)
		api.DELETE("/checkins/:id", h.DeleteCheckin)

		// Streaks
		api.GET("/routines/:id/streak", h.GetStreak)
		api.GET("/streaks", h.ListStreaks)

		// Analytics
		api.GET("/analytics/summary", h.GetAnalyticsSummary)

		// Admin
		api.POST("/admin/generate", h.TriggerGenerate)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

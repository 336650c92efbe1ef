// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/smm-pipeline/internal/config"
	"github.com/tbourn/smm-pipeline/internal/http/handlers"
	"github.com/tbourn/smm-pipeline/internal/http/middleware"
	"github.com/tbourn/smm-pipeline/internal/services"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// Deps are the process-level resources the router binds to.
type Deps struct {
	DB *gorm.DB

	// Redis, when set, backs the rate limiter so every replica shares one
	// budget per client. Nil keeps the in-process token buckets.
	Redis redis.Cmdable

	// Version is reported by GET /.
	Version string
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything (when enabled)
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs, PII scrubbed when LOG_REDACT is on
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per client IP, bypass on replay)
//  9. Gzip, CORS and security headers
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	db := d.DB

	// 1) Trace all HTTP requests
	if cfg.OTEL.Enabled {
		r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	}

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging
	if cfg.LogRedact {
		r.Use(middleware.RedactingLogger(middleware.RedactOptions{
			MaskHeaders: []string{"X-API-Key"},
		}))
	} else {
		r.Use(middleware.Logger())
	}

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(maxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics("/metrics"))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Idempotency validation (before rate limiting)
	idem := services.NewIdempotencyService(db)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
			Scope:  handlers.IdempotencyScope,
		},
		idem.Seen,
	))

	// 8) Per-client rate limiter
	var limiter middleware.Limiter
	if d.Redis != nil {
		limiter = middleware.NewRedisLimiter(d.Redis, cfg.RateLimit.Burst, time.Second)
	} else {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	r.Use(middleware.RateLimit(limiter, middleware.KeyByClientIP()))

	// 9) Compression, CORS posture and security headers
	if cfg.GzipEnabled {
		r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))
	}
	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins)...)
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

	// Service info and liveness
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": cfg.OTEL.ServiceName, "version": d.Version, "status": "running"})
	})
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← db
	h := handlers.New(handlers.Deps{
		Items:          services.NewItemService(db),
		Feedback:       services.NewFeedbackService(db),
		Decisions:      services.NewDecisionService(db),
		Learning:       services.NewLearningService(db),
		Prompts:        services.NewPromptService(db),
		Agent:          services.NewAgentService(db),
		Idempotency:    idem,
		IdempotencyTTL: cfg.IdempotencyTTL,
	})

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath) // e.g. "/api"
	{
		// Content items
		items := api.Group("/items")
		items.POST("", h.CreateItem)
		items.GET("", h.ListItems)
		items.GET("/search", h.SearchItems)
		items.GET("/stats/by-status", h.ItemStatsByStatus)
		items.GET("/stats/by-platform", h.ItemStatsByPlatform)
		items.GET("/:id", h.GetItem)
		items.PATCH("/:id", h.PatchItem)
		items.DELETE("/:id", h.DeleteItem)
		items.POST("/:id/approve", h.ApproveItem)
		items.POST("/:id/reject", h.RejectItem)
		items.POST("/:id/submit", h.SubmitItem)
		items.POST("/:id/publish", h.PublishItem)

		// Feedback
		items.POST("/:id/feedback", h.PostFeedback)
		items.GET("/:id/feedback", h.ListItemFeedback)
		api.GET("/feedback/recent", h.RecentFeedback)
		api.GET("/feedback/stats", h.FeedbackStats)

		// Agent
		agent := api.Group("/agent")
		agent.GET("/status", h.AgentStatus)
		agent.GET("/health", h.AgentHealth)
		agent.GET("/learning/insights", h.LearningInsights)
		agent.POST("/learning/events", h.PostLearningEvent)
		agent.GET("/learning/events", h.ListLearningEvents)
		agent.POST("/rollback", h.Rollback)
		agent.POST("/decisions", h.PostDecision)
		agent.GET("/decisions/recent", h.RecentDecisions)

		// Prompt registry
		prompt := api.Group("/prompt")
		prompt.POST("/create", h.CreatePrompt)
		prompt.POST("/activate/:version", h.ActivatePrompt)
		prompt.GET("/versions", h.ListPrompts)
	}
}

var (
	corsMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "If-None-Match", middleware.HeaderRequestID, middleware.HeaderIdempotencyKey}
	corsExpose  = []string{middleware.HeaderRequestID, "ETag", middleware.HeaderIdempotencyReplayed, "Content-Length"}
)

// corsMiddleware allows every origin when allowed is empty and otherwise
// echoes allow-listed origins.
func corsMiddleware(allowed []string) []gin.HandlerFunc {
	if len(allowed) == 0 {
		return []gin.HandlerFunc{
			// Force ACAO: * even for requests without an Origin header.
			func(c *gin.Context) {
				c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
				c.Next()
			},
			cors.New(cors.Config{
				AllowAllOrigins:  true,
				AllowMethods:     corsMethods,
				AllowHeaders:     corsHeaders,
				ExposeHeaders:    corsExpose,
				AllowCredentials: false, // must remain false with AllowAllOrigins
				MaxAge:           12 * time.Hour,
			}),
		}
	}

	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return []gin.HandlerFunc{
		func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := set[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		},
		cors.New(cors.Config{
			AllowOrigins:     allowed,
			AllowMethods:     corsMethods,
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    corsExpose,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}),
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

// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, idempotency, and rate limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-bookshop-assistant/docs"
	"github.com/tbourn/go-bookshop-assistant/internal/config"
	"github.com/tbourn/go-bookshop-assistant/internal/http/handlers"
	"github.com/tbourn/go-bookshop-assistant/internal/http/middleware"
	"github.com/tbourn/go-bookshop-assistant/internal/intent"
	"github.com/tbourn/go-bookshop-assistant/internal/memory"
	"github.com/tbourn/go-bookshop-assistant/internal/repo"
	"github.com/tbourn/go-bookshop-assistant/internal/services"
	"github.com/tbourn/go-bookshop-assistant/internal/ws"
)

// wsPath is mounted at the root, outside the versioned API group.
const wsPath = "/ws/chat"

// RegisterRoutes attaches all middleware and HTTP endpoints to r and builds
// the service graph on db and clf. It returns the WebSocket hub when
// cfg.WSEnabled; the caller owns its Run loop.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before rate limiter to allow bypass on replay)
//  8. Rate limiter (per user/IP, bypass on replay)
//  9. CORS and Security headers
//  10. gzip (the WebSocket route is excluded)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, clf intent.Classifier, cfg config.Config) *ws.Hub {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.LogOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, userID, sessionID, key string, now time.Time) (bool, error) {
			_, err := repo.GetIdempotency(ctx, db, userID, sessionID, key, now)
			switch {
			case err == nil:
				return true, nil
			case errors.Is(err, repo.ErrNotFound):
				return false, nil
			default:
				return false, err
			}
		},
	))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	useCORS(r, cfg.CORS.AllowedOrigins)

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{wsPath, "/metrics"})))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← repo/db, classifier, session memory
	metrics := services.NewMetrics(prometheus.DefaultRegisterer)
	catalog := services.NewGormCatalog(db)
	orch := services.NewOrchestrator(clf, catalog, memory.NewLRUStore(cfg.Session.CacheSize, cfg.Session.TTL), metrics)

	chatSvc := services.NewChatService(db, orch)
	chatSvc.MaxContentRunes = cfg.MaxMessageRunes
	chatSvc.IdempotencyTTL = cfg.IdempotencyTTL

	actionSvc := services.NewActionService(db)
	couponSvc := services.NewCouponService(db, metrics)

	h := handlers.New(chatSvc, actionSvc, couponSvc, catalog, actionSvc.Cart)

	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var hub *ws.Hub
	if cfg.WSEnabled {
		hub = ws.NewHub(chatSvc, ws.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			Registerer:     prometheus.DefaultRegisterer,
		})
		r.GET(wsPath, hub.Serve)
	}

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		// Chat sessions
		api.POST("/chat/sessions", h.CreateSession)
		api.POST("/chat/sessions/:id/messages", h.PostMessage)
		api.GET("/chat/sessions/:id/turns", h.ListTurns)

		// Proposed cart actions
		api.POST("/chat/sessions/:id/actions/:actionId/confirm", h.ConfirmAction)
		api.POST("/chat/sessions/:id/actions/:actionId/cancel", h.CancelAction)

		// Coupons
		api.POST("/coupons", h.GrantCoupon)
		api.GET("/coupons/mine", h.ListMyCoupons)
		api.POST("/coupons/validate", h.ValidateCoupon)
		api.POST("/coupons/use", h.UseCoupon)
		api.GET("/coupons/eligible", h.ListEligibleCoupons)

		// Catalog and cart
		api.GET("/books/search", h.SearchBooks)
		api.GET("/books/trending", h.TrendingBooks)
		api.GET("/cart", h.GetCart)
	}

	return hub
}

// useCORS installs the CORS posture: allow all when no origins are
// configured, otherwise echo allowlisted origins.
func useCORS(r *gin.Engine, origins []string) {
	base := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-User-ID", "If-None-Match", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", "Idempotency-Replayed"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(origins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		base.AllowAllOrigins = true
		r.Use(cors.New(base))
		return
	}

	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
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
	base.AllowOrigins = origins
	r.Use(cors.New(base))
}

// limitBody caps the request body at maxBytes; larger bodies fail to read.
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

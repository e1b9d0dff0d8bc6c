// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, and the webhook gates.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Webhook authentication composed as an explicit, ordered gate list
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

	"github.com/tbourn/realty-dashboard/internal/broadcast"
	"github.com/tbourn/realty-dashboard/internal/config"
	"github.com/tbourn/realty-dashboard/internal/domain"
	"github.com/tbourn/realty-dashboard/internal/http/handlers"
	"github.com/tbourn/realty-dashboard/internal/http/middleware"
	"github.com/tbourn/realty-dashboard/internal/repo"
	"github.com/tbourn/realty-dashboard/internal/services"
	"github.com/tbourn/realty-dashboard/internal/webhooksig"
)

// apartmentRepoShim adapts the repository free functions to the
// services.ApartmentRepo interface expected by the ApartmentService.
type apartmentRepoShim struct{}

// UpsertApartment proxies repo.UpsertApartment.
func (apartmentRepoShim) UpsertApartment(ctx context.Context, db *gorm.DB, a *domain.Apartment) error {
	return repo.UpsertApartment(ctx, db, a)
}

// ListApartments proxies repo.ListApartments.
func (apartmentRepoShim) ListApartments(ctx context.Context, db *gorm.DB) ([]domain.Apartment, error) {
	return repo.ListApartments(ctx, db)
}

// DeleteApartment proxies repo.DeleteApartment.
func (apartmentRepoShim) DeleteApartment(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteApartment(ctx, db, id)
}

// DeleteAllApartments proxies repo.DeleteAllApartments.
func (apartmentRepoShim) DeleteAllApartments(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.DeleteAllApartments(ctx, db)
}

// Options carries the injectable pieces of RegisterRoutes that tests replace.
type Options struct {
	// Now is the clock used by the rate limiter and the signature gate.
	// nil means time.Now.
	Now func() time.Time
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and returns the application service so callers can reuse it.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with secret headers masked
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. gzip (never on the event stream)
//  8. CORS and Security headers
//
// The webhook route then runs its gates in a fixed order: IP filter, rate
// limit, signature. Validation happens in the handler.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, hub *broadcast.Hub, cfg config.Config, opts Options) *services.ApartmentService {
	r.HandleMethodNotAllowed = true
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	apiBase := cfg.APIBasePath
	streamPath := joinPath(apiBase, "/stream")

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(limitBody(cfg.MaxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics(streamPath))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Compression, except for the SSE stream which must flush per event
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{streamPath})))

	// 8) CORS posture
	corsHeaders := []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		webhooksig.HeaderSignature, webhooksig.HeaderTimestamp, middleware.HeaderAdminSecret,
	}
	if cfg.CORS.AllowAll || len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Retry-After"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     corsHeaders,
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      true,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db, hub
	svc := services.NewApartmentService(db, apartmentRepoShim{}, hub)
	h := handlers.New(svc, hub, cfg.StreamHeartbeat)

	// Webhook gates, evaluated in order; the first rejection wins.
	var gates []middleware.Gate
	if !cfg.Webhook.AllowAllIPs {
		gates = append(gates, middleware.IPFilter(cfg.Webhook.AllowedIPs))
	}
	limiter := middleware.NewSlidingWindowLimiter(middleware.RateLimitOptions{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
		Prune:  cfg.RateLimit.Prune,
		Now:    now,
	}, middleware.KeyByClientAddress())
	gates = append(gates, limiter.Gate(), middleware.Signature([]byte(cfg.Webhook.Secret), now))

	api := groupWithPrefix(r, apiBase)

	// The stream is long-lived and must not inherit the request timeout.
	api.GET("/stream", h.Stream)

	bounded := api.Group("", middleware.Timeout(cfg.RequestTimeout))
	{
		bounded.GET("/health", h.Health)
		bounded.GET("/apartments", h.ListApartments)

		// Webhook
		bounded.POST("/update-sheet", middleware.Gates(gates...), h.UpdateSheet)

		// Admin
		admin := bounded.Group("", middleware.AdminAuth(cfg.Webhook.AdminSecret))
		admin.DELETE("/apartments/:id", h.DeleteApartment)
		admin.DELETE("/apartments", h.DeleteAllApartments)
	}

	return svc
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error. A non-positive cap disables it.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
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

func joinPath(prefix, p string) string {
	if prefix == "" || prefix == "/" {
		return p
	}
	return prefix + p
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wokeornotsite/wokeornot-sub000/internal/domain"
	"github.com/wokeornotsite/wokeornot-sub000/internal/ratelimit"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/health"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/middleware"
)

const serviceName = "wokeornot"

// RouterConfig carries everything the router mounts.
type RouterConfig struct {
	Contents    ContentService
	Reviews     ReviewService
	Reactions   ReactionService
	Maintenance MaintenanceService

	Health *health.Handler
	Tokens middleware.TokenValidator

	// Nil limiters and throttle are disabled.
	ReviewLimiter   *ratelimit.Limiter
	ReactionLimiter *ratelimit.Limiter
	Throttle        *Throttle

	CORS       middleware.CORSConfig
	PprofCIDRs []string
	Logger     *slog.Logger
}

// NewRouter creates a chi router with all service routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing())
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	contents := NewContentHandler(cfg.Contents, logger)
	reviews := NewReviewHandler(cfg.Reviews, cfg.Reactions, logger)
	maintenance := NewMaintenanceHandler(cfg.Maintenance, logger)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Throttle != nil {
			r.Use(cfg.Throttle.Middleware)
		}
		r.Use(ContentTypeJSON)
		r.Use(middleware.Authenticate(cfg.Tokens))
		r.Use(middleware.RequestLogger(logger))

		r.With(middleware.CacheControl(5*time.Minute)).Get("/categories", contents.ListCategories)

		// Lazy creation from the catalog; {contentId} routes take anything
		// that does not look like kind/number.
		r.Get("/contents/{kind:[a-z]+}/{externalId:[0-9]+}", contents.EnsureContent)

		r.Route("/contents/{contentId}", func(r chi.Router) {
			r.Get("/", contents.GetContent)
			r.Get("/reviews", reviews.ListReviews)
			r.With(RateLimit(cfg.ReviewLimiter)).Post("/reviews", reviews.CreateReview)
		})

		r.Route("/reviews/{reviewId}", func(r chi.Router) {
			r.Get("/", reviews.GetReview)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Use(middleware.NoStore)
				r.Patch("/", reviews.UpdateReview)
				r.Delete("/", reviews.DeleteReview)
				r.With(RateLimit(cfg.ReactionLimiter)).Post("/reactions", reviews.React)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))
			r.Use(middleware.NoStore)

			r.Post("/contents", contents.CreateContent)
			r.Delete("/contents/{contentId}", contents.DeleteContent)
			r.Post("/contents/{contentId}/recompute", contents.RecomputeContent)

			r.Post("/maintenance/reviews/scan", maintenance.Scan)
			r.Post("/maintenance/reviews/purge", maintenance.Purge)
		})
	})

	return r
}

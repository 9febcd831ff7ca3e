package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wokeornotsite/wokeornot-sub000/internal/auth"
	"github.com/wokeornotsite/wokeornot-sub000/internal/catalog"
	"github.com/wokeornotsite/wokeornot-sub000/internal/config"
	"github.com/wokeornotsite/wokeornot-sub000/internal/event"
	handler "github.com/wokeornotsite/wokeornot-sub000/internal/handler/http"
	"github.com/wokeornotsite/wokeornot-sub000/internal/ratelimit"
	"github.com/wokeornotsite/wokeornot-sub000/internal/repository/postgres"
	"github.com/wokeornotsite/wokeornot-sub000/internal/service"
	"github.com/wokeornotsite/wokeornot-sub000/migrations"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/database"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/health"
	pkgkafka "github.com/wokeornotsite/wokeornot-sub000/pkg/kafka"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/middleware"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/tracing"
)

const (
	serviceName     = "wokeornot"
	rateLimitPrefix = "wokeornot:ratelimit:"
	tokenExpiry     = 24 * time.Hour
)

// App wires together all dependencies and runs the review service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	memoryStore    *ratelimit.MemoryStore
	throttle       *handler.Throttle
	tracerShutdown tracing.ShutdownFunc
	httpServer     *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	// Release whatever was opened if a later step fails.
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.tracerShutdown, err = tracing.InitTracer(ctx, cfg.Tracing(serviceName))
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// PostgreSQL.
	pgCfg := cfg.Postgres()
	a.pool, err = database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err = database.RunMigrations(ctx, a.pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, a.pool, serviceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}
	database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)

	// Rate limit store.
	var limitStore ratelimit.Store
	switch cfg.RateLimitBackend {
	case config.RateLimitBackendRedis:
		a.rdb, err = database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		limitStore = ratelimit.NewRedisStore(a.rdb, rateLimitPrefix)
	default:
		a.memoryStore = ratelimit.NewMemoryStore(time.Minute)
		limitStore = a.memoryStore
		logger.Warn("rate limits are held in process memory and are not shared between instances")
	}

	// Domain events.
	var publisher event.Publisher = event.NopPublisher{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = event.NewProducer(a.producer, logger)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	// Build the dependency graph.
	store := postgres.NewStore(a.pool)
	aggregator := service.NewAggregator(logger)
	tmdb := catalog.New(catalog.Config{
		BaseURL: cfg.TMDBBaseURL,
		APIKey:  cfg.TMDBAPIKey,
		Timeout: time.Duration(cfg.TMDBTimeoutSeconds) * time.Second,
	}, logger)

	contentService := service.NewContentService(store, tmdb, aggregator, publisher, logger)
	reviewService := service.NewReviewService(store, aggregator, publisher, logger, cfg.AllowGuestReviews)
	reactionService := service.NewReactionService(store, publisher, logger)
	maintenanceService := service.NewMaintenanceService(store, aggregator, logger, cfg.MaintenanceBatchSize, cfg.MaintenanceSampleSize)

	window := cfg.RateLimitWindow()
	reviewLimiter := ratelimit.New(ratelimit.Config{
		Name:   "reviews",
		Limit:  cfg.ReviewRateLimit,
		Window: window,
		Shadow: cfg.RateLimitShadow,
	}, limitStore, logger)
	reactionLimiter := ratelimit.New(ratelimit.Config{
		Name:   "reactions",
		Limit:  cfg.ReactionRateLimit,
		Window: window,
		Shadow: cfg.RateLimitShadow,
	}, limitStore, logger)
	a.throttle = handler.NewThrottle(cfg.ThrottleRPS, cfg.ThrottleBurst, cfg.RateLimitShadow, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return a.pool.Ping(ctx)
	})
	if a.rdb != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return a.rdb.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
	}

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		Contents:        contentService,
		Reviews:         reviewService,
		Reactions:       reactionService,
		Maintenance:     maintenanceService,
		Health:          healthHandler,
		Tokens:          tokenValidator(cfg, logger),
		ReviewLimiter:   reviewLimiter,
		ReactionLimiter: reactionLimiter,
		Throttle:        a.throttle,
		CORS:            middleware.DefaultCORSConfig(),
		PprofCIDRs:      cfg.PprofAllowedCIDRs,
		Logger:          logger,
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return a, nil
}

// tokenValidator verifies bearer tokens with the shared secret. Without a
// secret every token is rejected and only anonymous routes work.
func tokenValidator(cfg *config.Config, logger *slog.Logger) middleware.TokenValidator {
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set; authenticated routes are unavailable")
		return func(string) (*middleware.Claims, error) {
			return nil, errors.New("authentication is not configured")
		}
	}
	return auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, tokenExpiry).Validator()
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("rate_limit_backend", a.cfg.RateLimitBackend),
			slog.Bool("rate_limit_shadow", a.cfg.RateLimitShadow),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.close()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	a.close()
	a.logger.Info("application shutdown complete")
	return nil
}

// close releases every dependency that was opened. Safe on a partially
// built App.
func (a *App) close() {
	if a.throttle != nil {
		a.throttle.Close()
	}
	if a.memoryStore != nil {
		a.memoryStore.Close()
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.tracerShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
	}
}

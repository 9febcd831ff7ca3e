package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decision labels.
const (
	DecisionAllowed  = "allowed"
	DecisionBlocked  = "blocked"
	DecisionShadowed = "shadowed"
	DecisionError    = "error"
)

var decisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ratelimit_decisions_total",
	Help: "Rate limit decisions by limiter and outcome.",
}, []string{"limiter", "decision"})

// Config configures one named limiter.
type Config struct {
	Name   string
	Limit  int
	Window time.Duration
	// Shadow logs would-be blocks but lets every request through.
	Shadow bool
}

// Result describes one limiter decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
	// Shadowed is true when the request exceeded the limit but was let
	// through because the limiter runs in shadow mode.
	Shadowed bool
}

// Limiter is a fixed-window counter keyed by caller identity.
type Limiter struct {
	cfg     Config
	store   Store
	logger  *slog.Logger
	nowFunc func() time.Time
}

// New creates a Limiter over store.
func New(cfg Config, store Store, logger *slog.Logger) *Limiter {
	return &Limiter{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Name returns the limiter name.
func (l *Limiter) Name() string { return l.cfg.Name }

// Allow counts one request from identity. Store failures fail open.
func (l *Limiter) Allow(ctx context.Context, identity string) Result {
	count, resetAt, err := l.store.Increment(ctx, l.cfg.Name+":"+identity, l.cfg.Window)
	if err != nil {
		l.logger.ErrorContext(ctx, "rate limit store failed, allowing request",
			slog.String("limiter", l.cfg.Name),
			slog.String("error", err.Error()),
		)
		decisionsTotal.WithLabelValues(l.cfg.Name, DecisionError).Inc()
		return Result{
			Allowed:   true,
			Limit:     l.cfg.Limit,
			Remaining: l.cfg.Limit,
			ResetAt:   l.nowFunc().Add(l.cfg.Window),
		}
	}

	res := Result{
		Allowed:   true,
		Limit:     l.cfg.Limit,
		Remaining: max(l.cfg.Limit-count, 0),
		ResetAt:   resetAt,
	}
	if count <= l.cfg.Limit {
		decisionsTotal.WithLabelValues(l.cfg.Name, DecisionAllowed).Inc()
		return res
	}

	if l.cfg.Shadow {
		res.Shadowed = true
		l.logger.WarnContext(ctx, "rate limit exceeded in shadow mode",
			slog.String("limiter", l.cfg.Name),
			slog.String("identity", identity),
			slog.Int("count", count),
			slog.Int("limit", l.cfg.Limit),
		)
		decisionsTotal.WithLabelValues(l.cfg.Name, DecisionShadowed).Inc()
		return res
	}

	res.Allowed = false
	res.RetryAfter = max(resetAt.Sub(l.nowFunc()), 0)
	l.logger.WarnContext(ctx, "rate limit exceeded",
		slog.String("limiter", l.cfg.Name),
		slog.String("identity", identity),
	)
	decisionsTotal.WithLabelValues(l.cfg.Name, DecisionBlocked).Inc()
	return res
}

// Identity builds the identity key for a caller: the user id when
// authenticated, otherwise the client IP.
func Identity(userID, clientIP string) string {
	if userID != "" {
		return "user:" + userID
	}
	return "ip:" + clientIP
}

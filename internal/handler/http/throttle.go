package http

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wokeornotsite/wokeornot-sub000/pkg/middleware"
)

const throttleTTL = 3 * time.Minute

// visitor tracks a token bucket per client IP.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle is a coarse per-IP token bucket in front of every API route. It
// only protects this process; the named limiters handle the abuse-prone
// endpoints and overwrite its X-RateLimit-* headers on those routes.
type Throttle struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      int
	burst    int
	shadow   bool
	ttl      time.Duration
	nowFunc  func() time.Time
	logger   *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewThrottle creates a Throttle and starts its eviction loop. Call Close on
// shutdown. A non-positive rps disables throttling and returns nil. In
// shadow mode exhausted clients are logged but still served.
func NewThrottle(rps, burst int, shadow bool, logger *slog.Logger) *Throttle {
	if rps <= 0 {
		return nil
	}
	t := newThrottle(rps, burst, throttleTTL, logger)
	t.shadow = shadow
	go t.cleanupLoop()
	return t
}

func newThrottle(rps, burst int, ttl time.Duration, logger *slog.Logger) *Throttle {
	return &Throttle{
		visitors: make(map[string]*visitor),
		rps:      rps,
		burst:    burst,
		ttl:      ttl,
		nowFunc:  time.Now,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Close stops the eviction loop.
func (t *Throttle) Close() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// Middleware rejects requests from IPs that exhausted their bucket. Every
// response carries the bucket's X-RateLimit-* headers.
func (t *Throttle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := middleware.ClientIP(r)
		res := t.take(ip)
		setRateLimitHeaders(w.Header(), t.burst, res.remaining, res.resetAt)

		if !res.allowed {
			if t.shadow {
				t.logger.WarnContext(r.Context(), "request would be throttled (shadow mode)",
					slog.String("ip", ip),
					slog.String("path", r.URL.Path),
				)
				next.ServeHTTP(w, r)
				return
			}
			t.logger.WarnContext(r.Context(), "throttled request",
				slog.String("ip", ip),
				slog.String("path", r.URL.Path),
			)
			writeRateLimited(w, r, res.retryAfter)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// throttleResult is one bucket decision.
type throttleResult struct {
	allowed    bool
	remaining  int
	resetAt    time.Time // when the bucket is full again
	retryAfter time.Duration
}

func (t *Throttle) take(ip string) throttleResult {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()
	v, ok := t.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(t.rps), t.burst)}
		t.visitors[ip] = v
	}
	v.lastSeen = now

	res := throttleResult{allowed: v.limiter.AllowN(now, 1)}
	tokens := max(v.limiter.TokensAt(now), 0)
	perToken := float64(time.Second) / float64(t.rps)
	res.remaining = int(tokens)
	res.resetAt = now.Add(time.Duration((float64(t.burst) - tokens) * perToken))
	if !res.allowed {
		res.retryAfter = time.Duration((1 - tokens) * perToken)
	}
	return res
}

func (t *Throttle) cleanupLoop() {
	ticker := time.NewTicker(t.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.cleanup()
		case <-t.stop:
			return
		}
	}
}

// cleanup evicts visitors idle for longer than the TTL.
func (t *Throttle) cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.nowFunc()
	for ip, v := range t.visitors {
		if now.Sub(v.lastSeen) > t.ttl {
			delete(t.visitors, ip)
		}
	}
}

func (t *Throttle) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.visitors)
}

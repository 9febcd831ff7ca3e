package http

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/wokeornotsite/wokeornot-sub000/internal/ratelimit"
	apperrors "github.com/wokeornotsite/wokeornot-sub000/pkg/errors"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/httputil"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/middleware"
)

// RateLimit counts each request against limiter, keyed by the authenticated
// user or else the client IP. It must be mounted after Authenticate. Every
// response carries the X-RateLimit-* headers; blocked requests get a 429
// with Retry-After. A nil limiter disables the check.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var userID string
			if c := middleware.ClaimsFromContext(r.Context()); c != nil {
				userID = c.UserID
			}
			res := limiter.Allow(r.Context(), ratelimit.Identity(userID, middleware.ClientIP(r)))

			setRateLimitHeaders(w.Header(), res.Limit, res.Remaining, res.ResetAt)
			if !res.Allowed {
				writeRateLimited(w, r, res.RetryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// setRateLimitHeaders writes limit, remaining and the reset time in epoch
// seconds, rounded up.
func setRateLimitHeaders(h http.Header, limit, remaining int, resetAt time.Time) {
	reset := resetAt.Unix()
	if resetAt.Nanosecond() > 0 {
		reset++
	}
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
}

// writeRateLimited sends a 429 with Retry-After in whole seconds, at least 1.
func writeRateLimited(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	retry := max(int(math.Ceil(retryAfter.Seconds())), 1)
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	httputil.WriteError(w, r, apperrors.RateLimited("too many requests, try again later"), nil)
}

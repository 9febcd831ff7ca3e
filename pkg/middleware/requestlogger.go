package middleware

import (
	"log/slog"
	"net/http"

	"github.com/wokeornotsite/wokeornot-sub000/pkg/logger"
)

// RequestLogger stores a request-scoped logger enriched with correlation_id,
// user_id, role, trace_id and span_id. Mount it after RequestLogging,
// Tracing and Authenticate so those fields are already in the context.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Package ratelimit implements a fixed-window request limiter over a
// swappable counter store.
package ratelimit

import (
	"context"
	"time"
)

// Store counts hits per key in fixed windows.
//
// Increment records one hit against key and returns the hit count of the
// current window and when that window ends. The first hit of a key, or the
// first hit after the previous window ended, opens a new window of length
// window.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
}

package port

import (
	"context"
	"time"
)

// TokenDenylist tracks revoked token identifiers until they would expire anyway.
type TokenDenylist interface {
	MarkRevoked(ctx context.Context, jti string, reason string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, string, error)
}

// AttemptWindow is the state of one sliding window after an Acquire call.
type AttemptWindow struct {
	Allowed bool
	Count   int
	Oldest  time.Time
}

// AttemptStore keeps sliding-window attempt logs for throttled endpoints.
type AttemptStore interface {
	// Acquire drops attempts older than window and records one at `at` only while
	// fewer than limit remain. The check and the write happen atomically.
	Acquire(ctx context.Context, key string, limit int, window time.Duration, at time.Time) (AttemptWindow, error)
	// Reset forgets every attempt recorded under key.
	Reset(ctx context.Context, key string) error
}

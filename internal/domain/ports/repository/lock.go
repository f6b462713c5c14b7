package repository

import (
	"context"
	"time"
)

// Locker is an advisory lock used to serialize webhook processing per payment
// id. The conditional order write remains the durable guard; the lock only
// prevents two near-simultaneous deliveries from both provisioning before
// either has committed.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// RateLimiter bounds how often a single user may trigger an operation.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

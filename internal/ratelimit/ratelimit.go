// Package ratelimit bounds review volume per App installation with a
// fixed-window counter over Redis.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result is the outcome of a limiter check.
type Result struct {
	Allowed   bool
	Remaining int
}

// Limiter answers whether one more review may be admitted for an
// installation. Fixed-window counting: a burst of up to twice the
// ceiling across a window boundary is accepted as a known imprecision.
// Storage errors fail open.
type Limiter interface {
	TryAcquire(ctx context.Context, installationID int64) Result
}

type redisLimiter struct {
	client  *redis.Client
	ceiling int
	window  time.Duration
	now     func() time.Time
	logger  *slog.Logger
}

// New creates a Redis-backed fixed-window Limiter.
func New(client *redis.Client, ceiling int, window time.Duration, logger *slog.Logger) Limiter {
	if ceiling <= 0 {
		ceiling = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &redisLimiter{
		client:  client,
		ceiling: ceiling,
		window:  window,
		now:     time.Now,
		logger:  logger,
	}
}

// WindowIndex buckets a timestamp into a fixed-size window.
func WindowIndex(t time.Time, window time.Duration) int64 {
	return t.UnixMilli() / window.Milliseconds()
}

func (l *redisLimiter) key(installationID int64) string {
	return fmt.Sprintf("ratelimit:%d:%d", installationID, WindowIndex(l.now(), l.window))
}

// TryAcquire increments the installation's counter for the current
// window and reports whether it is still under the ceiling. The
// increment-then-expire pair is not transactional; a small over- or
// under-count under concurrency is acceptable for an advisory limiter.
func (l *redisLimiter) TryAcquire(ctx context.Context, installationID int64) Result {
	key := l.key(installationID)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.logger.Warn("rate limit check failed, allowing request",
			"installation_id", installationID, "error", err)
		return Result{Allowed: true, Remaining: l.ceiling}
	}

	if count == 1 {
		// First hit in this window owns setting the expiry.
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.logger.Warn("failed to set rate limit window expiry", "key", key, "error", err)
		}
	}

	remaining := l.ceiling - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: int(count) <= l.ceiling, Remaining: remaining}
}

// Package dedup suppresses reprocessing of webhook events that were
// already handled, keyed by delivery id.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator records processed events and answers whether an event
// was seen before. Storage errors fail open: a review must never be
// silently lost because the key-value store is down.
type Deduplicator interface {
	IsDuplicate(ctx context.Context, repo string, pr int, eventID string) bool
	MarkProcessed(ctx context.Context, repo string, pr int, eventID string) error
}

type redisDeduplicator struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New creates a Redis-backed Deduplicator with the given retention
// window.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) Deduplicator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisDeduplicator{client: client, ttl: ttl, logger: logger}
}

func dedupKey(repo string, pr int, eventID string) string {
	return fmt.Sprintf("dedup:%s:%d:%s", repo, pr, eventID)
}

// IsDuplicate reports whether the event was already marked processed.
func (d *redisDeduplicator) IsDuplicate(ctx context.Context, repo string, pr int, eventID string) bool {
	exists, err := d.client.Exists(ctx, dedupKey(repo, pr, eventID)).Result()
	if err != nil {
		d.logger.Warn("dedup check failed, treating event as new",
			"repo", repo, "pr", pr, "event_id", eventID, "error", err)
		return false
	}
	return exists > 0
}

// MarkProcessed records the event with the retention TTL.
func (d *redisDeduplicator) MarkProcessed(ctx context.Context, repo string, pr int, eventID string) error {
	if err := d.client.Set(ctx, dedupKey(repo, pr, eventID), time.Now().UTC().Format(time.RFC3339), d.ttl).Err(); err != nil {
		d.logger.Warn("failed to mark event processed",
			"repo", repo, "pr", pr, "event_id", eventID, "error", err)
		return err
	}
	return nil
}

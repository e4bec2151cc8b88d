// Package queue is the durable transport between webhook ingestion and
// review processing: a Redis stream with a consumer group, per-message
// acknowledgement, retries, and a dead-letter stream.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/revware/pr-sentinel/internal/core"
)

// Producer enqueues review tasks.
type Producer interface {
	Enqueue(ctx context.Context, task *core.ReviewTask) error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

// NewProducer creates a Producer writing to the given stream.
func NewProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{client: client, stream: stream, logger: logger}
}

func (p *redisProducer) Enqueue(ctx context.Context, task *core.ReviewTask) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("refusing to enqueue invalid task: %w", err)
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: taskValues(task, 1),
	}).Err(); err != nil {
		return fmt.Errorf("enqueue review task: %w", err)
	}

	p.logger.Info("enqueued review task",
		"repo", task.RepoFullName,
		"pr", task.PRNumber,
		"event_id", task.EventID,
		"action", task.Action,
	)
	return nil
}

func taskValues(task *core.ReviewTask, attempt int) map[string]any {
	if attempt <= 0 {
		attempt = 1
	}
	return map[string]any{
		"repo_full_name":  task.RepoFullName,
		"pr_number":       task.PRNumber,
		"installation_id": task.InstallationID,
		"action":          task.Action,
		"head_sha":        task.HeadSHA,
		"event_id":        task.EventID,
		"enqueued_at":     task.EnqueuedAt.UTC().Format(time.RFC3339Nano),
		"attempt":         attempt,
	}
}

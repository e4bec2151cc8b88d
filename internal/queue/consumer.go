package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/revware/pr-sentinel/internal/core"
)

// ConsumerConfig tunes the stream consumer.
type ConsumerConfig struct {
	Stream         string        // stream the gateway writes to
	Group          string        // consumer group name
	Consumer       string        // this consumer's name within the group
	DLQStream      string        // destination for tasks past the retry cap
	BatchSize      int64         // messages fetched per read
	Block          time.Duration // how long a read blocks waiting for messages
	MaxAttempts    int           // retry cap before dead-lettering
	ReclaimMinIdle time.Duration // unacked age before a message may be taken over
}

// Message is one delivered task plus its transport envelope.
type Message struct {
	ID      string
	Task    core.ReviewTask
	Attempt int
}

// Consumer reads tasks from the stream with explicit acknowledgement.
// The consumer group guarantees a message is delivered to one consumer
// at a time; unacked messages are redelivered, giving at-least-once
// semantics.
type Consumer struct {
	client *redis.Client
	cfg    ConsumerConfig
	logger *slog.Logger
}

// NewConsumer creates the consumer and ensures its group exists.
// The group starts at "0" rather than "$" so messages enqueued before a
// restart are not lost.
func NewConsumer(client *redis.Client, cfg ConsumerConfig, logger *slog.Logger) (*Consumer, error) {
	if cfg.ReclaimMinIdle <= 0 {
		cfg.ReclaimMinIdle = 10 * time.Minute
	}
	c := &Consumer{client: client, cfg: cfg, logger: logger}

	err := client.XGroupCreateMkStream(context.Background(), cfg.Stream, cfg.Group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}
	return c, nil
}

// Read fetches the next batch of messages. Unparsable messages are
// acked and dropped so a poison entry cannot wedge the stream.
func (c *Consumer) Read(ctx context.Context) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.BatchSize,
		Block:    c.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	var messages []Message
	for _, stream := range streams {
		for _, raw := range stream.Messages {
			msg, parseErr := ParseMessage(raw)
			if parseErr != nil {
				c.logger.Error("failed to parse queue message, dropping",
					"error", parseErr, "message_id", raw.ID, "stream", c.cfg.Stream)
				_ = c.Ack(ctx, Message{ID: raw.ID})
				continue
			}
			messages = append(messages, msg)
		}
	}
	return messages, nil
}

// Reclaim takes over messages that another consumer read but never
// settled, such as after a worker crash or a shutdown mid-task. The
// group never redelivers a pending entry on its own, so without this
// sweep a delivered-but-unacked task would sit in the pending list
// forever. Unparsable entries are acked and dropped, as in Read.
func (c *Consumer) Reclaim(ctx context.Context) ([]Message, error) {
	raws, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		MinIdle:  c.cfg.ReclaimMinIdle,
		Start:    "0-0",
		Count:    c.cfg.BatchSize,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("reclaiming pending messages: %w", err)
	}

	var messages []Message
	for _, raw := range raws {
		msg, parseErr := ParseMessage(raw)
		if parseErr != nil {
			c.logger.Error("failed to parse reclaimed message, dropping",
				"error", parseErr, "message_id", raw.ID, "stream", c.cfg.Stream)
			_ = c.Ack(ctx, Message{ID: raw.ID})
			continue
		}
		c.logger.Warn("reclaimed stale pending task",
			"message_id", msg.ID,
			"repo", msg.Task.RepoFullName,
			"pr", msg.Task.PRNumber,
			"attempt", msg.Attempt,
		)
		messages = append(messages, msg)
	}
	return messages, nil
}

// Ack acknowledges a message so the group will not redeliver it.
func (c *Consumer) Ack(ctx context.Context, msg Message) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.cfg.Stream, err)
	}
	return nil
}

// Requeue re-adds the task with an incremented attempt counter, then
// acks the failed delivery. The replacement entry goes in first: a crash
// between the two steps leaves a duplicate rather than a lost task, and
// dedup plus the supersede protocol absorb duplicates.
func (c *Consumer) Requeue(ctx context.Context, msg Message, errMsg string) error {
	attempt := msg.Attempt + 1
	task := msg.Task
	task.RetryCount = attempt - 1

	values := taskValues(&task, attempt)
	if errMsg != "" {
		values["last_error"] = errMsg
	}

	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.Stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd requeue: %w", err)
	}

	if err := c.Ack(ctx, msg); err != nil {
		return fmt.Errorf("acking requeued message: %w", err)
	}

	c.logger.Info("task requeued for retry",
		"repo", msg.Task.RepoFullName,
		"pr", msg.Task.PRNumber,
		"next_attempt", attempt,
		"reason", errMsg,
	)
	return nil
}

// SendDLQ diverts the task to the dead-letter stream for manual
// inspection, then acks the message. Dead-letter first for the same
// reason Requeue adds first: a crash in between duplicates instead of
// losing.
func (c *Consumer) SendDLQ(ctx context.Context, msg Message, errMsg string) error {
	values := taskValues(&msg.Task, msg.Attempt)
	values["error"] = errMsg
	values["dead_lettered_at"] = time.Now().UTC().Format(time.RFC3339)

	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.DLQStream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd dlq (stream=%s): %w", c.cfg.DLQStream, err)
	}

	if err := c.Ack(ctx, msg); err != nil {
		return fmt.Errorf("acking dead-lettered message: %w", err)
	}

	c.logger.Error("task sent to dead-letter stream",
		"repo", msg.Task.RepoFullName,
		"pr", msg.Task.PRNumber,
		"attempts", msg.Attempt,
		"final_error", errMsg,
	)
	return nil
}

// MaxAttempts exposes the configured retry cap.
func (c *Consumer) MaxAttempts() int {
	return c.cfg.MaxAttempts
}

// ParseMessage decodes a raw stream entry into a Message.
func ParseMessage(raw redis.XMessage) (Message, error) {
	repo, err := stringField(raw.Values, "repo_full_name")
	if err != nil {
		return Message{}, err
	}
	eventID, err := stringField(raw.Values, "event_id")
	if err != nil {
		return Message{}, err
	}
	prNumber, err := intField(raw.Values, "pr_number")
	if err != nil {
		return Message{}, err
	}
	installationID, err := intField(raw.Values, "installation_id")
	if err != nil {
		return Message{}, err
	}

	attempt := 1
	if a, err := intField(raw.Values, "attempt"); err == nil && a > 0 {
		attempt = int(a)
	}

	var enqueuedAt time.Time
	if s, ok := raw.Values["enqueued_at"].(string); ok {
		enqueuedAt, _ = time.Parse(time.RFC3339Nano, s)
	}

	action, _ := raw.Values["action"].(string)
	headSHA, _ := raw.Values["head_sha"].(string)

	return Message{
		ID:      raw.ID,
		Attempt: attempt,
		Task: core.ReviewTask{
			RepoFullName:   repo,
			PRNumber:       int(prNumber),
			InstallationID: installationID,
			Action:         action,
			HeadSHA:        headSHA,
			EventID:        eventID,
			EnqueuedAt:     enqueuedAt,
			RetryCount:     attempt - 1,
		},
	}, nil
}

func stringField(values map[string]any, key string) (string, error) {
	s, ok := values[key].(string)
	if !ok || s == "" {
		return "", fmt.Errorf("message missing field %q", key)
	}
	return s, nil
}

func intField(values map[string]any, key string) (int64, error) {
	s, ok := values[key].(string)
	if !ok {
		return 0, fmt.Errorf("message missing field %q", key)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("message field %q is not a number: %w", key, err)
	}
	return n, nil
}

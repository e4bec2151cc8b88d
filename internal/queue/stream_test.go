package queue

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revware/pr-sentinel/internal/core"
)

const (
	testStream    = "review_tasks"
	testGroup     = "review_workers"
	testDLQStream = "review_tasks_dlq"
)

func newStreamClient(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newStreamConsumer(t *testing.T, client *redis.Client, name string) *Consumer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	consumer, err := NewConsumer(client, ConsumerConfig{
		Stream:         testStream,
		Group:          testGroup,
		Consumer:       name,
		DLQStream:      testDLQStream,
		BatchSize:      10,
		Block:          10 * time.Millisecond,
		MaxAttempts:    3,
		ReclaimMinIdle: time.Nanosecond,
	}, logger)
	require.NoError(t, err)
	return consumer
}

func streamTask() *core.ReviewTask {
	return &core.ReviewTask{
		RepoFullName:   "acme/widgets",
		PRNumber:       42,
		InstallationID: 999,
		Action:         core.ActionOpened,
		HeadSHA:        "abc1234",
		EventID:        "delivery-1",
		EnqueuedAt:     time.Now().UTC(),
	}
}

func TestEnqueueReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newStreamClient(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	producer := NewProducer(client, testStream, logger)
	consumer := newStreamConsumer(t, client, "worker-1")

	require.NoError(t, producer.Enqueue(ctx, streamTask()))

	msgs, err := consumer.Read(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "acme/widgets", msgs[0].Task.RepoFullName)
	assert.Equal(t, 42, msgs[0].Task.PRNumber)
	assert.Equal(t, 1, msgs[0].Attempt)
}

func TestReclaimRecoversUnsettledMessage(t *testing.T) {
	ctx := context.Background()
	client := newStreamClient(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	producer := NewProducer(client, testStream, logger)
	crashed := newStreamConsumer(t, client, "worker-1")
	survivor := newStreamConsumer(t, client, "worker-2")

	require.NoError(t, producer.Enqueue(ctx, streamTask()))

	// The first consumer takes delivery and dies without settling.
	msgs, err := crashed.Read(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	// A plain read never sees the pending entry again; only the
	// reclaim sweep can recover it.
	again, err := survivor.Read(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)

	time.Sleep(5 * time.Millisecond)
	reclaimed, err := survivor.Reclaim(ctx)
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, msgs[0].ID, reclaimed[0].ID)
	assert.Equal(t, "acme/widgets", reclaimed[0].Task.RepoFullName)

	require.NoError(t, survivor.Ack(ctx, reclaimed[0]))

	empty, err := survivor.Reclaim(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRequeueIncrementsAttempt(t *testing.T) {
	ctx := context.Background()
	client := newStreamClient(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	producer := NewProducer(client, testStream, logger)
	consumer := newStreamConsumer(t, client, "worker-1")

	require.NoError(t, producer.Enqueue(ctx, streamTask()))
	msgs, err := consumer.Read(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, consumer.Requeue(ctx, msgs[0], "backend timeout"))

	// The original delivery is settled, the replacement carries the
	// bumped attempt counter.
	retried, err := consumer.Read(ctx)
	require.NoError(t, err)
	require.Len(t, retried, 1)
	assert.Equal(t, 2, retried[0].Attempt)
	assert.Equal(t, 1, retried[0].Task.RetryCount)

	pending, err := client.XPending(ctx, testStream, testGroup).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count, "only the retried delivery should be pending")
}

func TestSendDLQDivertsTask(t *testing.T) {
	ctx := context.Background()
	client := newStreamClient(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	producer := NewProducer(client, testStream, logger)
	consumer := newStreamConsumer(t, client, "worker-1")

	require.NoError(t, producer.Enqueue(ctx, streamTask()))
	msgs, err := consumer.Read(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, consumer.SendDLQ(ctx, msgs[0], "model unavailable"))

	entries, err := client.XRange(ctx, testDLQStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "model unavailable", entries[0].Values["error"])
	assert.NotEmpty(t, entries[0].Values["dead_lettered_at"])

	pending, err := client.XPending(ctx, testStream, testGroup).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

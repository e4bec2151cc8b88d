package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/revware/pr-sentinel/internal/core"
	"github.com/revware/pr-sentinel/internal/queue"
)

// retryDelayUnit scales linearly with the attempt number, so a task on
// its second attempt waits twice as long as on its first.
const retryDelayUnit = 30 * time.Second

// reclaimInterval paces the sweep for pending messages whose consumer
// died before settling them.
const reclaimInterval = time.Minute

// WorkerPool runs a pool of goroutines that pull review tasks off the
// stream and hand them to the task handler. Each worker reads, runs,
// and settles (ack, requeue, or dead-letter) its own messages.
type WorkerPool struct {
	consumer   *queue.Consumer
	handler    core.TaskHandler
	maxWorkers int
	wg         sync.WaitGroup
	cancel     context.CancelFunc
	logger     *slog.Logger
}

// NewWorkerPool initializes a WorkerPool. If maxWorkers is 0 or
// negative, it defaults to 1.
func NewWorkerPool(consumer *queue.Consumer, handler core.TaskHandler, maxWorkers int, logger *slog.Logger) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &WorkerPool{
		consumer:   consumer,
		handler:    handler,
		maxWorkers: maxWorkers,
		logger:     logger,
	}
}

// Start launches the worker goroutines plus one reclaimer that sweeps
// up messages left pending by a crashed or restarted worker. It returns
// immediately; use Stop for a graceful shutdown.
func (p *WorkerPool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for i := range p.maxWorkers {
		p.wg.Add(1)
		go p.startWorker(ctx, i)
	}
	p.wg.Add(1)
	go p.startReclaimer(ctx)
}

// Stop cancels all workers and waits for in-flight tasks to finish.
func (p *WorkerPool) Stop() {
	p.logger.Info("stopping worker pool and waiting for jobs to finish")
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info("all review workers have finished")
}

func (p *WorkerPool) startWorker(ctx context.Context, workerID int) {
	defer p.wg.Done()
	p.logger.Info("starting review worker", "id", workerID)

	for {
		msgs, err := p.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("shutting down review worker", "id", workerID)
				return
			}
			p.logger.Error("failed to read from task stream", "worker_id", workerID, "error", err)
			if sleepCtx(ctx, time.Second) != nil {
				return
			}
			continue
		}

		for _, msg := range msgs {
			p.processMessage(ctx, workerID, msg)
		}
	}
}

// startReclaimer periodically takes over pending messages past the
// idle threshold and runs them through the normal settle policy. The
// consumer group never redelivers unacked entries by itself, so this
// loop is what makes delivery at-least-once across worker crashes.
func (p *WorkerPool) startReclaimer(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(reclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		msgs, err := p.consumer.Reclaim(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("failed to reclaim pending tasks", "error", err)
			continue
		}
		for _, msg := range msgs {
			p.processMessage(ctx, -1, msg)
		}
	}
}

// processMessage runs one task and settles its stream entry. Permanent
// failures are acked and dropped; transient ones are requeued with a
// linear backoff until the attempt budget runs out, then dead-lettered.
func (p *WorkerPool) processMessage(ctx context.Context, workerID int, msg queue.Message) {
	task := msg.Task
	p.logger.Info("worker processing task",
		"worker_id", workerID,
		"repo", task.RepoFullName,
		"pr", task.PRNumber,
		"attempt", msg.Attempt,
	)

	err := p.handler.Run(ctx, &task)
	if err == nil {
		if ackErr := p.consumer.Ack(ctx, msg); ackErr != nil {
			p.logger.Error("failed to ack completed task", "message_id", msg.ID, "error", ackErr)
		}
		return
	}

	if errors.Is(err, core.ErrReviewsDisabled) {
		p.logger.Info("reviews disabled for repository, dropping task",
			"repo", task.RepoFullName, "pr", task.PRNumber)
		p.settleWithAck(ctx, msg)
		return
	}

	if !core.Transient(err) {
		p.logger.Error("review task failed permanently",
			"repo", task.RepoFullName, "pr", task.PRNumber, "error", err)
		p.settleWithAck(ctx, msg)
		return
	}

	if msg.Attempt >= p.consumer.MaxAttempts() {
		p.logger.Error("review task exhausted retry budget, dead-lettering",
			"repo", task.RepoFullName,
			"pr", task.PRNumber,
			"attempt", msg.Attempt,
			"error", err,
		)
		if dlqErr := p.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			p.logger.Error("failed to dead-letter task", "message_id", msg.ID, "error", dlqErr)
		}
		return
	}

	delay := time.Duration(msg.Attempt) * retryDelayUnit
	p.logger.Warn("review task failed, requeueing",
		"repo", task.RepoFullName,
		"pr", task.PRNumber,
		"attempt", msg.Attempt,
		"retry_in", delay,
		"error", err,
	)
	if sleepCtx(ctx, delay) != nil {
		// Shutdown mid-backoff: leave the message pending so a
		// reclaimer picks it up after restart.
		return
	}
	if rqErr := p.consumer.Requeue(ctx, msg, err.Error()); rqErr != nil {
		p.logger.Error("failed to requeue task", "message_id", msg.ID, "error", rqErr)
	}
}

func (p *WorkerPool) settleWithAck(ctx context.Context, msg queue.Message) {
	if err := p.consumer.Ack(ctx, msg); err != nil {
		p.logger.Error("failed to ack task", "message_id", msg.ID, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

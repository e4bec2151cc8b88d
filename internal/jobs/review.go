// Package jobs defines background tasks such as code reviews.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/revware/pr-sentinel/internal/core"
	"github.com/revware/pr-sentinel/internal/github"
	"github.com/revware/pr-sentinel/internal/review"
	"github.com/revware/pr-sentinel/internal/storage"
)

// ReviewJob is a background job that reviews one pull request end to
// end: generate, format, publish, record.
type ReviewJob struct {
	clients   github.ClientFactory
	processor *review.Processor
	formatter *review.Formatter
	publisher *review.Publisher
	store     storage.Store
	logger    *slog.Logger
}

// NewReviewJob creates a new ReviewJob.
func NewReviewJob(clients github.ClientFactory, processor *review.Processor, formatter *review.Formatter, publisher *review.Publisher, store storage.Store, logger *slog.Logger) core.TaskHandler {
	if clients == nil {
		panic("client factory cannot be nil")
	}
	if processor == nil {
		panic("processor cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &ReviewJob{
		clients:   clients,
		processor: processor,
		formatter: formatter,
		publisher: publisher,
		store:     store,
		logger:    logger,
	}
}

// Run executes the review pipeline for a single task.
func (j *ReviewJob) Run(ctx context.Context, task *core.ReviewTask) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid review task: %w", err)
	}

	j.logger.Info("starting review job", "repo", task.RepoFullName, "pr", task.PRNumber, "attempt", task.RetryCount)

	gh, err := j.clients.ClientFor(ctx, task.InstallationID)
	if err != nil {
		return fmt.Errorf("failed to create installation client: %w", err)
	}

	result, err := j.processor.Process(ctx, task, gh)
	if err != nil {
		return fmt.Errorf("review generation failed for %s#%d: %w", task.RepoFullName, task.PRNumber, err)
	}

	inline, offDiff := j.placeComments(ctx, task, gh, result)
	formatted := j.formatter.Format(result, offDiff)

	verdict := result.Summary.Verdict
	if err := j.publisher.Publish(ctx, gh, task, verdict, formatted, inline); err != nil {
		return err
	}

	// The review is already live at this point. A history write failure
	// only costs the next run its iteration counter, so it must not
	// push the task back into the queue.
	if j.store != nil {
		record := &core.ReviewRecord{
			RepoFullName: task.RepoFullName,
			PRNumber:     task.PRNumber,
			HeadSHA:      task.HeadSHA,
			Verdict:      string(verdict),
			Body:         formatted.MainBody,
			Iteration:    result.Metadata.ReviewIteration,
		}
		if err := j.store.SaveReview(ctx, record); err != nil {
			j.logger.Error("failed to record published review",
				"repo", task.RepoFullName, "pr", task.PRNumber, "error", err)
		}
	}

	j.logger.Info("review job completed",
		"repo", task.RepoFullName,
		"pr", task.PRNumber,
		"verdict", verdict,
		"iteration", result.Metadata.ReviewIteration,
	)
	return nil
}

// placeComments decides which model findings can ride on the review as
// inline comments. When the changed-file list cannot be fetched the
// findings all stay inline rather than silently vanishing.
func (j *ReviewJob) placeComments(ctx context.Context, task *core.ReviewTask, gh github.Client, result *core.ReviewResult) ([]github.DraftReviewComment, []core.ReviewComment) {
	if len(result.Comments) == 0 {
		return nil, nil
	}

	files, err := gh.GetChangedFiles(ctx, task.RepoOwner(), task.RepoName(), task.PRNumber)
	if err != nil {
		j.logger.Warn("could not fetch changed files for comment placement, skipping line validation",
			"repo", task.RepoFullName, "pr", task.PRNumber, "error", err)
		return review.PartitionComments(result.Comments, nil)
	}

	return review.PartitionComments(result.Comments, github.CommentableLinesByFile(files))
}

// Package core defines the domain types and contracts shared across the
// review pipeline: queued tasks, generated review results, formatted
// output, and the error taxonomy the pipeline components agree on.
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v73/github"
	"github.com/google/uuid"
)

// Reviewable PR actions. Everything else is acknowledged and dropped
// without side effects.
const (
	ActionOpened         = "opened"
	ActionSynchronize    = "synchronize"
	ActionEdited         = "edited"
	ActionReadyForReview = "ready_for_review"
)

// ReviewTask is the unit of queued work: one webhook event that passed
// admission and is waiting for (or being) processed. Immutable once
// enqueued except for RetryCount, which the queue owns.
type ReviewTask struct {
	RepoFullName   string    `json:"repo_full_name"`
	PRNumber       int       `json:"pr_number"`
	InstallationID int64     `json:"installation_id"`
	Action         string    `json:"action"`
	HeadSHA        string    `json:"head_sha"`
	EventID        string    `json:"event_id"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
	RetryCount     int       `json:"retry_count"`
}

// RepoOwner returns the owner half of RepoFullName.
func (t *ReviewTask) RepoOwner() string {
	owner, _, _ := strings.Cut(t.RepoFullName, "/")
	return owner
}

// RepoName returns the repository half of RepoFullName.
func (t *ReviewTask) RepoName() string {
	_, name, _ := strings.Cut(t.RepoFullName, "/")
	return name
}

// Validate checks that the task carries everything a worker needs.
func (t *ReviewTask) Validate() error {
	if t.RepoFullName == "" || !strings.Contains(t.RepoFullName, "/") {
		return fmt.Errorf("invalid repository full name %q", t.RepoFullName)
	}
	if t.PRNumber <= 0 {
		return fmt.Errorf("pull request number must be positive, got %d", t.PRNumber)
	}
	if t.InstallationID <= 0 {
		return fmt.Errorf("installation ID must be positive, got %d", t.InstallationID)
	}
	if t.EventID == "" {
		return fmt.Errorf("event ID cannot be empty")
	}
	return nil
}

// ReviewableAction reports whether a pull_request action denotes a PR
// state change worth reviewing.
func ReviewableAction(action string) bool {
	switch action {
	case ActionOpened, ActionSynchronize, ActionEdited, ActionReadyForReview:
		return true
	default:
		return false
	}
}

// TaskFromPullRequestEvent builds a ReviewTask from a raw webhook event.
// It acts as an anti-corruption layer: the payload is validated here, so
// downstream components can trust the task's fields. A missing delivery
// id gets a generated one so deduplication still has a key to work with.
func TaskFromPullRequestEvent(event *github.PullRequestEvent, deliveryID string) (*ReviewTask, error) {
	pr := event.GetPullRequest()
	if pr == nil {
		return nil, fmt.Errorf("event has no pull request")
	}
	if pr.GetDraft() && event.GetAction() != ActionReadyForReview {
		return nil, fmt.Errorf("pull request is a draft")
	}

	repo := event.GetRepo()
	if repo.GetFullName() == "" {
		return nil, fmt.Errorf("repository information is missing from the event")
	}
	if pr.GetNumber() <= 0 {
		return nil, fmt.Errorf("invalid pull request number: %d", pr.GetNumber())
	}
	if event.GetInstallation().GetID() == 0 {
		return nil, fmt.Errorf("installation ID is missing from the event")
	}

	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	return &ReviewTask{
		RepoFullName:   repo.GetFullName(),
		PRNumber:       pr.GetNumber(),
		InstallationID: event.GetInstallation().GetID(),
		Action:         event.GetAction(),
		HeadSHA:        pr.GetHead().GetSHA(),
		EventID:        deliveryID,
		EnqueuedAt:     time.Now().UTC(),
	}, nil
}

// TaskHandler executes the review pipeline for one task. Implementations
// return an error classified by the core error taxonomy so the queue
// worker can decide between retry and dead-letter.
type TaskHandler interface {
	Run(ctx context.Context, task *ReviewTask) error
}

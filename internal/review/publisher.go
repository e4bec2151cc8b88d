package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/revware/pr-sentinel/internal/core"
	"github.com/revware/pr-sentinel/internal/github"
)

// Publisher pushes a formatted review onto the pull request under the
// supersede protocol: the previous bot review is dismissed first, then
// the new one is created, so the PR never carries two live bot reviews.
type Publisher struct {
	botLogin string
	pacing   time.Duration
	logger   *slog.Logger
}

// NewPublisher creates a Publisher for the given bot identity. pacing
// is the delay between continuation-comment posts.
func NewPublisher(botLogin string, pacing time.Duration, logger *slog.Logger) *Publisher {
	if pacing <= 0 {
		pacing = time.Second
	}
	return &Publisher{botLogin: botLogin, pacing: pacing, logger: logger}
}

const supersededMessage = "Superseded by a newer automated review."

// Publish performs the supersede-then-create sequence. If dismissing
// the prior review fails the publish aborts without creating anything:
// a reported failure beats two live bot reviews.
func (p *Publisher) Publish(ctx context.Context, gh github.Client, task *core.ReviewTask, verdict core.Verdict, formatted core.FormattedReview, inline []github.DraftReviewComment) error {
	owner, repo := task.RepoOwner(), task.RepoName()

	existing, err := p.findExistingBotReview(ctx, gh, owner, repo, task.PRNumber)
	if err != nil {
		return fmt.Errorf("%w: failed to list prior reviews: %w", core.ErrPublishFailed, err)
	}

	if existing != nil {
		if dismissable(existing.State) {
			p.logger.Info("dismissing prior bot review",
				"repo", task.RepoFullName, "pr", task.PRNumber, "review_id", existing.ID)
			if err := gh.DismissReview(ctx, owner, repo, task.PRNumber, existing.ID, supersededMessage); err != nil {
				return fmt.Errorf("%w: failed to dismiss prior review %d: %w", core.ErrPublishFailed, existing.ID, err)
			}
		} else {
			// The platform rejects dismissal of COMMENTED reviews with a
			// 422; they carry no approval state, so the new review simply
			// lands on top of them.
			p.logger.Debug("prior bot review is not dismissable, skipping dismissal",
				"repo", task.RepoFullName, "pr", task.PRNumber,
				"review_id", existing.ID, "state", existing.State)
		}
	}

	if err := gh.CreateReview(ctx, owner, repo, task.PRNumber, formatted.MainBody, reviewEvent(verdict), inline); err != nil {
		return fmt.Errorf("%w: failed to create review: %w", core.ErrPublishFailed, err)
	}

	// Continuations post strictly in order with a pacing delay between
	// them; readers rely on Part 2 preceding Part 3.
	for i, body := range formatted.ContinuationBodies {
		if err := p.pause(ctx); err != nil {
			return fmt.Errorf("%w: cancelled before continuation %d: %w", core.ErrPublishFailed, i+2, err)
		}
		if err := gh.CreateIssueComment(ctx, owner, repo, task.PRNumber, body); err != nil {
			return fmt.Errorf("%w: failed to post continuation %d: %w", core.ErrPublishFailed, i+2, err)
		}
	}

	p.logger.Info("review published",
		"repo", task.RepoFullName,
		"pr", task.PRNumber,
		"verdict", verdict,
		"continuations", len(formatted.ContinuationBodies),
		"superseded", existing != nil,
	)
	return nil
}

// findExistingBotReview returns the most recent review authored by the
// bot identity that is still live (not already dismissed), queried
// fresh from the platform.
func (p *Publisher) findExistingBotReview(ctx context.Context, gh github.Client, owner, repo string, number int) (*core.ExistingBotReview, error) {
	reviews, err := gh.ListReviews(ctx, owner, repo, number)
	if err != nil {
		return nil, err
	}

	var latest *core.ExistingBotReview
	for _, r := range reviews {
		if !strings.EqualFold(r.AuthorLogin, p.botLogin) {
			continue
		}
		if strings.EqualFold(r.State, "DISMISSED") {
			continue
		}
		if latest == nil || r.SubmittedAt.After(latest.SubmittedAt) {
			latest = &core.ExistingBotReview{
				ID:          r.ID,
				Body:        r.Body,
				State:       r.State,
				SubmittedAt: r.SubmittedAt,
			}
		}
	}
	return latest, nil
}

// dismissable reports whether the platform accepts a dismissal for a
// review in the given state.
func dismissable(state string) bool {
	switch strings.ToUpper(state) {
	case "APPROVED", "CHANGES_REQUESTED":
		return true
	default:
		return false
	}
}

func (p *Publisher) pause(ctx context.Context) error {
	timer := time.NewTimer(p.pacing)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// reviewEvent maps a verdict onto the platform's review event type.
func reviewEvent(v core.Verdict) string {
	switch v {
	case core.VerdictApprove:
		return "APPROVE"
	case core.VerdictRequestChanges:
		return "REQUEST_CHANGES"
	default:
		return "COMMENT"
	}
}

// PartitionComments splits model findings into inline comments (placed
// on lines the diff actually touches) and general findings that would
// be rejected by the platform as inline. With no line index available
// validation is skipped and everything stays inline.
func PartitionComments(comments []core.ReviewComment, validLines map[string]map[int]struct{}) (inline []github.DraftReviewComment, offDiff []core.ReviewComment) {
	if len(validLines) == 0 {
		for _, c := range comments {
			inline = append(inline, draftComment(c))
		}
		return inline, nil
	}

	for _, c := range comments {
		lines, ok := validLines[strings.TrimPrefix(c.Path, "./")]
		if !ok {
			offDiff = append(offDiff, c)
			continue
		}
		if _, ok := lines[c.Line]; !ok {
			offDiff = append(offDiff, c)
			continue
		}
		inline = append(inline, draftComment(c))
	}
	return inline, offDiff
}

func draftComment(c core.ReviewComment) github.DraftReviewComment {
	return github.DraftReviewComment{
		Path: strings.TrimPrefix(c.Path, "./"),
		Line: c.Line,
		Side: string(c.Side),
		Body: FormatComment(c),
	}
}

// Package github provides the narrow contract the review pipeline needs
// from the hosting platform: fetching diffs and publishing reviews.
package github

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/go-github/v73/github"
)

// ChangedFile holds the path and patch data for a single file included
// in a pull request.
type ChangedFile struct {
	Path   string
	Patch  string
	Status string
}

// DraftReviewComment is a single inline comment attached to a review.
type DraftReviewComment struct {
	Path string
	Line int
	Side string
	Body string
}

// Review is one entry of a PR's review list as the platform reports it.
// State is one of APPROVED, CHANGES_REQUESTED, COMMENTED, DISMISSED or
// PENDING; only the first two can be dismissed.
type Review struct {
	ID          int64
	Body        string
	AuthorLogin string
	State       string
	SubmittedAt time.Time
}

// Client defines the operations the pipeline performs against GitHub:
// the DiffFetcher side (pull request, diff, changed files, policy file)
// and the publisher side (review list, dismissal, creation, comments).
//
//go:generate mockgen -destination=../../mocks/mock_github_client.go -package=mocks -mock_names=Client=MockGitHubClient . Client
type Client interface {
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error)
	GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error)
	GetChangedFiles(ctx context.Context, owner, repo string, number int) ([]ChangedFile, error)
	GetFileContents(ctx context.Context, owner, repo, path, ref string) ([]byte, error)

	ListReviews(ctx context.Context, owner, repo string, number int) ([]Review, error)
	DismissReview(ctx context.Context, owner, repo string, number int, reviewID int64, message string) error
	CreateReview(ctx context.Context, owner, repo string, number int, body, event string, comments []DraftReviewComment) error
	CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error
}

type gitHubClient struct {
	client *github.Client
	logger *slog.Logger
}

// NewClient wraps the official go-github client in the pipeline's
// focused, mockable interface.
func NewClient(client *github.Client, logger *slog.Logger) Client {
	return &gitHubClient{client: client, logger: logger}
}

// GetPullRequest retrieves a single pull request by its number.
func (g *gitHubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*github.PullRequest, error) {
	pr, _, err := g.client.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		g.logger.Error("failed to get pull request", "owner", owner, "repo", repo, "pr", number, "error", err)
		return nil, err
	}
	return pr, nil
}

// GetPullRequestDiff retrieves the unified diff of a pull request.
func (g *gitHubClient) GetPullRequestDiff(ctx context.Context, owner, repo string, number int) (string, error) {
	diff, _, err := g.client.PullRequests.GetRaw(ctx, owner, repo, number, github.RawOptions{
		Type: github.Diff,
	})
	if err != nil {
		g.logger.Error("failed to get pull request diff", "owner", owner, "repo", repo, "pr", number, "error", err)
		return "", err
	}
	return diff, nil
}

// GetChangedFiles retrieves the list of files modified in a pull
// request, following pagination so PRs beyond the 100-file page size
// are fully covered.
func (g *gitHubClient) GetChangedFiles(ctx context.Context, owner, repo string, number int) ([]ChangedFile, error) {
	var allFiles []ChangedFile
	opts := &github.ListOptions{PerPage: 100}

	for {
		files, resp, err := g.client.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			g.logger.Error("failed to list files for pull request", "owner", owner, "repo", repo, "pr", number, "error", err)
			return nil, err
		}

		for _, file := range files {
			allFiles = append(allFiles, ChangedFile{
				Path:   file.GetFilename(),
				Patch:  file.GetPatch(),
				Status: file.GetStatus(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allFiles, nil
}

// GetFileContents fetches a single file from the repository at the
// given ref. Used for the .pr-sentinel.yml policy file.
func (g *gitHubClient) GetFileContents(ctx context.Context, owner, repo, path, ref string) ([]byte, error) {
	content, _, _, err := g.client.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{
		Ref: ref,
	})
	if err != nil {
		return nil, err
	}
	decoded, err := content.GetContent()
	if err != nil {
		return nil, err
	}
	return []byte(decoded), nil
}

// ListReviews returns the PR's review list, paginated. The platform is
// the source of truth for prior bot reviews, so results are never cached.
func (g *gitHubClient) ListReviews(ctx context.Context, owner, repo string, number int) ([]Review, error) {
	var all []Review
	opts := &github.ListOptions{PerPage: 100}

	for {
		reviews, resp, err := g.client.PullRequests.ListReviews(ctx, owner, repo, number, opts)
		if err != nil {
			g.logger.Error("failed to list reviews", "owner", owner, "repo", repo, "pr", number, "error", err)
			return nil, err
		}

		for _, r := range reviews {
			all = append(all, Review{
				ID:          r.GetID(),
				Body:        r.GetBody(),
				AuthorLogin: r.GetUser().GetLogin(),
				State:       r.GetState(),
				SubmittedAt: r.GetSubmittedAt().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// DismissReview dismisses a previously submitted review with a message.
func (g *gitHubClient) DismissReview(ctx context.Context, owner, repo string, number int, reviewID int64, message string) error {
	req := &github.PullRequestReviewDismissalRequest{Message: &message}
	_, _, err := g.client.PullRequests.DismissReview(ctx, owner, repo, number, reviewID, req)
	if err != nil {
		g.logger.Error("failed to dismiss review", "owner", owner, "repo", repo, "pr", number, "review_id", reviewID, "error", err)
	}
	return err
}

// CreateReview submits a new pull request review with a summary body,
// a verdict-derived event type, and inline comments.
func (g *gitHubClient) CreateReview(ctx context.Context, owner, repo string, number int, body, event string, comments []DraftReviewComment) error {
	var ghComments []*github.DraftReviewComment
	for _, c := range comments {
		comment := &github.DraftReviewComment{
			Path: github.Ptr(c.Path),
			Line: github.Ptr(c.Line),
			Body: github.Ptr(c.Body),
		}
		if c.Side != "" {
			comment.Side = github.Ptr(c.Side)
		}
		ghComments = append(ghComments, comment)
	}

	req := &github.PullRequestReviewRequest{
		Body:     github.Ptr(body),
		Event:    github.Ptr(event),
		Comments: ghComments,
	}

	_, _, err := g.client.PullRequests.CreateReview(ctx, owner, repo, number, req)
	if err != nil {
		g.logger.Error("failed to create pull request review", "owner", owner, "repo", repo, "pr", number, "error", err)
	}
	return err
}

// CreateIssueComment posts a plain comment on the pull request. Used
// for continuation parts of oversized reviews.
func (g *gitHubClient) CreateIssueComment(ctx context.Context, owner, repo string, number int, body string) error {
	comment := &github.IssueComment{Body: github.Ptr(body)}
	_, _, err := g.client.Issues.CreateComment(ctx, owner, repo, number, comment)
	if err != nil {
		g.logger.Error("failed to create issue comment", "owner", owner, "repo", repo, "pr", number, "error", err)
	}
	return err
}

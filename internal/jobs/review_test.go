package jobs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	gogithub "github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/revware/pr-sentinel/internal/config"
	"github.com/revware/pr-sentinel/internal/core"
	"github.com/revware/pr-sentinel/internal/github"
	"github.com/revware/pr-sentinel/internal/llm"
	"github.com/revware/pr-sentinel/internal/review"
	"github.com/revware/pr-sentinel/internal/storage"
	"github.com/revware/pr-sentinel/mocks"
)

type staticFactory struct {
	client github.Client
	err    error
}

func (f *staticFactory) ClientFor(_ context.Context, _ int64) (github.Client, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

func jobTask() *core.ReviewTask {
	return &core.ReviewTask{
		RepoFullName:   "acme/widgets",
		PRNumber:       42,
		InstallationID: 999,
		Action:         core.ActionOpened,
		HeadSHA:        "abc1234",
		EventID:        "delivery-1",
	}
}

const jobReviewJSON = `{
	"summary": {"verdict": "comment", "confidence": 0.9},
	"comments": [{"path": "main.go", "line": 2, "body": "check this", "severity": "warning"}],
	"overall_feedback": "Looks reasonable."
}`

func newReviewJob(t *testing.T, gh github.Client, llmClient llm.Client, store *mocks.MockStore) core.TaskHandler {
	t.Helper()

	prompts, err := llm.NewPromptManager()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	aiCfg := &config.AIConfig{Model: "test-model", MaxTokens: 4096}

	processor := review.NewProcessor(llmClient, prompts, storeOrNil(store), aiCfg, logger)
	publisher := review.NewPublisher("pr-sentinel[bot]", time.Millisecond, logger)

	return NewReviewJob(&staticFactory{client: gh}, processor, review.NewFormatter(), publisher, storeOrNil(store), logger)
}

// storeOrNil keeps a nil *MockStore from becoming a non-nil interface.
func storeOrNil(store *mocks.MockStore) storage.Store {
	if store == nil {
		return nil
	}
	return store
}

func TestReviewJobEndToEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	gh := mocks.NewMockGitHubClient(ctrl)
	llmClient := mocks.NewMockLLMClient(ctrl)
	store := mocks.NewMockStore(ctrl)

	gh.EXPECT().GetPullRequest(gomock.Any(), "acme", "widgets", 42).Return(&gogithub.PullRequest{
		Number: gogithub.Ptr(42),
		Title:  gogithub.Ptr("Add widget"),
	}, nil)
	gh.EXPECT().GetFileContents(gomock.Any(), "acme", "widgets", ".pr-sentinel.yml", "abc1234").
		Return(nil, fmt.Errorf("not found"))
	gh.EXPECT().GetPullRequestDiff(gomock.Any(), "acme", "widgets", 42).
		Return("diff --git a/main.go b/main.go", nil)

	llmClient.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llm.Generation{Content: jobReviewJSON, TokensUsed: 100}, nil)
	llmClient.EXPECT().Model().Return("test-model").AnyTimes()

	store.EXPECT().GetLatestReviewForPR(gomock.Any(), "acme/widgets", 42).Return(nil, nil)

	gh.EXPECT().GetChangedFiles(gomock.Any(), "acme", "widgets", 42).Return([]github.ChangedFile{
		{Path: "main.go", Patch: "@@ -1,1 +1,2 @@\n context\n+added"},
	}, nil)

	gh.EXPECT().ListReviews(gomock.Any(), "acme", "widgets", 42).Return(nil, nil)
	gh.EXPECT().CreateReview(gomock.Any(), "acme", "widgets", 42,
		gomock.Any(), "COMMENT", gomock.Len(1)).Return(nil)

	store.EXPECT().SaveReview(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, record *core.ReviewRecord) error {
			assert.Equal(t, "acme/widgets", record.RepoFullName)
			assert.Equal(t, 42, record.PRNumber)
			assert.Equal(t, "comment", record.Verdict)
			assert.Equal(t, 1, record.Iteration)
			return nil
		})

	job := newReviewJob(t, gh, llmClient, store)
	err := job.Run(context.Background(), jobTask())

	assert.NoError(t, err)
}

func TestReviewJobRejectsInvalidTask(t *testing.T) {
	ctrl := gomock.NewController(t)
	gh := mocks.NewMockGitHubClient(ctrl)
	llmClient := mocks.NewMockLLMClient(ctrl)
	llmClient.EXPECT().Model().Return("test-model").AnyTimes()

	job := newReviewJob(t, gh, llmClient, nil)
	err := job.Run(context.Background(), &core.ReviewTask{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid review task")
}

func TestReviewJobClientFactoryFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	llmClient := mocks.NewMockLLMClient(ctrl)
	llmClient.EXPECT().Model().Return("test-model").AnyTimes()

	prompts, err := llm.NewPromptManager()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	processor := review.NewProcessor(llmClient, prompts, nil, &config.AIConfig{Model: "m"}, logger)
	publisher := review.NewPublisher("pr-sentinel[bot]", time.Millisecond, logger)
	job := NewReviewJob(&staticFactory{err: fmt.Errorf("app auth failed")},
		processor, review.NewFormatter(), publisher, nil, logger)

	runErr := job.Run(context.Background(), jobTask())
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "installation client")
}

func TestReviewJobPublishesWithoutStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	gh := mocks.NewMockGitHubClient(ctrl)
	llmClient := mocks.NewMockLLMClient(ctrl)

	gh.EXPECT().GetPullRequest(gomock.Any(), "acme", "widgets", 42).Return(&gogithub.PullRequest{
		Number: gogithub.Ptr(42),
	}, nil)
	gh.EXPECT().GetFileContents(gomock.Any(), "acme", "widgets", ".pr-sentinel.yml", "abc1234").
		Return(nil, fmt.Errorf("not found"))
	gh.EXPECT().GetPullRequestDiff(gomock.Any(), "acme", "widgets", 42).
		Return("diff --git a/main.go b/main.go", nil)

	llmClient.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llm.Generation{Content: `{"summary": {"verdict": "approve", "confidence": 1}}`, TokensUsed: 10}, nil)
	llmClient.EXPECT().Model().Return("test-model").AnyTimes()

	gh.EXPECT().ListReviews(gomock.Any(), "acme", "widgets", 42).Return(nil, nil)
	gh.EXPECT().CreateReview(gomock.Any(), "acme", "widgets", 42,
		gomock.Any(), "APPROVE", gomock.Nil()).Return(nil)

	job := newReviewJob(t, gh, llmClient, nil)
	err := job.Run(context.Background(), jobTask())

	assert.NoError(t, err)
}

package review

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	gogithub "github.com/google/go-github/v73/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/revware/pr-sentinel/internal/config"
	"github.com/revware/pr-sentinel/internal/core"
	"github.com/revware/pr-sentinel/internal/github"
	"github.com/revware/pr-sentinel/internal/llm"
	"github.com/revware/pr-sentinel/mocks"
)

func testTask() *core.ReviewTask {
	return &core.ReviewTask{
		RepoFullName:   "acme/widgets",
		PRNumber:       42,
		InstallationID: 7,
		Action:         core.ActionOpened,
		HeadSHA:        "abc1234",
		EventID:        "delivery-1",
	}
}

func newTestProcessor(t *testing.T, llmClient llm.Client, history *mocks.MockStore) *Processor {
	t.Helper()
	prompts, err := llm.NewPromptManager()
	require.NoError(t, err)

	aiCfg := &config.AIConfig{Model: "test-model", MaxTokens: 4096, Temperature: 0.1}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if history != nil {
		return NewProcessor(llmClient, prompts, history, aiCfg, logger)
	}
	return NewProcessor(llmClient, prompts, nil, aiCfg, logger)
}

// reviewJSON is a minimal valid model response.
func reviewJSON(verdict string, confidence float64) string {
	return fmt.Sprintf(`{"summary":{"verdict":%q,"confidence":%v,"main_issues":[],"positives":[]},"comments":[],"overall_feedback":"looks fine"}`, verdict, confidence)
}

func reviewJSONWithComment(verdict, severity, path string) string {
	return fmt.Sprintf(`{
		"summary": {"verdict": %q, "confidence": 0.9},
		"comments": [{"path": %q, "line": 3, "side": "RIGHT", "body": "finding", "severity": %q}],
		"overall_feedback": "notes"
	}`, verdict, path, severity)
}

func expectPRFetch(gh *mocks.MockGitHubClient, diff string) {
	gh.EXPECT().GetPullRequest(gomock.Any(), "acme", "widgets", 42).
		Return(&gogithub.PullRequest{
			Title: gogithub.Ptr("Add widget dedup"),
			Body:  gogithub.Ptr("Deduplicates widgets."),
		}, nil)
	gh.EXPECT().GetFileContents(gomock.Any(), "acme", "widgets", config.RepoConfigFile, "abc1234").
		Return(nil, fmt.Errorf("file not found"))
	gh.EXPECT().GetPullRequestDiff(gomock.Any(), "acme", "widgets", 42).
		Return(diff, nil)
}

func TestProcessWholeDiff(t *testing.T) {
	ctrl := gomock.NewController(t)
	gh := mocks.NewMockGitHubClient(ctrl)
	llmMock := mocks.NewMockLLMClient(ctrl)
	store := mocks.NewMockStore(ctrl)

	diff := "diff --git a/main.go b/main.go\n+added line\n"
	expectPRFetch(gh, diff)

	var captured string
	llmMock.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, messages []llm.Message, _ llm.Options) (*llm.Generation, error) {
			captured = messages[0].Content
			return &llm.Generation{Content: reviewJSON("approve", 0.95), TokensUsed: 321}, nil
		})
	llmMock.EXPECT().Model().Return("test-model").AnyTimes()
	store.EXPECT().GetLatestReviewForPR(gomock.Any(), "acme/widgets", 42).Return(nil, nil)

	p := newTestProcessor(t, llmMock, store)
	result, err := p.Process(context.Background(), testTask(), gh)

	require.NoError(t, err)
	assert.Equal(t, core.VerdictApprove, result.Summary.Verdict)
	assert.Equal(t, 321, result.Metadata.TokensUsed)
	assert.Equal(t, "test-model", result.Metadata.Model)
	assert.Equal(t, 1, result.Metadata.ReviewIteration)
	require.NotNil(t, result.Metadata.Features)
	assert.False(t, result.Metadata.Features.Chunked)

	// The prompt must carry the diff verbatim, not a summary of it.
	assert.Contains(t, captured, diff)
	assert.Contains(t, captured, "Add widget dedup")
}

func TestProcessIterationFromHistory(t *testing.T) {
	ctrl := gomock.NewController(t)
	gh := mocks.NewMockGitHubClient(ctrl)
	llmMock := mocks.NewMockLLMClient(ctrl)
	store := mocks.NewMockStore(ctrl)

	expectPRFetch(gh, "small diff")
	llmMock.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&llm.Generation{Content: reviewJSON("comment", 0.8)}, nil)
	llmMock.EXPECT().Model().Return("test-model").AnyTimes()
	store.EXPECT().GetLatestReviewForPR(gomock.Any(), "acme/widgets", 42).
		Return(&core.ReviewRecord{ID: 17, Iteration: 2}, nil)

	p := newTestProcessor(t, llmMock, store)
	result, err := p.Process(context.Background(), testTask(), gh)

	require.NoError(t, err)
	assert.Equal(t, 3, result.Metadata.ReviewIteration)
	assert.Equal(t, int64(17), result.Metadata.PreviousReviewID)
}

func TestProcessReviewsDisabled(t *testing.T) {
	ctrl := gomock.NewController(t)
	gh := mocks.NewMockGitHubClient(ctrl)
	llmMock := mocks.NewMockLLMClient(ctrl)

	gh.EXPECT().GetPullRequest(gomock.Any(), "acme", "widgets", 42).
		Return(&gogithub.PullRequest{Title: gogithub.Ptr("t")}, nil)
	gh.EXPECT().GetFileContents(gomock.Any(), "acme", "widgets", config.RepoConfigFile, "abc1234").
		Return([]byte("enabled: false\n"), nil)

	p := newTestProcessor(t, llmMock, nil)
	_, err := p.Process(context.Background(), testTask(), gh)

	assert.ErrorIs(t, err, core.ErrReviewsDisabled)
}

func TestProcessChunkedFallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	gh := mocks.NewMockGitHubClient(ctrl)
	llmMock := mocks.NewMockLLMClient(ctrl)

	expectPRFetch(gh, "enormous diff")
	gh.EXPECT().GetChangedFiles(gomock.Any(), "acme", "widgets", 42).
		Return([]github.ChangedFile{
			{Path: "a.go", Patch: "@@ -1,2 +1,3 @@\n+a", Status: "modified"},
			{Path: "b.go", Patch: "@@ -1,2 +1,3 @@\n+b", Status: "modified"},
		}, nil)

	gomock.InOrder(
		llmMock.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("request rejected: %w", core.ErrPayloadTooLarge)),
		llmMock.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&llm.Generation{Content: reviewJSON("approve", 0.9), TokensUsed: 10}, nil),
		llmMock.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&llm.Generation{Content: reviewJSON("approve", 0.7), TokensUsed: 20}, nil),
	)
	llmMock.EXPECT().Model().Return("test-model").AnyTimes()

	p := newTestProcessor(t, llmMock, nil)
	result, err := p.Process(context.Background(), testTask(), gh)

	require.NoError(t, err)
	features := result.Metadata.Features
	require.NotNil(t, features)
	assert.True(t, features.Chunked)
	assert.Equal(t, 2, features.FilesAnalyzed)
	assert.Equal(t, 0, features.FilesSkipped)
	assert.Equal(t, 30, result.Metadata.TokensUsed)
	assert.InDelta(t, 0.8, result.Summary.Confidence, 1e-9)
}

func TestProcessChunkedSkipsOversizedFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	gh := mocks.NewMockGitHubClient(ctrl)
	llmMock := mocks.NewMockLLMClient(ctrl)

	expectPRFetch(gh, "enormous diff")
	gh.EXPECT().GetChangedFiles(gomock.Any(), "acme", "widgets", 42).
		Return([]github.ChangedFile{
			{Path: "a.go", Patch: "+a", Status: "modified"},
			{Path: "generated.pb.go", Patch: "+huge", Status: "modified"},
		}, nil)

	gomock.InOrder(
		llmMock.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, core.ErrPayloadTooLarge),
		llmMock.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&llm.Generation{Content: reviewJSON("approve", 0.9)}, nil),
		llmMock.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, core.ErrPayloadTooLarge),
	)
	llmMock.EXPECT().Model().Return("test-model").AnyTimes()

	p := newTestProcessor(t, llmMock, nil)
	result, err := p.Process(context.Background(), testTask(), gh)

	require.NoError(t, err)
	features := result.Metadata.Features
	assert.Equal(t, 1, features.FilesAnalyzed)
	assert.Equal(t, 1, features.FilesSkipped)
	assert.Contains(t, features.SkippedFiles, "generated.pb.go")
}

func TestProcessChunkedStopsOnThrottle(t *testing.T) {
	ctrl := gomock.NewController(t)
	gh := mocks.NewMockGitHubClient(ctrl)
	llmMock := mocks.NewMockLLMClient(ctrl)

	expectPRFetch(gh, "enormous diff")
	gh.EXPECT().GetChangedFiles(gomock.Any(), "acme", "widgets", 42).
		Return([]github.ChangedFile{
			{Path: "a.go", Patch: "+a", Status: "modified"},
			{Path: "b.go", Patch: "+b", Status: "modified"},
			{Path: "c.go", Patch: "+c", Status: "modified"},
		}, nil)

	gomock.InOrder(
		llmMock.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, core.ErrPayloadTooLarge),
		llmMock.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&llm.Generation{Content: reviewJSONWithComment("comment", "warning", "a.go")}, nil),
		llmMock.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, fmt.Errorf("throttled: %w", core.ErrRateLimited)),
	)
	llmMock.EXPECT().Model().Return("test-model").AnyTimes()

	p := newTestProcessor(t, llmMock, nil)
	result, err := p.Process(context.Background(), testTask(), gh)

	// A mid-loop throttle publishes a partial review instead of failing.
	require.NoError(t, err)
	features := result.Metadata.Features
	assert.Equal(t, 1, features.FilesAnalyzed)
	assert.Equal(t, 2, features.FilesSkipped)
	assert.ElementsMatch(t, []string{"b.go", "c.go"}, features.SkippedFiles)
	assert.Len(t, result.Comments, 1)
}

func TestProcessChunkedVerdictAggregation(t *testing.T) {
	ctrl := gomock.NewController(t)
	gh := mocks.NewMockGitHubClient(ctrl)
	llmMock := mocks.NewMockLLMClient(ctrl)

	expectPRFetch(gh, "enormous diff")
	gh.EXPECT().GetChangedFiles(gomock.Any(), "acme", "widgets", 42).
		Return([]github.ChangedFile{
			{Path: "a.go", Patch: "+a", Status: "modified"},
			{Path: "b.go", Patch: "+b", Status: "modified"},
		}, nil)

	gomock.InOrder(
		llmMock.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, core.ErrPayloadTooLarge),
		llmMock.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&llm.Generation{Content: reviewJSON("approve", 0.9)}, nil),
		// This file's own verdict understates its critical finding; the
		// severity must pull the combined verdict up.
		llmMock.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&llm.Generation{Content: reviewJSONWithComment("comment", "critical", "b.go")}, nil),
	)
	llmMock.EXPECT().Model().Return("test-model").AnyTimes()

	p := newTestProcessor(t, llmMock, nil)
	result, err := p.Process(context.Background(), testTask(), gh)

	require.NoError(t, err)
	assert.Equal(t, core.VerdictRequestChanges, result.Summary.Verdict)
}

func TestProcessChunkedNoEligibleFiles(t *testing.T) {
	ctrl := gomock.NewController(t)
	gh := mocks.NewMockGitHubClient(ctrl)
	llmMock := mocks.NewMockLLMClient(ctrl)

	expectPRFetch(gh, "enormous diff")
	gh.EXPECT().GetChangedFiles(gomock.Any(), "acme", "widgets", 42).
		Return([]github.ChangedFile{
			{Path: "gone.go", Status: "removed"},
			{Path: "image.png", Patch: "", Status: "modified"},
		}, nil)

	llmMock.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, core.ErrPayloadTooLarge)
	llmMock.EXPECT().Model().Return("test-model").AnyTimes()

	p := newTestProcessor(t, llmMock, nil)
	result, err := p.Process(context.Background(), testTask(), gh)

	require.NoError(t, err)
	assert.Equal(t, core.VerdictComment, result.Summary.Verdict)
	assert.Contains(t, result.OverallFeedback, "eligible")
	assert.Equal(t, 0, result.Metadata.Features.FilesAnalyzed)
}

func TestProcessWholeDiffTransientError(t *testing.T) {
	ctrl := gomock.NewController(t)
	gh := mocks.NewMockGitHubClient(ctrl)
	llmMock := mocks.NewMockLLMClient(ctrl)

	expectPRFetch(gh, "small diff")
	llmMock.EXPECT().Generate(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("throttled: %w", core.ErrRateLimited))

	p := newTestProcessor(t, llmMock, nil)
	_, err := p.Process(context.Background(), testTask(), gh)

	// A throttle on the single-pass call is a plain transient failure
	// for the queue to retry, not a trigger for the chunked loop.
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrRateLimited)
	assert.True(t, core.Transient(err))
}

func TestFilterFilesRespectsPolicy(t *testing.T) {
	cfg := &core.RepoConfig{
		Enabled:     true,
		ExcludeDirs: []string{"vendor"},
		ExcludeExts: []string{".md"},
		MaxFiles:    2,
	}

	files := []github.ChangedFile{
		{Path: "a.go", Patch: "+a", Status: "modified"},
		{Path: "vendor/dep.go", Patch: "+v", Status: "modified"},
		{Path: "README.md", Patch: "+r", Status: "modified"},
		{Path: "b.go", Patch: "+b", Status: "added"},
		{Path: "c.go", Patch: "+c", Status: "modified"},
	}

	eligible, skipped := filterFiles(files, cfg)

	require.Len(t, eligible, 2)
	assert.Equal(t, "a.go", eligible[0].Path)
	assert.Equal(t, "b.go", eligible[1].Path)
	assert.Equal(t, []string{"c.go"}, skipped)
}

func TestAggregateEmptyOutcomes(t *testing.T) {
	result := aggregate(nil, []string{"x.go"})

	assert.Equal(t, core.VerdictApprove, result.Summary.Verdict)
	assert.Zero(t, result.Summary.Confidence)
	assert.Equal(t, 1, result.Metadata.Features.FilesSkipped)
}

func TestAggregatePrefixesFileContext(t *testing.T) {
	outcomes := []fileOutcome{
		{
			path: "a.go",
			result: &core.ReviewResult{
				Summary: core.ReviewSummary{
					Verdict:    core.VerdictComment,
					Confidence: 1,
					MainIssues: []string{"missing error check"},
				},
				OverallFeedback: "needs a guard",
			},
		},
	}

	combined := aggregate(outcomes, nil)

	require.Len(t, combined.Summary.MainIssues, 1)
	assert.True(t, strings.HasPrefix(combined.Summary.MainIssues[0], "`a.go`:"))
	assert.Contains(t, combined.OverallFeedback, "**a.go**:")
}

package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/revware/pr-sentinel/internal/config"
	"github.com/revware/pr-sentinel/internal/core"
	"github.com/revware/pr-sentinel/internal/github"
	"github.com/revware/pr-sentinel/internal/llm"
	"github.com/revware/pr-sentinel/internal/storage"
)

// stopOnMidLoopThrottle names the policy for throttling (and timeouts)
// hit in the middle of the chunked loop: stop iterating, keep what was
// accumulated, and publish a partial review with the remainder marked
// skipped. The same condition on the initial whole-diff call is instead
// a plain transient failure left to the queue's retry. The asymmetry is
// deliberate: mid-loop we already spent tokens on analyzed files and
// throwing that work away to retry the whole task would double-bill it.
const stopOnMidLoopThrottle = true

// Processor turns a ReviewTask into a ReviewResult: whole-diff
// generation first, chunked per-file fallback when the diff exceeds the
// model's payload limit.
type Processor struct {
	llmClient llm.Client
	prompts   *llm.PromptManager
	history   storage.Store
	aiCfg     *config.AIConfig
	logger    *slog.Logger
}

// NewProcessor wires the generation side of the pipeline.
func NewProcessor(llmClient llm.Client, prompts *llm.PromptManager, history storage.Store, aiCfg *config.AIConfig, logger *slog.Logger) *Processor {
	return &Processor{
		llmClient: llmClient,
		prompts:   prompts,
		history:   history,
		aiCfg:     aiCfg,
		logger:    logger,
	}
}

// Process runs the generation state machine for one task. The returned
// result is ready for formatting; a nil result with an error means the
// task failed and the queue decides between retry and dead-letter.
func (p *Processor) Process(ctx context.Context, task *core.ReviewTask, gh github.Client) (*core.ReviewResult, error) {
	start := time.Now()

	pr, err := gh.GetPullRequest(ctx, task.RepoOwner(), task.RepoName(), task.PRNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get PR details: %w", err)
	}

	repoCfg := p.loadRepoConfig(ctx, task, gh)
	if !repoCfg.Enabled {
		return nil, core.ErrReviewsDisabled
	}

	diff, err := gh.GetPullRequestDiff(ctx, task.RepoOwner(), task.RepoName(), task.PRNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get PR diff: %w", err)
	}

	var result *core.ReviewResult
	result, err = p.reviewWholeDiff(ctx, task, repoCfg, pr.GetTitle(), pr.GetBody(), diff)
	switch {
	case err == nil:
		// Whole diff fit in one pass.
	case errors.Is(err, core.ErrPayloadTooLarge):
		p.logger.Info("diff too large for single pass, entering chunked fallback",
			"repo", task.RepoFullName, "pr", task.PRNumber)
		result, err = p.reviewChunked(ctx, task, repoCfg, gh)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	p.attachHistory(ctx, task, result)
	result.Metadata.Model = p.modelFor(repoCfg)
	result.Metadata.ProcessingTime = time.Since(start)

	return result, nil
}

// loadRepoConfig fetches the repository's policy file at the task's
// revision. Any failure falls back to the default policy: a broken or
// missing config file must not block reviews.
func (p *Processor) loadRepoConfig(ctx context.Context, task *core.ReviewTask, gh github.Client) *core.RepoConfig {
	data, err := gh.GetFileContents(ctx, task.RepoOwner(), task.RepoName(), config.RepoConfigFile, task.HeadSHA)
	if err != nil {
		return core.DefaultRepoConfig()
	}

	cfg, err := config.ParseRepoConfig(data)
	if err != nil {
		p.logger.Warn("invalid repo config file, using defaults",
			"repo", task.RepoFullName, "error", err)
		return core.DefaultRepoConfig()
	}
	return cfg
}

func (p *Processor) modelFor(repoCfg *core.RepoConfig) string {
	if repoCfg.Model != "" {
		return repoCfg.Model
	}
	return p.llmClient.Model()
}

func (p *Processor) generateOptions(repoCfg *core.RepoConfig) llm.Options {
	return llm.Options{
		Temperature: p.aiCfg.Temperature,
		MaxTokens:   p.aiCfg.MaxTokens,
		Model:       repoCfg.Model,
	}
}

// reviewWholeDiff sends the entire unified diff in a single prompt.
func (p *Processor) reviewWholeDiff(ctx context.Context, task *core.ReviewTask, repoCfg *core.RepoConfig, title, body, diff string) (*core.ReviewResult, error) {
	prompt, err := p.prompts.Render(llm.DiffReviewPrompt, llm.DiffReviewData{
		RepoFullName:       task.RepoFullName,
		PRTitle:            title,
		PRBody:             body,
		Diff:               diff,
		CustomInstructions: repoCfg.CustomInstructions,
	})
	if err != nil {
		return nil, err
	}

	gen, err := p.llmClient.Generate(ctx, []llm.Message{{Role: "user", Content: prompt}}, p.generateOptions(repoCfg))
	if err != nil {
		return nil, err
	}

	result, err := llm.ParseReview(gen.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse whole-diff review: %w", err)
	}

	result.Metadata.TokensUsed = gen.TokensUsed
	result.Metadata.Features = &core.ChunkStats{Chunked: false}
	return result, nil
}

// fileOutcome records one per-file pass of the chunked fallback.
type fileOutcome struct {
	path   string
	result *core.ReviewResult
	tokens int
}

// reviewChunked runs the per-file fallback: strictly sequential calls,
// one file at a time, so a throttled provider can stop the loop early
// with everything already analyzed intact.
func (p *Processor) reviewChunked(ctx context.Context, task *core.ReviewTask, repoCfg *core.RepoConfig, gh github.Client) (*core.ReviewResult, error) {
	files, err := gh.GetChangedFiles(ctx, task.RepoOwner(), task.RepoName(), task.PRNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list changed files: %w", err)
	}

	eligible, filtered := filterFiles(files, repoCfg)
	if len(eligible) == 0 {
		return emptyChunkedResult(filtered), nil
	}

	var outcomes []fileOutcome
	var skipped []string
	skipped = append(skipped, filtered...)

	for i, file := range eligible {
		outcome, err := p.reviewFile(ctx, task, repoCfg, file)
		switch {
		case err == nil:
			outcomes = append(outcomes, outcome)
		case errors.Is(err, core.ErrPayloadTooLarge):
			// Too large even alone. Skip it, keep going.
			p.logger.Warn("file too large for single-file review, skipping",
				"repo", task.RepoFullName, "pr", task.PRNumber, "path", file.Path)
			skipped = append(skipped, file.Path)
		case errors.Is(err, core.ErrRateLimited) && stopOnMidLoopThrottle:
			// Stop here, mark everything unseen as skipped, publish what
			// we have as a partial review.
			p.logger.Warn("throttled mid-loop, publishing partial review",
				"repo", task.RepoFullName, "pr", task.PRNumber,
				"analyzed", len(outcomes), "remaining", len(eligible)-i)
			for _, rest := range eligible[i:] {
				skipped = append(skipped, rest.Path)
			}
			return aggregate(outcomes, skipped), nil
		default:
			return nil, fmt.Errorf("chunked review of %s failed: %w", file.Path, err)
		}
	}

	return aggregate(outcomes, skipped), nil
}

func (p *Processor) reviewFile(ctx context.Context, task *core.ReviewTask, repoCfg *core.RepoConfig, file github.ChangedFile) (fileOutcome, error) {
	prompt, err := p.prompts.Render(llm.FileReviewPrompt, llm.FileReviewData{
		RepoFullName:       task.RepoFullName,
		Path:               file.Path,
		Patch:              file.Patch,
		CustomInstructions: repoCfg.CustomInstructions,
	})
	if err != nil {
		return fileOutcome{}, err
	}

	gen, err := p.llmClient.Generate(ctx, []llm.Message{{Role: "user", Content: prompt}}, p.generateOptions(repoCfg))
	if err != nil {
		return fileOutcome{}, err
	}

	result, err := llm.ParseReview(gen.Content)
	if err != nil {
		return fileOutcome{}, fmt.Errorf("failed to parse review for %s: %w", file.Path, err)
	}

	return fileOutcome{path: file.Path, result: result, tokens: gen.TokensUsed}, nil
}

// filterFiles applies the repository policy to the changed-file list:
// removed files and excluded paths are dropped silently, files past the
// max_files cap are reported as skipped.
func filterFiles(files []github.ChangedFile, repoCfg *core.RepoConfig) (eligible []github.ChangedFile, skipped []string) {
	for _, f := range files {
		if f.Status == "removed" {
			continue
		}
		if f.Patch == "" {
			// Binary or renamed without content changes.
			continue
		}
		if !repoCfg.ShouldReviewFile(f.Path) {
			continue
		}
		if repoCfg.MaxFiles > 0 && len(eligible) >= repoCfg.MaxFiles {
			skipped = append(skipped, f.Path)
			continue
		}
		eligible = append(eligible, f)
	}
	return eligible, skipped
}

// emptyChunkedResult is published as informational when no file was
// eligible for review. Zero analyzable files is a success, not an error.
func emptyChunkedResult(skipped []string) *core.ReviewResult {
	return &core.ReviewResult{
		Summary: core.ReviewSummary{
			Verdict:    core.VerdictComment,
			Confidence: 1,
		},
		OverallFeedback: "No files in this pull request were eligible for automated review.",
		Metadata: core.ReviewMetadata{
			Features: &core.ChunkStats{
				Chunked:      true,
				FilesSkipped: len(skipped),
				SkippedFiles: skipped,
			},
		},
	}
}

// aggregate combines per-file outcomes into one review. The overall
// verdict is the most severe verdict seen across analyzed files, with
// finding severities pulling the verdict up when a file's own verdict
// understates them. Confidence is the mean of file confidences.
func aggregate(outcomes []fileOutcome, skipped []string) *core.ReviewResult {
	combined := &core.ReviewResult{
		Summary: core.ReviewSummary{Verdict: core.VerdictApprove},
	}

	var confidenceSum float64
	var severities []core.Severity
	var tokens int

	for _, o := range outcomes {
		r := o.result
		confidenceSum += r.Summary.Confidence
		tokens += o.tokens

		if core.MoreSevere(r.Summary.Verdict, combined.Summary.Verdict) {
			combined.Summary.Verdict = r.Summary.Verdict
		}
		for _, c := range r.Comments {
			severities = append(severities, c.Severity)
		}

		combined.Comments = append(combined.Comments, r.Comments...)
		for _, issue := range r.Summary.MainIssues {
			combined.Summary.MainIssues = append(combined.Summary.MainIssues, fmt.Sprintf("`%s`: %s", o.path, issue))
		}
		for _, pos := range r.Summary.Positives {
			combined.Summary.Positives = append(combined.Summary.Positives, fmt.Sprintf("`%s`: %s", o.path, pos))
		}
		if r.OverallFeedback != "" {
			if combined.OverallFeedback != "" {
				combined.OverallFeedback += "\n\n"
			}
			combined.OverallFeedback += fmt.Sprintf("**%s**: %s", o.path, r.OverallFeedback)
		}
	}

	// Ties break toward the more severe category.
	if v := core.VerdictForSeverity(core.MaxSeverity(severities)); core.MoreSevere(v, combined.Summary.Verdict) {
		combined.Summary.Verdict = v
	}

	if len(outcomes) > 0 {
		combined.Summary.Confidence = confidenceSum / float64(len(outcomes))
	}

	combined.Metadata.TokensUsed = tokens
	combined.Metadata.Features = &core.ChunkStats{
		Chunked:       true,
		FilesAnalyzed: len(outcomes),
		FilesSkipped:  len(skipped),
		SkippedFiles:  skipped,
	}
	return combined
}

// attachHistory sets the iteration counter from the latest published
// review of this PR, when one exists.
func (p *Processor) attachHistory(ctx context.Context, task *core.ReviewTask, result *core.ReviewResult) {
	if p.history == nil {
		return
	}
	prev, err := p.history.GetLatestReviewForPR(ctx, task.RepoFullName, task.PRNumber)
	if err != nil || prev == nil {
		result.Metadata.ReviewIteration = 1
		return
	}
	result.Metadata.ReviewIteration = prev.Iteration + 1
	result.Metadata.PreviousReviewID = prev.ID
}

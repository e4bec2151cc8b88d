package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/revware/pr-sentinel/internal/config"
	"github.com/revware/pr-sentinel/internal/core"
	"github.com/revware/pr-sentinel/internal/github"
	"github.com/revware/pr-sentinel/internal/llm"
	"github.com/revware/pr-sentinel/internal/logger"
	"github.com/revware/pr-sentinel/internal/review"
)

var verbose bool

// Color definitions
var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	infoColor    = color.New(color.FgWhite)
	dimColor     = color.New(color.FgHiBlack)
	boldColor    = color.New(color.Bold)
)

var reviewCmd = &cobra.Command{
	Use:   "review [pr-url]",
	Short: "Run an ad-hoc review of a GitHub Pull Request",
	Long: `Run an ad-hoc review of a GitHub Pull Request and print it to the
terminal without publishing anything.

The review command fetches the PR diff, sends it to the configured LLM,
and renders the structured result. Large diffs fall back to a
file-by-file pass automatically.

Examples:
  sentinel-cli review https://github.com/owner/repo/pull/123
  sentinel-cli review --verbose https://github.com/owner/repo/pull/123`,
	Args: cobra.ExactArgs(1),
	RunE: runReview,
}

func init() { //nolint:gochecknoinits // Cobra command registration
	reviewCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output with timing information")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(_ *cobra.Command, args []string) error {
	ctx := context.Background()
	prURL := args[0]
	overallStart := time.Now()

	titleColor.Println("PR Sentinel - Pull Request Review")
	dimColor.Printf("   Target: %s\n\n", prURL)

	cfg, err := config.LoadCLIConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.AI.APIKey == "" {
		return fmt.Errorf("AI_API_KEY is not set")
	}

	owner, repoName, prNumber, err := parsePullRequestURL(prURL)
	if err != nil {
		return fmt.Errorf("invalid PR URL: %w\n\nExpected format: https://github.com/owner/repo/pull/123", err)
	}

	token := cfg.GitHub.Token
	if token == "" {
		token = githubToken
	}
	if token == "" {
		return fmt.Errorf("GITHUB_TOKEN is not set\n\nTip: Set the GITHUB_TOKEN environment variable or pass --github-token")
	}

	log := logger.NewLogger(cfg.Logging, io.Discard)
	ghClient := github.NewPATClient(ctx, token, log)

	llmClient, err := llm.NewClient(&cfg.AI, log)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	promptMgr, err := llm.NewPromptManager()
	if err != nil {
		return fmt.Errorf("failed to create prompt manager: %w", err)
	}

	task := &core.ReviewTask{
		RepoFullName: fmt.Sprintf("%s/%s", owner, repoName),
		PRNumber:     prNumber,
		Action:       core.ActionOpened,
		EventID:      "cli",
	}

	fmt.Println("Generating review...")
	processor := review.NewProcessor(llmClient, promptMgr, nil, &cfg.AI, log)
	result, err := processor.Process(ctx, task, ghClient)
	if err != nil {
		return fmt.Errorf("failed to generate review: %w\n\nTip: Check that the LLM backend is reachable", err)
	}

	if verbose {
		dimColor.Printf("\nTotal time: %s\n", time.Since(overallStart).Round(time.Millisecond))
		dimColor.Printf("Model: %s, tokens: %d\n", result.Metadata.Model, result.Metadata.TokensUsed)
		if features := result.Metadata.Features; features != nil && features.Chunked {
			dimColor.Printf("Chunked: %d reviewed, %d skipped\n", features.FilesAnalyzed, features.FilesSkipped)
		}
	}

	printReview(result)
	return nil
}

// parsePullRequestURL extracts owner, repo, and number from a GitHub
// pull request URL.
func parsePullRequestURL(raw string) (owner, repo string, number int, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", 0, err
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 4 || parts[2] != "pull" {
		return "", "", 0, fmt.Errorf("path %q does not look like a pull request", u.Path)
	}

	number, err = strconv.Atoi(parts[3])
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("invalid pull request number %q", parts[3])
	}
	return parts[0], parts[1], number, nil
}

func printReview(result *core.ReviewResult) {
	separator := strings.Repeat("=", 60)
	thinSeparator := strings.Repeat("-", 60)

	fmt.Println()
	titleColor.Println(separator)
	titleColor.Printf("REVIEW SUMMARY: %s (confidence %.0f%%)\n",
		strings.ToUpper(string(result.Summary.Verdict)), result.Summary.Confidence*100)
	titleColor.Println(separator)
	fmt.Println()
	infoColor.Println(result.OverallFeedback)

	if len(result.Summary.MainIssues) > 0 {
		fmt.Println()
		warnColor.Println("Main issues:")
		for _, issue := range result.Summary.MainIssues {
			warnColor.Printf("  - %s\n", issue)
		}
	}

	if len(result.Comments) == 0 {
		fmt.Println()
		successColor.Println("No line-level findings.")
		return
	}

	fmt.Println()
	warnColor.Println(thinSeparator)
	warnColor.Printf("FINDINGS (%d)\n", len(result.Comments))
	warnColor.Println(thinSeparator)

	for i, c := range result.Comments {
		fmt.Println()
		printSeverityBadge(c.Severity)
		boldColor.Printf(" %s", c.Path)
		dimColor.Printf(":%d\n", c.Line)

		if c.Category != "" {
			dimColor.Printf("   Category: %s\n", c.Category)
		}
		fmt.Println()
		infoColor.Printf("%s\n", c.Body)

		if i < len(result.Comments)-1 {
			fmt.Println()
			dimColor.Println(strings.Repeat("-", 40))
		}
	}
	fmt.Println()
}

func printSeverityBadge(severity core.Severity) {
	switch severity {
	case core.SeverityCritical:
		color.New(color.BgRed, color.FgWhite, color.Bold).Printf(" %s ", severity)
	case core.SeverityError:
		color.New(color.BgHiRed, color.FgWhite).Printf(" %s ", severity)
	case core.SeverityWarning:
		color.New(color.BgYellow, color.FgBlack).Printf(" %s ", severity)
	case core.SeverityInfo:
		color.New(color.BgGreen, color.FgWhite).Printf(" %s ", severity)
	default:
		color.New(color.BgWhite, color.FgBlack).Printf(" %s ", severity)
	}
}

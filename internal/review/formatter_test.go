package review

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revware/pr-sentinel/internal/core"
)

func sampleResult() *core.ReviewResult {
	return &core.ReviewResult{
		Summary: core.ReviewSummary{
			Verdict:    core.VerdictRequestChanges,
			Confidence: 0.85,
			MainIssues: []string{"unchecked error in handler"},
			Positives:  []string{"good test coverage"},
		},
		OverallFeedback: "Solid change overall, one blocking issue.",
		Metadata: core.ReviewMetadata{
			Model:          "gpt-4o-mini",
			TokensUsed:     1234,
			ProcessingTime: 2500 * time.Millisecond,
		},
	}
}

func TestFormatSmallReviewStaysWhole(t *testing.T) {
	f := NewFormatter()
	formatted := f.Format(sampleResult(), nil)

	assert.Empty(t, formatted.ContinuationBodies)
	assert.True(t, strings.HasPrefix(formatted.MainBody, "# Pull Request Review"))
	assert.Contains(t, formatted.MainBody, "Request Changes")
	assert.Contains(t, formatted.MainBody, "**Confidence:** 85%")
	assert.Contains(t, formatted.MainBody, "unchecked error in handler")
	assert.Contains(t, formatted.MainBody, "model gpt-4o-mini")
	assert.NotContains(t, formatted.MainBody, "Review iteration")
}

func TestFormatIterationFooter(t *testing.T) {
	f := NewFormatter()

	result := sampleResult()
	result.Metadata.ReviewIteration = 3
	formatted := f.Format(result, nil)

	assert.Contains(t, formatted.MainBody, "Review iteration 3")
}

func TestFormatChunkedFilesSection(t *testing.T) {
	f := NewFormatter()

	result := sampleResult()
	result.Metadata.Features = &core.ChunkStats{
		Chunked:       true,
		FilesAnalyzed: 2,
		FilesSkipped:  1,
		SkippedFiles:  []string{"vendor/huge.go"},
	}
	formatted := f.Format(result, nil)

	assert.Contains(t, formatted.MainBody, "Files reviewed: 2")
	assert.Contains(t, formatted.MainBody, "Files skipped: 1")
	assert.Contains(t, formatted.MainBody, "`vendor/huge.go`")
}

func TestFormatGeneralFindingsSection(t *testing.T) {
	f := NewFormatter()

	offDiff := []core.ReviewComment{
		{Path: "main.go", Line: 400, Severity: core.SeverityWarning, Body: "possible nil deref"},
	}
	formatted := f.Format(sampleResult(), offDiff)

	assert.Contains(t, formatted.MainBody, "## General Findings")
	assert.Contains(t, formatted.MainBody, "`main.go:400`")
	assert.Contains(t, formatted.MainBody, "possible nil deref")
}

func TestSplitOversizedBody(t *testing.T) {
	f := NewFormatter()

	result := sampleResult()
	result.OverallFeedback = strings.Repeat("This paragraph pads the review body well past the ceiling. ", 1300)
	body := f.Render(result, nil)
	require.Greater(t, len(body), CommentLimit, "fixture must exceed the limit")

	formatted := f.Split(body)

	assert.LessOrEqual(t, len(formatted.MainBody), CommentLimit)
	require.NotEmpty(t, formatted.ContinuationBodies)
	for _, c := range formatted.ContinuationBodies {
		assert.LessOrEqual(t, len(c), CommentLimit)
	}

	assert.True(t, strings.HasPrefix(formatted.MainBody, "> [!NOTE]"))
	assert.Contains(t, formatted.MainBody, "# Pull Request Review")
	assert.True(t, strings.HasPrefix(formatted.ContinuationBodies[0], "## Review Continuation (Part 2)"))
}

func TestSplitIsDeterministic(t *testing.T) {
	f := newFormatterWithLimit(400, 6)

	var sb strings.Builder
	sb.WriteString("# Title\n\nintro text\n")
	for _, name := range []string{"One", "Two", "Three", "Four"} {
		sb.WriteString("\n## Section " + name + "\n\n")
		sb.WriteString(strings.Repeat("line of section content\n", 10))
	}
	body := sb.String()

	first := f.Split(body)
	second := f.Split(body)

	assert.Equal(t, first, second)
}

func TestSplitKeepsSectionOrder(t *testing.T) {
	f := newFormatterWithLimit(400, 6)

	body := "# Title\n\n## Alpha\n\n" + strings.Repeat("alpha content here\n", 15) +
		"\n## Beta\n\n" + strings.Repeat("beta content here\n", 15)

	formatted := f.Split(body)
	joined := formatted.MainBody + "\n" + strings.Join(formatted.ContinuationBodies, "\n")

	assert.Less(t, strings.Index(joined, "## Alpha"), strings.Index(joined, "## Beta"))
	for i, c := range formatted.ContinuationBodies {
		assert.LessOrEqual(t, len(c), 400, "continuation %d exceeds limit", i)
	}
}

func TestSplitTruncatesPastMaxParts(t *testing.T) {
	f := newFormatterWithLimit(300, 2)

	var sb strings.Builder
	sb.WriteString("# Title\n")
	for i := 0; i < 20; i++ {
		sb.WriteString("\n## Section\n\n")
		sb.WriteString(strings.Repeat("filler text for the section body\n", 8))
	}

	formatted := f.Split(sb.String())

	require.Len(t, formatted.ContinuationBodies, 2)
	last := formatted.ContinuationBodies[len(formatted.ContinuationBodies)-1]
	assert.True(t, strings.HasSuffix(last, "*Review truncated: remaining content omitted.*"))
	assert.LessOrEqual(t, len(last), 300)
}

func TestTruncateComment(t *testing.T) {
	f := newFormatterWithLimit(200, 6)

	small := "short body"
	assert.Equal(t, small, f.TruncateComment(small))

	large := strings.Repeat("overflowing line\n", 40)
	truncated := f.TruncateComment(large)
	assert.LessOrEqual(t, len(truncated), 200)
	assert.True(t, strings.HasSuffix(truncated, "*Review truncated: remaining content omitted.*"))
}

func TestIsCommentTooLargeCountsBytes(t *testing.T) {
	f := newFormatterWithLimit(10, 6)

	// Four runes, twelve bytes.
	assert.True(t, f.IsCommentTooLarge("🟡🟡🟡🟡"))
	assert.False(t, f.IsCommentTooLarge("ten chars."))
}

func TestFormatComment(t *testing.T) {
	body := FormatComment(core.ReviewComment{
		Severity: core.SeverityCritical,
		Category: "security",
		Body:     "SQL built by string concatenation.",
	})

	assert.Contains(t, body, "Critical")
	assert.Contains(t, body, "security")
	assert.True(t, strings.HasSuffix(body, "SQL built by string concatenation."))
}

// Package review implements the pipeline core: orchestrating diff
// fetching and generation (with the chunked per-file fallback),
// rendering and size-splitting the output, and publishing it under the
// supersede protocol.
package review

import (
	"fmt"
	"strings"
	"time"

	"github.com/revware/pr-sentinel/internal/core"
)

const (
	// CommentLimit is the platform's single-comment ceiling in bytes.
	CommentLimit = 65536

	// MaxContinuationComments caps how many overflow comments a single
	// review may spill into.
	MaxContinuationComments = 6
)

const (
	sizeLimitBanner = "> [!NOTE]\n> This review exceeds the comment size limit and continues in the comments below.\n\n"
	truncationNote  = "\n\n---\n*Review truncated: remaining content omitted.*"
)

// Formatter renders a ReviewResult into platform comment bodies and
// splits oversized output deterministically at section boundaries.
type Formatter struct {
	limit    int
	maxParts int
}

// NewFormatter returns a Formatter with the platform defaults.
func NewFormatter() *Formatter {
	return &Formatter{limit: CommentLimit, maxParts: MaxContinuationComments}
}

// newFormatterWithLimit exists for tests that need small fixtures.
func newFormatterWithLimit(limit, maxParts int) *Formatter {
	return &Formatter{limit: limit, maxParts: maxParts}
}

// IsCommentTooLarge reports whether a body exceeds the platform limit.
// Byte length, not rune count: the platform limit is in bytes and
// multi-byte content must not slip past it.
func (f *Formatter) IsCommentTooLarge(body string) bool {
	return len(body) > f.limit
}

// Format renders the result and splits it if needed. offDiff holds
// findings that could not be attached inline; they are folded into the
// body as a dedicated section.
func (f *Formatter) Format(result *core.ReviewResult, offDiff []core.ReviewComment) core.FormattedReview {
	return f.Split(f.Render(result, offDiff))
}

// Split returns the body unchanged when it fits, otherwise a main body
// (annotated with a size-limit banner) plus ordered continuation
// bodies, each within the limit. Splitting is a pure function of the
// input: same input, same boundaries.
func (f *Formatter) Split(body string) core.FormattedReview {
	if !f.IsCommentTooLarge(body) {
		return core.FormattedReview{MainBody: body}
	}

	sections := splitSections(body)

	// The main body loses capacity to the banner; continuations lose it
	// to their part header. =Part numbering counts the main body as part
	// one, so the first continuation announces itself as part two.
	mainCapacity := f.limit - len(sizeLimitBanner)
	parts := packSections(sections, mainCapacity, func(i int) int {
		return f.limit - len(continuationHeader(i+2))
	}, f.maxParts+1)

	main := sizeLimitBanner + parts[0]
	continuations := make([]string, 0, len(parts)-1)
	for i, p := range parts[1:] {
		continuations = append(continuations, continuationHeader(i+2)+p)
	}

	return core.FormattedReview{MainBody: main, ContinuationBodies: continuations}
}

// TruncateComment bounds a body that cannot be split any further:
// the leading section survives verbatim and a truncation notice is
// appended, with the result guaranteed within the limit.
func (f *Formatter) TruncateComment(body string) string {
	if len(body) <= f.limit {
		return body
	}
	return truncateAt(body, f.limit-len(truncationNote)) + truncationNote
}

func continuationHeader(part int) string {
	return fmt.Sprintf("## Review Continuation (Part %d)\n\n", part)
}

// splitSections cuts the body at markdown section boundaries. The
// document title stays glued to the first section so the main body
// always opens with the header.
func splitSections(body string) []string {
	lines := strings.Split(body, "\n")
	var sections []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
	}

	for i, line := range lines {
		if strings.HasPrefix(line, "## ") && i > 0 {
			flush()
		}
		current.WriteString(line)
		if i < len(lines)-1 {
			current.WriteByte('\n')
		}
	}
	flush()

	if len(sections) == 0 {
		sections = []string{body}
	}
	return sections
}

// packSections greedily fills parts with whole sections. A section
// larger than its part's capacity is split on line boundaries; a single
// oversized line is split on bytes as the last resort. When maxParts
// would be exceeded, the final part is truncated with a notice.
func packSections(sections []string, mainCapacity int, contCapacity func(i int) int, maxParts int) []string {
	capacityFor := func(part int) int {
		if part == 0 {
			return mainCapacity
		}
		return contCapacity(part - 1)
	}

	var parts []string
	var current strings.Builder

	flush := func() {
		parts = append(parts, strings.TrimRight(current.String(), "\n"))
		current.Reset()
	}

	appendChunk := func(chunk string) {
		if current.Len() > 0 && current.Len()+1+len(chunk) > capacityFor(len(parts)) {
			flush()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(chunk)
	}

	for _, section := range sections {
		capacity := capacityFor(len(parts))
		if len(section) <= capacity {
			appendChunk(section)
			continue
		}
		for _, piece := range splitOversized(section, capacity) {
			appendChunk(piece)
		}
	}
	if current.Len() > 0 {
		flush()
	}

	if len(parts) > maxParts {
		kept := parts[:maxParts]
		last := kept[maxParts-1]
		limit := capacityFor(maxParts - 1)
		if len(last)+len(truncationNote) > limit {
			last = truncateAt(last, limit-len(truncationNote))
		}
		kept[maxParts-1] = last + truncationNote
		return kept
	}
	return parts
}

// splitOversized breaks one section into pieces no larger than capacity,
// preferring line boundaries and falling back to byte cuts only for a
// single line that alone exceeds the capacity.
func splitOversized(section string, capacity int) []string {
	var pieces []string
	var current strings.Builder

	for _, line := range strings.Split(section, "\n") {
		if len(line) > capacity {
			if current.Len() > 0 {
				pieces = append(pieces, current.String())
				current.Reset()
			}
			for len(line) > capacity {
				pieces = append(pieces, line[:capacity])
				line = line[capacity:]
			}
			current.WriteString(line)
			continue
		}
		if current.Len() > 0 && current.Len()+1+len(line) > capacity {
			pieces = append(pieces, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		pieces = append(pieces, current.String())
	}
	return pieces
}

// truncateAt cuts the body to at most max bytes, at the last full line
// where possible.
func truncateAt(body string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(body) <= max {
		return body
	}
	cut := body[:max]
	if idx := strings.LastIndexByte(cut, '\n'); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, "\n")
}

// Render produces the full markdown body for a review result. The
// footer always reports model, token usage, and processing time; the
// iteration counter and chunk statistics appear only when relevant.
func (f *Formatter) Render(result *core.ReviewResult, offDiff []core.ReviewComment) string {
	var sb strings.Builder

	sb.WriteString("# Pull Request Review\n\n")
	fmt.Fprintf(&sb, "**Verdict:** %s %s\n", verdictEmoji(result.Summary.Verdict), verdictLabel(result.Summary.Verdict))
	fmt.Fprintf(&sb, "**Confidence:** %.0f%%\n", result.Summary.Confidence*100)

	if len(result.Summary.MainIssues) > 0 {
		sb.WriteString("\n## Main Issues\n\n")
		for _, issue := range result.Summary.MainIssues {
			fmt.Fprintf(&sb, "- %s\n", issue)
		}
	}

	if len(result.Summary.Positives) > 0 {
		sb.WriteString("\n## Highlights\n\n")
		for _, p := range result.Summary.Positives {
			fmt.Fprintf(&sb, "- %s\n", p)
		}
	}

	if result.OverallFeedback != "" {
		sb.WriteString("\n## Overall Feedback\n\n")
		sb.WriteString(result.OverallFeedback)
		sb.WriteString("\n")
	}

	if len(offDiff) > 0 {
		sb.WriteString("\n## General Findings\n\n")
		sb.WriteString("Findings on lines outside the diff:\n\n")
		for _, c := range offDiff {
			fmt.Fprintf(&sb, "- `%s:%d` %s %s: %s\n",
				c.Path, c.Line, severityEmoji(c.Severity), severityLabel(c.Severity), c.Body)
		}
	}

	if features := result.Metadata.Features; features != nil && features.Chunked {
		sb.WriteString("\n## Files\n\n")
		fmt.Fprintf(&sb, "Files reviewed: %d\n", features.FilesAnalyzed)
		fmt.Fprintf(&sb, "Files skipped: %d\n", features.FilesSkipped)
		if len(features.SkippedFiles) > 0 {
			sb.WriteString("\nSkipped (too large or not reached):\n")
			for _, path := range features.SkippedFiles {
				fmt.Fprintf(&sb, "- `%s`\n", path)
			}
		}
	}

	sb.WriteString("\n---\n")
	fmt.Fprintf(&sb, "*Reviewed by PR Sentinel | model %s | %d tokens | %s*\n",
		result.Metadata.Model,
		result.Metadata.TokensUsed,
		result.Metadata.ProcessingTime.Round(100*time.Millisecond),
	)
	if result.Metadata.ReviewIteration > 1 {
		fmt.Fprintf(&sb, "*Review iteration %d*\n", result.Metadata.ReviewIteration)
	}

	return sb.String()
}

// FormatComment renders one inline finding with a severity badge.
func FormatComment(c core.ReviewComment) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s %s**", severityEmoji(c.Severity), severityLabel(c.Severity))
	if c.Category != "" {
		fmt.Fprintf(&sb, " | %s", c.Category)
	}
	sb.WriteString("\n\n")
	sb.WriteString(c.Body)
	return sb.String()
}

func verdictLabel(v core.Verdict) string {
	switch v {
	case core.VerdictApprove:
		return "Approve"
	case core.VerdictRequestChanges:
		return "Request Changes"
	default:
		return "Comment"
	}
}

func verdictEmoji(v core.Verdict) string {
	switch v {
	case core.VerdictApprove:
		return "✅"
	case core.VerdictRequestChanges:
		return "🛑"
	default:
		return "💬"
	}
}

func severityLabel(s core.Severity) string {
	switch s {
	case core.SeverityCritical:
		return "Critical"
	case core.SeverityError:
		return "Error"
	case core.SeverityWarning:
		return "Warning"
	default:
		return "Info"
	}
}

func severityEmoji(s core.Severity) string {
	switch s {
	case core.SeverityCritical:
		return "🔴"
	case core.SeverityError:
		return "🟠"
	case core.SeverityWarning:
		return "🟡"
	default:
		return "🔵"
	}
}

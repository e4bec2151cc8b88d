package core

import "time"

// Verdict is the overall judgement of a review.
type Verdict string

const (
	VerdictApprove        Verdict = "approve"
	VerdictRequestChanges Verdict = "request_changes"
	VerdictComment        Verdict = "comment"
)

// Severity classifies a single finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Side identifies which side of the diff an inline comment targets.
type Side string

const (
	SideLeft  Side = "LEFT"
	SideRight Side = "RIGHT"
)

// ReviewComment is a single file/line-anchored finding.
type ReviewComment struct {
	Path     string   `json:"path"`
	Line     int      `json:"line"`
	Side     Side     `json:"side"`
	Body     string   `json:"body"`
	Severity Severity `json:"severity"`
	Category string   `json:"category,omitempty"`
}

// ReviewSummary carries the headline judgement of a generation pass.
type ReviewSummary struct {
	Verdict    Verdict  `json:"verdict"`
	Confidence float64  `json:"confidence"`
	MainIssues []string `json:"main_issues,omitempty"`
	Positives  []string `json:"positives,omitempty"`
}

// ChunkStats records how the chunked fallback fared. Present only when
// the whole-diff pass was too large and the per-file path ran.
type ChunkStats struct {
	Chunked       bool     `json:"chunked"`
	FilesAnalyzed int      `json:"files_analyzed"`
	FilesSkipped  int      `json:"files_skipped"`
	SkippedFiles  []string `json:"skipped_files,omitempty"`
}

// ReviewMetadata is carried into the published footer for transparency.
type ReviewMetadata struct {
	Model            string        `json:"model"`
	TokensUsed       int           `json:"tokens_used"`
	ProcessingTime   time.Duration `json:"processing_time"`
	ReviewIteration  int           `json:"review_iteration,omitempty"`
	PreviousReviewID int64         `json:"previous_review_id,omitempty"`
	Features         *ChunkStats   `json:"features,omitempty"`
}

// ReviewResult is the structured output of a single generation pass,
// whole-diff or aggregated from per-file chunks. Created fresh per
// attempt and never mutated after that.
type ReviewResult struct {
	Summary         ReviewSummary   `json:"summary"`
	Comments        []ReviewComment `json:"comments,omitempty"`
	OverallFeedback string          `json:"overall_feedback,omitempty"`
	Metadata        ReviewMetadata  `json:"metadata"`
}

// FormattedReview is the platform-ready rendering of a ReviewResult:
// one main body plus zero or more ordered continuation bodies, each
// within the platform comment-size limit.
type FormattedReview struct {
	MainBody           string
	ContinuationBodies []string
}

// severityRank orders severities for verdict aggregation. Higher wins.
func severityRank(s Severity) int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityError:
		return 2
	case SeverityWarning:
		return 1
	default:
		return 0
	}
}

// verdictRank mirrors severityRank for verdicts.
func verdictRank(v Verdict) int {
	switch v {
	case VerdictRequestChanges:
		return 2
	case VerdictComment:
		return 1
	default:
		return 0
	}
}

// MoreSevere reports whether a is a stronger verdict than b.
func MoreSevere(a, b Verdict) bool {
	return verdictRank(a) > verdictRank(b)
}

// VerdictForSeverity maps the worst finding severity onto a verdict.
// Ties between a severity-derived verdict and an explicit one break
// toward the more severe category.
func VerdictForSeverity(s Severity) Verdict {
	switch s {
	case SeverityCritical, SeverityError:
		return VerdictRequestChanges
	case SeverityWarning:
		return VerdictComment
	default:
		return VerdictApprove
	}
}

// MaxSeverity returns the most severe of the given severities, or
// SeverityInfo when the list is empty.
func MaxSeverity(severities []Severity) Severity {
	max := SeverityInfo
	for _, s := range severities {
		if severityRank(s) > severityRank(max) {
			max = s
		}
	}
	return max
}

// ReviewRecord is a published review persisted to the history store.
// The latest record per (repo, PR) drives the iteration counter in the
// next review's footer.
type ReviewRecord struct {
	ID           int64     `db:"id"`
	RepoFullName string    `db:"repo_full_name"`
	PRNumber     int       `db:"pr_number"`
	HeadSHA      string    `db:"head_sha"`
	Verdict      string    `db:"verdict"`
	Body         string    `db:"body"`
	Iteration    int       `db:"iteration"`
	CreatedAt    time.Time `db:"created_at"`
}

// ExistingBotReview is the most recent live review authored by the bot
// identity on a PR, looked up fresh before every publish.
type ExistingBotReview struct {
	ID          int64
	Body        string
	State       string
	SubmittedAt time.Time
}

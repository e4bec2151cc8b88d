package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/revware/pr-sentinel/internal/core"
)

// reviewPayload mirrors the JSON shape the prompts ask the model for.
type reviewPayload struct {
	Summary struct {
		Verdict    string   `json:"verdict"`
		Confidence float64  `json:"confidence"`
		MainIssues []string `json:"main_issues"`
		Positives  []string `json:"positives"`
	} `json:"summary"`
	Comments []struct {
		Path     string `json:"path"`
		Line     int    `json:"line"`
		Side     string `json:"side"`
		Body     string `json:"body"`
		Severity string `json:"severity"`
		Category string `json:"category"`
	} `json:"comments"`
	OverallFeedback string `json:"overall_feedback"`
}

// ParseReview extracts a structured review from the model's raw output.
// It tolerates the usual quirks: a ```json fence around the object,
// prose before or after it, and unknown verdict/severity spellings,
// which are normalized rather than rejected.
func ParseReview(raw string) (*core.ReviewResult, error) {
	jsonText, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var payload reviewPayload
	if err := json.Unmarshal([]byte(jsonText), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode model review: %w", err)
	}

	result := &core.ReviewResult{
		Summary: core.ReviewSummary{
			Verdict:    normalizeVerdict(payload.Summary.Verdict),
			Confidence: clampConfidence(payload.Summary.Confidence),
			MainIssues: payload.Summary.MainIssues,
			Positives:  payload.Summary.Positives,
		},
		OverallFeedback: strings.TrimSpace(payload.OverallFeedback),
	}

	for _, c := range payload.Comments {
		if c.Path == "" || c.Line <= 0 || strings.TrimSpace(c.Body) == "" {
			continue
		}
		side := core.SideRight
		if strings.EqualFold(c.Side, string(core.SideLeft)) {
			side = core.SideLeft
		}
		result.Comments = append(result.Comments, core.ReviewComment{
			Path:     strings.TrimPrefix(c.Path, "./"),
			Line:     c.Line,
			Side:     side,
			Body:     strings.TrimSpace(c.Body),
			Severity: normalizeSeverity(c.Severity),
			Category: strings.ToLower(strings.TrimSpace(c.Category)),
		})
	}

	return result, nil
}

// extractJSONObject returns the outermost {...} of the model output,
// stripping a wrapping markdown code fence if present.
func extractJSONObject(raw string) (string, error) {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		if idx := strings.Index(text, "\n"); idx != -1 {
			text = text[idx+1:]
		}
		if idx := strings.LastIndex(text, "```"); idx != -1 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("model output contains no JSON object")
	}
	return text[start : end+1], nil
}

func normalizeVerdict(v string) core.Verdict {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "approve", "approved", "lgtm":
		return core.VerdictApprove
	case "request_changes", "request changes", "changes_requested":
		return core.VerdictRequestChanges
	default:
		return core.VerdictComment
	}
}

func normalizeSeverity(s string) core.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical", "blocker":
		return core.SeverityCritical
	case "error", "high", "major":
		return core.SeverityError
	case "warning", "warn", "medium":
		return core.SeverityWarning
	default:
		return core.SeverityInfo
	}
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

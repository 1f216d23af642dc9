package compliance

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Severity of a single finding.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// ParseSeverity validates a raw severity value from the backend.
func ParseSeverity(raw string) (Severity, error) {
	switch s := Severity(strings.ToLower(raw)); s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return s, nil
	default:
		return "", fmt.Errorf("unknown severity: %q", raw)
	}
}

// Issue is one compliance finding. Issues are immutable once parsed and
// carry no identity beyond structural equality.
type Issue struct {
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
}

// SeverityCounts value object
type SeverityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
	Total  int `json:"total"`
}

// PassThreshold is the minimum score considered a passing check.
const PassThreshold = 70

// Report is the structured result of one successful analysis attempt.
// Issue order is the backend-provided order and is never re-sorted.
// Timestamp is stamped by the orchestrator at receipt time.
type Report struct {
	Score     int       `json:"score"`
	Issues    []Issue   `json:"issues"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
}

// Counts groups the report's issues by severity.
func (r *Report) Counts() SeverityCounts {
	var c SeverityCounts
	for _, is := range r.Issues {
		switch is.Severity {
		case SeverityHigh:
			c.High++
		case SeverityMedium:
			c.Medium++
		case SeverityLow:
			c.Low++
		}
		c.Total++
	}
	return c
}

func (r *Report) Passing() bool { return r.Score >= PassThreshold }

// Backends frequently wrap JSON output in prose or a markdown fence.
// Stripping one optional fence layer is the only normalization tolerated.
var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

func unfence(raw string) string {
	if m := fenceRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}

// ParseReport decodes a raw backend response into a Report. The decode is
// strict: a missing field, an ill-typed field, or an unknown severity fails
// the whole parse. An empty issues array is valid.
func ParseReport(raw string) (*Report, error) {
	var wire struct {
		Score   *int    `json:"score"`
		Summary *string `json:"summary"`
		Issues  *[]struct {
			Severity       string `json:"severity"`
			Description    string `json:"description"`
			Recommendation string `json:"recommendation"`
		} `json:"issues"`
	}
	if err := json.Unmarshal([]byte(unfence(raw)), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	switch {
	case wire.Score == nil:
		return nil, fmt.Errorf("%w: missing score", ErrParse)
	case wire.Issues == nil:
		return nil, fmt.Errorf("%w: missing issues", ErrParse)
	case wire.Summary == nil:
		return nil, fmt.Errorf("%w: missing summary", ErrParse)
	case *wire.Score < 0 || *wire.Score > 100:
		return nil, fmt.Errorf("%w: score %d out of range", ErrParse, *wire.Score)
	}

	issues := make([]Issue, 0, len(*wire.Issues))
	for i, wi := range *wire.Issues {
		sev, err := ParseSeverity(wi.Severity)
		if err != nil {
			return nil, fmt.Errorf("%w: issue %d: %v", ErrParse, i, err)
		}
		issues = append(issues, Issue{
			Severity:       sev,
			Description:    wi.Description,
			Recommendation: wi.Recommendation,
		})
	}

	return &Report{
		Score:   *wire.Score,
		Issues:  issues,
		Summary: *wire.Summary,
	}, nil
}

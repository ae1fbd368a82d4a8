// Package ai decodes model output into domain verdicts. Model responses are
// untyped text expected to contain a JSON object; decoding never fails the
// pipeline — an unparseable response is an explicit variant the caller
// replaces with a conservative fallback.
package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	domain "github.com/fixedyet/fixedyet/internal/domain/analysis"
)

// DecodedVerdict is the tagged result of parsing one model response. When OK
// is false the Raw text is preserved for logging and the caller must supply
// its own fallback verdict.
type DecodedVerdict struct {
	Verdict domain.Verdict
	Raw     string
	OK      bool
}

// wireVerdict accepts both the commit-shard and PR-shard field names.
type wireVerdict struct {
	Status             string        `json:"status"`
	Confidence         *int          `json:"confidence"`
	Reasoning          string        `json:"reasoning"`
	RelevantCommitShas []string      `json:"relevant_commit_shas"`
	RelevantPRNumbers  []json.Number `json:"relevant_pr_numbers"`
}

// DecodeVerdict parses one shard judgment. Missing fields get defaults and
// confidence is clamped into [0,100].
func DecodeVerdict(raw string) DecodedVerdict {
	var w wireVerdict
	if err := json.Unmarshal([]byte(stripFences(raw)), &w); err != nil {
		return DecodedVerdict{Raw: raw}
	}
	if w.Status == "" && w.Confidence == nil && w.Reasoning == "" &&
		len(w.RelevantCommitShas) == 0 && len(w.RelevantPRNumbers) == 0 {
		// an empty object carries no judgment
		return DecodedVerdict{Raw: raw}
	}

	v := domain.Verdict{
		Status:    domain.CoerceStatus(w.Status),
		Reasoning: w.Reasoning,
	}
	if w.Confidence != nil {
		v.Confidence = domain.ClampConfidence(*w.Confidence)
	}
	v.RelevantIDs = append(v.RelevantIDs, w.RelevantCommitShas...)
	for _, n := range w.RelevantPRNumbers {
		v.RelevantIDs = append(v.RelevantIDs, n.String())
	}
	return DecodedVerdict{Verdict: v, Raw: raw, OK: true}
}

// FallbackVerdict is the conservative verdict substituted for unparseable or
// failed model calls.
func FallbackVerdict(reason string) domain.Verdict {
	return domain.Verdict{
		Status:     domain.StatusUnknown,
		Confidence: 10,
		Reasoning:  fmt.Sprintf("Model response could not be interpreted: %s", reason),
	}
}

// DecodeKeywords parses the keyword-extraction response, returning at most
// five terms. Malformed output yields an empty list.
func DecodeKeywords(raw string) []string {
	var w struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &w); err != nil {
		return nil
	}
	var out []string
	for _, kw := range w.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		out = append(out, kw)
		if len(out) == 5 {
			break
		}
	}
	return out
}

// DecodeSummary parses the summary-compression response. Returns "" when the
// response carries no usable summary.
func DecodeSummary(raw string) string {
	var w struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(stripFences(raw)), &w); err != nil {
		return ""
	}
	return strings.TrimSpace(w.Summary)
}

// stripFences removes a markdown code fence if the model wrapped its JSON in
// one despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

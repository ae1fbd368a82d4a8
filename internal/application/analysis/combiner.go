package analysis

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"

	"github.com/fixedyet/fixedyet/internal/infra/ai"
	"github.com/fixedyet/fixedyet/internal/infra/ai/prompt"

	domain "github.com/fixedyet/fixedyet/internal/domain/analysis"
)

// summaryFallback is returned verbatim when the summary-compression call
// fails; a missing summary must never block the result.
const summaryFallback = "A summary could not be generated for this analysis; see the linked pull requests for details."

// CombineConfig holds the fixed verdict weights. PR-level signal is favored
// because PR bodies carry richer free-text context than commit messages.
type CombineConfig struct {
	CommitWeightPercent int
}

func DefaultCombineConfig() CombineConfig {
	return CombineConfig{CommitWeightPercent: 30}
}

// Combiner merges the commit-level and PR-level verdicts into the final
// result and produces one de-duplicated human-readable summary.
type Combiner struct {
	ai  domain.Completer
	cfg CombineConfig
}

func NewCombiner(completer domain.Completer, cfg CombineConfig) *Combiner {
	if cfg.CommitWeightPercent <= 0 || cfg.CommitWeightPercent >= 100 {
		cfg.CommitWeightPercent = 30
	}
	return &Combiner{ai: completer, cfg: cfg}
}

// Combine folds both verdicts. prs must be the pull requests actually
// fetched for this request; the relevant list is always a subset of it.
// When no PRs could be fetched the commit-level verdict stands alone.
func (c *Combiner) Combine(ctx context.Context, commitV, prV domain.Verdict, prs []domain.PullRequest) domain.CombinedResult {
	var status domain.Status
	var confidence int

	if len(prs) == 0 {
		status = commitV.Status
		confidence = domain.ClampConfidence(commitV.Confidence)
	} else {
		switch {
		case commitV.Status == domain.StatusFixed || prV.Status == domain.StatusFixed:
			status = domain.StatusFixed
		case commitV.Status == domain.StatusNotFixed && prV.Status == domain.StatusNotFixed:
			status = domain.StatusNotFixed
		default:
			status = domain.StatusUnknown
		}
		cw := c.cfg.CommitWeightPercent
		confidence = domain.ClampConfidence((commitV.Confidence*cw + prV.Confidence*(100-cw)) / 100)
	}

	relevant := relevantPRs(prV, prs)
	summary := c.summarize(ctx, commitV.Reasoning+"\n"+prV.Reasoning)
	summary = LinkPRRefs(summary, relevant)

	return domain.CombinedResult{
		Status:     status,
		Confidence: confidence,
		Summary:    summary,
		PRs:        relevant,
	}
}

// relevantPRs returns the fetched PRs whose number appears in the PR-side
// relevant-identifier list.
func relevantPRs(prV domain.Verdict, prs []domain.PullRequest) []domain.PullRequest {
	wanted := make(map[string]bool, len(prV.RelevantIDs))
	for _, id := range prV.RelevantIDs {
		wanted[id] = true
	}
	var out []domain.PullRequest
	for _, pr := range prs {
		if wanted[strconv.Itoa(pr.Number)] {
			out = append(out, pr)
		}
	}
	return out
}

// summarize compresses the raw concatenated reasoning into one short
// paragraph. Best-effort secondary call; failure yields a literal fallback.
func (c *Combiner) summarize(ctx context.Context, reasoning string) string {
	raw, err := c.ai.Complete(ctx, prompt.SummarySystemPrompt(), prompt.SummaryUserPrompt(reasoning))
	if err != nil {
		log.Printf("analysis: summary generation failed: %v", err)
		return summaryFallback
	}
	summary := ai.DecodeSummary(raw)
	if summary == "" {
		log.Printf("analysis: summary response carried no summary: %.200s", raw)
		return summaryFallback
	}
	return summary
}

var prTokenPattern = regexp.MustCompile(`#\d+`)

// LinkPRRefs resolves "#<number>" tokens in the summary to markdown links
// against the relevant-PR list. Unmatched tokens are left as-is.
func LinkPRRefs(summary string, prs []domain.PullRequest) string {
	if summary == "" {
		return summary
	}
	byNumber := make(map[int]domain.PullRequest, len(prs))
	for _, pr := range prs {
		byNumber[pr.Number] = pr
	}
	return prTokenPattern.ReplaceAllStringFunc(summary, func(match string) string {
		n, err := strconv.Atoi(match[1:])
		if err != nil {
			return match
		}
		pr, ok := byNumber[n]
		if !ok {
			return match
		}
		return fmt.Sprintf("[%s](%s)", match, pr.URL)
	})
}

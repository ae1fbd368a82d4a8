package analysis

import (
	"context"
	"log"

	"github.com/fixedyet/fixedyet/internal/infra/ai"
	"github.com/fixedyet/fixedyet/internal/infra/ai/prompt"

	domain "github.com/fixedyet/fixedyet/internal/domain/analysis"
)

// ShardConfig bounds how much input one model call may carry. PR bodies are
// much larger than commit messages, hence the smaller PR batches.
type ShardConfig struct {
	CommitBatchSize int
	PRBatchSize     int
}

func DefaultShardConfig() ShardConfig {
	return ShardConfig{CommitBatchSize: 100, PRBatchSize: 5}
}

// Analyzer evaluates relevance of large commit/PR sets against an issue
// description without exceeding model context limits. Input is partitioned
// into contiguous batches, one model judgment per batch dispatched in
// parallel, and the partial verdicts are folded as they complete.
type Analyzer struct {
	ai  domain.Completer
	cfg ShardConfig
}

func NewAnalyzer(completer domain.Completer, cfg ShardConfig) *Analyzer {
	if cfg.CommitBatchSize <= 0 {
		cfg.CommitBatchSize = 100
	}
	if cfg.PRBatchSize <= 0 {
		cfg.PRBatchSize = 5
	}
	return &Analyzer{ai: completer, cfg: cfg}
}

// AnalyzeCommits judges one batch of commit messages per model call.
func (a *Analyzer) AnalyzeCommits(ctx context.Context, description string, commits []domain.Commit) domain.Verdict {
	if len(commits) == 0 {
		return domain.Verdict{
			Status:     domain.StatusNotFixed,
			Confidence: 30,
			Reasoning:  "No commits matched the search window and keywords.",
		}
	}

	bounds := batchBounds(len(commits), a.cfg.CommitBatchSize)
	return a.dispatch(ctx, len(bounds), func(i int) domain.Verdict {
		batch := commits[bounds[i][0]:bounds[i][1]]
		return a.judge(ctx, prompt.CommitAnalysisSystemPrompt(), prompt.CommitAnalysisUserPrompt(description, batch))
	})
}

// AnalyzePullRequests judges one batch of pull requests per model call.
func (a *Analyzer) AnalyzePullRequests(ctx context.Context, description string, prs []domain.PullRequest) domain.Verdict {
	if len(prs) == 0 {
		return domain.Verdict{
			Status:     domain.StatusUnknown,
			Confidence: 0,
			Reasoning:  "No pull requests were available to analyze.",
		}
	}

	bounds := batchBounds(len(prs), a.cfg.PRBatchSize)
	return a.dispatch(ctx, len(bounds), func(i int) domain.Verdict {
		batch := prs[bounds[i][0]:bounds[i][1]]
		return a.judge(ctx, prompt.PRAnalysisSystemPrompt(), prompt.PRAnalysisUserPrompt(description, batch))
	})
}

// judge runs one model call and recovers malformed output into the
// conservative fallback; a shard never aborts the phase.
func (a *Analyzer) judge(ctx context.Context, system, user string) domain.Verdict {
	raw, err := a.ai.Complete(ctx, system, user)
	if err != nil {
		log.Printf("analysis: shard completion failed: %v", err)
		return ai.FallbackVerdict(err.Error())
	}
	decoded := ai.DecodeVerdict(raw)
	if !decoded.OK {
		log.Printf("analysis: unparseable shard response: %.200s", decoded.Raw)
		return ai.FallbackVerdict("unparseable JSON")
	}
	return decoded.Verdict
}

// dispatch fans out one goroutine per shard and folds verdicts in completion
// order. All shards for the phase run concurrently and the phase waits for
// all of them: a join barrier, so wall-clock latency is bounded by the
// slowest batch rather than the sum.
func (a *Analyzer) dispatch(ctx context.Context, n int, call func(i int) domain.Verdict) domain.Verdict {
	ch := make(chan domain.Verdict, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			ch <- call(i)
		}(i)
	}

	var agg domain.Verdict
	anyFixed := false
	allNotFixed := true
	conf := 0.0
	reasons := make([]string, 0, n)

	for i := 0; i < n; i++ {
		v := <-ch
		if v.Status == domain.StatusFixed {
			anyFixed = true
		}
		if v.Status != domain.StatusNotFixed {
			allNotFixed = false
		}
		// Running average in completion order. Every shard carries equal
		// weight regardless of batch size, so a remainder batch counts as
		// much as a full one; kept as-is to preserve existing score
		// calibration.
		conf = (conf*float64(i) + float64(v.Confidence)) / float64(i+1)
		if v.Reasoning != "" {
			reasons = append(reasons, v.Reasoning)
		}
		agg.RelevantIDs = append(agg.RelevantIDs, v.RelevantIDs...)
	}

	switch {
	case anyFixed:
		agg.Status = domain.StatusFixed
	case allNotFixed:
		agg.Status = domain.StatusNotFixed
	default:
		agg.Status = domain.StatusUnknown
	}
	agg.Confidence = domain.ClampConfidence(int(conf + 0.5))
	agg.Reasoning = joinLines(reasons)
	return agg
}

// batchBounds partitions n items into contiguous [start,end) batches.
func batchBounds(n, size int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

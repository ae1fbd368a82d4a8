package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/fixedyet/fixedyet/internal/domain/analysis"
)

// fakeCompleter answers model calls from a function and counts them. Calls
// may arrive concurrently.
type fakeCompleter struct {
	mu      sync.Mutex
	calls   int
	respond func(system, user string) (string, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.respond(system, user)
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func makeCommits(n int) []domain.Commit {
	out := make([]domain.Commit, n)
	for i := range out {
		out[i] = domain.Commit{SHA: fmt.Sprintf("sha-%d", i), Message: fmt.Sprintf("commit %d", i)}
	}
	return out
}

func TestAnalyzeCommitsShardsBySize(t *testing.T) {
	fake := &fakeCompleter{respond: func(system, user string) (string, error) {
		return `{"status":"not_fixed","confidence":40,"reasoning":"nothing relevant","relevant_commit_shas":[]}`, nil
	}}
	a := NewAnalyzer(fake, ShardConfig{CommitBatchSize: 100, PRBatchSize: 5})

	v := a.AnalyzeCommits(context.Background(), "crash on startup", makeCommits(250))

	assert.Equal(t, 3, fake.callCount(), "250 commits at batch size 100 should produce 3 calls")
	assert.Equal(t, domain.StatusNotFixed, v.Status)
	assert.Equal(t, 40, v.Confidence)
	assert.Empty(t, v.RelevantIDs)
}

func TestAnalyzeCommitsAnyFixedWins(t *testing.T) {
	// One shard finds the fix, the other does not. The fixed shard must win
	// regardless of completion order, and confidence is the mean of shards.
	fake := &fakeCompleter{respond: func(system, user string) (string, error) {
		if strings.Contains(user, "sha-150") {
			return `{"status":"fixed","confidence":80,"reasoning":"sha-150 addresses the crash","relevant_commit_shas":["sha-150"]}`, nil
		}
		return `{"status":"not_fixed","confidence":40,"reasoning":"nothing relevant","relevant_commit_shas":[]}`, nil
	}}
	a := NewAnalyzer(fake, ShardConfig{CommitBatchSize: 100, PRBatchSize: 5})

	v := a.AnalyzeCommits(context.Background(), "crash on startup", makeCommits(200))

	assert.Equal(t, domain.StatusFixed, v.Status)
	assert.Equal(t, 60, v.Confidence)
	assert.Equal(t, []string{"sha-150"}, v.RelevantIDs)
	assert.Contains(t, v.Reasoning, "sha-150 addresses the crash")
	assert.Contains(t, v.Reasoning, "nothing relevant")
}

func TestAnalyzeCommitsMixedStatusesYieldUnknown(t *testing.T) {
	fake := &fakeCompleter{respond: func(system, user string) (string, error) {
		if strings.Contains(user, "sha-0 ") {
			return `{"status":"unknown","confidence":50,"reasoning":"unclear"}`, nil
		}
		return `{"status":"not_fixed","confidence":50,"reasoning":"nothing"}`, nil
	}}
	a := NewAnalyzer(fake, ShardConfig{CommitBatchSize: 100, PRBatchSize: 5})

	v := a.AnalyzeCommits(context.Background(), "crash", makeCommits(200))
	assert.Equal(t, domain.StatusUnknown, v.Status)
}

func TestAnalyzeCommitsEmptyInput(t *testing.T) {
	fake := &fakeCompleter{respond: func(system, user string) (string, error) {
		t.Fatal("no model call expected for empty input")
		return "", nil
	}}
	a := NewAnalyzer(fake, DefaultShardConfig())

	v := a.AnalyzeCommits(context.Background(), "crash", nil)

	assert.Equal(t, domain.StatusNotFixed, v.Status)
	assert.Equal(t, 30, v.Confidence)
	assert.NotEmpty(t, v.Reasoning)
}

func TestAnalyzePullRequestsEmptyInput(t *testing.T) {
	fake := &fakeCompleter{respond: func(system, user string) (string, error) {
		t.Fatal("no model call expected for empty input")
		return "", nil
	}}
	a := NewAnalyzer(fake, DefaultShardConfig())

	v := a.AnalyzePullRequests(context.Background(), "crash", nil)

	assert.Equal(t, domain.StatusUnknown, v.Status)
	assert.Equal(t, 0, v.Confidence)
}

func TestAnalyzePullRequestsShardsBySize(t *testing.T) {
	fake := &fakeCompleter{respond: func(system, user string) (string, error) {
		return `{"status":"fixed","confidence":70,"reasoning":"pr fixes it","relevant_pr_numbers":[12]}`, nil
	}}
	a := NewAnalyzer(fake, ShardConfig{CommitBatchSize: 100, PRBatchSize: 5})

	prs := make([]domain.PullRequest, 12)
	for i := range prs {
		prs[i] = domain.PullRequest{Number: i + 1, Title: fmt.Sprintf("pr %d", i+1)}
	}
	v := a.AnalyzePullRequests(context.Background(), "crash", prs)

	assert.Equal(t, 3, fake.callCount(), "12 PRs at batch size 5 should produce 3 calls")
	assert.Equal(t, domain.StatusFixed, v.Status)
	assert.Equal(t, []string{"12", "12", "12"}, v.RelevantIDs)
}

func TestAnalyzeCommitsMalformedResponseFallsBack(t *testing.T) {
	fake := &fakeCompleter{respond: func(system, user string) (string, error) {
		return "I cannot answer in JSON, sorry.", nil
	}}
	a := NewAnalyzer(fake, DefaultShardConfig())

	v := a.AnalyzeCommits(context.Background(), "crash", makeCommits(10))

	assert.Equal(t, domain.StatusUnknown, v.Status)
	assert.Equal(t, 10, v.Confidence)
	assert.Contains(t, v.Reasoning, "could not be interpreted")
}

func TestBatchBounds(t *testing.T) {
	bounds := batchBounds(250, 100)
	require.Len(t, bounds, 3)
	assert.Equal(t, [2]int{0, 100}, bounds[0])
	assert.Equal(t, [2]int{100, 200}, bounds[1])
	assert.Equal(t, [2]int{200, 250}, bounds[2])

	assert.Len(t, batchBounds(100, 100), 1)
	assert.Len(t, batchBounds(101, 100), 2)
	assert.Empty(t, batchBounds(0, 100))
}

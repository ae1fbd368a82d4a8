package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/fixedyet/fixedyet/internal/domain/analysis"
)

func summaryCompleter(summary string) *fakeCompleter {
	return &fakeCompleter{respond: func(system, user string) (string, error) {
		return `{"summary":"` + summary + `"}`, nil
	}}
}

func TestCombineWeightsConfidence(t *testing.T) {
	c := NewCombiner(summaryCompleter("done"), DefaultCombineConfig())

	commitV := domain.Verdict{Status: domain.StatusFixed, Confidence: 100, Reasoning: "commit side"}
	prV := domain.Verdict{Status: domain.StatusNotFixed, Confidence: 0, Reasoning: "pr side"}
	prs := []domain.PullRequest{{Number: 1, Title: "fix", URL: "https://github.com/x/y/pull/1"}}

	res := c.Combine(context.Background(), commitV, prV, prs)

	assert.Equal(t, domain.StatusFixed, res.Status)
	assert.Equal(t, 30, res.Confidence, "30% commit weight of 100 plus 70% of 0")
}

func TestCombineStatusPrecedence(t *testing.T) {
	cases := []struct {
		name   string
		commit domain.Status
		pr     domain.Status
		want   domain.Status
	}{
		{"commit fixed wins", domain.StatusFixed, domain.StatusNotFixed, domain.StatusFixed},
		{"pr fixed wins", domain.StatusNotFixed, domain.StatusFixed, domain.StatusFixed},
		{"both not fixed", domain.StatusNotFixed, domain.StatusNotFixed, domain.StatusNotFixed},
		{"unknown dominates not fixed", domain.StatusUnknown, domain.StatusNotFixed, domain.StatusUnknown},
		{"both unknown", domain.StatusUnknown, domain.StatusUnknown, domain.StatusUnknown},
	}

	prs := []domain.PullRequest{{Number: 1}}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCombiner(summaryCompleter("done"), DefaultCombineConfig())
			res := c.Combine(context.Background(),
				domain.Verdict{Status: tc.commit, Confidence: 50},
				domain.Verdict{Status: tc.pr, Confidence: 50},
				prs)
			assert.Equal(t, tc.want, res.Status)
		})
	}
}

func TestCombineNoPRsKeepsCommitVerdict(t *testing.T) {
	c := NewCombiner(summaryCompleter("done"), DefaultCombineConfig())

	commitV := domain.Verdict{Status: domain.StatusUnknown, Confidence: 55, Reasoning: "only commits"}
	prV := domain.Verdict{Status: domain.StatusUnknown, Confidence: 0}

	res := c.Combine(context.Background(), commitV, prV, nil)

	assert.Equal(t, domain.StatusUnknown, res.Status)
	assert.Equal(t, 55, res.Confidence)
	assert.Empty(t, res.PRs)
}

func TestCombineRelevantPRSubset(t *testing.T) {
	c := NewCombiner(summaryCompleter("done"), DefaultCombineConfig())

	prs := []domain.PullRequest{{Number: 1}, {Number: 2}, {Number: 3}}
	prV := domain.Verdict{Status: domain.StatusFixed, Confidence: 80, RelevantIDs: []string{"2", "999"}}

	res := c.Combine(context.Background(), domain.Verdict{Status: domain.StatusNotFixed, Confidence: 40}, prV, prs)

	require.Len(t, res.PRs, 1)
	assert.Equal(t, 2, res.PRs[0].Number)
}

func TestCombineSummaryFallback(t *testing.T) {
	fake := &fakeCompleter{respond: func(system, user string) (string, error) {
		return "", errors.New("model unavailable")
	}}
	c := NewCombiner(fake, DefaultCombineConfig())

	res := c.Combine(context.Background(),
		domain.Verdict{Status: domain.StatusFixed, Confidence: 80},
		domain.Verdict{Status: domain.StatusFixed, Confidence: 80},
		[]domain.PullRequest{{Number: 1}})

	assert.Equal(t, summaryFallback, res.Summary)
	assert.Equal(t, domain.StatusFixed, res.Status, "missing summary must not change the verdict")
}

func TestCombineLinksPRReferencesInSummary(t *testing.T) {
	c := NewCombiner(summaryCompleter("Fixed by #42 in the 8.2.0 release."), DefaultCombineConfig())

	prs := []domain.PullRequest{{Number: 42, URL: "https://github.com/getsentry/sentry-javascript/pull/42"}}
	prV := domain.Verdict{Status: domain.StatusFixed, Confidence: 90, RelevantIDs: []string{"42"}}

	res := c.Combine(context.Background(), domain.Verdict{Status: domain.StatusFixed, Confidence: 70}, prV, prs)

	assert.Contains(t, res.Summary, "[#42](https://github.com/getsentry/sentry-javascript/pull/42)")
}

func TestLinkPRRefs(t *testing.T) {
	prs := []domain.PullRequest{
		{Number: 10, URL: "https://example.com/pull/10"},
	}

	assert.Equal(t,
		"see [#10](https://example.com/pull/10) and #11",
		LinkPRRefs("see #10 and #11", prs),
		"unknown references stay as plain text")
	assert.Equal(t, "", LinkPRRefs("", prs))
	assert.Equal(t, "no refs here", LinkPRRefs("no refs here", nil))
}

package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	gh "github.com/google/go-github/v39/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/fixedyet/fixedyet/internal/domain/analysis"
)

// testGHClient points a go-github client at a local test server.
func testGHClient(t *testing.T, srv *httptest.Server) *gh.Client {
	t.Helper()
	c := gh.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	c.BaseURL = base
	return c
}

func TestSplitRepo(t *testing.T) {
	owner, name, err := splitRepo("getsentry/sentry-go")
	require.NoError(t, err)
	assert.Equal(t, "getsentry", owner)
	assert.Equal(t, "sentry-go", name)

	for _, slug := range []string{"", "no-slash", "/name", "owner/"} {
		_, _, err := splitRepo(slug)
		assert.Error(t, err, "slug %q", slug)
	}
}

func TestFilterByKeywords(t *testing.T) {
	commits := []domain.Commit{
		{SHA: "a", Message: "fix(replay): Breadcrumb handling"},
		{SHA: "b", Message: "chore: bump deps"},
		{SHA: "c", Message: "fix memory LEAK in session tracking"},
	}

	out := filterByKeywords(commits, []string{"breadcrumb", "leak"})
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].SHA)
	assert.Equal(t, "c", out[1].SHA)

	assert.Equal(t, commits, filterByKeywords(commits, nil), "no keywords means no narrowing")
	assert.Empty(t, filterByKeywords(commits, []string{"nomatch"}))
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, isRateLimited(&gh.RateLimitError{}))
	assert.True(t, isRateLimited(&gh.AbuseRateLimitError{}))
	assert.False(t, isRateLimited(errors.New("boom")))
	assert.False(t, isRateLimited(nil))
}

func TestWithRetryRetriesOnceOnRateLimit(t *testing.T) {
	c := &Client{backoff: time.Millisecond, now: time.Now}

	calls := 0
	err := c.withRetry(context.Background(), func() error {
		calls++
		if calls == 1 {
			return &gh.RateLimitError{}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetryDoesNotRetryOtherErrors(t *testing.T) {
	c := &Client{backoff: time.Millisecond, now: time.Now}

	calls := 0
	boom := errors.New("boom")
	err := c.withRetry(context.Background(), func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestWithRetryGivesUpAfterSecondRateLimit(t *testing.T) {
	c := &Client{backoff: time.Millisecond, now: time.Now}

	calls := 0
	err := c.withRetry(context.Background(), func() error {
		calls++
		return &gh.RateLimitError{}
	})
	assert.True(t, isRateLimited(err))
	assert.Equal(t, 2, calls, "exactly one retry")
}

func TestSearchCommitsDegradesToAnonymous(t *testing.T) {
	authed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bad credentials"}`, http.StatusUnauthorized)
	}))
	defer authed.Close()

	anon := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/commits", r.URL.Path)
		assert.Equal(t, "repo:x/y breadcrumb leak", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"total_count":1,"incomplete_results":false,"items":[{"sha":"abc123","html_url":"https://github.com/x/y/commit/abc123","commit":{"message":"fix(replay): stop leaking breadcrumbs","author":{"date":"2024-05-01T10:00:00Z"}}}]}`)
	}))
	defer anon.Close()

	c := &Client{
		api:     testGHClient(t, authed),
		anon:    testGHClient(t, anon),
		backoff: time.Millisecond,
		now:     time.Now,
	}

	commits, err := c.SearchCommits(context.Background(), "x/y", "breadcrumb leak")
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "abc123", commits[0].SHA)
	assert.Equal(t, "fix(replay): stop leaking breadcrumbs", commits[0].Message)
}

func TestSearchCommitsReturnsEmptyOnExhaustion(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	}))
	defer broken.Close()

	c := &Client{
		api:     testGHClient(t, broken),
		anon:    testGHClient(t, broken),
		backoff: time.Millisecond,
		now:     time.Now,
	}

	commits, err := c.SearchCommits(context.Background(), "x/y", "leak")
	require.NoError(t, err, "search exhaustion degrades to empty, never an error")
	assert.Empty(t, commits)
}

func TestWithRetryHonorsContextDuringBackoff(t *testing.T) {
	c := &Client{backoff: time.Hour, now: time.Now}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := c.withRetry(ctx, func() error {
		calls++
		return &gh.RateLimitError{}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

package github

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	gh "github.com/google/go-github/v39/github"
	"golang.org/x/oauth2"

	domain "github.com/fixedyet/fixedyet/internal/domain/analysis"
)

const (
	pageSize      = 100
	maxTags       = 1000
	maxCommits    = 20000
	retryBackoff  = 2 * time.Second
	versionLookup = 365 // fallback window in days when no tag matches
)

// Client wraps the GitHub API for the analysis pipeline. It holds an
// authenticated client plus an anonymous one used to degrade pure search
// when authenticated search is rejected.
type Client struct {
	api     *gh.Client
	anon    *gh.Client
	backoff time.Duration
	now     func() time.Time
}

func NewClient(token string) *Client {
	ctx := context.Background()
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)

	return &Client{
		api:     gh.NewClient(tc),
		anon:    gh.NewClient(nil),
		backoff: retryBackoff,
		now:     time.Now,
	}
}

// splitRepo splits an "owner/name" slug.
func splitRepo(repo string) (string, string, error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo slug: %q", repo)
	}
	return parts[0], parts[1], nil
}

// isRateLimited reports whether err is a GitHub rate/abuse limit response.
func isRateLimited(err error) bool {
	switch err.(type) {
	case *gh.RateLimitError, *gh.AbuseRateLimitError:
		return true
	}
	return false
}

// withRetry runs fn, and on a rate-limit response waits a fixed short
// backoff and retries once.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if !isRateLimited(err) {
		return err
	}
	log.Printf("github: rate limited, retrying after %s", c.backoff)
	select {
	case <-time.After(c.backoff):
	case <-ctx.Done():
		return ctx.Err()
	}
	return fn()
}

// ListTags returns tags newest first, paginated to a hard cap so a repo with
// tens of thousands of tags cannot run the quota dry. Tag listing is
// essential: failure surfaces as ErrTagListUnavailable.
func (c *Client) ListTags(ctx context.Context, repo string) ([]domain.Tag, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	var out []domain.Tag
	opts := &gh.ListOptions{PerPage: pageSize}
	for len(out) < maxTags {
		var tags []*gh.RepositoryTag
		var resp *gh.Response
		err := c.withRetry(ctx, func() error {
			var apiErr error
			tags, resp, apiErr = c.api.Repositories.ListTags(ctx, owner, name, opts)
			return apiErr
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrTagListUnavailable, err)
		}
		for _, t := range tags {
			out = append(out, domain.Tag{Name: t.GetName(), SHA: t.GetCommit().GetSHA()})
		}
		if resp.NextPage == 0 || len(tags) < pageSize {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// ResolveVersionDate resolves a version string to the author date of its tag
// commit. Tries the literal string plus common prefix variants; when no
// variant resolves, falls back to one year ago rather than failing the whole
// pipeline. The fallback is a deliberate approximation with lower confidence
// downstream.
func (c *Client) ResolveVersionDate(ctx context.Context, repo, version string) (time.Time, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return time.Time{}, err
	}

	tags, err := c.ListTags(ctx, repo)
	if err != nil {
		return time.Time{}, err
	}

	variants := []string{version, "v" + version, strings.TrimPrefix(version, "v")}
	var sha string
	for _, v := range variants {
		for _, t := range tags {
			if t.Name == v {
				sha = t.SHA
				break
			}
		}
		if sha != "" {
			break
		}
	}
	if sha == "" {
		log.Printf("github: no tag matches version %q in %s, falling back to one year ago", version, repo)
		return c.now().AddDate(0, 0, -versionLookup), nil
	}

	var commit *gh.RepositoryCommit
	err = c.withRetry(ctx, func() error {
		var apiErr error
		commit, _, apiErr = c.api.Repositories.GetCommit(ctx, owner, name, sha, nil)
		return apiErr
	})
	if err != nil {
		log.Printf("github: resolving tag commit %s failed: %v, falling back to one year ago", sha, err)
		return c.now().AddDate(0, 0, -versionLookup), nil
	}
	return commit.GetCommit().GetAuthor().GetDate(), nil
}

// CommitsSince retrieves all commits after since, fully paginated up to a
// generous safety cap. When keywords are given the listing is narrowed
// client-side to messages containing any of them. On rate-limit exhaustion
// the partial result collected so far is returned rather than an error.
func (c *Client) CommitsSince(ctx context.Context, repo string, since time.Time, keywords []string) ([]domain.Commit, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	var all []domain.Commit
	opts := &gh.CommitsListOptions{
		Since:       since,
		ListOptions: gh.ListOptions{PerPage: pageSize},
	}
	for {
		var commits []*gh.RepositoryCommit
		var resp *gh.Response
		err := c.withRetry(ctx, func() error {
			var apiErr error
			commits, resp, apiErr = c.api.Repositories.ListCommits(ctx, owner, name, opts)
			return apiErr
		})
		if err != nil {
			log.Printf("github: commit listing for %s degraded after %d commits: %v", repo, len(all), err)
			return filterByKeywords(all, keywords), nil
		}
		for _, rc := range commits {
			all = append(all, domain.Commit{
				SHA:        rc.GetSHA(),
				Message:    rc.GetCommit().GetMessage(),
				AuthoredAt: rc.GetCommit().GetAuthor().GetDate(),
				URL:        rc.GetHTMLURL(),
			})
		}
		if len(all) >= maxCommits {
			// never truncate silently
			log.Printf("github: commit cap of %d reached for %s since %s", maxCommits, repo, since.Format("2006-01-02"))
			break
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return filterByKeywords(all, keywords), nil
}

func filterByKeywords(commits []domain.Commit, keywords []string) []domain.Commit {
	if len(keywords) == 0 {
		return commits
	}
	out := make([]domain.Commit, 0, len(commits))
	for _, c := range commits {
		msg := strings.ToLower(c.Message)
		for _, kw := range keywords {
			if kw != "" && strings.Contains(msg, strings.ToLower(kw)) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// SearchCommits searches commit messages by query. When the authenticated
// search is rejected it degrades to the unauthenticated client; on
// exhaustion it returns an empty result rather than propagating failure.
func (c *Client) SearchCommits(ctx context.Context, repo, query string) ([]domain.Commit, error) {
	q := fmt.Sprintf("repo:%s %s", repo, query)
	opts := &gh.SearchOptions{ListOptions: gh.ListOptions{PerPage: pageSize}}

	var res *gh.CommitsSearchResult
	err := c.withRetry(ctx, func() error {
		var apiErr error
		res, _, apiErr = c.api.Search.Commits(ctx, q, opts)
		return apiErr
	})
	if err != nil {
		log.Printf("github: authenticated commit search failed (%v), degrading to unauthenticated", err)
		res, _, err = c.anon.Search.Commits(ctx, q, opts)
		if err != nil {
			log.Printf("github: unauthenticated commit search failed: %v", err)
			return nil, nil
		}
	}

	out := make([]domain.Commit, 0, len(res.Commits))
	for _, cr := range res.Commits {
		out = append(out, domain.Commit{
			SHA:        cr.GetSHA(),
			Message:    cr.GetCommit().GetMessage(),
			AuthoredAt: cr.GetCommit().GetAuthor().GetDate(),
			URL:        cr.GetHTMLURL(),
		})
	}
	return out, nil
}

// GetPullRequest returns nil when the PR does not exist. Transient failures
// degrade to nil as well; a single missing PR must not abort the pipeline.
func (c *Client) GetPullRequest(ctx context.Context, repo string, number int) (*domain.PullRequest, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	var pr *gh.PullRequest
	err = c.withRetry(ctx, func() error {
		var apiErr error
		pr, _, apiErr = c.api.PullRequests.Get(ctx, owner, name, number)
		return apiErr
	})
	if err != nil {
		if er, ok := err.(*gh.ErrorResponse); ok && er.Response != nil && er.Response.StatusCode == 404 {
			return nil, nil
		}
		log.Printf("github: fetching PR #%d failed: %v", number, err)
		return nil, nil
	}

	out := &domain.PullRequest{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		Body:   pr.GetBody(),
		URL:    pr.GetHTMLURL(),
	}
	if m := pr.MergedAt; m != nil {
		out.MergedAt = m
	}
	return out, nil
}

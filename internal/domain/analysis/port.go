package analysis

import (
	"context"
	"time"
)

// GitClient port (interface for the source-control provider)
type GitClient interface {
	// ListTags returns tags newest first, up to a hard cap.
	ListTags(ctx context.Context, repo string) ([]Tag, error)
	// ResolveVersionDate resolves a version string to the author date of its
	// tag commit, falling back to an approximate date when no tag matches.
	ResolveVersionDate(ctx context.Context, repo, version string) (time.Time, error)
	// CommitsSince returns all commits after since, optionally narrowed to
	// messages containing any of the keywords.
	CommitsSince(ctx context.Context, repo string, since time.Time, keywords []string) ([]Commit, error)
	// SearchCommits queries the provider's commit search index. Exhaustion
	// yields an empty result, not an error.
	SearchCommits(ctx context.Context, repo, query string) ([]Commit, error)
	// GetPullRequest returns nil when the PR does not exist.
	GetPullRequest(ctx context.Context, repo string, number int) (*PullRequest, error)
	// ExtractPRNumbers scans commit messages for bracket-style PR references.
	ExtractPRNumbers(commits []Commit) []int
}

// Completer port (interface for the LLM provider)
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// RequestRepository port (persistence for requests and results)
type RequestRepository interface {
	SaveRequest(ctx context.Context, r *Request) error
	SaveResult(ctx context.Context, res *Result) error
	History(ctx context.Context, limit int) ([]*HistoryEntry, error)
}

// ArtifactStore port (raw analysis bundles for audit)
type ArtifactStore interface {
	SaveAnalysisArtifact(ctx context.Context, requestID RequestID, payload any) (string, error)
}

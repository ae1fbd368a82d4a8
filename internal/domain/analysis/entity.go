package analysis

import (
	"time"
)

// RequestID tipe for analysis requests (UUID, usually client generated)
type RequestID string

// Status enum
type Status string

const (
	StatusFixed    Status = "fixed"
	StatusNotFixed Status = "not_fixed"
	StatusUnknown  Status = "unknown"
)

// CoerceStatus maps arbitrary model output onto the three valid states.
func CoerceStatus(s string) Status {
	switch Status(s) {
	case StatusFixed, StatusNotFixed, StatusUnknown:
		return Status(s)
	}
	return StatusUnknown
}

// ClampConfidence bounds a confidence score into [0,100].
func ClampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Request is one user submission. Immutable once created.
type Request struct {
	ID          RequestID `json:"id"`
	SDK         string    `json:"sdk"`
	Version     string    `json:"version"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Tag is a repository tag with its underlying commit.
type Tag struct {
	Name string `json:"name"`
	SHA  string `json:"sha"`
}

// Commit as retrieved from the source-control provider. Never mutated locally.
type Commit struct {
	SHA        string    `json:"sha"`
	Message    string    `json:"message"`
	AuthoredAt time.Time `json:"authored_at"`
	URL        string    `json:"url"`
}

// PullRequest is fetched lazily, one per referenced number.
type PullRequest struct {
	Number   int        `json:"number"`
	Title    string     `json:"title"`
	Body     string     `json:"body,omitempty"`
	URL      string     `json:"url"`
	MergedAt *time.Time `json:"merged_at,omitempty"`
}

// Verdict is produced by one model call (per shard) and by the shard fold.
// RelevantIDs holds commit SHAs for commit verdicts and PR numbers (as
// decimal strings) for pull-request verdicts.
type Verdict struct {
	Status      Status   `json:"status"`
	Confidence  int      `json:"confidence"`
	Reasoning   string   `json:"reasoning"`
	RelevantIDs []string `json:"relevant_ids"`
}

// CombinedResult is the durable output of one analysis run.
type CombinedResult struct {
	Status     Status        `json:"status"`
	Confidence int           `json:"confidence"`
	Summary    string        `json:"summary"`
	PRs        []PullRequest `json:"prs"`
}

// Result is the persisted row for a completed analysis.
type Result struct {
	RequestID  RequestID     `json:"request_id"`
	Status     Status        `json:"status"`
	Confidence int           `json:"confidence"`
	Summary    string        `json:"summary"`
	PRs        []PullRequest `json:"prs"`
	CreatedAt  time.Time     `json:"created_at"`
}

// HistoryEntry pairs a request with its result for the history listing.
type HistoryEntry struct {
	Request Request `json:"request"`
	Result  *Result `json:"result,omitempty"`
}

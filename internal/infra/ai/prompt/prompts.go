package prompt

import (
	"fmt"
	"strings"

	domain "github.com/fixedyet/fixedyet/internal/domain/analysis"
)

// KeywordSystemPrompt provides strict directions and schema for JSON output.
func KeywordSystemPrompt() string {
	return `You are an assistant that derives source-control search terms from software bug reports. You must produce one valid JSON object only (no markdown, no commentary). Do not include code fences.

Requirements:
- Output must be a single JSON object.
- keywords is an array of 1 to 5 short lowercase terms likely to appear in commit messages fixing the described issue.
- Prefer concrete technical nouns (API names, feature names, error fragments) over generic words like "bug" or "fix".

Schema (example with empty values):
{
  "keywords": ["<string>"]
}`
}

// KeywordUserPrompt builds the user message around the issue description.
func KeywordUserPrompt(description string) string {
	return fmt.Sprintf("Derive search keywords for this issue report and respond with the JSON per schema.\n\nIssue:\n%s", description)
}

// CommitAnalysisSystemPrompt asks for a shard verdict over commit messages.
func CommitAnalysisSystemPrompt() string {
	return `You are an assistant that decides whether any of the given commits fix a reported SDK issue. You must produce one valid JSON object only (no markdown, no commentary). Do not include code fences.

Requirements:
- Output must be a single JSON object.
- status is exactly one of: fixed, not_fixed, unknown.
- confidence is an integer from 0 to 100.
- reasoning is one short paragraph explaining the judgment.
- relevant_commit_shas lists the SHAs of commits that plausibly address the issue; empty if none.

Schema (example with empty values):
{
  "status": "<fixed|not_fixed|unknown>",
  "confidence": 0,
  "reasoning": "<string>",
  "relevant_commit_shas": ["<string>"]
}`
}

// CommitAnalysisUserPrompt lists one batch of commits beneath the issue.
func CommitAnalysisUserPrompt(description string, commits []domain.Commit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Issue:\n%s\n\nCommits (%d):\n", description, len(commits))
	for _, c := range commits {
		fmt.Fprintf(&b, "- %s %s\n", c.SHA, firstLine(c.Message))
	}
	b.WriteString("\nRespond with the JSON per schema.")
	return b.String()
}

// PRAnalysisSystemPrompt asks for a shard verdict over pull requests.
func PRAnalysisSystemPrompt() string {
	return `You are an assistant that decides whether any of the given pull requests fix a reported SDK issue. You must produce one valid JSON object only (no markdown, no commentary). Do not include code fences.

Requirements:
- Output must be a single JSON object.
- status is exactly one of: fixed, not_fixed, unknown.
- confidence is an integer from 0 to 100.
- reasoning is one short paragraph explaining the judgment.
- relevant_pr_numbers lists the numbers of pull requests that plausibly address the issue; empty if none.

Schema (example with empty values):
{
  "status": "<fixed|not_fixed|unknown>",
  "confidence": 0,
  "reasoning": "<string>",
  "relevant_pr_numbers": [0]
}`
}

// PRAnalysisUserPrompt lists one batch of pull requests beneath the issue.
// PR bodies are much larger than commit messages, hence the smaller batches.
func PRAnalysisUserPrompt(description string, prs []domain.PullRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Issue:\n%s\n\nPull requests (%d):\n", description, len(prs))
	for _, pr := range prs {
		fmt.Fprintf(&b, "\n## #%d: %s\n", pr.Number, pr.Title)
		if pr.Body != "" {
			fmt.Fprintf(&b, "%s\n", truncate(pr.Body, 4000))
		}
	}
	b.WriteString("\nRespond with the JSON per schema.")
	return b.String()
}

// SummarySystemPrompt asks for a compressed, de-duplicated explanation.
func SummarySystemPrompt() string {
	return `You are an assistant that compresses analysis notes into a single short explanation for an end user. You must produce one valid JSON object only (no markdown formatting besides plain text, no commentary). Do not include code fences.

Requirements:
- Output must be a single JSON object.
- summary is one non-repetitive paragraph. Keep PR references in the form #<number>.

Schema (example with empty values):
{
  "summary": "<string>"
}`
}

// SummaryUserPrompt passes the raw concatenated reasoning text.
func SummaryUserPrompt(reasoning string) string {
	return fmt.Sprintf("Compress these analysis notes into one short paragraph and respond with the JSON per schema.\n\nNotes:\n%s", truncate(reasoning, 8000))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

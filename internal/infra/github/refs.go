package github

import (
	"regexp"
	"strconv"

	domain "github.com/fixedyet/fixedyet/internal/domain/analysis"
)

// Bracket-style PR references in merge/squash commit messages, e.g.
// "Fix breadcrumb leak (#1234)" or "Backport to v7 (GH-1234)".
var prRefPattern = regexp.MustCompile(`\((?:#|GH-)(\d+)\)`)

// ExtractPRNumbers scans commit messages for PR references and returns the
// de-duplicated numbers in first-seen order.
func (c *Client) ExtractPRNumbers(commits []domain.Commit) []int {
	return ExtractPRNumbers(commits)
}

// ExtractPRNumbers is the pure extraction used by the client method.
func ExtractPRNumbers(commits []domain.Commit) []int {
	seen := make(map[int]bool)
	var out []int
	for _, commit := range commits {
		for _, m := range prRefPattern.FindAllStringSubmatch(commit.Message, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || n <= 0 {
				continue
			}
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

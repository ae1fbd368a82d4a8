package github

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domain "github.com/fixedyet/fixedyet/internal/domain/analysis"
)

func TestExtractPRNumbers(t *testing.T) {
	commits := []domain.Commit{
		{SHA: "a", Message: "fix(replay): stop leaking breadcrumbs (#1234)"},
		{SHA: "b", Message: "Backport session fix to v7 (GH-88)"},
		{SHA: "c", Message: "chore: bump deps"},
		{SHA: "d", Message: "fix again (#1234)"},
		{SHA: "e", Message: "two refs in one (#5) and (#6)"},
	}

	assert.Equal(t, []int{1234, 88, 5, 6}, ExtractPRNumbers(commits))
}

func TestExtractPRNumbersIgnoresBareReferences(t *testing.T) {
	commits := []domain.Commit{
		{Message: "fixes #12 without parentheses"},
		{Message: "see issue (#0)"},
		{Message: "(GH-) malformed"},
	}

	assert.Empty(t, ExtractPRNumbers(commits))
}

func TestExtractPRNumbersEmptyInput(t *testing.T) {
	assert.Empty(t, ExtractPRNumbers(nil))
}

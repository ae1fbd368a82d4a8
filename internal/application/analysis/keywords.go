package analysis

import (
	"context"
	"log"

	"github.com/fixedyet/fixedyet/internal/infra/ai"
	"github.com/fixedyet/fixedyet/internal/infra/ai/prompt"

	domain "github.com/fixedyet/fixedyet/internal/domain/analysis"
)

// KeywordExtractor derives 1-5 commit search terms from the issue
// description. A failed or malformed response degrades to no keywords, in
// which case the commit search runs unfiltered.
type KeywordExtractor struct {
	ai domain.Completer
}

func NewKeywordExtractor(completer domain.Completer) *KeywordExtractor {
	return &KeywordExtractor{ai: completer}
}

func (k *KeywordExtractor) Extract(ctx context.Context, description string) []string {
	raw, err := k.ai.Complete(ctx, prompt.KeywordSystemPrompt(), prompt.KeywordUserPrompt(description))
	if err != nil {
		log.Printf("analysis: keyword extraction failed, searching unfiltered: %v", err)
		return nil
	}
	keywords := ai.DecodeKeywords(raw)
	if len(keywords) == 0 {
		log.Printf("analysis: keyword extraction returned no terms, searching unfiltered")
	}
	return keywords
}

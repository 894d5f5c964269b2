// Package tokenizer defines the narrow token-count/token-split capability
// the chunker consumes. The core never specializes to a specific vocabulary;
// concrete implementations (e.g. internal/tokenizer/tiktoken) are supplied
// by the caller of the pipeline.
package tokenizer

import (
	"context"

	"github.com/AxiomOrient/Dendrite/internal/identity"
)

// Unit names the semantic boundary the splitter prefers when partitioning
// oversized text.
type Unit string

const (
	UnitSentence  Unit = "sentence"
	UnitWord      Unit = "word"
	UnitParagraph Unit = "paragraph"
)

// ModelInfo is read-only, informational metadata about the tokenizer's
// underlying model.
type ModelInfo struct {
	Name             string
	MaxContextLength int
	AvgTokensPerWord float64
}

// Tokenizer is the sole contract between the chunker and tokenization.
type Tokenizer interface {
	// CountTokens returns the token count of text. Empty text yields 0.
	CountTokens(ctx context.Context, text string) (identity.TokenCount, error)

	// Split partitions text into pieces of at most maxTokens tokens each,
	// preferring to break on unit boundaries and falling back to word-level
	// splitting when a single unit exceeds the budget. For maxTokens <= 0
	// the result is empty. If text already fits, Split returns []string{text}.
	Split(ctx context.Context, text string, maxTokens identity.TokenCount, unit Unit) ([]string, error)

	// ModelInfo describes the underlying model.
	ModelInfo() ModelInfo
}

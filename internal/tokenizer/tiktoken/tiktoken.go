// Package tiktoken implements tokenizer.Tokenizer using pkoukk/tiktoken-go,
// adapted from the teacher's engine/memory/tokens.TiktokenCounter (model
// name resolution, fallback-to-default-encoding behavior) and extended with
// the Split operation the chunker requires.
package tiktoken

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	tiktokengo "github.com/pkoukk/tiktoken-go"

	"github.com/AxiomOrient/Dendrite/internal/identity"
	"github.com/AxiomOrient/Dendrite/internal/tokenizer"
)

const defaultEncoding = "cl100k_base"

// modelToEncoding maps common model names to their tiktoken encoding, the
// same table the teacher's counter carries for models tiktoken-go doesn't
// resolve directly.
var modelToEncoding = map[string]string{
	"gpt-4":         "cl100k_base",
	"gpt-4-turbo":   "cl100k_base",
	"gpt-3.5-turbo": "cl100k_base",
	"text-davinci-003": "p50k_base",
	"davinci":          "p50k_base",
}

var sentenceBoundary = regexp.MustCompile(`([.!?])(\s+)`)

// Tokenizer wraps a tiktoken-go encoder behind the tokenizer.Tokenizer
// interface. It is safe for concurrent use: the underlying BPE tables are
// read-only after construction.
type Tokenizer struct {
	encodingName string
	enc          *tiktokengo.Tiktoken
	mu           sync.RWMutex
}

// candidateEncoding is one way New might resolve modelOrEncoding to a usable
// tiktoken-go encoder: name is the encoding name reported by ModelInfo, and
// get fetches the encoder. New tries the candidates in order.
type candidateEncoding struct {
	name string
	get  func() (*tiktokengo.Tiktoken, error)
}

// New builds a Tokenizer for the given model or encoding name. It walks an
// ordered candidate list — the name taken literally as an encoding, the name
// taken as a model tiktoken-go recognizes, then the built-in default — and
// keeps the first one that resolves.
func New(modelOrEncoding string) (*Tokenizer, error) {
	if modelOrEncoding == "" {
		modelOrEncoding = defaultEncoding
	}

	candidates := []candidateEncoding{
		{
			name: modelOrEncoding,
			get:  func() (*tiktokengo.Tiktoken, error) { return tiktokengo.GetEncoding(modelOrEncoding) },
		},
		{
			name: resolveEncodingName(modelOrEncoding),
			get:  func() (*tiktokengo.Tiktoken, error) { return tiktokengo.EncodingForModel(modelOrEncoding) },
		},
		{
			name: defaultEncoding,
			get:  func() (*tiktokengo.Tiktoken, error) { return tiktokengo.GetEncoding(defaultEncoding) },
		},
	}

	var failures []error
	for _, candidate := range candidates {
		enc, err := candidate.get()
		if err == nil {
			return &Tokenizer{encodingName: candidate.name, enc: enc}, nil
		}
		failures = append(failures, err)
	}
	return nil, fmt.Errorf("tiktoken: no encoding resolved for %q: %w", modelOrEncoding, errors.Join(failures...))
}

// resolveEncodingName looks up model's tiktoken encoding in the explicit
// table, falling back to the package default for anything unlisted.
func resolveEncodingName(model string) string {
	if enc, ok := modelToEncoding[model]; ok {
		return enc
	}
	return defaultEncoding
}

// CountTokens implements tokenizer.Tokenizer.
func (t *Tokenizer) CountTokens(_ context.Context, text string) (identity.TokenCount, error) {
	if text == "" {
		return 0, nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	tokens := t.enc.Encode(text, nil, nil)
	return identity.TokenCount(len(tokens)), nil
}

// ModelInfo implements tokenizer.Tokenizer.
func (t *Tokenizer) ModelInfo() tokenizer.ModelInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return tokenizer.ModelInfo{
		Name:             t.encodingName,
		MaxContextLength: 128000,
		AvgTokensPerWord: 1.3,
	}
}

// Split implements tokenizer.Tokenizer per spec §4.2: partitions text into
// pieces of at most maxTokens tokens, preferring the given unit boundary and
// falling back to word-level splitting when a single unit alone exceeds the
// budget.
func (t *Tokenizer) Split(ctx context.Context, text string, maxTokens identity.TokenCount, unit tokenizer.Unit) ([]string, error) {
	if maxTokens <= 0 {
		return nil, nil
	}
	if text == "" {
		return nil, nil
	}
	whole, err := t.CountTokens(ctx, text)
	if err != nil {
		return nil, err
	}
	if whole <= maxTokens {
		return []string{text}, nil
	}

	units := splitIntoUnits(text, unit)
	var pieces []string
	var current strings.Builder
	var currentTokens identity.TokenCount

	flush := func() {
		if current.Len() == 0 {
			return
		}
		pieces = append(pieces, strings.TrimSpace(current.String()))
		current.Reset()
		currentTokens = 0
	}

	for _, u := range units {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		uTokens, err := t.CountTokens(ctx, u)
		if err != nil {
			return nil, err
		}
		if uTokens > maxTokens {
			flush()
			words, werr := t.splitWords(ctx, u, maxTokens)
			if werr != nil {
				return nil, werr
			}
			pieces = append(pieces, words...)
			continue
		}
		if currentTokens+uTokens > maxTokens {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(u)
		currentTokens += uTokens
	}
	flush()
	return pieces, nil
}

// splitWords is the word-level fallback used when a single semantic unit
// exceeds the token budget on its own.
func (t *Tokenizer) splitWords(ctx context.Context, text string, maxTokens identity.TokenCount) ([]string, error) {
	words := strings.Fields(text)
	var pieces []string
	var current strings.Builder
	var currentTokens identity.TokenCount

	flush := func() {
		if current.Len() == 0 {
			return
		}
		pieces = append(pieces, strings.TrimSpace(current.String()))
		current.Reset()
		currentTokens = 0
	}

	for _, w := range words {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		wTokens, err := t.CountTokens(ctx, w)
		if err != nil {
			return nil, err
		}
		if currentTokens+wTokens > maxTokens && current.Len() > 0 {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(w)
		currentTokens += wTokens
	}
	flush()
	return pieces, nil
}

func splitIntoUnits(text string, unit tokenizer.Unit) []string {
	switch unit {
	case tokenizer.UnitParagraph:
		return nonEmpty(strings.Split(text, "\n\n"))
	case tokenizer.UnitWord:
		return strings.Fields(text)
	case tokenizer.UnitSentence:
		fallthrough
	default:
		return splitSentences(text)
	}
}

// splitSentences breaks text on ".", "!", "?" followed by whitespace,
// keeping the terminator attached to its sentence.
func splitSentences(text string) []string {
	marked := sentenceBoundary.ReplaceAllString(text, "$1\x00")
	raw := strings.Split(marked, "\x00")
	return nonEmpty(raw)
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, i := range items {
		trimmed := strings.TrimSpace(i)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

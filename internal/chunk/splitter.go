package chunk

import (
	"context"
	"strconv"
	"strings"

	"github.com/AxiomOrient/Dendrite/internal/dendriteerr"
	"github.com/AxiomOrient/Dendrite/internal/identity"
	"github.com/AxiomOrient/Dendrite/internal/tokenizer"
)

// splitLargeNode implements §4.4.6: the tokenizer partitions plainText into
// pieces of at most (max - overlap) tokens; when preserveContext is set,
// each continuation piece is prefixed with the previous piece's
// sentence-aligned overlap tail.
func (c *Chunker) splitLargeNode(
	ctx context.Context,
	plainText string,
	sourceID identity.NodeID,
	importance float64,
	breadcrumb Breadcrumb,
) ([]Chunk, error) {
	budget := c.cfg.MaxTokensPerChunk - c.cfg.OverlapTokens
	if budget <= 0 {
		budget = c.cfg.MaxTokensPerChunk
	}

	pieces, err := c.tok.Split(ctx, plainText, budget, c.cfg.SplitUnit)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	var previousTail string
	for i, piece := range pieces {
		if ctx.Err() != nil {
			return nil, dendriteerr.Canceled("chunker", ctx.Err())
		}
		content := piece
		if c.cfg.PreserveContext && i > 0 && previousTail != "" {
			content = previousTail + "\n\n" + piece
		}

		part := breadcrumb.Appending(partLabel(i + 1))
		built, buildErr := c.buildChunk(ctx, content, part, []identity.NodeID{sourceID}, []float64{importance})
		if buildErr != nil {
			return nil, buildErr
		}
		chunks = append(chunks, built)

		previousTail, err = c.overlapTail(ctx, piece)
		if err != nil {
			return nil, err
		}
	}
	return chunks, nil
}

func partLabel(n int) string {
	return "Part " + strconv.Itoa(n)
}

// overlapTail implements the trailing-overlap rule: split on ". "; fewer
// than two sentences falls back to the trailing 200 characters; otherwise
// accumulate sentences from the end until overlapTokens is reached.
func (c *Chunker) overlapTail(ctx context.Context, piece string) (string, error) {
	if c.cfg.OverlapTokens <= 0 {
		return "", nil
	}
	sentences := strings.Split(piece, ". ")
	if len(sentences) < 2 {
		if len(piece) <= 200 {
			return piece, nil
		}
		return piece[len(piece)-200:], nil
	}

	var acc []string
	var tokens identity.TokenCount
	for i := len(sentences) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			return "", dendriteerr.Canceled("chunker", ctx.Err())
		}
		candidate := sentences[i]
		n, err := c.tok.CountTokens(ctx, candidate)
		if err != nil {
			return "", err
		}
		acc = append([]string{candidate}, acc...)
		tokens += n
		if tokens >= c.cfg.OverlapTokens {
			break
		}
	}
	return strings.Join(acc, ". "), nil
}

// ParseSplitUnit maps a config string (as loaded from YAML/env) to a
// SplitUnit, defaulting to sentence-level splitting for unrecognized values.
func ParseSplitUnit(s string) SplitUnit {
	switch tokenizer.Unit(s) {
	case tokenizer.UnitWord:
		return SplitUnitWord
	case tokenizer.UnitParagraph:
		return SplitUnitParagraph
	default:
		return SplitUnitSentence
	}
}

package chunk

import (
	"context"
	"strconv"
	"strings"

	"github.com/AxiomOrient/Dendrite/internal/dendriteerr"
	"github.com/AxiomOrient/Dendrite/internal/identity"
	"github.com/AxiomOrient/Dendrite/internal/node"
)

// handleCode implements §4.4.5's code-block handler: a single chunk when the
// code fits the budget, otherwise a line-preserving split into "Part k"
// chunks, never breaking inside a line.
func (c *Chunker) handleCode(ctx context.Context, cb *node.CodeBlock, breadcrumb Breadcrumb) ([]Chunk, error) {
	codeBreadcrumb := breadcrumb.Appending("Code")
	importance := []float64{cb.StructuralImportance()}

	whole, err := c.tok.CountTokens(ctx, cb.Code)
	if err != nil {
		return nil, err
	}
	if whole <= c.cfg.MaxTokensPerChunk {
		content := formatCode(cb.Language, cb.Code)
		built, err := c.buildChunk(ctx, content, codeBreadcrumb, []identity.NodeID{cb.ID()}, importance)
		if err != nil {
			return nil, err
		}
		return []Chunk{built}, nil
	}

	lines := strings.Split(cb.Code, "\n")
	var chunks []Chunk
	var current []string
	var currentTokens identity.TokenCount
	part := 1

	flush := func() error {
		if len(current) == 0 {
			return nil
		}
		content := formatCode(cb.Language, strings.Join(current, "\n"))
		built, err := c.buildChunk(ctx, content, codeBreadcrumb.Appending("Part "+strconv.Itoa(part)), []identity.NodeID{cb.ID()}, importance)
		if err != nil {
			return err
		}
		chunks = append(chunks, built)
		part++
		current = nil
		currentTokens = 0
		return nil
	}

	for _, line := range lines {
		if ctx.Err() != nil {
			return nil, dendriteerr.Canceled("chunker", ctx.Err())
		}
		lineTokens, err := c.tok.CountTokens(ctx, line)
		if err != nil {
			return nil, err
		}
		if currentTokens+lineTokens > c.cfg.MaxTokensPerChunk && len(current) > 0 {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		current = append(current, line)
		currentTokens += lineTokens
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return chunks, nil
}

func formatCode(language, code string) string {
	if language != "" {
		return "Code (" + language + "):\n" + code
	}
	return "Code:\n" + code
}

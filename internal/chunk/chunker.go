package chunk

import (
	"context"
	"strings"
	"time"

	"github.com/AxiomOrient/Dendrite/internal/dendriteerr"
	"github.com/AxiomOrient/Dendrite/internal/identity"
	"github.com/AxiomOrient/Dendrite/internal/metadata"
	"github.com/AxiomOrient/Dendrite/internal/node"
	"github.com/AxiomOrient/Dendrite/internal/tokenizer"
)

// Chunker performs the single-pass, per-document traversal in §4.4. A
// Chunker instance owns no state across documents; Chunk resets everything
// it needs for a fresh run, so a single Chunker value may be reused
// sequentially but never shared across concurrent document-processing tasks.
type Chunker struct {
	cfg Config
	tok tokenizer.Tokenizer

	docID    identity.DocumentID
	metadata *metadata.Document
	index    int

	headingStack []string
	title        string

	buffer           []node.Block
	bufferBreadcrumb Breadcrumb
}

// New builds a Chunker bound to a tokenizer and chunking configuration. The
// configuration is clamped via NewConfig if the caller hasn't already done
// so themselves.
func New(tok tokenizer.Tokenizer, cfg Config) *Chunker {
	return &Chunker{cfg: NewConfig(cfg), tok: tok}
}

// Chunk runs the full traversal over a top-level node sequence and returns
// the post-filtered chunk list. Per document, the Chunker resets all
// internal state before processing.
func (c *Chunker) Chunk(
	ctx context.Context,
	nodes []node.Block,
	docID identity.DocumentID,
	docMeta *metadata.Document,
) ([]Chunk, error) {
	c.reset(docID, docMeta)

	var out []Chunk
	for _, n := range nodes {
		if ctx.Err() != nil {
			return nil, dendriteerr.Canceled("chunker", ctx.Err())
		}

		if n.IsContextBoundary() {
			flushed, err := c.flushBuffer(ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, flushed...)

			if h, ok := n.(*node.Heading); ok {
				c.pushHeading(h.Level, h.Text)
				c.bufferBreadcrumb = c.currentBreadcrumb()
			}
		}

		if c.cfg.EnableSpecialHandling && n.RequiresSpecialHandling() {
			special, err := c.handleSpecial(ctx, n)
			if err != nil {
				return nil, err
			}
			out = append(out, special...)
			continue
		}

		if n.IsContextBoundary() {
			// Headings/thematic breaks contribute no buffered content of
			// their own beyond reshaping the breadcrumb.
			if _, isHeading := n.(*node.Heading); isHeading {
				continue
			}
			if _, isThematic := n.(*node.ThematicBreak); isThematic {
				continue
			}
		}

		nodeText := n.PlainText()
		nodeTokens, err := c.tok.CountTokens(ctx, nodeText)
		if err != nil {
			return nil, dendriteerr.ChunkingFailed(err)
		}

		switch {
		case nodeTokens > c.cfg.MaxTokensPerChunk:
			flushed, err := c.flushBuffer(ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, flushed...)

			split, err := c.splitLargeNode(ctx, nodeText, n.ID(), n.StructuralImportance(), c.bufferBreadcrumb)
			if err != nil {
				return nil, dendriteerr.ChunkingFailed(err)
			}
			out = append(out, split...)

		default:
			bufferTokens, err := c.bufferTokenCount(ctx)
			if err != nil {
				return nil, err
			}
			if bufferTokens+nodeTokens > c.cfg.MaxTokensPerChunk {
				flushed, err := c.flushBuffer(ctx)
				if err != nil {
					return nil, err
				}
				out = append(out, flushed...)
			}
			c.buffer = append(c.buffer, n)
		}
	}

	flushed, err := c.flushBuffer(ctx)
	if err != nil {
		return nil, err
	}
	out = append(out, flushed...)

	return c.postFilter(out), nil
}

func (c *Chunker) reset(docID identity.DocumentID, docMeta *metadata.Document) {
	c.docID = docID
	c.metadata = docMeta
	c.index = 0
	c.headingStack = nil
	c.buffer = nil

	c.title = "Document"
	if docMeta != nil && strings.TrimSpace(docMeta.Title) != "" {
		c.title = docMeta.Title
	}
	c.bufferBreadcrumb = c.currentBreadcrumb()
}

func (c *Chunker) pushHeading(level int, text string) {
	if level < 1 {
		level = 1
	}
	for len(c.headingStack) >= level {
		c.headingStack = c.headingStack[:len(c.headingStack)-1]
	}
	c.headingStack = append(c.headingStack, text)
}

func (c *Chunker) currentBreadcrumb() Breadcrumb {
	b := NewBreadcrumb(c.title)
	for _, h := range c.headingStack {
		b = b.Appending(h)
	}
	return b
}

func (c *Chunker) bufferTokenCount(ctx context.Context) (identity.TokenCount, error) {
	if len(c.buffer) == 0 {
		return 0, nil
	}
	text := c.bufferPlainText()
	n, err := c.tok.CountTokens(ctx, text)
	if err != nil {
		return 0, dendriteerr.ChunkingFailed(err)
	}
	return n, nil
}

func (c *Chunker) bufferPlainText() string {
	parts := make([]string, len(c.buffer))
	for i, n := range c.buffer {
		parts[i] = n.PlainText()
	}
	return strings.Join(parts, "\n\n")
}

// flushBuffer implements the "flush is a no-op on empty buffer" rule and
// §4.4.8's chunk-construction step.
func (c *Chunker) flushBuffer(ctx context.Context) ([]Chunk, error) {
	if len(c.buffer) == 0 {
		return nil, nil
	}
	content := c.bufferPlainText()
	sourceIDs := make([]identity.NodeID, len(c.buffer))
	importances := make([]float64, len(c.buffer))
	for i, n := range c.buffer {
		sourceIDs[i] = n.ID()
		importances[i] = n.StructuralImportance()
	}

	built, err := c.buildChunk(ctx, content, c.bufferBreadcrumb, sourceIDs, importances)
	if err != nil {
		return nil, err
	}
	c.buffer = nil
	return []Chunk{built}, nil
}

func (c *Chunker) handleSpecial(ctx context.Context, n node.Block) ([]Chunk, error) {
	switch v := n.(type) {
	case *node.Table:
		return c.handleTable(ctx, v, c.bufferBreadcrumb)
	case *node.CodeBlock:
		return c.handleCode(ctx, v, c.bufferBreadcrumb)
	default:
		return nil, nil
	}
}

// buildChunk allocates the next monotonic ChunkID, recomputes tokenCount
// over the final content, and scores quality, per §4.4.8.
func (c *Chunker) buildChunk(
	ctx context.Context,
	content string,
	breadcrumb Breadcrumb,
	sourceIDs []identity.NodeID,
	importances []float64,
) (Chunk, error) {
	tokenCount, err := c.tok.CountTokens(ctx, content)
	if err != nil {
		return Chunk{}, dendriteerr.ChunkingFailed(err)
	}

	quality := scoreQuality(content, tokenCount, c.cfg.MaxTokensPerChunk, averageImportance(importances))

	chunk := Chunk{
		ID:            identity.NewChunkID(c.docID, c.index),
		DocumentID:    c.docID,
		Content:       content,
		TokenCount:    tokenCount,
		Breadcrumb:    breadcrumb,
		SourceNodeIDs: sourceIDs,
		Metadata:      c.metadata,
		CreatedAt:     time.Now(),
		QualityScore:  quality,
	}
	c.index++
	return chunk, nil
}

// postFilter discards chunks below the quality threshold or the minimum
// token count, per §4.4.3 step 5.
func (c *Chunker) postFilter(chunks []Chunk) []Chunk {
	out := make([]Chunk, 0, len(chunks))
	for _, ch := range chunks {
		if ch.QualityScore < c.cfg.QualityThreshold {
			continue
		}
		if ch.TokenCount < c.cfg.MinTokensPerChunk {
			continue
		}
		out = append(out, ch)
	}
	return out
}

// Package pipeline implements the orchestrator that runs a document through
// parser dispatch, chunking, and statistics aggregation (spec.md §4.5),
// including the ProcessURL entry point for the (bytes, contentType) | URL
// source form described in §6.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AxiomOrient/Dendrite/internal/chunk"
	"github.com/AxiomOrient/Dendrite/internal/dendriteerr"
	"github.com/AxiomOrient/Dendrite/internal/identity"
	"github.com/AxiomOrient/Dendrite/internal/metadata"
	"github.com/AxiomOrient/Dendrite/internal/node"
	"github.com/AxiomOrient/Dendrite/internal/parser"
	"github.com/AxiomOrient/Dendrite/internal/tokenizer"
)

// Statistics aggregates run-level counters (spec.md §3.6).
type Statistics struct {
	ProcessingTime        time.Duration
	TotalTokenCount       identity.TokenCount
	ChunkCount            int
	AverageTokensPerChunk identity.TokenCount
}

// ProcessedDocument is the pipeline's aggregate output (spec.md §3.6).
type ProcessedDocument struct {
	DocumentID identity.DocumentID
	Metadata   *metadata.Document
	Nodes      []node.Block
	Chunks     []chunk.Chunk
	Statistics Statistics
}

// Orchestrator wires a parser registry, a tokenizer, and the chunking
// engine together behind the two entry points spec.md §6 describes.
type Orchestrator struct {
	Registry *parser.Registry
	Tok      tokenizer.Tokenizer
}

// New builds an Orchestrator bound to a parser registry and tokenizer.
func New(registry *parser.Registry, tok tokenizer.Tokenizer) *Orchestrator {
	return &Orchestrator{Registry: registry, Tok: tok}
}

// Process runs the full pipeline over in-memory bytes: dispatch → parse →
// chunk → aggregate statistics, per spec.md §4.5.
func (o *Orchestrator) Process(
	ctx context.Context,
	data []byte,
	contentType parser.ContentType,
	docID identity.DocumentID,
	cfg chunk.Config,
) (*ProcessedDocument, error) {
	start := time.Now()

	if docID == "" {
		docID = identity.DocumentID(uuid.NewString())
	}

	p, err := o.Registry.Dispatch(contentType)
	if err != nil {
		return nil, err
	}

	mb := metadata.NewBuilder(data, string(contentType))
	nodes, docMeta, err := p.Parse(ctx, data, contentType, mb)
	if err != nil {
		return nil, dendriteerr.ParsingFailed(p.Name(), err)
	}
	if ctx.Err() != nil {
		return nil, dendriteerr.Canceled("pipeline", ctx.Err())
	}

	c := chunk.New(o.Tok, cfg)
	chunks, err := c.Chunk(ctx, nodes, docID, docMeta)
	if err != nil {
		return nil, dendriteerr.ChunkingFailed(err)
	}

	stats := aggregateStatistics(chunks, time.Since(start))

	return &ProcessedDocument{
		DocumentID: docID,
		Metadata:   docMeta,
		Nodes:      nodes,
		Chunks:     chunks,
		Statistics: stats,
	}, nil
}

func aggregateStatistics(chunks []chunk.Chunk, elapsed time.Duration) Statistics {
	var total identity.TokenCount
	for _, c := range chunks {
		total += c.TokenCount
	}
	var avg identity.TokenCount
	if len(chunks) > 0 {
		avg = total / identity.TokenCount(len(chunks))
	}
	return Statistics{
		ProcessingTime:        elapsed,
		TotalTokenCount:       total,
		ChunkCount:            len(chunks),
		AverageTokensPerChunk: avg,
	}
}

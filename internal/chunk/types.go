// Package chunk implements the hierarchical, context-preserving chunking
// engine: it walks a parser's node tree, buffers regular content up to a
// token budget, diverts tables and code blocks to specialized handlers,
// splits oversized nodes with sentence-aligned overlap, and scores every
// candidate chunk for quality before post-filtering.
package chunk

import (
	"strings"
	"time"

	"github.com/AxiomOrient/Dendrite/internal/identity"
	"github.com/AxiomOrient/Dendrite/internal/metadata"
	"github.com/AxiomOrient/Dendrite/internal/tokenizer"
)

// SplitUnit names the semantic boundary the large-node splitter prefers.
type SplitUnit = tokenizer.Unit

const (
	SplitUnitSentence  = tokenizer.UnitSentence
	SplitUnitWord      = tokenizer.UnitWord
	SplitUnitParagraph = tokenizer.UnitParagraph
)

// Config carries the chunking options in §4.4.1, with bounds enforced at
// construction (NewConfig clamps rather than rejects).
type Config struct {
	MaxTokensPerChunk     identity.TokenCount
	MinTokensPerChunk     identity.TokenCount
	OverlapTokens         identity.TokenCount
	SplitUnit             SplitUnit
	PreserveContext       bool
	QualityThreshold      float64
	EnableSpecialHandling bool
}

// DefaultConfig returns the documented defaults, already within bounds.
func DefaultConfig() Config {
	return Config{
		MaxTokensPerChunk:     512,
		MinTokensPerChunk:     32,
		OverlapTokens:         32,
		SplitUnit:             SplitUnitSentence,
		PreserveContext:       true,
		QualityThreshold:      0.7,
		EnableSpecialHandling: true,
	}
}

// NewConfig clamps the given options to the bounds in §4.4.1:
// maxTokensPerChunk floors at 64; minTokensPerChunk and overlapTokens cap at
// max/4; qualityThreshold clamps to [0, 1].
func NewConfig(opts Config) Config {
	cfg := opts
	if cfg.MaxTokensPerChunk < 64 {
		cfg.MaxTokensPerChunk = 64
	}
	quarter := cfg.MaxTokensPerChunk / 4
	if cfg.MinTokensPerChunk > quarter {
		cfg.MinTokensPerChunk = quarter
	}
	if cfg.MinTokensPerChunk < 0 {
		cfg.MinTokensPerChunk = 0
	}
	if cfg.OverlapTokens > quarter {
		cfg.OverlapTokens = quarter
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = 0
	}
	if cfg.QualityThreshold < 0 {
		cfg.QualityThreshold = 0
	}
	if cfg.QualityThreshold > 1 {
		cfg.QualityThreshold = 1
	}
	if cfg.SplitUnit == "" {
		cfg.SplitUnit = SplitUnitSentence
	}
	return cfg
}

// Breadcrumb is an ordered sequence of non-empty hierarchy labels (spec
// §3.5). The zero value is the empty breadcrumb.
type Breadcrumb struct {
	components []string
}

// NewBreadcrumb builds a Breadcrumb from an ordered label list.
func NewBreadcrumb(components ...string) Breadcrumb {
	cp := make([]string, len(components))
	copy(cp, components)
	return Breadcrumb{components: cp}
}

// Appending returns a new Breadcrumb with component appended, leaving the
// receiver unmodified.
func (b Breadcrumb) Appending(component string) Breadcrumb {
	cp := make([]string, len(b.components)+1)
	copy(cp, b.components)
	cp[len(b.components)] = component
	return Breadcrumb{components: cp}
}

// Depth returns the number of components.
func (b Breadcrumb) Depth() int { return len(b.components) }

// Components returns a defensive copy of the ordered labels.
func (b Breadcrumb) Components() []string {
	cp := make([]string, len(b.components))
	copy(cp, b.components)
	return cp
}

// String returns the canonical " > "-joined form.
func (b Breadcrumb) String() string {
	return strings.Join(b.components, " > ")
}

// Chunk is an immutable, bounded text slice with provenance and a quality
// score (spec §3.4).
type Chunk struct {
	ID            identity.ChunkID
	DocumentID    identity.DocumentID
	Content       string
	TokenCount    identity.TokenCount
	Breadcrumb    Breadcrumb
	SourceNodeIDs []identity.NodeID
	Metadata      *metadata.Document
	CreatedAt     time.Time
	QualityScore  float64
}

// Validate enforces the invariants in §3.4.
func (c *Chunk) Validate() error {
	if strings.TrimSpace(c.Content) == "" {
		return errEmptyContent
	}
	if c.TokenCount <= 0 {
		return errNonPositiveTokenCount
	}
	if c.QualityScore < 0 || c.QualityScore > 1 {
		return errQualityOutOfRange
	}
	if err := c.Metadata.Validate(); err != nil {
		return err
	}
	return nil
}

type chunkError string

func (e chunkError) Error() string { return string(e) }

const (
	errEmptyContent          = chunkError("chunk: content must be non-empty after trim")
	errNonPositiveTokenCount = chunkError("chunk: tokenCount must be positive")
	errQualityOutOfRange     = chunkError("chunk: qualityScore must be in [0, 1]")
)

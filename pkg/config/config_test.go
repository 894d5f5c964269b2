package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AxiomOrient/Dendrite/internal/chunk"
	"github.com/AxiomOrient/Dendrite/internal/identity"
)

func TestDefault(t *testing.T) {
	t.Run("Should match the documented chunking defaults", func(t *testing.T) {
		cfg := Default()
		assert.Equal(t, 512, cfg.Chunking.MaxTokensPerChunk)
		assert.Equal(t, 32, cfg.Chunking.MinTokensPerChunk)
		assert.Equal(t, 32, cfg.Chunking.OverlapTokens)
		assert.Equal(t, "sentence", cfg.Chunking.SplitUnit)
		assert.True(t, cfg.Chunking.PreserveContext)
		assert.InDelta(t, 0.7, cfg.Chunking.QualityThreshold, 1e-9)
		assert.True(t, cfg.Chunking.EnableSpecialHandling)
	})

	t.Run("Should order parsers markdown, HTML, PDF, plaintext", func(t *testing.T) {
		cfg := Default()
		assert.Equal(t, []string{"markdown", "html", "pdf", "plaintext"}, cfg.ParserOrder)
	})

	t.Run("Should default the tokenizer to cl100k base", func(t *testing.T) {
		assert.Equal(t, "cl100k_base", Default().Tokenizer.Model)
	})
}

func TestChunkingToChunkConfig(t *testing.T) {
	t.Run("Should convert fields and units directly", func(t *testing.T) {
		c := Chunking{
			MaxTokensPerChunk:     256,
			MinTokensPerChunk:     16,
			OverlapTokens:         16,
			SplitUnit:             "word",
			PreserveContext:       false,
			QualityThreshold:      0.5,
			EnableSpecialHandling: false,
		}
		got := c.ToChunkConfig()
		assert.Equal(t, identity.TokenCount(256), got.MaxTokensPerChunk)
		assert.Equal(t, identity.TokenCount(16), got.MinTokensPerChunk)
		assert.Equal(t, identity.TokenCount(16), got.OverlapTokens)
		assert.Equal(t, chunk.SplitUnitWord, got.SplitUnit)
		assert.False(t, got.PreserveContext)
		assert.InDelta(t, 0.5, got.QualityThreshold, 1e-9)
		assert.False(t, got.EnableSpecialHandling)
	})

	t.Run("Should apply the same clamps as new config", func(t *testing.T) {
		c := Chunking{MaxTokensPerChunk: 1, MinTokensPerChunk: 1000, OverlapTokens: 1000, SplitUnit: "sentence"}
		got := c.ToChunkConfig()
		assert.Equal(t, identity.TokenCount(64), got.MaxTokensPerChunk)
		assert.Equal(t, identity.TokenCount(16), got.MinTokensPerChunk)
		assert.Equal(t, identity.TokenCount(16), got.OverlapTokens)
	})
}

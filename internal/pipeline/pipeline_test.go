package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxiomOrient/Dendrite/internal/chunk"
	"github.com/AxiomOrient/Dendrite/internal/identity"
	"github.com/AxiomOrient/Dendrite/internal/parser"
	"github.com/AxiomOrient/Dendrite/internal/parser/plaintext"
	"github.com/AxiomOrient/Dendrite/internal/tokenizer"
)

type stubTokenizer struct{}

func (stubTokenizer) CountTokens(_ context.Context, text string) (identity.TokenCount, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	return identity.TokenCount(len(strings.Fields(text))), nil
}

func (stubTokenizer) Split(_ context.Context, text string, maxTokens identity.TokenCount, _ tokenizer.Unit) ([]string, error) {
	if maxTokens <= 0 || text == "" {
		return nil, nil
	}
	return []string{text}, nil
}

func (stubTokenizer) ModelInfo() tokenizer.ModelInfo {
	return tokenizer.ModelInfo{Name: "stub", MaxContextLength: 1000}
}

func TestProcessPlainText(t *testing.T) {
	registry := parser.NewRegistry(plaintext.New())
	orch := New(registry, stubTokenizer{})

	cfg := chunk.NewConfig(chunk.Config{
		MaxTokensPerChunk: 100,
		MinTokensPerChunk: 0,
		QualityThreshold:  0,
	})

	doc, err := orch.Process(context.Background(), []byte("This is a sample plain text document."), plaintext.ContentTypePlain, "doc1", cfg)
	require.NoError(t, err)
	require.Len(t, doc.Chunks, 1)
	assert.Equal(t, identity.DocumentID("doc1"), doc.DocumentID)
	assert.Equal(t, 1, doc.Statistics.ChunkCount)
	assert.Equal(t, doc.Statistics.TotalTokenCount, doc.Chunks[0].TokenCount)
}

func TestProcessUnsupportedContentType(t *testing.T) {
	registry := parser.NewRegistry(plaintext.New())
	orch := New(registry, stubTokenizer{})

	_, err := orch.Process(context.Background(), []byte("x"), "application/zip", "doc1", chunk.DefaultConfig())
	require.Error(t, err)
}

func TestProcessGeneratesDocumentIDWhenEmpty(t *testing.T) {
	registry := parser.NewRegistry(plaintext.New())
	orch := New(registry, stubTokenizer{})

	doc, err := orch.Process(context.Background(), []byte("hello there"), plaintext.ContentTypePlain, "", chunk.NewConfig(chunk.Config{MaxTokensPerChunk: 100, QualityThreshold: 0}))
	require.NoError(t, err)
	assert.NotEmpty(t, doc.DocumentID)
}

package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxiomOrient/Dendrite/internal/metadata"
)

func TestParse(t *testing.T) {
	t.Run("Should produce a single paragraph from non empty text", func(t *testing.T) {
		data := []byte("Hello there.\n\nGeneral Kenobi.")
		blocks, doc, err := New().Parse(context.Background(), data, ContentTypePlain, metadata.NewBuilder(data, string(ContentTypePlain)))
		require.NoError(t, err)
		require.Len(t, blocks, 1)
		assert.Contains(t, blocks[0].PlainText(), "General Kenobi.")
		assert.Equal(t, "LF", doc.SourceDetails.(metadata.PlainTextDetails).LineEnding)
	})

	t.Run("Should detect CRLF line endings", func(t *testing.T) {
		data := []byte("line one\r\nline two\r\n")
		_, doc, err := New().Parse(context.Background(), data, ContentTypePlain, metadata.NewBuilder(data, string(ContentTypePlain)))
		require.NoError(t, err)
		assert.Equal(t, "CRLF", doc.SourceDetails.(metadata.PlainTextDetails).LineEnding)
	})

	t.Run("Should return no blocks for whitespace only input", func(t *testing.T) {
		data := []byte("   \n\n  ")
		blocks, doc, err := New().Parse(context.Background(), data, ContentTypePlain, metadata.NewBuilder(data, string(ContentTypePlain)))
		require.NoError(t, err)
		assert.Empty(t, blocks)
		assert.NotNil(t, doc)
	})

	t.Run("Should count lines in normalized text", func(t *testing.T) {
		data := []byte("a\nb\nc")
		_, doc, err := New().Parse(context.Background(), data, ContentTypePlain, metadata.NewBuilder(data, string(ContentTypePlain)))
		require.NoError(t, err)
		assert.Equal(t, 3, doc.SourceDetails.(metadata.PlainTextDetails).LineCount)
	})
}

func TestCanParse(t *testing.T) {
	p := New()
	assert.True(t, p.CanParse(ContentTypePlain))
	assert.False(t, p.CanParse("text/markdown"))
	assert.Equal(t, Name, p.Name())
}

func TestDetectLineEnding(t *testing.T) {
	assert.Equal(t, "CRLF", detectLineEnding("a\r\nb"))
	assert.Equal(t, "CR", detectLineEnding("a\rb"))
	assert.Equal(t, "LF", detectLineEnding("a\nb"))
}

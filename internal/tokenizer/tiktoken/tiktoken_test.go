package tiktoken

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxiomOrient/Dendrite/internal/tokenizer"
)

func TestCountTokens(t *testing.T) {
	tok, err := New("")
	require.NoError(t, err)

	t.Run("Should return zero for empty text", func(t *testing.T) {
		n, err := tok.CountTokens(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, 0, int(n))
	})

	t.Run("Should count non empty text", func(t *testing.T) {
		n, err := tok.CountTokens(context.Background(), "hello world")
		require.NoError(t, err)
		assert.Greater(t, int(n), 0)
	})
}

func TestSplit(t *testing.T) {
	tok, err := New("")
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("Should return empty for non positive budget", func(t *testing.T) {
		pieces, err := tok.Split(ctx, "hello", 0, tokenizer.UnitSentence)
		require.NoError(t, err)
		assert.Empty(t, pieces)
	})

	t.Run("Should return single element when text fits", func(t *testing.T) {
		pieces, err := tok.Split(ctx, "hello world", 100, tokenizer.UnitSentence)
		require.NoError(t, err)
		require.Len(t, pieces, 1)
		assert.Equal(t, "hello world", pieces[0])
	})

	t.Run("Should split oversized text into bounded pieces", func(t *testing.T) {
		sentence := "The quick brown fox jumps over the lazy dog. "
		text := strings.Repeat(sentence, 200)
		pieces, err := tok.Split(ctx, text, 20, tokenizer.UnitSentence)
		require.NoError(t, err)
		require.Greater(t, len(pieces), 1)
		for _, p := range pieces {
			n, err := tok.CountTokens(ctx, p)
			require.NoError(t, err)
			assert.LessOrEqual(t, int(n), 20)
		}
	})

	t.Run("Should fall back to word level when single unit exceeds budget", func(t *testing.T) {
		hugeSentence := strings.Repeat("word ", 100) + "."
		pieces, err := tok.Split(ctx, hugeSentence, 10, tokenizer.UnitSentence)
		require.NoError(t, err)
		require.Greater(t, len(pieces), 1)
		for _, p := range pieces {
			n, err := tok.CountTokens(ctx, p)
			require.NoError(t, err)
			assert.LessOrEqual(t, int(n), 10)
		}
	})
}

func TestModelInfo(t *testing.T) {
	tok, err := New("gpt-4")
	require.NoError(t, err)
	info := tok.ModelInfo()
	assert.NotEmpty(t, info.Name)
	assert.Greater(t, info.MaxContextLength, 0)
}

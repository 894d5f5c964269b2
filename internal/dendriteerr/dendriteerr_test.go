package dendriteerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	t.Run("Should carry URL and cause for a file read failure", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := FileReadFailed("https://example.com/doc.md", cause)
		assert.Equal(t, KindFileReadFailed, err.Kind)
		assert.Equal(t, "https://example.com/doc.md", err.Details["url"])
		assert.ErrorIs(t, err, cause)
	})

	t.Run("Should carry the extension for an unsupported file type", func(t *testing.T) {
		err := UnsupportedFileType("zip")
		assert.Equal(t, KindUnsupportedFileType, err.Kind)
		assert.Equal(t, "zip", err.Details["extension"])
	})

	t.Run("Should carry the encoding name for a decoding failure", func(t *testing.T) {
		cause := errors.New("invalid byte sequence")
		err := DecodingFailed("Shift_JIS", cause)
		assert.Equal(t, KindDecodingFailed, err.Kind)
		assert.Equal(t, "Shift_JIS", err.Details["encoding"])
		assert.ErrorIs(t, err, cause)
	})

	t.Run("Should carry the component for a canceled operation", func(t *testing.T) {
		cause := errors.New("context canceled")
		err := Canceled("chunker", cause)
		assert.Equal(t, KindCanceled, err.Kind)
		assert.Equal(t, "chunker", err.Component)
	})
}

func TestErrorMessage(t *testing.T) {
	t.Run("Should include the component and cause in the message", func(t *testing.T) {
		err := &Error{Component: "parser \"markdown\"", Cause: errors.New("boom")}
		assert.Equal(t, `parser "markdown" failed: boom`, err.Error())
	})

	t.Run("Should omit the cause when nil", func(t *testing.T) {
		err := &Error{Component: "chunker"}
		assert.Equal(t, "chunker failed", err.Error())
	})
}

func TestAsAndIs(t *testing.T) {
	t.Run("Should find a taxonomy error through wrapping via As", func(t *testing.T) {
		inner := UnsupportedFileType("zip")
		wrapped := fmt.Errorf("dispatch: %w", inner)
		found, ok := As(wrapped)
		require.True(t, ok)
		assert.Same(t, inner, found)
	})

	t.Run("Should return false from As for a non-taxonomy error", func(t *testing.T) {
		_, ok := As(errors.New("plain error"))
		assert.False(t, ok)
	})

	t.Run("Should match on kind via Is", func(t *testing.T) {
		err := ChunkingFailed(errors.New("bad state"))
		assert.True(t, Is(err, KindChunkingFailed))
		assert.False(t, Is(err, KindParsingFailed))
	})
}

func TestPropagationPolicy(t *testing.T) {
	t.Run("Should pass an existing taxonomy error through ParsingFailed unchanged", func(t *testing.T) {
		inner := DecodingFailed("UTF-8", errors.New("bad bytes"))
		got := ParsingFailed("markdown", inner)
		assert.Same(t, inner, got)
	})

	t.Run("Should wrap a plain error as ParsingFailed", func(t *testing.T) {
		cause := errors.New("unexpected token")
		got := ParsingFailed("markdown", cause)
		de, ok := As(got)
		require.True(t, ok)
		assert.Equal(t, KindParsingFailed, de.Kind)
		assert.Equal(t, "markdown", de.Details["parser"])
		assert.ErrorIs(t, got, cause)
	})

	t.Run("Should pass an existing taxonomy error through ChunkingFailed unchanged", func(t *testing.T) {
		inner := Canceled("chunker", errors.New("context canceled"))
		got := ChunkingFailed(inner)
		assert.Same(t, inner, got)
	})

	t.Run("Should wrap a plain error as ChunkingFailed", func(t *testing.T) {
		cause := errors.New("tokenizer exploded")
		got := ChunkingFailed(cause)
		de, ok := As(got)
		require.True(t, ok)
		assert.Equal(t, KindChunkingFailed, de.Kind)
		assert.ErrorIs(t, got, cause)
	})
}

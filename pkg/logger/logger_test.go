package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRespectsLevel(t *testing.T) {
	t.Run("Should suppress debug messages below info level", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Config{Level: InfoLevel, Output: &buf})
		l.Debug("hidden")
		l.Info("visible")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "visible")
	})

	t.Run("Should emit debug messages at debug level", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Config{Level: DebugLevel, Output: &buf})
		l.Debug("shown")
		assert.Contains(t, buf.String(), "shown")
	})
}

func TestNewJSONFormatting(t *testing.T) {
	t.Run("Should emit JSON when configured", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Config{Level: InfoLevel, Output: &buf, JSON: true})
		l.Info("hello", "key", "value")
		out := buf.String()
		assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "{"))
		assert.Contains(t, out, `"key":"value"`)
	})
}

func TestWith(t *testing.T) {
	t.Run("Should attach keyvals to every subsequent message", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Config{Level: InfoLevel, Output: &buf}).With("request_id", "abc123")
		l.Info("processed")
		assert.Contains(t, buf.String(), "abc123")
	})
}

func TestDefaultAndSetDefault(t *testing.T) {
	t.Run("Should return the replaced logger after set default", func(t *testing.T) {
		original := Default()
		defer SetDefault(original)

		var buf bytes.Buffer
		replacement := New(Config{Level: InfoLevel, Output: &buf})
		SetDefault(replacement)
		assert.Same(t, replacement, Default())
	})
}

func TestContextRoundTrip(t *testing.T) {
	t.Run("Should return the attached logger from context", func(t *testing.T) {
		var buf bytes.Buffer
		l := New(Config{Level: InfoLevel, Output: &buf})
		ctx := WithContext(context.Background(), l)
		assert.Same(t, l, FromContext(ctx))
	})

	t.Run("Should fall back to the process default when none is attached", func(t *testing.T) {
		original := Default()
		defer SetDefault(original)

		var buf bytes.Buffer
		replacement := New(Config{Level: InfoLevel, Output: &buf})
		SetDefault(replacement)
		require.Same(t, replacement, FromContext(context.Background()))
	})
}

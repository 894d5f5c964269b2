package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Should load the documented defaults with no environment overrides", func(t *testing.T) {
		cfg, err := NewLoader().Load()
		require.NoError(t, err)
		assert.Equal(t, Default(), *cfg)
	})

	t.Run("Should overlay a dendrite prefixed environment variable", func(t *testing.T) {
		t.Setenv("DENDRITE_CHUNKING_MAX_TOKENS_PER_CHUNK", "256")
		cfg, err := NewLoader().Load()
		require.NoError(t, err)
		assert.Equal(t, 256, cfg.Chunking.MaxTokensPerChunk)
	})

	t.Run("Should reject an invalid split unit", func(t *testing.T) {
		t.Setenv("DENDRITE_CHUNKING_SPLIT_UNIT", "paragraphs")
		_, err := NewLoader().Load()
		assert.Error(t, err)
	})

	t.Run("Should reject a quality threshold above one", func(t *testing.T) {
		t.Setenv("DENDRITE_CHUNKING_QUALITY_THRESHOLD", "1.5")
		_, err := NewLoader().Load()
		assert.Error(t, err)
	})
}

func TestTransformEnvKey(t *testing.T) {
	t.Run("Should convert a multi segment key to dot notation", func(t *testing.T) {
		assert.Equal(t, "chunking.max_tokens_per_chunk", transformEnvKey("DENDRITE_CHUNKING_MAX_TOKENS_PER_CHUNK"))
	})

	t.Run("Should convert a single segment key without a dot", func(t *testing.T) {
		assert.Equal(t, "foo", transformEnvKey("DENDRITE_FOO"))
	})
}

package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNodeID(t *testing.T) {
	t.Run("Should be deterministic for identical parent and content", func(t *testing.T) {
		a := NewNodeID("parent", "hello")
		b := NewNodeID("parent", "hello")
		assert.Equal(t, a, b)
		assert.Len(t, string(a), 64)
	})

	t.Run("Should differ when content differs", func(t *testing.T) {
		a := NewNodeID("parent", "hello")
		b := NewNodeID("parent", "goodbye")
		assert.NotEqual(t, a, b)
	})

	t.Run("Should differ when parent differs", func(t *testing.T) {
		a := NewNodeID("parent-a", "hello")
		b := NewNodeID("parent-b", "hello")
		assert.NotEqual(t, a, b)
	})

	t.Run("Should treat empty parent as hashing content alone", func(t *testing.T) {
		a := NewNodeID("", "hello")
		b := NodeID("2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824") // SHA-256 of "hello"
		assert.Equal(t, a, b)
	})
}

func TestNewChunkID(t *testing.T) {
	t.Run("Should format document ID chunk index", func(t *testing.T) {
		id := NewChunkID("doc1", 3)
		assert.Equal(t, ChunkID("doc1_chunk_3"), id)
	})

	t.Run("Should be deterministic for identical inputs", func(t *testing.T) {
		a := NewChunkID("doc1", 0)
		b := NewChunkID("doc1", 0)
		assert.Equal(t, a, b)
	})
}

func TestStringers(t *testing.T) {
	assert.Equal(t, "abc", NodeID("abc").String())
	assert.Equal(t, "doc1_chunk_0", ChunkID("doc1_chunk_0").String())
	assert.Equal(t, "doc1", DocumentID("doc1").String())
}

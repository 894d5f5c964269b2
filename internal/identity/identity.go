// Package identity defines the opaque, type-safe identifiers used across the
// preprocessing pipeline and the deterministic content hash they are built
// from.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DocumentID identifies a document for the lifetime of a pipeline run. It is
// caller-supplied or derived from a source filename; nothing about it is
// content-addressed.
type DocumentID string

// NodeID is the hex-encoded SHA-256 digest of a node's parent id concatenated
// with its content. Identical (parent, content) pairs always produce the
// same NodeID, on any platform, in any run.
type NodeID string

// ChunkID identifies a chunk within a single document. It is monotonic
// within a processing run, not content-addressed.
type ChunkID string

// TokenCount is a non-negative token count as reported by a Tokenizer.
type TokenCount int

// NewNodeID hashes parent ‖ content into a NodeID. An empty parent is
// treated as the empty string, so top-level nodes hash their content alone.
func NewNodeID(parent NodeID, content string) NodeID {
	h := sha256.New()
	h.Write([]byte(parent))
	h.Write([]byte(content))
	return NodeID(hex.EncodeToString(h.Sum(nil)))
}

// NewChunkID formats the canonical "{DocumentID}_chunk_{index}" chunk id.
func NewChunkID(doc DocumentID, index int) ChunkID {
	return ChunkID(fmt.Sprintf("%s_chunk_%d", doc, index))
}

// String satisfies fmt.Stringer for logging.
func (id NodeID) String() string { return string(id) }

// String satisfies fmt.Stringer for logging.
func (id ChunkID) String() string { return string(id) }

// String satisfies fmt.Stringer for logging.
func (id DocumentID) String() string { return string(id) }

// Package parser defines the parser capability set and dispatch registry
// (spec §4.3, §6). The core depends only on the Parser interface; concrete
// format parsers live in sibling packages (markdown, html, plaintext, pdf).
package parser

import (
	"context"

	"github.com/AxiomOrient/Dendrite/internal/dendriteerr"
	"github.com/AxiomOrient/Dendrite/internal/metadata"
	"github.com/AxiomOrient/Dendrite/internal/node"
)

// ContentType is a MIME-style content-type tag, e.g. "text/markdown".
type ContentType string

// Parser converts raw bytes of a supported content type into a node tree
// plus document metadata.
type Parser interface {
	// Name identifies the parser for diagnostics and parsingFailed errors.
	Name() string

	// SupportedTypes lists the content-type tags this parser accepts.
	SupportedTypes() []ContentType

	// CanParse reports whether t is in SupportedTypes. Parsers may override
	// this for prefix/wildcard matching; DefaultCanParse implements the
	// membership default.
	CanParse(t ContentType) bool

	// Parse decodes data into a node tree and document metadata. mb carries
	// the ambient fields (checksum, size, sniffed MIME type) every parser
	// starts from.
	Parse(ctx context.Context, data []byte, t ContentType, mb *metadata.Builder) ([]node.Block, *metadata.Document, error)
}

// DefaultCanParse implements the membership-based CanParse default described
// in §6.
func DefaultCanParse(supported []ContentType, t ContentType) bool {
	for _, s := range supported {
		if s == t {
			return true
		}
	}
	return false
}

// Registry dispatches a content type to the first registered parser that
// can handle it, in declaration order (spec §4.3, §6: "first match wins").
type Registry struct {
	parsers []Parser
}

// NewRegistry builds a registry from an ordered parser list.
func NewRegistry(parsers ...Parser) *Registry {
	return &Registry{parsers: parsers}
}

// Register appends a parser to the end of the dispatch order.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// Dispatch returns the first parser whose CanParse(t) is true, or an
// unsupportedFileType error when none matches.
func (r *Registry) Dispatch(t ContentType) (Parser, error) {
	for _, p := range r.parsers {
		if p.CanParse(t) {
			return p, nil
		}
	}
	return nil, dendriteerr.UnsupportedFileType(string(t))
}

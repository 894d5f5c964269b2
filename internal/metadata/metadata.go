// Package metadata models the document metadata record produced by parsers
// and consumed unchanged by the chunker (spec §3.3), plus the
// MetadataBuilder helper that pre-populates the ambient fields every parser
// shares (checksum, file size, sniffed MIME type) before a parser layers its
// format-specific SourceDetails on top.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// SourceKind discriminates the format-specific SourceDetails variant.
type SourceKind string

const (
	SourceKindMarkdown  SourceKind = "markdown"
	SourceKindHTML      SourceKind = "html"
	SourceKindPDF       SourceKind = "pdf"
	SourceKindPlainText SourceKind = "plaintext"
)

// SourceDetails is implemented by each format-specific attribute bag.
type SourceDetails interface {
	Kind() SourceKind
}

type MarkdownDetails struct {
	Outline    []string
	Tables     int
	CodeBlocks int
}

func (MarkdownDetails) Kind() SourceKind { return SourceKindMarkdown }

type HTMLDetails struct {
	Images  []string
	Scripts []string
}

func (HTMLDetails) Kind() SourceKind { return SourceKindHTML }

type PDFDetails struct {
	PageCount int
	Encrypted bool
}

func (PDFDetails) Kind() SourceKind { return SourceKindPDF }

type PlainTextDetails struct {
	Encoding   string
	LineEnding string
	LineCount  int
}

func (PlainTextDetails) Kind() SourceKind { return SourceKindPlainText }

// Document is the parser output metadata record described in spec §3.3.
type Document struct {
	Title         string
	Author        string
	Description   string
	Keywords      []string
	CreatedAt     *time.Time
	ModifiedAt    *time.Time
	Links         []string
	Language      string
	MIMEType      string
	FileSizeBytes int64
	Checksum      string
	SourceDetails SourceDetails
}

// Validate enforces §3.4's "metadata is internally valid" invariant: a
// present title must be non-whitespace, and a present file size must be
// non-negative.
func (d *Document) Validate() error {
	if d == nil {
		return nil
	}
	if d.Title != "" && strings.TrimSpace(d.Title) == "" {
		return errInvalidTitle
	}
	if d.FileSizeBytes < 0 {
		return errNegativeFileSize
	}
	return nil
}

// Builder pre-populates the ambient fields shared by every parser: content
// checksum, file size, and a sniffed MIME type used as a fallback when the
// caller-declared content type is empty or generic.
type Builder struct {
	data        []byte
	contentType string
}

// NewBuilder captures the raw bytes and caller-declared content type a
// parser is about to consume.
func NewBuilder(data []byte, contentType string) *Builder {
	return &Builder{data: data, contentType: contentType}
}

// Base returns a Document pre-populated with checksum, file size, and MIME
// type, ready for a parser to enrich with title/author/etc. and a
// format-specific SourceDetails.
func (b *Builder) Base() Document {
	sum := sha256.Sum256(b.data)
	return Document{
		MIMEType:      b.mimeType(),
		FileSizeBytes: int64(len(b.data)),
		Checksum:      hex.EncodeToString(sum[:]),
	}
}

func (b *Builder) mimeType() string {
	declared := strings.TrimSpace(b.contentType)
	if declared != "" && !strings.EqualFold(declared, "application/octet-stream") {
		return declared
	}
	detected := mimetype.Detect(b.data)
	if detected != nil {
		return detected.String()
	}
	return declared
}

var (
	errInvalidTitle     = documentError("metadata: title must be non-whitespace when present")
	errNegativeFileSize = documentError("metadata: file size must be non-negative")
)

type documentError string

func (e documentError) Error() string { return string(e) }

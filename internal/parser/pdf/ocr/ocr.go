// Package ocr defines the OCR fallback contract the PDF parser calls into
// when a page's extracted text is too sparse to be real content (i.e. the
// page is a scanned image). Concrete extractors live in sibling files behind
// build tags so the gosseract/Tesseract cgo dependency is opt-in.
package ocr

import "context"

// Extractor recognizes text from a rasterized page image. img is expected to
// be PNG- or JPEG-encoded bytes.
type Extractor interface {
	ExtractText(ctx context.Context, img []byte) (string, error)
}

// NoOp is the default Extractor used when no OCR backend is configured: it
// reports no recognizable text rather than failing the whole document.
type NoOp struct{}

func (NoOp) ExtractText(context.Context, []byte) (string, error) { return "", nil }

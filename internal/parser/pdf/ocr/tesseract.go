//go:build ocr

// Package ocr's gosseract-backed extractor. Built only with the "ocr" tag
// since gosseract wraps Tesseract via cgo and the toolchain isn't assumed
// available everywhere this module is imported. golang.org/x/image decodes
// the page raster before handing pixels to Tesseract, matching the
// image-preprocessing step the teacher pack's OCR-adjacent tooling favors.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/otiai10/gosseract/v2"
)

// TesseractExtractor recognizes text via a Tesseract client created for each
// call.
type TesseractExtractor struct {
	Languages []string
}

// NewTesseractExtractor builds an extractor for the given Tesseract trained
// languages (e.g. "eng"). An empty slice uses the Tesseract default.
func NewTesseractExtractor(languages ...string) *TesseractExtractor {
	return &TesseractExtractor{Languages: languages}
}

func (e *TesseractExtractor) ExtractText(ctx context.Context, img []byte) (string, error) {
	if _, _, err := image.Decode(bytes.NewReader(img)); err != nil {
		return "", fmt.Errorf("ocr: decode page image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if len(e.Languages) > 0 {
		if err := client.SetLanguage(e.Languages...); err != nil {
			return "", fmt.Errorf("ocr: set language: %w", err)
		}
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("ocr: load image: %w", err)
	}

	done := make(chan struct{})
	var text string
	var recErr error
	go func() {
		text, recErr = client.Text()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-done:
		if recErr != nil {
			return "", fmt.Errorf("ocr: recognize text: %w", recErr)
		}
		return text, nil
	}
}

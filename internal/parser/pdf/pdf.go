// Package pdf implements a Parser for PDF documents using ledongthuc/pdf for
// text extraction. Pages whose text layer is too sparse to be real content
// are handed to an OCR extractor (internal/parser/pdf/ocr); the page is not
// rasterized, so the extractor receives nil image bytes and such pages
// normally yield no text.
package pdf

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/AxiomOrient/Dendrite/internal/dendriteerr"
	"github.com/AxiomOrient/Dendrite/internal/metadata"
	"github.com/AxiomOrient/Dendrite/internal/node"
	"github.com/AxiomOrient/Dendrite/internal/parser"
	"github.com/AxiomOrient/Dendrite/internal/parser/pdf/ocr"
)

const Name = "pdf"

// ContentTypePDF is the content-type tag this parser registers under.
const ContentTypePDF parser.ContentType = "application/pdf"

// minCharsPerPage below this threshold marks a page as likely scanned,
// triggering the OCR fallback when one is configured.
const minCharsPerPage = 20

type Parser struct {
	OCR ocr.Extractor
}

// New builds a Parser. extractor may be nil, in which case scanned pages
// simply yield no text (ocr.NoOp behavior).
func New(extractor ocr.Extractor) *Parser {
	if extractor == nil {
		extractor = ocr.NoOp{}
	}
	return &Parser{OCR: extractor}
}

func (p *Parser) Name() string { return Name }

func (p *Parser) SupportedTypes() []parser.ContentType {
	return []parser.ContentType{ContentTypePDF}
}

func (p *Parser) CanParse(t parser.ContentType) bool {
	return parser.DefaultCanParse(p.SupportedTypes(), t)
}

func (p *Parser) Parse(
	ctx context.Context,
	data []byte,
	_ parser.ContentType,
	mb *metadata.Builder,
) ([]node.Block, *metadata.Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "encrypt") {
			doc := mb.Base()
			doc.SourceDetails = metadata.PDFDetails{Encrypted: true}
			return nil, &doc, dendriteerr.ParsingFailed(Name, err)
		}
		return nil, nil, dendriteerr.ParsingFailed(Name, err)
	}

	totalPages := reader.NumPage()
	var blocks []node.Block
	scanned := 0

	for i := 1; i <= totalPages; i++ {
		if ctx.Err() != nil {
			return nil, nil, dendriteerr.Canceled(Name, ctx.Err())
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, terr := page.GetPlainText(nil)
		if terr != nil {
			text = ""
		}
		trimmed := strings.TrimSpace(text)
		if len(trimmed) < minCharsPerPage {
			scanned++
			if recognized, ocrErr := p.OCR.ExtractText(ctx, nil); ocrErr == nil && strings.TrimSpace(recognized) != "" {
				trimmed = strings.TrimSpace(recognized)
			}
		}
		if trimmed == "" {
			continue
		}
		for _, para := range splitParagraphs(trimmed) {
			blocks = append(blocks, node.NewParagraph("", []node.Inline{&node.Text{S: para}}, nil))
		}
	}

	doc := mb.Base()
	doc.SourceDetails = metadata.PDFDetails{PageCount: totalPages, Encrypted: false}

	if err := node.Validate(blocks); err != nil {
		return nil, nil, dendriteerr.ParsingFailed(Name, err)
	}
	return blocks, &doc, nil
}

func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		trimmed := strings.TrimSpace(r)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{strings.TrimSpace(text)}
	}
	return out
}

// Package plaintext implements a Parser for raw text, with encoding and
// line-ending detection grounded in the teacher's ingest/sources.go
// decodeRemoteText / charset-transcoding flow.
package plaintext

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"

	"github.com/AxiomOrient/Dendrite/internal/dendriteerr"
	"github.com/AxiomOrient/Dendrite/internal/metadata"
	"github.com/AxiomOrient/Dendrite/internal/node"
	"github.com/AxiomOrient/Dendrite/internal/parser"
)

const Name = "plaintext"

// ContentTypePlain is the content-type tag this parser registers under.
const ContentTypePlain parser.ContentType = "text/plain"

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Name() string { return Name }

func (p *Parser) SupportedTypes() []parser.ContentType {
	return []parser.ContentType{ContentTypePlain}
}

func (p *Parser) CanParse(t parser.ContentType) bool {
	return parser.DefaultCanParse(p.SupportedTypes(), t)
}

func (p *Parser) Parse(
	_ context.Context,
	data []byte,
	_ parser.ContentType,
	mb *metadata.Builder,
) ([]node.Block, *metadata.Document, error) {
	text, encoding, err := decode(data)
	if err != nil {
		return nil, nil, dendriteerr.DecodingFailed(encoding, err)
	}
	lineEnding := detectLineEnding(text)
	normalized := normalizeNewlines(text)
	lineCount := 1
	if normalized != "" {
		lineCount = strings.Count(normalized, "\n") + 1
	}

	doc := mb.Base()
	doc.SourceDetails = metadata.PlainTextDetails{
		Encoding:   encoding,
		LineEnding: lineEnding,
		LineCount:  lineCount,
	}

	trimmed := strings.TrimSpace(normalized)
	if trimmed == "" {
		return nil, &doc, nil
	}
	para := node.NewParagraph("", []node.Inline{&node.Text{S: trimmed}}, nil)
	return []node.Block{para}, &doc, nil
}

func decode(data []byte) (string, string, error) {
	if utf8.Valid(data) {
		return string(data), "UTF-8", nil
	}
	enc, name, _ := charset.DetermineEncoding(data, "")
	reader := transform.NewReader(bytes.NewReader(data), enc.NewDecoder())
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", name, err
	}
	decoded := buf.String()
	if !utf8.Valid([]byte(decoded)) {
		return "", name, errNotUTF8
	}
	return decoded, strings.ToUpper(name), nil
}

func detectLineEnding(text string) string {
	if strings.Contains(text, "\r\n") {
		return "CRLF"
	}
	if strings.Contains(text, "\r") {
		return "CR"
	}
	return "LF"
}

func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return text
}

type decodingError string

func (e decodingError) Error() string { return string(e) }

const errNotUTF8 = decodingError("transcoded result invalid utf-8")

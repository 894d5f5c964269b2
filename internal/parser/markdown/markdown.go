// Package markdown implements a Parser for Markdown documents using
// goldmark, grounded in the teacher pack's shinomontaz-console_rag
// goldmark-based chunker (AST walk, heading/paragraph/text extraction).
// YAML front matter is decoded with goccy/go-yaml, a direct dependency of
// the compozy-compozy teacher.
package markdown

import (
	"bytes"
	"context"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/yuin/goldmark"
	gast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	gtext "github.com/yuin/goldmark/text"

	"github.com/AxiomOrient/Dendrite/internal/dendriteerr"
	"github.com/AxiomOrient/Dendrite/internal/identity"
	"github.com/AxiomOrient/Dendrite/internal/metadata"
	"github.com/AxiomOrient/Dendrite/internal/node"
	"github.com/AxiomOrient/Dendrite/internal/parser"
)

const Name = "markdown"

// ContentTypeMarkdown is the content-type tag this parser registers under.
const ContentTypeMarkdown parser.ContentType = "text/markdown"

type Parser struct {
	md goldmark.Markdown
}

func New() *Parser {
	return &Parser{md: goldmark.New(goldmark.WithExtensions(extension.Table))}
}

func (p *Parser) Name() string { return Name }

func (p *Parser) SupportedTypes() []parser.ContentType {
	return []parser.ContentType{ContentTypeMarkdown}
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
	frontMatter, body := splitFrontMatter(data)

	doc := mb.Base()
	if len(frontMatter) > 0 {
		var fm struct {
			Title       string   `yaml:"title"`
			Author      string   `yaml:"author"`
			Description string   `yaml:"description"`
			Keywords    []string `yaml:"keywords"`
			Language    string   `yaml:"language"`
		}
		if err := yaml.Unmarshal(frontMatter, &fm); err != nil {
			return nil, nil, dendriteerr.ParsingFailed(Name, err)
		}
		doc.Title = fm.Title
		doc.Author = fm.Author
		doc.Description = fm.Description
		doc.Keywords = fm.Keywords
		doc.Language = fm.Language
	}

	reader := gtext.NewReader(body)
	root := p.md.Parser().Parse(reader)

	c := &converter{source: body}
	blocks := c.convertChildren("", root)

	outline := make([]string, 0)
	tables, codeBlocks := 0, 0
	for _, b := range blocks {
		switch n := b.(type) {
		case *node.Heading:
			outline = append(outline, n.Text)
		case *node.Table:
			tables++
		case *node.CodeBlock:
			codeBlocks++
		}
	}
	doc.SourceDetails = metadata.MarkdownDetails{Outline: outline, Tables: tables, CodeBlocks: codeBlocks}

	if err := node.Validate(blocks); err != nil {
		return nil, nil, dendriteerr.ParsingFailed(Name, err)
	}
	return blocks, &doc, nil
}

// splitFrontMatter strips a leading "---\n...\n---\n" YAML block, if present.
func splitFrontMatter(data []byte) (frontMatter, body []byte) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\uFEFF \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, data
	}
	rest := trimmed[len(delim):]
	rest = bytes.TrimLeft(rest, "\r\n")
	end := bytes.Index(rest, []byte("\n"+delim))
	if end < 0 {
		return nil, data
	}
	fm := rest[:end]
	afterDelim := rest[end+len("\n"+delim):]
	nl := bytes.IndexByte(afterDelim, '\n')
	if nl < 0 {
		return fm, nil
	}
	return fm, afterDelim[nl+1:]
}

type converter struct {
	source []byte
}

func (c *converter) convertChildren(parent identity.NodeID, n gast.Node) []node.Block {
	var out []node.Block
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if b := c.convertBlock(parent, child); b != nil {
			out = append(out, b)
		}
	}
	return out
}

func (c *converter) convertBlock(parent identity.NodeID, n gast.Node) node.Block {
	switch v := n.(type) {
	case *gast.Heading:
		text := c.textOf(v)
		return node.NewHeading(parent, v.Level, text, nil)
	case *gast.Paragraph:
		return node.NewParagraph(parent, c.convertInlines(v), nil)
	case *gast.TextBlock:
		return node.NewParagraph(parent, c.convertInlines(v), nil)
	case *gast.List:
		return c.convertList(parent, v)
	case *gast.Blockquote:
		placeholder := node.NewBlockquote(parent, nil, nil)
		children := c.convertChildren(placeholder.NodeID, v)
		return node.NewBlockquote(parent, children, nil)
	case *gast.FencedCodeBlock:
		lang := string(v.Language(c.source))
		return node.NewCodeBlock(parent, lang, c.codeLines(&v.BaseBlock), nil)
	case *gast.CodeBlock:
		return node.NewCodeBlock(parent, "", c.codeLines(&v.BaseBlock), nil)
	case *gast.ThematicBreak:
		return node.NewThematicBreak(parent, nil)
	case *extast.Table:
		return c.convertTable(parent, v)
	default:
		return nil
	}
}

func (c *converter) convertList(parent identity.NodeID, l *gast.List) *node.List {
	placeholder := node.NewList(parent, l.IsOrdered(), nil, nil)
	items := make([]*node.ListItem, 0)
	for child := l.FirstChild(); child != nil; child = child.NextSibling() {
		li, ok := child.(*gast.ListItem)
		if !ok {
			continue
		}
		itemPlaceholder := node.NewListItem(placeholder.NodeID, nil, nil)
		children := c.convertChildren(itemPlaceholder.NodeID, li)
		items = append(items, node.NewListItem(placeholder.NodeID, children, nil))
	}
	return node.NewList(parent, l.IsOrdered(), items, nil)
}

func (c *converter) convertTable(parent identity.NodeID, t *extast.Table) *node.Table {
	var headers []string
	var rows [][]string
	for child := t.FirstChild(); child != nil; child = child.NextSibling() {
		switch row := child.(type) {
		case *extast.TableHeader:
			headers = c.tableRowCells(row)
		case *extast.TableRow:
			rows = append(rows, c.tableRowCells(row))
		}
	}
	return node.NewTable(parent, "", headers, rows, nil)
}

func (c *converter) tableRowCells(row gast.Node) []string {
	var cells []string
	for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
		cells = append(cells, strings.TrimSpace(c.textOf(cell)))
	}
	return cells
}

func (c *converter) codeLines(b *gast.BaseBlock) string {
	var buf strings.Builder
	lines := b.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(c.source))
	}
	return strings.TrimRight(buf.String(), "\n")
}

func (c *converter) textOf(n gast.Node) string {
	var buf strings.Builder
	var walk func(gast.Node)
	walk = func(n gast.Node) {
		switch v := n.(type) {
		case *gast.Text:
			buf.Write(v.Segment.Value(c.source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				buf.WriteString(" ")
			}
		case *gast.String:
			buf.Write(v.Value)
		case *gast.CodeSpan:
			for cn := v.FirstChild(); cn != nil; cn = cn.NextSibling() {
				walk(cn)
			}
		default:
			for cn := n.FirstChild(); cn != nil; cn = cn.NextSibling() {
				walk(cn)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}

func (c *converter) convertInlines(n gast.Node) []node.Inline {
	var out []node.Inline
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		if in := c.convertInline(child); in != nil {
			out = append(out, in)
		}
	}
	return out
}

func (c *converter) convertInline(n gast.Node) node.Inline {
	switch v := n.(type) {
	case *gast.Text:
		s := string(v.Segment.Value(c.source))
		if v.SoftLineBreak() || v.HardLineBreak() {
			s += " "
		}
		return &node.Text{S: s}
	case *gast.String:
		return &node.Text{S: string(v.Value)}
	case *gast.AutoLink:
		return &node.Link{Destination: string(v.URL(c.source)), Children: []node.Inline{&node.Text{S: string(v.Label(c.source))}}}
	case *gast.Link:
		return &node.Link{Destination: string(v.Destination), Children: c.convertInlines(v)}
	case *gast.Image:
		return &node.Image{Source: string(v.Destination), Alt: c.textOf(v)}
	case *gast.Emphasis:
		if v.Level >= 2 {
			return &node.Strong{Children: c.convertInlines(v)}
		}
		return &node.Emphasis{Children: c.convertInlines(v)}
	case *gast.CodeSpan:
		return &node.InlineCode{S: c.textOf(v)}
	default:
		if n.FirstChild() != nil {
			return &node.Text{S: c.textOf(n)}
		}
		return nil
	}
}

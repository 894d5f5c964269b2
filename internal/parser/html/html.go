// Package html implements a Parser for HTML documents using
// golang.org/x/net/html for tree walking and charset detection, grounded in
// the teacher's ingest pipeline (which transcodes remote HTML the same way
// before handing it to a chunker).
package html

import (
	"bytes"
	"context"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/charset"

	"github.com/AxiomOrient/Dendrite/internal/dendriteerr"
	"github.com/AxiomOrient/Dendrite/internal/identity"
	"github.com/AxiomOrient/Dendrite/internal/metadata"
	"github.com/AxiomOrient/Dendrite/internal/node"
	"github.com/AxiomOrient/Dendrite/internal/parser"
)

const Name = "html"

// ContentTypeHTML is the content-type tag this parser registers under.
const ContentTypeHTML parser.ContentType = "text/html"

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) Name() string { return Name }

func (p *Parser) SupportedTypes() []parser.ContentType {
	return []parser.ContentType{ContentTypeHTML}
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
	utf8Reader, err := charset.NewReader(bytes.NewReader(data), "text/html")
	if err != nil {
		return nil, nil, dendriteerr.DecodingFailed("unknown", err)
	}
	root, err := xhtml.Parse(utf8Reader)
	if err != nil {
		return nil, nil, dendriteerr.ParsingFailed(Name, err)
	}

	body := findElement(root, "body")
	if body == nil {
		body = root
	}

	c := &converter{}
	if title := findElement(root, "title"); title != nil {
		c.title = strings.TrimSpace(textContent(title))
	}
	blocks := c.convertChildren("", body)

	doc := mb.Base()
	doc.Title = c.title
	doc.SourceDetails = metadata.HTMLDetails{Images: c.images, Scripts: c.scripts}

	if err := node.Validate(blocks); err != nil {
		return nil, nil, dendriteerr.ParsingFailed(Name, err)
	}
	return blocks, &doc, nil
}

func findElement(n *xhtml.Node, tag string) *xhtml.Node {
	if n.Type == xhtml.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findElement(c, tag); b != nil {
			return b
		}
	}
	return nil
}

type converter struct {
	title   string
	images  []string
	scripts []string
}

var headingLevels = map[string]int{"h1": 1, "h2": 2, "h3": 3, "h4": 4, "h5": 5, "h6": 6}

var containerTags = map[string]bool{
	"section": true, "article": true, "main": true, "body": true,
	"header": true, "aside": true, "figure": true,
}

func (c *converter) convertChildren(parent identity.NodeID, n *xhtml.Node) []node.Block {
	var out []node.Block
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xhtml.ElementNode && containerTags[child.Data] {
			out = append(out, c.convertChildren(parent, child)...)
			continue
		}
		if b := c.convertBlock(parent, child); b != nil {
			out = append(out, b)
		}
	}
	return out
}

func (c *converter) convertBlock(parent identity.NodeID, n *xhtml.Node) node.Block {
	if n.Type == xhtml.TextNode {
		text := strings.TrimSpace(n.Data)
		if text == "" {
			return nil
		}
		return node.NewParagraph(parent, []node.Inline{&node.Text{S: text}}, nil)
	}
	if n.Type != xhtml.ElementNode {
		return nil
	}

	switch n.Data {
	case "title":
		c.title = strings.TrimSpace(textContent(n))
		return nil
	case "script", "style", "head", "nav", "footer":
		if n.Data == "script" {
			if src := attr(n, "src"); src != "" {
				c.scripts = append(c.scripts, src)
			}
		}
		return nil
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return node.NewHeading(parent, headingLevels[n.Data], strings.TrimSpace(textContent(n)), nil)
	case "p", "div", "span":
		inlines := c.convertInlines(n)
		if len(inlines) == 0 {
			return nil
		}
		return node.NewParagraph(parent, inlines, nil)
	case "ul", "ol":
		return c.convertList(parent, n)
	case "blockquote":
		placeholder := node.NewBlockquote(parent, nil, nil)
		children := c.convertChildren(placeholder.NodeID, n)
		return node.NewBlockquote(parent, children, nil)
	case "pre":
		lang := ""
		code := textContent(n)
		if codeNode := findChild(n, "code"); codeNode != nil {
			code = textContent(codeNode)
			for _, cls := range strings.Fields(attr(codeNode, "class")) {
				if strings.HasPrefix(cls, "language-") {
					lang = strings.TrimPrefix(cls, "language-")
				}
			}
		}
		return node.NewCodeBlock(parent, lang, strings.TrimRight(code, "\n"), nil)
	case "table":
		return c.convertTable(parent, n)
	case "hr":
		return node.NewThematicBreak(parent, nil)
	case "img":
		c.images = append(c.images, attr(n, "src"))
		return nil
	default:
		text := strings.TrimSpace(textContent(n))
		if text == "" {
			return nil
		}
		return node.NewParagraph(parent, []node.Inline{&node.Text{S: text}}, nil)
	}
}

func (c *converter) convertList(parent identity.NodeID, l *xhtml.Node) *node.List {
	ordered := l.Data == "ol"
	placeholder := node.NewList(parent, ordered, nil, nil)
	items := make([]*node.ListItem, 0)
	for child := l.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xhtml.ElementNode || child.Data != "li" {
			continue
		}
		itemPlaceholder := node.NewListItem(placeholder.NodeID, nil, nil)
		children := c.convertChildren(itemPlaceholder.NodeID, child)
		if len(children) == 0 {
			text := strings.TrimSpace(textContent(child))
			if text != "" {
				children = []node.Block{node.NewParagraph(itemPlaceholder.NodeID, []node.Inline{&node.Text{S: text}}, nil)}
			}
		}
		items = append(items, node.NewListItem(placeholder.NodeID, children, nil))
	}
	return node.NewList(parent, ordered, items, nil)
}

func (c *converter) convertTable(parent identity.NodeID, t *xhtml.Node) *node.Table {
	var headers []string
	var rows [][]string
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != xhtml.ElementNode {
				continue
			}
			switch child.Data {
			case "thead":
				walk(child)
			case "tbody", "tfoot":
				walk(child)
			case "tr":
				var cells []string
				isHeaderRow := false
				for cell := child.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type != xhtml.ElementNode {
						continue
					}
					if cell.Data == "th" {
						isHeaderRow = true
					}
					if cell.Data == "th" || cell.Data == "td" {
						cells = append(cells, strings.TrimSpace(textContent(cell)))
					}
				}
				if isHeaderRow && headers == nil {
					headers = cells
				} else {
					rows = append(rows, cells)
				}
			}
		}
	}
	walk(t)
	return node.NewTable(parent, "", headers, rows, nil)
}

func (c *converter) convertInlines(n *xhtml.Node) []node.Inline {
	var out []node.Inline
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if in := c.convertInline(child); in != nil {
			out = append(out, in)
		}
	}
	return out
}

func (c *converter) convertInline(n *xhtml.Node) node.Inline {
	if n.Type == xhtml.TextNode {
		if n.Data == "" {
			return nil
		}
		return &node.Text{S: n.Data}
	}
	if n.Type != xhtml.ElementNode {
		return nil
	}
	switch n.Data {
	case "a":
		return &node.Link{Destination: attr(n, "href"), Children: c.convertInlines(n)}
	case "img":
		src := attr(n, "src")
		c.images = append(c.images, src)
		return &node.Image{Source: src, Alt: attr(n, "alt")}
	case "strong", "b":
		return &node.Strong{Children: c.convertInlines(n)}
	case "em", "i":
		return &node.Emphasis{Children: c.convertInlines(n)}
	case "code":
		return &node.InlineCode{S: textContent(n)}
	case "br":
		return &node.Text{S: " "}
	default:
		if children := c.convertInlines(n); len(children) > 0 {
			return &node.Emphasis{Children: children}
		}
		return nil
	}
}

func findChild(n *xhtml.Node, tag string) *xhtml.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xhtml.ElementNode && c.Data == tag {
			return c
		}
	}
	return nil
}

func attr(n *xhtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *xhtml.Node) string {
	var buf strings.Builder
	var walk func(*xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.TextNode {
			buf.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return buf.String()
}

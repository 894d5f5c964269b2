// Package node defines the semantic node tree (the intermediate
// representation) that every parser emits and the chunker consumes. It is a
// closed, tagged variant over block and inline document structure with pure
// derived observables (plainText, structural importance, boundary
// detection) computed directly on the tree.
package node

import (
	"strings"

	"github.com/AxiomOrient/Dendrite/internal/identity"
)

// Kind discriminates the variant a Block or Inline value carries.
type Kind int

const (
	KindHeading Kind = iota
	KindParagraph
	KindList
	KindListItem
	KindBlockquote
	KindCodeBlock
	KindTable
	KindThematicBreak
	KindLink
	KindImage
	KindText
	KindEmphasis
	KindStrong
	KindInlineCode
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "Heading"
	case KindParagraph:
		return "Paragraph"
	case KindList:
		return "List"
	case KindListItem:
		return "ListItem"
	case KindBlockquote:
		return "Blockquote"
	case KindCodeBlock:
		return "CodeBlock"
	case KindTable:
		return "Table"
	case KindThematicBreak:
		return "ThematicBreak"
	case KindLink:
		return "Link"
	case KindImage:
		return "Image"
	case KindText:
		return "Text"
	case KindEmphasis:
		return "Emphasis"
	case KindStrong:
		return "Strong"
	case KindInlineCode:
		return "InlineCode"
	default:
		return "Unknown"
	}
}

// Range is an optional byte offset span into the original source, used for
// diagnostics only; it never affects identity or chunking.
type Range struct {
	Start, End int
}

// Block is a top-level or nested block node. Every concrete block carries a
// content-addressed NodeID and participates in the pure observables the
// chunker depends on.
type Block interface {
	Kind() Kind
	ID() identity.NodeID
	SourceRange() *Range
	PlainText() string
	StructuralImportance() float64
	IsContextBoundary() bool
	RequiresSpecialHandling() bool
}

// Inline is an inline span. Inline nodes carry no independent identity; they
// are identified through their enclosing block.
type Inline interface {
	Kind() Kind
	PlainText() string
}

// inlinePlainText concatenates the plain text of a run of inline children
// with no separator, since inline Text nodes already carry their own
// whitespace runs.
func inlinePlainText(children []Inline) string {
	var b strings.Builder
	for _, c := range children {
		b.WriteString(c.PlainText())
	}
	return b.String()
}

// blockPlainText concatenates the plain text of a run of block children with
// no separator, matching the identity content rule in §4.1 of the spec this
// tree implements (Paragraph/ListItem/Blockquote: concatenation of
// children's plainText).
func blockPlainText(children []Block) string {
	var b strings.Builder
	for _, c := range children {
		b.WriteString(c.PlainText())
	}
	return b.String()
}

// --- Block variants ---

type Heading struct {
	NodeID identity.NodeID
	Level  int
	Text   string
	Range  *Range
}

func (h *Heading) Kind() Kind                   { return KindHeading }
func (h *Heading) ID() identity.NodeID          { return h.NodeID }
func (h *Heading) SourceRange() *Range          { return h.Range }
func (h *Heading) PlainText() string            { return h.Text }
func (h *Heading) IsContextBoundary() bool      { return true }
func (h *Heading) RequiresSpecialHandling() bool { return false }
func (h *Heading) StructuralImportance() float64 {
	level := h.Level
	if level < 1 {
		level = 1
	}
	return 1.0 - 0.15*float64(level-1)
}

type Paragraph struct {
	NodeID   identity.NodeID
	Children []Inline
	Range    *Range
}

func (p *Paragraph) Kind() Kind                    { return KindParagraph }
func (p *Paragraph) ID() identity.NodeID           { return p.NodeID }
func (p *Paragraph) SourceRange() *Range           { return p.Range }
func (p *Paragraph) PlainText() string             { return inlinePlainText(p.Children) }
func (p *Paragraph) StructuralImportance() float64 { return 0.5 }
func (p *Paragraph) IsContextBoundary() bool       { return false }
func (p *Paragraph) RequiresSpecialHandling() bool { return false }

type ListItem struct {
	NodeID   identity.NodeID
	Children []Block
	Range    *Range
}

func (li *ListItem) Kind() Kind                    { return KindListItem }
func (li *ListItem) ID() identity.NodeID           { return li.NodeID }
func (li *ListItem) SourceRange() *Range           { return li.Range }
func (li *ListItem) PlainText() string             { return blockPlainText(li.Children) }
func (li *ListItem) StructuralImportance() float64 { return 0.7 }
func (li *ListItem) IsContextBoundary() bool       { return false }
func (li *ListItem) RequiresSpecialHandling() bool { return false }

type List struct {
	NodeID  identity.NodeID
	Ordered bool
	Items   []*ListItem
	Range   *Range
}

func (l *List) Kind() Kind                    { return KindList }
func (l *List) ID() identity.NodeID           { return l.NodeID }
func (l *List) SourceRange() *Range           { return l.Range }
func (l *List) StructuralImportance() float64 { return 0.7 }
func (l *List) IsContextBoundary() bool       { return false }
func (l *List) RequiresSpecialHandling() bool { return false }
func (l *List) PlainText() string {
	parts := make([]string, len(l.Items))
	for i, item := range l.Items {
		parts[i] = item.PlainText()
	}
	return strings.Join(parts, "\n")
}

type Blockquote struct {
	NodeID   identity.NodeID
	Children []Block
	Range    *Range
}

func (b *Blockquote) Kind() Kind                    { return KindBlockquote }
func (b *Blockquote) ID() identity.NodeID           { return b.NodeID }
func (b *Blockquote) SourceRange() *Range           { return b.Range }
func (b *Blockquote) PlainText() string             { return blockPlainText(b.Children) }
func (b *Blockquote) StructuralImportance() float64 { return 0.6 }
func (b *Blockquote) IsContextBoundary() bool       { return false }
func (b *Blockquote) RequiresSpecialHandling() bool { return false }

type CodeBlock struct {
	NodeID   identity.NodeID
	Language string
	Code     string
	Range    *Range
}

func (c *CodeBlock) Kind() Kind                    { return KindCodeBlock }
func (c *CodeBlock) ID() identity.NodeID           { return c.NodeID }
func (c *CodeBlock) SourceRange() *Range           { return c.Range }
func (c *CodeBlock) PlainText() string             { return c.Code }
func (c *CodeBlock) StructuralImportance() float64 { return 0.8 }
func (c *CodeBlock) IsContextBoundary() bool       { return true }
func (c *CodeBlock) RequiresSpecialHandling() bool { return true }

type Table struct {
	NodeID  identity.NodeID
	Caption string
	Headers []string
	Rows    [][]string
	Range   *Range
}

func (t *Table) Kind() Kind                    { return KindTable }
func (t *Table) ID() identity.NodeID           { return t.NodeID }
func (t *Table) SourceRange() *Range           { return t.Range }
func (t *Table) StructuralImportance() float64 { return 0.9 }
func (t *Table) IsContextBoundary() bool       { return true }
func (t *Table) RequiresSpecialHandling() bool { return true }
func (t *Table) PlainText() string {
	lines := make([]string, 0, len(t.Rows)+1)
	lines = append(lines, strings.Join(t.Headers, ", "))
	for _, row := range t.Rows {
		lines = append(lines, strings.Join(row, ", "))
	}
	return strings.Join(lines, "\n")
}

type ThematicBreak struct {
	NodeID identity.NodeID
	Range  *Range
}

func (t *ThematicBreak) Kind() Kind                    { return KindThematicBreak }
func (t *ThematicBreak) ID() identity.NodeID           { return t.NodeID }
func (t *ThematicBreak) SourceRange() *Range           { return t.Range }
func (t *ThematicBreak) PlainText() string             { return "" }
func (t *ThematicBreak) StructuralImportance() float64 { return 0 }
func (t *ThematicBreak) IsContextBoundary() bool       { return true }
func (t *ThematicBreak) RequiresSpecialHandling() bool { return false }

// --- Inline variants ---

type Link struct {
	Destination string
	Children    []Inline
}

func (l *Link) Kind() Kind        { return KindLink }
func (l *Link) PlainText() string { return inlinePlainText(l.Children) }

type Image struct {
	Source string
	Alt    string
}

func (i *Image) Kind() Kind        { return KindImage }
func (i *Image) PlainText() string { return i.Alt }

type Text struct {
	S string
}

func (t *Text) Kind() Kind        { return KindText }
func (t *Text) PlainText() string { return t.S }

type Emphasis struct {
	Children []Inline
}

func (e *Emphasis) Kind() Kind        { return KindEmphasis }
func (e *Emphasis) PlainText() string { return inlinePlainText(e.Children) }

type Strong struct {
	Children []Inline
}

func (s *Strong) Kind() Kind        { return KindStrong }
func (s *Strong) PlainText() string { return inlinePlainText(s.Children) }

type InlineCode struct {
	S string
}

func (c *InlineCode) Kind() Kind        { return KindInlineCode }
func (c *InlineCode) PlainText() string { return c.S }

// StructuralImportanceOf returns the structural importance heuristic for an
// arbitrary Kind, including the inline Text kind. A Heading scores 1.0 here
// whatever its level; the quality scorer uses the Block methods instead.
func StructuralImportanceOf(k Kind) float64 {
	switch k {
	case KindHeading:
		return 1.0
	case KindTable:
		return 0.9
	case KindCodeBlock:
		return 0.8
	case KindList:
		return 0.7
	case KindBlockquote:
		return 0.6
	case KindParagraph:
		return 0.5
	case KindText:
		return 0.3
	default:
		return 0
	}
}

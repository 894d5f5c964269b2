package node

import (
	"strings"

	"github.com/AxiomOrient/Dendrite/internal/identity"
)

// The New* constructors compute each block's NodeID from its parent id and
// its content, following the hashing rules in §4.1: parentID ‖ content,
// where content is derived per-kind from the node's constituent text. Using
// these constructors instead of building the structs by hand keeps every
// parser's identity computation bit-identical.

func NewHeading(parent identity.NodeID, level int, text string, rng *Range) *Heading {
	return &Heading{
		NodeID: identity.NewNodeID(parent, text),
		Level:  level,
		Text:   text,
		Range:  rng,
	}
}

func NewParagraph(parent identity.NodeID, children []Inline, rng *Range) *Paragraph {
	content := inlinePlainText(children)
	return &Paragraph{
		NodeID:   identity.NewNodeID(parent, content),
		Children: children,
		Range:    rng,
	}
}

func NewListItem(parent identity.NodeID, children []Block, rng *Range) *ListItem {
	content := blockPlainText(children)
	return &ListItem{
		NodeID:   identity.NewNodeID(parent, content),
		Children: children,
		Range:    rng,
	}
}

func NewList(parent identity.NodeID, ordered bool, items []*ListItem, rng *Range) *List {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.PlainText()
	}
	content := strings.Join(parts, "")
	return &List{
		NodeID:  identity.NewNodeID(parent, content),
		Ordered: ordered,
		Items:   items,
		Range:   rng,
	}
}

func NewBlockquote(parent identity.NodeID, children []Block, rng *Range) *Blockquote {
	content := blockPlainText(children)
	return &Blockquote{
		NodeID:   identity.NewNodeID(parent, content),
		Children: children,
		Range:    rng,
	}
}

func NewCodeBlock(parent identity.NodeID, language, code string, rng *Range) *CodeBlock {
	content := language + code
	return &CodeBlock{
		NodeID:   identity.NewNodeID(parent, content),
		Language: language,
		Code:     code,
		Range:    rng,
	}
}

func NewTable(parent identity.NodeID, caption string, headers []string, rows [][]string, rng *Range) *Table {
	flat := make([]string, 0, len(rows))
	for _, row := range rows {
		flat = append(flat, strings.Join(row, ""))
	}
	content := caption + strings.Join(headers, "") + strings.Join(flat, "")
	return &Table{
		NodeID:  identity.NewNodeID(parent, content),
		Caption: caption,
		Headers: headers,
		Rows:    rows,
		Range:   rng,
	}
}

func NewThematicBreak(parent identity.NodeID, rng *Range) *ThematicBreak {
	return &ThematicBreak{
		NodeID: identity.NewNodeID(parent, "thematicBreak"),
		Range:  rng,
	}
}

package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxiomOrient/Dendrite/internal/identity"
)

func TestNodeIDDeterminism(t *testing.T) {
	t.Run("Should produce identical IDs for identical parent and content", func(t *testing.T) {
		h1 := NewHeading("", 1, "Intro", nil)
		h2 := NewHeading("", 1, "Intro", nil)
		assert.Equal(t, h1.NodeID, h2.NodeID)
		assert.Len(t, string(h1.NodeID), 64)
	})

	t.Run("Should differ when parent differs", func(t *testing.T) {
		h1 := NewHeading("parent-a", 1, "Intro", nil)
		h2 := NewHeading("parent-b", 1, "Intro", nil)
		assert.NotEqual(t, h1.NodeID, h2.NodeID)
	})
}

func TestStructuralImportance(t *testing.T) {
	t.Run("Should decay with heading level", func(t *testing.T) {
		h1 := NewHeading("", 1, "T", nil)
		h3 := NewHeading("", 3, "T", nil)
		assert.InDelta(t, 1.0, h1.StructuralImportance(), 1e-9)
		assert.InDelta(t, 0.70, h3.StructuralImportance(), 1e-9)
	})

	t.Run("Should match table code list blockquote paragraph weights", func(t *testing.T) {
		table := NewTable("", "", []string{"a"}, [][]string{{"1"}}, nil)
		code := NewCodeBlock("", "go", "x", nil)
		list := NewList("", false, nil, nil)
		quote := NewBlockquote("", nil, nil)
		para := NewParagraph("", nil, nil)
		assert.InDelta(t, 0.9, table.StructuralImportance(), 1e-9)
		assert.InDelta(t, 0.8, code.StructuralImportance(), 1e-9)
		assert.InDelta(t, 0.7, list.StructuralImportance(), 1e-9)
		assert.InDelta(t, 0.6, quote.StructuralImportance(), 1e-9)
		assert.InDelta(t, 0.5, para.StructuralImportance(), 1e-9)
	})
}

func TestContextBoundaryAndSpecialHandling(t *testing.T) {
	boundary := []Block{
		NewHeading("", 1, "T", nil),
		NewTable("", "", []string{"a"}, nil, nil),
		NewCodeBlock("", "", "", nil),
		NewThematicBreak("", nil),
	}
	for _, b := range boundary {
		assert.True(t, b.IsContextBoundary(), "%s should be a context boundary", b.Kind())
	}
	nonBoundary := []Block{
		NewParagraph("", nil, nil),
		NewList("", false, nil, nil),
		NewBlockquote("", nil, nil),
	}
	for _, b := range nonBoundary {
		assert.False(t, b.IsContextBoundary(), "%s should not be a context boundary", b.Kind())
	}

	special := []Block{NewTable("", "", []string{"a"}, nil, nil), NewCodeBlock("", "", "", nil)}
	for _, b := range special {
		assert.True(t, b.RequiresSpecialHandling())
	}
	notSpecial := []Block{NewHeading("", 1, "T", nil), NewParagraph("", nil, nil)}
	for _, b := range notSpecial {
		assert.False(t, b.RequiresSpecialHandling())
	}
}

func TestPlainTextProjection(t *testing.T) {
	t.Run("Should concatenate inline children without separator", func(t *testing.T) {
		para := NewParagraph("", []Inline{&Text{S: "Hello "}, &Strong{Children: []Inline{&Text{S: "world"}}}}, nil)
		assert.Equal(t, "Hello world", para.PlainText())
	})

	t.Run("Should join list items with newline", func(t *testing.T) {
		item1 := NewListItem("", []Block{NewParagraph("", []Inline{&Text{S: "one"}}, nil)}, nil)
		item2 := NewListItem("", []Block{NewParagraph("", []Inline{&Text{S: "two"}}, nil)}, nil)
		list := NewList("", false, []*ListItem{item1, item2}, nil)
		assert.Equal(t, "one\ntwo", list.PlainText())
	})

	t.Run("Should join table rows with newline", func(t *testing.T) {
		table := NewTable("", "", []string{"h1", "h2"}, [][]string{{"a", "b"}, {"c", "d"}}, nil)
		assert.Equal(t, "h1, h2\na, b\nc, d", table.PlainText())
	})
}

func TestValidate(t *testing.T) {
	t.Run("Should reject heading level out of range", func(t *testing.T) {
		h := &Heading{NodeID: identity.NewNodeID("", "x"), Level: 7, Text: "x"}
		err := Validate([]Block{h})
		require.Error(t, err)
	})

	t.Run("Should reject ragged table rows", func(t *testing.T) {
		table := &Table{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}}
		err := Validate([]Block{table})
		require.Error(t, err)
	})

	t.Run("Should accept well formed tree", func(t *testing.T) {
		table := NewTable("", "", []string{"a", "b"}, [][]string{{"1", "2"}}, nil)
		heading := NewHeading("", 3, "ok", nil)
		require.NoError(t, Validate([]Block{heading, table}))
	})
}

package chunk

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/AxiomOrient/Dendrite/internal/dendriteerr"
	"github.com/AxiomOrient/Dendrite/internal/identity"
	"github.com/AxiomOrient/Dendrite/internal/node"
)

// handleTable implements §4.4.5's table handler: one structure chunk plus
// one chunk per row, each carrying enough of the header/caption context to
// stand alone.
func (c *Chunker) handleTable(ctx context.Context, t *node.Table, breadcrumb Breadcrumb) ([]Chunk, error) {
	tableBreadcrumb := breadcrumb.Appending("Table")
	importance := []float64{t.StructuralImportance()}

	var chunks []Chunk

	structureContent := formatTableStructure(t)
	structureChunk, err := c.buildChunk(ctx, structureContent, tableBreadcrumb.Appending("Structure"), []identity.NodeID{t.ID()}, importance)
	if err != nil {
		return nil, err
	}
	chunks = append(chunks, structureChunk)

	for i, row := range t.Rows {
		if ctx.Err() != nil {
			return nil, dendriteerr.Canceled("chunker", ctx.Err())
		}
		content := formatTableRow(t, row)
		rowChunk, err := c.buildChunk(ctx, content, tableBreadcrumb.Appending("Row "+strconv.Itoa(i+1)), []identity.NodeID{t.ID()}, importance)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, rowChunk)
	}
	return chunks, nil
}

func formatTableStructure(t *node.Table) string {
	var b strings.Builder
	b.WriteString("Table Information:\n")
	if t.Caption != "" {
		fmt.Fprintf(&b, "Caption: %s\n", t.Caption)
	}
	fmt.Fprintf(&b, "Headers: %s\n", strings.Join(t.Headers, ", "))
	fmt.Fprintf(&b, "Rows: %d\n", len(t.Rows))
	fmt.Fprintf(&b, "Structure: %d columns × %d rows", len(t.Headers), len(t.Rows))
	return b.String()
}

func formatTableRow(t *node.Table, row []string) string {
	var b strings.Builder
	if t.Caption != "" {
		fmt.Fprintf(&b, "Table: %s\n", t.Caption)
	}
	b.WriteString("Row: { ")
	pairs := make([]string, 0, len(t.Headers))
	for i, h := range t.Headers {
		v := ""
		if i < len(row) {
			v = row[i]
		}
		pairs = append(pairs, fmt.Sprintf("%s: %s", h, v))
	}
	b.WriteString(strings.Join(pairs, ", "))
	b.WriteString(" }")
	return b.String()
}

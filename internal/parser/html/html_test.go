package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxiomOrient/Dendrite/internal/metadata"
	"github.com/AxiomOrient/Dendrite/internal/node"
)

const sample = `<!DOCTYPE html>
<html>
<head><title>Report</title></head>
<body>
<h1>Overview</h1>
<p>Introductory <strong>text</strong> here.</p>
<table>
<tr><th>Name</th><th>Age</th></tr>
<tr><td>Ada</td><td>30</td></tr>
</table>
<pre><code class="language-go">fmt.Println("hi")</code></pre>
<img src="diagram.png" alt="a diagram">
</body>
</html>`

func TestParseTitleAndHeading(t *testing.T) {
	p := New()
	mb := metadata.NewBuilder([]byte(sample), "text/html")
	blocks, doc, err := p.Parse(context.Background(), []byte(sample), ContentTypeHTML, mb)
	require.NoError(t, err)
	require.NotEmpty(t, blocks)
	assert.Equal(t, "Report", doc.Title)

	heading, ok := blocks[0].(*node.Heading)
	require.True(t, ok)
	assert.Equal(t, 1, heading.Level)
	assert.Equal(t, "Overview", heading.Text)
}

func TestParseTableAndCode(t *testing.T) {
	p := New()
	mb := metadata.NewBuilder([]byte(sample), "text/html")
	blocks, doc, err := p.Parse(context.Background(), []byte(sample), ContentTypeHTML, mb)
	require.NoError(t, err)

	var table *node.Table
	var code *node.CodeBlock
	for _, b := range blocks {
		switch v := b.(type) {
		case *node.Table:
			table = v
		case *node.CodeBlock:
			code = v
		}
	}
	require.NotNil(t, table)
	assert.Equal(t, []string{"Name", "Age"}, table.Headers)
	assert.Equal(t, [][]string{{"Ada", "30"}}, table.Rows)

	require.NotNil(t, code)
	assert.Equal(t, "go", code.Language)

	details, ok := doc.SourceDetails.(metadata.HTMLDetails)
	require.True(t, ok)
	assert.Contains(t, details.Images, "diagram.png")
}

package chunk

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxiomOrient/Dendrite/internal/identity"
	"github.com/AxiomOrient/Dendrite/internal/metadata"
	"github.com/AxiomOrient/Dendrite/internal/node"
	"github.com/AxiomOrient/Dendrite/internal/tokenizer"
)

// wordTokenizer counts tokens as whitespace-separated words, giving tests
// predictable, easy-to-reason-about token budgets without a real BPE table.
type wordTokenizer struct{}

func (wordTokenizer) CountTokens(_ context.Context, text string) (identity.TokenCount, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}
	return identity.TokenCount(len(strings.Fields(text))), nil
}

func (w wordTokenizer) Split(ctx context.Context, text string, maxTokens identity.TokenCount, unit tokenizer.Unit) ([]string, error) {
	if maxTokens <= 0 || text == "" {
		return nil, nil
	}
	whole, _ := w.CountTokens(ctx, text)
	if whole <= maxTokens {
		return []string{text}, nil
	}

	var units []string
	switch unit {
	case tokenizer.UnitParagraph:
		units = strings.Split(text, "\n\n")
	default:
		units = strings.Split(text, ". ")
	}

	var pieces []string
	var current []string
	var currentTokens identity.TokenCount
	flush := func() {
		if len(current) == 0 {
			return
		}
		pieces = append(pieces, strings.TrimSpace(strings.Join(current, ". ")))
		current = nil
		currentTokens = 0
	}
	for _, u := range units {
		n, _ := w.CountTokens(ctx, u)
		if currentTokens+n > maxTokens && len(current) > 0 {
			flush()
		}
		current = append(current, u)
		currentTokens += n
	}
	flush()
	return pieces, nil
}

func (wordTokenizer) ModelInfo() tokenizer.ModelInfo {
	return tokenizer.ModelInfo{Name: "word", MaxContextLength: 100000, AvgTokensPerWord: 1}
}

func testConfig() Config {
	return NewConfig(Config{
		MaxTokensPerChunk:     50,
		MinTokensPerChunk:     1,
		OverlapTokens:         5,
		SplitUnit:             SplitUnitSentence,
		PreserveContext:       true,
		QualityThreshold:      0,
		EnableSpecialHandling: true,
	})
}

func words(n int) string {
	fields := make([]string, n)
	for i := range fields {
		fields[i] = "word"
	}
	return strings.Join(fields, " ")
}

func TestChunkLoneHeadingProducesNoChunks(t *testing.T) {
	c := New(wordTokenizer{}, testConfig())
	nodes := []node.Block{
		node.NewHeading("", 1, "Hello World", nil),
	}
	doc := &metadata.Document{}
	chunks, err := c.Chunk(context.Background(), nodes, "doc1", doc)
	require.NoError(t, err)
	// A lone heading contributes no buffered content: nothing to chunk.
	assert.Empty(t, chunks)
}

func TestChunkParagraphUnderHeading(t *testing.T) {
	c := New(wordTokenizer{}, testConfig())
	nodes := []node.Block{
		node.NewHeading("", 1, "Intro", nil),
		node.NewParagraph("", []node.Inline{&node.Text{S: "Hello world."}}, nil),
	}
	doc := &metadata.Document{Title: "Guide"}
	chunks, err := c.Chunk(context.Background(), nodes, "doc1", doc)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"Guide", "Intro"}, chunks[0].Breadcrumb.Components())
	assert.Equal(t, "Hello world.", chunks[0].Content)
}

func TestChunkTableProducesStructureAndRowChunks(t *testing.T) {
	c := New(wordTokenizer{}, testConfig())
	table := node.NewTable("", "", []string{"Name", "Age"}, [][]string{
		{"Ada", "30"}, {"Grace", "40"}, {"Alan", "25"},
	}, nil)
	nodes := []node.Block{
		node.NewHeading("", 1, "Details", nil),
		table,
	}
	doc := &metadata.Document{Title: "Guide"}
	chunks, err := c.Chunk(context.Background(), nodes, "doc1", doc)
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	assert.Equal(t, []string{"Guide", "Details", "Table", "Structure"}, chunks[0].Breadcrumb.Components())
	assert.Contains(t, chunks[0].Content, "Headers: Name, Age")
	assert.Contains(t, chunks[0].Content, "Rows: 3")
	assert.Contains(t, chunks[0].Content, "2 columns × 3 rows")

	assert.Equal(t, []string{"Guide", "Details", "Table", "Row 1"}, chunks[1].Breadcrumb.Components())
	assert.Contains(t, chunks[1].Content, "Ada")
}

func TestChunkCodeBlockSplitsByLineWithoutMidLineBreaks(t *testing.T) {
	c := New(wordTokenizer{}, NewConfig(Config{
		MaxTokensPerChunk:     64, // the lowest maximum NewConfig allows
		MinTokensPerChunk:     0,
		OverlapTokens:         2,
		QualityThreshold:      0,
		EnableSpecialHandling: true,
	}))
	// 100 lines of 4 tokens each: 16 lines fit the 64-token line budget, so
	// the block splits into 7 parts.
	lines := make([]string, 100)
	for i := range lines {
		lines[i] = "print(hello world foo bar)"
	}
	code := node.NewCodeBlock("", "swift", strings.Join(lines, "\n"), nil)
	nodes := []node.Block{code}
	doc := &metadata.Document{}
	chunks, err := c.Chunk(context.Background(), nodes, "doc1", doc)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 5)
	for _, ch := range chunks {
		// The line budget covers the code lines; the "Code (swift):" wrapper
		// is added on top of it.
		body := strings.TrimPrefix(ch.Content, "Code (swift):\n")
		bodyTokens, _ := wordTokenizer{}.CountTokens(context.Background(), body)
		assert.LessOrEqual(t, int(bodyTokens), 64)
		assert.True(t, strings.HasPrefix(ch.Content, "Code (swift):\n"))
		for _, line := range strings.Split(body, "\n") {
			assert.Equal(t, "print(hello world foo bar)", line) // every line kept whole, never truncated
		}
	}
}

func TestChunkOversizedParagraphSplitsWithOverlap(t *testing.T) {
	c := New(wordTokenizer{}, testConfig())
	sentence := "The quick brown fox jumps over the lazy dog today"
	text := strings.Repeat(sentence+". ", 30)
	nodes := []node.Block{
		node.NewParagraph("", []node.Inline{&node.Text{S: text}}, nil),
	}
	doc := &metadata.Document{}
	chunks, err := c.Chunk(context.Background(), nodes, "doc1", doc)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 3)
	for i, ch := range chunks {
		assert.Equal(t, "Part "+itoaForTest(i+1), ch.Breadcrumb.Components()[len(ch.Breadcrumb.Components())-1])
		assert.Len(t, ch.SourceNodeIDs, 1)
	}
}

func itoaForTest(n int) string {
	digits := "0123456789"
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{digits[n%10]}, b...)
		n /= 10
	}
	return string(b)
}

func TestChunkDeterministicAcrossRuns(t *testing.T) {
	build := func() []node.Block {
		return []node.Block{
			node.NewHeading("", 1, "Intro", nil),
			node.NewParagraph("", []node.Inline{&node.Text{S: "Hello world."}}, nil),
		}
	}
	doc := &metadata.Document{Title: "Guide"}

	c1 := New(wordTokenizer{}, testConfig())
	chunks1, err := c1.Chunk(context.Background(), build(), "doc1", doc)
	require.NoError(t, err)

	c2 := New(wordTokenizer{}, testConfig())
	chunks2, err := c2.Chunk(context.Background(), build(), "doc1", doc)
	require.NoError(t, err)

	require.Len(t, chunks1, len(chunks2))
	for i := range chunks1 {
		assert.Equal(t, chunks1[i].ID, chunks2[i].ID)
		assert.Equal(t, chunks1[i].Content, chunks2[i].Content)
		assert.Equal(t, chunks1[i].Breadcrumb.String(), chunks2[i].Breadcrumb.String())
	}
}

func TestPostFilterDropsBelowMinTokensAndQuality(t *testing.T) {
	cfg := NewConfig(Config{
		MaxTokensPerChunk: 50,
		MinTokensPerChunk: 10,
		QualityThreshold:  0.99,
	})
	c := New(wordTokenizer{}, cfg)
	nodes := []node.Block{
		node.NewParagraph("", []node.Inline{&node.Text{S: "short"}}, nil),
	}
	doc := &metadata.Document{}
	chunks, err := c.Chunk(context.Background(), nodes, "doc1", doc)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestBreadcrumbAppendingAndDepth(t *testing.T) {
	b := NewBreadcrumb("Guide").Appending("Intro").Appending("Part 1")
	assert.Equal(t, 3, b.Depth())
	assert.Equal(t, "Guide > Intro > Part 1", b.String())
}

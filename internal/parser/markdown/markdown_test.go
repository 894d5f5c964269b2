package markdown

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxiomOrient/Dendrite/internal/metadata"
	"github.com/AxiomOrient/Dendrite/internal/node"
)

const sample = `---
title: Guide
author: Ada
---
# Introduction

This is the intro paragraph.

## Details

| Name | Age |
| --- | --- |
| Ada | 30 |
| Grace | 40 |

` + "```go\nfmt.Println(\"hi\")\n```\n"

func TestParseFrontMatterAndMetadata(t *testing.T) {
	p := New()
	mb := metadata.NewBuilder([]byte(sample), "text/markdown")

	blocks, doc, err := p.Parse(context.Background(), []byte(sample), ContentTypeMarkdown, mb)
	require.NoError(t, err)
	require.NotEmpty(t, blocks)

	assert.Equal(t, "Guide", doc.Title)
	assert.Equal(t, "Ada", doc.Author)

	md, ok := doc.SourceDetails.(metadata.MarkdownDetails)
	require.True(t, ok)
	assert.Equal(t, []string{"Introduction", "Details"}, md.Outline)
	assert.Equal(t, 1, md.Tables)
	assert.Equal(t, 1, md.CodeBlocks)
}

func TestParseHeadingsAndTable(t *testing.T) {
	p := New()
	mb := metadata.NewBuilder([]byte(sample), "text/markdown")
	blocks, _, err := p.Parse(context.Background(), []byte(sample), ContentTypeMarkdown, mb)
	require.NoError(t, err)

	var headings []*node.Heading
	var tables []*node.Table
	var codeBlocks []*node.CodeBlock
	for _, b := range blocks {
		switch v := b.(type) {
		case *node.Heading:
			headings = append(headings, v)
		case *node.Table:
			tables = append(tables, v)
		case *node.CodeBlock:
			codeBlocks = append(codeBlocks, v)
		}
	}

	require.Len(t, headings, 2)
	assert.Equal(t, 1, headings[0].Level)
	assert.Equal(t, "Introduction", headings[0].Text)
	assert.Equal(t, 2, headings[1].Level)

	require.Len(t, tables, 1)
	assert.Equal(t, []string{"Name", "Age"}, tables[0].Headers)
	assert.Equal(t, [][]string{{"Ada", "30"}, {"Grace", "40"}}, tables[0].Rows)

	require.Len(t, codeBlocks, 1)
	assert.Equal(t, "go", codeBlocks[0].Language)
}

func TestParseWithoutFrontMatter(t *testing.T) {
	p := New()
	body := "# Just a heading\n\nSome text.\n"
	mb := metadata.NewBuilder([]byte(body), "text/markdown")
	blocks, doc, err := p.Parse(context.Background(), []byte(body), ContentTypeMarkdown, mb)
	require.NoError(t, err)
	require.NotEmpty(t, blocks)
	assert.Empty(t, doc.Title)
}

func TestNodeIDsAreDeterministic(t *testing.T) {
	p := New()
	mb1 := metadata.NewBuilder([]byte(sample), "text/markdown")
	mb2 := metadata.NewBuilder([]byte(sample), "text/markdown")

	blocks1, _, err := p.Parse(context.Background(), []byte(sample), ContentTypeMarkdown, mb1)
	require.NoError(t, err)
	blocks2, _, err := p.Parse(context.Background(), []byte(sample), ContentTypeMarkdown, mb2)
	require.NoError(t, err)

	require.Equal(t, len(blocks1), len(blocks2))
	for i := range blocks1 {
		assert.Equal(t, blocks1[i].ID(), blocks2[i].ID())
	}
}

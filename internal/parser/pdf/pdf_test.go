package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxiomOrient/Dendrite/internal/dendriteerr"
	"github.com/AxiomOrient/Dendrite/internal/metadata"
)

func TestParseInvalidPDFReturnsParsingFailed(t *testing.T) {
	p := New(nil)
	mb := metadata.NewBuilder([]byte("not a pdf"), "application/pdf")

	_, _, err := p.Parse(context.Background(), []byte("not a pdf"), ContentTypePDF, mb)
	require.Error(t, err)

	taxErr, ok := dendriteerr.As(err)
	require.True(t, ok)
	assert.Equal(t, dendriteerr.KindParsingFailed, taxErr.Kind)
}

func TestSplitParagraphs(t *testing.T) {
	text := "First paragraph.\n\nSecond paragraph.\n\n"
	got := splitParagraphs(text)
	require.Len(t, got, 2)
	assert.Equal(t, "First paragraph.", got[0])
	assert.Equal(t, "Second paragraph.", got[1])
}

func TestSplitParagraphsFallsBackToWholeText(t *testing.T) {
	got := splitParagraphs("just one line")
	require.Len(t, got, 1)
	assert.Equal(t, "just one line", got[0])
}

package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AxiomOrient/Dendrite/internal/parser/html"
	"github.com/AxiomOrient/Dendrite/internal/parser/markdown"
	"github.com/AxiomOrient/Dendrite/internal/parser/plaintext"
)

func TestBuildRegistryHonorsOrderAndSkipsUnknown(t *testing.T) {
	registry := buildRegistry([]string{"markdown", "bogus", "plaintext"})

	p, err := registry.Dispatch(markdown.ContentTypeMarkdown)
	require.NoError(t, err)
	assert.Equal(t, markdown.Name, p.Name())

	p, err = registry.Dispatch(plaintext.ContentTypePlain)
	require.NoError(t, err)
	assert.Equal(t, plaintext.Name, p.Name())

	_, err = registry.Dispatch(html.ContentTypeHTML)
	assert.Error(t, err)
}

func TestResolveFilesExpandsDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("b"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	files, err := resolveFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestResolveFilesReturnsSinglePlainFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o644))

	files, err := resolveFiles(file)
	require.NoError(t, err)
	assert.Equal(t, []string{file}, files)
}

func TestRootCmdHasProcessSubcommand(t *testing.T) {
	root := RootCmd()
	sub, _, err := root.Find([]string{"process", "x"})
	require.NoError(t, err)
	assert.Equal(t, "process", sub.Name())
}

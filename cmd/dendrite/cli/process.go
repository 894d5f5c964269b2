package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/AxiomOrient/Dendrite/internal/parser"
	"github.com/AxiomOrient/Dendrite/internal/parser/html"
	"github.com/AxiomOrient/Dendrite/internal/parser/markdown"
	"github.com/AxiomOrient/Dendrite/internal/parser/pdf"
	"github.com/AxiomOrient/Dendrite/internal/parser/plaintext"
	"github.com/AxiomOrient/Dendrite/internal/pipeline"
	"github.com/AxiomOrient/Dendrite/internal/tokenizer/tiktoken"
	"github.com/AxiomOrient/Dendrite/pkg/config"
	"github.com/AxiomOrient/Dendrite/pkg/logger"
)

// ProcessCmd builds the "process" subcommand: it loads configuration, wires
// a tokenizer, a parser registry ordered per config, and a pipeline
// orchestrator, then runs every file matched by its path/glob argument
// through it (spec.md §6's "file or directory" entry point).
func ProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <path-or-glob>",
		Short: "Parse and chunk one or more documents",
		Args:  cobra.ExactArgs(1),
		RunE:  runProcess,
	}
	return cmd
}

func runProcess(cmd *cobra.Command, args []string) error {
	log := logger.Default()
	cfg, err := config.NewLoader().Load()
	if err != nil {
		return fmt.Errorf("cli: load config: %w", err)
	}

	tok, err := tiktoken.New(cfg.Tokenizer.Model)
	if err != nil {
		return fmt.Errorf("cli: build tokenizer: %w", err)
	}

	registry := buildRegistry(cfg.ParserOrder)
	orch := pipeline.New(registry, tok)
	chunkCfg := cfg.Chunking.ToChunkConfig()

	files, err := resolveFiles(args[0])
	if err != nil {
		return fmt.Errorf("cli: resolve %q: %w", args[0], err)
	}
	if len(files) == 0 {
		return fmt.Errorf("cli: no files matched %q", args[0])
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var failures int
	for _, f := range files {
		doc, procErr := orch.ProcessURL(ctx, f, chunkCfg)
		if procErr != nil {
			log.Error("processing failed", "file", f, "error", procErr)
			failures++
			continue
		}
		log.Info("processed document",
			"file", f,
			"document_id", doc.DocumentID,
			"chunks", doc.Statistics.ChunkCount,
			"tokens", doc.Statistics.TotalTokenCount,
			"duration", doc.Statistics.ProcessingTime,
		)
	}

	if failures > 0 {
		return fmt.Errorf("cli: %d of %d files failed", failures, len(files))
	}
	return nil
}

// buildRegistry constructs a parser registry in the order names describes,
// skipping any name it doesn't recognize.
func buildRegistry(names []string) *parser.Registry {
	registry := parser.NewRegistry()
	for _, name := range names {
		switch name {
		case markdown.Name:
			registry.Register(markdown.New())
		case html.Name:
			registry.Register(html.New())
		case pdf.Name:
			registry.Register(pdf.New(nil))
		case plaintext.Name:
			registry.Register(plaintext.New())
		}
	}
	return registry
}

// resolveFiles expands path into a sorted list of regular files: a bare
// directory is walked recursively, a glob pattern is expanded via
// doublestar, and a plain file path is returned as-is.
func resolveFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		matches, globErr := doublestar.FilepathGlob(filepath.Join(path, "**", "*"))
		if globErr != nil {
			return nil, globErr
		}
		return filesOnly(matches), nil
	}
	if err == nil {
		return []string{path}, nil
	}
	matches, globErr := doublestar.FilepathGlob(path)
	if globErr != nil {
		return nil, globErr
	}
	return filesOnly(matches), nil
}

// filesOnly drops directory entries from a glob match list.
func filesOnly(matches []string) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && !info.IsDir() {
			out = append(out, m)
		}
	}
	return out
}

// Package config models the top-level DendriteConfig record and its
// defaults, adapted from the teacher's pkg/config/config.go shape (a
// validated, koanf-tagged struct loaded by pkg/config's Loader).
package config

import (
	"github.com/AxiomOrient/Dendrite/internal/chunk"
	"github.com/AxiomOrient/Dendrite/internal/identity"
)

// Chunking mirrors spec.md §4.4.1's enumerated options, koanf-tagged for env
// var loading (DENDRITE_CHUNKING_MAX_TOKENS_PER_CHUNK, etc.) and
// validator-tagged for the bounds enforced again at construction time by
// chunk.NewConfig.
type Chunking struct {
	MaxTokensPerChunk     int     `koanf:"max_tokens_per_chunk" validate:"required,min=1"`
	MinTokensPerChunk     int     `koanf:"min_tokens_per_chunk" validate:"min=0"`
	OverlapTokens         int     `koanf:"overlap_tokens" validate:"min=0"`
	SplitUnit             string  `koanf:"split_unit" validate:"oneof=sentence word paragraph"`
	PreserveContext       bool    `koanf:"preserve_context"`
	QualityThreshold      float64 `koanf:"quality_threshold" validate:"min=0,max=1"`
	EnableSpecialHandling bool    `koanf:"enable_special_handling"`
}

// ToChunkConfig converts the loaded, validated Chunking record into the
// chunk package's runtime Config, applying the same clamps chunk.NewConfig
// documents.
func (c Chunking) ToChunkConfig() chunk.Config {
	return chunk.NewConfig(chunk.Config{
		MaxTokensPerChunk:     identity.TokenCount(c.MaxTokensPerChunk),
		MinTokensPerChunk:     identity.TokenCount(c.MinTokensPerChunk),
		OverlapTokens:         identity.TokenCount(c.OverlapTokens),
		SplitUnit:             chunk.ParseSplitUnit(c.SplitUnit),
		PreserveContext:       c.PreserveContext,
		QualityThreshold:      c.QualityThreshold,
		EnableSpecialHandling: c.EnableSpecialHandling,
	})
}

// Tokenizer selects and configures the tokenizer backend cmd/dendrite wires
// against the pipeline.
type Tokenizer struct {
	Model string `koanf:"model"`
}

// Logging holds the logging settings loaded with the rest of the
// configuration. cmd/dendrite builds pkg/logger's process-wide default from
// its --log-level and --log-json flags and does not read this record.
type Logging struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `koanf:"json"`
}

// DendriteConfig is the top-level configuration record (spec.md §6:
// "The top-level DendriteConfig carries a chunking config and an ordered
// parser list").
type DendriteConfig struct {
	Chunking    Chunking  `koanf:"chunking"`
	Tokenizer   Tokenizer `koanf:"tokenizer"`
	Logging     Logging   `koanf:"logging"`
	ParserOrder []string  `koanf:"parser_order"`
}

// Default returns the documented defaults from spec.md §4.4.1.
func Default() DendriteConfig {
	return DendriteConfig{
		Chunking: Chunking{
			MaxTokensPerChunk:     512,
			MinTokensPerChunk:     32,
			OverlapTokens:         32,
			SplitUnit:             "sentence",
			PreserveContext:       true,
			QualityThreshold:      0.7,
			EnableSpecialHandling: true,
		},
		Tokenizer: Tokenizer{Model: "cl100k_base"},
		Logging:   Logging{Level: "info", JSON: false},
		ParserOrder: []string{
			"markdown", "html", "pdf", "plaintext",
		},
	}
}

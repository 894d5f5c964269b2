package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix is the shared prefix for every DendriteConfig environment
// variable, following the teacher's env.Provider(prefix, ...) usage.
const envPrefix = "DENDRITE_"

// Loader loads a DendriteConfig from defaults overlaid by environment
// variables and validates the result, adapted from the teacher's
// pkg/config/loader.go (koanf defaults → env → validate pipeline), trimmed
// of the multi-source/watch machinery this module has no use for.
type Loader struct {
	k         *koanf.Koanf
	validator *validator.Validate
}

// NewLoader builds a Loader ready for Load.
func NewLoader() *Loader {
	return &Loader{
		k:         koanf.New("."),
		validator: validator.New(),
	}
}

// Load populates a DendriteConfig from Default(), overlays any
// DENDRITE_-prefixed environment variables, and validates the result via
// struct tags.
func (l *Loader) Load() (*DendriteConfig, error) {
	defaults := Default()
	if err := l.k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if err := l.k.Load(envprovider.Provider(".", envprovider.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return transformEnvKey(key), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	var cfg DendriteConfig
	if err := l.k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := l.validator.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return &cfg, nil
}

// transformEnvKey converts DENDRITE_CHUNKING_MAX_TOKENS_PER_CHUNK into
// chunking.max_tokens_per_chunk: strip the prefix, lowercase, and cut once on
// the first remaining underscore to separate the section from the field.
func transformEnvKey(key string) string {
	lower := strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if lower == "" {
		return ""
	}
	section, field, found := strings.Cut(lower, "_")
	if !found {
		return section
	}
	return section + "." + field
}

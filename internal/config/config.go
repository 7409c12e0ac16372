// Package config loads analyzer.Config overrides from a JSON file and
// environment variables, layered on top of analyzer.DefaultConfig().
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"medusa/internal/analyzer"
)

// FileOverrides is the optional JSON shape a config file may provide. Only
// fields present override the running default.
type FileOverrides struct {
	DefaultArchTag          *string `json:"default_arch_tag,omitempty"`
	FunctionLengthThreshold *int    `json:"function_length_threshold,omitempty"`
}

// Load builds an analyzer.Config starting from analyzer.DefaultConfig(),
// layering a JSON file's overrides (if path is non-empty) and then
// environment variables (MEDUSA_DEFAULT_ARCH_TAG,
// MEDUSA_FUNCTION_LENGTH_THRESHOLD) on top, each layer only touching the
// fields it actually sets.
func Load(path string) (analyzer.Config, error) {
	cfg := analyzer.DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		var overrides FileOverrides
		if err := json.Unmarshal(data, &overrides); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
		applyOverrides(&cfg, overrides)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyOverrides(cfg *analyzer.Config, o FileOverrides) {
	if o.DefaultArchTag != nil {
		cfg.DefaultArchTag = *o.DefaultArchTag
	}
	if o.FunctionLengthThreshold != nil {
		cfg.FunctionLengthThreshold = *o.FunctionLengthThreshold
	}
}

func applyEnv(cfg *analyzer.Config) {
	if tag, ok := os.LookupEnv("MEDUSA_DEFAULT_ARCH_TAG"); ok && tag != "" {
		cfg.DefaultArchTag = tag
	}
	if raw, ok := os.LookupEnv("MEDUSA_FUNCTION_LENGTH_THRESHOLD"); ok {
		var n int
		if _, err := fmt.Sscanf(raw, "%d", &n); err == nil {
			cfg.FunctionLengthThreshold = n
		}
	}
}

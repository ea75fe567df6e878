package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors pdftext.Options for an optional --config YAML file, so
// an operator can pin a non-default divider without a long flag line. Flags
// passed on the command line override values loaded from this file.
type fileConfig struct {
	Divider string `yaml:"divider"`
	Debug   bool   `yaml:"debug"`
}

func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	if path == "" {
		return cfg, nil
	}
	//nolint:gosec // Config path is an operator-supplied CLI flag, not arbitrary.
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WithConfigFileYAML loads operational config from a YAML file, the
// file-based counterpart to flag-driven construction in internal/cli.
func WithConfigFileYAML(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrReadConfigFail, err.Error())
	}

	var dto configDTO
	if err := yaml.Unmarshal(content, &dto); err != nil {
		return Config{}, fmt.Errorf("%w: %s", ErrConfigParsingFail, err.Error())
	}

	return newConfigFromDTO(dto)
}

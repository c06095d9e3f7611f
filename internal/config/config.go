// Package config implements .yamlpp.yaml / user config / defaults layering
// for the CLI, mirroring the teacher's LoadConfig/mergeConfigs/
// ApplyConfigToSharedOptions precedence chain (built-in defaults, then user
// config, then the project .yamlpp.yaml, then an explicit --config file,
// each later layer winning) adapted to the preprocessor's own settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the complete tool configuration.
type Config struct {
	Include   IncludeConfig   `yaml:"include"`
	Generated GeneratedConfig `yaml:"generated"`
	Output    OutputConfig    `yaml:"output"`
}

// IncludeConfig controls include/insert resolution limits.
type IncludeConfig struct {
	MaxDepth int `yaml:"max_depth"`
}

// GeneratedConfig holds the `generated.dir` setting. It is loaded and
// layered like the other settings, but nothing reads Dir: no resolved file
// is written for the in-file `preprocessor:` settings block.
type GeneratedConfig struct {
	Dir string `yaml:"dir"`
}

// OutputConfig controls diagnostic formatting.
type OutputConfig struct {
	Color   string `yaml:"color"` // auto, always, never
	Verbose bool   `yaml:"verbose"`
	Quiet   bool   `yaml:"quiet"`
}

// NewDefault returns a Config with built-in defaults.
func NewDefault() *Config {
	return &Config{
		Include: IncludeConfig{
			MaxDepth: 32,
		},
		Generated: GeneratedConfig{
			Dir: "_generated",
		},
		Output: OutputConfig{
			Color: "auto",
		},
	}
}

// Load loads configuration with the following precedence (lowest to
// highest): built-in defaults, user config (~/.config/yamlpp/config.yaml),
// project config (.yamlpp.yaml in the current directory), explicit
// configPath (--config flag).
func Load(configPath string) (*Config, error) {
	cfg := NewDefault()

	var files []string
	if userConfig := userConfigPath(); userConfig != "" {
		files = append(files, userConfig)
	}
	if projectConfig := projectConfigPath(); projectConfig != "" {
		files = append(files, projectConfig)
	}
	if configPath != "" {
		files = append(files, configPath)
	}

	for _, path := range files {
		if err := mergeFile(cfg, path); err != nil {
			if path == configPath && configPath != "" {
				return nil, fmt.Errorf("load config %s: %w", path, err)
			}
			continue
		}
	}
	return cfg, nil
}

func userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "yamlpp", "config.yaml")
}

func projectConfigPath() string {
	path := ".yamlpp.yaml"
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func mergeFile(dst *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	merge(dst, &loaded)
	return nil
}

func merge(dst, src *Config) {
	if src.Include.MaxDepth > 0 {
		dst.Include.MaxDepth = src.Include.MaxDepth
	}
	if src.Generated.Dir != "" {
		dst.Generated.Dir = src.Generated.Dir
	}
	if src.Output.Color != "" {
		dst.Output.Color = src.Output.Color
	}
	dst.Output.Verbose = src.Output.Verbose
	dst.Output.Quiet = src.Output.Quiet
}

// ColorEnabled resolves the effective color setting against a --no-color
// CLI flag, matching the teacher's "CLI flag wins over config" precedence.
func (c *Config) ColorEnabled(noColorFlag bool) bool {
	if noColorFlag {
		return false
	}
	return c.Output.Color != "never"
}

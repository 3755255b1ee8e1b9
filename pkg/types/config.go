package types

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultOutput is the docs map file name used when docs_map.output is unset.
const DefaultOutput = "docs.json"

// Config holds the site and plugin settings for one build pass.
type Config struct {
	SourceDir  string `json:"source_dir" yaml:"source_dir" mapstructure:"source_dir"`
	PublicPath string `json:"public_path" yaml:"public_path" mapstructure:"public_path"`

	// DocsPatterns are doublestar globs, relative to SourceDir, selecting
	// documentation pages. ExcludePatterns win over DocsPatterns.
	DocsPatterns    []string `json:"docs_patterns" yaml:"docs_patterns" mapstructure:"docs_patterns"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty" yaml:"exclude_patterns,omitempty" mapstructure:"exclude_patterns"`

	DocsMap DocsMapConfig `json:"docs_map" yaml:"docs_map" mapstructure:"docs_map"`
	History HistoryConfig `json:"history" yaml:"history" mapstructure:"history"`

	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty" mapstructure:"log_level"`
}

// DocsMapConfig is the docs_map section of the configuration.
type DocsMapConfig struct {
	Enable bool `json:"enable" yaml:"enable" mapstructure:"enable"`
	// Output is the file name of the docs map relative to PublicPath.
	// Empty means DefaultOutput.
	Output string `json:"output,omitempty" yaml:"output,omitempty" mapstructure:"output"`
}

// HistoryConfig is the history section of the configuration.
type HistoryConfig struct {
	Enable  bool   `json:"enable" yaml:"enable" mapstructure:"enable"`
	DataDir string `json:"data_dir,omitempty" yaml:"data_dir,omitempty" mapstructure:"data_dir"`
}

// OutputFile returns the configured output file name or DefaultOutput.
func (c DocsMapConfig) OutputFile() string {
	if c.Output == "" {
		return DefaultOutput
	}
	return c.Output
}

// DefaultConfig returns the configuration used when no config file sets a value.
func DefaultConfig() Config {
	return Config{
		SourceDir:    "src",
		PublicPath:   "public",
		DocsPatterns: []string{"**/*.md"},
		DocsMap: DocsMapConfig{
			Enable: true,
			Output: DefaultOutput,
		},
		History: HistoryConfig{
			Enable: true,
		},
		LogLevel: "info",
	}
}

// Config validation errors.
var (
	ErrSourceDirEmpty  = errors.New("source_dir must not be empty")
	ErrPublicPathEmpty = errors.New("public_path must not be empty")
	ErrOutputInvalid   = errors.New("docs_map.output must be a relative path inside public_path")
	ErrPatternInvalid  = errors.New("invalid glob pattern")
)

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.SourceDir == "" {
		return ErrSourceDirEmpty
	}
	if c.PublicPath == "" {
		return ErrPublicPathEmpty
	}

	out := c.DocsMap.OutputFile()
	if filepath.IsAbs(out) {
		return fmt.Errorf("%w: %s", ErrOutputInvalid, out)
	}
	clean := filepath.Clean(out)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrOutputInvalid, out)
	}

	for _, p := range append(append([]string{}, c.DocsPatterns...), c.ExcludePatterns...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("%w: %q", ErrPatternInvalid, p)
		}
	}
	return nil
}

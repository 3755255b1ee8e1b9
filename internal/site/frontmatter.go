package site

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrMalformedFrontMatter indicates an opening "---" fence without a closing one.
var ErrMalformedFrontMatter = errors.New("malformed front matter")

// frontMatter is the subset of page front matter the host understands.
// Unknown keys are ignored.
type frontMatter struct {
	Title string     `yaml:"title"`
	Types stringList `yaml:"types"`
	Hide  bool       `yaml:"hide"`
}

// stringList accepts either a YAML sequence of strings or a single scalar.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" || node.Value == "" {
			*l = nil
			return nil
		}
		*l = stringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	default:
		return fmt.Errorf("line %d: types must be a string or a list of strings", node.Line)
	}
}

// parseFrontMatter splits content into its YAML front matter and body.
// Content without an opening fence has empty front matter.
func parseFrontMatter(content []byte) (frontMatter, []byte, error) {
	var fm frontMatter

	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return fm, normalized, nil
	}
	rest := normalized[4:]

	var meta, after []byte
	switch {
	case bytes.HasPrefix(rest, []byte("---\n")):
		after = rest[4:]
	case bytes.Equal(rest, []byte("---")):
		after = nil
	default:
		idx := bytes.Index(rest, []byte("\n---"))
		if idx < 0 {
			return fm, nil, ErrMalformedFrontMatter
		}
		meta = rest[:idx]
		after = rest[idx+len("\n---"):]
		if len(after) > 0 && after[0] != '\n' {
			return fm, nil, ErrMalformedFrontMatter
		}
	}

	if len(bytes.TrimSpace(meta)) > 0 {
		if err := yaml.Unmarshal(meta, &fm); err != nil {
			return frontMatter{}, nil, fmt.Errorf("parse front matter: %w", err)
		}
	}
	return fm, bytes.TrimLeft(after, "\n"), nil
}

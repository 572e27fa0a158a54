// Package catalog loads and resolves the rules file: the YAML document
// binding anchor keys to stub snippets.
//
// Schema (three-level mapping, literal blocks for code):
//
//	TC001:
//	  STEP1:
//	    segment1: |
//	      if (x < 0) { return 0; }
//
// A catalog is built once per run and is immutable afterwards, so lookups
// are safe from any number of goroutines.
package catalog

import (
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"yamlweave/internal/marker"
)

// Snippet is the block of text bound to one anchor key. Lines are opaque:
// the engine never interprets them against the host language.
type Snippet struct {
	Key    marker.Key
	Lines  []string
	Source string // rules file the snippet came from
}

// Text returns the snippet as a single newline-joined block.
func (s *Snippet) Text() string {
	return strings.Join(s.Lines, "\n")
}

// AmbiguousKeyError reports two rules entries binding the same key to
// different snippet text. This is a configuration error: the load fails
// before any source file is touched.
type AmbiguousKeyError struct {
	Key          marker.Key
	First, Other string // source descriptions of the clashing entries
}

func (e *AmbiguousKeyError) Error() string {
	return fmt.Sprintf("ambiguous binding for %s: %s and %s define different snippets", e.Key, e.First, e.Other)
}

// Catalog maps anchor keys to snippets.
type Catalog struct {
	snippets map[marker.Key]*Snippet
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{snippets: make(map[marker.Key]*Snippet)}
}

// Load reads one or more rules files and merges them. Later files may
// repeat a key only with byte-identical snippet text; any other collision
// fails with an AmbiguousKeyError.
func Load(paths ...string) (*Catalog, error) {
	c := New()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rules: %w", err)
		}
		if err := c.merge(data, path); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Parse builds a catalog from raw YAML. source names the origin for error
// messages and the report.
func Parse(data []byte, source string) (*Catalog, error) {
	c := New()
	if err := c.merge(data, source); err != nil {
		return nil, err
	}
	return c, nil
}

// Add binds key to the given snippet lines. The same tolerance as file
// merging applies: an identical re-add is a no-op, a differing one is an
// AmbiguousKeyError. Used when harvesting rules back out of a woven tree.
func (c *Catalog) Add(key marker.Key, lines []string, source string) error {
	return c.add(key, strings.Join(lines, "\n"), source)
}

// Resolve returns the snippet bound to key, if any.
func (c *Catalog) Resolve(key marker.Key) (*Snippet, bool) {
	s, ok := c.snippets[key]
	return s, ok
}

// Len returns the number of bindings.
func (c *Catalog) Len() int { return len(c.snippets) }

// Keys returns all bound keys in unspecified order.
func (c *Catalog) Keys() []marker.Key {
	keys := make([]marker.Key, 0, len(c.snippets))
	for k := range c.snippets {
		keys = append(keys, k)
	}
	return keys
}

// merge walks the YAML node tree by hand rather than unmarshalling into
// maps: duplicate mapping keys must surface as ambiguity errors with line
// numbers, not silently collapse.
func (c *Catalog) merge(data []byte, source string) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("parse rules %s: %w", source, err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil // empty document
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return fmt.Errorf("parse rules %s: top level must be a mapping of test cases, got %s at line %d", source, kindName(doc.Kind), doc.Line)
	}

	for i := 0; i < len(doc.Content); i += 2 {
		tcNode, stepsNode := doc.Content[i], doc.Content[i+1]
		if stepsNode.Kind != yaml.MappingNode {
			return fmt.Errorf("parse rules %s: %s must map steps to segments, got %s at line %d", source, tcNode.Value, kindName(stepsNode.Kind), stepsNode.Line)
		}
		for j := 0; j < len(stepsNode.Content); j += 2 {
			stepNode, segsNode := stepsNode.Content[j], stepsNode.Content[j+1]
			if segsNode.Kind != yaml.MappingNode {
				return fmt.Errorf("parse rules %s: %s.%s must map segments to code, got %s at line %d", source, tcNode.Value, stepNode.Value, kindName(segsNode.Kind), segsNode.Line)
			}
			for k := 0; k < len(segsNode.Content); k += 2 {
				segNode, codeNode := segsNode.Content[k], segsNode.Content[k+1]
				if codeNode.Kind != yaml.ScalarNode {
					return fmt.Errorf("parse rules %s: %s.%s.%s must be a text block, got %s at line %d", source, tcNode.Value, stepNode.Value, segNode.Value, kindName(codeNode.Kind), codeNode.Line)
				}
				key := marker.Key{TestCase: tcNode.Value, Step: stepNode.Value, Segment: segNode.Value}
				at := fmt.Sprintf("%s:%d", source, segNode.Line)
				if err := c.add(key, codeNode.Value, at); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (c *Catalog) add(key marker.Key, text, source string) error {
	lines := marker.SplitLines(text)
	if existing, ok := c.snippets[key]; ok {
		if existing.Text() == strings.Join(lines, "\n") {
			return nil // same key, same text: harmless repeat
		}
		return &AmbiguousKeyError{Key: key, First: existing.Source, Other: source}
	}
	c.snippets[key] = &Snippet{Key: key, Lines: lines, Source: source}
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "empty"
}

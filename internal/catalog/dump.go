package catalog

import (
	"sort"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Dump renders the catalog back into rules-file YAML. Snippet bodies are
// emitted as literal block scalars so the rules file stays readable and
// round-trips through Load unchanged. Keys are sorted for stable output.
func (c *Catalog) Dump() ([]byte, error) {
	keys := c.Keys()
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.TestCase != b.TestCase {
			return a.TestCase < b.TestCase
		}
		if a.Step != b.Step {
			return a.Step < b.Step
		}
		return a.Segment < b.Segment
	})

	root := &yaml.Node{Kind: yaml.MappingNode}
	var tcNode *yaml.Node
	var stepNode *yaml.Node
	var lastTC, lastStep string

	for _, key := range keys {
		if tcNode == nil || key.TestCase != lastTC {
			root.Content = append(root.Content, scalar(key.TestCase))
			tcNode = &yaml.Node{Kind: yaml.MappingNode}
			root.Content = append(root.Content, tcNode)
			lastTC, lastStep = key.TestCase, ""
			stepNode = nil
		}
		if stepNode == nil || key.Step != lastStep {
			tcNode.Content = append(tcNode.Content, scalar(key.Step))
			stepNode = &yaml.Node{Kind: yaml.MappingNode}
			tcNode.Content = append(tcNode.Content, stepNode)
			lastStep = key.Step
		}
		snip, _ := c.Resolve(key)
		stepNode.Content = append(stepNode.Content, scalar(key.Segment), literal(snip.Text()))
	}

	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// literal forces the | block style so multi-line snippets keep their shape.
func literal(v string) *yaml.Node {
	n := scalar(v)
	if v != "" {
		n.Style = yaml.LiteralStyle
	}
	return n
}

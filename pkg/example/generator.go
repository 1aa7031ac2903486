// Package example synthesizes labeled example payloads from a model schema.
// Declared examples on the schema take precedence; generated payloads fill in
// when a document ships none.
package example

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-modelview/pkg/schema"
)

// Mode selects which properties a generated payload includes.
type Mode string

const (
	// ModeAll includes every property.
	ModeAll Mode = "all"
	// ModeRequired includes only properties listed in the parent's required set.
	ModeRequired Mode = "required"
)

// Options configures generation.
type Options struct {
	// Modes selects the generated payload variants. Empty means ModeAll only.
	Modes []Mode
	// MaxDepth bounds recursion into nested objects and arrays. Zero selects
	// the default.
	MaxDepth int
}

const defaultMaxDepth = 16

// Example is one labeled payload shown in the panel's example selector.
type Example struct {
	Label string
	Data  any
}

// Generate produces the example sequence for a schema node: declared
// "examples"/"example" payloads first, then one synthesized payload per
// requested mode.
func Generate(node schema.Node, opts Options) []Example {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	modes := opts.Modes
	if len(modes) == 0 {
		modes = []Mode{ModeAll}
	}

	var out []Example
	out = append(out, declared(node)...)

	for _, mode := range modes {
		label := "Generated example"
		if mode == ModeRequired {
			label = "Generated example (required only)"
		}
		out = append(out, Example{
			Label: label,
			Data:  synthesize(node, mode, 0, maxDepth),
		})
	}
	return out
}

// EncodeJSON renders an example payload as indented JSON.
func EncodeJSON(ex Example) ([]byte, error) {
	data, err := json.MarshalIndent(ex.Data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("example: encode %q as JSON: %w", ex.Label, err)
	}
	return data, nil
}

// EncodeYAML renders an example payload as YAML.
func EncodeYAML(ex Example) ([]byte, error) {
	data, err := yaml.Marshal(ex.Data)
	if err != nil {
		return nil, fmt.Errorf("example: encode %q as YAML: %w", ex.Label, err)
	}
	return data, nil
}

func declared(node schema.Node) []Example {
	var out []Example
	if raw, ok := node.Extra["examples"]; ok {
		if list, ok := raw.([]any); ok {
			for idx, entry := range list {
				out = append(out, Example{
					Label: fmt.Sprintf("Example %d", idx+1),
					Data:  entry,
				})
			}
		}
	}
	if len(out) > 0 {
		return out
	}
	if raw, ok := node.Extra["example"]; ok {
		out = append(out, Example{Label: "Example", Data: raw})
	}
	return out
}

func synthesize(node schema.Node, mode Mode, depth, maxDepth int) any {
	if node.Const != nil {
		return node.Const
	}
	if node.Default != nil {
		return node.Default
	}
	if len(node.Enum) > 0 {
		return node.Enum[0]
	}
	if depth >= maxDepth {
		return nil
	}

	switch node.Type {
	case "object":
		payload := make(map[string]any, node.Properties.Len())
		for _, prop := range node.Properties {
			if mode == ModeRequired && !contains(node.Required, prop.Name) {
				continue
			}
			payload[prop.Name] = synthesize(prop.Node, mode, depth+1, maxDepth)
		}
		return payload
	case "array":
		if node.Items == nil {
			return []any{}
		}
		return []any{synthesize(*node.Items, mode, depth+1, maxDepth)}
	case "string":
		return stringSample(node.Format)
	case "integer":
		return 0
	case "number":
		return 0.0
	case "boolean":
		return false
	default:
		return nil
	}
}

func stringSample(format string) string {
	switch format {
	case "date-time":
		return "2024-01-01T00:00:00Z"
	case "date":
		return "2024-01-01"
	case "email":
		return "user@example.com"
	case "uuid":
		return "00000000-0000-0000-0000-000000000000"
	case "uri", "url":
		return "https://example.com"
	default:
		return "string"
	}
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

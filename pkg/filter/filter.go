// Package filter implements the schema search filter behind the model panel.
// Given a model's property tree and a search string it decides which
// properties stay visible and how deep the rendered tree must expand to show
// every match.
package filter

import (
	"strings"

	"github.com/goliatone/go-modelview/pkg/schema"
)

const (
	// DefaultExpandDepth is the tree expansion used when no filter is active.
	DefaultExpandDepth = 2

	// defaultMaxDepth bounds recursion so self-referential trees degrade to
	// "no descendant match" instead of exhausting the stack.
	defaultMaxDepth = 64

	// minQueryLength is the shortest query that activates filtering. Shorter
	// queries match nearly everything, so they bypass the filter entirely.
	minQueryLength = 2
)

// Options tunes the filter recursion.
type Options struct {
	// MaxDepth caps recursion depth. Zero or negative selects the default.
	MaxDepth int
}

// Result carries the retained properties and the deepest level at which a
// property matched the query by its own name or description. A container kept
// only because a descendant matched does not raise MaxDepth at its own level.
type Result struct {
	Properties schema.Properties
	MaxDepth   int
}

// Filter walks the property tree depth-first and keeps every property that
// matches the query directly or through a descendant. Matching is
// case-sensitive substring containment on the property name and description.
// Sibling order follows the input; the input is never mutated.
func Filter(props schema.Properties, query string) Result {
	return FilterWithOptions(props, query, Options{})
}

// FilterWithOptions is Filter with an explicit recursion bound.
func FilterWithOptions(props schema.Properties, query string, opts Options) Result {
	guard := opts.MaxDepth
	if guard <= 0 {
		guard = defaultMaxDepth
	}
	walk := &walker{query: query, guard: guard}
	retained := walk.filter(props, 0)
	return Result{Properties: retained, MaxDepth: walk.maxDepth}
}

// Apply runs the filter against a whole model node. Queries of one character
// or less bypass filtering: the original node comes back untouched with the
// default expansion depth. Anything longer returns a rebuilt node whose
// properties are the filtered subset plus the computed expansion depth.
func Apply(root schema.Node, query string) (schema.Node, int) {
	return ApplyWithOptions(root, query, Options{})
}

// ApplyWithOptions is Apply with an explicit recursion bound.
func ApplyWithOptions(root schema.Node, query string, opts Options) (schema.Node, int) {
	if len(query) < minQueryLength {
		return root, DefaultExpandDepth
	}
	result := FilterWithOptions(root.Properties, query, opts)
	filtered := root
	filtered.Properties = result.Properties
	return filtered, result.MaxDepth
}

type walker struct {
	query    string
	guard    int
	maxDepth int
}

func (w *walker) filter(props schema.Properties, depth int) schema.Properties {
	if props.Len() == 0 || depth >= w.guard {
		return nil
	}

	var out schema.Properties
	for _, prop := range props {
		node := prop.Node
		matched := strings.Contains(prop.Name, w.query) ||
			strings.Contains(node.Description, w.query)
		if matched && depth > w.maxDepth {
			w.maxDepth = depth
		}

		placed := false
		switch {
		case node.IsObject():
			if children := w.filter(node.Properties, depth+1); children.Len() > 0 {
				kept := node
				kept.Properties = children
				out = append(out, schema.Property{Name: prop.Name, Node: kept})
				placed = true
				matched = true
			}
		case node.IsArray():
			if children := w.filter(node.Items.Properties, depth+1); children.Len() > 0 {
				items := *node.Items
				items.Properties = children
				kept := node
				kept.Items = &items
				out = append(out, schema.Property{Name: prop.Name, Node: kept})
				placed = true
				matched = true
			}
		}

		// A direct match without matching descendants keeps the node as-is,
		// children included. Container inclusion above takes precedence.
		if matched && !placed {
			out = append(out, prop)
		}
	}
	return out
}

// Package view owns the model panel state: the search query, the filtered
// model shown in the tree, and the expansion depth handed to renderers.
package view

import (
	"github.com/goliatone/go-modelview/pkg/example"
	"github.com/goliatone/go-modelview/pkg/filter"
	"github.com/goliatone/go-modelview/pkg/schema"
)

// State is the controller's current snapshot. Model is the filtered schema
// when a query is active, or the original schema otherwise.
type State struct {
	Query       string
	ExpandDepth int
	Model       schema.Node
}

// Panel bundles everything rendering collaborators consume: the (possibly
// filtered) model tree, the expansion depth, the active query, and the
// example payloads generated from the unfiltered schema.
type Panel struct {
	Model       schema.Node
	ExpandDepth int
	Query       string
	Examples    []example.Example
}

// Option configures a Controller.
type Option func(*Controller)

// WithFilterOptions overrides the recursion bound used when filtering.
func WithFilterOptions(opts filter.Options) Option {
	return func(c *Controller) {
		c.filterOpts = opts
	}
}

// WithExampleOptions overrides how example payloads are generated.
func WithExampleOptions(opts example.Options) Option {
	return func(c *Controller) {
		c.exampleOpts = opts
	}
}

// Controller drives one model panel instance. It is a single-owner state
// cell: callers serialize access the way a UI event loop would, so no
// locking happens here.
type Controller struct {
	source      schema.Node
	state       State
	examples    []example.Example
	filterOpts  filter.Options
	exampleOpts example.Options
}

// New constructs a Controller for the given model schema. The initial state
// carries the unfiltered model and the default expansion depth.
func New(source schema.Node, options ...Option) *Controller {
	c := &Controller{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	c.replaceSchema(source)
	return c
}

// SetQuery updates the search query and recomputes the filtered model
// synchronously.
func (c *Controller) SetQuery(query string) {
	c.state.Query = query
	c.recompute()
}

// Clear resets the query. The state returns to the unfiltered model with the
// default expansion depth.
func (c *Controller) Clear() {
	c.SetQuery("")
}

// SetSchema swaps the source schema, regenerates examples, and re-runs the
// current query against the new model.
func (c *Controller) SetSchema(source schema.Node) {
	c.replaceSchema(source)
}

// State returns the current snapshot.
func (c *Controller) State() State {
	return c.state
}

// Examples returns the payloads generated from the unfiltered schema. They
// are computed once per schema change, never per keystroke.
func (c *Controller) Examples() []example.Example {
	return c.examples
}

// Panel returns the full bundle rendering collaborators consume.
func (c *Controller) Panel() Panel {
	return Panel{
		Model:       c.state.Model,
		ExpandDepth: c.state.ExpandDepth,
		Query:       c.state.Query,
		Examples:    c.examples,
	}
}

func (c *Controller) replaceSchema(source schema.Node) {
	c.source = source
	c.examples = example.Generate(source, c.exampleOpts)
	c.recompute()
}

func (c *Controller) recompute() {
	model, depth := filter.ApplyWithOptions(c.source, c.state.Query, c.filterOpts)
	c.state.Model = model
	c.state.ExpandDepth = depth
}

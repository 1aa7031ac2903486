package modelview

import (
	"context"
	"fmt"

	internalloader "github.com/goliatone/go-modelview/internal/jsonschema/loader"
	"github.com/goliatone/go-modelview/pkg/jsonschema"
	"github.com/goliatone/go-modelview/pkg/openapi"
	"github.com/goliatone/go-modelview/pkg/render"
	"github.com/goliatone/go-modelview/pkg/schema"
	"github.com/goliatone/go-modelview/pkg/view"
)

// Node is the normalized schema tree the panel operates on.
type Node = schema.Node

// Document pairs a schema source with its raw bytes.
type Document = schema.Document

// Source identifies where a schema document came from.
type Source = schema.Source

// Panel is the render-ready snapshot produced by a view controller.
type Panel = view.Panel

// Controller holds panel state: the current model, query, and examples.
type Controller = view.Controller

// NewController builds a view controller over the supplied model.
func NewController(source Node, options ...view.Option) *Controller {
	return view.New(source, options...)
}

// NewRenderer constructs the HTML panel renderer.
func NewRenderer(options ...render.Option) (*render.Renderer, error) {
	return render.New(options...)
}

// NewLoader constructs a schema loader using the internal implementation while
// keeping the concrete type hidden from consumers.
func NewLoader(options ...jsonschema.LoaderOption) jsonschema.Loader {
	cfg := jsonschema.NewLoaderOptions(options...)
	return internalloader.New(cfg)
}

// Request describes a one-shot panel generation.
type Request struct {
	// Document holds the schema or OpenAPI bytes to render.
	Document Document
	// OperationID selects an operation when Document is an OpenAPI spec.
	// Ignored for standalone schemas.
	OperationID string
	// Query seeds the panel's search filter.
	Query string
}

// Generator wires the loader, resolver, adapters, and renderer into a single
// entry point for callers that just want panel HTML.
type Generator struct {
	loader   jsonschema.Loader
	resolver *jsonschema.Resolver
	renderer *render.Renderer
	viewOpts []view.Option
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithLoader overrides the loader used to fetch referenced documents.
func WithLoader(loader jsonschema.Loader) GeneratorOption {
	return func(g *Generator) {
		if loader != nil {
			g.loader = loader
		}
	}
}

// WithResolveOptions replaces the resolver configuration.
func WithResolveOptions(opts jsonschema.ResolveOptions) GeneratorOption {
	return func(g *Generator) {
		g.resolver = jsonschema.NewResolver(g.loader, opts)
	}
}

// WithRenderer overrides the panel renderer.
func WithRenderer(renderer *render.Renderer) GeneratorOption {
	return func(g *Generator) {
		if renderer != nil {
			g.renderer = renderer
		}
	}
}

// WithViewOptions forwards options to the view controllers the generator
// creates per request.
func WithViewOptions(options ...view.Option) GeneratorOption {
	return func(g *Generator) {
		g.viewOpts = append(g.viewOpts, options...)
	}
}

// NewGenerator builds a Generator with default collaborators.
func NewGenerator(options ...GeneratorOption) (*Generator, error) {
	gen := &Generator{loader: NewLoader()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(gen)
	}
	if gen.resolver == nil {
		gen.resolver = jsonschema.NewResolver(gen.loader, jsonschema.ResolveOptions{})
	}
	if gen.renderer == nil {
		renderer, err := render.New()
		if err != nil {
			return nil, err
		}
		gen.renderer = renderer
	}
	return gen, nil
}

// Model resolves the request's document into a schema node, dispatching on
// whether the payload is a standalone JSON Schema or an OpenAPI spec.
func (g *Generator) Model(ctx context.Context, req Request) (Node, error) {
	raw := req.Document.Raw()
	if len(raw) == 0 {
		return Node{}, fmt.Errorf("modelview: request document is empty")
	}

	if jsonschema.Detect(raw) {
		return jsonschema.ModelFromDocument(ctx, g.resolver, req.Document)
	}

	models, err := openapi.Models(ctx, raw, openapi.Options{})
	if err != nil {
		return Node{}, err
	}
	id := req.OperationID
	if id == "" {
		ids := openapi.ModelIDs(models)
		if len(ids) != 1 {
			return Node{}, fmt.Errorf("modelview: operation id is required, document has %d operations", len(ids))
		}
		id = ids[0]
	}
	model, ok := models[id]
	if !ok {
		return Node{}, fmt.Errorf("modelview: operation %q not found", id)
	}
	if !model.HasRequest {
		return Node{}, fmt.Errorf("modelview: operation %q has no request payload", id)
	}
	return model.Request, nil
}

// Generate resolves the request into panel HTML.
func (g *Generator) Generate(ctx context.Context, req Request) ([]byte, error) {
	node, err := g.Model(ctx, req)
	if err != nil {
		return nil, err
	}

	ctrl := view.New(node, g.viewOpts...)
	if req.Query != "" {
		ctrl.SetQuery(req.Query)
	}
	return g.renderer.Render(ctx, ctrl.Panel())
}

// PanelHTML loads a schema document, builds the model, and renders the panel.
// It is the simplest entry point for callers that just want HTML output.
func PanelHTML(ctx context.Context, doc Document, query string, options ...GeneratorOption) ([]byte, error) {
	gen, err := NewGenerator(options...)
	if err != nil {
		return nil, err
	}
	return gen.Generate(ctx, Request{Document: doc, Query: query})
}

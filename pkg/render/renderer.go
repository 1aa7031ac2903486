// Package render turns a model panel snapshot into HTML: the property tree
// expanded to the computed depth, plus the example payload blocks.
package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/flosch/pongo2/v6"
	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-modelview/pkg/example"
	"github.com/goliatone/go-modelview/pkg/schema"
	"github.com/goliatone/go-modelview/pkg/view"
)

//go:embed templates/*.html
var templatesFS embed.FS

const panelTemplate = "panel.html"

// Format selects how example payloads are encoded for display.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// defaultCollapseBytes is the payload size above which an example renders
// collapsed behind a load-more affordance.
const defaultCollapseBytes = 4096

// Option configures the renderer.
type Option func(*config)

type config struct {
	templates      fs.FS
	theme          *theme.RendererConfig
	exampleFormat  Format
	collapseBytes  int
	maxTreeDepth   int
	stylesheetsKey string
}

// WithTemplatesFS overrides the embedded template bundle.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.templates = files
		}
	}
}

// WithTheme passes a resolved theme configuration into the template context.
func WithTheme(cfg *theme.RendererConfig) Option {
	return func(c *config) {
		c.theme = cfg
	}
}

// WithExampleFormat selects JSON or YAML example rendering.
func WithExampleFormat(format Format) Option {
	return func(cfg *config) {
		if format != "" {
			cfg.exampleFormat = format
		}
	}
}

// WithCollapseThreshold overrides the payload size that triggers the
// collapsed example treatment. Zero or negative disables collapsing.
func WithCollapseThreshold(bytes int) Option {
	return func(cfg *config) {
		cfg.collapseBytes = bytes
	}
}

// Renderer renders model panels with a pongo2 template set.
type Renderer struct {
	tpl           *pongo2.Template
	theme         *theme.RendererConfig
	exampleFormat Format
	collapseBytes int
}

// New constructs a Renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := &config{
		exampleFormat: FormatJSON,
		collapseBytes: defaultCollapseBytes,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	files := cfg.templates
	if files == nil {
		sub, err := fs.Sub(templatesFS, "templates")
		if err != nil {
			return nil, fmt.Errorf("render: embedded templates: %w", err)
		}
		files = sub
	}

	set := pongo2.NewSet("modelview", pongo2.NewFSLoader(files))
	tpl, err := set.FromFile(panelTemplate)
	if err != nil {
		return nil, fmt.Errorf("render: load template %q: %w", panelTemplate, err)
	}

	return &Renderer{
		tpl:           tpl,
		theme:         cfg.theme,
		exampleFormat: cfg.exampleFormat,
		collapseBytes: cfg.collapseBytes,
	}, nil
}

// Render produces the panel HTML for the supplied snapshot.
func (r *Renderer) Render(ctx context.Context, panel view.Panel) ([]byte, error) {
	if r == nil || r.tpl == nil {
		return nil, fmt.Errorf("render: renderer is not initialized")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	examples, err := r.exampleViews(panel.Examples)
	if err != nil {
		return nil, err
	}

	tplCtx := pongo2.Context{
		"title":       panel.Model.Title,
		"description": sanitizeDescription(panel.Model.Description),
		"query":       panel.Query,
		"rows":        treeRows(panel.Model, panel.ExpandDepth),
		"examples":    examples,
		"theme":       themeContext(r.theme),
	}

	var buf bytes.Buffer
	if err := r.tpl.ExecuteWriter(tplCtx, &buf); err != nil {
		return nil, fmt.Errorf("render: execute template: %w", err)
	}
	return buf.Bytes(), nil
}

// TreeRow is one line of the flattened property tree.
type TreeRow struct {
	Name        string
	Type        string
	Format      string
	Required    bool
	Description string
	Depth       int
	Expanded    bool
	HasChildren bool
}

// treeRows flattens the model into render order, marking which levels start
// expanded based on the computed depth.
func treeRows(model schema.Node, expandDepth int) []TreeRow {
	var rows []TreeRow
	appendRows(&rows, model.Properties, model.Required, 0, expandDepth)
	return rows
}

func appendRows(rows *[]TreeRow, props schema.Properties, required []string, depth, expandDepth int) {
	for _, prop := range props {
		node := prop.Node
		row := TreeRow{
			Name:        prop.Name,
			Type:        node.Type,
			Format:      node.Format,
			Required:    containsString(required, prop.Name),
			Description: sanitizeDescription(node.Description),
			Depth:       depth,
			Expanded:    depth < expandDepth,
		}
		switch {
		case node.IsObject():
			row.HasChildren = true
			*rows = append(*rows, row)
			appendRows(rows, node.Properties, node.Required, depth+1, expandDepth)
		case node.IsArray():
			row.HasChildren = true
			*rows = append(*rows, row)
			appendRows(rows, node.Items.Properties, node.Items.Required, depth+1, expandDepth)
		default:
			*rows = append(*rows, row)
		}
	}
}

// ExampleView is one rendered example block.
type ExampleView struct {
	Label     string
	Code      string
	Language  string
	Collapsed bool
}

func (r *Renderer) exampleViews(examples []example.Example) ([]ExampleView, error) {
	if len(examples) == 0 {
		return nil, nil
	}
	views := make([]ExampleView, 0, len(examples))
	for _, ex := range examples {
		var (
			encoded []byte
			err     error
		)
		switch r.exampleFormat {
		case FormatYAML:
			encoded, err = example.EncodeYAML(ex)
		default:
			encoded, err = example.EncodeJSON(ex)
		}
		if err != nil {
			return nil, err
		}
		views = append(views, ExampleView{
			Label:     ex.Label,
			Code:      string(encoded),
			Language:  string(r.exampleFormat),
			Collapsed: r.collapseBytes > 0 && len(encoded) > r.collapseBytes,
		})
	}
	return views, nil
}

// ThemeContext is the theme payload exposed to templates.
type ThemeContext struct {
	Name         string
	Variant      string
	CSSVarsStyle string
	Stylesheet   string
	Tokens       map[string]string
}

func themeContext(cfg *theme.RendererConfig) ThemeContext {
	if cfg == nil {
		return ThemeContext{}
	}
	ctx := ThemeContext{
		Name:    cfg.Theme,
		Variant: cfg.Variant,
		Tokens:  cfg.Tokens,
	}
	ctx.CSSVarsStyle = cssVarsStyle(cfg.CSSVars)
	if cfg.AssetURL != nil {
		ctx.Stylesheet = cfg.AssetURL("modelview.stylesheet")
	}
	return ctx
}

func cssVarsStyle(vars map[string]string) string {
	if len(vars) == 0 {
		return ""
	}
	keys := make([]string, 0, len(vars))
	for key := range vars {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(":root {\n")
	for _, key := range keys {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(vars[key])
		b.WriteString(";\n")
	}
	b.WriteString("}")
	return b.String()
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

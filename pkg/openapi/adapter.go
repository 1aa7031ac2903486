// Package openapi extracts model schemas from OpenAPI documents so the panel
// can document request and response payloads straight from an API spec.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-modelview/pkg/schema"
)

// Model pairs an operation with the payload schemas worth documenting.
type Model struct {
	OperationID string
	Method      string
	Path        string
	Summary     string
	Description string
	Request     schema.Node
	HasRequest  bool
	Responses   map[string]schema.Node
}

// Options configures document parsing.
type Options struct {
	// AllowExternalRefs lets kin-openapi fetch refs outside the document.
	AllowExternalRefs bool
	// SkipValidation disables schema validation after loading.
	SkipValidation bool
}

// Models parses an OpenAPI payload and returns one Model per operation,
// keyed by operationId (or "method:path" when the id is missing).
func Models(ctx context.Context, raw []byte, opts Options) (map[string]Model, error) {
	if len(raw) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}

	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: opts.AllowExternalRefs,
	}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if !opts.SkipValidation {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi: validate document: %w", err)
		}
	}
	if spec.Paths == nil || spec.Paths.Len() == 0 {
		return nil, errors.New("openapi: document does not contain any paths")
	}

	models := make(map[string]Model)
	for path, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for method, operation := range operationsByMethod(item) {
			collectOperation(models, method, path, operation)
		}
	}
	if len(models) == 0 {
		return nil, errors.New("openapi: no operations extracted")
	}
	return models, nil
}

// ModelIDs returns the sorted operation identifiers of a model set.
func ModelIDs(models map[string]Model) []string {
	ids := make([]string, 0, len(models))
	for id := range models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func operationsByMethod(item *openapi3.PathItem) map[string]*openapi3.Operation {
	return map[string]*openapi3.Operation{
		"GET":    item.Get,
		"PUT":    item.Put,
		"POST":   item.Post,
		"DELETE": item.Delete,
		"PATCH":  item.Patch,
	}
}

func collectOperation(target map[string]Model, method, path string, operation *openapi3.Operation) {
	if operation == nil {
		return
	}
	id := operation.OperationID
	if id == "" {
		id = strings.ToLower(method) + ":" + path
	}

	model := Model{
		OperationID: id,
		Method:      method,
		Path:        path,
		Summary:     operation.Summary,
		Description: operation.Description,
	}

	if node, ok := requestNode(operation.RequestBody); ok {
		model.Request = node
		model.HasRequest = true
	}
	model.Responses = responseNodes(operation.Responses)

	if !model.HasRequest && len(model.Responses) == 0 {
		return
	}
	target[id] = model
}

func requestNode(body *openapi3.RequestBodyRef) (schema.Node, bool) {
	if body == nil || body.Value == nil {
		return schema.Node{}, false
	}
	content := body.Value.Content
	for _, mediaType := range []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"} {
		if mt, ok := content[mediaType]; ok && mt.Schema != nil {
			return convertSchema(mt.Schema, newVisitTracker()), true
		}
	}
	for _, mt := range content {
		if mt.Schema != nil {
			return convertSchema(mt.Schema, newVisitTracker()), true
		}
	}
	return schema.Node{}, false
}

func responseNodes(responses *openapi3.Responses) map[string]schema.Node {
	if responses == nil || responses.Len() == 0 {
		return nil
	}
	result := make(map[string]schema.Node)
	for status, ref := range responses.Map() {
		if ref == nil || ref.Value == nil {
			continue
		}
		content := ref.Value.Content
		if len(content) == 0 {
			continue
		}
		var node schema.Node
		if mt, ok := content["application/json"]; ok && mt.Schema != nil {
			node = convertSchema(mt.Schema, newVisitTracker())
		} else {
			found := false
			for _, mt := range content {
				if mt.Schema != nil {
					node = convertSchema(mt.Schema, newVisitTracker())
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		if node.Description == "" && ref.Value.Description != nil {
			node.Description = *ref.Value.Description
		}
		result[status] = node
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// visitTracker breaks conversion cycles: kin-openapi resolves $ref into a
// graph that may point back at itself.
type visitTracker struct {
	seen map[*openapi3.Schema]struct{}
}

func newVisitTracker() *visitTracker {
	return &visitTracker{seen: make(map[*openapi3.Schema]struct{})}
}

func (v *visitTracker) enter(s *openapi3.Schema) bool {
	if _, ok := v.seen[s]; ok {
		return false
	}
	v.seen[s] = struct{}{}
	return true
}

func (v *visitTracker) leave(s *openapi3.Schema) {
	delete(v.seen, s)
}

func convertSchema(ref *openapi3.SchemaRef, visited *visitTracker) schema.Node {
	if ref == nil || ref.Value == nil {
		return schema.Node{}
	}
	src := ref.Value
	if !visited.enter(src) {
		// Cyclic reference: emit a stub carrying the ref name only.
		return schema.Node{Extra: map[string]any{"$ref": ref.Ref}}
	}
	defer visited.leave(src)

	node := schema.Node{
		Type:        firstSchemaType(src.Type),
		Title:       src.Title,
		Description: src.Description,
		Format:      src.Format,
		Default:     src.Default,
	}
	if len(src.Required) > 0 {
		node.Required = append([]string(nil), src.Required...)
	}
	if len(src.Enum) > 0 {
		node.Enum = append([]any(nil), src.Enum...)
	}
	if len(src.Properties) > 0 {
		// kin-openapi stores properties in a map, so source order is gone;
		// sort for deterministic output.
		names := make([]string, 0, len(src.Properties))
		for name := range src.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		props := make(schema.Properties, 0, len(names))
		for _, name := range names {
			props = append(props, schema.Property{
				Name: name,
				Node: convertSchema(src.Properties[name], visited),
			})
		}
		node.Properties = props
	}
	if src.Items != nil {
		items := convertSchema(src.Items, visited)
		node.Items = &items
	}
	if example := src.Example; example != nil {
		node.Extra = map[string]any{"example": example}
	}
	return node
}

func firstSchemaType(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	values := types.Slice()
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	default:
		return strings.Join(values, ",")
	}
}

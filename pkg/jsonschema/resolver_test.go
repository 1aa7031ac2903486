package jsonschema

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-modelview/pkg/schema"
)

func parseResolved(raw []byte) (schema.Node, error) {
	return schema.ParseNode(raw)
}

type stubLoader struct {
	docs  map[string][]byte
	calls []string
}

func (l *stubLoader) Load(ctx context.Context, src Source) (Document, error) {
	l.calls = append(l.calls, src.Location())
	raw, ok := l.docs[src.Location()]
	if !ok {
		return Document{}, fmt.Errorf("stub loader: unknown document %q", src.Location())
	}
	return NewDocument(src, raw)
}

func resolveString(t *testing.T, loader Loader, raw string, opts ResolveOptions) []byte {
	t.Helper()
	resolver := NewResolver(loader, opts)
	doc := MustNewDocument(SourceFromFS("root.json"), []byte(raw))
	resolved, err := resolver.Resolve(context.Background(), doc)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return resolved
}

func TestResolver_InternalPointer(t *testing.T) {
	raw := `{
  "$defs": {
    "address": {
      "type": "object",
      "properties": {
        "street": {"type": "string"},
        "city": {"type": "string"}
      }
    }
  },
  "type": "object",
  "properties": {
    "home": {"$ref": "#/$defs/address"}
  }
}`

	resolved := resolveString(t, &stubLoader{}, raw, ResolveOptions{})

	node, err := parseResolved(resolved)
	if err != nil {
		t.Fatalf("parse resolved: %v", err)
	}
	home, ok := node.Properties.Get("home")
	if !ok || home.Type != "object" {
		t.Fatalf("expected home expanded to object, got %+v", home)
	}
	if diff := cmp.Diff([]string{"street", "city"}, home.Properties.Names()); diff != "" {
		t.Fatalf("expanded property order mismatch (-want +got):\n%s", diff)
	}
}

func TestResolver_RefSiblingsOverride(t *testing.T) {
	raw := `{
  "$defs": {
    "name": {"type": "string", "description": "canonical"}
  },
  "type": "object",
  "properties": {
    "name": {"$ref": "#/$defs/name", "description": "override"}
  }
}`

	resolved := resolveString(t, &stubLoader{}, raw, ResolveOptions{})
	node, err := parseResolved(resolved)
	if err != nil {
		t.Fatalf("parse resolved: %v", err)
	}
	name, _ := node.Properties.Get("name")
	if name.Description != "override" {
		t.Fatalf("expected sibling description to win, got %q", name.Description)
	}
}

func TestResolver_CycleDetected(t *testing.T) {
	raw := `{
  "$defs": {
    "a": {"$ref": "#/$defs/b"},
    "b": {"$ref": "#/$defs/a"}
  },
  "type": "object",
  "properties": {
    "loop": {"$ref": "#/$defs/a"}
  }
}`

	resolver := NewResolver(&stubLoader{}, ResolveOptions{})
	doc := MustNewDocument(SourceFromFS("root.json"), []byte(raw))
	_, err := resolver.Resolve(context.Background(), doc)
	if err == nil || !strings.Contains(err.Error(), "cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestResolver_ExternalDocument(t *testing.T) {
	loader := &stubLoader{docs: map[string][]byte{
		"shared/address.json": []byte(`{
  "type": "object",
  "properties": {
    "zip": {"type": "string"}
  }
}`),
	}}

	raw := `{
  "type": "object",
  "properties": {
    "address": {"$ref": "shared/address.json"}
  }
}`

	resolved := resolveString(t, loader, raw, ResolveOptions{})
	node, err := parseResolved(resolved)
	if err != nil {
		t.Fatalf("parse resolved: %v", err)
	}
	address, ok := node.Properties.Get("address")
	if !ok {
		t.Fatalf("expected address property")
	}
	if _, ok := address.Properties.Get("zip"); !ok {
		t.Fatalf("expected external schema inlined, got %+v", address)
	}
	if len(loader.calls) != 1 {
		t.Fatalf("expected one loader call, got %v", loader.calls)
	}
}

func TestResolver_HTTPRefsDisabledByDefault(t *testing.T) {
	raw := `{
  "type": "object",
  "properties": {
    "remote": {"$ref": "https://example.com/schema.json"}
  }
}`

	resolver := NewResolver(&stubLoader{}, ResolveOptions{})
	doc := MustNewDocument(SourceFromFS("root.json"), []byte(raw))
	_, err := resolver.Resolve(context.Background(), doc)
	if err == nil || !strings.Contains(err.Error(), "http refs disabled") {
		t.Fatalf("expected http refs disabled error, got %v", err)
	}
}

func TestResolver_AnchorFragment(t *testing.T) {
	raw := `{
  "$defs": {
    "tag": {
      "$anchor": "tagNode",
      "type": "string"
    }
  },
  "type": "object",
  "properties": {
    "tag": {"$ref": "#tagNode"}
  }
}`

	resolved := resolveString(t, &stubLoader{}, raw, ResolveOptions{})
	node, err := parseResolved(resolved)
	if err != nil {
		t.Fatalf("parse resolved: %v", err)
	}
	tag, _ := node.Properties.Get("tag")
	if tag.Type != "string" {
		t.Fatalf("expected anchor target inlined, got %+v", tag)
	}
}

func TestResolver_UnsupportedRefSibling(t *testing.T) {
	raw := `{
  "$defs": {
    "name": {"type": "string"}
  },
  "type": "object",
  "properties": {
    "name": {"$ref": "#/$defs/name", "minLength": 3}
  }
}`

	resolver := NewResolver(&stubLoader{}, ResolveOptions{})
	doc := MustNewDocument(SourceFromFS("root.json"), []byte(raw))
	_, err := resolver.Resolve(context.Background(), doc)
	if err == nil || !strings.Contains(err.Error(), "sibling") {
		t.Fatalf("expected sibling error, got %v", err)
	}
}

func TestResolver_NilLoader(t *testing.T) {
	resolver := NewResolver(nil, ResolveOptions{})
	doc := MustNewDocument(SourceFromFS("root.json"), []byte(`{}`))
	if _, err := resolver.Resolve(context.Background(), doc); err == nil {
		t.Fatalf("expected error for nil loader")
	}
}

func TestModelFromDocument(t *testing.T) {
	raw := `{
  "$defs": {
    "item": {
      "type": "object",
      "properties": {
        "sku": {"type": "string"},
        "qty": {"type": "integer"}
      }
    }
  },
  "type": "object",
  "properties": {
    "lines": {
      "type": "array",
      "items": {"$ref": "#/$defs/item"}
    }
  }
}`

	resolver := NewResolver(&stubLoader{}, ResolveOptions{})
	doc := MustNewDocument(SourceFromFS("root.json"), []byte(raw))

	model, err := ModelFromDocument(context.Background(), resolver, doc)
	if err != nil {
		t.Fatalf("model from document: %v", err)
	}

	lines, ok := model.Properties.Get("lines")
	if !ok || lines.Items == nil {
		t.Fatalf("expected lines array with resolved items, got %+v", lines)
	}
	if diff := cmp.Diff([]string{"sku", "qty"}, lines.Items.Properties.Names()); diff != "" {
		t.Fatalf("resolved item order mismatch (-want +got):\n%s", diff)
	}
}

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "schema with $schema", raw: `{"$schema": "https://json-schema.org/draft/2020-12/schema"}`, want: true},
		{name: "bare properties", raw: `{"properties": {"a": {}}}`, want: true},
		{name: "openapi doc", raw: `{"openapi": "3.1.0", "paths": {}}`, want: false},
		{name: "swagger doc", raw: `{"swagger": "2.0"}`, want: false},
		{name: "array", raw: `[1, 2]`, want: false},
		{name: "empty", raw: ``, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Detect([]byte(tc.raw)); got != tc.want {
				t.Fatalf("Detect(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

var errUnexpectedLoad = errors.New("unexpected loader call")

type failingLoader struct{}

func (failingLoader) Load(ctx context.Context, src Source) (Document, error) {
	return Document{}, errUnexpectedLoad
}

func TestResolver_NoRefsNeverLoads(t *testing.T) {
	raw := `{
  "type": "object",
  "properties": {
    "name": {"type": "string"}
  }
}`

	resolved := resolveString(t, failingLoader{}, raw, ResolveOptions{})
	node, err := parseResolved(resolved)
	if err != nil {
		t.Fatalf("parse resolved: %v", err)
	}
	if _, ok := node.Properties.Get("name"); !ok {
		t.Fatalf("expected name property to survive, got %+v", node)
	}
}

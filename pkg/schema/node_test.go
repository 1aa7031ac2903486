package schema

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseNode_PreservesPropertyOrder(t *testing.T) {
	raw := []byte(`{
  "type": "object",
  "properties": {
    "zeta": {"type": "string"},
    "alpha": {"type": "integer"},
    "mid": {"type": "boolean"}
  }
}`)

	node, err := ParseNode(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := []string{"zeta", "alpha", "mid"}
	if diff := cmp.Diff(want, node.Properties.Names()); diff != "" {
		t.Fatalf("property order mismatch (-want +got):\n%s", diff)
	}
}

func TestParseNode_LiftsKeywords(t *testing.T) {
	raw := []byte(`{
  "type": "object",
  "title": "Account",
  "description": "A user account",
  "required": ["id"],
  "properties": {
    "id": {"type": "string", "format": "uuid"},
    "tags": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "label": {"type": "string", "description": "display label"}
        }
      }
    }
  },
  "x-vendor": {"hint": "wide"}
}`)

	node, err := ParseNode(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if node.Type != "object" || node.Title != "Account" {
		t.Fatalf("unexpected node header: %+v", node)
	}
	if len(node.Required) != 1 || node.Required[0] != "id" {
		t.Fatalf("unexpected required list: %v", node.Required)
	}

	id, ok := node.Properties.Get("id")
	if !ok || id.Format != "uuid" {
		t.Fatalf("expected id property with uuid format, got %+v", id)
	}

	tags, ok := node.Properties.Get("tags")
	if !ok || !tags.IsArray() {
		t.Fatalf("expected tags to be an array with item properties, got %+v", tags)
	}
	label, ok := tags.Items.Properties.Get("label")
	if !ok || label.Description != "display label" {
		t.Fatalf("expected nested label property, got %+v", label)
	}

	if _, ok := node.Extra["x-vendor"]; !ok {
		t.Fatalf("expected x-vendor passthrough, got %v", node.Extra)
	}
}

func TestParseNode_RejectsMalformedInput(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "scalar", raw: `"text"`},
		{name: "bad properties", raw: `{"properties": []}`},
		{name: "bad required", raw: `{"required": [1]}`},
		{name: "trailing data", raw: `{} {}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseNode([]byte(tc.raw)); err == nil {
				t.Fatalf("expected error for %q", tc.raw)
			}
		})
	}
}

func TestNodeMarshalJSON_RoundTripKeepsOrder(t *testing.T) {
	raw := []byte(`{"type":"object","properties":{"b":{"type":"string"},"a":{"type":"string"},"c":{"type":"object","properties":{"z":{"type":"integer"},"y":{"type":"integer"}}}}}`)

	node, err := ParseNode(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	encoded, err := json.Marshal(node)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	reparsed, err := ParseNode(encoded)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}

	if diff := cmp.Diff(node.Properties.Names(), reparsed.Properties.Names()); diff != "" {
		t.Fatalf("top-level order changed (-want +got):\n%s", diff)
	}
	nested, _ := reparsed.Properties.Get("c")
	if diff := cmp.Diff([]string{"z", "y"}, nested.Properties.Names()); diff != "" {
		t.Fatalf("nested order changed (-want +got):\n%s", diff)
	}
}

func TestDocument_RawIsDefensiveCopy(t *testing.T) {
	raw := []byte(`{"type":"object"}`)
	doc := MustNewDocument(SourceFromFS("model.json"), raw)

	copied := doc.Raw()
	copied[0] = 'X'
	if doc.Raw()[0] != '{' {
		t.Fatalf("document payload was mutated through Raw()")
	}
}

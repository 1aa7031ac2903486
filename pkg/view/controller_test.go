package view

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-modelview/pkg/filter"
	"github.com/goliatone/go-modelview/pkg/schema"
)

func fixture(t *testing.T) schema.Node {
	t.Helper()
	node, err := schema.ParseNode([]byte(`{
  "type": "object",
  "title": "Order",
  "properties": {
    "id": {"type": "string"},
    "customer": {
      "type": "object",
      "properties": {
        "email": {"type": "string", "format": "email"},
        "shipping_code": {"type": "string"}
      }
    },
    "total": {"type": "number"}
  }
}`))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return node
}

func TestController_InitialState(t *testing.T) {
	ctrl := New(fixture(t))

	state := ctrl.State()
	if state.Query != "" {
		t.Fatalf("expected empty initial query, got %q", state.Query)
	}
	if state.ExpandDepth != filter.DefaultExpandDepth {
		t.Fatalf("expected default depth %d, got %d", filter.DefaultExpandDepth, state.ExpandDepth)
	}
	if diff := cmp.Diff(fixture(t), state.Model); diff != "" {
		t.Fatalf("initial model should be unfiltered (-want +got):\n%s", diff)
	}
}

func TestController_SetQueryFiltersModel(t *testing.T) {
	ctrl := New(fixture(t))

	ctrl.SetQuery("shipping")

	state := ctrl.State()
	if diff := cmp.Diff([]string{"customer"}, state.Model.Properties.Names()); diff != "" {
		t.Fatalf("filtered keys mismatch (-want +got):\n%s", diff)
	}
	if state.ExpandDepth != 1 {
		t.Fatalf("expected depth 1 for nested match, got %d", state.ExpandDepth)
	}
}

func TestController_ClearRestoresModel(t *testing.T) {
	ctrl := New(fixture(t))

	ctrl.SetQuery("shipping")
	ctrl.Clear()

	state := ctrl.State()
	if state.Query != "" {
		t.Fatalf("expected empty query after clear, got %q", state.Query)
	}
	if state.ExpandDepth != filter.DefaultExpandDepth {
		t.Fatalf("expected depth reset to %d, got %d", filter.DefaultExpandDepth, state.ExpandDepth)
	}
	if diff := cmp.Diff(fixture(t), state.Model); diff != "" {
		t.Fatalf("clear must restore the unfiltered model (-want +got):\n%s", diff)
	}
}

func TestController_SetSchemaRerunsQuery(t *testing.T) {
	ctrl := New(fixture(t))
	ctrl.SetQuery("billing")

	if got := ctrl.State().Model.Properties.Len(); got != 0 {
		t.Fatalf("expected no matches before schema swap, got %d", got)
	}

	replacement, err := schema.ParseNode([]byte(`{
  "type": "object",
  "properties": {
    "billing_address": {"type": "string"}
  }
}`))
	if err != nil {
		t.Fatalf("parse replacement: %v", err)
	}
	ctrl.SetSchema(replacement)

	state := ctrl.State()
	if state.Query != "billing" {
		t.Fatalf("schema swap must keep the query, got %q", state.Query)
	}
	if diff := cmp.Diff([]string{"billing_address"}, state.Model.Properties.Names()); diff != "" {
		t.Fatalf("query not re-run on new schema (-want +got):\n%s", diff)
	}
}

func TestController_ExamplesComeFromUnfilteredSchema(t *testing.T) {
	ctrl := New(fixture(t))
	ctrl.SetQuery("zzz-no-match")

	panel := ctrl.Panel()
	if panel.Model.Properties.Len() != 0 {
		t.Fatalf("expected empty filtered model, got %v", panel.Model.Properties.Names())
	}
	if len(panel.Examples) == 0 {
		t.Fatalf("examples must survive filtering")
	}
	payload, ok := panel.Examples[0].Data.(map[string]any)
	if !ok {
		t.Fatalf("expected object payload, got %T", panel.Examples[0].Data)
	}
	if _, ok := payload["total"]; !ok {
		t.Fatalf("examples must be generated from the full schema, got %v", payload)
	}
}

func TestController_ExamplesMemoizedPerSchema(t *testing.T) {
	ctrl := New(fixture(t))

	before := ctrl.Examples()
	ctrl.SetQuery("id")
	ctrl.SetQuery("customer")
	after := ctrl.Examples()

	if len(before) != len(after) {
		t.Fatalf("query changes must not regenerate examples")
	}
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("examples changed across queries (-want +got):\n%s", diff)
	}
}

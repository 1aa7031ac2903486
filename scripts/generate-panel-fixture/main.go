package main

import (
	"context"
	"fmt"
	"os"

	modelview "github.com/goliatone/go-modelview"
	"github.com/goliatone/go-modelview/pkg/jsonschema"
)

// Renders the validation fixture into a static HTML file for manual review
// in a browser alongside the committed panel assets.
func main() {
	ctx := context.Background()

	const (
		schemaPath = "pkg/validation/testdata/order.json"
		outputPath = "scripts/generate-panel-fixture/order-panel.html"
	)

	raw, err := os.ReadFile(schemaPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read schema: %v\n", err)
		os.Exit(1)
	}

	doc, err := jsonschema.NewDocument(jsonschema.SourceFromFile(schemaPath), raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build document: %v\n", err)
		os.Exit(1)
	}

	html, err := modelview.PanelHTML(ctx, doc, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render panel: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outputPath, html, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Generated panel fixture (%d bytes) → %s\n", len(html), outputPath)
}

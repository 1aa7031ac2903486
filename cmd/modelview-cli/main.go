package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	modelview "github.com/goliatone/go-modelview"
	"github.com/goliatone/go-modelview/pkg/jsonschema"
	"github.com/goliatone/go-modelview/pkg/openapi"
	"github.com/goliatone/go-modelview/pkg/render"
	"github.com/goliatone/go-modelview/pkg/validation"
)

func main() {
	source := flag.String("source", "", "schema or OpenAPI document path or URL")
	operationID := flag.String("operation", "", "operation ID when the source is an OpenAPI spec")
	query := flag.String("search", "", "initial search query for the panel")
	format := flag.String("format", "json", "example payload format: json or yaml")
	output := flag.String("output", "", "output file (stdout if empty)")
	validate := flag.Bool("validate", false, "validate the document and exit")
	flag.Parse()

	if *source == "" {
		log.Fatal("a -source path or URL is required")
	}

	ctx := context.Background()

	doc, err := loadDocument(ctx, *source)
	if err != nil {
		log.Fatalf("Failed to load document: %v", err)
	}

	if *validate {
		runValidation(ctx, doc)
		return
	}

	opID := *operationID
	if opID == "" && !jsonschema.Detect(doc.Raw()) {
		opID, err = pickOperation(ctx, doc.Raw())
		if err != nil {
			log.Fatalf("Failed to select operation: %v", err)
		}
	}

	renderer, err := render.New(render.WithExampleFormat(exampleFormat(*format)))
	if err != nil {
		log.Fatalf("Failed to build renderer: %v", err)
	}

	gen, err := modelview.NewGenerator(modelview.WithRenderer(renderer))
	if err != nil {
		log.Fatalf("Failed to build generator: %v", err)
	}

	outputHTML, err := gen.Generate(ctx, modelview.Request{
		Document:    doc,
		OperationID: opID,
		Query:       *query,
	})
	if err != nil {
		log.Fatalf("Failed to render panel: %v", err)
	}

	if *output != "" {
		if err := os.WriteFile(*output, outputHTML, 0o644); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		fmt.Printf("Panel written to %s\n", *output)
	} else {
		fmt.Println(string(outputHTML))
	}
}

func loadDocument(ctx context.Context, raw string) (jsonschema.Document, error) {
	loader := modelview.NewLoader(jsonschema.WithHTTPFallback(0))
	return loader.Load(ctx, parseSource(raw))
}

func parseSource(raw string) jsonschema.Source {
	path := strings.TrimSpace(raw)
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return jsonschema.SourceFromURL(path)
	}
	return jsonschema.SourceFromFile(path)
}

func exampleFormat(name string) render.Format {
	if strings.EqualFold(name, "yaml") {
		return render.FormatYAML
	}
	return render.FormatJSON
}

// pickOperation prompts when the OpenAPI document exposes more than one
// operation and none was passed on the command line.
func pickOperation(ctx context.Context, raw []byte) (string, error) {
	models, err := openapi.Models(ctx, raw, openapi.Options{})
	if err != nil {
		return "", err
	}
	ids := openapi.ModelIDs(models)
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("document has no operations")
	case 1:
		return ids[0], nil
	}

	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		model := models[id]
		label := id
		if model.Summary != "" {
			label = fmt.Sprintf("%s (%s)", id, model.Summary)
		}
		labels = append(labels, label)
	}

	var picked string
	prompt := &survey.Select{
		Message:  "Select an operation:",
		Options:  labels,
		PageSize: 12,
	}
	if err := survey.AskOne(prompt, &picked); err != nil {
		return "", err
	}
	for idx, label := range labels {
		if label == picked {
			return ids[idx], nil
		}
	}
	return "", fmt.Errorf("operation %q not found", picked)
}

func runValidation(ctx context.Context, doc jsonschema.Document) {
	result := validation.ValidateJSONSchema(ctx, doc.Source(), doc.Raw(), validation.JSONSchemaValidationOptions{
		Loader: modelview.NewLoader(),
	})
	if result.Valid {
		fmt.Println("Document is valid.")
		return
	}
	for _, issue := range result.Issues {
		if issue.Path != "" {
			fmt.Fprintf(os.Stderr, "%s: %s\n", issue.Path, issue.Message)
			continue
		}
		fmt.Fprintln(os.Stderr, issue.Message)
	}
	os.Exit(1)
}

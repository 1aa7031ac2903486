package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	pkgjsonschema "github.com/goliatone/go-modelview/pkg/jsonschema"
)

func TestLoader_FromFS(t *testing.T) {
	files := fstest.MapFS{
		"schemas/model.json": {Data: []byte(`{"type":"object"}`)},
	}
	l := New(pkgjsonschema.NewLoaderOptions(pkgjsonschema.WithFileSystem(files)))

	doc, err := l.Load(context.Background(), pkgjsonschema.SourceFromFS("schemas/model.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(doc.Raw()) != `{"type":"object"}` {
		t.Fatalf("unexpected payload: %s", doc.Raw())
	}
}

func TestLoader_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	if err := os.WriteFile(path, []byte(`{"type":"object"}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	l := New(pkgjsonschema.LoaderOptions{})
	doc, err := l.Load(context.Background(), pkgjsonschema.SourceFromFile(path))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(doc.Raw()) == 0 {
		t.Fatalf("expected payload")
	}
}

func TestLoader_HTTPDisabledByDefault(t *testing.T) {
	l := New(pkgjsonschema.LoaderOptions{})
	_, err := l.Load(context.Background(), pkgjsonschema.SourceFromURL("https://example.com/model.json"))
	if err == nil {
		t.Fatalf("expected http disabled error")
	}
}

func TestLoader_HTTPFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"object"}`))
	}))
	defer server.Close()

	l := New(pkgjsonschema.NewLoaderOptions(pkgjsonschema.WithHTTPFallback(0)))
	doc, err := l.Load(context.Background(), pkgjsonschema.SourceFromURL(server.URL+"/model.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(doc.Raw()) != `{"type":"object"}` {
		t.Fatalf("unexpected payload: %s", doc.Raw())
	}
}

func TestLoader_HTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing", http.StatusNotFound)
	}))
	defer server.Close()

	l := New(pkgjsonschema.NewLoaderOptions(pkgjsonschema.WithHTTPFallback(0)))
	if _, err := l.Load(context.Background(), pkgjsonschema.SourceFromURL(server.URL+"/gone.json")); err == nil {
		t.Fatalf("expected status error")
	}
}

func TestLoader_NilSource(t *testing.T) {
	l := New(pkgjsonschema.LoaderOptions{})
	if _, err := l.Load(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil source")
	}
}

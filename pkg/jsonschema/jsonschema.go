// Package jsonschema loads JSON Schema documents and expands $ref references
// ahead of the model panel. Resolution preserves the source order of object
// keys so the rendered property tree matches the document.
package jsonschema

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/goliatone/go-modelview/pkg/schema"
)

// Source aliases the canonical schema source abstraction so loaders can be
// shared across document kinds.
type Source = schema.Source

// SourceKind enumerates the loader modalities.
type SourceKind = schema.SourceKind

const (
	SourceKindFile = schema.SourceKindFile
	SourceKindFS   = schema.SourceKindFS
	SourceKindURL  = schema.SourceKindURL
)

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return schema.SourceFromFile(path)
}

// SourceFromFS returns a Source identifying a resource inside an fs.FS.
func SourceFromFS(name string) Source {
	return schema.SourceFromFS(name)
}

// SourceFromURL parses the supplied URL string and returns a Source. It panics
// if the URL is invalid to surface configuration mistakes early.
func SourceFromURL(raw string) Source {
	return schema.SourceFromURL(raw)
}

// Document wraps the raw schema payload and its origin.
type Document = schema.Document

// NewDocument constructs a Document wrapper while validating the inputs.
func NewDocument(src Source, raw []byte) (Document, error) {
	return schema.NewDocument(src, raw)
}

// MustNewDocument panics if the document cannot be created. Useful for tests.
func MustNewDocument(src Source, raw []byte) Document {
	return schema.MustNewDocument(src, raw)
}

// Loader fetches schema documents from different sources (filesystem, fs.FS,
// HTTP). Implementations live under internal/jsonschema but satisfy this
// contract.
type Loader interface {
	Load(ctx context.Context, src Source) (Document, error)
}

// LoaderOptions configures how a Loader resolves sources. Offline-first: HTTP
// stays disabled unless a client is injected or the fallback is enabled.
type LoaderOptions struct {
	// FileSystem enables loading from an abstract filesystem; defaults to the
	// operating system if nil.
	FileSystem fs.FS

	// HTTPClient allows callers to inject custom HTTP behaviour (timeouts,
	// proxies). Nil means HTTP sources are disabled unless AllowHTTPFallback
	// is true.
	HTTPClient *http.Client

	// AllowHTTPFallback toggles a default HTTP client when none is supplied.
	AllowHTTPFallback bool

	// RequestTimeout caps remote fetch durations.
	RequestTimeout time.Duration
}

// LoaderOption mutates LoaderOptions prior to construction.
type LoaderOption func(*LoaderOptions)

// WithFileSystem injects an fs.FS implementation for fs sources.
func WithFileSystem(files fs.FS) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.FileSystem = files
	}
}

// WithHTTPClient injects a custom HTTP client for remote schema documents.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.HTTPClient = client
	}
}

// WithHTTPFallback enables HTTP loading with an optional timeout.
func WithHTTPFallback(timeout time.Duration) LoaderOption {
	return func(opts *LoaderOptions) {
		opts.AllowHTTPFallback = true
		opts.RequestTimeout = timeout
	}
}

// NewLoaderOptions applies a set of LoaderOption values and returns the
// resulting configuration.
func NewLoaderOptions(options ...LoaderOption) LoaderOptions {
	cfg := LoaderOptions{}
	for _, opt := range options {
		opt(&cfg)
	}
	return cfg
}

// ModelFromDocument resolves every $ref in the document and converts the
// result into the ordered model node consumed by the panel.
func ModelFromDocument(ctx context.Context, resolver *Resolver, doc Document) (schema.Node, error) {
	if resolver == nil {
		return schema.Node{}, errors.New("jsonschema: resolver is nil")
	}
	resolved, err := resolver.Resolve(ctx, doc)
	if err != nil {
		return schema.Node{}, err
	}
	return schema.ParseNode(resolved)
}

// Detect reports whether the raw payload looks like a standalone JSON Schema
// document rather than an OpenAPI spec.
func Detect(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	payload, err := decodeDocument(trimmed)
	if err != nil {
		return false
	}
	if _, ok := payload.get("openapi"); ok {
		return false
	}
	if _, ok := payload.get("swagger"); ok {
		return false
	}
	for _, marker := range []string{"$schema", "$id", "$defs", "properties", "type", "items"} {
		if _, ok := payload.get(marker); ok {
			return true
		}
	}
	return false
}

// Package loader implements jsonschema.Loader over files, fs.FS entries, and
// HTTP endpoints.
package loader

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	pkgjsonschema "github.com/goliatone/go-modelview/pkg/jsonschema"
)

// Loader delegates to a file, fs.FS, or HTTP strategy based on source kind.
type Loader struct {
	fs        fs.FS
	http      *http.Client
	allowHTTP bool
	timeout   time.Duration
}

var _ pkgjsonschema.Loader = (*Loader)(nil)

// New constructs a Loader from pre-resolved options.
func New(options pkgjsonschema.LoaderOptions) *Loader {
	timeout := options.RequestTimeout

	var httpClient *http.Client
	switch {
	case options.HTTPClient != nil:
		clone := *options.HTTPClient
		if timeout > 0 && clone.Timeout == 0 {
			clone.Timeout = timeout
		}
		httpClient = &clone
	case options.AllowHTTPFallback:
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Loader{
		fs:        options.FileSystem,
		http:      httpClient,
		allowHTTP: httpClient != nil,
		timeout:   timeout,
	}
}

// Load fetches a document from the provided source and wraps it in a Document.
func (l *Loader) Load(ctx context.Context, src pkgjsonschema.Source) (pkgjsonschema.Document, error) {
	if src == nil {
		return pkgjsonschema.Document{}, errors.New("jsonschema loader: source is nil")
	}

	var (
		data []byte
		err  error
	)

	switch src.Kind() {
	case pkgjsonschema.SourceKindFile:
		data, err = l.loadFile(ctx, src.Location())
	case pkgjsonschema.SourceKindFS:
		data, err = l.loadFromFS(ctx, src.Location())
	case pkgjsonschema.SourceKindURL:
		if !l.allowHTTP {
			return pkgjsonschema.Document{}, errors.New("jsonschema loader: http support disabled")
		}
		data, err = l.loadHTTP(ctx, src.Location())
	default:
		err = errors.New("jsonschema loader: unsupported source kind")
	}
	if err != nil {
		return pkgjsonschema.Document{}, err
	}

	return pkgjsonschema.NewDocument(src, data)
}

func (l *Loader) loadFile(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		return nil, errors.New("jsonschema loader: file path is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(abs)
}

func (l *Loader) loadFromFS(ctx context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, errors.New("jsonschema loader: fs path is required")
	}
	if l.fs == nil {
		return nil, errors.New("jsonschema loader: fs is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fs.ReadFile(l.fs, name)
}

func (l *Loader) loadHTTP(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("jsonschema loader: url is required")
	}

	reqCtx := ctx
	var cancel context.CancelFunc
	if l.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.New("jsonschema loader: unexpected status " + resp.Status)
	}

	return io.ReadAll(resp.Body)
}

package jsonschema

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	defaultMaxDocumentBytes = int64(5 << 20)
	defaultMaxDocuments     = 128
	defaultMaxRefDepth      = 64
)

// ResolveOptions configures JSON Schema ref resolution.
type ResolveOptions struct {
	// AllowHTTPRefs toggles HTTP/HTTPS ref resolution.
	AllowHTTPRefs bool
	// AllowPathTraversal permits refs to escape the root directory.
	AllowPathTraversal bool
	// MaxDocumentBytes caps the size of any single referenced document.
	MaxDocumentBytes int64
	// MaxDocuments caps the number of unique documents loaded during resolution.
	MaxDocuments int
	// MaxRefDepth caps the depth of $ref resolution chains.
	MaxRefDepth int
}

// Resolver expands $ref references with guardrails against cycles, deep
// chains, and oversized documents.
type Resolver struct {
	loader Loader
	opts   ResolveOptions
}

// NewResolver constructs a resolver with the supplied loader and options.
func NewResolver(loader Loader, opts ResolveOptions) *Resolver {
	if opts.MaxDocumentBytes <= 0 {
		opts.MaxDocumentBytes = defaultMaxDocumentBytes
	}
	if opts.MaxDocuments <= 0 {
		opts.MaxDocuments = defaultMaxDocuments
	}
	if opts.MaxRefDepth <= 0 {
		opts.MaxRefDepth = defaultMaxRefDepth
	}
	return &Resolver{loader: loader, opts: opts}
}

// Resolve expands every $ref in the document and returns the resolved JSON
// payload with object key order intact.
func (r *Resolver) Resolve(ctx context.Context, doc Document) ([]byte, error) {
	if r == nil {
		return nil, errors.New("jsonschema resolver: resolver is nil")
	}
	if r.loader == nil {
		return nil, errors.New("jsonschema resolver: loader is nil")
	}
	if doc.Source() == nil {
		return nil, errors.New("jsonschema resolver: source is nil")
	}

	session := &resolveSession{
		loader: r.loader,
		opts:   r.opts,
		cache:  make(map[string]*resolvedDocument),
	}

	root, err := session.prepareRoot(doc)
	if err != nil {
		return nil, err
	}

	state := &refStack{inStack: make(map[string]struct{})}
	resolved, err := session.resolveNode(ctx, root, root.data, state)
	if err != nil {
		return nil, err
	}

	output, ok := resolved.(*object)
	if !ok {
		return nil, errors.New("jsonschema resolver: resolved root is not an object")
	}

	var buf bytes.Buffer
	if err := encodeValue(&buf, output); err != nil {
		return nil, fmt.Errorf("jsonschema resolver: encode resolved document: %w", err)
	}
	return buf.Bytes(), nil
}

type resolveSession struct {
	loader Loader
	opts   ResolveOptions
	cache  map[string]*resolvedDocument
	root   *resolvedDocument
}

type resolvedDocument struct {
	key      string
	kind     SourceKind
	location string
	baseDir  string
	data     *object
	anchors  map[string]string
}

func (s *resolveSession) prepareRoot(doc Document) (*resolvedDocument, error) {
	raw := doc.Raw()
	if int64(len(raw)) > s.opts.MaxDocumentBytes {
		return nil, fmt.Errorf("jsonschema resolver: document too large (%d bytes)", len(raw))
	}
	payload, err := decodeDocument(raw)
	if err != nil {
		return nil, err
	}
	key, location, baseDir, err := s.canonicalLocation(doc.Source())
	if err != nil {
		return nil, err
	}

	anchors := make(map[string]string)
	if err := indexAnchors(payload, "#", anchors); err != nil {
		return nil, err
	}

	root := &resolvedDocument{
		key:      key,
		kind:     doc.Source().Kind(),
		location: location,
		baseDir:  baseDir,
		data:     payload,
		anchors:  anchors,
	}
	s.cache[key] = root
	s.root = root
	return root, nil
}

func (s *resolveSession) resolveNode(ctx context.Context, doc *resolvedDocument, node any, state *refStack) (any, error) {
	switch typed := node.(type) {
	case *object:
		if ref := strings.TrimSpace(typed.stringField("$ref")); ref != "" {
			refKey, refDoc, target, err := s.resolveRefTarget(ctx, doc, ref)
			if err != nil {
				return nil, err
			}
			if state.depth() >= s.opts.MaxRefDepth {
				return nil, fmt.Errorf("jsonschema resolver: ref depth exceeds %d", s.opts.MaxRefDepth)
			}
			if state.contains(refKey) {
				return nil, fmt.Errorf("jsonschema resolver: ref cycle detected at %s", ref)
			}
			merged, err := mergeRefTarget(target, typed)
			if err != nil {
				return nil, err
			}
			state.push(refKey)
			resolved, err := s.resolveNode(ctx, refDoc, merged, state)
			state.pop(refKey)
			if err != nil {
				return nil, err
			}
			return resolved, nil
		}

		resolved := newObject()
		for _, key := range typed.keys {
			value := typed.fields[key]
			switch key {
			case "$defs", "properties":
				children, ok := value.(*object)
				if !ok {
					resolved.set(key, value)
					continue
				}
				out := newObject()
				for _, childKey := range children.keys {
					resolvedChild, err := s.resolveNode(ctx, doc, children.fields[childKey], state)
					if err != nil {
						return nil, err
					}
					out.set(childKey, resolvedChild)
				}
				resolved.set(key, out)
			case "items":
				resolvedChild, err := s.resolveNode(ctx, doc, value, state)
				if err != nil {
					return nil, err
				}
				resolved.set(key, resolvedChild)
			case "oneOf", "anyOf", "allOf":
				list, ok := value.([]any)
				if !ok {
					resolved.set(key, value)
					continue
				}
				out := make([]any, 0, len(list))
				for _, entry := range list {
					resolvedChild, err := s.resolveNode(ctx, doc, entry, state)
					if err != nil {
						return nil, err
					}
					out = append(out, resolvedChild)
				}
				resolved.set(key, out)
			default:
				resolved.set(key, value)
			}
		}
		return resolved, nil
	case []any:
		out := make([]any, 0, len(typed))
		for _, entry := range typed {
			resolvedChild, err := s.resolveNode(ctx, doc, entry, state)
			if err != nil {
				return nil, err
			}
			out = append(out, resolvedChild)
		}
		return out, nil
	default:
		return node, nil
	}
}

func (s *resolveSession) resolveRefTarget(ctx context.Context, doc *resolvedDocument, ref string) (string, *resolvedDocument, any, error) {
	refPath, fragment := splitRef(ref)
	if refPath == "" {
		refKey := doc.key + "#" + fragment
		resolved, err := s.resolveFragment(doc, fragment)
		return refKey, doc, resolved, err
	}

	parsed, err := url.Parse(refPath)
	if err != nil {
		return "", nil, nil, fmt.Errorf("jsonschema resolver: invalid ref %q", ref)
	}

	var target *resolvedDocument
	switch {
	case parsed.Scheme == "http" || parsed.Scheme == "https":
		if !s.opts.AllowHTTPRefs {
			return "", nil, nil, fmt.Errorf("jsonschema resolver: http refs disabled (%s)", ref)
		}
		target, err = s.loadDocument(ctx, SourceFromURL(parsed.String()))
	case parsed.Scheme == "file":
		target, err = s.loadDocument(ctx, SourceFromFile(parsed.Path))
	case parsed.Scheme != "":
		return "", nil, nil, fmt.Errorf("jsonschema resolver: unsupported ref scheme %q", parsed.Scheme)
	default:
		src, srcErr := s.resolveRelativeSource(doc, parsed.Path)
		if srcErr != nil {
			return "", nil, nil, srcErr
		}
		target, err = s.loadDocument(ctx, src)
	}
	if err != nil {
		return "", nil, nil, err
	}
	refKey := target.key + "#" + fragment
	resolved, err := s.resolveFragment(target, fragment)
	return refKey, target, resolved, err
}

func (s *resolveSession) resolveFragment(doc *resolvedDocument, fragment string) (any, error) {
	fragment = strings.TrimPrefix(fragment, "#")
	if fragment == "" {
		return cloneValue(doc.data), nil
	}
	if strings.HasPrefix(fragment, "/") {
		return resolveJSONPointer(doc.data, fragment)
	}
	pointer, ok := doc.anchors[fragment]
	if !ok {
		return nil, fmt.Errorf("jsonschema resolver: anchor %q not found", fragment)
	}
	pointer = strings.TrimPrefix(pointer, "#")
	if pointer == "" {
		return cloneValue(doc.data), nil
	}
	return resolveJSONPointer(doc.data, pointer)
}

func (s *resolveSession) loadDocument(ctx context.Context, src Source) (*resolvedDocument, error) {
	key, location, baseDir, err := s.canonicalLocation(src)
	if err != nil {
		return nil, err
	}

	if cached, ok := s.cache[key]; ok {
		return cached, nil
	}
	if len(s.cache) >= s.opts.MaxDocuments {
		return nil, fmt.Errorf("jsonschema resolver: exceeded max documents (%d)", s.opts.MaxDocuments)
	}

	doc, err := s.loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	raw := doc.Raw()
	if int64(len(raw)) > s.opts.MaxDocumentBytes {
		return nil, fmt.Errorf("jsonschema resolver: document too large (%d bytes)", len(raw))
	}
	payload, err := decodeDocument(raw)
	if err != nil {
		return nil, err
	}
	anchors := make(map[string]string)
	if err := indexAnchors(payload, "#", anchors); err != nil {
		return nil, err
	}

	resolved := &resolvedDocument{
		key:      key,
		kind:     src.Kind(),
		location: location,
		baseDir:  baseDir,
		data:     payload,
		anchors:  anchors,
	}
	s.cache[key] = resolved
	return resolved, nil
}

func (s *resolveSession) resolveRelativeSource(doc *resolvedDocument, refPath string) (Source, error) {
	switch doc.kind {
	case SourceKindFile:
		resolved, err := s.cleanFilePath(doc.baseDir, refPath)
		if err != nil {
			return nil, err
		}
		return SourceFromFile(resolved), nil
	case SourceKindFS:
		resolved, err := s.cleanFSPath(doc.baseDir, refPath)
		if err != nil {
			return nil, err
		}
		return SourceFromFS(resolved), nil
	case SourceKindURL:
		if !s.opts.AllowHTTPRefs {
			return nil, fmt.Errorf("jsonschema resolver: http refs disabled (%s)", refPath)
		}
		base, err := url.Parse(doc.location)
		if err != nil {
			return nil, err
		}
		rel, err := url.Parse(refPath)
		if err != nil {
			return nil, err
		}
		return SourceFromURL(base.ResolveReference(rel).String()), nil
	default:
		return nil, errors.New("jsonschema resolver: unsupported source kind")
	}
}

func (s *resolveSession) canonicalLocation(src Source) (string, string, string, error) {
	if src == nil {
		return "", "", "", errors.New("jsonschema resolver: source is nil")
	}
	location := src.Location()
	switch src.Kind() {
	case SourceKindFile:
		abs, err := filepath.Abs(location)
		if err != nil {
			return "", "", "", err
		}
		return "file:" + abs, abs, filepath.Dir(abs), nil
	case SourceKindFS:
		cleaned := path.Clean(strings.TrimPrefix(location, "/"))
		return "fs:" + cleaned, cleaned, path.Dir(cleaned), nil
	case SourceKindURL:
		return "url:" + location, location, path.Dir(location), nil
	default:
		return "", "", "", errors.New("jsonschema resolver: unsupported source kind")
	}
}

func (s *resolveSession) cleanFilePath(baseDir, refPath string) (string, error) {
	candidate := refPath
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(baseDir, refPath)
	}
	candidate = filepath.Clean(candidate)
	if s.opts.AllowPathTraversal {
		return candidate, nil
	}
	root := baseDir
	if s.root != nil {
		root = s.root.baseDir
	}
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("jsonschema resolver: ref path escapes root (%s)", refPath)
	}
	return candidate, nil
}

func (s *resolveSession) cleanFSPath(baseDir, refPath string) (string, error) {
	candidate := path.Clean(path.Join(baseDir, refPath))
	candidate = strings.TrimPrefix(candidate, "/")
	if s.opts.AllowPathTraversal {
		return candidate, nil
	}
	root := baseDir
	if s.root != nil {
		root = s.root.baseDir
	}
	root = strings.TrimPrefix(path.Clean(root), "/")
	if root == "." {
		root = ""
	}
	if root == "" {
		if strings.HasPrefix(candidate, "..") {
			return "", fmt.Errorf("jsonschema resolver: ref path escapes root (%s)", refPath)
		}
		return candidate, nil
	}
	if candidate == root || strings.HasPrefix(candidate, root+"/") {
		return candidate, nil
	}
	return "", fmt.Errorf("jsonschema resolver: ref path escapes root (%s)", refPath)
}

func splitRef(ref string) (string, string) {
	parts := strings.SplitN(ref, "#", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func resolveJSONPointer(root any, pointer string) (any, error) {
	if pointer == "" || pointer == "#" {
		return cloneValue(root), nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("jsonschema resolver: invalid json pointer %q", pointer)
	}

	current := root
	for _, part := range strings.Split(pointer, "/")[1:] {
		decoded, err := url.PathUnescape(part)
		if err != nil {
			return nil, err
		}
		decoded = strings.ReplaceAll(decoded, "~1", "/")
		decoded = strings.ReplaceAll(decoded, "~0", "~")

		switch typed := current.(type) {
		case *object:
			value, ok := typed.get(decoded)
			if !ok {
				return nil, fmt.Errorf("jsonschema resolver: pointer %q not found", pointer)
			}
			current = value
		case []any:
			idx, err := strconv.Atoi(decoded)
			if err != nil || idx < 0 || idx >= len(typed) {
				return nil, fmt.Errorf("jsonschema resolver: pointer %q out of range", pointer)
			}
			current = typed[idx]
		default:
			return nil, fmt.Errorf("jsonschema resolver: pointer %q invalid", pointer)
		}
	}

	return cloneValue(current), nil
}

func indexAnchors(node any, pointer string, anchors map[string]string) error {
	switch typed := node.(type) {
	case *object:
		if name := strings.TrimSpace(typed.stringField("$anchor")); name != "" {
			if _, exists := anchors[name]; exists {
				return fmt.Errorf("jsonschema resolver: duplicate anchor %q", name)
			}
			anchors[name] = pointer
		}
		for _, key := range typed.keys {
			if isVendorExtension(key) {
				continue
			}
			if err := indexAnchors(typed.fields[key], joinPointer(pointer, key), anchors); err != nil {
				return err
			}
		}
	case []any:
		for idx, value := range typed {
			if err := indexAnchors(value, joinPointer(pointer, strconv.Itoa(idx)), anchors); err != nil {
				return err
			}
		}
	}
	return nil
}

func mergeRefTarget(target any, refObj *object) (any, error) {
	merged := cloneValue(target)
	if mergedObj, ok := merged.(*object); ok {
		for _, key := range refObj.keys {
			if key == "$ref" {
				continue
			}
			if !isAllowedRefSibling(key) {
				return nil, fmt.Errorf("jsonschema resolver: unsupported $ref sibling %q", key)
			}
			mergedObj.set(key, refObj.fields[key])
		}
		return mergedObj, nil
	}
	for _, key := range refObj.keys {
		if key != "$ref" {
			return nil, errors.New("jsonschema resolver: $ref target is not an object")
		}
	}
	return merged, nil
}

func isAllowedRefSibling(key string) bool {
	if key == "title" || key == "description" || key == "default" {
		return true
	}
	return isVendorExtension(key)
}

func isVendorExtension(key string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(key)), "x-")
}

func joinPointer(pointer, segment string) string {
	if pointer == "" {
		pointer = "#"
	}
	replacer := strings.NewReplacer("~", "~0", "/", "~1")
	return pointer + "/" + replacer.Replace(segment)
}

type refStack struct {
	stack   []string
	inStack map[string]struct{}
}

func (s *refStack) push(ref string) {
	s.stack = append(s.stack, ref)
	s.inStack[ref] = struct{}{}
}

func (s *refStack) pop(ref string) {
	if len(s.stack) == 0 {
		return
	}
	last := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	delete(s.inStack, last)
	if ref != last {
		delete(s.inStack, ref)
	}
}

func (s *refStack) contains(ref string) bool {
	_, ok := s.inStack[ref]
	return ok
}

func (s *refStack) depth() int {
	return len(s.stack)
}

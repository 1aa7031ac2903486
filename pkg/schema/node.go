package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Node is one JSON-Schema-shaped value describing a model's shape. Recognized
// keywords are lifted into typed fields; everything else passes through in
// Extra untouched so vendor keywords survive a round trip.
type Node struct {
	Type        string
	Title       string
	Description string
	Format      string
	Default     any
	Const       any
	Enum        []any
	Required    []string
	Properties  Properties
	Items       *Node
	Extra       map[string]any
}

// Property pairs a property name with its schema node.
type Property struct {
	Name string
	Node Node
}

// Properties is an insertion-ordered property collection. Order matches the
// source document and is preserved by filtering and serialization.
type Properties []Property

// Len returns the number of properties.
func (p Properties) Len() int {
	return len(p)
}

// Get looks up a property by name.
func (p Properties) Get(name string) (Node, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Node, true
		}
	}
	return Node{}, false
}

// Names returns the property names in source order.
func (p Properties) Names() []string {
	if len(p) == 0 {
		return nil
	}
	names := make([]string, 0, len(p))
	for _, prop := range p {
		names = append(names, prop.Name)
	}
	return names
}

// IsObject reports whether the node is an object with at least one property.
func (n Node) IsObject() bool {
	return n.Type == "object" && n.Properties.Len() > 0
}

// IsArray reports whether the node is an array whose items carry properties.
func (n Node) IsArray() bool {
	return n.Type == "array" && n.Items != nil && n.Items.Properties.Len() > 0
}

// ParseNode decodes a JSON Schema payload into a Node, preserving the
// source order of property keys.
func ParseNode(raw []byte) (Node, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Node{}, errors.New("schema: raw schema is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	node, err := decodeNode(dec, "#")
	if err != nil {
		return Node{}, err
	}
	if dec.More() {
		return Node{}, errors.New("schema: trailing data after schema document")
	}
	return node, nil
}

// UnmarshalJSON preserves property order while decoding.
func (n *Node) UnmarshalJSON(data []byte) error {
	node, err := ParseNode(data)
	if err != nil {
		return err
	}
	*n = node
	return nil
}

// MarshalJSON writes recognized keywords first, properties in source order,
// and passthrough fields sorted by key for deterministic output.
func (n Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeNode(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeNode(dec *json.Decoder, path string) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return Node{}, fmt.Errorf("schema: read node at %s: %w", path, err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return Node{}, fmt.Errorf("schema: node must be an object at %s", path)
	}

	var node Node
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Node{}, fmt.Errorf("schema: read key at %s: %w", path, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return Node{}, fmt.Errorf("schema: invalid key at %s", path)
		}

		switch key {
		case "type", "title", "description", "format":
			value, err := decodeString(dec, path, key)
			if err != nil {
				return Node{}, err
			}
			switch key {
			case "type":
				node.Type = value
			case "title":
				node.Title = value
			case "description":
				node.Description = value
			case "format":
				node.Format = value
			}
		case "default":
			if node.Default, err = decodeValue(dec, joinPath(path, key)); err != nil {
				return Node{}, err
			}
		case "const":
			if node.Const, err = decodeValue(dec, joinPath(path, key)); err != nil {
				return Node{}, err
			}
		case "enum":
			value, err := decodeValue(dec, joinPath(path, key))
			if err != nil {
				return Node{}, err
			}
			list, ok := value.([]any)
			if !ok {
				return Node{}, fmt.Errorf("schema: enum must be an array at %s", path)
			}
			node.Enum = list
		case "required":
			value, err := decodeValue(dec, joinPath(path, key))
			if err != nil {
				return Node{}, err
			}
			list, ok := value.([]any)
			if !ok {
				return Node{}, fmt.Errorf("schema: required must be an array at %s", path)
			}
			required := make([]string, 0, len(list))
			for idx, item := range list {
				str, ok := item.(string)
				if !ok {
					return Node{}, fmt.Errorf("schema: required[%d] must be a string at %s", idx, path)
				}
				required = append(required, str)
			}
			node.Required = required
		case "properties":
			props, err := decodeProperties(dec, joinPath(path, key))
			if err != nil {
				return Node{}, err
			}
			node.Properties = props
		case "items":
			item, err := decodeNode(dec, joinPath(path, key))
			if err != nil {
				return Node{}, err
			}
			node.Items = &item
		default:
			value, err := decodeValue(dec, joinPath(path, key))
			if err != nil {
				return Node{}, err
			}
			if node.Extra == nil {
				node.Extra = make(map[string]any)
			}
			node.Extra[key] = value
		}
	}

	if _, err := dec.Token(); err != nil {
		return Node{}, fmt.Errorf("schema: close node at %s: %w", path, err)
	}
	return node, nil
}

func decodeProperties(dec *json.Decoder, path string) (Properties, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("schema: read properties at %s: %w", path, err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, fmt.Errorf("schema: properties must be an object at %s", path)
	}

	var props Properties
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("schema: read property name at %s: %w", path, err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("schema: invalid property name at %s", path)
		}
		child, err := decodeNode(dec, joinPath(path, name))
		if err != nil {
			return nil, err
		}
		props = append(props, Property{Name: name, Node: child})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("schema: close properties at %s: %w", path, err)
	}
	return props, nil
}

func decodeString(dec *json.Decoder, path, key string) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("schema: read %s at %s: %w", key, path, err)
	}
	value, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("schema: %s must be a string at %s", key, path)
	}
	return value, nil
}

func decodeValue(dec *json.Decoder, path string) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("schema: read value at %s: %w", path, err)
	}
	switch typed := tok.(type) {
	case json.Delim:
		switch typed {
		case '{':
			object := make(map[string]any)
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, fmt.Errorf("schema: read key at %s: %w", path, err)
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("schema: invalid key at %s", path)
				}
				value, err := decodeValue(dec, joinPath(path, key))
				if err != nil {
					return nil, err
				}
				object[key] = value
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("schema: close object at %s: %w", path, err)
			}
			return object, nil
		case '[':
			var list []any
			for dec.More() {
				value, err := decodeValue(dec, path)
				if err != nil {
					return nil, err
				}
				list = append(list, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("schema: close array at %s: %w", path, err)
			}
			if list == nil {
				list = []any{}
			}
			return list, nil
		default:
			return nil, fmt.Errorf("schema: unexpected delimiter at %s", path)
		}
	default:
		return tok, nil
	}
}

func encodeNode(buf *bytes.Buffer, n Node) error {
	buf.WriteByte('{')
	first := true
	writeKey := func(key string) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		data, _ := json.Marshal(key)
		buf.Write(data)
		buf.WriteByte(':')
	}
	writeValue := func(key string, value any) error {
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("schema: encode %s: %w", key, err)
		}
		writeKey(key)
		buf.Write(data)
		return nil
	}

	if n.Type != "" {
		if err := writeValue("type", n.Type); err != nil {
			return err
		}
	}
	if n.Title != "" {
		if err := writeValue("title", n.Title); err != nil {
			return err
		}
	}
	if n.Description != "" {
		if err := writeValue("description", n.Description); err != nil {
			return err
		}
	}
	if n.Format != "" {
		if err := writeValue("format", n.Format); err != nil {
			return err
		}
	}
	if n.Default != nil {
		if err := writeValue("default", n.Default); err != nil {
			return err
		}
	}
	if n.Const != nil {
		if err := writeValue("const", n.Const); err != nil {
			return err
		}
	}
	if len(n.Enum) > 0 {
		if err := writeValue("enum", n.Enum); err != nil {
			return err
		}
	}
	if len(n.Required) > 0 {
		if err := writeValue("required", n.Required); err != nil {
			return err
		}
	}
	if n.Properties.Len() > 0 {
		writeKey("properties")
		buf.WriteByte('{')
		for idx, prop := range n.Properties {
			if idx > 0 {
				buf.WriteByte(',')
			}
			nameData, _ := json.Marshal(prop.Name)
			buf.Write(nameData)
			buf.WriteByte(':')
			if err := encodeNode(buf, prop.Node); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	if n.Items != nil {
		writeKey("items")
		if err := encodeNode(buf, *n.Items); err != nil {
			return err
		}
	}
	if len(n.Extra) > 0 {
		keys := make([]string, 0, len(n.Extra))
		for key := range n.Extra {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := writeValue(key, n.Extra[key]); err != nil {
				return err
			}
		}
	}

	buf.WriteByte('}')
	return nil
}

func joinPath(path string, segments ...string) string {
	if path == "" {
		path = "#"
	}
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		path = path + "/" + segment
	}
	return path
}

package jsonschema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// object is an insertion-ordered JSON object. The resolver works on these
// instead of map[string]any so key order survives $ref expansion.
type object struct {
	keys   []string
	fields map[string]any
}

func newObject() *object {
	return &object{fields: make(map[string]any)}
}

func (o *object) get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	value, ok := o.fields[key]
	return value, ok
}

func (o *object) set(key string, value any) {
	if _, exists := o.fields[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = value
}

func (o *object) len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

func (o *object) stringField(key string) string {
	value, ok := o.get(key)
	if !ok {
		return ""
	}
	str, _ := value.(string)
	return str
}

// decodeDocument parses raw JSON into the ordered value model. Objects become
// *object, arrays []any, numbers json.Number.
func decodeDocument(raw []byte) (*object, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("jsonschema: raw document is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	value, err := decodeOrdered(dec)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: parse document: %w", err)
	}
	if dec.More() {
		return nil, errors.New("jsonschema: trailing data after document")
	}
	payload, ok := value.(*object)
	if !ok {
		return nil, errors.New("jsonschema: document root must be an object")
	}
	return payload, nil
}

func decodeOrdered(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch typed := tok.(type) {
	case json.Delim:
		switch typed {
		case '{':
			obj := newObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, errors.New("invalid object key")
				}
				value, err := decodeOrdered(dec)
				if err != nil {
					return nil, err
				}
				obj.set(key, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			list := []any{}
			for dec.More() {
				value, err := decodeOrdered(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return list, nil
		default:
			return nil, errors.New("unexpected delimiter")
		}
	default:
		return tok, nil
	}
}

// encodeValue writes the ordered value model back out as JSON, object keys in
// insertion order.
func encodeValue(buf *bytes.Buffer, value any) error {
	switch typed := value.(type) {
	case *object:
		buf.WriteByte('{')
		for idx, key := range typed.keys {
			if idx > 0 {
				buf.WriteByte(',')
			}
			keyData, err := json.Marshal(key)
			if err != nil {
				return err
			}
			buf.Write(keyData)
			buf.WriteByte(':')
			if err := encodeValue(buf, typed.fields[key]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for idx, entry := range typed {
			if idx > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, entry); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		data, err := json.Marshal(typed)
		if err != nil {
			return err
		}
		buf.Write(data)
		return nil
	}
}

// cloneValue deep-copies an ordered value so resolved fragments never alias
// cached documents.
func cloneValue(value any) any {
	switch typed := value.(type) {
	case *object:
		out := newObject()
		for _, key := range typed.keys {
			out.set(key, cloneValue(typed.fields[key]))
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for idx, entry := range typed {
			out[idx] = cloneValue(entry)
		}
		return out
	default:
		return typed
	}
}

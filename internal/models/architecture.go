package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is the architecture document: an open-ended JSON object whose values are
// strings, json.Number (or float64 when built in code), booleans, nil, []interface{}
// or map[string]interface{}. The engine never interprets its shape.
type Document map[string]interface{}

// Clone returns a deep copy of the document. A nil document clones to an empty one.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

// Equal reports whether both documents serialize to the same canonical JSON.
func (d Document) Equal(other Document) bool {
	a, errA := d.Canonical()
	b, errB := other.Canonical()
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

// Canonical returns the JSON encoding of the document with sorted keys.
// A nil document encodes as {}.
func (d Document) Canonical() ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]interface{}(d))
}

// TopLevelKeys lists the document's keys in no particular order.
func (d Document) TopLevelKeys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	return keys
}

// DecodeJSON unmarshals a single JSON value from raw into v, keeping numbers as
// json.Number so integers above 2^53 keep every digit.
func DecodeJSON(raw []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after top-level JSON value")
	}
	return nil
}

// NormalizeDocument converts an arbitrary decoded value into a Document.
// Values that are not JSON-native (structs, typed slices) are round-tripped through JSON.
func NormalizeDocument(v interface{}) (Document, error) {
	switch t := v.(type) {
	case nil:
		return Document{}, nil
	case Document:
		return t.Clone(), nil
	case map[string]interface{}:
		return Document(t).Clone(), nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	var doc map[string]interface{}
	if err := DecodeJSON(raw, &doc); err != nil {
		return nil, fmt.Errorf("document must be a JSON object: %w", err)
	}
	if doc == nil {
		return Document{}, nil
	}
	return Document(doc), nil
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case Document:
		return map[string]interface{}(t.Clone())
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	case string, bool, float64, float32, int, int32, int64, uint, uint32, uint64, json.Number, nil:
		return t
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return t
		}
		var decoded interface{}
		if err := DecodeJSON(raw, &decoded); err != nil {
			return t
		}
		return decoded
	}
}

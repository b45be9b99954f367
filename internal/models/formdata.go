// internal/models/formdata.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// FormData is a posted form's fields in the order the browser sent them.
type FormData struct {
	Keys   []string
	Values map[string]string
}

// Get returns the value of one field, or "".
func (f FormData) Get(key string) string {
	return f.Values[key]
}

func (f *FormData) UnmarshalJSON(b []byte) error {
	keys, values, err := decodeOrdered(b)
	if err != nil {
		return err
	}
	f.Keys, f.Values = keys, values
	return nil
}

func (f FormData) MarshalJSON() ([]byte, error) {
	return encodeOrdered(f.Values, orderedKeys(f.Keys, f.Values))
}

// orderedKeys returns the keys of values that appear in order first, then any
// remaining keys sorted. It returns nil for an empty map.
func orderedKeys(order []string, values map[string]string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, k := range order {
		if _, ok := values[k]; !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	var rest []string
	for k := range values {
		if _, ok := seen[k]; !ok {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// decodeOrdered reads a flat JSON object of strings and keeps its key order.
// A repeated key keeps its first position and its last value.
func decodeOrdered(b []byte) ([]string, map[string]string, error) {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil, nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("form data must be a JSON object")
	}

	var keys []string
	values := map[string]string{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("form data key %v is not a string", tok)
		}
		var v string
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("form field %q: %w", key, err)
		}
		if _, dup := values[key]; !dup {
			keys = append(keys, key)
		}
		values[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return keys, values, nil
}

func encodeOrdered(values map[string]string, keys []string) ([]byte, error) {
	if values == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

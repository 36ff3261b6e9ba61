package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Field is one key/value pair of an OrderedMap.
type Field[T any] struct {
	Key   string
	Value T
}

// OrderedMap is a string-keyed map that serialises as a JSON object with keys
// in insertion order.
type OrderedMap[T any] []Field[T]

// Set replaces the value for key or appends a new field.
func (m *OrderedMap[T]) Set(key string, value T) {
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = value
			return
		}
	}
	*m = append(*m, Field[T]{Key: key, Value: value})
}

func (m OrderedMap[T]) Get(key string) (T, bool) {
	for _, f := range m {
		if f.Key == key {
			return f.Value, true
		}
	}
	var zero T
	return zero, false
}

func (m OrderedMap[T]) Keys() []string {
	keys := make([]string, len(m))
	for i, f := range m {
		keys[i] = f.Key
	}
	return keys
}

func (m OrderedMap[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *OrderedMap[T]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("ordered map: expected object, got %v", tok)
	}

	out := OrderedMap[T]{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("ordered map: expected string key, got %v", keyTok)
		}
		var value T
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("ordered map %q: %w", key, err)
		}
		out.Set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

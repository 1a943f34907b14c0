package entity

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/rowkit/internal/nulls"
	"github.com/roach88/rowkit/internal/schema"
)

// MarshalJSON encodes the entity as an object keyed by camelCase field names
// in schema order. Undefined fields are omitted and Null fields are null.
func (e Entity) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for f, v := range e.All() {
		if v.IsUndefined() {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false

		key, err := json.Marshal(f.JSONName())
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := v.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.Name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Decode reads an entity from a JSON object. Absent keys stay Undefined,
// null becomes Null and anything else becomes a coerced Value. Keys may be
// camelCase or snake_case; unknown keys are rejected.
func Decode(s *schema.Schema, data []byte) (Entity, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return Entity{}, fmt.Errorf("decode %s: %w", s.Name, err)
	}

	e := New(s)
	for key, raw := range obj {
		i, ok := s.Index(key)
		if !ok {
			return Entity{}, fmt.Errorf("decode %s: %w %q", s.Name, ErrUnknownField, key)
		}
		f := s.Fields[i]

		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			e.values[i] = nulls.Nil[any]()
			continue
		}

		var v any
		if f.Type == schema.TypeJSON && !f.Encrypted {
			v = raw
		} else {
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			if err := dec.Decode(&v); err != nil {
				return Entity{}, fmt.Errorf("decode %s.%s: %w", s.Name, f.Name, err)
			}
		}

		cv, err := Coerce(f, v)
		if err != nil {
			return Entity{}, fmt.Errorf("decode %s.%s: %w", s.Name, f.Name, err)
		}
		e.values[i] = nulls.New(cv)
	}
	return e, nil
}

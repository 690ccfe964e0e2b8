// Package params shapes toolbox parameter schemas for providers that only accept
// object-typed tool inputs.
package params

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Field is the property that carries a non-object argument inside the wrapper object.
const Field = "value"

// Shape is a provider-ready parameter schema.
type Shape struct {
	// Schema is the object schema as a generic JSON map.
	Schema map[string]any
	// Wrapped reports that the original schema was moved under Field.
	Wrapped bool
}

// Of converts s into an object schema. Objects pass through; nil and null schemas
// become an empty object; anything else is wrapped under Field.
func Of(s *jsonschema.Schema) (Shape, error) {
	switch {
	case s == nil || s.Type == "null":
		return Shape{Schema: map[string]any{"type": "object", "properties": map[string]any{}}}, nil
	case s.Type == "object":
		m, err := toMap(s)
		if err != nil {
			return Shape{}, err
		}
		return Shape{Schema: m}, nil
	}
	inner, err := toMap(s)
	if err != nil {
		return Shape{}, err
	}
	return Shape{
		Schema: map[string]any{
			"type":                 "object",
			"properties":           map[string]any{Field: inner},
			"required":             []any{Field},
			"additionalProperties": false,
		},
		Wrapped: true,
	}, nil
}

func toMap(s *jsonschema.Schema) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal parameters: %w", err)
	}
	if bytes.Equal(data, []byte("true")) {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parameters are not a JSON object: %w", err)
	}
	return m, nil
}

// Unwrap extracts Field from args. Arguments of any other shape are returned unchanged
// so that the tool reports the mismatch itself.
func Unwrap(args json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return args
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return args
	}
	if v, ok := obj[Field]; ok && len(obj) == 1 {
		return v
	}
	return args
}

// Package testutil provides test helpers for toolbox (e.g. MockTool).
package testutil

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/skosovsky/toolbox"
)

// MockTool is a configurable Tool implementation for tests.
type MockTool struct {
	NameVal    string
	DescVal    string
	ParamsVal  *jsonschema.Schema
	ReturnsVal *jsonschema.Schema
	InvokeFn   func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

// Name returns the tool name.
func (m *MockTool) Name() string {
	if m.NameVal != "" {
		return m.NameVal
	}
	return "mock"
}

// Description returns the tool description.
func (m *MockTool) Description() string {
	return m.DescVal
}

// Parameters returns the parameters schema (or an empty object schema).
func (m *MockTool) Parameters() *jsonschema.Schema {
	if m.ParamsVal != nil {
		return m.ParamsVal
	}
	return &jsonschema.Schema{Type: "object"}
}

// Returns returns ReturnsVal.
func (m *MockTool) Returns() *jsonschema.Schema {
	return m.ReturnsVal
}

// Signature reports raw JSON input and output.
func (m *MockTool) Signature() toolbox.Signature {
	return toolbox.Signature{Name: m.Name(), Input: "json.RawMessage", Output: "json.RawMessage"}
}

// Invoke runs InvokeFn if set, otherwise returns null.
func (m *MockTool) Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	if m.InvokeFn != nil {
		return m.InvokeFn(ctx, args)
	}
	return json.RawMessage("null"), nil
}

// Ensure MockTool implements Tool.
var _ toolbox.Tool = (*MockTool)(nil)

package testutil

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/toolbox"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMockTool(t *testing.T) {
	m := &MockTool{
		NameVal:   "test_tool",
		DescVal:   "For tests",
		ParamsVal: &jsonschema.Schema{Type: "object"},
		InvokeFn: func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
			return json.RawMessage(`{"done":true}`), nil
		},
	}
	assert.Equal(t, "test_tool", m.Name())
	assert.Equal(t, "For tests", m.Description())
	assert.Equal(t, "object", m.Parameters().Type)
	assert.Nil(t, m.Returns())
	assert.Equal(t, "test_tool", m.Signature().Name)
	out, err := m.Invoke(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)
	var v struct {
		Done bool `json:"done"`
	}
	require.NoError(t, json.Unmarshal(out, &v))
	assert.True(t, v.Done)
}

func TestMockTool_Defaults(t *testing.T) {
	m := &MockTool{}
	assert.Equal(t, "mock", m.Name())
	assert.NotNil(t, m.Parameters())
	out, err := m.Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `null`, string(out))
}

func TestNewTestRegistry(t *testing.T) {
	m := &MockTool{NameVal: "m", InvokeFn: func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return json.RawMessage(`{}`), nil
	}}
	reg := NewTestRegistry(t, m)
	require.NotNil(t, reg)
	all := reg.Tools()
	require.Len(t, all, 1)
	assert.Equal(t, "m", all[0].Name())
	resp, err := reg.Call(context.Background(), toolbox.FunctionCall{ID: "1", Name: "m", Arguments: json.RawMessage(`{}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(resp.Result))
}

func TestMockTool_ErrorIsTyped(t *testing.T) {
	m := &MockTool{
		NameVal: "broken",
		InvokeFn: func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
			return nil, assert.AnError
		},
	}
	reg := NewTestRegistry(t, m)
	_, err := reg.Call(context.Background(), toolbox.FunctionCall{Name: "broken", Arguments: json.RawMessage(`{}`)})
	require.Error(t, err)
	te, ok := toolbox.AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, toolbox.KindRuntime, te.Kind)
	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, toolbox.IsSystemError(err))
}

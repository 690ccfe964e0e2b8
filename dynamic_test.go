package toolbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func objectSchema(required []string, props map[string]*jsonschema.Schema, order ...string) *jsonschema.Schema {
	p := jsonschema.NewProperties()
	for _, name := range order {
		p.Set(name, props[name])
	}
	return &jsonschema.Schema{Type: "object", Properties: p, Required: required}
}

func TestNewDynamicTool_Success(t *testing.T) {
	t.Parallel()
	s := objectSchema([]string{"x"}, map[string]*jsonschema.Schema{"x": {Type: "integer"}}, "x")
	tool, err := NewDynamicTool("dynamic", "A dynamic tool", s, func(_ context.Context, args json.RawMessage) (json.RawMessage, error) {
		return args, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "dynamic", tool.Name())
	assert.Equal(t, "A dynamic tool", tool.Description())
	assert.Same(t, s, tool.Parameters())
	assert.Nil(t, tool.Returns())
	assert.Equal(t, "json.RawMessage", tool.Signature().Input)

	res, err := tool.Invoke(context.Background(), raw(`{"x": 42}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"x": 42}`, string(res))
}

func TestNewDynamicTool_ValidationError(t *testing.T) {
	t.Parallel()
	s := objectSchema([]string{"unit"}, map[string]*jsonschema.Schema{
		"unit": {Type: "string", Enum: []any{"celsius", "fahrenheit"}},
	}, "unit")
	tool, err := NewDynamicTool("weather", "Weather", s, func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return raw(`{}`), nil
	})
	require.NoError(t, err)

	_, err = tool.Invoke(context.Background(), raw(`{}`))
	require.Error(t, err)
	assert.True(t, IsClientError(err))

	_, err = tool.Invoke(context.Background(), raw(`{"unit": "kelvin"}`))
	te, ok := AsToolError(err)
	require.True(t, ok)
	assert.Equal(t, KindDeserialize, te.Kind)
	assert.Equal(t, "/unit", te.Path)

	_, err = tool.Invoke(context.Background(), raw(`{"unit": `))
	assert.ErrorIs(t, err, ErrDeserialize)
}

func TestNewDynamicTool_ConstructionErrors(t *testing.T) {
	t.Parallel()
	noop := func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) { return nil, nil }

	_, err := NewDynamicTool("bad", "Bad", &jsonschema.Schema{Type: "no-such-type"}, noop)
	require.Error(t, err)

	_, err = NewDynamicTool("nil", "Nil", nil, noop)
	require.Error(t, err)

	_, err = NewDynamicTool("no_handler", "No handler", &jsonschema.Schema{Type: "object"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler must not be nil")

	// Validation off: the schema is not compiled.
	_, err = NewDynamicTool("lax", "Lax", &jsonschema.Schema{Type: "no-such-type"}, noop, WithoutValidation())
	require.NoError(t, err)
}

func TestNewDynamicTool_ErrorClassification(t *testing.T) {
	t.Parallel()
	s := objectSchema(nil, map[string]*jsonschema.Schema{"x": {Type: "integer"}}, "x")
	clientErr := &ToolError{Kind: KindDeserialize, Name: "classify", Message: "bad request"}
	tool, err := NewDynamicTool("classify", "Classify", s, func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return nil, clientErr
	})
	require.NoError(t, err)
	_, err = tool.Invoke(context.Background(), raw(`{"x": 1}`))
	assert.Same(t, clientErr, err)

	tool2, err := NewDynamicTool("sys", "Sys", s, func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return nil, errors.New("internal failure")
	})
	require.NoError(t, err)
	_, err = tool2.Invoke(context.Background(), raw(`{"x": 1}`))
	require.Error(t, err)
	assert.True(t, IsSystemError(err))

	tool3, err := NewDynamicTool("garbage", "Garbage", s, func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return raw(`{not json`), nil
	})
	require.NoError(t, err)
	_, err = tool3.Invoke(context.Background(), raw(`{"x": 1}`))
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestNewDynamicTool_StrictDoesNotMutate(t *testing.T) {
	t.Parallel()
	s := objectSchema(nil, map[string]*jsonschema.Schema{"x": {Type: "integer"}}, "x")
	tool, err := NewDynamicTool("strict", "Strict", s, func(_ context.Context, args json.RawMessage) (json.RawMessage, error) {
		return args, nil
	}, WithStrict())
	require.NoError(t, err)
	assert.Nil(t, s.AdditionalProperties)
	assert.Empty(t, s.Required)
	assert.Equal(t, []string{"x"}, tool.Parameters().Required)

	_, err = tool.Invoke(context.Background(), raw(`{"x": 1, "y": 2}`))
	assert.True(t, IsClientError(err))
}

func TestNewDynamicTool_MetadataOptions(t *testing.T) {
	t.Parallel()
	tool, err := NewDynamicTool("meta", "Meta", &jsonschema.Schema{Type: "object"},
		func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) { return raw(`{}`), nil },
		WithTimeout(2*time.Second), WithTags("net", "io"), WithVersion("1.2.0"), WithDangerous(),
	)
	require.NoError(t, err)
	meta, ok := tool.(ToolMetadata)
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, meta.Timeout())
	assert.Equal(t, []string{"net", "io"}, meta.Tags())
	assert.Equal(t, "1.2.0", meta.Version())
	assert.True(t, meta.IsDangerous())
}

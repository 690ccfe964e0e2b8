package toolboxotel

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/skosovsky/toolbox"
)

type sumArgs struct {
	A int `json:"a"`
	B int `json:"b"`
}

func newProvider(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, sr
}

func newRegistry(t *testing.T, opts ...Option) *toolbox.Registry {
	t.Helper()
	sum, err := toolbox.NewTool("sum", "Sum", func(_ context.Context, a sumArgs) (int, error) {
		if a.A < 0 {
			return 0, errors.New("negative")
		}
		return a.A + a.B, nil
	}, toolbox.WithVersion("3"), toolbox.WithDangerous())
	require.NoError(t, err)
	reg := toolbox.NewRegistry()
	require.NoError(t, reg.Register(sum))
	reg.Use(Middleware(opts...))
	return reg
}

func attrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestMiddleware_Success(t *testing.T) {
	tp, sr := newProvider(t)
	reg := newRegistry(t, WithTracerProvider(tp))

	resp, err := reg.Call(context.Background(), toolbox.FunctionCall{Name: "sum", Arguments: json.RawMessage(`{"a":1,"b":2}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `3`, string(resp.Result))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "tool sum", span.Name())
	assert.Equal(t, trace.SpanKindInternal, span.SpanKind())
	assert.Equal(t, codes.Unset, span.Status().Code)
	a := attrs(span)
	assert.Equal(t, "sum", a[AttrToolName].AsString())
	assert.Equal(t, "3", a[AttrToolVersion].AsString())
	assert.True(t, a[AttrDangerous].AsBool())
	assert.Equal(t, int64(13), a[AttrArgsBytes].AsInt64())
	assert.Equal(t, int64(1), a[AttrResultBytes].AsInt64())
	assert.NotContains(t, a, AttrArguments)
}

func TestMiddleware_Errors(t *testing.T) {
	tp, sr := newProvider(t)
	reg := newRegistry(t, WithTracerProvider(tp), WithArguments())

	_, err := reg.Call(context.Background(), toolbox.FunctionCall{Name: "sum", Arguments: json.RawMessage(`{"a":-1,"b":2}`)})
	require.ErrorIs(t, err, toolbox.ErrRuntime)
	_, err = reg.Call(context.Background(), toolbox.FunctionCall{Name: "sum", Arguments: json.RawMessage(`{"a":"x"}`)})
	require.ErrorIs(t, err, toolbox.ErrDeserialize)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	for i, kind := range []string{"runtime", "deserialize"} {
		assert.Equal(t, codes.Error, spans[i].Status().Code)
		assert.Equal(t, kind, attrs(spans[i])[AttrErrorKind].AsString())
		require.NotEmpty(t, spans[i].Events())
		assert.Equal(t, "exception", spans[i].Events()[0].Name)
	}
	assert.Equal(t, `{"a":-1,"b":2}`, attrs(spans[0])[AttrArguments].AsString())
}

func TestMiddleware_NotFoundIsNotTraced(t *testing.T) {
	tp, sr := newProvider(t)
	reg := newRegistry(t, WithTracerProvider(tp))
	_, err := reg.Call(context.Background(), toolbox.FunctionCall{Name: "nope"})
	require.ErrorIs(t, err, toolbox.ErrFunctionNotFound)
	assert.Empty(t, sr.Ended())
}

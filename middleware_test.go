package toolbox

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	inner := &minTool{name: "log_me", desc: "desc"}
	inner.invoke = func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return raw(`{"ok":true}`), nil
	}
	wrapped := WithLogging(logger)(inner)
	out, err := wrapped.Invoke(context.Background(), raw(`{}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(out))
	logStr := buf.String()
	assert.Contains(t, logStr, "tool start")
	assert.Contains(t, logStr, "tool end")
	assert.Contains(t, logStr, "log_me")
}

func TestWithLogging_ErrorLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	inner := &minTool{name: "bad_args"}
	inner.invoke = func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return nil, deserializeError("bad_args", "/x", "expected integer", nil)
	}
	_, err := WithLogging(logger)(inner).Invoke(context.Background(), raw(`{}`))
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"msg":"tool error"`)

	buf.Reset()
	inner.invoke = func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return nil, runtimeError("bad_args", assert.AnError)
	}
	_, err = WithLogging(logger)(inner).Invoke(context.Background(), raw(`{}`))
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

func TestWithLogging_NilLogger(t *testing.T) {
	wrapped := WithLogging(nil)(&minTool{name: "quiet"})
	_, err := wrapped.Invoke(context.Background(), raw(`null`))
	require.NoError(t, err)
}

func TestWithRecovery(t *testing.T) {
	inner := &minTool{name: "panic_me", desc: "desc"}
	inner.invoke = func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		panic("test panic")
	}
	wrapped := WithRecovery()(inner)
	res, err := wrapped.Invoke(context.Background(), raw(`{}`))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrRuntime)
	var pe *panicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "test panic", pe.p)
}

func TestWithTimeoutMiddleware(t *testing.T) {
	inner := &minTool{name: "slow", desc: "desc"}
	inner.invoke = func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	wrapped := WithTimeoutMiddleware(5 * time.Millisecond)(inner)
	res, err := wrapped.Invoke(context.Background(), raw(`{}`))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 5*time.Millisecond, wrapped.(ToolMetadata).Timeout())
}

func TestMiddleware_DelegatesMetadata(t *testing.T) {
	tool, err := NewTool("meta", "Meta tool", func(_ context.Context, a doubleArgs) (int, error) {
		return a.X, nil
	}, WithTags("a"), WithVersion("2"), WithDangerous(), WithTimeout(time.Second))
	require.NoError(t, err)
	wrapped := WithRecovery()(WithLogging(slog.Default())(tool))
	assert.Equal(t, "meta", wrapped.Name())
	assert.Equal(t, "Meta tool", wrapped.Description())
	assert.Same(t, tool.Parameters(), wrapped.Parameters())
	assert.Same(t, tool.Returns(), wrapped.Returns())
	assert.Equal(t, tool.Signature(), wrapped.Signature())
	meta := wrapped.(ToolMetadata)
	assert.Equal(t, []string{"a"}, meta.Tags())
	assert.Equal(t, "2", meta.Version())
	assert.True(t, meta.IsDangerous())
	assert.Equal(t, time.Second, meta.Timeout())

	bare := WithRecovery()(&minTool{name: "bare"}).(ToolMetadata)
	assert.Zero(t, bare.Timeout())
	assert.Nil(t, bare.Tags())
	assert.Empty(t, bare.Version())
	assert.False(t, bare.IsDangerous())
}

func TestRegistry_Use(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(doubleTool(t, "wrap_me")))
	reg.Use(WithRecovery(), WithLogging(slog.Default()))
	args, _ := json.Marshal(doubleArgs{X: 2})
	resp, err := reg.Call(context.Background(), FunctionCall{ID: "1", Name: "wrap_me", Arguments: args})
	require.NoError(t, err)
	out, err := Decode[doubleResult](resp)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Y)
}

// TestRegistry_Use_NoDoubleWrap verifies that calling Use() twice rewraps from raw tools,
// so middlewares are not applied twice.
func TestRegistry_Use_NoDoubleWrap(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	reg := NewRegistry()
	require.NoError(t, reg.Register(doubleTool(t, "double")))
	reg.Use(WithLogging(logger))
	reg.Use(WithLogging(logger))
	// Tools registered after Use get the chain too.
	require.NoError(t, reg.Register(doubleTool(t, "later")))

	_, err := reg.Call(context.Background(), FunctionCall{ID: "1", Name: "double", Arguments: raw(`{"x":3}`)})
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(buf.String(), "tool start"))

	_, err = reg.Call(context.Background(), FunctionCall{ID: "2", Name: "later", Arguments: raw(`{"x":3}`)})
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(buf.String(), "tool start"))
}

func TestIntercept(t *testing.T) {
	var seen []string
	tool, err := NewTool("meta", "Meta tool", func(_ context.Context, a doubleArgs) (int, error) {
		seen = append(seen, "tool")
		return a.X, nil
	}, WithTimeout(time.Second), WithTags("x"))
	require.NoError(t, err)
	wrapped := Intercept(func(ctx context.Context, next Tool, args json.RawMessage) (json.RawMessage, error) {
		seen = append(seen, "before:"+next.Name())
		out, err := next.Invoke(ctx, args)
		seen = append(seen, "after")
		return out, err
	})(tool)

	out, err := wrapped.Invoke(context.Background(), raw(`{"x": 5}`))
	require.NoError(t, err)
	assert.JSONEq(t, `5`, string(out))
	assert.Equal(t, []string{"before:meta", "tool", "after"}, seen)
	assert.Equal(t, "meta", wrapped.Name())
	assert.Same(t, tool.Parameters(), wrapped.Parameters())
	assert.Equal(t, time.Second, wrapped.(ToolMetadata).Timeout())
	assert.Equal(t, []string{"x"}, wrapped.(ToolMetadata).Tags())
}

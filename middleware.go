package toolbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/invopop/jsonschema"
)

// Middleware wraps a Tool with cross-cutting behavior (logging, recovery, timeout).
type Middleware func(Tool) Tool

// WithLogging returns a middleware that logs start, end, duration, and errors.
// Failures the caller can correct are logged at warn level, others at error level.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Tool) Tool {
		return &loggingTool{toolBase: toolBase{next: next}, logger: logger}
	}
}

// WithRecovery returns a middleware that turns panics into KindRuntime errors.
func WithRecovery() Middleware {
	return func(next Tool) Tool {
		return &recoveryTool{toolBase{next: next}}
	}
}

// WithTimeoutMiddleware returns a middleware that enforces a per-tool timeout (overrides registry default for this tool).
// Named with "Middleware" suffix to avoid collision with ToolOption WithTimeout. When both registry default timeout
// and this middleware apply, the effective timeout is the minimum of the two (inner context cancels first).
func WithTimeoutMiddleware(d time.Duration) Middleware {
	return func(next Tool) Tool {
		return &timeoutTool{toolBase: toolBase{next: next}, timeout: d}
	}
}

// Interceptor runs around next.Invoke. It must call next.Invoke to run the tool.
type Interceptor func(ctx context.Context, next Tool, args json.RawMessage) (json.RawMessage, error)

// Intercept returns a middleware built from fn. The wrapped tool keeps the name, schemas
// and metadata of the tool it wraps; only Invoke goes through fn.
func Intercept(fn Interceptor) Middleware {
	return func(next Tool) Tool {
		return &interceptTool{toolBase: toolBase{next: next}, fn: fn}
	}
}

// toolBase delegates Tool and ToolMetadata to the wrapped Tool; used by middleware wrappers.
type toolBase struct{ next Tool }

func (b *toolBase) Name() string                   { return b.next.Name() }
func (b *toolBase) Description() string            { return b.next.Description() }
func (b *toolBase) Parameters() *jsonschema.Schema { return b.next.Parameters() }
func (b *toolBase) Returns() *jsonschema.Schema    { return b.next.Returns() }
func (b *toolBase) Signature() Signature           { return b.next.Signature() }

func (b *toolBase) Timeout() time.Duration {
	if tm, ok := b.next.(ToolMetadata); ok {
		return tm.Timeout()
	}
	return 0
}
func (b *toolBase) Tags() []string {
	if tm, ok := b.next.(ToolMetadata); ok {
		return tm.Tags()
	}
	return nil
}
func (b *toolBase) Version() string {
	if tm, ok := b.next.(ToolMetadata); ok {
		return tm.Version()
	}
	return ""
}
func (b *toolBase) IsDangerous() bool {
	if tm, ok := b.next.(ToolMetadata); ok {
		return tm.IsDangerous()
	}
	return false
}

type loggingTool struct {
	toolBase
	logger *slog.Logger
}

func (m *loggingTool) Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	name := m.next.Name()
	m.logger.InfoContext(ctx, "tool start", "tool", name)
	start := time.Now()
	res, err := m.next.Invoke(ctx, args)
	dur := time.Since(start)
	if err != nil {
		level := slog.LevelError
		if IsClientError(err) {
			level = slog.LevelWarn
		}
		m.logger.Log(ctx, level, "tool error", "tool", name, "duration", dur, "error", err)
		return nil, err
	}
	m.logger.InfoContext(ctx, "tool end", "tool", name, "duration", dur, "bytes", len(res))
	return res, nil
}

type interceptTool struct {
	toolBase
	fn Interceptor
}

func (i *interceptTool) Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	return i.fn(ctx, i.next, args)
}

type recoveryTool struct{ toolBase }

func (r *recoveryTool) Invoke(ctx context.Context, args json.RawMessage) (res json.RawMessage, err error) {
	defer func() {
		if p := recover(); p != nil {
			pe := &panicError{p: p}
			res = nil
			err = &ToolError{Kind: KindRuntime, Name: r.next.Name(), Message: pe.Error(), Err: pe}
		}
	}()
	return r.next.Invoke(ctx, args)
}

type timeoutTool struct {
	toolBase
	timeout time.Duration
}

func (t *timeoutTool) Timeout() time.Duration {
	if t.timeout > 0 {
		return t.timeout
	}
	return t.toolBase.Timeout()
}

func (t *timeoutTool) Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	if t.timeout <= 0 {
		return t.next.Invoke(ctx, args)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Invoke(ctx, args)
}

// Use stores the given middlewares and reapplies them from scratch to all registered tools (onion order:
// first middleware is outermost). Tools registered after Use will also get these middlewares applied.
// Calling Use multiple times replaces the middleware chain and rewraps from raw tools, avoiding double-wrapping.
func (r *Registry) Use(middlewares ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = middlewares
	for name, raw := range r.rawTools {
		r.tools[name] = r.wrap(raw)
	}
}

var (
	_ Tool         = (*loggingTool)(nil)
	_ ToolMetadata = (*recoveryTool)(nil)
	_ ToolMetadata = (*interceptTool)(nil)
)

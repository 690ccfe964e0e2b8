package toolbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
	jsv "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/skosovsky/toolbox/schema"
)

// tool is the internal implementation of Tool built by NewTool or NewDynamicTool.
type tool struct {
	name        string
	description string
	params      func() *jsonschema.Schema
	returns     func() *jsonschema.Schema
	signature   Signature
	invoke      func(context.Context, json.RawMessage) (json.RawMessage, error)
	opts        toolOptions
}

// NewTool builds a Tool from a typed function. Argument decoding and validation are
// delegated to Extractor[I]; the result is encoded with encoding/json. Schemas are derived
// lazily on first use and cached.
//
// Handler errors become KindRuntime errors wrapping the original; a handler may return a
// *ToolError to choose the kind itself. Returns an error if name is empty or fn is nil.
func NewTool[I, O any](
	name, description string,
	fn func(ctx context.Context, args I) (O, error),
	opts ...ToolOption,
) (Tool, error) {
	if name == "" {
		return nil, errors.New("tool name must not be empty")
	}
	if fn == nil {
		return nil, fmt.Errorf("tool %q: handler must not be nil", name)
	}
	o := newToolOptions(opts)
	ext := newExtractor[I](name, o)
	outType := reflect.TypeFor[O]()
	invoke := func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
		args, err := ext.Decode(raw)
		if err != nil {
			return nil, err
		}
		res, err := fn(ctx, args)
		if err != nil {
			return nil, runtimeError(name, err)
		}
		b, err := json.Marshal(res)
		if err != nil {
			return nil, serializationError(name, err)
		}
		return b, nil
	}
	return &tool{
		name:        name,
		description: description,
		params:      ext.Schema,
		returns:     sync.OnceValue(func() *jsonschema.Schema { return o.engine.Of(outType) }),
		signature:   Signature{Name: name, Input: typeName(reflect.TypeFor[I]()), Output: typeName(outType)},
		invoke:      invoke,
		opts:        o,
	}, nil
}

// Register builds a tool from fn with NewTool and adds it to r.
func Register[I, O any](
	r *Registry,
	name, description string,
	fn func(ctx context.Context, args I) (O, error),
	opts ...ToolOption,
) error {
	t, err := NewTool(name, description, fn, opts...)
	if err != nil {
		return err
	}
	return r.Register(t)
}

// NewDynamicTool creates a Tool from a hand-written parameters schema and a raw handler.
// Useful for descriptors built at runtime (e.g. from OpenAPI documents). Arguments are
// validated against params before fn runs; fn must return valid JSON.
// params is not mutated; WithStrict works on a copy. The schema is compiled eagerly, so
// an invalid schema is reported here rather than on the first call.
func NewDynamicTool(
	name, description string,
	params *jsonschema.Schema,
	fn func(ctx context.Context, args json.RawMessage) (json.RawMessage, error),
	opts ...ToolOption,
) (Tool, error) {
	if name == "" {
		return nil, errors.New("tool name must not be empty")
	}
	if params == nil {
		return nil, fmt.Errorf("tool %q: dynamic schema must not be nil", name)
	}
	if fn == nil {
		return nil, fmt.Errorf("tool %q: handler must not be nil", name)
	}
	o := newToolOptions(opts)
	if o.strict {
		params = schema.Strict(params)
	}
	var compiled *jsv.Schema
	if !o.noValidate {
		var err error
		if compiled, err = compileSchema(name, params); err != nil {
			return nil, fmt.Errorf("tool %q: %w", name, err)
		}
	}
	invoke := func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
		if len(bytes.TrimSpace(raw)) == 0 {
			raw = json.RawMessage("null")
		}
		inst, err := parseInstance(raw)
		if err != nil {
			return nil, deserializeError(name, "", err.Error(), err)
		}
		if compiled != nil {
			if err := compiled.Validate(inst); err != nil {
				path, msg := validationFailure(err)
				return nil, deserializeError(name, path, msg, err)
			}
		}
		res, err := fn(ctx, raw)
		if err != nil {
			return nil, runtimeError(name, err)
		}
		if !json.Valid(res) {
			return nil, serializationError(name, errors.New("handler returned invalid JSON"))
		}
		return res, nil
	}
	rawType := typeName(reflect.TypeFor[json.RawMessage]())
	return &tool{
		name:        name,
		description: description,
		params:      func() *jsonschema.Schema { return params },
		returns:     func() *jsonschema.Schema { return nil },
		signature:   Signature{Name: name, Input: rawType, Output: rawType},
		invoke:      invoke,
		opts:        o,
	}, nil
}

func (t *tool) Name() string                   { return t.name }
func (t *tool) Description() string            { return t.description }
func (t *tool) Parameters() *jsonschema.Schema { return t.params() }
func (t *tool) Returns() *jsonschema.Schema    { return t.returns() }
func (t *tool) Signature() Signature           { return t.signature }

func (t *tool) Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	return t.invoke(ctx, args)
}

func (t *tool) Timeout() time.Duration { return t.opts.timeout }
func (t *tool) Tags() []string         { return append([]string(nil), t.opts.tags...) }
func (t *tool) Version() string        { return t.opts.version }
func (t *tool) IsDangerous() bool      { return t.opts.dangerous }

func typeName(t reflect.Type) string {
	if t == nil {
		return "any"
	}
	return t.String()
}

var (
	_ Tool         = (*tool)(nil)
	_ ToolMetadata = (*tool)(nil)
)

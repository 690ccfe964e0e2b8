package toolbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"
	jsv "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/skosovsky/toolbox/schema"
)

// Extractor provides schema derivation and validated decoding of arguments of type T
// without binding to the Tool interface. NewTool uses it; custom orchestrators can use it
// directly when they need the schema and the decoding rules but not the dispatch pipeline.
type Extractor[T any] struct {
	name     string
	params   func() *jsonschema.Schema
	compiled func() (*jsv.Schema, error)
	validate bool
	arity    int
	unit     bool
}

// NewExtractor creates an Extractor for T. Only WithStrict, WithoutValidation and
// WithEngine are relevant; other options are ignored. The schema and the compiled
// validator are built on first use.
func NewExtractor[T any](name string, opts ...ToolOption) *Extractor[T] {
	return newExtractor[T](name, newToolOptions(opts))
}

func newExtractor[T any](name string, o toolOptions) *Extractor[T] {
	typ := reflect.TypeFor[T]()
	e := &Extractor[T]{
		name:     name,
		validate: !o.noValidate && o.engine.Enabled(),
		unit:     typ == reflect.TypeFor[schema.Void](),
	}
	if n, ok := schema.Arity(typ); ok {
		e.arity = n
	}
	e.params = sync.OnceValue(func() *jsonschema.Schema {
		s := o.engine.Of(typ)
		if o.strict {
			return schema.Strict(s)
		}
		return s
	})
	e.compiled = sync.OnceValues(func() (*jsv.Schema, error) {
		return compileSchema(name, e.params())
	})
	return e
}

// Schema returns the JSON Schema of T (strict-transformed when WithStrict was given).
// The node is shared; callers must not mutate it.
func (e *Extractor[T]) Schema() *jsonschema.Schema {
	return e.params()
}

// Decode parses raw into T. Steps: JSON syntax, tuple arity, schema validation,
// decoding into T, then Validatable. Every failure is a *ToolError of kind
// KindDeserialize or KindArityMismatch, so the caller can pass it back for self-correction.
// Empty input is treated as null.
func (e *Extractor[T]) Decode(raw json.RawMessage) (T, error) {
	var zero T
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = json.RawMessage("null")
	}
	inst, err := parseInstance(raw)
	if err != nil {
		return zero, deserializeError(e.name, "", err.Error(), err)
	}
	if e.unit && isEmptyObject(inst) {
		// Providers send {} for tools without parameters.
		inst, raw = nil, json.RawMessage("null")
	}
	if arr, ok := inst.([]any); ok && e.arity > 0 && len(arr) != e.arity {
		return zero, arityError(e.name, e.arity, len(arr), nil)
	}
	if e.validate {
		compiled, err := e.compiled()
		if err != nil {
			return zero, &ToolError{Kind: KindRuntime, Name: e.name, Message: err.Error(), Err: err}
		}
		if err := compiled.Validate(inst); err != nil {
			path, msg := validationFailure(err)
			return zero, deserializeError(e.name, path, msg, err)
		}
	}
	var args T
	if err := json.Unmarshal(raw, &args); err != nil {
		return zero, e.decodeError(err)
	}
	if err := validateCustom(&args); err != nil {
		if _, ok := AsToolError(err); ok {
			return zero, err
		}
		return zero, deserializeError(e.name, "", err.Error(), err)
	}
	return args, nil
}

func (e *Extractor[T]) decodeError(err error) *ToolError {
	var arity *schema.ArityError
	if errors.As(err, &arity) {
		return arityError(e.name, arity.Expected, arity.Found, err)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		msg := fmt.Sprintf("expected %s, found %s", typeErr.Type, typeErr.Value)
		return deserializeError(e.name, fieldPointer(typeErr.Field), msg, err)
	}
	return deserializeError(e.name, "", err.Error(), err)
}

func isEmptyObject(v any) bool {
	m, ok := v.(map[string]any)
	return ok && len(m) == 0
}

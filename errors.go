package toolbox

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind classifies a ToolError.
type Kind int

const (
	// KindFunctionNotFound: no tool is registered under the requested name.
	KindFunctionNotFound Kind = iota + 1
	// KindAlreadyRegistered: a tool with the same name already exists.
	KindAlreadyRegistered
	// KindDeserialize: the arguments are not valid JSON or do not match the input shape.
	KindDeserialize
	// KindSerialization: the tool result could not be encoded, or call arguments could not be marshaled.
	KindSerialization
	// KindRuntime: the tool body failed or panicked.
	KindRuntime
	// KindArityMismatch: a positional (tuple) input received the wrong number of elements.
	KindArityMismatch
)

func (k Kind) String() string {
	switch k {
	case KindFunctionNotFound:
		return "function_not_found"
	case KindAlreadyRegistered:
		return "already_registered"
	case KindDeserialize:
		return "deserialize"
	case KindSerialization:
		return "serialization"
	case KindRuntime:
		return "runtime"
	case KindArityMismatch:
		return "arity_mismatch"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinel errors. Every *ToolError matches the sentinel of its Kind via errors.Is.
// ErrShutdown and ErrTimeout reach callers wrapped in a KindRuntime error.
var (
	ErrFunctionNotFound  = errors.New("function not found")
	ErrAlreadyRegistered = errors.New("function already registered")
	ErrDeserialize       = errors.New("failed to deserialize arguments")
	ErrSerialization     = errors.New("failed to serialize value")
	ErrRuntime           = errors.New("tool execution failed")
	ErrArityMismatch     = errors.New("arity mismatch")
	ErrShutdown          = errors.New("registry is shutting down")
	ErrTimeout           = errors.New("tool execution timeout")
)

var kindSentinels = map[Kind]error{
	KindFunctionNotFound:  ErrFunctionNotFound,
	KindAlreadyRegistered: ErrAlreadyRegistered,
	KindDeserialize:       ErrDeserialize,
	KindSerialization:     ErrSerialization,
	KindRuntime:           ErrRuntime,
	KindArityMismatch:     ErrArityMismatch,
}

// ToolError is the single error type returned by registration and dispatch.
// Message is safe to show to the model; Err keeps the underlying cause for errors.Is/As.
type ToolError struct {
	Kind Kind
	// Name is the tool the error refers to.
	Name string
	// Path is a JSON pointer to the offending argument (KindDeserialize only, may be empty).
	Path string
	// Expected and Found are element counts (KindArityMismatch only).
	Expected int
	Found    int
	Message  string
	Err      error
}

func (e *ToolError) Error() string {
	switch e.Kind {
	case KindFunctionNotFound:
		return fmt.Sprintf("function %q not found", e.Name)
	case KindAlreadyRegistered:
		return fmt.Sprintf("function %q already registered", e.Name)
	case KindArityMismatch:
		return fmt.Sprintf("%s: arity mismatch: expected %d arguments, found %d", e.Name, e.Expected, e.Found)
	case KindDeserialize:
		if e.Path != "" {
			return fmt.Sprintf("%s: invalid arguments at %s: %s", e.Name, e.Path, e.Message)
		}
		return fmt.Sprintf("%s: invalid arguments: %s", e.Name, e.Message)
	case KindSerialization:
		return fmt.Sprintf("%s: serialization failed: %s", e.Name, e.Message)
	default:
		if e.Name == "" {
			return e.Message
		}
		return fmt.Sprintf("%s: %s", e.Name, e.Message)
	}
}

func (e *ToolError) Unwrap() error { return e.Err }

// Is matches the sentinel for e.Kind.
func (e *ToolError) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// MarshalJSON renders the error as a structured object suitable for returning to the model.
func (e *ToolError) MarshalJSON() ([]byte, error) {
	type wire struct {
		Kind     string `json:"kind"`
		Name     string `json:"name,omitempty"`
		Message  string `json:"message"`
		Path     string `json:"path,omitempty"`
		Expected *int   `json:"expected,omitempty"`
		Found    *int   `json:"found,omitempty"`
	}
	w := wire{Kind: e.Kind.String(), Name: e.Name, Message: e.Message, Path: e.Path}
	if e.Kind == KindArityMismatch {
		w.Expected = &e.Expected
		w.Found = &e.Found
	}
	return json.Marshal(w)
}

// AsToolError returns the *ToolError in err's chain, if any.
func AsToolError(err error) (*ToolError, bool) {
	var te *ToolError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsClientError reports whether err is a failure the caller can correct by changing the
// call: unknown name, malformed arguments, or wrong arity.
func IsClientError(err error) bool {
	te, ok := AsToolError(err)
	if !ok {
		return false
	}
	switch te.Kind {
	case KindFunctionNotFound, KindDeserialize, KindArityMismatch:
		return true
	default:
		return false
	}
}

// IsSystemError reports whether err is an internal failure (tool body, panic, encoding).
// The model should not see the underlying error text.
func IsSystemError(err error) bool {
	te, ok := AsToolError(err)
	if !ok {
		return false
	}
	return te.Kind == KindRuntime || te.Kind == KindSerialization
}

func notFound(name string) *ToolError {
	return &ToolError{Kind: KindFunctionNotFound, Name: name, Message: "function not found"}
}

func alreadyRegistered(name string) *ToolError {
	return &ToolError{Kind: KindAlreadyRegistered, Name: name, Message: "function already registered"}
}

func deserializeError(name, path, msg string, err error) *ToolError {
	return &ToolError{Kind: KindDeserialize, Name: name, Path: path, Message: msg, Err: err}
}

func arityError(name string, expected, found int, err error) *ToolError {
	return &ToolError{
		Kind:     KindArityMismatch,
		Name:     name,
		Expected: expected,
		Found:    found,
		Message:  fmt.Sprintf("expected %d arguments, found %d", expected, found),
		Err:      err,
	}
}

func serializationError(name string, err error) *ToolError {
	return &ToolError{Kind: KindSerialization, Name: name, Message: err.Error(), Err: err}
}

// runtimeError wraps a tool-body failure. An existing *ToolError passes through unchanged.
func runtimeError(name string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsToolError(err); ok {
		return err
	}
	return &ToolError{Kind: KindRuntime, Name: name, Message: err.Error(), Err: err}
}

// invalidTool reports a tool that cannot be registered.
func invalidTool(name, msg string) *ToolError {
	return &ToolError{Kind: KindRuntime, Name: name, Message: msg}
}

// panicError wraps a recovered panic value; used by Registry and WithRecovery middleware.
type panicError struct{ p any }

func (e *panicError) Error() string {
	return "panic: " + fmt.Sprint(e.p)
}

package toolbox

import (
	"context"
	"time"

	"github.com/skosovsky/toolbox/schema"
)

// toolOptions hold optional tool settings (timeout, strict, tags, etc.).
type toolOptions struct {
	strict     bool
	noValidate bool
	engine     *schema.Engine
	timeout    time.Duration
	tags       []string
	version    string
	dangerous  bool
}

func newToolOptions(opts []ToolOption) toolOptions {
	o := toolOptions{engine: schema.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ToolOption configures a tool (e.g. WithStrict, WithTimeout).
type ToolOption func(*toolOptions)

// WithStrict sets strict mode for the parameters schema: additionalProperties: false for all
// objects, and all properties become required. Use for OpenAI Structured Outputs compatibility.
func WithStrict() ToolOption {
	return func(o *toolOptions) {
		o.strict = true
	}
}

// WithoutValidation skips schema validation of arguments. Decoding still rejects
// malformed JSON and type mismatches.
func WithoutValidation() ToolOption {
	return func(o *toolOptions) {
		o.noValidate = true
	}
}

// WithEngine derives the tool's schemas with e instead of the default engine.
// A disabled engine yields nil schemas and turns validation off.
func WithEngine(e *schema.Engine) ToolOption {
	return func(o *toolOptions) {
		if e != nil {
			o.engine = e
		}
	}
}

// WithTimeout sets a per-tool timeout; it overrides the registry default.
func WithTimeout(d time.Duration) ToolOption {
	return func(o *toolOptions) {
		o.timeout = d
	}
}

// WithTags sets tool tags (metadata for discovery/orchestrator).
func WithTags(tags ...string) ToolOption {
	return func(o *toolOptions) {
		o.tags = tags
	}
}

// WithVersion sets the tool version.
func WithVersion(version string) ToolOption {
	return func(o *toolOptions) {
		o.version = version
	}
}

// WithDangerous marks the tool as dangerous (orchestrator may require confirmation).
func WithDangerous() ToolOption {
	return func(o *toolOptions) {
		o.dangerous = true
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	timeout        time.Duration
	maxConcurrency int
	recoverPanics  bool
	generateIDs    bool
	onBefore       func(context.Context, FunctionCall)
	onAfter        func(context.Context, Outcome)
}

func defaultRegistryOptions() registryOptions {
	return registryOptions{recoverPanics: true}
}

// WithDefaultTimeout sets the execution timeout for tools without their own.
// Zero (the default) means no timeout.
func WithDefaultTimeout(d time.Duration) RegistryOption {
	return func(o *registryOptions) {
		o.timeout = d
	}
}

// WithMaxConcurrency limits concurrent tool executions (semaphore).
// Pass 0 or negative to disable the semaphore (unlimited concurrency, the default).
func WithMaxConcurrency(n int) RegistryOption {
	return func(o *registryOptions) {
		o.maxConcurrency = n
	}
}

// WithRecoverPanics controls panic isolation in Call. Enabled by default: a panicking
// tool yields a KindRuntime error. When disabled, the panic propagates to the caller.
func WithRecoverPanics(enable bool) RegistryOption {
	return func(o *registryOptions) {
		o.recoverPanics = enable
	}
}

// WithGeneratedCallIDs assigns a fresh CallID to calls that arrive without one.
func WithGeneratedCallIDs() RegistryOption {
	return func(o *registryOptions) {
		o.generateIDs = true
	}
}

// WithOnBeforeCall sets a hook called before each tool execution.
func WithOnBeforeCall(fn func(context.Context, FunctionCall)) RegistryOption {
	return func(o *registryOptions) {
		o.onBefore = fn
	}
}

// WithOnAfterCall sets a hook called after each tool execution, including failed ones.
func WithOnAfterCall(fn func(context.Context, Outcome)) RegistryOption {
	return func(o *registryOptions) {
		o.onAfter = fn
	}
}

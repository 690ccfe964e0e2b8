package toolbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/invopop/jsonschema"
)

// Tool is the contract for an LLM-callable function: a name, a doc string, the schemas
// of its input and output, and a JSON-in/JSON-out entry point.
// It is provider-agnostic (no knowledge of OpenAI, Anthropic, etc.).
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema of the arguments. It is computed once and shared;
	// callers must not mutate it. Nil when schemas are disabled.
	Parameters() *jsonschema.Schema
	// Returns returns the JSON Schema of the result, or nil if unknown.
	Returns() *jsonschema.Schema
	Signature() Signature
	// Invoke decodes args, runs the tool and returns the encoded result.
	// Failures are reported as *ToolError.
	Invoke(ctx context.Context, args json.RawMessage) (json.RawMessage, error)
}

// ToolMetadata is implemented by tools created with NewTool and NewDynamicTool.
// Registry uses Timeout() to override the default execution timeout when set. Other methods
// expose tags, version, and dangerous flag for orchestration or discovery.
type ToolMetadata interface {
	Timeout() time.Duration
	Tags() []string
	Version() string
	IsDangerous() bool
}

// Signature names the Go input and output types of a tool.
type Signature struct {
	Name   string `json:"name"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Description pairs a tool name with its doc string.
type Description struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

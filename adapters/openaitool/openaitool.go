// Package openaitool converts between toolbox declarations and calls and the
// OpenAI chat completions tool types. It performs no network I/O.
package openaitool

import (
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/skosovsky/toolbox"
	"github.com/skosovsky/toolbox/adapters/internal/params"
)

// Toolset is the OpenAI view of a set of declarations. Tools whose parameters are not
// a JSON object are exposed with the argument under a single "value" property and
// unwrapped again by Calls.
type Toolset struct {
	tools   []openai.ChatCompletionToolParam
	wrapped map[string]bool
}

// Option configures a Toolset.
type Option func(*options)

type options struct {
	strict bool
}

// WithStrict marks every function definition as strict. Declarations should come from
// tools built with toolbox.WithStrict.
func WithStrict() Option {
	return func(o *options) { o.strict = true }
}

// New converts decls into OpenAI tool parameters.
func New(decls []toolbox.Declaration, opts ...Option) (*Toolset, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	ts := &Toolset{
		tools:   make([]openai.ChatCompletionToolParam, 0, len(decls)),
		wrapped: make(map[string]bool),
	}
	for _, d := range decls {
		shape, err := params.Of(d.Parameters)
		if err != nil {
			return nil, fmt.Errorf("tool %q: %w", d.Name, err)
		}
		if shape.Wrapped {
			ts.wrapped[d.Name] = true
		}
		fn := openai.FunctionDefinitionParam{
			Name:       d.Name,
			Parameters: openai.FunctionParameters(shape.Schema),
		}
		if d.Description != "" {
			fn.Description = openai.String(d.Description)
		}
		if o.strict {
			fn.Strict = openai.Bool(true)
		}
		ts.tools = append(ts.tools, openai.ChatCompletionToolParam{Function: fn})
	}
	return ts, nil
}

// FromRegistry is New over the registry's current declarations.
func FromRegistry(r *toolbox.Registry, opts ...Option) (*Toolset, error) {
	return New(r.Declarations(), opts...)
}

// Tools returns the request parameters, in declaration order.
func (ts *Toolset) Tools() []openai.ChatCompletionToolParam {
	return ts.tools
}

// Calls extracts the tool calls of an assistant message.
func (ts *Toolset) Calls(msg openai.ChatCompletionMessage) []toolbox.FunctionCall {
	calls := make([]toolbox.FunctionCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if ts.wrapped[tc.Function.Name] {
			args = params.Unwrap(args)
		}
		calls = append(calls, toolbox.FunctionCall{
			ID:        toolbox.CallID(tc.ID),
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return calls
}

// Messages turns replies into tool messages, one per reply, in order.
func Messages(replies []toolbox.Reply) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(replies))
	for _, r := range replies {
		msgs = append(msgs, openai.ToolMessage(r.Content(), string(r.ID)))
	}
	return msgs
}

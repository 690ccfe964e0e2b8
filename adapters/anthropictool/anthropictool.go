// Package anthropictool converts between toolbox declarations and calls and the
// Anthropic messages tool types. It performs no network I/O.
package anthropictool

import (
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/skosovsky/toolbox"
	"github.com/skosovsky/toolbox/adapters/internal/params"
)

// Toolset is the Anthropic view of a set of declarations. Non-object parameters are
// exposed under a single "value" property and unwrapped again by Calls.
type Toolset struct {
	tools   []anthropic.ToolUnionParam
	wrapped map[string]bool
}

// New converts decls into Anthropic tool parameters.
func New(decls []toolbox.Declaration) (*Toolset, error) {
	ts := &Toolset{
		tools:   make([]anthropic.ToolUnionParam, 0, len(decls)),
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
		data, err := json.Marshal(shape.Schema)
		if err != nil {
			return nil, fmt.Errorf("tool %q: marshal input schema: %w", d.Name, err)
		}
		var input anthropic.ToolInputSchemaParam
		if err := json.Unmarshal(data, &input); err != nil {
			return nil, fmt.Errorf("tool %q: input schema: %w", d.Name, err)
		}
		tool := &anthropic.ToolParam{Name: d.Name, InputSchema: input}
		if d.Description != "" {
			tool.Description = anthropic.String(d.Description)
		}
		ts.tools = append(ts.tools, anthropic.ToolUnionParam{OfTool: tool})
	}
	return ts, nil
}

// FromRegistry is New over the registry's current declarations.
func FromRegistry(r *toolbox.Registry) (*Toolset, error) {
	return New(r.Declarations())
}

// Tools returns the request parameters, in declaration order.
func (ts *Toolset) Tools() []anthropic.ToolUnionParam {
	return ts.tools
}

// Calls extracts the tool_use blocks of an assistant message. Other blocks are skipped.
func (ts *Toolset) Calls(msg *anthropic.Message) ([]toolbox.FunctionCall, error) {
	var calls []toolbox.FunctionCall
	for _, block := range msg.Content {
		b, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok {
			continue
		}
		args, err := json.Marshal(b.Input)
		if err != nil {
			return nil, fmt.Errorf("tool_use %s: %w", b.ID, err)
		}
		if ts.wrapped[b.Name] {
			args = params.Unwrap(args)
		}
		calls = append(calls, toolbox.FunctionCall{
			ID:        toolbox.CallID(b.ID),
			Name:      b.Name,
			Arguments: args,
		})
	}
	return calls, nil
}

// Results packs replies into one user message of tool_result blocks.
func Results(replies []toolbox.Reply) anthropic.MessageParam {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(replies))
	for _, r := range replies {
		blocks = append(blocks, anthropic.NewToolResultBlock(string(r.ID), r.Content(), r.IsError()))
	}
	return anthropic.NewUserMessage(blocks...)
}

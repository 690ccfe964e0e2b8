package toolbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// CallID correlates a FunctionCall with its FunctionResponse. It is opaque to the registry.
type CallID string

// NewCallID returns a random (version 4) UUID.
func NewCallID() CallID {
	return CallID(uuid.NewString())
}

// FunctionCall is a single invocation request, as produced by the model.
type FunctionCall struct {
	ID        CallID          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// NewFunctionCall builds a call with a fresh ID.
func NewFunctionCall(name string, arguments json.RawMessage) FunctionCall {
	return FunctionCall{ID: NewCallID(), Name: name, Arguments: arguments}
}

// FunctionResponse carries the encoded result of a successful call.
type FunctionResponse struct {
	ID     CallID          `json:"id,omitempty"`
	Name   string          `json:"name"`
	Result json.RawMessage `json:"result"`
}

// Decode unmarshals the response result into T.
func Decode[T any](resp FunctionResponse) (T, error) {
	var out T
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		return out, &ToolError{Kind: KindDeserialize, Name: resp.Name, Message: err.Error(), Err: err}
	}
	return out, nil
}

// CallWith marshals args and calls the named tool.
func CallWith(ctx context.Context, r *Registry, name string, args any) (FunctionResponse, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return FunctionResponse{Name: name}, serializationError(name, err)
	}
	return r.Call(ctx, FunctionCall{Name: name, Arguments: raw})
}

// Reply is the message sent back to the model for one call: either a result or an error.
type Reply struct {
	ID     CallID          `json:"id,omitempty"`
	Name   string          `json:"name"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ToolError      `json:"error,omitempty"`
}

// NewReply converts the outcome of Registry.Call into a Reply. Errors that are not
// *ToolError are reported as runtime failures.
func NewReply(resp FunctionResponse, err error) Reply {
	rep := Reply{ID: resp.ID, Name: resp.Name}
	if err == nil {
		rep.Result = resp.Result
		return rep
	}
	te, ok := AsToolError(err)
	if !ok {
		te = &ToolError{Kind: KindRuntime, Name: resp.Name, Message: err.Error(), Err: err}
	}
	rep.Error = te
	return rep
}

// IsError reports whether the reply carries an error.
func (r Reply) IsError() bool { return r.Error != nil }

// Content returns the text sent to the model: the result JSON or the error object JSON.
func (r Reply) Content() string {
	if r.Error == nil {
		return string(r.Result)
	}
	b, err := json.Marshal(r.Error)
	if err != nil {
		return r.Error.Error()
	}
	return string(b)
}

// Outcome is passed to the after-call hook and returned by CallBatch.
type Outcome struct {
	Call     FunctionCall
	Response FunctionResponse
	Err      error
	Duration time.Duration
}

// Reply converts the outcome into the message returned to the model.
func (o Outcome) Reply() Reply { return NewReply(o.Response, o.Err) }

// Replies converts batch outcomes into replies, preserving order.
func Replies(outcomes []Outcome) []Reply {
	out := make([]Reply, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Reply()
	}
	return out
}

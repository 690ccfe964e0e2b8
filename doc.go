// Package toolbox exposes statically typed Go functions to an LLM function-calling loop
// through a uniform JSON call/response boundary.
//
// # Overview
//
// Models produce tool calls as JSON. This package turns that JSON into concrete Go function
// calls: decode → validate (against the same JSON Schema shown to the model) → execute →
// encode the result, or return a structured *ToolError the model can use to self-correct.
//
// Pipeline: Go function + argument type → NewTool (reflection + schema) → Tool → Registry →
// Call (decode, validate, invoke, encode) → FunctionResponse.
//
// # Key concepts
//
//   - Single source of truth: the argument type drives both the schema sent to the model
//     and the validation of incoming arguments (see package schema).
//   - Registration table: packages contribute tools from init with Submit or SubmitTool;
//     CollectAll builds the registry once at startup.
//   - Partial success: CallBatch returns one Outcome per call; one failure does not cancel others.
//   - Errors: every failure is a *ToolError with a Kind; errors.Is matches ErrFunctionNotFound,
//     ErrDeserialize and the other sentinels.
//
// # Example
//
//	type Args struct {
//	    City string `json:"city" description:"City name"`
//	}
//	type Out struct {
//	    Temp float64 `json:"temp"`
//	}
//	reg := toolbox.NewRegistry()
//	err := toolbox.Register(reg, "weather", "Get weather", func(_ context.Context, a Args) (Out, error) {
//	    return Out{Temp: 22.5}, nil
//	})
//	if err != nil { ... }
//	resp, err := reg.Call(ctx, toolbox.NewFunctionCall("weather", []byte(`{"city":"Moscow"}`)))
package toolbox

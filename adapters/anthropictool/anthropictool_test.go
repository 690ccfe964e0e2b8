package anthropictool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/toolbox"
	"github.com/skosovsky/toolbox/schema"
	"github.com/skosovsky/toolbox/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type greetArgs struct {
	Name string `json:"name"`
}

func newRegistry(t *testing.T) *toolbox.Registry {
	t.Helper()
	greet, err := toolbox.NewTool("greet", "Greet someone", func(_ context.Context, a greetArgs) (string, error) {
		return "Hello, " + a.Name + "!", nil
	})
	require.NoError(t, err)
	even, err := toolbox.NewTool("is_even", "", func(_ context.Context, n int) (bool, error) {
		return n%2 == 0, nil
	})
	require.NoError(t, err)
	return testutil.NewTestRegistry(t, greet, even)
}

func message(t *testing.T, body string) *anthropic.Message {
	t.Helper()
	var msg anthropic.Message
	require.NoError(t, json.Unmarshal([]byte(body), &msg))
	return &msg
}

func TestNew_Tools(t *testing.T) {
	ts, err := FromRegistry(newRegistry(t))
	require.NoError(t, err)
	tools := ts.Tools()
	require.Len(t, tools, 2)

	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "greet", tools[0].OfTool.Name)
	assert.Equal(t, "Greet someone", tools[0].OfTool.Description.Value)
	assert.NotNil(t, tools[0].OfTool.InputSchema.Properties)

	require.NotNil(t, tools[1].OfTool)
	assert.Equal(t, "is_even", tools[1].OfTool.Name)
	assert.False(t, tools[1].OfTool.Description.Valid())
	assert.True(t, ts.wrapped["is_even"])
}

func TestNew_VoidInput(t *testing.T) {
	ts, err := New([]toolbox.Declaration{{Name: "today", Description: "Date", Parameters: schema.For[schema.Void]()}})
	require.NoError(t, err)
	require.Len(t, ts.Tools(), 1)
	assert.Empty(t, ts.wrapped)
}

func TestCalls_RoundTrip(t *testing.T) {
	reg := newRegistry(t)
	ts, err := FromRegistry(reg)
	require.NoError(t, err)

	msg := message(t, `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-test",
		"stop_reason": "tool_use",
		"content": [
			{"type": "text", "text": "Let me check."},
			{"type": "tool_use", "id": "tu_1", "name": "greet", "input": {"name": "World"}},
			{"type": "tool_use", "id": "tu_2", "name": "is_even", "input": {"value": 4}},
			{"type": "tool_use", "id": "tu_3", "name": "is_even", "input": {"value": "four"}}
		],
		"usage": {"input_tokens": 10, "output_tokens": 20}
	}`)
	calls, err := ts.Calls(msg)
	require.NoError(t, err)
	require.Len(t, calls, 3)
	assert.Equal(t, toolbox.CallID("tu_1"), calls[0].ID)
	assert.JSONEq(t, `{"name":"World"}`, string(calls[0].Arguments))
	assert.JSONEq(t, `4`, string(calls[1].Arguments))

	replies := toolbox.Replies(reg.CallBatch(context.Background(), calls))
	assert.Equal(t, `"Hello, World!"`, replies[0].Content())
	assert.Equal(t, `true`, replies[1].Content())
	require.True(t, replies[2].IsError())
	assert.Equal(t, toolbox.KindDeserialize, replies[2].Error.Kind)

	result := Results(replies)
	assert.Equal(t, anthropic.MessageParamRoleUser, result.Role)
	require.Len(t, result.Content, 3)
	require.NotNil(t, result.Content[0].OfToolResult)
	assert.Equal(t, "tu_1", result.Content[0].OfToolResult.ToolUseID)
	assert.False(t, result.Content[0].OfToolResult.IsError.Value)
	assert.True(t, result.Content[2].OfToolResult.IsError.Value)
}

func TestCalls_NoToolUse(t *testing.T) {
	ts, err := New(nil)
	require.NoError(t, err)
	calls, err := ts.Calls(message(t, `{"id":"m","type":"message","role":"assistant","model":"x","content":[{"type":"text","text":"hi"}],"usage":{"input_tokens":1,"output_tokens":1}}`))
	require.NoError(t, err)
	assert.Empty(t, calls)
}

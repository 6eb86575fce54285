package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("hello")
	assert.Equal(t, RoleUser, msg.Role)
	require.Len(t, msg.Parts, 1)
	assert.Equal(t, PartText, msg.Parts[0].Kind)
	assert.Equal(t, "hello", msg.Text())
}

func TestNewAssistantMessage(t *testing.T) {
	calls := []ToolCall{
		{ID: "call-1", Name: "read_file", Args: map[string]interface{}{"path": "a.txt"}},
		{ID: "call-2", Name: "list_files", Args: map[string]interface{}{}},
	}
	msg := NewAssistantMessage("let me check", calls)

	assert.Equal(t, RoleAssistant, msg.Role)
	require.Len(t, msg.Parts, 3)
	assert.Equal(t, PartText, msg.Parts[0].Kind)
	assert.Equal(t, "let me check", msg.Text())
	assert.Equal(t, calls, msg.ToolCalls())
}

func TestNewAssistantMessageOmitsEmptyText(t *testing.T) {
	msg := NewAssistantMessage("", []ToolCall{{ID: "call-1", Name: "read_file"}})
	require.Len(t, msg.Parts, 1)
	assert.Equal(t, PartToolCall, msg.Parts[0].Kind)
	assert.Empty(t, msg.Text())
}

func TestNewToolResultMessage(t *testing.T) {
	result := ToolResult{ID: "call-1", Name: "read_file", Content: "data", IsError: false}
	msg := NewToolResultMessage(result)

	assert.Equal(t, RoleToolResult, msg.Role)
	require.Len(t, msg.Parts, 1)
	require.NotNil(t, msg.Parts[0].ToolResult)
	assert.Equal(t, result, *msg.Parts[0].ToolResult)
}

func TestConversationAppendAndSnapshot(t *testing.T) {
	conv := NewConversation()
	assert.Equal(t, 0, conv.Len())

	_, ok := conv.Last()
	assert.False(t, ok)

	conv.Append(NewUserMessage("first"))
	conv.Append(NewAssistantMessage("second", nil))

	assert.Equal(t, 2, conv.Len())

	last, ok := conv.Last()
	require.True(t, ok)
	assert.Equal(t, RoleAssistant, last.Role)

	// A snapshot is a copy; appending to the conversation afterwards must
	// not change it.
	snapshot := conv.Messages()
	conv.Append(NewUserMessage("third"))
	assert.Len(t, snapshot, 2)
	assert.Equal(t, 3, conv.Len())
}

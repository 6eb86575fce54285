package llm

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tars/session"
)

func TestConvertMessagesToAnthropic(t *testing.T) {
	call := session.ToolCall{ID: "toolu_1", Name: "read_file", Args: map[string]interface{}{"path": "a.txt"}}
	messages := []session.Message{
		session.NewUserMessage("show me a.txt"),
		session.NewAssistantMessage("reading it", []session.ToolCall{call}),
		session.NewToolResultMessage(session.ToolResult{ID: "toolu_1", Name: "read_file", Content: "contents"}),
		session.NewAssistantMessage("here it is", nil),
	}

	out := convertMessagesToAnthropic(messages)
	require.Len(t, out, 4)

	assert.Equal(t, anthropic.MessageParamRoleUser, out[0].Role)

	assert.Equal(t, anthropic.MessageParamRoleAssistant, out[1].Role)
	require.Len(t, out[1].Content, 2)
	require.NotNil(t, out[1].Content[0].OfText)
	assert.Equal(t, "reading it", out[1].Content[0].OfText.Text)
	require.NotNil(t, out[1].Content[1].OfToolUse)
	assert.Equal(t, "toolu_1", out[1].Content[1].OfToolUse.ID)
	assert.Equal(t, "read_file", out[1].Content[1].OfToolUse.Name)

	// Tool results go back as user-role tool_result blocks.
	assert.Equal(t, anthropic.MessageParamRoleUser, out[2].Role)
	require.Len(t, out[2].Content, 1)
	require.NotNil(t, out[2].Content[0].OfToolResult)
	assert.Equal(t, "toolu_1", out[2].Content[0].OfToolResult.ToolUseID)

	assert.Equal(t, anthropic.MessageParamRoleAssistant, out[3].Role)
}

func TestConvertMessagesToAnthropicSkipsEmptyAssistant(t *testing.T) {
	messages := []session.Message{
		session.NewUserMessage("hi"),
		{Role: session.RoleAssistant},
	}
	out := convertMessagesToAnthropic(messages)
	require.Len(t, out, 1)
}

func TestConvertDeclarationsToAnthropic(t *testing.T) {
	decls := []ToolDeclaration{
		{
			Name:        "read_file",
			Description: "read a file",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{"type": "string"},
				},
				"required": []interface{}{"path"},
			},
		},
	}

	out := convertDeclarationsToAnthropic(decls)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].OfTool)
	assert.Equal(t, "read_file", out[0].OfTool.Name)
	assert.Contains(t, out[0].OfTool.InputSchema.Properties, "path")
	assert.Equal(t, []string{"path"}, out[0].OfTool.InputSchema.Required)

	assert.Nil(t, convertDeclarationsToAnthropic(nil))
}

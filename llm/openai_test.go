package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tars/session"
)

func TestNewOpenAIClientCarriesMaxTokens(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	client, err := NewOpenAIClient("gpt-4o", 2048, "be helpful")
	require.NoError(t, err)
	assert.Equal(t, int64(2048), client.maxTokens)
	assert.Equal(t, "be helpful", client.system)
}

func TestConvertMessagesToOpenAI(t *testing.T) {
	client := &OpenAIClient{system: "be helpful"}

	call := session.ToolCall{ID: "call_1", Name: "list_files", Args: map[string]interface{}{}}
	messages := []session.Message{
		session.NewUserMessage("what files?"),
		session.NewAssistantMessage("", []session.ToolCall{call}),
		session.NewToolResultMessage(session.ToolResult{ID: "call_1", Name: "list_files", Content: `["a.txt"]`}),
	}

	out := client.convertMessages(messages)
	// System prompt leads, then user, assistant and tool messages.
	require.Len(t, out, 4)
	require.NotNil(t, out[0].OfSystem)
	require.NotNil(t, out[1].OfUser)
	require.NotNil(t, out[2].OfAssistant)
	require.Len(t, out[2].OfAssistant.ToolCalls, 1)
	require.NotNil(t, out[3].OfTool)
	assert.Equal(t, "call_1", out[3].OfTool.ToolCallID)
}

func TestConvertMessagesToOpenAIWithoutSystemPrompt(t *testing.T) {
	client := &OpenAIClient{}
	out := client.convertMessages([]session.Message{session.NewUserMessage("hi")})
	require.Len(t, out, 1)
	require.NotNil(t, out[0].OfUser)
}

func TestConvertDeclarationsToOpenAI(t *testing.T) {
	decls := []ToolDeclaration{
		{
			Name:        "edit_file",
			Description: "edit a file",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{"type": "string"},
				},
			},
		},
		{Name: "bare", Description: "no schema"},
	}

	out := convertDeclarationsToOpenAI(decls)
	require.Len(t, out, 2)
	require.NotNil(t, out[0].OfFunction)
	assert.Equal(t, "edit_file", out[0].OfFunction.Function.Name)
	assert.Contains(t, out[0].OfFunction.Function.Parameters, "properties")

	// A declaration without a schema falls back to an open object.
	assert.Equal(t, "object", out[1].OfFunction.Function.Parameters["type"])

	assert.Nil(t, convertDeclarationsToOpenAI(nil))
}

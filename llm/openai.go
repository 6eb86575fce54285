package llm

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkg/errors"

	"tars/session"
)

// OpenAIClient streams chat turns through the OpenAI Chat Completions API.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int64
	system    string
}

// NewOpenAIClient creates a streaming client for the OpenAI API. It requires
// the OPENAI_API_KEY environment variable to be set and honors
// OPENAI_BASE_URL for custom endpoints.
func NewOpenAIClient(model string, maxTokens int64, systemPrompt string) (*OpenAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	c := openai.NewClient(options...)
	// The &c is required, do not replace and just use c
	return &OpenAIClient{client: &c, model: model, maxTokens: maxTokens, system: systemPrompt}, nil
}

// pendingCall accumulates one tool call across stream chunks. OpenAI sends
// the function name first and the argument JSON in fragments keyed by the
// call's index within the choice.
type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

// StreamTurn sends the history to the Chat Completions API and relays the
// response as it streams in. Tool call arguments arrive fragmented, so the
// calls are emitted only once the stream ends and the JSON is whole.
func (o *OpenAIClient) StreamTurn(ctx context.Context, messages []session.Message, decls []ToolDeclaration) <-chan ProviderEvent {
	out := make(chan ProviderEvent, 16)

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: o.convertMessages(messages),
		Tools:    convertDeclarationsToOpenAI(decls),
	}
	if o.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(o.maxTokens)
	}

	go func() {
		defer close(out)

		stream := o.client.Chat.Completions.NewStreaming(ctx, params)
		pending := make(map[int64]*pendingCall)

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta

			if delta.Content != "" {
				if !emit(ctx, out, TextDelta(delta.Content)) {
					return
				}
			}

			for _, tc := range delta.ToolCalls {
				call, ok := pending[tc.Index]
				if !ok {
					call = &pendingCall{}
					pending[tc.Index] = call
				}
				if tc.ID != "" {
					call.id = tc.ID
				}
				if tc.Function.Name != "" {
					call.name = tc.Function.Name
				}
				call.args.WriteString(tc.Function.Arguments)
			}
		}

		if err := stream.Err(); err != nil {
			emit(ctx, out, StreamError(ErrKindTransport, "openai stream failed: %v", err))
			return
		}

		indexes := make([]int64, 0, len(pending))
		for idx := range pending {
			indexes = append(indexes, idx)
		}
		sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })

		for _, idx := range indexes {
			call := pending[idx]
			raw := call.args.String()
			if raw == "" {
				raw = "{}"
			}
			var args map[string]interface{}
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				emit(ctx, out, StreamError(ErrKindProtocol, "failed to unmarshal function call arguments for %s: %v", call.name, err))
				return
			}
			sc := session.ToolCall{ID: call.id, Name: call.name, Args: args}
			if !emit(ctx, out, ToolCallRequested(sc)) {
				return
			}
		}

		emit(ctx, out, TurnCompleted())
	}()

	return out
}

// convertMessages converts the internal history to OpenAI chat messages.
// The system prompt, when set, leads the sequence.
func (o *OpenAIClient) convertMessages(messages []session.Message) []openai.ChatCompletionMessageParamUnion {
	var chatMessages []openai.ChatCompletionMessageParamUnion
	if o.system != "" {
		chatMessages = append(chatMessages, openai.SystemMessage(o.system))
	}

	for _, msg := range messages {
		switch msg.Role {
		case session.RoleAssistant:
			assistantMessage := openai.ChatCompletionMessage{
				Role:    "assistant",
				Content: msg.Text(),
			}
			calls := msg.ToolCalls()
			if len(calls) > 0 {
				var toolCalls []openai.ChatCompletionMessageToolCallUnion
				for _, tc := range calls {
					argsBytes, err := json.Marshal(tc.Args)
					if err != nil {
						continue
					}
					toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallUnion{
						ID:   tc.ID,
						Type: "function",
						Function: openai.ChatCompletionMessageFunctionToolCallFunction{
							Name:      tc.Name,
							Arguments: string(argsBytes),
						},
					})
				}
				assistantMessage.ToolCalls = toolCalls
			}
			chatMessages = append(chatMessages, assistantMessage.ToParam())
		case session.RoleToolResult:
			for _, part := range msg.Parts {
				if part.Kind != session.PartToolResult || part.ToolResult == nil {
					continue
				}
				chatMessages = append(chatMessages, openai.ToolMessage(part.ToolResult.Content, part.ToolResult.ID))
			}
		case session.RoleUser:
			fallthrough
		default:
			chatMessages = append(chatMessages, openai.UserMessage(msg.Text()))
		}
	}
	return chatMessages
}

// convertDeclarationsToOpenAI converts tool declarations to the OpenAI
// function tool format.
func convertDeclarationsToOpenAI(decls []ToolDeclaration) []openai.ChatCompletionToolUnionParam {
	if len(decls) == 0 {
		return nil
	}
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(decls))
	for _, d := range decls {
		params := openai.FunctionParameters{
			"type":       "object",
			"properties": map[string]any{},
		}
		if d.InputSchema != nil {
			params = openai.FunctionParameters(d.InputSchema)
		}
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        d.Name,
			Description: openai.String(d.Description),
			Parameters:  params,
		}))
	}
	return out
}

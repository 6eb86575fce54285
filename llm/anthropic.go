package llm

import (
	"context"
	"encoding/json"
	"os"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"

	"tars/session"
)

// AnthropicClient streams chat turns through the Anthropic Messages API.
type AnthropicClient struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
	system    string
}

// NewAnthropicClient creates a streaming client for the Anthropic API.
// It requires the ANTHROPIC_API_KEY environment variable to be set.
func NewAnthropicClient(model string, maxTokens int64, systemPrompt string) (*AnthropicClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &AnthropicClient{
		client:    &client,
		model:     model,
		maxTokens: maxTokens,
		system:    systemPrompt,
	}, nil
}

// StreamTurn sends the history to the Messages API and relays the response
// as it streams in. Text arrives as deltas; tool calls are emitted once
// their input JSON is complete.
func (a *AnthropicClient) StreamTurn(ctx context.Context, messages []session.Message, decls []ToolDeclaration) <-chan ProviderEvent {
	out := make(chan ProviderEvent, 16)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages:  convertMessagesToAnthropic(messages),
		Tools:     convertDeclarationsToAnthropic(decls),
	}
	if a.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: a.system}}
	}

	go func() {
		defer close(out)

		stream := a.client.Messages.NewStreaming(ctx, params)
		var acc anthropic.Message

		for stream.Next() {
			event := stream.Current()
			if err := acc.Accumulate(event); err != nil {
				emit(ctx, out, StreamError(ErrKindProtocol, "failed to accumulate stream event: %v", err))
				return
			}

			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					if !emit(ctx, out, TextDelta(delta.Text)) {
						return
					}
				}
			case anthropic.ContentBlockStopEvent:
				if int(ev.Index) >= len(acc.Content) {
					continue
				}
				block, ok := acc.Content[ev.Index].AsAny().(anthropic.ToolUseBlock)
				if !ok {
					continue
				}
				var args map[string]interface{}
				if err := json.Unmarshal(block.Input, &args); err != nil {
					emit(ctx, out, StreamError(ErrKindProtocol, "failed to unmarshal tool call input for %s: %v", block.Name, err))
					return
				}
				call := session.ToolCall{ID: block.ID, Name: block.Name, Args: args}
				if !emit(ctx, out, ToolCallRequested(call)) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			emit(ctx, out, StreamError(ErrKindTransport, "anthropic stream failed: %v", err))
			return
		}

		emit(ctx, out, TurnCompleted())
	}()

	return out
}

// convertMessagesToAnthropic converts the internal history to Anthropic
// message params. Tool results travel as user-role tool_result blocks, the
// form the Messages API expects.
func convertMessagesToAnthropic(messages []session.Message) []anthropic.MessageParam {
	var out []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case session.RoleUser:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Text()),
			))
		case session.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			for _, part := range msg.Parts {
				switch part.Kind {
				case session.PartText:
					blocks = append(blocks, anthropic.ContentBlockParamUnion{
						OfText: &anthropic.TextBlockParam{Text: part.Text},
					})
				case session.PartToolCall:
					blocks = append(blocks, anthropic.ContentBlockParamUnion{
						OfToolUse: &anthropic.ToolUseBlockParam{
							ID:    part.ToolCall.ID,
							Name:  part.ToolCall.Name,
							Input: part.ToolCall.Args,
						},
					})
				}
			}
			if len(blocks) == 0 {
				continue
			}
			out = append(out, anthropic.MessageParam{
				Role:    anthropic.MessageParamRoleAssistant,
				Content: blocks,
			})
		case session.RoleToolResult:
			for _, part := range msg.Parts {
				if part.Kind != session.PartToolResult || part.ToolResult == nil {
					continue
				}
				result := part.ToolResult
				out = append(out, anthropic.MessageParam{
					Role: anthropic.MessageParamRoleUser,
					Content: []anthropic.ContentBlockParamUnion{{
						OfToolResult: &anthropic.ToolResultBlockParam{
							ToolUseID: result.ID,
							IsError:   anthropic.Bool(result.IsError),
							Content: []anthropic.ToolResultBlockParamContentUnion{{
								OfText: &anthropic.TextBlockParam{Text: result.Content},
							}},
						},
					}},
				})
			}
		}
	}

	return out
}

// convertDeclarationsToAnthropic converts tool declarations to Anthropic's
// tool params.
func convertDeclarationsToAnthropic(decls []ToolDeclaration) []anthropic.ToolUnionParam {
	if len(decls) == 0 {
		return nil
	}

	out := make([]anthropic.ToolUnionParam, 0, len(decls))
	for _, d := range decls {
		schema := anthropic.ToolInputSchemaParam{}
		if props, ok := d.InputSchema["properties"].(map[string]interface{}); ok {
			schema.Properties = props
		}
		if req, ok := d.InputSchema["required"].([]interface{}); ok {
			required := make([]string, 0, len(req))
			for _, r := range req {
				if s, ok := r.(string); ok {
					required = append(required, s)
				}
			}
			schema.Required = required
		}
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        d.Name,
				Description: anthropic.String(d.Description),
				InputSchema: schema,
			},
		})
	}
	return out
}

package session

import "sync"

// Role identifies the author of a message in the conversation history.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "tool_result"
)

// PartKind discriminates the content parts a message may carry.
type PartKind string

const (
	PartText       PartKind = "text"
	PartToolCall   PartKind = "tool_call"
	PartToolResult PartKind = "tool_result"
)

// ToolCall is a model-issued request to execute a named local tool with
// structured arguments. The ID correlates the eventual result back to the
// request.
type ToolCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// ToolResult is the outcome of executing a tool call. IsError marks failed
// executions; the content is still fed back to the model either way.
type ToolResult struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error"`
}

// Part is one content element of a message. Exactly one of Text, ToolCall
// or ToolResult is set, according to Kind.
type Part struct {
	Kind       PartKind    `json:"kind"`
	Text       string      `json:"text,omitempty"`
	ToolCall   *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// Message is one entry of the conversation history. Messages are immutable
// once appended to a Conversation.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// NewUserMessage builds a plain text user message.
func NewUserMessage(text string) Message {
	return Message{
		Role:  RoleUser,
		Parts: []Part{{Kind: PartText, Text: text}},
	}
}

// NewAssistantMessage builds an assistant message from the accumulated text
// of a round-trip plus any tool calls the model requested. The text part is
// omitted when empty so tool-only responses stay minimal.
func NewAssistantMessage(text string, calls []ToolCall) Message {
	msg := Message{Role: RoleAssistant}
	if text != "" {
		msg.Parts = append(msg.Parts, Part{Kind: PartText, Text: text})
	}
	for i := range calls {
		call := calls[i]
		msg.Parts = append(msg.Parts, Part{Kind: PartToolCall, ToolCall: &call})
	}
	return msg
}

// NewToolResultMessage wraps a single tool result for the history. One
// message is appended per completed call.
func NewToolResultMessage(result ToolResult) Message {
	return Message{
		Role:  RoleToolResult,
		Parts: []Part{{Kind: PartToolResult, ToolResult: &result}},
	}
}

// Text concatenates the text parts of the message in order.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		if p.Kind == PartText {
			out += p.Text
		}
	}
	return out
}

// ToolCalls returns the tool call parts of the message in order.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, p := range m.Parts {
		if p.Kind == PartToolCall && p.ToolCall != nil {
			calls = append(calls, *p.ToolCall)
		}
	}
	return calls
}

// Conversation is the append-only message history of one session. It is
// created at startup and lives for the process lifetime; only the agent
// orchestrator mutates it, everything else reads snapshots.
type Conversation struct {
	mu       sync.RWMutex
	messages []Message
}

func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds a message to the end of the history.
func (c *Conversation) Append(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the history so callers can iterate without
// holding the lock while a turn is appending.
func (c *Conversation) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len reports the number of messages appended so far.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.messages)
}

// Last returns the most recent message, if any.
func (c *Conversation) Last() (Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

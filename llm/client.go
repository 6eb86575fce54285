package llm

import (
	"context"
	"fmt"

	"tars/session"
	"tars/tools"
)

// ErrorKind classifies provider failures. Transport covers network errors,
// timeouts and rate limits; protocol covers malformed or out-of-order
// payloads from an otherwise healthy connection.
type ErrorKind string

const (
	ErrKindTransport ErrorKind = "transport"
	ErrKindProtocol  ErrorKind = "protocol"
)

// EventType enumerates the incremental events of one streaming round-trip.
type EventType string

const (
	EventTextDelta         EventType = "text_delta"
	EventToolCallRequested EventType = "tool_call_requested"
	EventTurnCompleted     EventType = "turn_completed"
	EventError             EventType = "error"
)

// ProviderEvent is one element of the event sequence produced by a
// StreamClient. The sequence is finite and ordered: every text delta and
// tool call request precedes TurnCompleted, and nothing follows Error.
type ProviderEvent struct {
	Type       EventType
	Text       string
	ToolCall   *session.ToolCall
	ErrKind    ErrorKind
	ErrMessage string
}

// TextDelta builds an incremental text event.
func TextDelta(text string) ProviderEvent {
	return ProviderEvent{Type: EventTextDelta, Text: text}
}

// ToolCallRequested builds a tool call request event.
func ToolCallRequested(call session.ToolCall) ProviderEvent {
	return ProviderEvent{Type: EventToolCallRequested, ToolCall: &call}
}

// TurnCompleted marks the normal end of a round-trip.
func TurnCompleted() ProviderEvent {
	return ProviderEvent{Type: EventTurnCompleted}
}

// StreamError builds a terminal error event of the given kind.
func StreamError(kind ErrorKind, format string, a ...interface{}) ProviderEvent {
	return ProviderEvent{Type: EventError, ErrKind: kind, ErrMessage: fmt.Sprintf(format, a...)}
}

// ToolDeclaration is the provider-facing description of a registered tool.
type ToolDeclaration struct {
	Name        string
	Description string
	InputSchema map[string]interface{}
}

// StreamClient wraps one provider's streaming chat endpoint. The returned
// channel is closed when the sequence ends; it is consumed exactly once and
// is not restartable — callers retain the history themselves to retry.
// Transport faults surface as Error events, never as raw errors.
type StreamClient interface {
	StreamTurn(ctx context.Context, messages []session.Message, decls []ToolDeclaration) <-chan ProviderEvent
}

// Declarations converts registered tools into provider declarations,
// preserving registration order.
func Declarations(ts []tools.Tool) []ToolDeclaration {
	decls := make([]ToolDeclaration, 0, len(ts))
	for _, t := range ts {
		decls = append(decls, ToolDeclaration{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return decls
}

// emit delivers an event unless the consumer has gone away. Adapters use it
// so a cancelled turn never leaves a goroutine blocked on a send.
func emit(ctx context.Context, out chan<- ProviderEvent, ev ProviderEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

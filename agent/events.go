package agent

import (
	"tars/llm"
	"tars/session"
)

// EventType enumerates the notifications the orchestrator publishes while a
// turn runs.
type EventType string

const (
	EventTextDelta        EventType = "text_delta"
	EventToolCallStarted  EventType = "tool_call_started"
	EventToolCallFinished EventType = "tool_call_finished"
	EventTurnFinished     EventType = "turn_finished"
	EventTurnFailed       EventType = "turn_failed"
	EventTurnCancelled    EventType = "turn_cancelled"
)

// Event is one orchestrator notification. The fields beyond Type are set
// according to the event kind: Text for deltas, ToolCall for started calls,
// ToolResult for finished ones, ErrKind and ErrMessage for failures.
type Event struct {
	Type       EventType
	TurnID     string
	Text       string
	ToolCall   *session.ToolCall
	ToolResult *session.ToolResult
	ErrKind    llm.ErrorKind
	ErrMessage string
}

package llm

import (
	"context"
	"fmt"
	"sync"

	"tars/session"
)

// ScriptedTurn is the event sequence a ScriptedClient plays back for one
// round-trip.
type ScriptedTurn struct {
	Events []ProviderEvent
}

// ScriptedClient is a StreamClient that replays pre-recorded turns. It
// backs the default offline mode and the orchestrator tests: each call to
// StreamTurn consumes the next scripted turn; once the script is exhausted
// it parrots back the latest user message.
type ScriptedClient struct {
	mu      sync.Mutex
	turns   []ScriptedTurn
	history [][]session.Message
}

// NewScriptedClient creates a client that plays back the given turns in
// order.
func NewScriptedClient(turns ...ScriptedTurn) *ScriptedClient {
	return &ScriptedClient{turns: turns}
}

// StreamTurn replays the next scripted turn over a fresh channel. The
// history passed in is snapshotted for later inspection.
func (s *ScriptedClient) StreamTurn(ctx context.Context, messages []session.Message, decls []ToolDeclaration) <-chan ProviderEvent {
	s.mu.Lock()
	snapshot := make([]session.Message, len(messages))
	copy(snapshot, messages)
	s.history = append(s.history, snapshot)

	var turn ScriptedTurn
	if len(s.turns) > 0 {
		turn = s.turns[0]
		s.turns = s.turns[1:]
	} else {
		turn = echoTurn(messages)
	}
	s.mu.Unlock()

	out := make(chan ProviderEvent, len(turn.Events))
	go func() {
		defer close(out)
		for _, ev := range turn.Events {
			if !emit(ctx, out, ev) {
				return
			}
		}
	}()
	return out
}

// Requests returns the history snapshots captured by each StreamTurn call.
func (s *ScriptedClient) Requests() [][]session.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]session.Message, len(s.history))
	copy(out, s.history)
	return out
}

// echoTurn builds a fallback turn that repeats the latest user message.
func echoTurn(messages []session.Message) ScriptedTurn {
	last := "(empty conversation)"
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == session.RoleUser {
			last = messages[i].Text()
			break
		}
	}
	return ScriptedTurn{Events: []ProviderEvent{
		TextDelta(fmt.Sprintf("I am an offline stand-in. You said: %q. Set a provider to talk to a real model.", last)),
		TurnCompleted(),
	}}
}

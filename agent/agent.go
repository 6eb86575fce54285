package agent

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"tars/llm"
	"tars/session"
	"tars/tools"
)

// State describes what the orchestrator is doing right now.
type State string

const (
	// StateIdle means no turn is running and input is accepted.
	StateIdle State = "idle"
	// StateAwaitingProvider means a turn is consuming a provider stream.
	StateAwaitingProvider State = "awaiting_provider"
	// StateDispatchingTools means a turn is executing requested tool calls.
	StateDispatchingTools State = "dispatching_tools"
)

// ErrTurnInProgress is returned by Submit while a turn is already running.
// The submission is rejected outright; nothing is queued.
var ErrTurnInProgress = errors.New("a turn is already in progress")

// cancelledMarker is appended to the history when the user aborts a turn,
// so the model sees on the next turn that the previous one was cut short.
const cancelledMarker = "[turn cancelled]"

// Orchestrator drives the conversation loop: it sends the history to the
// provider, relays streamed output, executes requested tool calls and feeds
// their results back until the model answers with plain text. One turn runs
// at a time.
type Orchestrator struct {
	client   llm.StreamClient
	registry *tools.Registry
	conv     *session.Conversation
	events   chan Event
	log      zerolog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	turnID string
}

// New creates an idle orchestrator over the given provider client, tool
// registry and conversation.
func New(client llm.StreamClient, registry *tools.Registry, conv *session.Conversation, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		client:   client,
		registry: registry,
		conv:     conv,
		events:   make(chan Event, 256),
		log:      logger.With().Str("component", "agent").Logger(),
	}
}

// Events returns the channel the orchestrator publishes turn events on. The
// channel stays open for the orchestrator's lifetime.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// State reports the current orchestrator state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Conversation returns the history the orchestrator appends to.
func (o *Orchestrator) Conversation() *session.Conversation {
	return o.conv
}

// Submit starts a new turn for the given user input. It returns
// ErrTurnInProgress without touching the history if a turn is already
// running. The turn itself runs on its own goroutine; progress is reported
// through Events.
func (o *Orchestrator) Submit(ctx context.Context, input string) error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return ErrTurnInProgress
	}
	turnCtx, cancel := context.WithCancel(ctx)
	o.state = StateAwaitingProvider
	o.cancel = cancel
	o.turnID = uuid.NewString()
	turnID := o.turnID
	o.mu.Unlock()

	o.conv.Append(session.NewUserMessage(input))
	o.log.Info().Str("turn_id", turnID).Msg("turn started")

	go o.runTurn(turnCtx, turnID)
	return nil
}

// Cancel aborts the running turn, if any. In-flight tool executions are
// left to finish on their own; their results are discarded.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// setState transitions the orchestrator while a turn is running.
func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// finish returns the orchestrator to idle and releases the turn's cancel
// handle.
func (o *Orchestrator) finish() {
	o.mu.Lock()
	o.state = StateIdle
	o.cancel = nil
	o.turnID = ""
	o.mu.Unlock()
}

// runTurn is the per-turn loop: stream a provider round-trip, dispatch any
// requested tools, feed the results back and go again until the model stops
// asking for tools.
func (o *Orchestrator) runTurn(ctx context.Context, turnID string) {
	defer o.finish()

	for {
		round, ok := o.streamRound(ctx, turnID)
		if !ok {
			return
		}

		if len(round.calls) == 0 {
			if round.text != "" {
				o.conv.Append(session.NewAssistantMessage(round.text, nil))
			}
			o.log.Info().Str("turn_id", turnID).Msg("turn finished")
			o.events <- Event{Type: EventTurnFinished, TurnID: turnID}
			return
		}

		o.conv.Append(session.NewAssistantMessage(round.text, round.calls))

		results, ok := o.dispatchTools(ctx, turnID, round.calls)
		if !ok {
			return
		}
		for _, result := range results {
			o.conv.Append(session.NewToolResultMessage(result))
		}
	}
}

// roundTrip is the accumulated outcome of one provider stream.
type roundTrip struct {
	text  string
	calls []session.ToolCall
}

// streamRound consumes one provider stream to completion, relaying text
// deltas as they arrive. It returns false when the turn is over, having
// already appended the cancellation marker or published the failure event.
func (o *Orchestrator) streamRound(ctx context.Context, turnID string) (roundTrip, bool) {
	o.setState(StateAwaitingProvider)

	stream := o.client.StreamTurn(ctx, o.conv.Messages(), llm.Declarations(o.registry.List()))

	var round roundTrip
	callIndex := make(map[string]int)
	completed := false

	for !completed {
		select {
		case <-ctx.Done():
			o.cancelTurn(turnID)
			return roundTrip{}, false
		case ev, open := <-stream:
			if !open {
				// The stream must end with TurnCompleted or Error; a bare
				// close is a protocol violation.
				o.failTurn(turnID, llm.ErrKindProtocol, "provider stream ended without completion")
				return roundTrip{}, false
			}
			switch ev.Type {
			case llm.EventTextDelta:
				round.text += ev.Text
				o.events <- Event{Type: EventTextDelta, TurnID: turnID, Text: ev.Text}
			case llm.EventToolCallRequested:
				call := *ev.ToolCall
				if i, seen := callIndex[call.ID]; seen {
					// A repeated ID replaces the earlier request in place.
					round.calls[i] = call
				} else {
					callIndex[call.ID] = len(round.calls)
					round.calls = append(round.calls, call)
				}
			case llm.EventTurnCompleted:
				completed = true
			case llm.EventError:
				o.failTurn(turnID, ev.ErrKind, ev.ErrMessage)
				return roundTrip{}, false
			}
		}
	}

	return round, true
}

// dispatchTools runs the requested calls concurrently and collects their
// results in request order, whatever order they complete in. It returns
// false if the turn was cancelled while tools were still running: each
// call is then recorded as a failed result, and the stragglers finish on
// their own with their real output dropped.
func (o *Orchestrator) dispatchTools(ctx context.Context, turnID string, calls []session.ToolCall) ([]session.ToolResult, bool) {
	o.setState(StateDispatchingTools)

	for i := range calls {
		o.events <- Event{Type: EventToolCallStarted, TurnID: turnID, ToolCall: &calls[i]}
	}

	// Tools keep running to completion even after a cancel, so they never
	// observe the turn context.
	toolCtx := context.WithoutCancel(ctx)

	results := make([]session.ToolResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.log.Debug().Str("turn_id", turnID).Str("tool", call.Name).Str("call_id", call.ID).Msg("executing tool")
			results[i] = o.registry.Invoke(toolCtx, call)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		// The assistant message carrying these calls is already in the
		// history, and both provider APIs reject a tool call that has no
		// result on the next request. Each call gets a failed placeholder
		// so the history stays well formed; the real executions finish in
		// the background and their output is dropped.
		for _, call := range calls {
			o.conv.Append(session.NewToolResultMessage(session.ToolResult{
				ID:      call.ID,
				Name:    call.Name,
				Content: "cancelled by user",
				IsError: true,
			}))
		}
		o.cancelTurn(turnID)
		return nil, false
	case <-done:
	}

	for i := range results {
		o.events <- Event{Type: EventToolCallFinished, TurnID: turnID, ToolResult: &results[i]}
	}
	return results, true
}

// cancelTurn records the abort in the history and tells the consumer.
func (o *Orchestrator) cancelTurn(turnID string) {
	o.conv.Append(session.NewUserMessage(cancelledMarker))
	o.log.Info().Str("turn_id", turnID).Msg("turn cancelled")
	o.events <- Event{Type: EventTurnCancelled, TurnID: turnID}
}

// failTurn reports a provider failure. Partial output from the failed
// round is discarded; the history still ends with the user's prompt, so
// resubmitting it retries cleanly.
func (o *Orchestrator) failTurn(turnID string, kind llm.ErrorKind, msg string) {
	o.log.Error().Str("turn_id", turnID).Str("kind", string(kind)).Str("error", msg).Msg("turn failed")
	o.events <- Event{Type: EventTurnFailed, TurnID: turnID, ErrKind: kind, ErrMessage: msg}
}

// Package agent contains the orchestration core of Tars.
//
// The Orchestrator sits between the terminal UI and the LLM provider. It
// owns the conversation history, drives provider round-trips, executes the
// tool calls the model requests and loops until the model replies with
// plain text.
//
// # Turn lifecycle
//
// A turn starts with Submit and moves through a small set of states:
//
//   - StateIdle: no turn is running; Submit is accepted
//   - StateAwaitingProvider: a provider stream is being consumed
//   - StateDispatchingTools: requested tool calls are executing
//
// After tool dispatch the orchestrator returns to StateAwaitingProvider
// with the results appended to the history, and keeps alternating until a
// round-trip produces no tool calls. Cancellation and provider failure end
// the turn early; either way the orchestrator lands back in StateIdle.
//
// # Events
//
// The UI consumes orchestrator progress through the Events channel:
//
//   - EventTextDelta: an incremental fragment of assistant text
//   - EventToolCallStarted / EventToolCallFinished: tool execution progress
//   - EventTurnFinished: the model produced its final answer
//   - EventTurnFailed: the provider failed; the history keeps only the
//     user's prompt so it can be resubmitted
//   - EventTurnCancelled: the user aborted the turn; a marker message
//     records the abort in the history
//
// # Tool failures
//
// A failing tool does not end the turn. The failure is wrapped in a
// ToolResult with IsError set and fed back to the model like any other
// result; only provider-side failures are fatal to a turn.
//
// # Concurrency
//
// One turn runs at a time: Submit returns ErrTurnInProgress while a turn
// is active rather than queueing. Within a turn, tool calls from the same
// round-trip execute concurrently, but their results are recorded in
// request order. Cancelling a turn does not interrupt tools already
// running; they finish on their own and their results are dropped, with a
// failed placeholder result recorded per call so the history keeps a
// result for every finalized tool call.
package agent

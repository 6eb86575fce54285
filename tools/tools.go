package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/xeipuuv/gojsonschema"

	"tars/session"
)

// Tool defines the interface for any action the agent can take on the
// model's behalf. InputSchema returns a JSON schema document describing the
// arguments; a nil schema disables validation for that tool.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// Registry holds all available tools and dispatches calls to them. It
// guarantees name resolution and schema enforcement; side effects are each
// tool's own responsibility.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
	log   zerolog.Logger
}

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		tools: make(map[string]Tool),
		log:   logger.With().Str("component", "tools").Logger(),
	}
}

// Register adds a tool under its name. Empty and duplicate names are
// rejected so a misconfigured MCP server cannot shadow a builtin.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool is nil")
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

// Get fetches a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns all registered tools in registration order, so provider
// declarations stay stable across round-trips.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Invoke resolves and executes one tool call. It never returns an error to
// the caller: an unknown name, a schema violation or a handler failure all
// come back as a failed ToolResult, because the model is expected to read
// and react to tool errors. The handler is not called when validation
// fails.
func (r *Registry) Invoke(ctx context.Context, call session.ToolCall) session.ToolResult {
	t, ok := r.Get(call.Name)
	if !ok {
		r.log.Warn().Str("tool", call.Name).Msg("model requested unknown tool")
		return failedResult(call, fmt.Sprintf("tool %q not found", call.Name))
	}

	if schema := t.InputSchema(); schema != nil {
		if err := validateArgs(schema, call.Args); err != nil {
			r.log.Debug().Str("tool", call.Name).Err(err).Msg("tool arguments rejected")
			return failedResult(call, fmt.Sprintf("invalid arguments for %q: %v", call.Name, err))
		}
	}

	r.log.Debug().Str("tool", call.Name).Str("call_id", call.ID).Msg("executing tool")
	out, err := t.Execute(ctx, call.Args)
	if err != nil {
		return failedResult(call, err.Error())
	}
	return session.ToolResult{ID: call.ID, Name: call.Name, Content: out}
}

func failedResult(call session.ToolCall, msg string) session.ToolResult {
	return session.ToolResult{ID: call.ID, Name: call.Name, Content: msg, IsError: true}
}

// validateArgs checks the arguments against the tool's declared JSON
// schema before execution.
func validateArgs(schema, args map[string]interface{}) error {
	if args == nil {
		args = map[string]interface{}{}
	}
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}
	if result.Valid() {
		return nil
	}
	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return fmt.Errorf("%s", strings.Join(details, "; "))
}

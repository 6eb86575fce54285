package ui

import (
	"encoding/json"
	"fmt"
	"strings"

	"tars/session"
)

const (
	maxArgsDisplay   = 200
	maxResultDisplay = 300
)

// truncate shortens s for display, marking the cut.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "... (truncated)"
}

// formatToolCall renders a tool call request as a single line.
func formatToolCall(call session.ToolCall) string {
	args := "{}"
	if len(call.Args) > 0 {
		if data, err := json.Marshal(call.Args); err == nil {
			args = string(data)
		}
	}
	return fmt.Sprintf("⚙ %s %s", call.Name, truncate(args, maxArgsDisplay))
}

// formatToolResult renders a completed tool call, collapsing the content to
// a short preview.
func formatToolResult(result session.ToolResult) string {
	content := strings.TrimSpace(result.Content)
	if content == "" {
		content = "(no output)"
	}
	content = strings.ReplaceAll(content, "\n", " ")
	if result.IsError {
		return fmt.Sprintf("✗ %s: %s", result.Name, truncate(content, maxResultDisplay))
	}
	return fmt.Sprintf("✓ %s: %s", result.Name, truncate(content, maxResultDisplay))
}

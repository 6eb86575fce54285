package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"tars/session"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exact", truncate("exact", 5))

	long := strings.Repeat("x", 20)
	got := truncate(long, 10)
	assert.True(t, strings.HasPrefix(got, strings.Repeat("x", 10)))
	assert.True(t, strings.HasSuffix(got, "(truncated)"))
}

func TestFormatToolCall(t *testing.T) {
	call := session.ToolCall{
		ID:   "c1",
		Name: "read_file",
		Args: map[string]interface{}{"path": "main.go"},
	}
	got := formatToolCall(call)
	assert.Contains(t, got, "read_file")
	assert.Contains(t, got, `"path":"main.go"`)
}

func TestFormatToolCallNoArgs(t *testing.T) {
	got := formatToolCall(session.ToolCall{ID: "c1", Name: "list_files"})
	assert.Contains(t, got, "list_files")
	assert.Contains(t, got, "{}")
}

func TestFormatToolResult(t *testing.T) {
	ok := formatToolResult(session.ToolResult{Name: "read_file", Content: "line one\nline two"})
	assert.Contains(t, ok, "✓ read_file")
	assert.Contains(t, ok, "line one line two")

	failed := formatToolResult(session.ToolResult{Name: "edit_file", Content: "old_str not found", IsError: true})
	assert.Contains(t, failed, "✗ edit_file")
	assert.Contains(t, failed, "old_str not found")

	empty := formatToolResult(session.ToolResult{Name: "probe"})
	assert.Contains(t, empty, "(no output)")
}

func TestFormatToolResultTruncatesLongOutput(t *testing.T) {
	long := strings.Repeat("a", maxResultDisplay*2)
	got := formatToolResult(session.ToolResult{Name: "read_file", Content: long})
	assert.Contains(t, got, "(truncated)")
	assert.Less(t, len(got), maxResultDisplay+64)
}

package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tars/config"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestReadFileTool(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile("hello.txt", []byte("hello world"), 0o644))

	tool := NewReadFileTool(nil)

	out, err := tool.Execute(context.Background(), map[string]interface{}{"path": "hello.txt"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)

	_, err = tool.Execute(context.Background(), map[string]interface{}{"path": "missing.txt"})
	assert.Error(t, err)

	_, err = tool.Execute(context.Background(), map[string]interface{}{})
	assert.Error(t, err)
}

func TestReadFileToolHiddenPath(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.MkdirAll(".tars", 0o755))
	require.NoError(t, os.WriteFile(".tars/config.yaml", []byte("provider: anthropic"), 0o644))

	fsAccess := &config.FilesystemAccess{Hidden: []string{".tars", ".tars/**"}}
	tool := NewReadFileTool(fsAccess)

	_, err := tool.Execute(context.Background(), map[string]interface{}{"path": ".tars/config.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hidden")
}

func TestListFilesTool(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile("b.txt", nil, 0o644))
	require.NoError(t, os.WriteFile("a.txt", nil, 0o644))
	require.NoError(t, os.MkdirAll("sub", 0o755))

	tool := NewListFilesTool(nil)

	out, err := tool.Execute(context.Background(), map[string]interface{}{})
	require.NoError(t, err)

	var files []string
	require.NoError(t, json.Unmarshal([]byte(out), &files))
	assert.Equal(t, []string{"a.txt", "b.txt", "sub/"}, files)
}

func TestListFilesToolWithPath(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.MkdirAll("sub", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("sub", "only.txt"), nil, 0o644))

	tool := NewListFilesTool(nil)

	out, err := tool.Execute(context.Background(), map[string]interface{}{"path": "sub"})
	require.NoError(t, err)

	var files []string
	require.NoError(t, json.Unmarshal([]byte(out), &files))
	assert.Equal(t, []string{"only.txt"}, files)

	_, err = tool.Execute(context.Background(), map[string]interface{}{"path": "nope"})
	assert.Error(t, err)
}

func TestEditFileToolReplace(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile("code.go", []byte("foo bar foo"), 0o644))

	tool := NewEditFileTool(nil)

	out, err := tool.Execute(context.Background(), map[string]interface{}{
		"path": "code.go", "old_str": "foo", "new_str": "baz",
	})
	require.NoError(t, err)
	assert.Equal(t, "OK", out)

	content, err := os.ReadFile("code.go")
	require.NoError(t, err)
	assert.Equal(t, "baz bar baz", string(content))
}

func TestEditFileToolOldStrNotFound(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile("code.go", []byte("content"), 0o644))

	tool := NewEditFileTool(nil)

	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"path": "code.go", "old_str": "absent", "new_str": "x",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "old_str not found")
}

func TestEditFileToolCreatesFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	tool := NewEditFileTool(nil)

	out, err := tool.Execute(context.Background(), map[string]interface{}{
		"path": "nested/dir/new.txt", "old_str": "", "new_str": "fresh content",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully created file")

	content, err := os.ReadFile("nested/dir/new.txt")
	require.NoError(t, err)
	assert.Equal(t, "fresh content", string(content))
}

func TestEditFileToolInvalidParams(t *testing.T) {
	tool := NewEditFileTool(nil)

	_, err := tool.Execute(context.Background(), map[string]interface{}{
		"path": "", "old_str": "a", "new_str": "b",
	})
	assert.Error(t, err)

	_, err = tool.Execute(context.Background(), map[string]interface{}{
		"path": "x.txt", "old_str": "same", "new_str": "same",
	})
	assert.Error(t, err)
}

func TestEditFileToolReadOnlyPath(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.MkdirAll("vendor", 0o755))
	require.NoError(t, os.WriteFile("vendor/dep.go", []byte("package dep"), 0o644))

	fsAccess := &config.FilesystemAccess{ReadOnly: []string{"vendor/**"}}

	editTool := NewEditFileTool(fsAccess)
	_, err := editTool.Execute(context.Background(), map[string]interface{}{
		"path": "vendor/dep.go", "old_str": "dep", "new_str": "hacked",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")

	// Read-only paths stay readable.
	readTool := NewReadFileTool(fsAccess)
	out, err := readTool.Execute(context.Background(), map[string]interface{}{"path": "vendor/dep.go"})
	require.NoError(t, err)
	assert.Equal(t, "package dep", out)
}

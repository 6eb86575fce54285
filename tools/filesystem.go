package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"tars/config"
)

type readFileInput struct {
	Path string `json:"path" jsonschema:"description=The relative path of a file in the working directory."`
}

// ReadFileTool reads the full content of a file.
type ReadFileTool struct {
	fsAccess *config.FilesystemAccess
}

func NewReadFileTool(fsAccess *config.FilesystemAccess) *ReadFileTool {
	return &ReadFileTool{fsAccess: fsAccess}
}

func (t *ReadFileTool) Name() string { return "read_file" }
func (t *ReadFileTool) Description() string {
	return "Read the contents of a given relative file path. Use this when you want to see what's inside a file. Do not use this with directory names."
}
func (t *ReadFileTool) InputSchema() map[string]interface{} {
	return ReflectSchema(&readFileInput{})
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", errors.New("missing or invalid 'path' argument")
	}

	if err := checkHidden(path, t.fsAccess); err != nil {
		return "", err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file %q", path)
	}
	return string(content), nil
}

type listFilesInput struct {
	Path string `json:"path,omitempty" jsonschema:"description=Optional relative path to list files from. Defaults to current directory if not provided."`
}

// ListFilesTool lists the entries of a directory, directories suffixed
// with a slash, sorted, rendered as a JSON array.
type ListFilesTool struct {
	fsAccess *config.FilesystemAccess
}

func NewListFilesTool(fsAccess *config.FilesystemAccess) *ListFilesTool {
	return &ListFilesTool{fsAccess: fsAccess}
}

func (t *ListFilesTool) Name() string { return "list_files" }
func (t *ListFilesTool) Description() string {
	return "List files and directories at a given path. If no path is provided, lists files in the current directory."
}
func (t *ListFilesTool) InputSchema() map[string]interface{} {
	return ReflectSchema(&listFilesInput{})
}

func (t *ListFilesTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	dir := "."
	if path, ok := args["path"].(string); ok && path != "" {
		dir = path
	}

	if err := checkHidden(dir, t.fsAccess); err != nil {
		return "", err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.Wrapf(err, "failed to list %q", dir)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		files = append(files, name)
	}
	sort.Strings(files)

	out, err := json.Marshal(files)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode file list")
	}
	return string(out), nil
}

type editFileInput struct {
	Path   string `json:"path" jsonschema:"description=The path to the file"`
	OldStr string `json:"old_str" jsonschema:"description=Text to search for - must match exactly and must only have one match exactly"`
	NewStr string `json:"new_str" jsonschema:"description=Text to replace old_str with"`
}

// EditFileTool replaces old_str with new_str in a file. When the file does
// not exist and old_str is empty, the file (and its parent directories) is
// created with new_str as content.
type EditFileTool struct {
	fsAccess *config.FilesystemAccess
}

func NewEditFileTool(fsAccess *config.FilesystemAccess) *EditFileTool {
	return &EditFileTool{fsAccess: fsAccess}
}

func (t *EditFileTool) Name() string { return "edit_file" }
func (t *EditFileTool) Description() string {
	return "Make edits to a text file.\n\nReplaces 'old_str' with 'new_str' in the given file. 'old_str' and 'new_str' MUST be different from each other.\n\nIf the file specified with path doesn't exist, it will be created."
}
func (t *EditFileTool) InputSchema() map[string]interface{} {
	return ReflectSchema(&editFileInput{})
}

func (t *EditFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, _ := args["path"].(string)
	oldStr, _ := args["old_str"].(string)
	newStr, _ := args["new_str"].(string)

	if path == "" || oldStr == newStr {
		return "", errors.New("invalid input parameters")
	}

	if err := checkHidden(path, t.fsAccess); err != nil {
		return "", err
	}
	if err := checkReadOnly(path, t.fsAccess); err != nil {
		return "", err
	}

	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		text := string(content)
		if oldStr != "" && !strings.Contains(text, oldStr) {
			return "", errors.New("old_str not found in file")
		}
		updated := strings.ReplaceAll(text, oldStr, newStr)
		if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
			return "", errors.Wrapf(err, "failed to write file %q", path)
		}
		return "OK", nil

	case os.IsNotExist(err) && oldStr == "":
		if parent := filepath.Dir(path); parent != "." && parent != "" {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return "", errors.Wrapf(err, "failed to create directory %q", parent)
			}
		}
		if err := os.WriteFile(path, []byte(newStr), 0o644); err != nil {
			return "", errors.Wrapf(err, "failed to create file %q", path)
		}
		return fmt.Sprintf("Successfully created file %s", path), nil

	default:
		return "", errors.Wrapf(err, "failed to read file %q", path)
	}
}

func checkHidden(path string, fsAccess *config.FilesystemAccess) error {
	if fsAccess == nil {
		return nil
	}
	hidden, err := isPathRestricted(path, fsAccess.Hidden)
	if err != nil {
		return err
	}
	if hidden {
		return errors.Errorf("access denied: path %q is hidden", path)
	}
	return nil
}

func checkReadOnly(path string, fsAccess *config.FilesystemAccess) error {
	if fsAccess == nil {
		return nil
	}
	readOnly, err := isPathRestricted(path, fsAccess.ReadOnly)
	if err != nil {
		return err
	}
	if readOnly {
		return errors.Errorf("access denied: path %q is read-only", path)
	}
	return nil
}

// isPathRestricted checks if a path matches any of the glob patterns.
func isPathRestricted(path string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		match, err := doublestar.PathMatch(pattern, path)
		if err != nil {
			return false, errors.Errorf("invalid glob pattern %q", pattern)
		}
		if match {
			return true, nil
		}
	}
	return false, nil
}

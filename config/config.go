package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModel     = "claude-haiku-4-5-20251001"
	DefaultMaxTokens = 4096
)

// FilesystemAccess restricts what the file tools may touch. Patterns are
// doublestar globs matched against the path the model supplies.
type FilesystemAccess struct {
	Hidden   []string `yaml:"hidden"`
	ReadOnly []string `yaml:"read_only"`
}

// MCPServer describes an external MCP tool server started as a subprocess.
type MCPServer struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

type Config struct {
	Provider         string           `yaml:"provider"`
	Model            string           `yaml:"model"`
	MaxTokens        int64            `yaml:"max_tokens"`
	SystemPrompt     string           `yaml:"system_prompt"`
	FilesystemAccess FilesystemAccess `yaml:"filesystem_access"`
	MCPServers       []MCPServer      `yaml:"mcp_servers"`
	LogLevel         string           `yaml:"log_level"`
}

// Load reads configuration from the user's home directory and the current
// working directory, with the latter taking precedence.
func Load() (*Config, error) {
	cfg := &Config{
		Provider:  "anthropic",
		Model:     DefaultModel,
		MaxTokens: DefaultMaxTokens,
		LogLevel:  "info",
	}

	// The agent's own state directory is never exposed to the model.
	cfg.FilesystemAccess.Hidden = append(cfg.FilesystemAccess.Hidden, ".tars", ".tars/**")

	// Load user-level config first
	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, ".tars", "config.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := loadFromFile(userConfigPath, cfg); err != nil {
				return nil, errors.Wrap(err, "error loading user config")
			}
		}
	}

	// Load project-level config, overriding user-level
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "could not get working directory")
	}
	projectConfigPath := filepath.Join(wd, ".tars", "config.yaml")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := loadFromFile(projectConfigPath, cfg); err != nil {
			return nil, errors.Wrap(err, "error loading project config")
		}
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites fields present in the YAML, which gives a simple
	// merge where project-level config replaces user-level.
	return yaml.Unmarshal(data, cfg)
}

// StateDir returns the per-user directory where tars keeps its log file,
// creating it if needed.
func StateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not resolve home directory")
	}
	dir := filepath.Join(home, ".tars")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "could not create state directory %s", dir)
	}
	return dir, nil
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"tars/agent"
	"tars/config"
	"tars/llm"
	"tars/session"
	"tars/tools"
	"tars/tools/mcp"
	"tars/ui"
)

func main() {
	// Define flags
	providerFlag := flag.String("provider", "", "LLM provider: 'anthropic', 'openai' or 'script' (overrides config)")
	modelFlag := flag.String("model", "", "Model name (overrides config)")
	logLevelFlag := flag.String("log-level", "", "Log level: 'debug', 'info', 'warn' or 'error' (overrides config)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}
	if *providerFlag != "" {
		cfg.Provider = *providerFlag
	}
	if *modelFlag != "" {
		cfg.Model = *modelFlag
	}
	if *logLevelFlag != "" {
		cfg.LogLevel = *logLevelFlag
	}

	// The terminal owns stdout, so logs go to a file under the state dir.
	logger, cleanup, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %+v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	// Initialize the provider client
	client, err := newProviderClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing provider client: %+v\n", err)
		os.Exit(1)
	}

	// Register the builtin filesystem tools
	registry := tools.NewRegistry(logger)
	builtins := []tools.Tool{
		tools.NewReadFileTool(&cfg.FilesystemAccess),
		tools.NewListFilesTool(&cfg.FilesystemAccess),
		tools.NewEditFileTool(&cfg.FilesystemAccess),
	}
	for _, t := range builtins {
		if err := registry.Register(t); err != nil {
			fmt.Fprintf(os.Stderr, "Error registering tool %s: %+v\n", t.Name(), err)
			os.Exit(1)
		}
	}

	// Bring up configured MCP servers and register their tools
	clients, err := mcp.ConnectAll(context.Background(), cfg.MCPServers, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting MCP servers: %+v\n", err)
		os.Exit(1)
	}
	defer func() {
		for _, c := range clients {
			_ = c.Stop()
		}
	}()
	for _, c := range clients {
		for _, t := range c.Tools() {
			if err := registry.Register(t); err != nil {
				logger.Warn().Str("server", c.Name).Str("tool", t.Name()).Err(err).Msg("skipping MCP tool")
			}
		}
	}

	orch := agent.New(client, registry, session.NewConversation(), logger)

	logger.Info().Str("provider", cfg.Provider).Str("model", cfg.Model).Msg("tars starting")
	if err := ui.Run(orch, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Terminal UI stopped with an error: %+v\n", err)
		os.Exit(1)
	}
}

// newProviderClient builds the streaming client for the configured
// provider. Unrecognized names are a startup error rather than a silent
// fallback; the scripted offline client must be asked for by name.
func newProviderClient(cfg *config.Config) (llm.StreamClient, error) {
	switch cfg.Provider {
	case "anthropic":
		return llm.NewAnthropicClient(cfg.Model, cfg.MaxTokens, cfg.SystemPrompt)
	case "openai":
		return llm.NewOpenAIClient(cfg.Model, cfg.MaxTokens, cfg.SystemPrompt)
	case "script", "":
		return llm.NewScriptedClient(), nil
	default:
		return nil, errors.Errorf("unknown provider %q, must be 'anthropic', 'openai' or 'script'", cfg.Provider)
	}
}

// newLogger opens the log file under the state directory and builds the
// root logger. The returned cleanup closes the file.
func newLogger(level string) (zerolog.Logger, func(), error) {
	stateDir, err := config.StateDir()
	if err != nil {
		return zerolog.Nop(), func() {}, err
	}

	logFile, err := os.OpenFile(filepath.Join(stateDir, "tars.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), func() {}, err
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(logFile).Level(lvl).With().Timestamp().Logger()
	return logger, func() { _ = logFile.Close() }, nil
}

// Package mcp connects external MCP tool servers to the agent's tool
// registry. Each configured server runs as a subprocess speaking MCP over
// stdio; its discovered tools satisfy the registry's Tool interface like
// any builtin.
package mcp

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tars/config"
)

// Client manages the connection to a single MCP server subprocess.
type Client struct {
	Name  string
	cmd   *exec.Cmd
	conn  *mcpsdk.ClientSession
	tools []*ServerTool
	log   zerolog.Logger
}

// Connect starts the MCP server subprocess, initializes the session and
// discovers the tools it provides.
func Connect(ctx context.Context, server config.MCPServer, logger zerolog.Logger) (*Client, error) {
	cmd := exec.Command(server.Command, server.Args...)
	cmd.Stderr = os.Stderr

	mcpClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "tars", Version: "v1.0.0"}, nil)
	conn, err := mcpClient.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return nil, errors.Wrapf(err, "failed to connect to MCP server %q", server.Name)
	}

	client := &Client{
		Name: server.Name,
		cmd:  cmd,
		conn: conn,
		log:  logger.With().Str("component", "mcp").Str("server", server.Name).Logger(),
	}

	params := &mcpsdk.ListToolsParams{}
	for {
		list, err := conn.ListTools(ctx, params)
		if err != nil {
			_ = client.Stop()
			return nil, errors.Wrapf(err, "failed to list tools from MCP server %q", server.Name)
		}
		for _, t := range list.Tools {
			client.tools = append(client.tools, &ServerTool{
				name:        t.Name,
				description: t.Description,
				schema:      schemaToMap(t.InputSchema),
				client:      client,
			})
		}
		if list.NextCursor == "" {
			break
		}
		params.Cursor = list.NextCursor
	}

	client.log.Info().Int("tools", len(client.tools)).Msg("MCP server connected")
	return client, nil
}

// ConnectAll brings up every configured server concurrently. Any failing
// server fails the whole startup; clients connected so far are stopped.
func ConnectAll(ctx context.Context, servers []config.MCPServer, logger zerolog.Logger) ([]*Client, error) {
	var mu sync.Mutex
	clients := make([]*Client, 0, len(servers))

	g, ctx := errgroup.WithContext(ctx)
	for _, server := range servers {
		g.Go(func() error {
			client, err := Connect(ctx, server, logger)
			if err != nil {
				return err
			}
			mu.Lock()
			clients = append(clients, client)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, client := range clients {
			_ = client.Stop()
		}
		return nil, err
	}
	return clients, nil
}

// Tools returns the tools discovered on this server.
func (c *Client) Tools() []*ServerTool {
	return c.tools
}

// Stop terminates the MCP server subprocess.
func (c *Client) Stop() error {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		c.log.Info().Msg("terminating MCP server")
		return c.cmd.Process.Kill()
	}
	return nil
}

// ServerTool is one tool exposed by an MCP server. It satisfies the tool
// registry's Tool interface.
type ServerTool struct {
	name        string
	description string
	schema      map[string]interface{}
	client      *Client
}

func (t *ServerTool) Name() string                        { return t.name }
func (t *ServerTool) Description() string                 { return t.description }
func (t *ServerTool) InputSchema() map[string]interface{} { return t.schema }

// Execute forwards the call to the MCP server and concatenates the text
// content of the response.
func (t *ServerTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	result, err := t.client.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.name,
		Arguments: args,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to call tool %q", t.name)
	}

	var out string
	for _, content := range result.Content {
		if text, ok := content.(*mcpsdk.TextContent); ok {
			out += text.Text
		}
	}
	if result.IsError {
		return "", errors.Errorf("tool %q failed: %s", t.name, out)
	}
	return out, nil
}

// schemaToMap converts the SDK's schema type into the plain document form
// the registry validates against. A schema that cannot round-trip through
// JSON disables validation for that tool rather than blocking startup.
func schemaToMap(schema interface{}) map[string]interface{} {
	if schema == nil {
		return nil
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}
	return doc
}

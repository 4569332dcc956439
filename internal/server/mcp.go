package server

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/morezero/plex-mcp-server/pkg/commands"
	"github.com/morezero/plex-mcp-server/pkg/commsutil"
	"github.com/morezero/plex-mcp-server/pkg/permission"
	"github.com/morezero/plex-mcp-server/pkg/registry"
	"github.com/morezero/plex-mcp-server/pkg/response"
)

const mcpLogPrefix = "server:mcp"

const instructions = "Tools for a Plex Media Server. Every tool returns one JSON document: " +
	"an object with success true, an object with an error message, or an array of candidate " +
	"matches when a title was ambiguous; retry with one of the candidate ids."

// newMCPServer exposes every registered command as a tool. Commands above
// the granted tier stay listed and answer with the permission error.
func (s *Server) newMCPServer(logger *slog.Logger) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: s.cfg.ServiceName, Version: commands.Version}, &mcp.ServerOptions{
		Logger:       logger,
		Instructions: instructions,
	})
	reg := s.disp.Registry()
	for _, info := range reg.ListCommands() {
		cmd, err := reg.Lookup(info.Name)
		if err != nil {
			continue
		}
		srv.AddTool(toolFor(cmd), s.toolHandler(cmd.Name))
	}
	slog.Debug(fmt.Sprintf("%s - Registered %d tools", mcpLogPrefix, reg.Len()))
	return srv
}

func toolFor(cmd *registry.Command) *mcp.Tool {
	destructive := cmd.Tier == permission.Delete
	desc := strings.TrimSuffix(cmd.Description, ".") + "."
	if cmd.Tier > permission.Read {
		desc += fmt.Sprintf(" Requires '%s' permission.", cmd.Tier)
	}
	if len(cmd.Returns) > 0 {
		desc += fmt.Sprintf(" Returns: %s.", strings.Join(cmd.Returns, ", "))
	}
	return &mcp.Tool{
		Name:        cmd.Name,
		Description: desc,
		InputSchema: cmd.InputSchema(),
		Annotations: &mcp.ToolAnnotations{
			ReadOnlyHint:    cmd.Tier == permission.Read,
			DestructiveHint: &destructive,
		},
	}
}

func (s *Server) toolHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]any{}
		if raw := req.Params.Arguments; len(raw) > 0 && string(raw) != "null" {
			if err := commsutil.DecodePayload(raw, &args); err != nil {
				return toolResult(response.Error("Invalid arguments: expected a JSON object")), nil
			}
		}
		return toolResult(s.disp.Dispatch(ctx, name, args, s.tier)), nil
	}
}

// toolResult carries the canonical JSON as the single text content.
func toolResult(resp response.Response) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: resp.JSON()}},
		IsError: resp.IsError(),
	}
}

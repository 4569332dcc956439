package server

import (
	"context"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/morezero/plex-mcp-server/pkg/permission"
)

const mcpTestPrefix = "server:mcp_test"

func connectClient(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	st, ct := mcp.NewInMemoryTransports()
	ss, err := s.mcp.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("%s - server connect: %v", mcpTestPrefix, err)
	}
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("%s - client connect: %v", mcpTestPrefix, err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("%s - expected one content block, got %d", mcpTestPrefix, len(res.Content))
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("%s - content is %T, want *mcp.TextContent", mcpTestPrefix, res.Content[0])
	}
	return tc.Text
}

func TestMCPListTools(t *testing.T) {
	s, _ := testServer(t, permission.Read)
	cs := connectClient(t, s)

	res, err := cs.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("%s - ListTools: %v", mcpTestPrefix, err)
	}
	if len(res.Tools) != s.disp.Registry().Len() {
		t.Fatalf("%s - expected %d tools, got %d", mcpTestPrefix, s.disp.Registry().Len(), len(res.Tools))
	}
	tools := make(map[string]*mcp.Tool, len(res.Tools))
	for _, tool := range res.Tools {
		tools[tool.Name] = tool
	}

	list := tools["library_list"]
	if list == nil || list.Annotations == nil || !list.Annotations.ReadOnlyHint {
		t.Errorf("%s - library_list should be read-only: %+v", mcpTestPrefix, list)
	}
	del := tools["media_delete"]
	if del == nil || del.Annotations == nil || del.Annotations.DestructiveHint == nil || !*del.Annotations.DestructiveHint {
		t.Fatalf("%s - media_delete should be destructive: %+v", mcpTestPrefix, del)
	}
	if !strings.Contains(del.Description, "Requires 'delete' permission.") {
		t.Errorf("%s - media_delete description = %q", mcpTestPrefix, del.Description)
	}
}

func TestMCPCallTool(t *testing.T) {
	s, _ := testServer(t, permission.Read)
	cs := connectClient(t, s)
	ctx := context.Background()

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{Name: "library_list"})
	if err != nil {
		t.Fatalf("%s - CallTool library_list: %v", mcpTestPrefix, err)
	}
	if res.IsError || !strings.Contains(textOf(t, res), `"title":"Movies"`) {
		t.Errorf("%s - library_list result = %v %s", mcpTestPrefix, res.IsError, textOf(t, res))
	}

	res, err = cs.CallTool(ctx, &mcp.CallToolParams{Name: "media_delete", Arguments: map[string]any{"media_title": "Heat"}})
	if err != nil {
		t.Fatalf("%s - CallTool media_delete: %v", mcpTestPrefix, err)
	}
	if !res.IsError {
		t.Errorf("%s - denied call should be flagged as error", mcpTestPrefix)
	}
	if got, want := textOf(t, res), `{"error":"This operation requires 'delete' permission."}`; got != want {
		t.Errorf("%s - denied text = %s, want %s", mcpTestPrefix, got, want)
	}
}

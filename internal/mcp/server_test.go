package mcp

import (
	"context"
	"encoding/json"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func connect(t *testing.T, env *testEnv) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	server := NewServer(Config{Services: env.services, TransportMode: "stdio"})

	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func textOf(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestServer_ListsAndCallsTools(t *testing.T) {
	env := newTestEnv(t)
	cs := connect(t, env)
	ctx := context.Background()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, len(buildToolCatalog()))

	res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "create_project",
		Arguments: map[string]any{"name": "Research", "color": "#AABBCC"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var created struct {
		ID    string `json:"id"`
		Color string `json:"color"`
	}
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &created))
	require.NotEmpty(t, created.ID)
	require.Equal(t, "#aabbcc", created.Color)

	res, err = cs.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "delete_project",
		Arguments: map[string]any{"id": "nope"},
	})
	require.NoError(t, err)
	require.True(t, res.IsError)

	var apiErr APIError
	require.NoError(t, json.Unmarshal([]byte(textOf(t, res)), &apiErr))
	require.Equal(t, CodeNotFound, apiErr.Code)
}

func TestServer_ReadsDocs(t *testing.T) {
	cs := connect(t, newTestEnv(t))

	res, err := cs.ReadResource(context.Background(), &sdkmcp.ReadResourceParams{URI: "traceback://docs/rules"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	require.Contains(t, res.Contents[0].Text, "title_pattern")
}

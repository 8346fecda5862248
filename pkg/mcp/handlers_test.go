package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/uifind/pkg/snapshot"
)

// --- helpers ---

func testServer(t *testing.T) *Server {
	t.Helper()
	loader := snapshot.NewLoader(snapshot.LoaderConfig{})
	t.Cleanup(func() { loader.Close() })

	s, err := NewServer(loader, nil, nil)
	require.NoError(t, err)
	return s
}

func callTool(t *testing.T, s *Server, req mcp.CallToolRequest) *mcp.CallToolResult {
	t.Helper()
	var handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

	switch req.Params.Name {
	case "load_snapshot":
		handler = s.handleLoadSnapshot
	case "resolve_query":
		handler = s.handleResolveQuery
	case "resolve_one":
		handler = s.handleResolveOne
	case "synthesize_query":
		handler = s.handleSynthesizeQuery
	case "explain_query":
		handler = s.handleExplainQuery
	case "list_overlays":
		handler = s.handleListOverlays
	default:
		t.Fatalf("unknown tool: %s", req.Params.Name)
	}

	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func makeRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	var arguments any
	if args != nil {
		arguments = args
	}
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: arguments,
		},
	}
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	textContent, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return textContent.Text
}

// --- resolve_query ---

func TestHandleResolveQuery(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("resolve_query", map[string]any{"query": "//Button"}))
	assert.False(t, result.IsError)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	assert.Equal(t, "demo", resp["source"])
	assert.Equal(t, float64(2), resp["total"])

	matches, ok := resp["matches"].([]any)
	require.True(t, ok)
	require.Len(t, matches, 2)

	first, ok := matches[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "uikit.widget.Button", first["type"])
	assert.Equal(t, float64(3), first["depth"])
	assert.NotEmpty(t, first["query"])

	attrs, ok := first["attributes"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Sign in", attrs["caption"])
}

func TestHandleResolveQuery_MaxResults(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("resolve_query", map[string]any{
		"query":       "//Button",
		"max_results": 1,
	}))

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	assert.Equal(t, float64(2), resp["total"])
	assert.Equal(t, true, resp["truncated"])
	assert.Len(t, resp["matches"], 1)
}

func TestHandleResolveQuery_NoMatches(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("resolve_query", map[string]any{"query": "//Carousel"}))
	assert.False(t, result.IsError, "an empty result is not an error")

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	assert.Equal(t, float64(0), resp["total"])
	assert.Len(t, resp["matches"], 0)
}

func TestHandleResolveQuery_MissingQuery(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("resolve_query", nil))
	assert.True(t, result.IsError)
}

// --- resolve_one ---

func TestHandleResolveOne(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("resolve_one", map[string]any{"query": "//PasswordField"}))
	assert.False(t, result.IsError)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	assert.Equal(t, float64(1), resp["total"])

	match, ok := resp["match"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "uikit.widget.PasswordField", match["type"])
}

func TestHandleResolveOne_SeveralMatches(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("resolve_one", map[string]any{"query": "//Button"}))
	assert.False(t, result.IsError)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	assert.Equal(t, float64(2), resp["total"], "extra matches are reported")

	match, ok := resp["match"].(map[string]any)
	require.True(t, ok)
	attrs, ok := match["attributes"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Sign in", attrs["caption"], "only the first match is described")
}

func TestHandleResolveOne_NotFound(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("resolve_one", map[string]any{"query": "//Carousel"}))
	assert.True(t, result.IsError)
}

// --- synthesize_query ---

func TestHandleSynthesizeQuery(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("synthesize_query", map[string]any{
		"query": `//Button[caption="Clear"]`,
	}))
	assert.False(t, result.IsError)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	assert.Equal(t, `(//Button[id="reset"])[0]`, resp["synthesized"])
	assert.Equal(t, float64(1), resp["total"])
}

func TestHandleSynthesizeQuery_NotFound(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("synthesize_query", map[string]any{"query": "//Carousel"}))
	assert.True(t, result.IsError)
}

// --- explain_query ---

func TestHandleExplainQuery(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("explain_query", map[string]any{
		"query": `(//Grid#cell-0-0)[0]`,
	}))
	assert.False(t, result.IsError)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	assert.Equal(t, "cell-0-0", resp["subpart"])
	assert.Equal(t, false, resp["overlay"])
	assert.Equal(t, []any{float64(0)}, resp["post_filter"])

	segments, ok := resp["segments"].([]any)
	require.True(t, ok)
	require.Len(t, segments, 1)
	seg, ok := segments[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "descendant", seg["descent"])
	assert.Equal(t, "Grid", seg["token"])
}

func TestHandleExplainQuery_MissingQuery(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("explain_query", nil))
	assert.True(t, result.IsError)
}

// --- list_overlays ---

func TestHandleListOverlays(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("list_overlays", nil))
	assert.False(t, result.IsError)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	assert.Equal(t, "demo", resp["source"])

	overlays, ok := resp["overlays"].([]any)
	require.True(t, ok)
	require.Len(t, overlays, 2)

	first, ok := overlays[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "(//Notification)[0]", first["query"])

	attrs, ok := first["attributes"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Signed in", attrs["caption"], "overlays list oldest first")
}

// --- load_snapshot ---

func TestHandleLoadSnapshot(t *testing.T) {
	s := testServer(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "app.json")
	data := `{"root": {"type": "uikit.widget.UI", "children": [
		{"type": "uikit.widget.Button", "attributes": {"id": "b0"}},
		{"type": "uikit.widget.Button", "attributes": {"id": "b1"}},
		{"type": "uikit.widget.Button", "attributes": {"id": "b2"}}
	]}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	result := callTool(t, s, makeRequest("load_snapshot", map[string]any{"path": path}))
	assert.False(t, result.IsError)

	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	assert.Equal(t, float64(4), resp["nodes"])
	assert.Equal(t, float64(0), resp["overlays"])

	// Subsequent queries run against the newly loaded tree.
	result = callTool(t, s, makeRequest("resolve_query", map[string]any{"query": "//Button"}))
	var rr map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &rr))
	assert.Equal(t, float64(3), rr["total"])
	assert.Equal(t, path, rr["source"])
}

func TestHandleLoadSnapshot_BadPath(t *testing.T) {
	s := testServer(t)
	result := callTool(t, s, makeRequest("load_snapshot", map[string]any{
		"path": filepath.Join(t.TempDir(), "missing.json"),
	}))
	assert.True(t, result.IsError)

	// The current tree is kept on failure.
	result = callTool(t, s, makeRequest("resolve_query", map[string]any{"query": "//Button"}))
	var resp map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultJSON(t, result)), &resp))
	assert.Equal(t, float64(2), resp["total"])
	assert.Equal(t, "demo", resp["source"])
}

func TestHandleLoadSnapshot_NoLoader(t *testing.T) {
	s, err := NewServer(nil, nil, nil)
	require.NoError(t, err)

	result := callTool(t, s, makeRequest("load_snapshot", map[string]any{"path": "whatever.json"}))
	assert.True(t, result.IsError)
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gnana997/uifind/pkg/component"
	"github.com/gnana997/uifind/pkg/locator"
	"github.com/mark3labs/mcp-go/mcp"
)

// defaultMaxResults caps described matches so a broad query cannot flood
// the client; the total match count is always reported.
const defaultMaxResults = 25

// NodeDescription is the JSON shape returned per matched node.
type NodeDescription struct {
	// Query is a canonical query addressing exactly this node, when one
	// could be synthesized.
	Query      string            `json:"query,omitempty"`
	Type       string            `json:"type,omitempty"`
	Display    string            `json:"display,omitempty"`
	Depth      int               `json:"depth"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Children   int               `json:"children"`
}

type loadResponse struct {
	Source   string `json:"source"`
	Nodes    int    `json:"nodes"`
	Overlays int    `json:"overlays"`
}

type resolveResponse struct {
	Query     string            `json:"query"`
	Source    string            `json:"source"`
	Total     int               `json:"total"`
	Truncated bool              `json:"truncated,omitempty"`
	Matches   []NodeDescription `json:"matches"`
}

type resolveOneResponse struct {
	Query  string          `json:"query"`
	Source string          `json:"source"`
	Total  int             `json:"total"`
	Match  NodeDescription `json:"match"`
}

type synthesizeResponse struct {
	Query       string `json:"query"`
	Synthesized string `json:"synthesized"`
	Total       int    `json:"total"`
}

type overlaysResponse struct {
	Source   string            `json:"source"`
	Overlays []NodeDescription `json:"overlays"`
}

func (s *Server) handleLoadSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if s.loader == nil {
		return mcp.NewToolResultError("snapshot loading is disabled: no loader configured"), nil
	}

	tree, err := s.loader.Load(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load snapshot: %v", err)), nil
	}
	s.setCurrent(path, tree)

	return jsonResult(loadResponse{
		Source:   path,
		Nodes:    countNodes(tree.Root()),
		Overlays: len(tree.Overlays()),
	})
}

func (s *Server) handleResolveQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	max := req.GetInt("max_results", defaultMaxResults)
	if max <= 0 {
		max = defaultMaxResults
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := s.loc.Resolve(query)
	resp := resolveResponse{
		Query:   query,
		Source:  s.source,
		Total:   len(nodes),
		Matches: []NodeDescription{},
	}
	if len(nodes) > max {
		nodes = nodes[:max]
		resp.Truncated = true
	}
	for _, n := range nodes {
		resp.Matches = append(resp.Matches, s.describeNode(n))
	}
	return jsonResult(resp)
}

func (s *Server) handleResolveOne(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := s.loc.Resolve(query)
	if len(nodes) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("no component matches %q on %s", query, s.source)), nil
	}
	return jsonResult(resolveOneResponse{
		Query:  query,
		Source: s.source,
		Total:  len(nodes),
		Match:  s.describeNode(nodes[0]),
	})
}

func (s *Server) handleSynthesizeQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := s.loc.Resolve(query)
	if len(nodes) == 0 {
		return mcp.NewToolResultError(fmt.Sprintf("no component matches %q on %s", query, s.source)), nil
	}
	synthesized, ok := s.loc.Synthesize(nodes[0])
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no stable query for the node matched by %q", query)), nil
	}
	return jsonResult(synthesizeResponse{
		Query:       query,
		Synthesized: synthesized,
		Total:       len(nodes),
	})
}

func (s *Server) handleExplainQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(locator.Explain(query))
}

func (s *Server) handleListOverlays(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	overlays := s.loc.Tree().Overlays()
	resp := overlaysResponse{
		Source:   s.source,
		Overlays: make([]NodeDescription, 0, len(overlays)),
	}
	for i, n := range overlays {
		d := s.describeNode(n)
		// Overlays are not reachable from the root, so synthesis cannot
		// address them; the registry ordinal can.
		d.Query = fmt.Sprintf("(//Notification)[%d]", i)
		resp.Overlays = append(resp.Overlays, d)
	}
	return jsonResult(resp)
}

// describeNode builds the description of one node. Callers hold s.mu.
func (s *Server) describeNode(n *component.Node) NodeDescription {
	d := NodeDescription{
		Type:     n.PrimaryIdentifier(),
		Display:  n.DisplayName(),
		Children: len(n.Children()),
	}
	for p := n.Parent(); p != nil; p = p.Parent() {
		d.Depth++
	}
	if q, ok := s.loc.Synthesize(n); ok {
		d.Query = q
	}
	for _, name := range n.AttributeNames() {
		if v, ok := n.Attribute(name); ok {
			if d.Attributes == nil {
				d.Attributes = make(map[string]string)
			}
			d.Attributes[name] = v
		}
	}
	return d
}

func countNodes(n *component.Node) int {
	count := 1
	for _, c := range n.Children() {
		count += countNodes(c)
	}
	return count
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

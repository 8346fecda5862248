// Package mcp exposes the locator engine to agents over the Model Context
// Protocol: loading snapshots and resolving, synthesizing and explaining
// queries against the current tree.
package mcp

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gnana997/uifind/pkg/component"
	"github.com/gnana997/uifind/pkg/locator"
	"github.com/gnana997/uifind/pkg/mcplog"
	"github.com/gnana997/uifind/pkg/snapshot"
	"github.com/gnana997/uifind/snapshots"
	"github.com/mark3labs/mcp-go/server"
)

const serverVersion = "0.1.0-dev"

// Server implements the MCP server for uifind.
type Server struct {
	mcpServer *server.MCPServer
	loader    *snapshot.Loader // may be nil, disabling load_snapshot
	toolLog   *mcplog.Logger   // may be nil, disabling the JSONL tool log
	logger    *slog.Logger

	// mu guards the current tree's locator and source label; the engine
	// leaves synchronization to its callers.
	mu     sync.Mutex
	source string
	loc    *locator.Locator
}

// NewServer creates an MCP server backed by the given snapshot loader. The
// embedded demo snapshot serves as the current tree until a load_snapshot
// call replaces it.
func NewServer(loader *snapshot.Loader, toolLog *mcplog.Logger, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tree, err := snapshots.Demo()
	if err != nil {
		return nil, fmt.Errorf("failed to build default tree: %w", err)
	}

	s := &Server{
		loader:  loader,
		toolLog: toolLog,
		logger:  logger,
		source:  "demo",
		loc:     locator.New(tree, logger),
	}

	opts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}
	if toolLog != nil {
		opts = append(opts, server.WithToolHandlerMiddleware(s.loggingMiddleware()))
	}
	s.mcpServer = server.NewMCPServer("uifind", serverVersion, opts...)

	s.mcpServer.AddTools(
		server.ServerTool{Tool: loadSnapshotTool(), Handler: s.handleLoadSnapshot},
		server.ServerTool{Tool: resolveQueryTool(), Handler: s.handleResolveQuery},
		server.ServerTool{Tool: resolveOneTool(), Handler: s.handleResolveOne},
		server.ServerTool{Tool: synthesizeQueryTool(), Handler: s.handleSynthesizeQuery},
		server.ServerTool{Tool: explainQueryTool(), Handler: s.handleExplainQuery},
		server.ServerTool{Tool: listOverlaysTool(), Handler: s.handleListOverlays},
	)

	return s, nil
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// setCurrent swaps in a newly loaded tree.
func (s *Server) setCurrent(source string, tree *component.Tree) {
	loc := locator.New(tree, s.logger)
	s.mu.Lock()
	s.source = source
	s.loc = loc
	s.mu.Unlock()
}

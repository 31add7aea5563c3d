package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/ai-runner/internal/inference"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes the inference operations as tools.
type Server struct {
	dispatcher *inference.Dispatcher
	mcp        *server.MCPServer
}

// NewServer creates a new MCP server backed by the given dispatcher.
func NewServer(dispatcher *inference.Dispatcher) *Server {
	s := &Server{dispatcher: dispatcher}

	s.mcp = server.NewMCPServer(
		"airunner",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(summarizeTool, s.handleSummarize)
	s.mcp.AddTool(translateTool, s.handleTranslate)
	s.mcp.AddTool(contextPredictTool, s.handleContextPredict)
	s.mcp.AddTool(ragPredictTool, s.handleRagPredict)
	s.mcp.AddTool(listBasesTool, s.handleListBases)
	s.mcp.AddTool(searchBaseTool, s.handleSearchBase)
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}

// Package mcp exposes source resolution to agents over the Model Context
// Protocol (stdio transport).
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/forkpin/internal/gate"
)

// Server wraps the MCP SDK server around a Gate.
type Server struct {
	mcpServer *mcpsdk.Server
	gate      *gate.Gate
}

// New creates an MCP server backed by g.
func New(g *gate.Gate, version string) *Server {
	s := &Server{gate: g}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "forkpin",
			Version: version,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name: "forkpin_resolve",
		Description: "Decide whether the dependency must be loaded from the local fork or the public registry. " +
			"Fails when the local fork is expected but missing; never falls back to the registry silently.",
	}, s.handleResolve)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "forkpin_probe",
		Description: "Report whether the configured local fork path exists and contains the required markers.",
	}, s.handleProbe)
}

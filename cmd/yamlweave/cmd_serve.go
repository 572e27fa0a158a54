package main

import (
	"context"

	"github.com/spf13/cobra"

	"yamlweave/internal/logging"
	mcpserver "yamlweave/internal/mcp"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio for editor integration",
	Long: `Starts an MCP server over stdin/stdout. An agent-driven editor connects
to it and calls the weave_tree, restore_backup, and extract_rules tools
directly, without shelling out to the CLI.

The server monitors for parent process death. When the editor disconnects
or restarts its extension host, the server self-terminates to prevent
zombie processes.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	srv := mcpserver.NewServer()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	mcpserver.WatchStdin(ctx, nil, cancel)

	logging.New("mcp").Info("starting yamlweave MCP server over stdio (parent watchdog active)")
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/onboard-cli/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server exposing the bot as tools",
	Long: `Start a Model Context Protocol (MCP) server that exposes step listing,
single-step runs, skip and target probes, screen info and app control as
tools. One device session is shared by all tool calls.

Supported transports:
  stdio             Standard I/O (default)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  onboard-cli serve
  onboard-cli serve --transport streamable-http --http-port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	serveCmd.Flags().Int("http-port", 8080, "HTTP port for streamable-http transport")
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("http-port")

	b, err := openBot(cmd)
	if err != nil {
		return err
	}
	defer closeBot(cmd, b)

	return server.New(b, loggerFrom(cmd)).Serve(server.Config{Transport: transport, Port: port})
}

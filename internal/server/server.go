// Package server exposes the bot's diagnostic operations as MCP tools.
package server

import (
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/mj1618/onboard-cli/internal/bot"
	"github.com/mj1618/onboard-cli/internal/version"
)

// Config holds MCP server configuration.
type Config struct {
	Transport string
	Port      int
}

// Server wraps the MCP server around one bot session. Tool calls are
// serialised because they share a device.
type Server struct {
	bot        *bot.Bot
	providerMu sync.Mutex
	mcp        *mcpserver.MCPServer
	logger     *zap.Logger
}

// New creates a server with every tool registered.
func New(b *bot.Bot, logger *zap.Logger) *Server {
	s := &Server{
		bot:    b,
		logger: logger.Named("mcp"),
		mcp:    mcpserver.NewMCPServer("onboard-cli", version.Version),
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server with the configured transport.
func (s *Server) Serve(cfg Config) error {
	s.logger.Info("serving MCP", zap.String("transport", cfg.Transport), zap.Int("port", cfg.Port))
	switch cfg.Transport {
	case "stdio":
		return mcpserver.ServeStdio(s.mcp)
	case "streamable-http":
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcp)
		return httpServer.Start(fmt.Sprintf(":%d", cfg.Port))
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", cfg.Transport)
	}
}

func (s *Server) registerTools() {
	s.mcp.AddTool(
		mcp.NewTool("list_steps",
			mcp.WithDescription("List the onboarding steps with their action kinds"),
			mcp.WithNumber("from", mcp.Description("First step number (default: 1)")),
			mcp.WithNumber("to", mcp.Description("Last step number (default: last step)")),
		),
		s.handleListSteps,
	)

	s.mcp.AddTool(
		mcp.NewTool("run_step",
			mcp.WithDescription("Execute a single onboarding step on the device"),
			mcp.WithNumber("step", mcp.Description("Step number"), mcp.Required()),
			mcp.WithNumber("target", mcp.Description("Target id for select_target steps")),
		),
		s.handleRunStep,
	)

	s.mcp.AddTool(
		mcp.NewTool("test_skip",
			mcp.WithDescription("Search for the skip control without tapping it"),
			mcp.WithNumber("timeout", mcp.Description("Max seconds to search (default: 10)")),
		),
		s.handleTestSkip,
	)

	s.mcp.AddTool(
		mcp.NewTool("test_target",
			mcp.WithDescription("Open a target's band in the picker and locate it without tapping"),
			mcp.WithNumber("target", mcp.Description("Target id (1-619)"), mcp.Required()),
		),
		s.handleTestTarget,
	)

	s.mcp.AddTool(
		mcp.NewTool("screen_info",
			mcp.WithDescription("Describe the current screen: size, OCR availability and visible targets"),
			mcp.WithString("annotate", mcp.Description("Save an annotated screenshot to this path")),
		),
		s.handleScreenInfo,
	)

	s.mcp.AddTool(
		mcp.NewTool("app",
			mcp.WithDescription("Start or stop the game"),
			mcp.WithString("action", mcp.Description("start or stop"), mcp.Required()),
		),
		s.handleApp,
	)
}

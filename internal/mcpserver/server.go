// Package mcpserver exposes export history and offline element analysis as
// MCP tools so an assistant can pull captured page context directly.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nextlevelbuilder/vibetorch/internal/analyzer"
	"github.com/nextlevelbuilder/vibetorch/internal/store"
)

// Transports accepted by Serve.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "streamable-http"
)

// Server wraps the MCP server with the history store and analyzer.
type Server struct {
	mcp      *server.MCPServer
	history  store.HistoryStore // may be nil: history tools then report unavailable
	analyzer *analyzer.Analyzer
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

func WithHistory(h store.HistoryStore) Option { return func(s *Server) { s.history = h } }

func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

// New creates the MCP server and registers its tools.
func New(version string, opts ...Option) *Server {
	s := &Server{logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	s.analyzer = analyzer.New(analyzer.WithLogger(s.logger))

	s.mcp = server.NewMCPServer(
		"vibetorch",
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(s.loggingMiddleware()),
	)
	s.mcp.AddTools(
		server.ServerTool{Tool: listSelectionsTool(), Handler: s.handleListSelections},
		server.ServerTool{Tool: getSelectionTool(), Handler: s.handleGetSelection},
		server.ServerTool{Tool: analyzeHTMLTool(), Handler: s.handleAnalyzeHTML},
	)
	return s
}

// Serve runs the server on transport until ctx is cancelled or the
// transport ends.
func (s *Server) Serve(ctx context.Context, transport string, port int) error {
	switch transport {
	case TransportStdio, "":
		return server.ServeStdio(s.mcp)
	case TransportHTTP:
		httpServer := server.NewStreamableHTTPServer(s.mcp)
		errCh := make(chan error, 1)
		go func() { errCh <- httpServer.Start(fmt.Sprintf(":%d", port)) }()
		s.logger.Info("mcp listening", "transport", transport, "port", port)
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		}
	default:
		return fmt.Errorf("unsupported transport: %s (use stdio or streamable-http)", transport)
	}
}

// loggingMiddleware records every tool call at Debug.
func (s *Server) loggingMiddleware() server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := time.Now()
			result, err := next(ctx, req)
			s.logger.Debug("mcp tool call",
				"tool", req.Params.Name,
				"duration", time.Since(start),
				"isError", result != nil && result.IsError,
				"error", err,
			)
			return result, err
		}
	}
}

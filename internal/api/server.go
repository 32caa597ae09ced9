// Package api serves the MCP tool server over stdio or streamable HTTP, with
// an optional gRPC health endpoint alongside.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/mark3labs/mcp-go/server"
	"google.golang.org/grpc"

	"stockmcp/internal/config"
	"stockmcp/internal/tools"
)

// Server hosts the MCP server on the configured transport.
type Server struct {
	cfg   *config.Config
	log   *slog.Logger
	mcp   *server.MCPServer
	tools []server.ServerTool

	mu         sync.Mutex
	closed     bool
	httpServer *http.Server
	streamable *server.StreamableHTTPServer
	grpcServer *grpc.Server
	health     *healthService
}

// NewServer creates a Server exposing the registry's tools.
func NewServer(cfg *config.Config, reg *tools.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api")

	opts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithLogging(),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(tools.LoggingMiddleware(logger)),
	}
	if cfg.MCP.Instructions != "" {
		opts = append(opts, server.WithInstructions(cfg.MCP.Instructions))
	}

	s := &Server{
		cfg:   cfg,
		log:   logger,
		mcp:   server.NewMCPServer(cfg.MCP.Name, cfg.MCP.Version, opts...),
		tools: reg.Tools(),
	}
	s.mcp.AddTools(s.tools...)
	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Handler returns the HTTP router: the MCP endpoint plus health and tool
// listing routes.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	if s.streamable == nil {
		s.streamable = server.NewStreamableHTTPServer(s.mcp,
			server.WithEndpointPath(s.cfg.MCP.EndpointPath),
		)
	}
	streamable := s.streamable
	s.mu.Unlock()

	router := mux.NewRouter()
	router.Handle(s.cfg.MCP.EndpointPath, streamable).Methods(http.MethodGet, http.MethodPost, http.MethodDelete)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/tools", s.handleListTools).Methods(http.MethodGet)
	return router
}

// ListenAndServe starts the configured transport and the gRPC health service
// when a port is set. It blocks until ctx is cancelled or a transport fails,
// then shuts everything down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.cfg.Server.GRPCPort > 0 {
		if err := s.startGRPC(fmt.Sprintf(":%d", s.cfg.Server.GRPCPort)); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	switch s.cfg.MCP.Transport {
	case config.TransportStdio:
		go func() { errCh <- s.ServeStdio(ctx, os.Stdin, os.Stdout) }()
	case config.TransportHTTP:
		ln, err := net.Listen("tcp", s.cfg.Server.Addr)
		if err != nil {
			s.stopGRPC()
			return fmt.Errorf("listening on %s: %w", s.cfg.Server.Addr, err)
		}
		srv, err := s.trackHTTP(ln)
		if err != nil {
			return err
		}
		go func() { errCh <- s.serve(srv, ln) }()
	default:
		s.stopGRPC()
		return fmt.Errorf("unknown transport %q", s.cfg.MCP.Transport)
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		s.log.Error("shutdown error", "error", err)
	}

	if errors.Is(serveErr, context.Canceled) || errors.Is(serveErr, http.ErrServerClosed) {
		return nil
	}
	return serveErr
}

// ServeStdio serves MCP over newline-delimited JSON-RPC on in/out until ctx
// is cancelled or in reaches EOF.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(log.New(slogWriter{s.log}, "", 0))
	s.log.Info("serving MCP over stdio", "tools", len(s.tools))
	return stdio.Listen(ctx, in, out)
}

// ServeHTTP serves the HTTP router on ln until Shutdown. After Shutdown it
// closes ln and returns http.ErrServerClosed.
func (s *Server) ServeHTTP(ln net.Listener) error {
	srv, err := s.trackHTTP(ln)
	if err != nil {
		return err
	}
	return s.serve(srv, ln)
}

// trackHTTP registers the http.Server for ln so Shutdown can reach it before
// Serve starts.
func (s *Server) trackHTTP(ln net.Listener) (*http.Server, error) {
	handler := s.Handler()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		ln.Close()
		return nil, http.ErrServerClosed
	}
	s.httpServer = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer, nil
}

func (s *Server) serve(srv *http.Server, ln net.Listener) error {
	s.log.Info("serving MCP over HTTP",
		"addr", ln.Addr().String(),
		"endpoint", s.cfg.MCP.EndpointPath,
		"tools", len(s.tools),
	)
	return srv.Serve(ln)
}

// Shutdown stops the HTTP and gRPC listeners and marks the health service
// NOT_SERVING.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	httpServer, streamable := s.httpServer, s.streamable
	grpcServer, health := s.grpcServer, s.health
	s.httpServer, s.grpcServer = nil, nil
	s.mu.Unlock()

	var errs []error
	if health != nil {
		health.shutdown()
	}
	if httpServer != nil {
		if err := httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if streamable != nil {
		if err := streamable.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mcp shutdown: %w", err))
		}
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	s.log.Info("server stopped")
	return errors.Join(errs...)
}

// slogWriter adapts the stdio server's error log to slog.
type slogWriter struct{ log *slog.Logger }

func (w slogWriter) Write(p []byte) (int, error) {
	w.log.Error("stdio transport", "message", string(trimNewline(p)))
	return len(p), nil
}

func trimNewline(p []byte) []byte {
	for len(p) > 0 && (p[len(p)-1] == '\n' || p[len(p)-1] == '\r') {
		p = p[:len(p)-1]
	}
	return p
}

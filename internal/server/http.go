package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/lizz/gcal-mcp/internal/instrumentation"
)

// HTTP transport types.
const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

// HTTPServerConfig configures the HTTP transports.
type HTTPServerConfig struct {
	// Addr is the listen address, e.g. "localhost:8080".
	Addr string

	// Transport is TransportSSE or TransportStreamableHTTP.
	Transport string

	// AllowRemote permits listening on non-loopback interfaces. The MCP
	// endpoints are unauthenticated and act on the local user's calendar.
	AllowRemote bool
}

// HTTPServer exposes an MCP server over HTTP together with health probes.
type HTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	sc         *ServerContext
	config     HTTPServerConfig
	health     *HealthChecker
	httpServer *http.Server
}

// NewHTTPServer validates cfg and prepares the server.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, sc *ServerContext, cfg HTTPServerConfig) (*HTTPServer, error) {
	if cfg.Transport != TransportSSE && cfg.Transport != TransportStreamableHTTP {
		return nil, fmt.Errorf("unsupported server type: %s", cfg.Transport)
	}
	if !cfg.AllowRemote {
		if err := validateLoopbackAddr(cfg.Addr); err != nil {
			return nil, err
		}
	}
	return &HTTPServer{
		mcpServer: mcpServer,
		sc:        sc,
		config:    cfg,
		health:    NewHealthChecker(sc),
	}, nil
}

// Health returns the server's health checker.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Handler builds the HTTP routes: the MCP transport endpoints plus
// /healthz and /readyz.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.health.RegisterHealthEndpoints(mux)

	switch s.config.Transport {
	case TransportSSE:
		sseServer := mcpserver.NewSSEServer(s.mcpServer,
			mcpserver.WithSSEEndpoint("/sse"),
			mcpserver.WithMessageEndpoint("/message"),
		)
		mux.Handle("/sse", sseServer)
		mux.Handle("/message", sseServer)

	case TransportStreamableHTTP:
		httpServer := mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath("/mcp"),
		)
		mux.Handle("/mcp", httpServer)
	}

	var metrics *instrumentation.Metrics
	if s.sc != nil {
		metrics = s.sc.Metrics()
	}
	return MetricsMiddleware(metrics, mux)
}

// Start listens and serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	slog.Info("starting MCP HTTP server", "addr", s.config.Addr, "transport", s.config.Transport)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// validateLoopbackAddr allows only addresses bound to a loopback interface.
// An empty host (":8080") binds every interface and is rejected.
func validateLoopbackAddr(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("refusing to listen on %q: the MCP endpoint is unauthenticated. Use a loopback address or --allow-remote", addr)
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the wrapper.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// MetricsMiddleware records request count and latency per path. A nil
// metrics recorder returns next unchanged.
func MetricsMiddleware(metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, routeLabel(r.URL.Path), rec.status, time.Since(start))
	})
}

// routeLabel maps a request path onto the fixed set of served routes.
func routeLabel(path string) string {
	switch path {
	case "/mcp", "/sse", "/message", "/healthz", "/readyz", "/healthz/detailed":
		return path
	default:
		return "other"
	}
}

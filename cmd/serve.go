package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/lizz/gcal-mcp/internal/instrumentation"
	"github.com/lizz/gcal-mcp/internal/logging"
	"github.com/lizz/gcal-mcp/internal/resources"
	"github.com/lizz/gcal-mcp/internal/server"
	"github.com/lizz/gcal-mcp/internal/tools/calendar_tools"
	"github.com/lizz/gcal-mcp/internal/tools/google_tools"
)

// serverName is announced to MCP clients.
const serverName = "Lizz GCal MCP"

const transportStdio = "stdio"

// DefaultAuthTimeout bounds the startup authorization attempt.
const DefaultAuthTimeout = 5 * time.Minute

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., "localhost:9090")
	Addr string
}

// serveOptions holds the serve command settings.
type serveOptions struct {
	Transport   string
	HTTPAddr    string
	AllowRemote bool
	SkipAuth    bool
	AuthTimeout time.Duration
	Metrics     MetricsConfig
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server providing Google Calendar
tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - sse: Server-Sent Events
  - streamable-http: Streamable HTTP transport

Authorization:
  On startup the server loads the stored refresh token, or opens the Google
  consent page in your browser if there is none. Use --skip-auth to defer
  this to the first calendar request.

  OAuth client credentials come from config.yaml (google.oauth.client.id,
  google.oauth.client.secret) or the GOOGLE_CLIENT_ID and
  GOOGLE_CLIENT_SECRET env vars.

HTTP Transports:
  The HTTP endpoints are unauthenticated and act on your calendar, so the
  server only listens on loopback addresses unless --allow-remote is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadMetricsEnvVars(cmd, &opts.Metrics)
			return runServe(globalOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Transport, "transport", transportStdio, "Transport type: stdio, sse or streamable-http")
	cmd.Flags().StringVar(&opts.HTTPAddr, "http-addr", "localhost:8080", "HTTP server address (for sse and streamable-http transports)")
	cmd.Flags().BoolVar(&opts.AllowRemote, "allow-remote", false, "WARNING: Allow the HTTP server to listen on non-loopback addresses. Anyone who can reach it can read and create events.")
	cmd.Flags().BoolVar(&opts.SkipAuth, "skip-auth", false, "Do not authorize at startup; credentials are acquired on the first calendar request")
	cmd.Flags().DurationVar(&opts.AuthTimeout, "auth-timeout", DefaultAuthTimeout, "How long to wait for browser consent at startup")

	// Metrics server flags
	cmd.Flags().BoolVar(&opts.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port (HTTP transports only). Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.Metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadMetricsEnvVars applies METRICS_ENABLED and METRICS_ADDR when the
// matching flag was not set explicitly.
func loadMetricsEnvVars(cmd *cobra.Command, config *MetricsConfig) {
	if !cmd.Flags().Changed("metrics-enabled") {
		switch os.Getenv("METRICS_ENABLED") {
		case "true":
			config.Enabled = true
		case "false":
			config.Enabled = false
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			config.Addr = addr
		}
	}
}

func validateTransport(transport string) error {
	switch transport {
	case transportStdio, server.TransportSSE, server.TransportStreamableHTTP:
		return nil
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, sse, streamable-http)", transport)
	}
}

func runServe(global globalOptions, opts serveOptions) error {
	if err := validateTransport(opts.Transport); err != nil {
		return err
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(global.Debug)
	slog.SetDefault(logger)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	if err := instrConfig.Validate(); err != nil {
		return fmt.Errorf("invalid instrumentation config: %w", err)
	}

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("Error during instrumentation shutdown", logging.Err(err))
		}
	}()

	var (
		metrics     *instrumentation.Metrics
		auditLogger *instrumentation.AuditLogger
	)
	if provider.Enabled() {
		metrics = provider.Metrics()
		auditLogger = instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)
	}

	a, err := newApp(global, logger, metrics)
	if err != nil {
		return err
	}

	serverContext, err := server.NewServerContext(shutdownCtx, server.Options{
		Config:      a.config,
		Credentials: a.credentials,
		Store:       a.store,
		Logger:      logger,
		Metrics:     metrics,
		AuditLogger: auditLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("Error during server context shutdown", logging.Err(err))
		}
	}()

	if !opts.SkipAuth {
		preauthorize(shutdownCtx, a, opts.AuthTimeout)
	}

	mcpSrv := mcpserver.NewMCPServer(serverName, version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // Subscribe and listChanged
	)

	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	// Start the appropriate server based on transport type
	if opts.Transport == transportStdio {
		return runStdioServer(mcpSrv)
	}

	if opts.Metrics.Enabled && provider.Enabled() && provider.HasPrometheusExporter() {
		metricsServer, err := startMetricsServer(opts.Metrics, provider, logger)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("Error during metrics server shutdown", logging.Err(err))
			}
		}()
	}

	return runHTTPServer(shutdownCtx, mcpSrv, serverContext, server.HTTPServerConfig{
		Addr:        opts.HTTPAddr,
		Transport:   opts.Transport,
		AllowRemote: opts.AllowRemote,
	}, logger)
}

// preauthorize acquires a credential before serving so the consent page
// appears at startup rather than mid-conversation. Failure is not fatal;
// tools retry acquisition on demand.
func preauthorize(ctx context.Context, a *app, timeout time.Duration) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if _, err := a.credentials.Acquire(ctx); err != nil {
		a.logger.Warn("Authorization at startup failed; it will be retried on the first calendar request", logging.Err(err))
		return
	}
	a.logger.Info("Google Calendar access authorized")
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// registerAllTools registers all MCP tools and resources
func registerAllTools(mcpSrv *mcpserver.MCPServer, ctx *server.ServerContext) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Calendar tools",
			register: func() error {
				return calendar_tools.RegisterCalendarTools(mcpSrv, ctx)
			},
		},
		{
			name: "Google tools",
			register: func() error {
				return google_tools.RegisterGoogleTools(mcpSrv, ctx)
			},
		},
		{
			name: "Calendar Resources",
			register: func() error {
				return resources.RegisterCalendarResources(mcpSrv, ctx)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

func startMetricsServer(config MetricsConfig, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    config.Addr,
		Enabled:                 true,
		InstrumentationProvider: provider,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	// A bind failure surfaces almost immediately.
	select {
	case err := <-metricsErr:
		if err != nil {
			return nil, fmt.Errorf("metrics server failed to start: %w", err)
		}
	case <-time.After(200 * time.Millisecond):
	}
	logger.Info("Metrics server started", slog.String("addr", metricsServer.Addr()))
	return metricsServer, nil
}

func runHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, cfg server.HTTPServerConfig, logger *slog.Logger) error {
	httpServer, err := server.NewHTTPServer(mcpSrv, sc, cfg)
	if err != nil {
		return err
	}
	if cfg.AllowRemote {
		logger.Warn("HTTP server may listen on non-loopback addresses; the MCP endpoint has no authentication",
			slog.String("addr", cfg.Addr))
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}

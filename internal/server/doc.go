// Package server provides the MCP server context and the HTTP transports
// for gcal-mcp.
//
// # Key Components
//
// ServerContext is built once at startup and handed to every tool handler.
// It carries the configuration, the credential manager, the datetime
// interpreter and the instrumentation recorders, and creates the Google
// Calendar client lazily on first use.
//
// HTTPServer exposes the MCP server over SSE or streamable HTTP next to
// the /healthz and /readyz probes. The MCP endpoints are unauthenticated,
// so by default the server only binds loopback addresses.
//
// MetricsServer serves Prometheus metrics on a dedicated port.
package server

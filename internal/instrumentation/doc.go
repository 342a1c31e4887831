// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the gcal-mcp server.
//
// # Metrics
//
// Server/HTTP:
//   - http_requests_total, http_request_duration_seconds
//
// Google Calendar:
//   - google_api_operations_total, google_api_operation_duration_seconds
//   - calendar_events_created_total by kind (timed/all_day) and attendee bucket
//
// Credentials:
//   - credential_acquisitions_total and credential_acquisition_duration_seconds
//     by source (cache, store, interactive)
//   - oauth_token_refresh_total, oauth_auth_total
//   - credential_store_errors_total
//
// MCP tools:
//   - mcp_tool_invocations_total, mcp_tool_duration_seconds
//   - datetime_clarifications_total by clarification kind
//
// # Tracing
//
// Spans are created for tool invocations (tool.<name>), Google API calls
// (google.<service>.<operation>) and credential acquisition (credential.<step>).
//
// # Configuration
//
// Environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: gcal-mcp)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_ARGUMENTS
//
// The "stdout" exporters write to stderr: stdout is reserved for the MCP
// stdio transport.
package instrumentation

// Package common provides shared utilities for MCP tool implementations:
// argument decoding and the instrumentation wrapper that records spans,
// metrics and audit records for every tool call.
package common

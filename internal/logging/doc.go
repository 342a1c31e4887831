// Package logging provides structured logging utilities for gcal-mcp.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Handler construction (text or JSON) bound to stderr
//   - Token masking and fingerprinting
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "calendar.list_today")
//	logger.Info("listing events",
//	    logging.Status("success"))
//
// # Security Considerations
//
// OAuth access and refresh tokens are never logged directly. Use SanitizeToken
// or Fingerprint when a log line needs to refer to one.
package logging

// Package cmd implements the command-line interface for gcal-mcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server (the default when no subcommand is given)
//   - auth: Authorize access to Google Calendar; auth status and auth logout
//     inspect and remove the stored credentials
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - version: Display version information
//
// Global flags (--config, --credentials-file, --callback-port, --debug) are
// shared by all commands.
package cmd

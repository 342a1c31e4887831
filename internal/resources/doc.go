// Package resources provides MCP resources exposing calendar data.
// Resources are read-only data sources that MCP clients can fetch:
//
//   - calendar://events/today: today's events as JSON
//   - calendar://settings: time zone, scopes and application name
package resources

// Package google_tools provides MCP tools for checking connectivity and
// Google authorization.
//
// This package registers:
//   - ping: answers "TEST TOOL", for checking that the server is reachable
//   - google_auth_status: reports the credential state without any I/O
//     beyond reading the credentials file
//   - google_authorize: acquires a credential immediately, running the
//     browser consent flow if no stored refresh token can be exchanged
//
// The calendar tools acquire credentials on their own. google_authorize
// only lets a client front-load the consent step.
package google_tools

// Package google manages the OAuth credential gcal-mcp uses to call the
// Google Calendar API.
//
// A CredentialManager produces credentials from, in order, its in-memory
// cache, a refresh token persisted by a CredentialStore (exchanged through
// an Exchanger), and an interactive consent flow run by an Authorizer. The
// default implementations are FileCredentialStore, RefreshExchanger and
// LoopbackAuthorizer.
package google

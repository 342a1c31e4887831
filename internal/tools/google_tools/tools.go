package google_tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/lizz/gcal-mcp/internal/instrumentation"
	"github.com/lizz/gcal-mcp/internal/server"
	"github.com/lizz/gcal-mcp/internal/tools/common"
)

// Tool names.
const (
	ToolPing       = "ping"
	ToolAuthStatus = "google_auth_status"
	ToolAuthorize  = "google_authorize"
)

// RegisterGoogleTools registers the connectivity and authorization tools
// with the MCP server.
func RegisterGoogleTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return fmt.Errorf("google tools require an MCP server and a server context")
	}

	pingTool := mcp.NewTool(ToolPing,
		mcp.WithDescription("Print TEST TOOL when you want to test out Gcal MCP"),
	)
	s.AddTool(pingTool, common.InstrumentedToolHandler(ToolPing, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultText("TEST TOOL"), nil
		}))

	authStatusTool := mcp.NewTool(ToolAuthStatus,
		mcp.WithDescription("Report whether Google Calendar access is authorized, without starting an authorization flow"),
	)
	s.AddTool(authStatusTool, common.InstrumentedToolHandlerWithService(
		ToolAuthStatus, instrumentation.ServiceOAuth, instrumentation.OperationAuthStatus, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleAuthStatus(ctx, request, sc)
		}))

	authorizeTool := mcp.NewTool(ToolAuthorize,
		mcp.WithDescription("Authorize Google Calendar access now. Uses the stored refresh token when possible, otherwise opens the browser consent page"),
	)
	s.AddTool(authorizeTool, common.InstrumentedToolHandlerWithService(
		ToolAuthorize, instrumentation.ServiceOAuth, instrumentation.OperationAuthorize, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleAuthorize(ctx, request, sc)
		}))

	return nil
}

func handleAuthStatus(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	creds := sc.Credentials()
	if creds == nil {
		return mcp.NewToolResultText("Google Calendar access is managed externally; no credentials are handled by this server."), nil
	}

	if cred := creds.Cached(); cred.Usable() {
		if cred.Valid(sc.Now()) {
			if cred.Expiry.IsZero() {
				return mcp.NewToolResultText("Authorized. An access token is loaded."), nil
			}
			return mcp.NewToolResultText(fmt.Sprintf("Authorized. The access token is valid until %s.",
				cred.Expiry.In(sc.Location()).Format(time.RFC1123))), nil
		}
		return mcp.NewToolResultText("Authorized. The access token has expired and will be refreshed on the next calendar request."), nil
	}

	if store := sc.Store(); store != nil {
		stored, err := store.Load(ctx, creds.ScopeHash())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read stored credentials: %v", err)), nil
		}
		if stored != nil {
			return mcp.NewToolResultText("A stored refresh token is available. It will be exchanged on the next calendar request."), nil
		}
	}

	return mcp.NewToolResultText("Not authorized. The next calendar request, or google_authorize, opens the Google consent page in your browser."), nil
}

func handleAuthorize(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	creds := sc.Credentials()
	if creds == nil {
		return mcp.NewToolResultError("No credential manager is configured"), nil
	}

	if _, err := creds.Acquire(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error authorizing Google Calendar access: %v", err)), nil
	}
	return mcp.NewToolResultText("Google Calendar access is authorized."), nil
}

package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/lizz/gcal-mcp/internal/calendar"
	"github.com/lizz/gcal-mcp/internal/google"
	"github.com/lizz/gcal-mcp/internal/server"
)

// Resource URIs.
const (
	URITodaysEvents = "calendar://events/today"
	URISettings     = "calendar://settings"
)

const mimeJSON = "application/json"

// RegisterCalendarResources registers the read-only calendar resources.
func RegisterCalendarResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return fmt.Errorf("calendar resources require an MCP server and a server context")
	}

	todayResource := mcp.NewResource(
		URITodaysEvents,
		"Today's Events",
		mcp.WithResourceDescription("Events on the primary calendar for the current local day"),
		mcp.WithMIMEType(mimeJSON),
	)
	s.AddResource(todayResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleTodaysEvents(ctx, request, sc)
	})

	settingsResource := mcp.NewResource(
		URISettings,
		"Calendar Settings",
		mcp.WithResourceDescription("Time zone, OAuth scopes and application name used by this server"),
		mcp.WithMIMEType(mimeJSON),
	)
	s.AddResource(settingsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSettings(ctx, request, sc)
	})

	return nil
}

// eventJSON is the resource representation of one event.
type eventJSON struct {
	ID          string   `json:"id"`
	Summary     string   `json:"summary"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Start       string   `json:"start,omitempty"`
	End         string   `json:"end,omitempty"`
	AllDay      bool     `json:"allDay"`
	Attendees   []string `json:"attendees,omitempty"`
	Status      string   `json:"status,omitempty"`
	HTMLLink    string   `json:"htmlLink,omitempty"`
}

type todaysEventsJSON struct {
	Date     string      `json:"date"`
	TimeZone string      `json:"timeZone"`
	Events   []eventJSON `json:"events"`
}

func toEventJSON(e calendar.EventSummary) eventJSON {
	out := eventJSON{
		ID:          e.ID,
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		AllDay:      e.AllDay,
		Attendees:   e.Attendees,
		Status:      e.Status,
		HTMLLink:    e.HTMLLink,
	}
	layout := time.RFC3339
	if e.AllDay {
		layout = time.DateOnly
	}
	if e.HasStart() {
		out.Start = e.Start.Format(layout)
	}
	if !e.End.IsZero() {
		out.End = e.End.Format(layout)
	}
	return out
}

func handleTodaysEvents(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	svc, err := sc.CalendarService()
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	events, err := svc.ListToday(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list today's events: %w", err)
	}

	loc := sc.Location()
	data := todaysEventsJSON{
		Date:     sc.Now().In(loc).Format(time.DateOnly),
		TimeZone: loc.String(),
		Events:   make([]eventJSON, 0, len(events)),
	}
	for _, e := range events {
		data.Events = append(data.Events, toEventJSON(e))
	}

	return jsonContents(request.Params.URI, data)
}

func handleSettings(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	settings := map[string]any{
		"timeZone": sc.Location().String(),
		"scopes":   google.CalendarScopes,
	}
	if cfg := sc.Config(); cfg != nil {
		settings["applicationName"] = cfg.ApplicationName()
		settings["callbackPort"] = cfg.CallbackPort()
	}
	if creds := sc.Credentials(); creds != nil {
		settings["scopeHash"] = creds.ScopeHash()
	}

	return jsonContents(request.Params.URI, settings)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(jsonData),
		},
	}, nil
}

package calendar_tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/lizz/gcal-mcp/internal/calendar"
	"github.com/lizz/gcal-mcp/internal/datetime"
	"github.com/lizz/gcal-mcp/internal/instrumentation"
	"github.com/lizz/gcal-mcp/internal/server"
	"github.com/lizz/gcal-mcp/internal/tools/common"
)

// Tool names.
const (
	ToolGetTodaysEvents = "get_todays_events"
	ToolCreateEvent     = "create_event"
)

// Defaults for optional create_event arguments.
const (
	DefaultDurationMinutes = 60
	DefaultReminderMinutes = 10
)

// RegisterEventTools registers event-related tools with the MCP server
func RegisterEventTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	getTodaysEventsTool := mcp.NewTool(ToolGetTodaysEvents,
		mcp.WithDescription("Get today's events from Google Calendar"),
	)

	s.AddTool(getTodaysEventsTool, common.InstrumentedToolHandlerWithService(
		ToolGetTodaysEvents, instrumentation.ServiceCalendar, instrumentation.OperationListToday, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetTodaysEvents(ctx, request, sc)
		}))

	createEventTool := mcp.NewTool(ToolCreateEvent,
		mcp.WithDescription("Create a new event in Google Calendar"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("The title/summary of the event (required)"),
		),
		mcp.WithString("datetime",
			mcp.Required(),
			mcp.Description("Event date and time. Accepts: 'YYYY-MM-DD HH:MM', 'YYYY-MM-DD' for all-day, or partial info like '10am', 'tomorrow', etc. If incomplete, a clarification question is returned instead of creating the event."),
		),
		mcp.WithNumber("duration_minutes",
			mcp.Description("Duration of the event in minutes (default: 60)"),
		),
		mcp.WithString("description",
			mcp.Description("Event description (optional)"),
		),
		mcp.WithString("location",
			mcp.Description("Event location (optional)"),
		),
		mcp.WithArray("attendees",
			mcp.Description("List of attendee email addresses (optional)"),
			mcp.WithStringItems(),
		),
		mcp.WithNumber("reminder_minutes",
			mcp.Description("Minutes before event to send reminder (optional, default: 10)"),
		),
	)

	s.AddTool(createEventTool, common.InstrumentedToolHandlerWithService(
		ToolCreateEvent, instrumentation.ServiceCalendar, instrumentation.OperationInsert, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateEvent(ctx, request, sc)
		}))

	return nil
}

func handleGetTodaysEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	svc, err := sc.CalendarService()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error fetching calendar events: %v", err)), nil
	}

	events, err := svc.ListToday(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error fetching calendar events: %v", err)), nil
	}

	return mcp.NewToolResultText(calendar.FormatEventList(events)), nil
}

// createEventArgs are the decoded create_event arguments.
type createEventArgs struct {
	title           string
	datetime        string
	durationMinutes int
	description     string
	location        string
	attendees       []string
	reminderMinutes int
}

func parseCreateEventArgs(args map[string]any) (createEventArgs, error) {
	a := createEventArgs{
		title:       common.StringArg(args, "title"),
		datetime:    common.StringArg(args, "datetime"),
		description: common.StringArg(args, "description"),
		location:    common.StringArg(args, "location"),
	}
	if a.title == "" {
		return a, fmt.Errorf("Title is required")
	}
	if a.datetime == "" {
		return a, fmt.Errorf("Datetime is required")
	}

	var err error
	if a.durationMinutes, err = common.IntArg(args, "duration_minutes", DefaultDurationMinutes); err != nil {
		return a, err
	}
	if a.durationMinutes <= 0 {
		return a, fmt.Errorf("duration_minutes must be greater than zero")
	}
	if a.reminderMinutes, err = common.IntArg(args, "reminder_minutes", DefaultReminderMinutes); err != nil {
		return a, err
	}
	if a.reminderMinutes < 0 {
		return a, fmt.Errorf("reminder_minutes cannot be negative")
	}
	if a.attendees, err = common.StringListArg(args, "attendees"); err != nil {
		return a, err
	}
	return a, nil
}

func handleCreateEvent(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args, err := parseCreateEventArgs(request.GetArguments())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	common.RecordArgument(ctx, "title", args.title)
	common.RecordArgument(ctx, "datetime", args.datetime)
	common.RecordArgument(ctx, "duration_minutes", strconv.Itoa(args.durationMinutes))
	common.RecordArgument(ctx, "attendees", strconv.Itoa(len(args.attendees)))

	res := sc.Interpreter().Interpret(args.datetime)
	if !res.Resolved() {
		common.MarkClarification(ctx, string(res.Clarification.Kind))
		return mcp.NewToolResultText(res.Clarification.Prompt), nil
	}
	moment := *res.Moment

	svc, err := sc.CalendarService()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error creating event: %v", err)), nil
	}

	start := moment.In(sc.Location())
	created, err := svc.CreateEvent(ctx, calendar.EventInput{
		Summary:         args.title,
		Description:     args.description,
		Location:        args.location,
		Start:           start,
		Duration:        time.Duration(args.durationMinutes) * time.Minute,
		AllDay:          moment.AllDay,
		Attendees:       args.attendees,
		ReminderMinutes: args.reminderMinutes,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error creating event: %v", err)), nil
	}
	common.RecordEventID(ctx, created.ID)

	return mcp.NewToolResultText(formatConfirmation(args, moment, start, created.ID)), nil
}

// formatConfirmation renders the reply for a created event.
func formatConfirmation(args createEventArgs, moment datetime.Moment, start time.Time, eventID string) string {
	var b strings.Builder
	b.WriteString("Event created successfully!\n")
	fmt.Fprintf(&b, "Title: %s\n", args.title)
	if moment.AllDay {
		fmt.Fprintf(&b, "Date/Time: %s (all day)\n", start.Format("January 2, 2006"))
	} else {
		fmt.Fprintf(&b, "Date/Time: %s\n", start.Format("January 2, 2006 at 15:04"))
		fmt.Fprintf(&b, "Duration: %d minutes\n", args.durationMinutes)
	}
	if args.location != "" {
		fmt.Fprintf(&b, "Location: %s\n", args.location)
	}
	if len(args.attendees) > 0 {
		fmt.Fprintf(&b, "Attendees: %s\n", strings.Join(args.attendees, ", "))
	}
	fmt.Fprintf(&b, "Event ID: %s", eventID)
	return b.String()
}

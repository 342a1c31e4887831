package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/lizz/gcal-mcp/internal/instrumentation"
	"github.com/lizz/gcal-mcp/internal/logging"
)

// PrimaryCalendarID is the only calendar this package reads or writes.
const PrimaryCalendarID = "primary"

// Service is the calendar surface used by the MCP tools.
type Service interface {
	ListToday(ctx context.Context) ([]EventSummary, error)
	CreateEvent(ctx context.Context, input EventInput) (*EventSummary, error)
}

var _ Service = (*Client)(nil)

// Options configures a Client.
type Options struct {
	// ApplicationName is sent as the user agent.
	ApplicationName string

	// Location is the zone used for "today" and event times. Defaults to
	// time.Local.
	Location *time.Location

	// Endpoint overrides the API base URL.
	Endpoint string

	// Now is the clock used to determine today. Defaults to time.Now.
	Now func() time.Time

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Client wraps the Google Calendar service
type Client struct {
	svc     *calendar.Service
	loc     *time.Location
	now     func() time.Time
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// NewClient creates a Calendar client that authorizes every request with a
// token from ts.
func NewClient(ctx context.Context, ts oauth2.TokenSource, opts Options) (*Client, error) {
	if ts == nil {
		return nil, fmt.Errorf("token source cannot be nil")
	}

	// Force HTTP/1.1 by disabling HTTP/2
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: ts,
			Base: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				ForceAttemptHTTP2: false,
			},
		},
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if opts.ApplicationName != "" {
		clientOpts = append(clientOpts, option.WithUserAgent(opts.ApplicationName))
	}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	svc, err := calendar.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		svc:     svc,
		loc:     loc,
		now:     now,
		metrics: opts.Metrics,
		logger:  logging.WithService(logger, instrumentation.ServiceCalendar),
	}, nil
}

// Location returns the zone the client resolves local times in.
func (c *Client) Location() *time.Location {
	return c.loc
}

// todayBounds returns local midnight today and local midnight tomorrow.
func (c *Client) todayBounds() (time.Time, time.Time) {
	y, m, d := c.now().In(c.loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, c.loc)
	return start, start.AddDate(0, 0, 1)
}

// ListToday lists the events of the primary calendar that fall on the
// current local day, recurring events expanded, ordered by start time.
func (c *Client) ListToday(ctx context.Context) ([]EventSummary, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationListToday)
	defer span.End()
	start := time.Now()

	timeMin, timeMax := c.todayBounds()
	call := c.svc.Events.List(PrimaryCalendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	var summaries []EventSummary
	err := call.Pages(ctx, func(events *calendar.Events) error {
		for _, event := range events.Items {
			summaries = append(summaries, toEventSummary(event, c.loc))
		}
		return nil
	})
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationListToday, statusOf(err), time.Since(start))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	instrumentation.SetSpanSuccess(span)
	c.logger.Debug("Listed today's events", logging.Operation(instrumentation.OperationListToday), slog.Int("count", len(summaries)))
	return summaries, nil
}

// CreateEvent inserts input into the primary calendar.
func (c *Client) CreateEvent(ctx context.Context, input EventInput) (*EventSummary, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceCalendar, instrumentation.OperationInsert,
		instrumentation.NewSpanAttributeBuilder().WithEvent(input.AllDay, len(input.Attendees)).Build()...)
	defer span.End()
	start := time.Now()

	event := c.buildEvent(input)
	created, err := c.svc.Events.Insert(PrimaryCalendarID, event).Context(ctx).Do()
	c.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceCalendar, instrumentation.OperationInsert, statusOf(err), time.Since(start))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	c.metrics.RecordEventCreated(ctx, input.AllDay, len(input.Attendees))
	span.SetAttributes(instrumentation.NewSpanAttributeBuilder().WithEventID(created.Id).Build()...)
	instrumentation.SetSpanSuccess(span)

	summary := toEventSummary(created, c.loc)
	return &summary, nil
}

// buildEvent maps input onto the API representation. All-day events span
// [date, date+1); timed events carry the local zone name when it is known.
func (c *Client) buildEvent(input EventInput) *calendar.Event {
	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
	}

	start := input.Start.In(c.loc)
	if input.AllDay {
		y, m, d := start.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, c.loc)
		event.Start = &calendar.EventDateTime{Date: day.Format(dateLayout)}
		event.End = &calendar.EventDateTime{Date: day.AddDate(0, 0, 1).Format(dateLayout)}
	} else {
		tz := zoneName(c.loc)
		event.Start = &calendar.EventDateTime{
			DateTime: start.Format(time.RFC3339),
			TimeZone: tz,
		}
		event.End = &calendar.EventDateTime{
			DateTime: start.Add(input.Duration).Format(time.RFC3339),
			TimeZone: tz,
		}
	}

	if len(input.Attendees) > 0 {
		var attendees []*calendar.EventAttendee
		for _, email := range input.Attendees {
			attendees = append(attendees, &calendar.EventAttendee{
				Email: email,
			})
		}
		event.Attendees = attendees
	}

	event.Reminders = &calendar.EventReminders{
		UseDefault: false,
		Overrides: []*calendar.EventReminder{
			{
				Method:          "popup",
				Minutes:         int64(input.ReminderMinutes),
				ForceSendFields: []string{"Minutes"},
			},
		},
		// UseDefault=false is the zero value and would be dropped otherwise.
		ForceSendFields: []string{"UseDefault"},
	}

	return event
}

// zoneName returns an IANA zone name for loc, or "" when only the
// process-local alias is available. The RFC 3339 offset still pins the
// instant in that case.
func zoneName(loc *time.Location) string {
	if loc == nil || loc.String() == "Local" {
		return ""
	}
	return loc.String()
}

func statusOf(err error) string {
	if err != nil {
		return instrumentation.StatusError
	}
	return instrumentation.StatusSuccess
}

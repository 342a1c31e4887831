package resources

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lizz/gcal-mcp/internal/calendar"
	"github.com/lizz/gcal-mcp/internal/server"
)

type fakeCalendar struct {
	events []calendar.EventSummary
	err    error
}

func (f fakeCalendar) ListToday(context.Context) ([]calendar.EventSummary, error) {
	return f.events, f.err
}

func (f fakeCalendar) CreateEvent(context.Context, calendar.EventInput) (*calendar.EventSummary, error) {
	return nil, errors.New("not implemented")
}

func newTestContext(t *testing.T, cal fakeCalendar) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), server.Options{
		Calendar: cal,
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func readRequest(uri string) mcp.ReadResourceRequest {
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	return req
}

func decode(t *testing.T, contents []mcp.ResourceContents) map[string]any {
	t.Helper()
	require.Len(t, contents, 1)
	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, mimeJSON, text.MIMEType)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestRegisterCalendarResources(t *testing.T) {
	assert.Error(t, RegisterCalendarResources(nil, nil))

	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithResourceCapabilities(false, false))
	assert.NoError(t, RegisterCalendarResources(s, newTestContext(t, fakeCalendar{})))
}

func TestTodaysEvents(t *testing.T) {
	start := time.Date(2025, time.March, 10, 14, 0, 0, 0, time.UTC)
	sc := newTestContext(t, fakeCalendar{events: []calendar.EventSummary{
		{ID: "a", Summary: "Review", Start: start, End: start.Add(time.Hour), Attendees: []string{"x@example.com"}},
		{ID: "b", Summary: "Holiday", AllDay: true, Start: time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), End: time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC)},
	}})

	contents, err := handleTodaysEvents(context.Background(), readRequest(URITodaysEvents), sc)
	require.NoError(t, err)

	out := decode(t, contents)
	assert.Equal(t, "2025-03-10", out["date"])
	assert.Equal(t, "UTC", out["timeZone"])

	events := out["events"].([]any)
	require.Len(t, events, 2)
	timed := events[0].(map[string]any)
	assert.Equal(t, "2025-03-10T14:00:00Z", timed["start"])
	assert.Equal(t, []any{"x@example.com"}, timed["attendees"])
	allDay := events[1].(map[string]any)
	assert.Equal(t, "2025-03-10", allDay["start"])
	assert.Equal(t, true, allDay["allDay"])
}

func TestTodaysEvents_Empty(t *testing.T) {
	contents, err := handleTodaysEvents(context.Background(), readRequest(URITodaysEvents), newTestContext(t, fakeCalendar{}))
	require.NoError(t, err)
	assert.Equal(t, []any{}, decode(t, contents)["events"])
}

func TestTodaysEvents_Error(t *testing.T) {
	_, err := handleTodaysEvents(context.Background(), readRequest(URITodaysEvents), newTestContext(t, fakeCalendar{err: errors.New("boom")}))
	assert.ErrorContains(t, err, "boom")
}

func TestSettings(t *testing.T) {
	contents, err := handleSettings(context.Background(), readRequest(URISettings), newTestContext(t, fakeCalendar{}))
	require.NoError(t, err)

	out := decode(t, contents)
	assert.Equal(t, "UTC", out["timeZone"])
	assert.NotEmpty(t, out["scopes"])
	assert.NotContains(t, out, "scopeHash")
}

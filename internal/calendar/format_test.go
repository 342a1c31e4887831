package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	calendar "google.golang.org/api/calendar/v3"
)

func TestFormatEvent(t *testing.T) {
	at := time.Date(2026, time.October, 16, 14, 5, 0, 0, time.UTC)

	tests := []struct {
		name  string
		event EventSummary
		want  string
	}{
		{
			name:  "timed with location and description",
			event: EventSummary{Summary: "Review", Start: at, Location: "Room 4", Description: "Bring notes"},
			want:  "Review - 14:05 at Room 4\n  Description: Bring notes",
		},
		{
			name:  "all day",
			event: EventSummary{Summary: "Holiday", Start: at, AllDay: true},
			want:  "Holiday - All day",
		},
		{
			name:  "no title and no start",
			event: EventSummary{},
			want:  "No title - No start time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatEvent(tt.event))
		})
	}
}

func TestFormatEventList(t *testing.T) {
	assert.Equal(t, "No events scheduled for today.", FormatEventList(nil))

	at := time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC)
	got := FormatEventList([]EventSummary{
		{Summary: "Standup", Start: at},
		{Summary: "Holiday", AllDay: true, Start: at},
	})
	assert.Equal(t, "Today's events:\n\n1. Standup - 09:00\n\n2. Holiday - All day", got)
}

func TestToEventSummary(t *testing.T) {
	assert.Equal(t, EventSummary{}, toEventSummary(nil, time.UTC))

	summary := toEventSummary(&calendar.Event{
		Id:        "e1",
		Summary:   "Sync",
		Start:     &calendar.EventDateTime{DateTime: "2026-10-16T10:00:00+02:00"},
		End:       &calendar.EventDateTime{DateTime: "2026-10-16T11:00:00+02:00"},
		Attendees: []*calendar.EventAttendee{{Email: "a@example.com"}, nil, {DisplayName: "no email"}},
	}, time.UTC)

	assert.Equal(t, "e1", summary.ID)
	assert.Equal(t, 8, summary.Start.Hour())
	assert.Equal(t, time.Hour, summary.End.Sub(summary.Start))
	assert.Equal(t, []string{"a@example.com"}, summary.Attendees)
	assert.False(t, summary.AllDay)

	invalid := toEventSummary(&calendar.Event{Start: &calendar.EventDateTime{DateTime: "garbage"}}, time.UTC)
	assert.False(t, invalid.HasStart())
}

package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

const dateLayout = "2006-01-02"

// EventInput describes an event to insert.
type EventInput struct {
	Summary     string
	Description string
	Location    string

	// Start is the local start time. For all-day events only its date is
	// used.
	Start    time.Time
	Duration time.Duration
	AllDay   bool

	Attendees []string

	// ReminderMinutes sets the single popup reminder.
	ReminderMinutes int
}

// EventSummary represents a simplified calendar event for listing
type EventSummary struct {
	ID          string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Attendees   []string
	Status      string
	HTMLLink    string
}

// HasStart reports whether the event carried a start date or time.
func (e EventSummary) HasStart() bool {
	return !e.Start.IsZero()
}

// toEventSummary converts a Google Calendar event to an EventSummary. Times
// are expressed in loc.
func toEventSummary(event *calendar.Event, loc *time.Location) EventSummary {
	if event == nil {
		return EventSummary{}
	}

	summary := EventSummary{
		ID:          event.Id,
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Status:      event.Status,
		HTMLLink:    event.HtmlLink,
	}

	summary.Start, summary.AllDay = parseEventTime(event.Start, loc)
	summary.End, _ = parseEventTime(event.End, loc)

	for _, att := range event.Attendees {
		if att != nil && att.Email != "" {
			summary.Attendees = append(summary.Attendees, att.Email)
		}
	}

	return summary
}

// parseEventTime returns the instant of dt and whether it is a date-only
// value.
func parseEventTime(dt *calendar.EventDateTime, loc *time.Location) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return t.In(loc), false
		}
	}
	if dt.Date != "" {
		if t, err := time.ParseInLocation(dateLayout, dt.Date, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package calendar

import (
	"fmt"
	"strings"
)

// FormatEvent renders one event as "<title> - <start>[ at <location>]",
// followed by an indented description line when present.
func FormatEvent(e EventSummary) string {
	title := e.Summary
	if title == "" {
		title = "No title"
	}

	var start string
	switch {
	case e.AllDay:
		start = "All day"
	case e.HasStart():
		start = e.Start.Format("15:04")
	default:
		start = "No start time"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s", title, start)
	if e.Location != "" {
		fmt.Fprintf(&b, " at %s", e.Location)
	}
	if e.Description != "" {
		fmt.Fprintf(&b, "\n  Description: %s", e.Description)
	}
	return b.String()
}

// FormatEventList renders today's events as a numbered list.
func FormatEventList(events []EventSummary) string {
	if len(events) == 0 {
		return "No events scheduled for today."
	}
	items := make([]string, len(events))
	for i, e := range events {
		items[i] = fmt.Sprintf("%d. %s", i+1, FormatEvent(e))
	}
	return "Today's events:\n\n" + strings.Join(items, "\n\n")
}
